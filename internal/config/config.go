// internal/config/config.go
//
// Typed server configuration read from the environment.
// A .env file, when present, is loaded by main before Load runs.
//
// Variables:
//   - PORT, LOG_LEVEL, CLIENT_ORIGIN, REQUEST_TIMEOUT: HTTP server.
//   - DB_TYPE, DB_PATH, DATABASE_URL: storage backend.
//   - WORDS_FILE, SEED_WORDS: word corpus seeding.
//   - OTEL_ENDPOINT, OTEL_ENABLED: opt-in tracing.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration of the server.
type Config struct {
	Port           string        `env:"PORT"            envDefault:"5175"`
	LogLevel       string        `env:"LOG_LEVEL"       envDefault:"info"`
	ClientOrigin   string        `env:"CLIENT_ORIGIN"   envDefault:"http://localhost:5173"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	DBType      string `env:"DB_TYPE"      envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH"      envDefault:"./data/hangman.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	WordsFile string `env:"WORDS_FILE"`
	SeedWords bool   `env:"SEED_WORDS" envDefault:"true"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  string `env:"OTEL_ENABLED"`
}

var dbTypes = map[string]bool{
	"memory":      true,
	"sqlite":      true,
	"sqlite-pure": true,
	"postgres":    true,
	"mysql":       true,
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, keyedParseErrors(err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// keyedParseErrors rewrites env.ParseError values, which carry the Go field
// name, so each one names the variable an operator actually sets.
func keyedParseErrors(err error) error {
	var agg env.AggregateError
	if !errors.As(err, &agg) {
		return fmt.Errorf("config: %w", err)
	}
	keys := envKeys(reflect.TypeOf(Config{}))
	errs := make([]error, 0, len(agg.Errors))
	for _, e := range agg.Errors {
		var pe env.ParseError
		if errors.As(e, &pe) {
			if key, ok := keys[pe.Name]; ok {
				e = fmt.Errorf("config: invalid %s: %w", key, pe.Err)
			}
		}
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// envKeys maps struct field names to their env tag keys.
func envKeys(t reflect.Type) map[string]string {
	keys := make(map[string]string, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if key, _, _ := strings.Cut(f.Tag.Get("env"), ","); key != "" {
			keys[f.Name] = key
		}
	}
	return keys
}

// Validate checks combinations env tags cannot express.
func (c Config) Validate() error {
	if !dbTypes[c.DBType] {
		return fmt.Errorf("config: unsupported DB_TYPE %q", c.DBType)
	}
	if (c.DBType == "postgres" || c.DBType == "mysql") && c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required for DB_TYPE=%s", c.DBType)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: REQUEST_TIMEOUT must be positive")
	}
	return nil
}
