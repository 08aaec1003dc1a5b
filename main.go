// main.go
//
// Entry point for the hangman Go server.
// Responsibilities:
//   - Load .env and typed configuration.
//   - Configure logging and opt-in tracing.
//   - Open the configured store and seed the word corpus.
//   - Serve HTTP until interrupted, then shut down gracefully.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/hangman/apps/go-server/internal/config"
	"github.com/robalobadob/hangman/apps/go-server/internal/httpserver"
	"github.com/robalobadob/hangman/apps/go-server/internal/service"
	"github.com/robalobadob/hangman/apps/go-server/internal/sqlstore"
	"github.com/robalobadob/hangman/apps/go-server/internal/store"
	"github.com/robalobadob/hangman/apps/go-server/internal/telemetry"
	"github.com/robalobadob/hangman/apps/go-server/internal/words"
)

const shutdownGrace = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: "hangman-go",
		Endpoint:    cfg.OTelEndpoint,
		Enabled:     cfg.OTelEnabled,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("flush traces")
		}
	}()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.SeedWords {
		corpus, err := words.Load(cfg.WordsFile)
		if err != nil {
			return err
		}
		added, err := words.Seed(ctx, st.Words(), corpus)
		if err != nil {
			return err
		}
		log.Info().Int("corpus", len(corpus)).Int("added", added).Msg("word corpus seeded")
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpserver.New(service.New(st), httpserver.Options{
			ClientOrigin:   cfg.ClientOrigin,
			RequestTimeout: cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("db", cfg.DBType).Msg("starting go-server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// openStore picks the backend named by DB_TYPE.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.DBType == "memory" {
		log.Warn().Msg("using in-memory store; data is lost on exit")
		return store.NewMemoryStore(), nil
	}
	return sqlstore.Open(ctx, sqlstore.Options{
		Type: cfg.DBType,
		Path: cfg.DBPath,
		URL:  cfg.DatabaseURL,
	})
}
