// internal/sqlstore/db.go
//
// Database helpers for the hangman server.
// Responsibilities:
//   - Opening the configured backend with safe defaults
//     (SQLite: WAL, busy timeout, foreign keys, immediate transactions;
//      MySQL: parseTime, multi statements, found rows).
//   - Applying embedded migrations for the backend's dialect
//     (idempotent, recorded in _migrations).
//
// Supported backends:
//   - "sqlite"       github.com/mattn/go-sqlite3 (cgo)
//   - "sqlite-pure"  modernc.org/sqlite (pure Go)
//   - "postgres"     github.com/lib/pq
//   - "mysql"        github.com/go-sql-driver/mysql

package sqlstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

func init() {
	// modernc registers as "sqlite", which sqlx does not know about.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Options selects and locates the backend.
type Options struct {
	Type string // sqlite | sqlite-pure | postgres | mysql
	Path string // SQLite database file
	URL  string // PostgreSQL / MySQL DSN
}

// dialect captures the SQL differences between backends.
type dialect struct {
	name      string // migrations directory
	driver    string // database/sql driver name
	random    string // random ordering function
	lockRow   string // suffix locking a selected row inside a transaction
	claimRow  string // like lockRow, but passes over rows other transactions hold
	returning bool   // INSERT ... RETURNING id is supported
	dsn       func(o Options) (string, error)
}

var dialects = map[string]*dialect{
	"sqlite": {
		name: "sqlite", driver: "sqlite3", random: "RANDOM()", returning: true,
		dsn: func(o Options) (string, error) {
			if err := ensureDir(o.Path); err != nil {
				return "", err
			}
			return o.Path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate", nil
		},
	},
	"sqlite-pure": {
		name: "sqlite", driver: "sqlite", random: "RANDOM()", returning: true,
		dsn: func(o Options) (string, error) {
			if err := ensureDir(o.Path); err != nil {
				return "", err
			}
			return "file:" + o.Path +
				"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate", nil
		},
	},
	"postgres": {
		name: "postgres", driver: "postgres", random: "RANDOM()", returning: true,
		lockRow: " FOR UPDATE", claimRow: " FOR UPDATE SKIP LOCKED",
		dsn: func(o Options) (string, error) {
			if o.URL == "" {
				return "", errors.New("postgres: DATABASE_URL is required")
			}
			return o.URL, nil
		},
	},
	"mysql": {
		name: "mysql", driver: "mysql", random: "RAND()",
		lockRow: " FOR UPDATE", claimRow: " FOR UPDATE SKIP LOCKED",
		dsn: func(o Options) (string, error) {
			if o.URL == "" {
				return "", errors.New("mysql: DATABASE_URL is required")
			}
			cfg, err := mysql.ParseDSN(o.URL)
			if err != nil {
				return "", fmt.Errorf("mysql: parse dsn: %w", err)
			}
			cfg.ParseTime = true
			cfg.MultiStatements = true // migrations are multi-statement scripts
			cfg.ClientFoundRows = true // UPDATE reports matched rows, not changed rows
			return cfg.FormatDSN(), nil
		},
	},
}

// Open connects to the backend described by o and applies migrations.
func Open(ctx context.Context, o Options) (*Store, error) {
	d, ok := dialects[strings.ToLower(o.Type)]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %q", o.Type)
	}
	dsn, err := d.dsn(o)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.Type, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", o.Type, err)
	}
	sub, err := fs.Sub(migrationsFS, path.Join("migrations", d.name))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(ctx, db, sub); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return newStore(db, d), nil
}

// ensureDir creates the parent directory of a relative DSN like ./data/app.db.
func ensureDir(dsn string) error {
	if dsn == "" {
		return errors.New("sqlite: DB_PATH is required")
	}
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return nil
}

// migrate applies the *.sql files in fsys that _migrations does not list yet,
// in lexical order. Each file runs in its own transaction together with the
// row recording it, so a failing script leaves no trace and is retried on the
// next start.
func migrate(ctx context.Context, db *sqlx.DB, fsys fs.FS) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name VARCHAR(255) PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}
	var applied []string
	if err := sqlx.SelectContext(ctx, db, &applied, `SELECT name FROM _migrations`); err != nil {
		return fmt.Errorf("list applied: %w", err)
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	slices.Sort(files)

	for _, name := range files {
		if slices.Contains(applied, name) {
			continue
		}
		script, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := applyMigration(ctx, db, name, string(script)); err != nil {
			return err
		}
		log.Info().Str("migration", name).Msg("applied")
	}
	return nil
}

func applyMigration(ctx context.Context, db *sqlx.DB, name, script string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("apply %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO _migrations (name) VALUES (?)`), name); err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}
