// Package database opens the configured storage backend, applies migrations,
// and hands out the repositories built on it. A Store is created explicitly
// by Open and released by Close; there is no package-level connection.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql (goose)
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers "sqlite" driver for database/sql

	"github.com/pkordes/trip-planner/backend/internal/repo"
	"github.com/pkordes/trip-planner/backend/migrations"
)

// Supported values for Options.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures the storage backend.
type Options struct {
	// Driver is DriverSQLite or DriverPostgres.
	Driver string

	// SQLitePath is the database file for DriverSQLite. Its parent directory
	// is created if missing.
	SQLitePath string

	// DatabaseURL is the Postgres connection string for DriverPostgres.
	DatabaseURL string

	// Logger receives lifecycle messages. Defaults to slog.Default().
	Logger *slog.Logger

	// RepoOptions are passed to the trip repository.
	RepoOptions []repo.Option
}

// Store owns an open storage backend.
type Store struct {
	// Trips is the trip repository bound to this store.
	Trips repo.TripRepo

	ping   func(ctx context.Context) error
	close  func() error
	logger *slog.Logger
	driver string
}

// Open connects to the backend named by opts.Driver, verifies the connection,
// and applies all pending migrations. The caller must Close the Store.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	switch opts.Driver {
	case DriverSQLite, "":
		return openSQLite(ctx, opts)
	case DriverPostgres:
		return openPostgres(ctx, opts)
	}
	return nil, fmt.Errorf("database.Open: unknown driver %q", opts.Driver)
}

// Ping verifies the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the backend. It is safe to call more than once.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	err := s.close()
	s.close = nil
	s.logger.Info("database connection closed", "driver", s.driver)
	return err
}

func openSQLite(ctx context.Context, opts Options) (*Store, error) {
	if opts.SQLitePath == "" {
		return nil, errors.New("database.Open: sqlite path is required")
	}
	if dir := filepath.Dir(opts.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("database.Open: create data directory: %w", err)
		}
	}

	sqlDB, err := OpenSQLite(ctx, opts.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, sqlDB, goose.DialectSQLite3, migrations.SQLite()); err != nil {
		sqlDB.Close()
		return nil, err
	}

	opts.Logger.Info("database connection established", "driver", DriverSQLite, "path", opts.SQLitePath)
	return &Store{
		Trips:  repo.NewSQLiteTripRepo(sqlDB, opts.RepoOptions...),
		ping:   sqlDB.PingContext,
		close:  sqlDB.Close,
		logger: opts.Logger,
		driver: DriverSQLite,
	}, nil
}

// OpenSQLite opens a SQLite database file with the pragmas the trip
// repository relies on. A single connection serializes writers so concurrent
// requests never see SQLITE_BUSY.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("database.OpenSQLite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database.OpenSQLite: ping: %w", err)
	}
	return db, nil
}

func openPostgres(ctx context.Context, opts Options) (*Store, error) {
	if opts.DatabaseURL == "" {
		return nil, errors.New("database.Open: database url is required")
	}

	// goose needs database/sql; the repository uses the native pool.
	sqlDB, err := sql.Open("pgx", opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database.Open: open migration connection: %w", err)
	}
	err = Migrate(ctx, sqlDB, goose.DialectPostgres, migrations.Postgres())
	sqlDB.Close()
	if err != nil {
		return nil, err
	}

	// pgxpool.New does not open connections immediately; Ping does.
	pool, err := pgxpool.New(ctx, opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database.Open: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database.Open: ping: %w", err)
	}

	opts.Logger.Info("database connection established", "driver", DriverPostgres)
	return &Store{
		Trips: repo.NewPostgresTripRepo(pool, opts.RepoOptions...),
		ping:  pool.Ping,
		close: func() error {
			pool.Close()
			return nil
		},
		logger: opts.Logger,
		driver: DriverPostgres,
	}, nil
}

// Migrate applies all pending migrations in fsys to db.
func Migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, fsys fs.FS) error {
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("database.Migrate: create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("database.Migrate: run migrations: %w", err)
	}
	for _, r := range results {
		slog.InfoContext(ctx, "migration applied", "version", r.Source.Version, "path", r.Source.Path)
	}
	return nil
}
