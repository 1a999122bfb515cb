// Package testutil provides shared helpers for integration tests.
// SQLite helpers always run against a throwaway file; Postgres helpers skip
// automatically when TEST_DATABASE_URL is not set.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/pkordes/trip-planner/backend/internal/database"
	"github.com/pkordes/trip-planner/backend/migrations"
)

// NewSQLiteDB opens a fresh SQLite database in the test's temp directory and
// applies all migrations. Every call returns an isolated, empty database.
// The connection is closed automatically when the test finishes.
func NewSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trips.db")
	db, err := database.OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("testutil.NewSQLiteDB: open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(context.Background(), db, goose.DialectSQLite3, migrations.SQLite()); err != nil {
		t.Fatalf("testutil.NewSQLiteDB: migrate: %v", err)
	}
	return db
}

// NewPool opens a *pgxpool.Pool connected to the database specified by the
// TEST_DATABASE_URL environment variable.
//
// The test is skipped automatically if TEST_DATABASE_URL is not set.
// The pool is closed automatically when the test (and all its subtests) finish.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := requireDSN(t)

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

// NewPostgresSQLDB opens a *sql.DB connected to TEST_DATABASE_URL using the
// pgx database/sql driver, for driving goose directly.
// The connection is closed automatically when the test finishes.
func NewPostgresSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewPostgresSQLDB: open: %v", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		t.Fatalf("testutil.NewPostgresSQLDB: ping: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// MigratePostgres applies the Postgres migrations to dsn and panics on any
// error. Use this in TestMain functions where no *testing.T is available.
func MigratePostgres(dsn string) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		panic("testutil.MigratePostgres: open: " + err.Error())
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db, goose.DialectPostgres, migrations.Postgres()); err != nil {
		panic("testutil.MigratePostgres: " + err.Error())
	}
}

// PostgresDSN returns TEST_DATABASE_URL, or "" when Postgres tests are off.
func PostgresDSN() string {
	return os.Getenv("TEST_DATABASE_URL")
}

// requireDSN returns the TEST_DATABASE_URL environment variable value,
// skipping the test if it is not set.
func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := PostgresDSN()
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}
	return dsn
}
