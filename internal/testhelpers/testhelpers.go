// Package testhelpers provides database fixtures for integration tests.
package testhelpers

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// DatabaseURLEnv names the variable holding the integration test database.
const DatabaseURLEnv = "TEST_DATABASE_URL"

// databaseURL returns the test database URL, reading a .env file from the
// module root when present.
func databaseURL() string {
	_ = godotenv.Load("../../.env")
	return os.Getenv(DatabaseURLEnv)
}

// SkipIfNoDatabase skips the test when no test database is configured or
// reachable.
func SkipIfNoDatabase(tb testing.TB) {
	tb.Helper()

	url := databaseURL()
	if url == "" {
		tb.Skip(DatabaseURLEnv + " not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		tb.Skip("database not available:", err)
	}
	conn.Close(ctx)
}

// SetupTestPool returns a pool whose connections use a fresh schema, so each
// test sees empty tables. The schema is dropped when the test ends.
func SetupTestPool(tb testing.TB) *pgxpool.Pool {
	tb.Helper()
	SkipIfNoDatabase(tb)

	ctx := context.Background()
	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	admin, err := pgx.Connect(ctx, databaseURL())
	if err != nil {
		tb.Fatalf("connect: %v", err)
	}
	defer admin.Close(ctx)

	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize()); err != nil {
		tb.Fatalf("create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(databaseURL())
	if err != nil {
		tb.Fatalf("parse database URL: %v", err)
	}
	cfg.MaxConns = 4
	cfg.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		tb.Fatalf("create pool: %v", err)
	}

	tb.Cleanup(func() {
		pool.Close()

		conn, err := pgx.Connect(context.Background(), databaseURL())
		if err != nil {
			tb.Logf("drop schema %s: %v", schema, err)
			return
		}
		defer conn.Close(context.Background())
		if _, err := conn.Exec(context.Background(), "DROP SCHEMA "+pgx.Identifier{schema}.Sanitize()+" CASCADE"); err != nil {
			tb.Logf("drop schema %s: %v", schema, err)
		}
	})

	return pool
}
