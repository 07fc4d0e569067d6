//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
)

func pgConnString(t *testing.T) string {
	t.Helper()
	host := envOrDefault("PARITY_TEST_PG_HOST", "localhost")
	port := envOrDefault("PARITY_TEST_PG_PORT", "25432")
	db := envOrDefault("PARITY_TEST_PG_DATABASE", "parity_test")
	user := envOrDefault("PARITY_TEST_PG_USER", "postgres")
	pass := envOrDefault("PARITY_TEST_PG_PASSWORD", "postgres")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, db)
}

func mongoURI(t *testing.T) string {
	t.Helper()
	return envOrDefault("PARITY_TEST_MONGO_URI", "mongodb://localhost:37017/?directConnection=true")
}

func mongoDatabase(t *testing.T) string {
	t.Helper()
	return envOrDefault("PARITY_TEST_MONGO_DATABASE", "parity_test")
}

func skipIfNoPostgres(t *testing.T) {
	t.Helper()
	if os.Getenv("PARITY_TEST_PG_HOST") == "" && os.Getenv("PARITY_TEST_PG_PORT") == "" {
		t.Skip("skipping: PARITY_TEST_PG_HOST/PORT not set")
	}
}

func skipIfNoMongo(t *testing.T) {
	t.Helper()
	if os.Getenv("PARITY_TEST_MONGO_URI") == "" {
		t.Skip("skipping: PARITY_TEST_MONGO_URI not set")
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// execSQL runs setup statements against the test database.
func execSQL(t *testing.T, stmts ...string) {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, pgConnString(t))
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	defer conn.Close(ctx)
	for _, s := range stmts {
		if _, err := conn.Exec(ctx, s); err != nil {
			t.Fatalf("executing %q: %v", s, err)
		}
	}
}
