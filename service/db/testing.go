package db

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestStore wraps a Store with test cleanup functionality.
type TestStore struct {
	*Store
	pool *pgxpool.Pool
}

// NewTestStore connects to TEST_DATABASE_URL and skips the calling test
// if it is unset, rather than failing the whole suite for developers
// without a local Postgres.
func NewTestStore(t *testing.T) *TestStore {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping db integration test")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("failed to ping test database: %v", err)
	}

	return &TestStore{Store: NewStore(pool, nil), pool: pool}
}

// Close closes the underlying connection pool.
func (ts *TestStore) Close() {
	ts.pool.Close()
}

// Cleanup truncates all tables this package owns.
func (ts *TestStore) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := ts.pool.Exec(ctx, "TRUNCATE TABLE swap_analysis_input, helius_transaction_cache, wallet CASCADE")
	if err != nil {
		t.Fatalf("failed to cleanup test database: %v", err)
	}
}
