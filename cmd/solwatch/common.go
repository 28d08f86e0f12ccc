package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brojonat/solwatch/service/db"
	"github.com/brojonat/solwatch/service/ratelimit"
	"github.com/brojonat/solwatch/service/solana"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

// getStore connects to the database and returns a Store plus a closer.
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := db.NewStore(pool, nil)
	closer := func() { pool.Close() }
	return store, closer, nil
}

// getSolanaClient builds a rate-limited RPC client from the CLI's global flags.
func getSolanaClient(c *cli.Context) (*solana.Client, error) {
	rpcURL := c.String("solana-rpc-url")
	if rpcURL == "" {
		return nil, fmt.Errorf("solana-rpc-url is required (set SOLANA_RPC_URL env var or use --solana-rpc-url)")
	}
	limiter := ratelimit.New(10)
	return solana.NewClient(rpcURL, c.String("helius-base-url"), c.String("helius-api-key"), 30*time.Second, limiter, nil, slog.Default()), nil
}

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}

func formatOptionalInt64(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

// timeRangeFlags parses the --since/--until RFC3339 flags shared by
// several commands into a db.TimeRange.
type timeRangeFlags struct {
	from *int64
	to   *int64
}

func parseTimeRangeFlags(c *cli.Context) (*timeRangeFlags, error) {
	tr := &timeRangeFlags{}
	if s := c.String("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid --since (use RFC3339): %w", err)
		}
		ts := t.Unix()
		tr.from = &ts
	}
	if s := c.String("until"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid --until (use RFC3339): %w", err)
		}
		ts := t.Unix()
		tr.to = &ts
	}
	return tr, nil
}

func (tr *timeRangeFlags) toDBRange() *db.TimeRange {
	if tr.from == nil && tr.to == nil {
		return nil
	}
	return &db.TimeRange{From: tr.from, To: tr.to}
}
