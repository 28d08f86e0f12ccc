// Package cache implements the signature-keyed presence store (C3): a
// lightweight record of "we have already persisted or ruled out this
// signature", backed by Postgres so it survives process restarts and is
// shared across every wallet sync.
package cache

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one cache record: the signature's block time (as observed by
// RPC) and when this process last confirmed/refreshed it.
type Entry struct {
	Signature string
	Timestamp int64
	FetchedAt time.Time
}

// Cache is a Postgres-backed implementation of the C3 presence store.
type Cache struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Cache {
	return &Cache{pool: pool}
}

// Get returns the cache entries present for the given signatures.
// Signatures absent from the cache are simply absent from the returned
// map — callers must not assume every input key is present.
func (c *Cache) Get(ctx context.Context, signatures []string) (map[string]Entry, error) {
	out := make(map[string]Entry, len(signatures))
	if len(signatures) == 0 {
		return out, nil
	}

	rows, err := c.pool.Query(ctx,
		`SELECT signature, timestamp, fetched_at FROM helius_transaction_cache WHERE signature = ANY($1)`,
		signatures,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Signature, &e.Timestamp, &e.FetchedAt); err != nil {
			return nil, err
		}
		out[e.Signature] = e
	}
	return out, rows.Err()
}

// Put idempotently upserts entries. A collision on signature overwrites
// fetched_at but preserves the originally recorded timestamp, matching
// the contract: a cache entry's timestamp never regresses to a later
// observation once first written.
func (c *Cache) Put(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	now := time.Now()
	for _, e := range entries {
		fetchedAt := e.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = now
		}
		batch.Queue(
			`INSERT INTO helius_transaction_cache (signature, timestamp, fetched_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (signature) DO UPDATE SET fetched_at = EXCLUDED.fetched_at`,
			e.Signature, e.Timestamp, fetchedAt,
		)
	}

	br := c.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
