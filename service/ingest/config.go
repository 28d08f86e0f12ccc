// Package ingest implements the ingestion engine (C6): the orchestrator
// that turns a wallet address into a stream (or buffered list) of parsed
// transactions, coordinating the rate limiter, RPC/Helius client,
// signature cache, and a caller-supplied sink.
package ingest

import "github.com/brojonat/solwatch/service/solana"

// Config tunes one Ingest call. Zero values fall back to the defaults
// documented per field.
type Config struct {
	// ParseBatchLimit is the size of each getTransactionsBatch call.
	// Default 100, hard max 100.
	ParseBatchLimit int

	// MaxSignatures hard-caps the total signatures considered.
	// Zero means unbounded.
	MaxSignatures int

	// StopAtSignature, if set, stops signature paging as soon as this
	// signature is encountered (incremental sync cursor).
	StopAtSignature string

	// NewestProcessedTimestamp is a strict-greater lower bound applied
	// during post-processing. Ignored when StopAtSignature is set.
	NewestProcessedTimestamp *int64

	// UntilTimestamp is an inclusive upper bound applied during
	// post-processing.
	UntilTimestamp *int64

	// InnerConcurrency is the number of parallel getTransactionsBatch
	// calls per outer chunk. Default 3, clamped to [1,6].
	InnerConcurrency int

	// ProcessCachedSignatures re-fetches and re-streams cached
	// signatures (phase 2b), enabling downstream reprocessing.
	ProcessCachedSignatures bool

	// IndexingWaitMS is how long phase 2c waits before retrying
	// legit-missing signatures. Default 1500.
	IndexingWaitMS int

	// MicroBatchSize is the batch size used for phase 2c/3 retries.
	// Default 10.
	MicroBatchSize int

	// EnableReconciliation turns on phase 3.
	EnableReconciliation bool

	// EnableLegitMissingRetry turns on phase 2c.
	EnableLegitMissingRetry bool

	// Diagnostics, if non-nil, receives per-run diagnostic manifests.
	Diagnostics *DiagnosticsWriter
}

func (c Config) withDefaults() Config {
	if c.ParseBatchLimit <= 0 || c.ParseBatchLimit > 100 {
		c.ParseBatchLimit = 100
	}
	if c.InnerConcurrency <= 0 {
		c.InnerConcurrency = 3
	}
	if c.InnerConcurrency > 6 {
		c.InnerConcurrency = 6
	}
	if c.IndexingWaitMS <= 0 {
		c.IndexingWaitMS = 1500
	}
	if c.MicroBatchSize <= 0 {
		c.MicroBatchSize = 10
	}
	return c
}

// BatchFunc streams a decoded batch to the caller. If it returns an
// error, the ingestion aborts and propagates that error.
type BatchFunc func(batch []solana.ParsedTransaction) error

// ProgressFunc is invoked at no finer than 25% granularity, based on
// signatures processed (not successful fetches).
type ProgressFunc func(percent float64)
