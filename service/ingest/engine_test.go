package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solwatch/service/cache"
	"github.com/brojonat/solwatch/service/solana"
)

// fakeRPC is an in-memory stand-in for service/solana.Client, grounded
// in the spec's literal scenarios (cache hit/miss mix, legit-missing
// retry).
type fakeRPC struct {
	mu          sync.Mutex
	signatures  []solana.SignatureInfo
	txsBySig    map[string]solana.ParsedTransaction
	missingOnce map[string]bool // signatures that fail to resolve exactly once then succeed
}

func (f *fakeRPC) GetSignaturesPage(ctx context.Context, address string, limit int, before string) ([]solana.SignatureInfo, error) {
	return f.signatures, nil
}

func (f *fakeRPC) GetTransactionsBatch(ctx context.Context, signatures []string) ([]solana.ParsedTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []solana.ParsedTransaction
	for _, sig := range signatures {
		if f.missingOnce != nil && f.missingOnce[sig] {
			delete(f.missingOnce, sig) // resolves on next attempt
			continue
		}
		if tx, ok := f.txsBySig[sig]; ok {
			out = append(out, tx)
		}
	}
	return out, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]cache.Entry
}

func newFakeCache(seed map[string]cache.Entry) *fakeCache {
	if seed == nil {
		seed = map[string]cache.Entry{}
	}
	return &fakeCache{entries: seed}
}

func (f *fakeCache) Get(ctx context.Context, signatures []string) (map[string]cache.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]cache.Entry{}
	for _, s := range signatures {
		if e, ok := f.entries[s]; ok {
			out[s] = e
		}
	}
	return out, nil
}

func (f *fakeCache) Put(ctx context.Context, entries []cache.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		f.entries[e.Signature] = e
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIngest_CacheHitMissMixFetchesOnlyMisses(t *testing.T) {
	rpc := &fakeRPC{
		signatures: []solana.SignatureInfo{
			{Signature: "s1"}, {Signature: "s2"}, {Signature: "s3"},
		},
		txsBySig: map[string]solana.ParsedTransaction{
			"s3": {Signature: "s3", Timestamp: 100, FeePayer: "wallet1"},
		},
	}
	c := newFakeCache(map[string]cache.Entry{
		"s1": {Signature: "s1", Timestamp: 10},
		"s2": {Signature: "s2", Timestamp: 20},
	})
	e := NewEngine(rpc, c, nil, testLogger())

	var batches [][]solana.ParsedTransaction
	var mu sync.Mutex
	onBatch := func(b []solana.ParsedTransaction) error {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, b)
		return nil
	}

	_, err := e.Ingest(context.Background(), "wallet1", Config{}, onBatch, nil)
	require.NoError(t, err)

	require.Len(t, batches, 1)
	assert.Equal(t, "s3", batches[0][0].Signature)
}

func TestIngest_LegitMissingRetryResolvesAfterIndexingWait(t *testing.T) {
	rpc := &fakeRPC{
		signatures: []solana.SignatureInfo{
			{Signature: "s1"}, {Signature: "s2"}, {Signature: "s3"},
		},
		txsBySig: map[string]solana.ParsedTransaction{
			"s1": {Signature: "s1", Timestamp: 100, FeePayer: "wallet1"},
			"s2": {Signature: "s2", Timestamp: 200, FeePayer: "wallet1"},
			"s3": {Signature: "s3", Timestamp: 300, FeePayer: "wallet1"},
		},
		missingOnce: map[string]bool{"s3": true},
	}
	c := newFakeCache(nil)
	e := NewEngine(rpc, c, nil, testLogger())

	var allReceived []string
	var mu sync.Mutex
	onBatch := func(b []solana.ParsedTransaction) error {
		mu.Lock()
		defer mu.Unlock()
		for _, tx := range b {
			allReceived = append(allReceived, tx.Signature)
		}
		return nil
	}

	cfg := Config{EnableLegitMissingRetry: true, IndexingWaitMS: 1}
	_, err := e.Ingest(context.Background(), "wallet1", cfg, onBatch, nil)
	require.NoError(t, err)

	assert.Contains(t, allReceived, "s3")

	got, err := c.Get(context.Background(), []string{"s1", "s2", "s3"})
	require.NoError(t, err)
	assert.Len(t, got, 3, "cache must contain all three signatures after retry")
}

func TestIngest_NonStreamingFiltersByRelevanceAndSortsAscending(t *testing.T) {
	rpc := &fakeRPC{
		signatures: []solana.SignatureInfo{{Signature: "s1"}, {Signature: "s2"}},
		txsBySig: map[string]solana.ParsedTransaction{
			"s1": {Signature: "s1", Timestamp: 200, FeePayer: "wallet1"},
			"s2": {Signature: "s2", Timestamp: 100, FeePayer: "someone-else"},
		},
	}
	c := newFakeCache(nil)
	e := NewEngine(rpc, c, nil, testLogger())

	out, err := e.Ingest(context.Background(), "wallet1", Config{}, nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 1, "only the fee-payer-relevant tx should survive")
	assert.Equal(t, "s1", out[0].Signature)
}

func TestIngest_AppliesCapInRPCOrder(t *testing.T) {
	rpc := &fakeRPC{
		signatures: []solana.SignatureInfo{{Signature: "newest"}, {Signature: "middle"}, {Signature: "oldest"}},
		txsBySig: map[string]solana.ParsedTransaction{
			"newest": {Signature: "newest", Timestamp: 300, FeePayer: "wallet1"},
			"middle": {Signature: "middle", Timestamp: 200, FeePayer: "wallet1"},
		},
	}
	c := newFakeCache(nil)
	e := NewEngine(rpc, c, nil, testLogger())

	out, err := e.Ingest(context.Background(), "wallet1", Config{MaxSignatures: 2}, nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestIngest_AbortsOnNonRetryableError(t *testing.T) {
	rpc := &erroringRPC{err: fmt.Errorf("%w: bad request", solana.ErrNonRetryable)}
	c := newFakeCache(nil)
	e := NewEngine(rpc, c, nil, testLogger())

	_, err := e.Ingest(context.Background(), "wallet1", Config{}, nil, nil)
	assert.Error(t, err)
}

func TestIngest_OnBatchErrorAbortsIngestion(t *testing.T) {
	rpc := &fakeRPC{
		signatures: []solana.SignatureInfo{{Signature: "s1"}},
		txsBySig: map[string]solana.ParsedTransaction{
			"s1": {Signature: "s1", Timestamp: 100, FeePayer: "wallet1"},
		},
	}
	c := newFakeCache(nil)
	e := NewEngine(rpc, c, nil, testLogger())

	boom := errors.New("downstream sink failed")
	_, err := e.Ingest(context.Background(), "wallet1", Config{}, func(b []solana.ParsedTransaction) error {
		return boom
	}, nil)
	assert.ErrorIs(t, err, boom)
}

type erroringRPC struct{ err error }

func (e *erroringRPC) GetSignaturesPage(ctx context.Context, address string, limit int, before string) ([]solana.SignatureInfo, error) {
	return nil, e.err
}
func (e *erroringRPC) GetTransactionsBatch(ctx context.Context, signatures []string) ([]solana.ParsedTransaction, error) {
	return nil, e.err
}

func TestIngest_CancellationStopsFurtherDispatch(t *testing.T) {
	sigs := make([]solana.SignatureInfo, 0, 20)
	txs := map[string]solana.ParsedTransaction{}
	for i := 0; i < 20; i++ {
		sig := string(rune('a' + i))
		sigs = append(sigs, solana.SignatureInfo{Signature: sig})
		txs[sig] = solana.ParsedTransaction{Signature: sig, Timestamp: int64(i), FeePayer: "wallet1"}
	}
	rpc := &fakeRPC{signatures: sigs, txsBySig: txs}
	c := newFakeCache(nil)
	e := NewEngine(rpc, c, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled before the call

	out, err := e.Ingest(ctx, "wallet1", Config{ParseBatchLimit: 1, InnerConcurrency: 1}, nil, nil)
	// Phase 1 itself checks ctx.Err() and returns it.
	assert.Error(t, err)
	assert.Empty(t, out)
}
