package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/brojonat/solwatch/service/cache"
	"github.com/brojonat/solwatch/service/metrics"
	"github.com/brojonat/solwatch/service/solana"
)

// RPCAPI is the subset of service/solana's Client this engine depends
// on, narrowed to an interface so tests can substitute a fake.
type RPCAPI interface {
	GetSignaturesPage(ctx context.Context, address string, limit int, before string) ([]solana.SignatureInfo, error)
	GetTransactionsBatch(ctx context.Context, signatures []string) ([]solana.ParsedTransaction, error)
}

// CacheAPI is the subset of service/cache's Cache this engine depends on.
type CacheAPI interface {
	Get(ctx context.Context, signatures []string) (map[string]cache.Entry, error)
	Put(ctx context.Context, entries []cache.Entry) error
}

// Engine is the ingestion orchestrator (C6): it wires C1 (via the RPC
// client), C2 (RPCAPI), and C3 (CacheAPI) together across the phases
// described in the component design.
type Engine struct {
	rpc     RPCAPI
	cache   CacheAPI
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewEngine constructs an Engine. m may be nil.
func NewEngine(rpc RPCAPI, cacheAPI CacheAPI, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{rpc: rpc, cache: cacheAPI, metrics: m, logger: logger}
}

const sigPageLimit = 1000

// Ingest is the C6 entry point. With onBatch supplied, every fetched
// batch streams through it and Ingest returns nil (the streaming path
// never materializes the full result). Without onBatch, Ingest buffers
// everything, applies the post-processing filters, sorts ascending by
// timestamp, and returns the result.
func (e *Engine) Ingest(ctx context.Context, address string, cfg Config, onBatch BatchFunc, onProgress ProgressFunc) ([]solana.ParsedTransaction, error) {
	cfg = cfg.withDefaults()
	runStart := time.Now()
	runTimestamp := runStart.Unix()

	status := "success"
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordIngestRun(status, time.Since(runStart))
		}
	}()

	// Phase 1: signature discovery.
	sigInfos, err := e.discoverSignatures(ctx, address, cfg)
	if err != nil {
		status = "error"
		return nil, fmt.Errorf("phase 1 signature discovery: %w", err)
	}
	if cfg.Diagnostics != nil {
		cfg.Diagnostics.WriteRPCManifest("precap", address, runTimestamp, signatureStrings(sigInfos))
	}

	// Cap application: truncate in RPC order (newest-first), preserving
	// recency even when blockTime is null.
	sigInfos = applyCap(sigInfos, cfg.MaxSignatures)
	if cfg.Diagnostics != nil {
		cfg.Diagnostics.WriteRPCManifest("postcap", address, runTimestamp, signatureStrings(sigInfos))
	}

	// Exclude failed on-chain transactions from any further processing;
	// they are never candidates for persistence or analysis.
	liveSigInfos := make([]solana.SignatureInfo, 0, len(sigInfos))
	for _, s := range sigInfos {
		if !s.Failed() {
			liveSigInfos = append(liveSigInfos, s)
		}
	}

	// Cache diff.
	toFetch, cachedList, err := e.cacheDiff(ctx, liveSigInfos)
	if err != nil {
		status = "error"
		return nil, fmt.Errorf("cache diff: %w", err)
	}
	if e.metrics != nil {
		e.metrics.RecordCacheDiff(len(cachedList), len(toFetch))
	}

	totalForProgress := len(toFetch)
	if cfg.ProcessCachedSignatures {
		totalForProgress += len(cachedList)
	}
	progress := newProgressTracker(totalForProgress, onProgress)

	var buffered []solana.ParsedTransaction
	sink := onBatch
	if sink == nil {
		sink = func(batch []solana.ParsedTransaction) error {
			buffered = append(buffered, batch...)
			return nil
		}
	}

	// Phase 2: parallel detail fetch over the cache-miss set.
	result, err := e.fetchDetails(ctx, toFetch, cfg.ParseBatchLimit, cfg.InnerConcurrency, sink, progress)
	if err != nil {
		status = "error"
		return nil, fmt.Errorf("phase 2 detail fetch: %w", err)
	}
	if e.metrics != nil {
		e.metrics.RecordFailedMissing(len(result.failedMissing))
	}

	// Phase 2b: optionally reprocess the cached set through the same
	// shape, streaming results again.
	if cfg.ProcessCachedSignatures && len(cachedList) > 0 {
		reprocessed, err := e.fetchDetails(ctx, cachedList, cfg.ParseBatchLimit, cfg.InnerConcurrency, sink, progress)
		if err != nil {
			status = "error"
			return nil, fmt.Errorf("phase 2b cached reprocess: %w", err)
		}
		result.legitMissing = append(result.legitMissing, reprocessed.legitMissing...)
	}

	// Phase 2c: legit-missing retry after an indexing grace period.
	if cfg.EnableLegitMissingRetry && len(result.legitMissing) > 0 {
		if e.metrics != nil {
			e.metrics.RecordLegitMissing(len(result.legitMissing))
		}
		select {
		case <-time.After(time.Duration(cfg.IndexingWaitMS) * time.Millisecond):
		case <-ctx.Done():
			status = "cancelled"
			return finalize(buffered, cfg, address), nil
		}

		retrySigInfos := filterSigInfos(liveSigInfos, result.legitMissing)
		retryResult, err := e.fetchDetails(ctx, retrySigInfos, cfg.MicroBatchSize, cfg.InnerConcurrency, sink, nil)
		if err != nil {
			status = "error"
			return nil, fmt.Errorf("phase 2c legit-missing retry: %w", err)
		}
		result.legitMissing = retryResult.legitMissing

		if cfg.Diagnostics != nil {
			cfg.Diagnostics.WriteLegitMissing(address, runTimestamp, result.legitMissing)
		}
	}

	// Phase 3: reconciliation.
	if cfg.EnableReconciliation {
		residual, rerr := e.reconcile(ctx, address, liveSigInfos, cfg, sink)
		if rerr != nil {
			status = "error"
			return nil, fmt.Errorf("phase 3 reconciliation: %w", rerr)
		}
		if cfg.Diagnostics != nil {
			cfg.Diagnostics.WriteReconcile(address, runTimestamp, len(liveSigInfos), len(liveSigInfos)-len(residual), residual)
		}
	}

	if onProgress != nil {
		onProgress(100)
	}

	if onBatch != nil {
		return nil, nil
	}
	return finalize(buffered, cfg, address), nil
}

// discoverSignatures implements Phase 1: pages getSignaturesForAddress
// until a short page, stopAtSignature, or maxSignatures is reached.
func (e *Engine) discoverSignatures(ctx context.Context, address string, cfg Config) ([]solana.SignatureInfo, error) {
	var all []solana.SignatureInfo
	before := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := e.rpc.GetSignaturesPage(ctx, address, sigPageLimit, before)
		if err != nil {
			if errors.Is(err, solana.ErrNonRetryable) {
				return nil, err
			}
			e.logger.WarnContext(ctx, "phase 1 retries exhausted, returning empty result without partial progress",
				"address", address, "err", err)
			return nil, nil
		}

		all = append(all, page...)

		stopFound := false
		if cfg.StopAtSignature != "" {
			for _, s := range page {
				if s.Signature == cfg.StopAtSignature {
					stopFound = true
					break
				}
			}
		}

		if len(page) < sigPageLimit || stopFound {
			break
		}
		if cfg.MaxSignatures > 0 && len(all) >= cfg.MaxSignatures {
			break
		}
		before = page[len(page)-1].Signature
	}

	if cfg.StopAtSignature != "" {
		for i, s := range all {
			if s.Signature == cfg.StopAtSignature {
				all = all[:i]
				break
			}
		}
	}

	return all, nil
}

func applyCap(sigInfos []solana.SignatureInfo, max int) []solana.SignatureInfo {
	if max > 0 && len(sigInfos) > max {
		return sigInfos[:max]
	}
	return sigInfos
}

func (e *Engine) cacheDiff(ctx context.Context, sigInfos []solana.SignatureInfo) (toFetch, cached []solana.SignatureInfo, err error) {
	sigStrs := make([]string, len(sigInfos))
	for i, s := range sigInfos {
		sigStrs[i] = s.Signature
	}
	present, err := e.cache.Get(ctx, sigStrs)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range sigInfos {
		if _, ok := present[s.Signature]; ok {
			cached = append(cached, s)
		} else {
			toFetch = append(toFetch, s)
		}
	}
	return toFetch, cached, nil
}

type fetchResult struct {
	legitMissing  []string
	failedMissing []string
}

// fetchDetails implements the shared parallel-batch-fetch shape used by
// phases 2, 2b, 2c, and 3: chunk sigInfos into batches of batchSize,
// process up to concurrency batches at a time (an outer chunk), gather
// all-settled, stream each successful batch through sink, and persist to
// cache. A single failed batch does not abort the chunk; its signatures
// become failed-missing for that batch. Cancellation stops dispatch of
// further chunks; in-flight work completes.
func (e *Engine) fetchDetails(ctx context.Context, sigInfos []solana.SignatureInfo, batchSize, concurrency int, sink BatchFunc, progress *progressTracker) (fetchResult, error) {
	errBySig := make(map[string]bool, len(sigInfos))
	for _, s := range sigInfos {
		errBySig[s.Signature] = s.Failed()
	}

	batches := chunkSignatures(sigInfos, batchSize)

	var mu sync.Mutex
	result := fetchResult{}
	var sinkErr error

	for chunkStart := 0; chunkStart < len(batches); chunkStart += concurrency {
		if ctx.Err() != nil {
			break // cancellation: stop dispatching further chunks
		}
		chunkEnd := chunkStart + concurrency
		if chunkEnd > len(batches) {
			chunkEnd = len(batches)
		}
		chunk := batches[chunkStart:chunkEnd]

		var wg sync.WaitGroup
		for _, batch := range chunk {
			wg.Add(1)
			go func(batch []string) {
				defer wg.Done()
				batchStart := time.Now()
				parsed, err := e.rpc.GetTransactionsBatch(ctx, batch)
				if e.metrics != nil {
					e.metrics.RecordIngestBatch("fetch", time.Since(batchStart))
				}
				if err != nil {
					e.logger.WarnContext(ctx, "batch fetch failed, classifying as failed-missing", "err", err, "batch_size", len(batch))
					mu.Lock()
					result.failedMissing = append(result.failedMissing, batch...)
					mu.Unlock()
					return
				}

				received := make(map[string]bool, len(parsed))
				entries := make([]cache.Entry, 0, len(parsed))
				for _, p := range parsed {
					received[p.Signature] = true
					entries = append(entries, cache.Entry{Signature: p.Signature, Timestamp: p.Timestamp, FetchedAt: time.Now()})
				}
				if len(entries) > 0 {
					if err := e.cache.Put(ctx, entries); err != nil {
						e.logger.ErrorContext(ctx, "failed to persist cache entries", "err", err)
					}
				}

				if sink != nil && len(parsed) > 0 {
					if err := sink(parsed); err != nil {
						mu.Lock()
						if sinkErr == nil {
							sinkErr = err
						}
						mu.Unlock()
						return
					}
				}

				mu.Lock()
				for _, sig := range batch {
					if received[sig] {
						continue
					}
					if errBySig[sig] {
						result.failedMissing = append(result.failedMissing, sig)
					} else {
						result.legitMissing = append(result.legitMissing, sig)
					}
				}
				mu.Unlock()

				if progress != nil {
					progress.advance(len(batch))
				}
			}(batch)
		}
		wg.Wait()

		if sinkErr != nil {
			return result, sinkErr
		}
	}

	return result, nil
}

// reconcile implements Phase 3: verify the cache now contains every live
// signature; if any gap remains, run one final micro-fetch pass.
func (e *Engine) reconcile(ctx context.Context, address string, liveSigInfos []solana.SignatureInfo, cfg Config, sink BatchFunc) ([]string, error) {
	sigStrs := make([]string, len(liveSigInfos))
	for i, s := range liveSigInfos {
		sigStrs[i] = s.Signature
	}
	present, err := e.cache.Get(ctx, sigStrs)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, s := range sigStrs {
		if _, ok := present[s]; !ok {
			missing = append(missing, s)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	retrySigInfos := filterSigInfos(liveSigInfos, missing)
	result, err := e.fetchDetails(ctx, retrySigInfos, cfg.MicroBatchSize, cfg.InnerConcurrency, sink, nil)
	if err != nil {
		return nil, err
	}

	residual := append(append([]string{}, result.legitMissing...), result.failedMissing...)
	return residual, nil
}

func chunkSignatures(sigInfos []solana.SignatureInfo, batchSize int) [][]string {
	var batches [][]string
	var cur []string
	for _, s := range sigInfos {
		cur = append(cur, s.Signature)
		if len(cur) == batchSize {
			batches = append(batches, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

func filterSigInfos(all []solana.SignatureInfo, keep []string) []solana.SignatureInfo {
	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepSet[k] = true
	}
	var out []solana.SignatureInfo
	for _, s := range all {
		if keepSet[s.Signature] {
			out = append(out, s)
		}
	}
	return out
}

func signatureStrings(sigInfos []solana.SignatureInfo) []string {
	out := make([]string, len(sigInfos))
	for i, s := range sigInfos {
		out[i] = s.Signature
	}
	return out
}

// progressTracker invokes onProgress at no finer than 25% granularity,
// based on signatures processed.
type progressTracker struct {
	mu        sync.Mutex
	total     int
	processed int
	lastTier  int
	onProgress ProgressFunc
}

func newProgressTracker(total int, onProgress ProgressFunc) *progressTracker {
	if onProgress == nil || total == 0 {
		return nil
	}
	return &progressTracker{total: total, onProgress: onProgress}
}

func (p *progressTracker) advance(n int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed += n
	percent := float64(p.processed) / float64(p.total) * 100
	tier := int(percent / 25)
	if tier > p.lastTier {
		p.lastTier = tier
		reported := float64(tier) * 25
		if reported > 100 {
			reported = 100
		}
		p.onProgress(reported)
	}
}

// finalize applies the post-processing filters (non-streaming path
// only): newestProcessedTimestamp, untilTimestamp, address relevance,
// then sorts ascending by timestamp.
func finalize(buffered []solana.ParsedTransaction, cfg Config, address string) []solana.ParsedTransaction {
	out := make([]solana.ParsedTransaction, 0, len(buffered))
	for _, tx := range buffered {
		if cfg.NewestProcessedTimestamp != nil && cfg.StopAtSignature == "" {
			if tx.Timestamp <= *cfg.NewestProcessedTimestamp {
				continue
			}
		}
		if cfg.UntilTimestamp != nil && tx.Timestamp > *cfg.UntilTimestamp {
			continue
		}
		if !isRelevant(tx, address) {
			continue
		}
		out = append(out, tx)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

func isRelevant(tx solana.ParsedTransaction, address string) bool {
	if tx.FeePayer == address {
		return true
	}
	for _, tt := range tx.TokenTransfers {
		if tt.FromUserAccount == address || tt.ToUserAccount == address {
			return true
		}
	}
	for _, nt := range tx.NativeTransfers {
		if nt.FromUserAccount == address || nt.ToUserAccount == address {
			return true
		}
	}
	for _, ad := range tx.AccountData {
		if ad.Account != address {
			continue
		}
		if ad.NativeBalanceChange != 0 {
			return true
		}
		for _, tbc := range ad.TokenBalanceChanges {
			if tbc.RawTokenAmount != 0 {
				return true
			}
		}
	}
	if tx.Events != nil && tx.Events.Swap != nil {
		for _, leg := range tx.Events.Swap.TokenInputs {
			if leg.UserAccount == address {
				return true
			}
		}
		for _, leg := range tx.Events.Swap.TokenOutputs {
			if leg.UserAccount == address {
				return true
			}
		}
	}
	return false
}
