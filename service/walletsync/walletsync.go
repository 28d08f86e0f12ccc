// Package walletsync implements the wallet sync service (C7): per-wallet
// cursor bookkeeping and the incremental-vs-full fetch decision that
// drives C6 on behalf of one tracked wallet.
package walletsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solwatch/service/db"
	"github.com/brojonat/solwatch/service/ingest"
	"github.com/brojonat/solwatch/service/mapper"
	"github.com/brojonat/solwatch/service/solana"
)

// WalletStore is the subset of service/db.Store this package depends on.
type WalletStore interface {
	GetWallet(ctx context.Context, address string) (*db.Wallet, error)
	UpsertWallet(ctx context.Context, address string, pollInterval time.Duration) (*db.Wallet, error)
	AdvanceCursor(ctx context.Context, address string, newestSignature string, newestTimestamp int64) error
	Save(ctx context.Context, records []db.SwapAnalysisInput) (int, error)
}

// Engine is the subset of service/ingest.Engine this package depends on.
type Engine interface {
	Ingest(ctx context.Context, address string, cfg ingest.Config, onBatch ingest.BatchFunc, onProgress ingest.ProgressFunc) ([]solana.ParsedTransaction, error)
}

// Options tunes one syncWallet call.
type Options struct {
	// SmartFetch enables incremental sync via stopAtSignature when a
	// cursor already exists. If false, always does a full fetch.
	SmartFetch bool
	// TargetTxCount sizes the full-fetch cap: max(targetTxCount*1.5, minFullFetchCap).
	TargetTxCount   int
	MinFullFetchCap int
	OnBatch         func(batch []solana.ParsedTransaction)
	// OnRecords, if set, is invoked with each batch's persisted swap
	// records immediately after they are saved (e.g. for NATS fanout).
	OnRecords func(records []db.SwapAnalysisInput)
}

// Service orchestrates wallet syncs.
type Service struct {
	store  WalletStore
	engine Engine
	logger *slog.Logger
}

// New constructs a Service.
func New(store WalletStore, engine Engine, logger *slog.Logger) *Service {
	return &Service{store: store, engine: engine, logger: logger}
}

// SyncResult summarizes one syncWallet call.
type SyncResult struct {
	WalletAddress    string
	RecordsPersisted int
	Incremental      bool
}

// SyncWallet loads the wallet's cursor, decides incremental vs full
// fetch, drives C6, persists via C4 -> C5 streamed through onBatch, and
// advances the cursor on success.
func (s *Service) SyncWallet(ctx context.Context, address string, opts Options) (*SyncResult, error) {
	wallet, err := s.store.GetWallet(ctx, address)
	if err != nil {
		wallet, err = s.store.UpsertWallet(ctx, address, 0)
		if err != nil {
			return nil, fmt.Errorf("registering wallet %s: %w", address, err)
		}
	}

	cfg := ingest.Config{
		EnableLegitMissingRetry: true,
		EnableReconciliation:    true,
	}

	incremental := opts.SmartFetch && wallet.NewestProcessedSignature != nil
	if incremental {
		cfg.StopAtSignature = *wallet.NewestProcessedSignature
	} else {
		target := opts.TargetTxCount
		minCap := opts.MinFullFetchCap
		if minCap <= 0 {
			minCap = 300
		}
		cap := int(float64(target) * 1.5)
		if cap < minCap {
			cap = minCap
		}
		cfg.MaxSignatures = cap
	}

	persisted := 0
	var newestSig string
	var newestTs int64

	onBatch := func(batch []solana.ParsedTransaction) error {
		records := mapper.MapTransactions(address, batch)
		n, err := s.store.Save(ctx, records)
		if err != nil {
			return fmt.Errorf("persisting swap records: %w", err)
		}
		persisted += n

		if opts.OnRecords != nil {
			opts.OnRecords(records)
		}

		for _, tx := range batch {
			if tx.Timestamp > newestTs {
				newestTs = tx.Timestamp
				newestSig = tx.Signature
			}
		}
		if opts.OnBatch != nil {
			opts.OnBatch(batch)
		}
		return nil
	}

	if _, err := s.engine.Ingest(ctx, address, cfg, onBatch, nil); err != nil {
		return nil, fmt.Errorf("ingesting wallet %s: %w", address, err)
	}

	if newestSig != "" {
		if err := s.store.AdvanceCursor(ctx, address, newestSig, newestTs); err != nil {
			s.logger.ErrorContext(ctx, "failed to advance wallet cursor", "wallet", address, "err", err)
		}
	}

	return &SyncResult{WalletAddress: address, RecordsPersisted: persisted, Incremental: incremental}, nil
}
