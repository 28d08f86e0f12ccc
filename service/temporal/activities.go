// Package temporal wires the wallet sync service into Temporal
// workflows, activities, a worker, and a schedule-managing client, so
// wallet syncs run on a recurring interval rather than one-shot CLI
// invocations.
package temporal

import (
	"context"
	"log/slog"
	"time"

	"github.com/brojonat/solwatch/service/db"
	"github.com/brojonat/solwatch/service/metrics"
	"github.com/brojonat/solwatch/service/nats"
	"github.com/brojonat/solwatch/service/walletsync"
)

// SyncWalletInput is the workflow/activity input for one wallet sync.
type SyncWalletInput struct {
	WalletAddress   string `json:"walletAddress"`
	SmartFetch      bool   `json:"smartFetch"`
	TargetTxCount   int    `json:"targetTxCount"`
	MinFullFetchCap int    `json:"minFullFetchCap"`
}

// SyncWalletResult is the workflow/activity result for one wallet sync.
type SyncWalletResult struct {
	WalletAddress    string `json:"walletAddress"`
	RecordsPersisted int    `json:"recordsPersisted"`
	Incremental      bool   `json:"incremental"`
}

// WalletSyncer is the subset of service/walletsync.Service activities depend on.
type WalletSyncer interface {
	SyncWallet(ctx context.Context, address string, opts walletsync.Options) (*walletsync.SyncResult, error)
}

// Activities holds the dependencies Temporal activities need. All
// dependencies are explicit constructor arguments, following the
// project's go-kit-style wiring.
type Activities struct {
	syncer    WalletSyncer
	publisher nats.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivities builds an Activities instance. publisher may be nil, in
// which case swap-event publishing is skipped.
func NewActivities(syncer WalletSyncer, publisher nats.Publisher, m *metrics.Metrics, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{syncer: syncer, publisher: publisher, metrics: m, logger: logger}
}

// SyncWallet runs one incremental-or-full wallet sync via service/walletsync.
func (a *Activities) SyncWallet(ctx context.Context, input SyncWalletInput) (*SyncWalletResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivity("SyncWallet", time.Since(start))
		}
	}()

	a.logger.InfoContext(ctx, "running wallet sync activity", "wallet", input.WalletAddress, "smart_fetch", input.SmartFetch)

	res, err := a.syncer.SyncWallet(ctx, input.WalletAddress, walletsync.Options{
		SmartFetch:      input.SmartFetch,
		TargetTxCount:   input.TargetTxCount,
		MinFullFetchCap: input.MinFullFetchCap,
		OnRecords:       a.publishRecords(ctx),
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "wallet sync activity failed", "wallet", input.WalletAddress, "err", err)
		return nil, err
	}

	a.logger.InfoContext(ctx, "wallet sync activity completed",
		"wallet", input.WalletAddress, "records_persisted", res.RecordsPersisted, "incremental", res.Incremental)

	return &SyncWalletResult{
		WalletAddress:    res.WalletAddress,
		RecordsPersisted: res.RecordsPersisted,
		Incremental:      res.Incremental,
	}, nil
}

// publishRecords returns a hook that best-effort fans out newly
// persisted swap records to NATS. Publish failures are logged, never
// propagated, since downstream delivery is not part of the ingestion
// contract.
func (a *Activities) publishRecords(ctx context.Context) func([]db.SwapAnalysisInput) {
	if a.publisher == nil {
		return nil
	}
	return func(records []db.SwapAnalysisInput) {
		events := make([]*nats.SwapEvent, 0, len(records))
		for _, r := range records {
			events = append(events, nats.FromSwapRecord(r))
		}
		if err := a.publisher.PublishSwapBatch(ctx, events); err != nil {
			a.logger.ErrorContext(ctx, "failed to publish swap event batch", "err", err)
		}
	}
}
