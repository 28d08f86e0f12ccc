// Package nats publishes persisted swap records to NATS JetStream as a
// best-effort downstream fanout. No exactly-once guarantee is made to
// consumers; publish failures are logged and do not fail ingestion.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/brojonat/solwatch/service/db"
	"github.com/brojonat/solwatch/service/metrics"
)

// Publisher publishes swap events to NATS JetStream.
type Publisher interface {
	PublishSwap(ctx context.Context, event *SwapEvent) error
	PublishSwapBatch(ctx context.Context, events []*SwapEvent) error
	Close() error
}

// JetStreamPublisher publishes swap events to the SWAPS stream, one
// subject per wallet ("swaps.{wallet_address}").
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	metrics *metrics.Metrics
	logger  *slog.Logger
}

const (
	// StreamName is the JetStream stream carrying swap events.
	StreamName = "SWAPS"
	// StreamSubjects is the wildcard subject pattern the stream consumes.
	StreamSubjects = "swaps.*"
	// StreamRetention bounds how long swap events are retained.
	StreamRetention = 30 * 24 * time.Hour
)

// NewPublisher connects to NATS and ensures the SWAPS stream exists.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*JetStreamPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("solwatch-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, metrics: m, logger: logger}
	if err := p.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensuring SWAPS stream exists: %w", err)
	}

	logger.Info("nats publisher initialized", "url", natsURL, "stream", StreamName)
	return p, nil
}

func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "swap_analysis_input records fanned out for downstream consumers",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("creating stream: %w", err)
	}
	p.logger.Info("jetstream stream created", "stream", StreamName)
	return nil
}

// PublishSwap publishes one swap event to "swaps.{walletAddress}".
func (p *JetStreamPublisher) PublishSwap(ctx context.Context, event *SwapEvent) error {
	start := time.Now()
	subject := fmt.Sprintf("swaps.%s", event.WalletAddress)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling swap event: %w", err)
	}

	_, err = p.js.Publish(ctx, subject, data)
	status := "ok"
	if err != nil {
		status = "error"
	}
	if p.metrics != nil {
		p.metrics.RecordNATSPublish(subject, status, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("publishing swap event: %w", err)
	}

	p.logger.DebugContext(ctx, "published swap event", "subject", subject, "signature", event.Signature)
	return nil
}

// PublishSwapBatch publishes each event, logging and continuing past
// individual failures rather than aborting the whole batch.
func (p *JetStreamPublisher) PublishSwapBatch(ctx context.Context, events []*SwapEvent) error {
	for _, event := range events {
		if err := p.PublishSwap(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish swap event in batch", "signature", event.Signature, "err", err)
			continue
		}
	}
	return nil
}

// Close closes the underlying NATS connection.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("nats publisher closed")
	}
	return nil
}

// SwapEvent is the wire format published for each persisted swap record.
type SwapEvent struct {
	Signature          string  `json:"signature"`
	WalletAddress      string  `json:"walletAddress"`
	Mint               string  `json:"mint"`
	Direction          string  `json:"direction"`
	Amount             float64 `json:"amount"`
	AssociatedSolValue float64 `json:"associatedSolValue"`
	Timestamp          int64   `json:"timestamp"`
	PublishedAt        time.Time `json:"publishedAt"`
}

// FromSwapRecord converts a persisted SwapAnalysisInput to a SwapEvent.
func FromSwapRecord(r db.SwapAnalysisInput) *SwapEvent {
	return &SwapEvent{
		Signature:          r.Signature,
		WalletAddress:      r.WalletAddress,
		Mint:               r.Mint,
		Direction:          string(r.Direction),
		Amount:             r.Amount,
		AssociatedSolValue: r.AssociatedSolValue,
		Timestamp:          r.Timestamp,
		PublishedAt:        time.Now().UTC(),
	}
}
