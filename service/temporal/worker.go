package temporal

import (
	"fmt"
	"log/slog"

	"github.com/brojonat/solwatch/service/metrics"
	"github.com/brojonat/solwatch/service/nats"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// WorkerConfig configures a Temporal worker process.
type WorkerConfig struct {
	TemporalHost      string
	TemporalNamespace string
	TaskQueue         string

	Syncer    WalletSyncer
	Publisher nats.Publisher
	Metrics   *metrics.Metrics // optional: if nil, no metrics are recorded
	Logger    *slog.Logger
}

// Worker wraps a Temporal worker with lifecycle management.
type Worker struct {
	client client.Client
	worker worker.Worker
	logger *slog.Logger
}

// NewWorker creates and configures a Temporal worker that processes
// SyncWalletWorkflow and its SyncWallet activity on the configured task
// queue.
func NewWorker(config WorkerConfig) (*Worker, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	logger := config.Logger.With("component", "temporal_worker")

	logger.Info("creating temporal worker",
		"host", config.TemporalHost,
		"namespace", config.TemporalNamespace,
		"task_queue", config.TaskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  config.TemporalHost,
		Namespace: config.TemporalNamespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal: %w", err)
	}

	w := worker.New(c, config.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     10,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	w.RegisterWorkflow(SyncWalletWorkflow)
	logger.Info("registered workflow", "name", "SyncWalletWorkflow")

	activities := NewActivities(config.Syncer, config.Publisher, config.Metrics, logger)
	w.RegisterActivity(activities.SyncWallet)
	logger.Info("registered activities", "activities", []string{"SyncWallet"})

	return &Worker{client: c, worker: w, logger: logger}, nil
}

// Start begins processing workflows and activities. It blocks until Stop
// is called or an unrecoverable error occurs.
func (w *Worker) Start() error {
	w.logger.Info("starting temporal worker")
	if err := w.worker.Run(worker.InterruptCh()); err != nil {
		w.logger.Error("worker stopped with error", "error", err)
		return fmt.Errorf("worker stopped with error: %w", err)
	}
	w.logger.Info("worker stopped gracefully")
	return nil
}

// Stop gracefully stops the worker and closes its Temporal connection.
func (w *Worker) Stop() {
	w.logger.Info("stopping temporal worker")
	w.worker.Stop()
	w.client.Close()
	w.logger.Info("temporal worker stopped")
}
