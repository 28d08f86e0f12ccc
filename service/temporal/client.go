package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
)

// Scheduler manages Temporal schedules for wallet syncs. Each tracked
// wallet gets its own schedule that triggers SyncWalletWorkflow.
type Scheduler interface {
	CreateWalletSchedule(ctx context.Context, address string, interval time.Duration, smartFetch bool, targetTxCount int) error
	DeleteWalletSchedule(ctx context.Context, address string) error
}

// Client is a production Scheduler implementation backed by Temporal.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewClient connects to Temporal.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal", "host", host, "namespace", namespace, "task_queue", taskQueue)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")
	return &Client{client: c, taskQueue: taskQueue, logger: logger}, nil
}

// CreateWalletSchedule creates a recurring schedule that triggers
// SyncWalletWorkflow for address on the given interval.
func (c *Client) CreateWalletSchedule(ctx context.Context, address string, interval time.Duration, smartFetch bool, targetTxCount int) error {
	id := scheduleID(address)

	c.logger.Debug("creating wallet sync schedule", "address", address, "schedule_id", id, "interval", interval)

	workflowAction := &client.ScheduleWorkflowAction{
		ID:        fmt.Sprintf("sync-wallet-%s", address),
		Workflow:  "SyncWalletWorkflow",
		TaskQueue: c.taskQueue,
		Args: []interface{}{SyncWalletInput{
			WalletAddress: address,
			SmartFetch:    smartFetch,
			TargetTxCount: targetTxCount,
		}},
	}

	_, err := c.client.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: id,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{{Every: interval}},
		},
		Action: workflowAction,
		Memo: map[string]interface{}{
			"wallet_address": address,
			"created_by":     "solwatch",
		},
	})
	if err != nil {
		c.logger.Error("failed to create schedule", "address", address, "schedule_id", id, "error", err)
		return fmt.Errorf("creating schedule %q: %w", id, err)
	}

	c.logger.Info("created wallet sync schedule", "address", address, "schedule_id", id)
	return nil
}

// DeleteWalletSchedule deletes the schedule for address, stopping its syncs.
func (c *Client) DeleteWalletSchedule(ctx context.Context, address string) error {
	id := scheduleID(address)
	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if err := handle.Delete(ctx); err != nil {
		return fmt.Errorf("deleting schedule %q: %w", id, err)
	}
	c.logger.Info("deleted wallet sync schedule", "address", address, "schedule_id", id)
	return nil
}

// SDKClient returns the underlying Temporal SDK client for direct
// workflow operations (e.g. one-shot ExecuteWorkflow calls).
func (c *Client) SDKClient() client.Client {
	return c.client
}

// TaskQueue returns the configured task queue.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

func scheduleID(address string) string {
	return "sync-wallet-" + address
}

// temporalLogger adapts slog.Logger to Temporal SDK's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) { l.logger.Debug(msg, keyvals...) }
func (l *temporalLogger) Info(msg string, keyvals ...interface{})  { l.logger.Info(msg, keyvals...) }
func (l *temporalLogger) Warn(msg string, keyvals ...interface{})  { l.logger.Warn(msg, keyvals...) }
func (l *temporalLogger) Error(msg string, keyvals ...interface{}) { l.logger.Error(msg, keyvals...) }
