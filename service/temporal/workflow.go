package temporal

import (
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// SyncWalletWorkflow is the Temporal workflow that drives one wallet
// sync on a recurring Temporal schedule. It performs a single
// SyncWallet activity call and returns its summary.
func SyncWalletWorkflow(ctx workflow.Context, input SyncWalletInput) (*SyncWalletResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("SyncWalletWorkflow started", "wallet_address", input.WalletAddress, "smart_fetch", input.SmartFetch)

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var result *SyncWalletResult
	err := workflow.ExecuteActivity(ctx, a.SyncWallet, input).Get(ctx, &result)
	if err != nil {
		logger.Error("wallet sync activity failed", "wallet_address", input.WalletAddress, "error", err)
		return nil, err
	}

	logger.Info("SyncWalletWorkflow completed",
		"wallet_address", input.WalletAddress,
		"records_persisted", result.RecordsPersisted,
		"incremental", result.Incremental,
	)

	return result, nil
}
