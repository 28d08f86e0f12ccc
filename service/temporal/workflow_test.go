package temporal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"
)

func TestSyncWalletWorkflow_Success(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	activities := &Activities{}
	env.RegisterActivity(activities.SyncWallet)

	input := SyncWalletInput{WalletAddress: "Wa11et1111111111111111111111111111111111", SmartFetch: true, TargetTxCount: 100}

	env.OnActivity(activities.SyncWallet, mock.Anything, input).Return(&SyncWalletResult{
		WalletAddress:    input.WalletAddress,
		RecordsPersisted: 5,
		Incremental:      true,
	}, nil)

	env.ExecuteWorkflow(SyncWalletWorkflow, input)

	assert.NoError(t, env.GetWorkflowError())

	var result SyncWalletResult
	assert.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, input.WalletAddress, result.WalletAddress)
	assert.Equal(t, 5, result.RecordsPersisted)
	assert.True(t, result.Incremental)
}

func TestSyncWalletWorkflow_ActivityFailurePropagates(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	activities := &Activities{}
	env.RegisterActivity(activities.SyncWallet)

	input := SyncWalletInput{WalletAddress: "Wa11et1111111111111111111111111111111111"}

	env.OnActivity(activities.SyncWallet, mock.Anything, input).Return(nil, errors.New("rpc unavailable"))

	env.ExecuteWorkflow(SyncWalletWorkflow, input)

	assert.Error(t, env.GetWorkflowError())
}

func TestSyncWalletWorkflow_RetriesOnTransientFailure(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	activities := &Activities{}
	env.RegisterActivity(activities.SyncWallet)

	input := SyncWalletInput{WalletAddress: "Wa11et1111111111111111111111111111111111"}

	callCount := 0
	env.OnActivity(activities.SyncWallet, mock.Anything, input).Run(func(args mock.Arguments) {
		callCount++
		if callCount < 3 {
			panic("transient error")
		}
	}).Return(&SyncWalletResult{WalletAddress: input.WalletAddress, RecordsPersisted: 1}, nil)

	env.ExecuteWorkflow(SyncWalletWorkflow, input)

	assert.NoError(t, env.GetWorkflowError())
	assert.Equal(t, 3, callCount)
}
