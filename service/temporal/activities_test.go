package temporal

import (
	"context"
	"errors"
	"testing"

	"github.com/brojonat/solwatch/service/nats"
	"github.com/brojonat/solwatch/service/walletsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) SyncWallet(ctx context.Context, address string, opts walletsync.Options) (*walletsync.SyncResult, error) {
	args := m.Called(ctx, address, opts)
	if args.Get(0) == nil {
		if opts.OnRecords != nil {
			opts.OnRecords(nil)
		}
		return nil, args.Error(1)
	}
	if opts.OnRecords != nil {
		opts.OnRecords(nil)
	}
	return args.Get(0).(*walletsync.SyncResult), args.Error(1)
}

func TestActivities_SyncWallet_Success(t *testing.T) {
	syncer := &mockSyncer{}
	input := SyncWalletInput{WalletAddress: "Wa11et1111111111111111111111111111111111", SmartFetch: true, TargetTxCount: 100}

	syncer.On("SyncWallet", mock.Anything, input.WalletAddress, mock.AnythingOfType("walletsync.Options")).
		Return(&walletsync.SyncResult{WalletAddress: input.WalletAddress, RecordsPersisted: 3, Incremental: true}, nil)

	a := NewActivities(syncer, nil, nil, nil)
	result, err := a.SyncWallet(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, input.WalletAddress, result.WalletAddress)
	assert.Equal(t, 3, result.RecordsPersisted)
	assert.True(t, result.Incremental)
	syncer.AssertExpectations(t)
}

func TestActivities_SyncWallet_PropagatesSyncerError(t *testing.T) {
	syncer := &mockSyncer{}
	input := SyncWalletInput{WalletAddress: "Wa11et1111111111111111111111111111111111"}

	syncer.On("SyncWallet", mock.Anything, input.WalletAddress, mock.AnythingOfType("walletsync.Options")).
		Return(nil, errors.New("rpc unavailable"))

	a := NewActivities(syncer, nil, nil, nil)
	result, err := a.SyncWallet(context.Background(), input)

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestActivities_SyncWallet_PublisherSetEmptyBatchPublishesNothing(t *testing.T) {
	syncer := &mockSyncer{}
	publisher := nats.NewMockPublisher()
	input := SyncWalletInput{WalletAddress: "Wa11et1111111111111111111111111111111111"}

	syncer.On("SyncWallet", mock.Anything, input.WalletAddress, mock.AnythingOfType("walletsync.Options")).
		Return(&walletsync.SyncResult{WalletAddress: input.WalletAddress, RecordsPersisted: 0}, nil)

	a := NewActivities(syncer, publisher, nil, nil)
	_, err := a.SyncWallet(context.Background(), input)

	require.NoError(t, err)
	// OnRecords fires with a nil batch in this fake; publishing an empty
	// batch is a no-op but must not error.
	assert.Empty(t, publisher.PublishedEvents())
}

func TestActivities_SyncWallet_SkipsPublishingWhenPublisherNil(t *testing.T) {
	syncer := &mockSyncer{}
	input := SyncWalletInput{WalletAddress: "Wa11et1111111111111111111111111111111111"}

	syncer.On("SyncWallet", mock.Anything, input.WalletAddress, mock.AnythingOfType("walletsync.Options")).
		Return(&walletsync.SyncResult{WalletAddress: input.WalletAddress}, nil)

	a := NewActivities(syncer, nil, nil, nil)
	_, err := a.SyncWallet(context.Background(), input)

	require.NoError(t, err)
}
