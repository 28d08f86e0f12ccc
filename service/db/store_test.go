package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UpsertAndGetWallet(t *testing.T) {
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)
	ctx := context.Background()

	w, err := ts.UpsertWallet(ctx, "wallet1", 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "wallet1", w.Address)
	assert.Equal(t, "active", w.Status)
	assert.Nil(t, w.FirstProcessedTimestamp)

	got, err := ts.GetWallet(ctx, "wallet1")
	require.NoError(t, err)
	assert.Equal(t, w.Address, got.Address)
}

func TestStore_AdvanceCursorSetsFirstProcessedOnlyOnce(t *testing.T) {
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)
	ctx := context.Background()

	_, err := ts.UpsertWallet(ctx, "wallet1", time.Second)
	require.NoError(t, err)

	require.NoError(t, ts.AdvanceCursor(ctx, "wallet1", "sig1", 1000))
	w1, err := ts.GetWallet(ctx, "wallet1")
	require.NoError(t, err)
	require.NotNil(t, w1.FirstProcessedTimestamp)
	assert.Equal(t, int64(1000), *w1.FirstProcessedTimestamp)

	require.NoError(t, ts.AdvanceCursor(ctx, "wallet1", "sig2", 2000))
	w2, err := ts.GetWallet(ctx, "wallet1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), *w2.FirstProcessedTimestamp, "first processed timestamp must not regress")
	assert.Equal(t, int64(2000), *w2.NewestProcessedTimestamp)
	assert.Equal(t, "sig2", *w2.NewestProcessedSignature)
}

func TestStore_SaveDeduplicatesOnUniquenessKey(t *testing.T) {
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)
	ctx := context.Background()

	_, err := ts.UpsertWallet(ctx, "wallet1", time.Second)
	require.NoError(t, err)

	record := SwapAnalysisInput{
		WalletAddress:      "wallet1",
		Signature:          "sig1",
		Mint:               "mintA",
		Direction:          DirectionIn,
		Amount:             1.5,
		AssociatedSolValue: 0.2,
		Timestamp:          1000,
	}

	n1, err := ts.Save(ctx, []SwapAnalysisInput{record})
	require.NoError(t, err)
	assert.Equal(t, 1, n1)

	n2, err := ts.Save(ctx, []SwapAnalysisInput{record})
	require.NoError(t, err)
	assert.Equal(t, 0, n2, "duplicate insert must be silently skipped")

	rows, err := ts.GetByWallet(ctx, "wallet1", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStore_GetByWalletOrdersByTimestampAscending(t *testing.T) {
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)
	ctx := context.Background()

	_, err := ts.UpsertWallet(ctx, "wallet1", time.Second)
	require.NoError(t, err)

	_, err = ts.Save(ctx, []SwapAnalysisInput{
		{WalletAddress: "wallet1", Signature: "sig2", Mint: "mintA", Direction: DirectionIn, Amount: 1, Timestamp: 2000},
		{WalletAddress: "wallet1", Signature: "sig1", Mint: "mintA", Direction: DirectionIn, Amount: 2, Timestamp: 1000},
	})
	require.NoError(t, err)

	rows, err := ts.GetByWallet(ctx, "wallet1", nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1000), rows[0].Timestamp)
	assert.Equal(t, int64(2000), rows[1].Timestamp)
}

func TestStore_GetByWalletsExcludesMints(t *testing.T) {
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)
	ctx := context.Background()

	_, err := ts.UpsertWallet(ctx, "wallet1", time.Second)
	require.NoError(t, err)

	_, err = ts.Save(ctx, []SwapAnalysisInput{
		{WalletAddress: "wallet1", Signature: "sig1", Mint: "So11111111111111111111111111111111111111112", Direction: DirectionIn, Amount: 1, Timestamp: 1000},
		{WalletAddress: "wallet1", Signature: "sig1", Mint: "mintA", Direction: DirectionIn, Amount: 1, Timestamp: 1000},
	})
	require.NoError(t, err)

	byWallet, err := ts.GetByWallets(ctx, []string{"wallet1"}, []string{"So11111111111111111111111111111111111111112"}, nil)
	require.NoError(t, err)
	require.Len(t, byWallet["wallet1"], 1)
	assert.Equal(t, "mintA", byWallet["wallet1"][0].Mint)
}
