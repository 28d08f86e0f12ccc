package pnl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brojonat/solwatch/service/db"
)

func TestCompute_RealizedSolIsOutMinusIn(t *testing.T) {
	byWallet := map[string][]db.TransactionData{
		"w1": {
			{Mint: "A", Direction: db.DirectionIn, AssociatedSolValue: 1.0},
			{Mint: "A", Direction: db.DirectionOut, AssociatedSolValue: 1.5},
		},
	}
	got := Compute(byWallet)
	assert.InDelta(t, 0.5, got["w1"].RealizedSol, 1e-9)
	assert.InDelta(t, 2.5, got["w1"].TotalVolumeSol, 1e-9)
}

func TestCompute_ExcludesZeroSolEntries(t *testing.T) {
	byWallet := map[string][]db.TransactionData{
		"w1": {
			{Mint: "A", Direction: db.DirectionIn, AssociatedSolValue: 0},
			{Mint: "A", Direction: db.DirectionOut, AssociatedSolValue: 2},
		},
	}
	got := Compute(byWallet)
	assert.InDelta(t, 2.0, got["w1"].RealizedSol, 1e-9)
	assert.InDelta(t, 2.0, got["w1"].TotalVolumeSol, 1e-9)
}

func TestComputeByMint_ScopesToOneMint(t *testing.T) {
	byWallet := map[string][]db.TransactionData{
		"w1": {
			{Mint: "A", Direction: db.DirectionOut, AssociatedSolValue: 5},
			{Mint: "B", Direction: db.DirectionOut, AssociatedSolValue: 100},
		},
	}
	got := ComputeByMint(byWallet, "A")
	assert.InDelta(t, 5.0, got["w1"].RealizedSol, 1e-9)
}

func TestClassifyHoldingTime_BucketsByHeldDuration(t *testing.T) {
	txs := []db.TransactionData{
		{Mint: "A", Direction: db.DirectionIn, Timestamp: 0},
		{Mint: "A", Direction: db.DirectionOut, Timestamp: 60}, // 1 min -> flip

		{Mint: "B", Direction: db.DirectionIn, Timestamp: 0},
		{Mint: "B", Direction: db.DirectionOut, Timestamp: 30 * 60}, // 30 min -> scalp

		{Mint: "C", Direction: db.DirectionIn, Timestamp: 0},
		{Mint: "C", Direction: db.DirectionOut, Timestamp: 12 * 60 * 60}, // 12h -> swing

		{Mint: "D", Direction: db.DirectionIn, Timestamp: 0},
		{Mint: "D", Direction: db.DirectionOut, Timestamp: 2 * 24 * 60 * 60}, // 2d -> position
	}
	profile := ClassifyHoldingTime(txs)
	assert.Equal(t, 1, profile.Counts[BucketFlip])
	assert.Equal(t, 1, profile.Counts[BucketScalp])
	assert.Equal(t, 1, profile.Counts[BucketSwing])
	assert.Equal(t, 1, profile.Counts[BucketPosition])
}

func TestClassifyHoldingTime_UnmatchedLegsAreIgnored(t *testing.T) {
	txs := []db.TransactionData{
		{Mint: "A", Direction: db.DirectionOut, Timestamp: 0}, // no prior in
		{Mint: "A", Direction: db.DirectionIn, Timestamp: 100}, // never closed
	}
	profile := ClassifyHoldingTime(txs)
	assert.Empty(t, profile.Counts)
}
