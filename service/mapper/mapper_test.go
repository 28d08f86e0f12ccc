package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solwatch/service/db"
	"github.com/brojonat/solwatch/service/solana"
)

const wallet = "Wallet11111111111111111111111111111111111"
const other = "Other11111111111111111111111111111111111"

func TestMapTransactions_CollapsesMultipleTransfersPerMint(t *testing.T) {
	txs := []solana.ParsedTransaction{
		{
			Signature: "sig1",
			Timestamp: 1000,
			TokenTransfers: []solana.TokenTransfer{
				{FromUserAccount: other, ToUserAccount: wallet, Mint: "mintA", TokenAmount: 3},
				{FromUserAccount: other, ToUserAccount: wallet, Mint: "mintA", TokenAmount: 2},
			},
		},
	}

	out := MapTransactions(wallet, txs)
	require.Len(t, out, 1)
	assert.Equal(t, db.DirectionIn, out[0].Direction)
	assert.Equal(t, 5.0, out[0].Amount)
	assert.Equal(t, "mintA", out[0].Mint)
}

func TestMapTransactions_NetsOppositeDirectionsToZeroAndSkips(t *testing.T) {
	txs := []solana.ParsedTransaction{
		{
			Signature: "sig1",
			Timestamp: 1000,
			TokenTransfers: []solana.TokenTransfer{
				{FromUserAccount: other, ToUserAccount: wallet, Mint: "mintA", TokenAmount: 5},
				{FromUserAccount: wallet, ToUserAccount: other, Mint: "mintA", TokenAmount: 5},
			},
		},
	}

	out := MapTransactions(wallet, txs)
	assert.Empty(t, out, "zero net change must not emit a record")
}

func TestMapTransactions_AssociatesNetSolValue(t *testing.T) {
	txs := []solana.ParsedTransaction{
		{
			Signature: "sig1",
			Timestamp: 1000,
			TokenTransfers: []solana.TokenTransfer{
				{FromUserAccount: other, ToUserAccount: wallet, Mint: "mintA", TokenAmount: 100},
			},
			NativeTransfers: []solana.NativeTransfer{
				{FromUserAccount: wallet, ToUserAccount: other, Amount: 500_000_000}, // 0.5 SOL
			},
		},
	}

	out := MapTransactions(wallet, txs)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.5, out[0].AssociatedSolValue, 1e-9)
}

func TestMapTransactions_PureSolMovementEmitsWSOLRecord(t *testing.T) {
	txs := []solana.ParsedTransaction{
		{
			Signature: "sig1",
			Timestamp: 1000,
			NativeTransfers: []solana.NativeTransfer{
				{FromUserAccount: other, ToUserAccount: wallet, Amount: 1_000_000_000},
			},
		},
	}

	out := MapTransactions(wallet, txs)
	require.Len(t, out, 1)
	assert.Equal(t, solana.WSOLMint, out[0].Mint)
	assert.Equal(t, db.DirectionIn, out[0].Direction)
	assert.InDelta(t, 1.0, out[0].Amount, 1e-9)
}

func TestMapTransactions_IsDeterministic(t *testing.T) {
	txs := []solana.ParsedTransaction{
		{
			Signature: "sig1",
			Timestamp: 1000,
			TokenTransfers: []solana.TokenTransfer{
				{FromUserAccount: other, ToUserAccount: wallet, Mint: "mintA", TokenAmount: 7},
			},
		},
	}

	a := MapTransactions(wallet, txs)
	b := MapTransactions(wallet, txs)
	assert.Equal(t, a, b)
}

func TestMapTransactions_IgnoresUnrelatedTransfers(t *testing.T) {
	txs := []solana.ParsedTransaction{
		{
			Signature: "sig1",
			Timestamp: 1000,
			TokenTransfers: []solana.TokenTransfer{
				{FromUserAccount: other, ToUserAccount: "SomeoneElse1111111111111111111111111111111", Mint: "mintA", TokenAmount: 7},
			},
		},
	}

	out := MapTransactions(wallet, txs)
	assert.Empty(t, out)
}
