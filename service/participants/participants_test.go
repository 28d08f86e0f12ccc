package participants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solwatch/service/solana"
)

type fakePager struct {
	page []solana.SignatureInfo
	done bool
}

func (f *fakePager) GetSignaturesPage(ctx context.Context, address string, limit int, before string) ([]solana.SignatureInfo, error) {
	if f.done {
		return nil, nil
	}
	f.done = true
	return f.page, nil
}

type fakeFetcher struct {
	bySig map[string]solana.ParsedTransaction
}

func (f *fakeFetcher) GetTransactionsBatch(ctx context.Context, signatures []string) ([]solana.ParsedTransaction, error) {
	var out []solana.ParsedTransaction
	for _, s := range signatures {
		if tx, ok := f.bySig[s]; ok {
			out = append(out, tx)
		}
	}
	return out, nil
}

const mint = "MINT111"

func TestScan_KeepsBuyersWithinWindowBeforeCutoff(t *testing.T) {
	blockTime := int64(1000)
	pager := &fakePager{page: []solana.SignatureInfo{{Signature: "s1", BlockTime: &blockTime}}}
	fetcher := &fakeFetcher{bySig: map[string]solana.ParsedTransaction{
		"s1": {Signature: "s1", Timestamp: 950, TokenTransfers: []solana.TokenTransfer{{Mint: mint, TokenAmount: 5, ToUserAccount: "W1"}}},
	}}

	out, err := Scan(context.Background(), pager, fetcher, nil, "source", mint, Options{CutoffTs: 1000, WindowSeconds: 100})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "W1", out[0].Wallet)
	assert.Equal(t, int64(950), out[0].BuyTs)
}

func TestScan_ExcludesBuysOutsideWindow(t *testing.T) {
	blockTime := int64(500)
	pager := &fakePager{page: []solana.SignatureInfo{{Signature: "s1", BlockTime: &blockTime}}}
	fetcher := &fakeFetcher{bySig: map[string]solana.ParsedTransaction{
		"s1": {Signature: "s1", Timestamp: 500, TokenTransfers: []solana.TokenTransfer{{Mint: mint, TokenAmount: 5, ToUserAccount: "W1"}}},
	}}

	out, err := Scan(context.Background(), pager, fetcher, nil, "source", mint, Options{CutoffTs: 1000, WindowSeconds: 100})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestScan_DedupsByWalletAndSignature(t *testing.T) {
	blockTime := int64(1000)
	pager := &fakePager{page: []solana.SignatureInfo{{Signature: "s1", BlockTime: &blockTime}}}
	fetcher := &fakeFetcher{bySig: map[string]solana.ParsedTransaction{
		"s1": {Signature: "s1", Timestamp: 950, TokenTransfers: []solana.TokenTransfer{
			{Mint: mint, TokenAmount: 5, ToUserAccount: "W1"},
			{Mint: mint, TokenAmount: 3, ToUserAccount: "W1"},
		}},
	}}

	out, err := Scan(context.Background(), pager, fetcher, nil, "source", mint, Options{CutoffTs: 1000, WindowSeconds: 100})
	require.NoError(t, err)
	require.Len(t, out, 1, "same (wallet,signature) pair should only produce one manifest row")
}

func TestScan_ExcludesSignaturesPastCutoff(t *testing.T) {
	blockTime := int64(2000)
	pager := &fakePager{page: []solana.SignatureInfo{{Signature: "s1", BlockTime: &blockTime}}}
	fetcher := &fakeFetcher{bySig: map[string]solana.ParsedTransaction{
		"s1": {Signature: "s1", Timestamp: 2000, TokenTransfers: []solana.TokenTransfer{{Mint: mint, TokenAmount: 5, ToUserAccount: "W1"}}},
	}}

	out, err := Scan(context.Background(), pager, fetcher, nil, "source", mint, Options{CutoffTs: 1000, WindowSeconds: 100})
	require.NoError(t, err)
	assert.Empty(t, out, "signatures with blockTime past cutoff are dropped before detail fetch")
}
