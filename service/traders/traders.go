// Package traders implements first-buyer detection and top-trader
// ranking (C10): chronological-order first-receiver detection for a
// mint or bonding-curve address, followed by dual PnL/size ranking.
package traders

import (
	"context"
	"fmt"
	"sort"

	"github.com/brojonat/solwatch/service/db"
	"github.com/brojonat/solwatch/service/pnl"
	"github.com/brojonat/solwatch/service/solana"
)

// FirstBuyer is one distinct wallet's earliest receipt of the target mint.
type FirstBuyer struct {
	Wallet            string
	FirstBuyTimestamp int64
	FirstBuySignature string
	TokenAmount       float64
}

// Options bounds a FirstBuyers scan.
type Options struct {
	MaxBuyers     int
	MaxSignatures int
	BatchSize     int
}

func (o Options) withDefaults() Options {
	if o.MaxBuyers <= 0 {
		o.MaxBuyers = 50
	}
	if o.MaxSignatures <= 0 {
		o.MaxSignatures = 1000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	return o
}

// SignaturePager is the subset of service/solana.Client needed to page
// signatures for a mint or bonding-curve address.
type SignaturePager interface {
	GetSignaturesPage(ctx context.Context, address string, limit int, before string) ([]solana.SignatureInfo, error)
}

// TransactionFetcher is the subset needed to resolve parsed transaction
// details for a batch of signatures.
type TransactionFetcher interface {
	GetTransactionsBatch(ctx context.Context, signatures []string) ([]solana.ParsedTransaction, error)
}

// FirstBuyers pages signatures for target (a mint or bonding-curve
// address), processes them in chronological order, and returns the
// first maxBuyers distinct wallets to receive the token.
func FirstBuyers(ctx context.Context, pager SignaturePager, fetcher TransactionFetcher, target string, mint string, opts Options) ([]FirstBuyer, error) {
	opts = opts.withDefaults()

	var all []solana.SignatureInfo
	before := ""
	for len(all) < opts.MaxSignatures {
		page, err := pager.GetSignaturesPage(ctx, target, 1000, before)
		if err != nil {
			return nil, fmt.Errorf("paging signatures for %s: %w", target, err)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		before = page[len(page)-1].Signature
		if len(page) < 1000 {
			break
		}
	}
	if len(all) > opts.MaxSignatures {
		all = all[:opts.MaxSignatures]
	}

	// RPC order is newest-first; reverse to chronological (oldest first).
	chronological := make([]solana.SignatureInfo, len(all))
	for i, s := range all {
		chronological[len(all)-1-i] = s
	}

	seen := map[string]bool{}
	var buyers []FirstBuyer

	for start := 0; start < len(chronological) && len(buyers) < opts.MaxBuyers; start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(chronological) {
			end = len(chronological)
		}
		batchSigInfos := chronological[start:end]

		var sigStrings []string
		for _, s := range batchSigInfos {
			if s.Failed() {
				continue
			}
			sigStrings = append(sigStrings, s.Signature)
		}
		if len(sigStrings) == 0 {
			continue
		}

		txs, err := fetcher.GetTransactionsBatch(ctx, sigStrings)
		if err != nil {
			return nil, fmt.Errorf("fetching transaction batch: %w", err)
		}

		sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp < txs[j].Timestamp })

		for _, tx := range txs {
			for _, tt := range tx.TokenTransfers {
				if tt.Mint != mint || tt.TokenAmount <= 0 || tt.ToUserAccount == target {
					continue
				}
				if seen[tt.ToUserAccount] {
					continue
				}
				seen[tt.ToUserAccount] = true
				buyers = append(buyers, FirstBuyer{
					Wallet:            tt.ToUserAccount,
					FirstBuyTimestamp: tx.Timestamp,
					FirstBuySignature: tx.Signature,
					TokenAmount:       tt.TokenAmount,
				})
				if len(buyers) >= opts.MaxBuyers {
					break
				}
			}
			if len(buyers) >= opts.MaxBuyers {
				break
			}
		}
	}

	return buyers, nil
}

// RankedTrader pairs a FirstBuyer with its scoped PnL, exposed through
// both ranking keys so callers can choose which to sort by; the source
// this is modeled on claims to rank by PnL but actually sorts by
// tokenAmount, so this package surfaces both rather than picking one.
type RankedTrader struct {
	FirstBuyer
	RealizedSol    float64
	TotalVolumeSol float64
}

// TopTradersByTokenAmount ranks buyers by first-buy token amount descending.
func TopTradersByTokenAmount(buyers []FirstBuyer, transactionsByWallet map[string][]db.TransactionData, mint string, topN int) []RankedTrader {
	ranked := rank(buyers, transactionsByWallet, mint)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].TokenAmount > ranked[j].TokenAmount })
	return topN_(ranked, topN)
}

// TopTradersByPnL ranks buyers by realized SOL PnL descending.
func TopTradersByPnL(buyers []FirstBuyer, transactionsByWallet map[string][]db.TransactionData, mint string, topN int) []RankedTrader {
	ranked := rank(buyers, transactionsByWallet, mint)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].RealizedSol > ranked[j].RealizedSol })
	return topN_(ranked, topN)
}

func rank(buyers []FirstBuyer, transactionsByWallet map[string][]db.TransactionData, mint string) []RankedTrader {
	scoped := pnl.ComputeByMint(transactionsByWallet, mint)
	out := make([]RankedTrader, 0, len(buyers))
	for _, b := range buyers {
		p := scoped[b.Wallet]
		out = append(out, RankedTrader{FirstBuyer: b, RealizedSol: p.RealizedSol, TotalVolumeSol: p.TotalVolumeSol})
	}
	return out
}

func topN_(ranked []RankedTrader, topN int) []RankedTrader {
	if topN <= 0 || topN > len(ranked) {
		return ranked
	}
	return ranked[:topN]
}
