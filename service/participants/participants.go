// Package participants implements the mint-participants flow (C11):
// pre-cutoff buyer detection for a mint, wallet enrichment, and
// JSONL/CSV manifest output with (wallet,signature) dedup.
package participants

import (
	"context"
	"fmt"
	"time"

	"github.com/brojonat/solwatch/service/mapper"
	"github.com/brojonat/solwatch/service/solana"
)

// SignaturePager is the subset of service/solana.Client needed to page
// signatures for a mint or source wallet address.
type SignaturePager interface {
	GetSignaturesPage(ctx context.Context, address string, limit int, before string) ([]solana.SignatureInfo, error)
}

// TransactionFetcher resolves parsed transaction details for a batch of
// signatures.
type TransactionFetcher interface {
	GetTransactionsBatch(ctx context.Context, signatures []string) ([]solana.ParsedTransaction, error)
}

// TokenAccountCounter reports how many token accounts a wallet owns,
// used for enrichment.
type TokenAccountCounter interface {
	GetTokenAccountsByOwner(ctx context.Context, owner string, mint string) ([]solana.TokenAccount, error)
}

// Options bounds one mint-participants scan.
type Options struct {
	CutoffTs      int64
	WindowSeconds int64
	BatchSize     int
	MaxSignatures int
}

func (o Options) withDefaults() Options {
	if o.WindowSeconds <= 0 {
		o.WindowSeconds = 3600
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.MaxSignatures <= 0 {
		o.MaxSignatures = 5000
	}
	return o
}

// Participant is one enriched mint-participants manifest row.
type Participant struct {
	Wallet                string
	Mint                  string
	CutoffTs              int64
	BuyTs                 int64
	BuySignature          string
	TokenAmount           float64
	StakeSol              float64
	TokenAccountsCount    int
	TxCountScanned        int
	WalletCreatedAtTs     int64
	AccountAgeDays        float64
	RunScannedAt          time.Time
}

// Scan pages signatures for source (the mint or a provided source
// wallet), keeps those with blockTime <= cutoffTs, batch-fetches
// details, and emits wallets that received the mint within
// [cutoffTs-windowSeconds, cutoffTs].
func Scan(ctx context.Context, pager SignaturePager, fetcher TransactionFetcher, enricher TokenAccountCounter, source, mint string, opts Options) ([]Participant, error) {
	opts = opts.withDefaults()
	windowStart := opts.CutoffTs - opts.WindowSeconds

	var all []solana.SignatureInfo
	before := ""
	for len(all) < opts.MaxSignatures {
		page, err := pager.GetSignaturesPage(ctx, source, 1000, before)
		if err != nil {
			return nil, fmt.Errorf("paging signatures for %s: %w", source, err)
		}
		if len(page) == 0 {
			break
		}
		for _, s := range page {
			if s.BlockTime != nil && *s.BlockTime > opts.CutoffTs {
				continue
			}
			all = append(all, s)
		}
		before = page[len(page)-1].Signature
		if len(page) < 1000 {
			break
		}
	}
	if len(all) > opts.MaxSignatures {
		all = all[:opts.MaxSignatures]
	}

	var participants []Participant
	seen := map[string]bool{} // dedup key: wallet|signature
	txCountScanned := 0

	for start := 0; start < len(all); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(all) {
			end = len(all)
		}
		var sigStrings []string
		for _, s := range all[start:end] {
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
		txCountScanned += len(txs)

		for _, tx := range txs {
			if tx.Timestamp < windowStart || tx.Timestamp > opts.CutoffTs {
				continue
			}
			for _, tt := range tx.TokenTransfers {
				if tt.Mint != mint || tt.TokenAmount <= 0 {
					continue
				}
				key := tt.ToUserAccount + "|" + tx.Signature
				if seen[key] {
					continue
				}
				seen[key] = true

				p := Participant{
					Wallet:         tt.ToUserAccount,
					Mint:           mint,
					CutoffTs:       opts.CutoffTs,
					BuyTs:          tx.Timestamp,
					BuySignature:   tx.Signature,
					TokenAmount:    tt.TokenAmount,
					TxCountScanned: txCountScanned,
					RunScannedAt:   time.Now(),
				}
				p.StakeSol = stakeSolFor(tt.ToUserAccount, tx)
				p.WalletCreatedAtTs = tx.Timestamp
				p.AccountAgeDays = 0 // always 0: no wallet-history scan runs, so the wallet's age is not known

				if enricher != nil {
					if accounts, err := enricher.GetTokenAccountsByOwner(ctx, tt.ToUserAccount, ""); err == nil {
						p.TokenAccountsCount = len(accounts)
					}
				}

				participants = append(participants, p)
			}
		}
	}

	return participants, nil
}

// stakeSolFor computes the absolute SOL value the wallet put into this
// single first-buy transaction, via the same netting logic C4 uses.
func stakeSolFor(wallet string, tx solana.ParsedTransaction) float64 {
	records := mapper.MapTransactions(wallet, []solana.ParsedTransaction{tx})
	var stake float64
	for _, r := range records {
		stake += r.AssociatedSolValue
	}
	return stake
}
