// Package mapper implements the pure transaction mapper (C4): a
// deterministic, side-effect-free function turning indexer-provided
// ParsedTransaction records into zero or more SwapAnalysisInput rows for
// a given wallet.
package mapper

import (
	"github.com/brojonat/solwatch/service/db"
	"github.com/brojonat/solwatch/service/solana"
)

// netChange accumulates the signed amount moved for one (mint) within a
// single transaction, from the perspective of walletAddress.
type netChange struct {
	tokenDelta float64 // positive = wallet received, negative = wallet sent
	solDelta   float64 // SOL netted against the wallet in the same tx
}

// MapTransactions converts parsed transactions into swap analysis
// records. Within a single transaction, all token and native transfers
// touching walletAddress are collapsed per (mint, direction) and emitted
// as one record per non-zero net change. This function never mutates
// its inputs and always returns the same output for the same input.
func MapTransactions(walletAddress string, txs []solana.ParsedTransaction) []db.SwapAnalysisInput {
	var out []db.SwapAnalysisInput

	for _, tx := range txs {
		changes := map[string]*netChange{}

		ensure := func(mint string) *netChange {
			c, ok := changes[mint]
			if !ok {
				c = &netChange{}
				changes[mint] = c
			}
			return c
		}

		var netSol float64
		for _, tt := range tx.TokenTransfers {
			mint := tt.Mint
			if mint == "" {
				continue
			}
			if mint == solana.WSOLMint {
				// Wrapped SOL is accounted as SOL: net it with the native transfers.
				if tt.ToUserAccount == walletAddress {
					netSol += tt.TokenAmount
				}
				if tt.FromUserAccount == walletAddress {
					netSol -= tt.TokenAmount
				}
				continue
			}
			if tt.ToUserAccount == walletAddress {
				ensure(mint).tokenDelta += tt.TokenAmount
			}
			if tt.FromUserAccount == walletAddress {
				ensure(mint).tokenDelta -= tt.TokenAmount
			}
		}

		for _, nt := range tx.NativeTransfers {
			solAmount := float64(nt.Amount) / 1e9
			if nt.ToUserAccount == walletAddress {
				netSol += solAmount
			}
			if nt.FromUserAccount == walletAddress {
				netSol -= solAmount
			}
		}

		for mint, change := range changes {
			if change.tokenDelta == 0 {
				continue
			}
			direction := db.DirectionIn
			amount := change.tokenDelta
			if change.tokenDelta < 0 {
				direction = db.DirectionOut
				amount = -change.tokenDelta
			}

			associatedSol := netSol
			if associatedSol < 0 {
				associatedSol = -associatedSol
			}

			out = append(out, db.SwapAnalysisInput{
				WalletAddress:      walletAddress,
				Signature:          tx.Signature,
				Mint:               mint,
				Direction:          direction,
				Amount:             amount,
				AssociatedSolValue: associatedSol,
				Timestamp:          tx.Timestamp,
			})
		}

		if netSol != 0 && len(changes) == 0 {
			// Pure SOL movement with no accompanying token transfer: still a
			// swap-relevant record, denominated directly in WSOL so C8/C9 can
			// treat it like any other mint-keyed position.
			direction := db.DirectionIn
			amount := netSol
			if netSol < 0 {
				direction = db.DirectionOut
				amount = -netSol
			}
			out = append(out, db.SwapAnalysisInput{
				WalletAddress:      walletAddress,
				Signature:          tx.Signature,
				Mint:               solana.WSOLMint,
				Direction:          direction,
				Amount:             amount,
				AssociatedSolValue: amount,
				Timestamp:          tx.Timestamp,
			})
		}
	}

	return out
}
