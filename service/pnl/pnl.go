// Package pnl implements the PnL calculator (C8): realized SOL PnL and
// volume per (wallet, mint) from swap records, plus a holding-time
// behavioral classification supplementing the analytics the original
// system exposes alongside its correlation analyzer.
package pnl

import "github.com/brojonat/solwatch/service/db"

// WalletPnL is the realized PnL and volume for one wallet across all
// its swap records.
type WalletPnL struct {
	RealizedSol   float64
	TotalVolumeSol float64
}

// Compute returns realizedSol and totalVolumeSol per wallet. Realized
// SOL is the sum of associatedSolValue for direction=out minus the sum
// for direction=in, excluding zero-SOL entries. Volume is the sum of
// absolute associatedSolValue.
func Compute(transactionsByWallet map[string][]db.TransactionData) map[string]WalletPnL {
	out := make(map[string]WalletPnL, len(transactionsByWallet))
	for wallet, txs := range transactionsByWallet {
		out[wallet] = computeOne(txs)
	}
	return out
}

func computeOne(txs []db.TransactionData) WalletPnL {
	var realized, volume float64
	for _, tx := range txs {
		if tx.AssociatedSolValue == 0 {
			continue
		}
		abs := tx.AssociatedSolValue
		if abs < 0 {
			abs = -abs
		}
		volume += abs
		switch tx.Direction {
		case db.DirectionOut:
			realized += abs
		case db.DirectionIn:
			realized -= abs
		}
	}
	return WalletPnL{RealizedSol: realized, TotalVolumeSol: volume}
}

// ComputeByMint returns realizedSol/totalVolumeSol scoped to (wallet, mint).
// Used by C10 when ranking first-buyers by PnL scoped to a single mint.
func ComputeByMint(transactionsByWallet map[string][]db.TransactionData, mint string) map[string]WalletPnL {
	scoped := make(map[string][]db.TransactionData, len(transactionsByWallet))
	for wallet, txs := range transactionsByWallet {
		var filtered []db.TransactionData
		for _, tx := range txs {
			if tx.Mint == mint {
				filtered = append(filtered, tx)
			}
		}
		if len(filtered) > 0 {
			scoped[wallet] = filtered
		}
	}
	return Compute(scoped)
}

// HoldingBucket classifies how long a wallet held a position before
// closing it.
type HoldingBucket string

const (
	BucketFlip     HoldingBucket = "flip"     // < 5 minutes
	BucketScalp    HoldingBucket = "scalp"    // < 1 hour
	BucketSwing    HoldingBucket = "swing"    // < 1 day
	BucketPosition HoldingBucket = "position" // >= 1 day
)

// HoldingProfile buckets a wallet's per-mint round trips by holding time.
type HoldingProfile struct {
	Counts map[HoldingBucket]int
}

// ClassifyHoldingTime buckets round trips: for each mint, pairs the
// earliest "in" with the next "out" that follows it chronologically,
// repeating until either side is exhausted. Unmatched legs (no closing
// out, or a leading out with no prior in) are ignored.
func ClassifyHoldingTime(txs []db.TransactionData) HoldingProfile {
	profile := HoldingProfile{Counts: map[HoldingBucket]int{}}

	byMint := map[string][]db.TransactionData{}
	for _, tx := range txs {
		byMint[tx.Mint] = append(byMint[tx.Mint], tx)
	}

	for _, mintTxs := range byMint {
		sorted := append([]db.TransactionData(nil), mintTxs...)
		insertionSortByTimestamp(sorted)

		var openIn *db.TransactionData
		for i := range sorted {
			tx := sorted[i]
			switch tx.Direction {
			case db.DirectionIn:
				if openIn == nil {
					openIn = &sorted[i]
				}
			case db.DirectionOut:
				if openIn != nil {
					held := tx.Timestamp - openIn.Timestamp
					profile.Counts[bucketFor(held)]++
					openIn = nil
				}
			}
		}
	}

	return profile
}

func bucketFor(heldSeconds int64) HoldingBucket {
	switch {
	case heldSeconds < 5*60:
		return BucketFlip
	case heldSeconds < 60*60:
		return BucketScalp
	case heldSeconds < 24*60*60:
		return BucketSwing
	default:
		return BucketPosition
	}
}

func insertionSortByTimestamp(txs []db.TransactionData) {
	for i := 1; i < len(txs); i++ {
		for j := i; j > 0 && txs[j-1].Timestamp > txs[j].Timestamp; j-- {
			txs[j-1], txs[j] = txs[j], txs[j-1]
		}
	}
}
