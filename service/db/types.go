// Package db owns persistence for wallet bookkeeping and swap records
// (C5), hand-written against pgx/v5 directly. This module's retrieval
// pack did not carry the sqlc-generated query layer the upstream
// service wraps, so the Store here issues SQL directly; see DESIGN.md.
package db

import "time"

// Direction is the side of a swap from the wallet's perspective.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Wallet is the tracked-wallet entity with its sync cursor state.
// Created on first sync; never destroyed.
type Wallet struct {
	Address                      string
	Status                       string
	PollInterval                 time.Duration
	FirstProcessedTimestamp      *int64
	NewestProcessedSignature     *string
	NewestProcessedTimestamp     *int64
	LastSuccessfulFetchTimestamp *int64
	LastPollTime                 *time.Time
	CreatedAt                    time.Time
	UpdatedAt                    time.Time
}

// SwapAnalysisInput is one persisted swap record. Uniqueness key:
// (signature, mint, direction, amount). Immutable once written.
type SwapAnalysisInput struct {
	ID                 int64
	WalletAddress      string
	Signature          string
	Mint               string
	Direction          Direction
	Amount             float64
	AssociatedSolValue float64
	Timestamp          int64
	FeesPaidInSol      *float64
	CreatedAt          time.Time
}

// TransactionData is the lightweight projection C8/C9 consume: just
// enough to compute PnL, volume, and correlation signals.
type TransactionData struct {
	Mint               string
	Timestamp          int64
	Direction          Direction
	Amount             float64
	AssociatedSolValue float64
}

// TimeRange bounds a query by timestamp, inclusive on both ends. A nil
// pointer on either field means unbounded.
type TimeRange struct {
	From *int64
	To   *int64
}
