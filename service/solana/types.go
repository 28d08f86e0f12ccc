// Package solana wraps the Solana JSON-RPC endpoint and the Helius
// enhanced-transactions endpoint behind a single client, applying the
// process-global rate limiter, retry/backoff policy, and error
// sanitization every outbound call must go through.
package solana

// SignatureInfo is the RPC's view of a signature in an address's history,
// as returned by getSignaturesForAddress. It is transient: callers use it
// to decide retry/classification behavior, never persist it verbatim.
type SignatureInfo struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Err       any    `json:"err"`
}

// Failed reports whether the on-chain transaction this signature refers
// to failed execution. A failed transaction is excluded from all
// downstream analyses.
func (s SignatureInfo) Failed() bool {
	return s.Err != nil
}

// TokenTransfer is one SPL token movement inside a parsed transaction.
type TokenTransfer struct {
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
	Mint            string  `json:"mint"`
	TokenAmount     float64 `json:"tokenAmount"`
}

// NativeTransfer is one SOL (lamport) movement inside a parsed transaction.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"` // lamports
}

// AccountDataDelta captures the net balance change observed for one
// account touched by the transaction, as the Helius-style payload reports
// it (native balance change plus per-token balance changes).
type AccountDataDelta struct {
	Account             string                `json:"account"`
	NativeBalanceChange int64                 `json:"nativeBalanceChange"`
	TokenBalanceChanges []TokenBalanceChange `json:"tokenBalanceChanges"`
}

// TokenBalanceChange is one mint's balance delta for a given account,
// part of an AccountDataDelta entry.
type TokenBalanceChange struct {
	Mint         string  `json:"mint"`
	RawTokenAmount float64 `json:"rawTokenAmount"`
	UserAccount  string  `json:"userAccount"`
}

// SwapEventLeg names one side of a decoded DEX swap event, when the
// indexer was able to classify the transaction as a swap.
type SwapEventLeg struct {
	Mint   string  `json:"mint"`
	Amount float64 `json:"amount"`
	UserAccount string `json:"userAccount"`
}

// SwapEvent is the optional, best-effort decoded swap summary some
// indexers attach to a parsed transaction. It is present only when the
// indexer recognized the instruction pattern of a known DEX program.
type SwapEvent struct {
	TokenInputs  []SwapEventLeg `json:"tokenInputs"`
	TokenOutputs []SwapEventLeg `json:"tokenOutputs"`
}

// ParsedTransaction is the opaque, externally-produced record the
// indexer returns for a given signature. It is never mutated after
// being received; service/mapper is the sole consumer that interprets
// its contents.
type ParsedTransaction struct {
	Signature      string           `json:"signature"`
	Timestamp      int64            `json:"timestamp"` // unix seconds
	FeePayer       string           `json:"feePayer"`
	Slot           uint64           `json:"slot"`
	TokenTransfers []TokenTransfer  `json:"tokenTransfers"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers"`
	AccountData    []AccountDataDelta `json:"accountData"`
	Events         *TransactionEvents `json:"events,omitempty"`
}

// TransactionEvents wraps the optional decoded-event section of a
// parsed transaction. Only Swap is modeled; other indexer event kinds
// (NFT sales, compressed-NFT events, etc.) are out of scope.
type TransactionEvents struct {
	Swap *SwapEvent `json:"swap,omitempty"`
}

// WSOLMint is the wrapped-SOL mint address. Transfers of this mint are
// accounted as native SOL everywhere in this system, per the mapper's
// contract.
const WSOLMint = "So11111111111111111111111111111111111111112"
