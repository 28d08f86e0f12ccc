package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"

	"github.com/brojonat/solwatch/service/metrics"
	"github.com/brojonat/solwatch/service/ratelimit"
)

// ErrNonRetryable marks an error the retry loop must not retry: a
// non-429 4xx response, or an RPC message containing "invalid param" or
// "wrongsize".
var ErrNonRetryable = errors.New("non-retryable rpc error")

const maxRetries = 3

var apiKeyPattern = regexp.MustCompile(`api-key=[^&\s]+`)

// sanitize redacts Helius API keys embedded in URLs before an error
// message is logged, and strips embedded stack-trace-looking newlines.
func sanitize(msg string) string {
	msg = apiKeyPattern.ReplaceAllString(msg, "api-key=REDACTED")
	if idx := strings.Index(msg, "\n"); idx >= 0 {
		msg = msg[:idx]
	}
	return msg
}

// RPCClient is the subset of the Solana JSON-RPC surface this package
// needs. It exists so tests can substitute a fake without hitting a
// real node, matching the teacher's RPCClient interface pattern.
type RPCClient interface {
	GetSignaturesForAddressWithOpts(ctx context.Context, address solana.PublicKey, opts *solrpc.GetSignaturesForAddressOpts) ([]*solrpc.TransactionSignature, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *solrpc.GetTokenAccountsConfig, opts *solrpc.GetTokenAccountsOpts) (*solrpc.GetTokenAccountsResult, error)
	GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) (*solrpc.GetMultipleAccountsResult, error)
}

// Client talks to a Solana JSON-RPC endpoint and a Helius enhanced
// transactions endpoint, serializing every outbound call through the
// shared process-global rate limiter.
type Client struct {
	rpc        RPCClient
	httpClient *http.Client
	heliusBase string
	heliusKey  string
	limiter    *ratelimit.Limiter
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient builds a Client. heliusKey may be empty when only plain
// JSON-RPC (no enhanced-transactions endpoint) is configured.
func NewClient(rpcURL, heliusBaseURL, heliusKey string, requestTimeout time.Duration, limiter *ratelimit.Limiter, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:        solrpc.New(rpcURL),
		httpClient: &http.Client{Timeout: requestTimeout},
		heliusBase: heliusBaseURL,
		heliusKey:  heliusKey,
		limiter:    limiter,
		metrics:    m,
		logger:     logger,
	}
}

// withRetry runs fn up to maxRetries+1 times with exponential backoff
// (1s, 2s, 4s), retrying only errors classified as retryable. Every
// attempt first acquires the rate limiter, so retries still respect the
// global ordering.
func (c *Client) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, ErrNonRetryable) {
			c.logger.WarnContext(ctx, "rpc call failed non-retryably", "op", op, "err", sanitize(err.Error()))
			return err
		}

		if attempt == maxRetries {
			break
		}

		if c.metrics != nil {
			c.metrics.RecordRPCRetry(op)
		}
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		c.logger.WarnContext(ctx, "rpc call failed, retrying", "op", op, "attempt", attempt+1, "backoff", backoff, "err", sanitize(err.Error()))

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s: retries exhausted: %w", op, lastErr)
}

// classifyHTTPError inspects an HTTP status/body and returns an error
// wrapped in ErrNonRetryable when it is not worth retrying.
func classifyHTTPError(status int, body string) error {
	msg := strings.ToLower(body)
	if status == http.StatusTooManyRequests || status >= 500 {
		return fmt.Errorf("http %d: %s", status, body)
	}
	if strings.Contains(msg, "invalid param") || strings.Contains(msg, "wrongsize") {
		return fmt.Errorf("%w: http %d: %s", ErrNonRetryable, status, body)
	}
	if status >= 400 {
		return fmt.Errorf("%w: http %d: %s", ErrNonRetryable, status, body)
	}
	return fmt.Errorf("http %d: %s", status, body)
}

// GetSignaturesPage pages getSignaturesForAddress oldest-backwards from
// `before` (when set). The RPC's natural order (newest-first) is
// preserved; callers needing chronological order must reverse it
// themselves (service/traders does, for first-buyer detection).
func (c *Client) GetSignaturesPage(ctx context.Context, address string, limit int, before string) ([]SignatureInfo, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid address: %v", ErrNonRetryable, err)
	}

	opts := &solrpc.GetSignaturesForAddressOpts{Limit: &limit}
	if before != "" {
		sig, err := solana.SignatureFromBase58(before)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid before signature: %v", ErrNonRetryable, err)
		}
		opts.Before = sig
	}

	var out []SignatureInfo
	err = c.withRetry(ctx, "getSignaturesForAddress", func(ctx context.Context) error {
		start := time.Now()
		result, callErr := c.rpc.GetSignaturesForAddressWithOpts(ctx, pubkey, opts)
		if c.metrics != nil {
			c.metrics.RecordRPCCall("getSignaturesForAddress", time.Since(start), callErr == nil)
		}
		if callErr != nil {
			return classifyRPCErr(callErr)
		}
		out = make([]SignatureInfo, 0, len(result))
		for _, r := range result {
			var bt *int64
			if r.BlockTime != nil {
				v := int64(*r.BlockTime)
				bt = &v
			}
			out = append(out, SignatureInfo{
				Signature: r.Signature.String(),
				Slot:      r.Slot,
				BlockTime: bt,
				Err:       r.Err,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RecordSignaturesPerCall(len(out))
	}
	return out, nil
}

func classifyRPCErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "invalid param") || strings.Contains(msg, "wrongsize") {
		return fmt.Errorf("%w: %v", ErrNonRetryable, err)
	}
	return err
}

// heliusTransactionsRequest is the POST body for Helius's enhanced
// transactions endpoint.
type heliusTransactionsRequest struct {
	Transactions []string `json:"transactions"`
}

// GetTransactionsBatch fetches parsed transaction details for up to 100
// signatures via the Helius enhanced-transactions endpoint. The Helius
// response MAY be shorter than the request (some signatures not yet
// indexed); callers diff the returned set against the request to
// classify the gap.
func (c *Client) GetTransactionsBatch(ctx context.Context, signatures []string) ([]ParsedTransaction, error) {
	if len(signatures) == 0 {
		return nil, nil
	}
	if len(signatures) > 100 {
		return nil, fmt.Errorf("%w: batch exceeds 100 signatures", ErrNonRetryable)
	}

	url := fmt.Sprintf("%s/v0/transactions?api-key=%s", c.heliusBase, c.heliusKey)
	var out []ParsedTransaction

	err := c.withRetry(ctx, "getTransactionsBatch", func(ctx context.Context) error {
		body, marshalErr := json.Marshal(heliusTransactionsRequest{Transactions: signatures})
		if marshalErr != nil {
			return fmt.Errorf("%w: %v", ErrNonRetryable, marshalErr)
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if reqErr != nil {
			return fmt.Errorf("%w: %v", ErrNonRetryable, reqErr)
		}
		req.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			if c.metrics != nil {
				c.metrics.RecordRPCCall("getTransactionsBatch", time.Since(start), false)
			}
			return fmt.Errorf("connection error: %w", doErr)
		}
		defer resp.Body.Close()

		respBody, readErr := io.ReadAll(resp.Body)
		if c.metrics != nil {
			c.metrics.RecordRPCCall("getTransactionsBatch", time.Since(start), resp.StatusCode == http.StatusOK)
		}
		if readErr != nil {
			return fmt.Errorf("reading response: %w", readErr)
		}

		if resp.StatusCode != http.StatusOK {
			return classifyHTTPError(resp.StatusCode, string(respBody))
		}

		var parsed []ParsedTransaction
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return fmt.Errorf("envelope decode error: %w", err)
		}
		out = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RecordSignaturesPerCall(len(out))
	}
	return out, nil
}

// TokenAccount is one entry returned by getTokenAccountsByOwner.
type TokenAccount struct {
	Pubkey   string
	Mint     string
	Amount   uint64
	Decimals uint8
}

// GetTokenAccountsByOwner returns the owner's token accounts, optionally
// filtered to a single mint, used by service/participants to compute
// tokenAccountsCount.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner string, mint string) ([]TokenAccount, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid owner: %v", ErrNonRetryable, err)
	}

	conf := solrpc.GetTokenAccountsConfig{ProgramId: &solana.TokenProgramID}
	if mint != "" {
		mintKey, mErr := solana.PublicKeyFromBase58(mint)
		if mErr != nil {
			return nil, fmt.Errorf("%w: invalid mint: %v", ErrNonRetryable, mErr)
		}
		conf = solrpc.GetTokenAccountsConfig{Mint: &mintKey}
	}

	var out []TokenAccount
	err = c.withRetry(ctx, "getTokenAccountsByOwner", func(ctx context.Context) error {
		start := time.Now()
		result, callErr := c.rpc.GetTokenAccountsByOwner(ctx, ownerKey, &conf, &solrpc.GetTokenAccountsOpts{
			Encoding: solana.EncodingJSONParsed,
		})
		if c.metrics != nil {
			c.metrics.RecordRPCCall("getTokenAccountsByOwner", time.Since(start), callErr == nil)
		}
		if callErr != nil {
			return classifyRPCErr(callErr)
		}
		out = make([]TokenAccount, 0, len(result.Value))
		for _, v := range result.Value {
			out = append(out, TokenAccount{Pubkey: v.Pubkey.String(), Mint: mint})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AccountInfo is the subset of getMultipleAccounts' response this system
// needs: raw lamport balance and owning program, enough to tell a stake
// account apart from a system account.
type AccountInfo struct {
	Pubkey   string
	Lamports uint64
	Owner    string
	Exists   bool
}

// GetMultipleAccounts fetches account info for up to 100 pubkeys in one
// call.
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []string) ([]AccountInfo, error) {
	if len(pubkeys) > 100 {
		return nil, fmt.Errorf("%w: batch exceeds 100 pubkeys", ErrNonRetryable)
	}
	keys := make([]solana.PublicKey, 0, len(pubkeys))
	for _, p := range pubkeys {
		key, err := solana.PublicKeyFromBase58(p)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid pubkey %s: %v", ErrNonRetryable, p, err)
		}
		keys = append(keys, key)
	}

	var out []AccountInfo
	err := c.withRetry(ctx, "getMultipleAccounts", func(ctx context.Context) error {
		start := time.Now()
		result, callErr := c.rpc.GetMultipleAccounts(ctx, keys...)
		if c.metrics != nil {
			c.metrics.RecordRPCCall("getMultipleAccounts", time.Since(start), callErr == nil)
		}
		if callErr != nil {
			return classifyRPCErr(callErr)
		}
		out = make([]AccountInfo, len(keys))
		for i, key := range keys {
			out[i] = AccountInfo{Pubkey: key.String()}
			if i < len(result.Value) && result.Value[i] != nil {
				acc := result.Value[i]
				out[i].Lamports = acc.Lamports
				out[i].Owner = acc.Owner.String()
				out[i].Exists = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// IsValidBase58 sanity-checks a signature or mint string without paying
// for a full solana.PublicKey/Signature parse: it only answers "does
// this look like a real base58 identifier".
func IsValidBase58(s string) bool {
	if len(s) == 0 {
		return false
	}
	_, err := base58.Decode(s)
	return err == nil
}
