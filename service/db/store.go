package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brojonat/solwatch/service/metrics"
)

// Store wraps a pgx connection pool with domain-specific operations for
// wallets and swap records. Domain structs (Wallet, SwapAnalysisInput)
// are kept separate from raw row-scanning so callers never depend on
// column layout.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore wraps an existing pool. m may be nil.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{pool: pool, metrics: m}
}

func (s *Store) timeQuery(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordStoreQuery(operation, time.Since(start))
	}
}

// UpsertWallet creates a wallet row if absent, leaving cursor fields
// untouched if it already exists (those are only advanced by
// AdvanceCursor after a successful sync).
func (s *Store) UpsertWallet(ctx context.Context, address string, pollInterval time.Duration) (*Wallet, error) {
	start := time.Now()
	defer s.timeQuery("upsert_wallet", start)

	row := s.pool.QueryRow(ctx, `
		INSERT INTO wallet (address, status, poll_interval)
		VALUES ($1, 'active', $2)
		ON CONFLICT (address) DO UPDATE SET updated_at = now()
		RETURNING address, status, poll_interval, first_processed_timestamp,
		          newest_processed_signature, newest_processed_timestamp,
		          last_successful_fetch_timestamp, last_poll_time, created_at, updated_at
	`, address, pollInterval.Microseconds())

	return scanWallet(row)
}

// GetWallet fetches one wallet by address.
func (s *Store) GetWallet(ctx context.Context, address string) (*Wallet, error) {
	start := time.Now()
	defer s.timeQuery("get_wallet", start)

	row := s.pool.QueryRow(ctx, `
		SELECT address, status, poll_interval, first_processed_timestamp,
		       newest_processed_signature, newest_processed_timestamp,
		       last_successful_fetch_timestamp, last_poll_time, created_at, updated_at
		FROM wallet WHERE address = $1
	`, address)

	return scanWallet(row)
}

// ListWallets returns every tracked wallet.
func (s *Store) ListWallets(ctx context.Context) ([]*Wallet, error) {
	start := time.Now()
	defer s.timeQuery("list_wallets", start)

	rows, err := s.pool.Query(ctx, `
		SELECT address, status, poll_interval, first_processed_timestamp,
		       newest_processed_signature, newest_processed_timestamp,
		       last_successful_fetch_timestamp, last_poll_time, created_at, updated_at
		FROM wallet ORDER BY address
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*Wallet, error) {
	var w Wallet
	var pollIntervalMicros int64
	err := row.Scan(
		&w.Address, &w.Status, &pollIntervalMicros, &w.FirstProcessedTimestamp,
		&w.NewestProcessedSignature, &w.NewestProcessedTimestamp,
		&w.LastSuccessfulFetchTimestamp, &w.LastPollTime, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("wallet not found: %w", err)
		}
		return nil, err
	}
	w.PollInterval = time.Duration(pollIntervalMicros) * time.Microsecond
	return &w, nil
}

// AdvanceCursor updates a wallet's cursor fields after a successful
// sync, setting firstProcessedTimestamp only the first time it is called.
func (s *Store) AdvanceCursor(ctx context.Context, address string, newestSignature string, newestTimestamp int64) error {
	start := time.Now()
	defer s.timeQuery("advance_cursor", start)

	now := time.Now().Unix()
	_, err := s.pool.Exec(ctx, `
		UPDATE wallet SET
			first_processed_timestamp = COALESCE(first_processed_timestamp, $2),
			newest_processed_signature = $3,
			newest_processed_timestamp = $2,
			last_successful_fetch_timestamp = $4,
			last_poll_time = now(),
			updated_at = now()
		WHERE address = $1
	`, address, newestTimestamp, newestSignature, now)
	return err
}

// Save persists records, deduplicating against the uniqueness key
// (signature, mint, direction, amount). It batch-inserts with ON
// CONFLICT DO NOTHING, which satisfies the same no-duplicates contract
// the upstream service achieves via one-at-a-time retry, without
// depending on float-equality comparisons at the application layer.
func (s *Store) Save(ctx context.Context, records []SwapAnalysisInput) (int, error) {
	start := time.Now()
	defer s.timeQuery("save_swaps", start)

	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO swap_analysis_input
				(wallet_address, signature, mint, direction, amount, associated_sol_value, timestamp, fees_paid_in_sol)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (signature, mint, direction, amount) DO NOTHING
		`, r.WalletAddress, r.Signature, r.Mint, string(r.Direction), r.Amount, r.AssociatedSolValue, r.Timestamp, r.FeesPaidInSol)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	written := 0
	duplicates := 0
	for range records {
		tag, err := br.Exec()
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				duplicates++
				continue
			}
			return written, err
		}
		written += int(tag.RowsAffected())
		if tag.RowsAffected() == 0 {
			duplicates++
		}
	}

	if s.metrics != nil {
		s.metrics.RecordStoreWrite("swap_analysis_input", "written", written)
		s.metrics.RecordStoreDuplicates(duplicates)
	}

	return written, nil
}

// GetByWallet returns a wallet's swap records ordered by timestamp
// ascending, optionally bounded by a time range.
func (s *Store) GetByWallet(ctx context.Context, walletAddress string, tr *TimeRange) ([]SwapAnalysisInput, error) {
	start := time.Now()
	defer s.timeQuery("get_by_wallet", start)

	query := strings.Builder{}
	query.WriteString(`
		SELECT id, wallet_address, signature, mint, direction, amount, associated_sol_value, timestamp, fees_paid_in_sol, created_at
		FROM swap_analysis_input WHERE wallet_address = $1
	`)
	args := []any{walletAddress}
	if tr != nil && tr.From != nil {
		args = append(args, *tr.From)
		query.WriteString(fmt.Sprintf(" AND timestamp >= $%d", len(args)))
	}
	if tr != nil && tr.To != nil {
		args = append(args, *tr.To)
		query.WriteString(fmt.Sprintf(" AND timestamp <= $%d", len(args)))
	}
	query.WriteString(" ORDER BY timestamp ASC")

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SwapAnalysisInput
	for rows.Next() {
		var r SwapAnalysisInput
		var direction string
		if err := rows.Scan(&r.ID, &r.WalletAddress, &r.Signature, &r.Mint, &direction, &r.Amount, &r.AssociatedSolValue, &r.Timestamp, &r.FeesPaidInSol, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Direction = Direction(direction)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetByWallets returns a TransactionData projection per wallet, for
// every address in walletAddresses, excluding any mint in excludeMints.
// Used by C8/C9, which never need the full SwapAnalysisInput shape.
func (s *Store) GetByWallets(ctx context.Context, walletAddresses []string, excludeMints []string, tr *TimeRange) (map[string][]TransactionData, error) {
	start := time.Now()
	defer s.timeQuery("get_by_wallets", start)

	out := make(map[string][]TransactionData, len(walletAddresses))
	if len(walletAddresses) == 0 {
		return out, nil
	}

	query := strings.Builder{}
	query.WriteString(`
		SELECT wallet_address, mint, timestamp, direction, amount, associated_sol_value
		FROM swap_analysis_input
		WHERE wallet_address = ANY($1)
	`)
	args := []any{walletAddresses}
	if len(excludeMints) > 0 {
		args = append(args, excludeMints)
		query.WriteString(fmt.Sprintf(" AND mint != ALL($%d)", len(args)))
	}
	if tr != nil && tr.From != nil {
		args = append(args, *tr.From)
		query.WriteString(fmt.Sprintf(" AND timestamp >= $%d", len(args)))
	}
	if tr != nil && tr.To != nil {
		args = append(args, *tr.To)
		query.WriteString(fmt.Sprintf(" AND timestamp <= $%d", len(args)))
	}
	query.WriteString(" ORDER BY wallet_address, timestamp ASC")

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var wallet string
		var td TransactionData
		var direction string
		if err := rows.Scan(&wallet, &td.Mint, &td.Timestamp, &direction, &td.Amount, &td.AssociatedSolValue); err != nil {
			return nil, err
		}
		td.Direction = Direction(direction)
		out[wallet] = append(out[wallet], td)
	}
	return out, rows.Err()
}
