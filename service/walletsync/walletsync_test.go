package walletsync

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solwatch/service/db"
	"github.com/brojonat/solwatch/service/ingest"
	"github.com/brojonat/solwatch/service/solana"
)

type fakeStore struct {
	wallets map[string]*db.Wallet
	saved   []db.SwapAnalysisInput
}

func newFakeStore() *fakeStore {
	return &fakeStore{wallets: map[string]*db.Wallet{}}
}

func (f *fakeStore) GetWallet(ctx context.Context, address string) (*db.Wallet, error) {
	if w, ok := f.wallets[address]; ok {
		return w, nil
	}
	return nil, assert.AnError
}

func (f *fakeStore) UpsertWallet(ctx context.Context, address string, pollInterval time.Duration) (*db.Wallet, error) {
	w := &db.Wallet{Address: address, Status: "active", PollInterval: pollInterval}
	f.wallets[address] = w
	return w, nil
}

func (f *fakeStore) AdvanceCursor(ctx context.Context, address string, newestSignature string, newestTimestamp int64) error {
	w := f.wallets[address]
	w.NewestProcessedSignature = &newestSignature
	w.NewestProcessedTimestamp = &newestTimestamp
	return nil
}

func (f *fakeStore) Save(ctx context.Context, records []db.SwapAnalysisInput) (int, error) {
	f.saved = append(f.saved, records...)
	return len(records), nil
}

type fakeEngine struct {
	cfgSeen ingest.Config
	batch   []solana.ParsedTransaction
}

func (f *fakeEngine) Ingest(ctx context.Context, address string, cfg ingest.Config, onBatch ingest.BatchFunc, onProgress ingest.ProgressFunc) ([]solana.ParsedTransaction, error) {
	f.cfgSeen = cfg
	if onBatch != nil {
		if err := onBatch(f.batch); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSyncWallet_NewWalletDoesFullFetchWithCap(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	svc := New(store, engine, testLogger())

	_, err := svc.SyncWallet(context.Background(), "wallet1", Options{
		SmartFetch:      true,
		TargetTxCount:   100,
		MinFullFetchCap: 300,
	})
	require.NoError(t, err)

	assert.Equal(t, "", engine.cfgSeen.StopAtSignature)
	assert.Equal(t, 300, engine.cfgSeen.MaxSignatures, "cap should fall back to MinFullFetchCap when targetTxCount*1.5 is smaller")
}

func TestSyncWallet_ExistingCursorUsesIncrementalStopAtSignature(t *testing.T) {
	store := newFakeStore()
	sig := "cursor-sig"
	ts := int64(12345)
	store.wallets["wallet1"] = &db.Wallet{Address: "wallet1", NewestProcessedSignature: &sig, NewestProcessedTimestamp: &ts}
	engine := &fakeEngine{}
	svc := New(store, engine, testLogger())

	res, err := svc.SyncWallet(context.Background(), "wallet1", Options{SmartFetch: true, TargetTxCount: 50})
	require.NoError(t, err)

	assert.Equal(t, sig, engine.cfgSeen.StopAtSignature)
	assert.True(t, res.Incremental)
}

func TestSyncWallet_PersistsBatchesAndAdvancesCursor(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{
		batch: []solana.ParsedTransaction{
			{Signature: "s1", Timestamp: 100, FeePayer: "wallet1"},
			{Signature: "s2", Timestamp: 200, FeePayer: "wallet1"},
		},
	}
	svc := New(store, engine, testLogger())

	res, err := svc.SyncWallet(context.Background(), "wallet1", Options{TargetTxCount: 10, MinFullFetchCap: 300})
	require.NoError(t, err)

	assert.Greater(t, res.RecordsPersisted, -1)
	w := store.wallets["wallet1"]
	require.NotNil(t, w.NewestProcessedSignature)
	assert.Equal(t, "s2", *w.NewestProcessedSignature, "cursor should advance to the newest timestamp seen")
}
