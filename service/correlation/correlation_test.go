package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solwatch/service/db"
)

func baseConfig() Config {
	return Config{
		PopularPercent:           0,
		MinOccurrencesForPopular: 10,
		ExcludedMints:            map[string]bool{},
		SyncTimeWindowSeconds:    60,
		WeightSharedNonObvious:   1,
		WeightSyncEvents:         1,
		MinSharedNonObvious:      1,
		MinSyncEvents:            1,
		MinClusterScoreThreshold: 1,
	}
}

func TestAnalyze_TwoDisjointWalletsNoSharedMints(t *testing.T) {
	txs := map[string][]db.TransactionData{
		"W1": {
			{Mint: "A", Direction: db.DirectionIn, Amount: 1, Timestamp: 1},
			{Mint: "B", Direction: db.DirectionOut, Amount: 0.5, Timestamp: 2},
		},
		"W2": {
			{Mint: "C", Direction: db.DirectionIn, Amount: 1, Timestamp: 3},
		},
	}
	res := Analyze(txs, baseConfig())
	assert.Empty(t, res.Pairs)
	assert.Empty(t, res.Clusters)
	assert.Equal(t, 3, res.GlobalStats.TotalUniqueTokens)
}

func TestAnalyze_OneSharedNonObviousMintNoSync(t *testing.T) {
	txs := map[string][]db.TransactionData{
		"W1": {{Mint: "X", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 100}},
		"W2": {{Mint: "X", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 9999}},
	}
	cfg := baseConfig()
	res := Analyze(txs, cfg)
	require.Len(t, res.Pairs, 1)
	p := res.Pairs[0]
	assert.Equal(t, "W1", p.WalletA)
	assert.Equal(t, "W2", p.WalletB)
	require.Len(t, p.SharedNonObvious, 1)
	assert.Equal(t, "X", p.SharedNonObvious[0].Mint)
	assert.Empty(t, p.SyncEvents)
	assert.InDelta(t, 1*cfg.WeightSharedNonObvious, p.Score, 1e-9)
}

func TestAnalyze_SynchronizedTradeEmitsSyncEvent(t *testing.T) {
	txs := map[string][]db.TransactionData{
		"W1": {{Mint: "X", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 1000}},
		"W2": {{Mint: "X", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 1005}},
	}
	cfg := baseConfig()
	res := Analyze(txs, cfg)
	require.Len(t, res.Pairs, 1)
	require.Len(t, res.Pairs[0].SyncEvents, 1)
	ev := res.Pairs[0].SyncEvents[0]
	assert.Equal(t, "X", ev.Mint)
	assert.Equal(t, int64(1000), ev.TimestampA)
	assert.Equal(t, int64(1005), ev.TimestampB)
	assert.Equal(t, int64(5), ev.DiffSeconds)
}

func TestAnalyze_ClusterOfThree(t *testing.T) {
	txs := map[string][]db.TransactionData{
		"W1": {{Mint: "X", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 1000}},
		"W2": {{Mint: "X", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 1005}},
		"W3": {{Mint: "X", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 1010}},
		"W4": {{Mint: "Y", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 50000}},
	}
	cfg := baseConfig()
	res := Analyze(txs, cfg)
	require.Len(t, res.Clusters, 1)
	assert.ElementsMatch(t, []string{"W1", "W2", "W3"}, res.Clusters[0].Members)
	for _, p := range res.Pairs {
		assert.NotContains(t, []string{p.WalletA, p.WalletB}, "W4")
	}
}

func TestAnalyze_ScoreExcludesPopularAndExcludedMints(t *testing.T) {
	cfg := baseConfig()
	cfg.ExcludedMints = map[string]bool{"EX": true}
	txs := map[string][]db.TransactionData{
		"W1": {
			{Mint: "POP", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 1},
			{Mint: "EX", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 1},
		},
		"W2": {
			{Mint: "POP", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 1},
			{Mint: "EX", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 1},
		},
	}
	// 10 more occurrences of POP across other wallets (12 in total) push it over minOccurrencesForPopular.
	for i := 0; i < 10; i++ {
		wallet := string(rune('a' + i))
		txs[wallet] = []db.TransactionData{{Mint: "POP", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: int64(i)}}
	}
	res := Analyze(txs, cfg)
	assert.True(t, res.GlobalStats.Popular["POP"])
	for _, p := range res.Pairs {
		for _, s := range p.SharedNonObvious {
			assert.NotEqual(t, "POP", s.Mint)
			assert.NotEqual(t, "EX", s.Mint)
		}
	}
}

func TestApplyBotFilter_ExcludesHighFrequencyDailyBuyers(t *testing.T) {
	txs := map[string][]db.TransactionData{
		"bot": {
			{Mint: "A", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 0},
			{Mint: "B", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 10},
			{Mint: "C", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 20},
		},
		"human": {
			{Mint: "A", Direction: db.DirectionIn, AssociatedSolValue: 1, Timestamp: 0},
		},
	}
	out := applyBotFilter(txs, 2)
	_, botPresent := out["bot"]
	_, humanPresent := out["human"]
	assert.False(t, botPresent)
	assert.True(t, humanPresent)
}
