package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solwatch/service/participants"
	"github.com/brojonat/solwatch/service/traders"
)

func TestBuildFirstBuyerRows_AssignsSequentialRank(t *testing.T) {
	ranked := []traders.RankedTrader{
		{FirstBuyer: traders.FirstBuyer{Wallet: "W1", TokenAmount: 10}},
		{FirstBuyer: traders.FirstBuyer{Wallet: "W2", TokenAmount: 5}},
	}
	rows := BuildFirstBuyerRows(ranked)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 2, rows[1].Rank)
}

func TestWriteFirstBuyersCSV_HasFixedHeader(t *testing.T) {
	var buf bytes.Buffer
	rows := []FirstBuyerRow{{Rank: 1, WalletAddress: "W1", TokenAmount: 1.5}}
	require.NoError(t, WriteFirstBuyersCSV(&buf, rows))
	assert.Contains(t, buf.String(), "rank,walletAddress,firstBuyTimestamp,firstBuyDate,firstBuySignature,tokenAmount")
}

func TestAppendParticipantsCSV_DedupsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.csv")

	rows := []participants.Participant{
		{Wallet: "W1", Mint: "M1", BuySignature: "s1", TokenAmount: 1},
	}
	require.NoError(t, AppendParticipantsCSV(path, rows, ParticipantManifestOptions{RunSource: "test"}))
	require.NoError(t, AppendParticipantsCSV(path, rows, ParticipantManifestOptions{RunSource: "test"}))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := splitNonEmptyLines(string(body))
	assert.Len(t, lines, 2, "header + one data row, second append should be a no-op dedup")
}

func TestAppendParticipantsJSONL_DedupsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.jsonl")

	rows := []participants.Participant{
		{Wallet: "W1", Mint: "M1", BuySignature: "s1", TokenAmount: 1},
	}
	require.NoError(t, AppendParticipantsJSONL(path, rows, ParticipantManifestOptions{RunSource: "test"}))
	require.NoError(t, AppendParticipantsJSONL(path, rows, ParticipantManifestOptions{RunSource: "test"}))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := splitNonEmptyLines(string(body))
	assert.Len(t, lines, 1)
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
