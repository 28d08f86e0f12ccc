// Package report writes first-buyer reports and mint-participants
// manifests to JSON, CSV, Markdown, and JSONL, following the fixed
// column layouts the downstream consumers of these files expect.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/brojonat/solwatch/service/participants"
	"github.com/brojonat/solwatch/service/traders"
)

// FirstBuyerRow is one row of a first-buyer report.
type FirstBuyerRow struct {
	Rank              int     `json:"rank"`
	WalletAddress     string  `json:"walletAddress"`
	FirstBuyTimestamp int64   `json:"firstBuyTimestamp"`
	FirstBuyDate      string  `json:"firstBuyDate"`
	FirstBuySignature string  `json:"firstBuySignature"`
	TokenAmount       float64 `json:"tokenAmount"`
}

// BuildFirstBuyerRows converts ranked buyers into report rows, in the
// order given (caller picks tokenAmount or PnL ordering beforehand).
func BuildFirstBuyerRows(ranked []traders.RankedTrader) []FirstBuyerRow {
	rows := make([]FirstBuyerRow, 0, len(ranked))
	for i, r := range ranked {
		rows = append(rows, FirstBuyerRow{
			Rank:              i + 1,
			WalletAddress:     r.Wallet,
			FirstBuyTimestamp: r.FirstBuyTimestamp,
			FirstBuyDate:      time.Unix(r.FirstBuyTimestamp, 0).UTC().Format(time.RFC3339),
			FirstBuySignature: r.FirstBuySignature,
			TokenAmount:       r.TokenAmount,
		})
	}
	return rows
}

// WriteFirstBuyersJSON writes the full row array as indented JSON.
func WriteFirstBuyersJSON(w io.Writer, rows []FirstBuyerRow) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteFirstBuyersCSV writes one row per buyer with a fixed header.
func WriteFirstBuyersCSV(w io.Writer, rows []FirstBuyerRow) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"rank", "walletAddress", "firstBuyTimestamp", "firstBuyDate", "firstBuySignature", "tokenAmount"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Rank),
			r.WalletAddress,
			strconv.FormatInt(r.FirstBuyTimestamp, 10),
			r.FirstBuyDate,
			r.FirstBuySignature,
			strconv.FormatFloat(r.TokenAmount, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return cw.Error()
}

// WriteFirstBuyersMarkdown writes a Markdown table.
func WriteFirstBuyersMarkdown(w io.Writer, rows []FirstBuyerRow) error {
	if _, err := fmt.Fprintln(w, "| Rank | Wallet | First Buy (UTC) | Token Amount | Signature |"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "|---|---|---|---|---|"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "| %d | %s | %s | %s | %s |\n",
			r.Rank, r.WalletAddress, r.FirstBuyDate, strconv.FormatFloat(r.TokenAmount, 'f', -1, 64), r.FirstBuySignature); err != nil {
			return err
		}
	}
	return nil
}

// participantCSVHeader is the fixed column layout every mint-participants
// CSV manifest must carry, so append-only consumers can rely on it.
var participantCSVHeader = []string{
	"wallet", "mint", "cutoffTs", "buyTs", "buyIso", "signature", "tokenAmount",
	"stakeSol", "tokenAccountsCount", "txCountScanned", "walletCreatedAtTs",
	"walletCreatedAtIso", "accountAgeDays", "creationScanMode", "creationScanPages",
	"runScannedAtIso", "runSource",
}

// ParticipantManifestOptions carries run metadata recorded alongside
// each row. The creation-scan fields are written as given; no creation
// scan is performed.
type ParticipantManifestOptions struct {
	CreationScanMode  string
	CreationScanPages int
	RunSource         string
}

func participantRecord(p participants.Participant, opts ParticipantManifestOptions) []string {
	return []string{
		p.Wallet,
		p.Mint,
		strconv.FormatInt(p.CutoffTs, 10),
		strconv.FormatInt(p.BuyTs, 10),
		time.Unix(p.BuyTs, 0).UTC().Format(time.RFC3339),
		p.BuySignature,
		strconv.FormatFloat(p.TokenAmount, 'f', -1, 64),
		strconv.FormatFloat(p.StakeSol, 'f', -1, 64),
		strconv.Itoa(p.TokenAccountsCount),
		strconv.Itoa(p.TxCountScanned),
		strconv.FormatInt(p.WalletCreatedAtTs, 10),
		time.Unix(p.WalletCreatedAtTs, 0).UTC().Format(time.RFC3339),
		strconv.FormatFloat(p.AccountAgeDays, 'f', -1, 64),
		opts.CreationScanMode,
		strconv.Itoa(opts.CreationScanPages),
		p.RunScannedAt.UTC().Format(time.RFC3339),
		opts.RunSource,
	}
}

// AppendParticipantsCSV appends rows to a CSV manifest at path,
// writing the fixed header only if the file does not already exist,
// and deduplicating against existing (wallet,signature) keys already
// present in the file.
func AppendParticipantsCSV(path string, rows []participants.Participant, opts ParticipantManifestOptions) error {
	existing, err := existingCSVDedupKeys(path)
	if err != nil {
		return err
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening participants manifest %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(participantCSVHeader); err != nil {
			return err
		}
	}

	for _, p := range rows {
		key := p.Wallet + "|" + p.BuySignature
		if existing[key] {
			continue
		}
		if err := cw.Write(participantRecord(p, opts)); err != nil {
			return err
		}
		existing[key] = true
	}

	return cw.Error()
}

func existingCSVDedupKeys(path string) (map[string]bool, error) {
	keys := map[string]bool{}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return keys, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading existing manifest %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing existing manifest %s: %w", path, err)
	}
	for i, rec := range records {
		if i == 0 || len(rec) < 6 {
			continue // header row
		}
		keys[rec[0]+"|"+rec[5]] = true
	}
	return keys, nil
}

// AppendParticipantsJSONL appends one JSON object per line, deduplicating
// against existing (wallet,signature) keys already present in the file.
func AppendParticipantsJSONL(path string, rows []participants.Participant, opts ParticipantManifestOptions) error {
	existing, err := existingJSONLDedupKeys(path)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening participants manifest %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, p := range rows {
		key := p.Wallet + "|" + p.BuySignature
		if existing[key] {
			continue
		}
		entry := participantJSONLEntry(p, opts)
		if err := enc.Encode(entry); err != nil {
			return err
		}
		existing[key] = true
	}
	return nil
}

func participantJSONLEntry(p participants.Participant, opts ParticipantManifestOptions) map[string]any {
	return map[string]any{
		"wallet":              p.Wallet,
		"mint":                p.Mint,
		"cutoffTs":            p.CutoffTs,
		"buyTs":               p.BuyTs,
		"buyIso":              time.Unix(p.BuyTs, 0).UTC().Format(time.RFC3339),
		"signature":           p.BuySignature,
		"tokenAmount":         p.TokenAmount,
		"stakeSol":            p.StakeSol,
		"tokenAccountsCount":  p.TokenAccountsCount,
		"txCountScanned":      p.TxCountScanned,
		"walletCreatedAtTs":   p.WalletCreatedAtTs,
		"walletCreatedAtIso":  time.Unix(p.WalletCreatedAtTs, 0).UTC().Format(time.RFC3339),
		"accountAgeDays":      p.AccountAgeDays,
		"creationScanMode":    opts.CreationScanMode,
		"creationScanPages":   opts.CreationScanPages,
		"runScannedAtIso":     p.RunScannedAt.UTC().Format(time.RFC3339),
		"runSource":           opts.RunSource,
	}
}

func existingJSONLDedupKeys(path string) (map[string]bool, error) {
	keys := map[string]bool{}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return keys, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading existing manifest %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	for dec.More() {
		var entry struct {
			Wallet    string `json:"wallet"`
			Signature string `json:"signature"`
		}
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("parsing existing manifest %s: %w", path, err)
		}
		keys[entry.Wallet+"|"+entry.Signature] = true
	}
	return keys, nil
}
