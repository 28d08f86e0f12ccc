package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DiagnosticsWriter writes one JSON manifest per kind per run to Dir,
// following the naming scheme the ingestion engine's contract specifies:
// legit-missing-<addr>-<ts>.json, reconcile-<addr>-<ts>.json,
// cap-compare-<addr>-<ts>.json, rpc-manifest-pre/postcap-<addr>-<ts>.json.
type DiagnosticsWriter struct {
	Dir     string
	Enabled bool
	// CapCompare gates the cap-compare manifest specifically, per the
	// spec's "emit cap-compare only when a debug flag is set" note.
	CapCompare bool
}

func (d *DiagnosticsWriter) write(kind, address string, runTimestamp int64, payload any) error {
	if d == nil || !d.Enabled {
		return nil
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("creating diagnostics dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s-%d.json", kind, address, runTimestamp)
	path := filepath.Join(d.Dir, name)

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling diagnostics payload: %w", err)
	}
	return os.WriteFile(path, body, 0o644)
}

// WriteLegitMissing records signatures still missing after the phase 2c
// retry pass.
func (d *DiagnosticsWriter) WriteLegitMissing(address string, runTimestamp int64, signatures []string) error {
	return d.write("legit-missing", address, runTimestamp, map[string]any{
		"address":    address,
		"generatedAt": time.Now().Unix(),
		"signatures": signatures,
	})
}

// WriteReconcile records the outcome of phase 3's reconciliation pass.
func (d *DiagnosticsWriter) WriteReconcile(address string, runTimestamp int64, rpcSigCount, cachedCount int, residual []string) error {
	return d.write("reconcile", address, runTimestamp, map[string]any{
		"address":      address,
		"generatedAt":  time.Now().Unix(),
		"rpcSigCount":  rpcSigCount,
		"cachedCount":  cachedCount,
		"residual":     residual,
	})
}

// WriteCapCompare records the divergence between RPC-order cap and a
// blockTime-sorted cap, for debugging only; RPC order remains the
// contract regardless of what this reports.
func (d *DiagnosticsWriter) WriteCapCompare(address string, runTimestamp int64, rpcOrderCut, blockTimeOrderCut []string) error {
	if d == nil || !d.CapCompare {
		return nil
	}
	return d.write("cap-compare", address, runTimestamp, map[string]any{
		"address":           address,
		"generatedAt":       time.Now().Unix(),
		"rpcOrderCut":       rpcOrderCut,
		"blockTimeOrderCut": blockTimeOrderCut,
	})
}

// WriteRPCManifest records the full signature list before or after cap
// application, for debugging pagination issues.
func (d *DiagnosticsWriter) WriteRPCManifest(stage, address string, runTimestamp int64, signatures []string) error {
	kind := "rpc-manifest-" + stage
	return d.write(kind, address, runTimestamp, map[string]any{
		"address":     address,
		"generatedAt": time.Now().Unix(),
		"stage":       stage,
		"signatures":  signatures,
	})
}
