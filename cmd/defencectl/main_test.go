package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/defence-assistant/internal/core/analysis"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeClaim(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatalf("write claim: %v", err)
	}
	return path
}

const claimText = "The Claimant seeks £4,500 for unpaid invoices under a written services agreement dated 1 March."

func TestAnalyzeOfflinePrintsFallbackReport(t *testing.T) {
	path := writeClaim(t, "claim.txt", claimText)

	out, err := execute(t, "analyze", "--offline", path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, analysis.FallbackSummary) {
		t.Fatalf("expected fallback summary in report, got:\n%s", out)
	}
}

func TestAnalyzeOfflineJSON(t *testing.T) {
	path := writeClaim(t, "claim.txt", claimText)

	out, err := execute(t, "analyze", "--offline", "--json", path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json output: %v\n%s", err, out)
	}
	if payload["outcome"] != "fallback" {
		t.Fatalf("expected fallback outcome, got %v", payload["outcome"])
	}
	if payload["fallback_reason"] == "" || payload["formatted_response"] == "" {
		t.Fatalf("expected reason and report, got %+v", payload)
	}
}

func TestAnalyzeRejectsUnsupportedFile(t *testing.T) {
	path := writeClaim(t, "claim.exe", claimText)

	if _, err := execute(t, "analyze", "--offline", path); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported file error, got %v", err)
	}
}

func TestAnalyzeRejectsShortDocument(t *testing.T) {
	path := writeClaim(t, "claim.txt", "too short")

	if _, err := execute(t, "analyze", "--offline", path); err == nil || !strings.Contains(err.Error(), "need at least") {
		t.Fatalf("expected insufficient text error, got %v", err)
	}
}

func TestKnowledgeLookupPrintsCases(t *testing.T) {
	out, err := execute(t, "knowledge", "--category", "contract", "breach", "of", "contract", "damages")
	if err != nil {
		t.Fatalf("knowledge: %v", err)
	}
	if !strings.Contains(out, "Hadley v Baxendale") {
		t.Fatalf("expected Hadley v Baxendale in output, got:\n%s", out)
	}
}

func TestKnowledgeRejectsUnknownTrack(t *testing.T) {
	if _, err := execute(t, "knowledge", "--track", "supreme", "damages"); err == nil {
		t.Fatalf("expected error for unknown track")
	}
}

func TestAnalyzeHelpDescribesFixedFallback(t *testing.T) {
	out, err := execute(t, "analyze", "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out, "fixed fallback analysis") || strings.Contains(out, "keyword") {
		t.Fatalf("unexpected help text:\n%s", out)
	}
}
