package main

import (
	"strings"
	"testing"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/cachemgr"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/pipeline"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/scanner"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/scheduler"
)

func TestFormatResponse_JSON(t *testing.T) {
	resp := map[string]interface{}{
		"key": "value",
		"num": 42,
	}

	result, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, `"key": "value"`) {
		t.Error("JSON output missing expected key")
	}
	if !strings.Contains(result, `"num": 42`) {
		t.Error("JSON output missing expected number")
	}
}

func TestFormatResponse_YAML(t *testing.T) {
	report := scanner.Report{
		TotalFiles: 3,
		ByPriority: map[scanner.Priority]int{scanner.PriorityHigh: 2},
	}

	result, err := FormatResponse(report, FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "totalFiles: 3") {
		t.Errorf("YAML output missing totalFiles, got:\n%s", result)
	}
	if !strings.Contains(result, "high: 2") {
		t.Errorf("priority keys should render by name, got:\n%s", result)
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	_, err := FormatResponse(map[string]string{"key": "value"}, "xml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, s := range []string{"human", "JSON", "yaml"} {
		if _, err := ParseOutputFormat(s); err != nil {
			t.Errorf("ParseOutputFormat(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseOutputFormat("toml"); err == nil {
		t.Error("expected error for toml")
	}
}

func TestFormatRunHuman_ListsFailures(t *testing.T) {
	report := &pipeline.RunReport{
		Summary: &scheduler.Summary{
			Total:     2,
			Processed: 1,
			Failed:    1,
			Failures: []scheduler.Failure{{
				Path:  "/src/hooks/useAuth.ts",
				Kind:  scheduler.KindTimeout,
				Error: "context deadline exceeded",
			}},
		},
	}

	out, err := FormatResponse(report, FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "✗ /src/hooks/useAuth.ts [timeout] context deadline exceeded") {
		t.Errorf("failure line missing, got:\n%s", out)
	}
	if strings.Contains(out, "Metrics:") {
		t.Error("metrics section should be omitted without metrics")
	}
}

func TestFormatScanHuman_Limit(t *testing.T) {
	resp := &ScanResponseCLI{
		Report: scanner.Report{TotalFiles: 3, NeedsProcessing: 3},
		Limit:  2,
	}
	for _, p := range []string{"a.js", "b.js", "c.js"} {
		resp.Candidates = append(resp.Candidates, scanner.Candidate{RelPath: p, NeedsProcessing: true, MatchCount: 1})
	}

	out := formatScanHuman(resp)
	if !strings.Contains(out, "b.js") || strings.Contains(out, "c.js") {
		t.Errorf("expected two files listed, got:\n%s", out)
	}
	if !strings.Contains(out, "... and 1 more") {
		t.Errorf("expected overflow line, got:\n%s", out)
	}
}

func TestFormatVerifyHuman(t *testing.T) {
	out := formatVerifyHuman(&cachemgr.VerifyResult{Valid: 4, Corrupted: 1, Repaired: 1, GitignoreCreated: true})
	if !strings.Contains(out, "✓ 4 valid, 1 corrupted, 1 repaired") {
		t.Errorf("unexpected verify output:\n%s", out)
	}
	if !strings.Contains(out, "created .gitignore") {
		t.Error("gitignore creation not reported")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
