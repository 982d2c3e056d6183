package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/cachemgr"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/pipeline"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/scanner"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatHuman OutputFormat = "human"
)

// ParseOutputFormat validates a --format value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatHuman:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *ScanResponseCLI:
		return formatScanHuman(v), nil
	case *pipeline.RunReport:
		return formatRunHuman(v), nil
	case *HistoryResponseCLI:
		return formatHistoryHuman(v), nil
	case *cachemgr.Stats:
		return formatStatsHuman(v), nil
	case *cachemgr.CleanupResult:
		return formatCleanupHuman(v), nil
	case *cachemgr.VerifyResult:
		return formatVerifyHuman(v), nil
	case *cachemgr.ArchiveStats:
		return fmt.Sprintf("Files: %d, strings: %d, responses: %d", v.Files, v.Strings, v.Responses), nil
	default:
		return formatJSON(resp)
	}
}

func header(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
}

func writeScanReport(b *strings.Builder, r scanner.Report) {
	fmt.Fprintf(b, "Files with translatable text: %d\n", r.TotalFiles)
	fmt.Fprintf(b, "Need translation: %d (%d strings)\n", r.NeedsProcessing, r.TotalStrings)
	for _, p := range scanner.Priorities {
		if n := r.ByPriority[p]; n > 0 {
			fmt.Fprintf(b, "  %-6s %d\n", p, n)
		}
	}
	fmt.Fprintf(b, "Estimated time: %s\n", r.EstimatedTime)
	if len(r.Errors) > 0 {
		fmt.Fprintf(b, "\nUnreadable files: %d\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(b, "  ! %s: %s\n", e.Path, e.Error)
		}
	}
}

func formatScanHuman(resp *ScanResponseCLI) string {
	var b strings.Builder
	header(&b, "Scan Results")
	writeScanReport(&b, resp.Report)

	shown := 0
	for _, c := range resp.Candidates {
		if !c.NeedsProcessing {
			continue
		}
		if shown == 0 {
			b.WriteString("\nFiles:\n")
		}
		if resp.Limit > 0 && shown == resp.Limit {
			fmt.Fprintf(&b, "  ... and %d more\n", resp.Report.NeedsProcessing-shown)
			break
		}
		fmt.Fprintf(&b, "  [%-6s] %s (%d strings)\n", c.Priority, c.RelPath, c.MatchCount)
		shown++
	}
	return b.String()
}

func formatRunHuman(r *pipeline.RunReport) string {
	var b strings.Builder
	if r.DryRun {
		header(&b, "Translation Dry Run")
		writeScanReport(&b, r.Scan)
		return b.String()
	}

	header(&b, "Translation Summary")
	if s := r.Summary; s != nil {
		fmt.Fprintf(&b, "Files: %d\n", s.Total)
		fmt.Fprintf(&b, "  ✓ translated: %d\n", s.Processed)
		fmt.Fprintf(&b, "  - cached:     %d\n", s.Skipped)
		fmt.Fprintf(&b, "  ✗ failed:     %d\n", s.Failed)
		fmt.Fprintf(&b, "Strings translated: %d\n", s.Translated)
		fmt.Fprintf(&b, "Duration: %s (avg %dms per file)\n",
			scanner.FormatDuration(time.Duration(s.TotalDurationMs)*time.Millisecond), s.AverageDurationMs)
		fmt.Fprintf(&b, "Sources: translator %d, response cache %d, string index %d\n",
			r.Sources.Translator, r.Sources.Response, r.Sources.StringIndex)

		if len(s.Failures) > 0 {
			b.WriteString("\nFailures:\n")
			for _, f := range s.Failures {
				fmt.Fprintf(&b, "  ✗ %s [%s] %s\n", f.Path, f.Kind, f.Error)
			}
		}
	}

	if m := r.Metrics; m != nil {
		b.WriteString("\nMetrics:\n")
		fmt.Fprintf(&b, "  Success rate: %.1f%%\n", m.SuccessRate)
		fmt.Fprintf(&b, "  Cache hit rate: %.1f%%\n", m.CacheHitRate)
		fmt.Fprintf(&b, "  Throughput: %.1f files/min\n", m.Throughput)
		if m.TimeSavedMs > 0 {
			fmt.Fprintf(&b, "  Time saved by cache: %s\n",
				scanner.FormatDuration(time.Duration(m.TimeSavedMs)*time.Millisecond))
		}
	}

	if c := r.Comparison; c != nil {
		fmt.Fprintf(&b, "\nCompared with the last %d sessions:\n", c.Sessions)
		fmt.Fprintf(&b, "  Throughput: %+.1f%%\n", c.ThroughputChange)
		fmt.Fprintf(&b, "  Success rate: %+.1f points\n", c.SuccessRateChange)
		fmt.Fprintf(&b, "  Time per file: %+.1f%% faster\n", c.SpeedupPerFile)
	}
	return b.String()
}

func formatHistoryHuman(resp *HistoryResponseCLI) string {
	var b strings.Builder
	header(&b, "Recent Sessions")
	if len(resp.Sessions) == 0 {
		b.WriteString("No sessions recorded\n")
		return b.String()
	}
	for _, s := range resp.Sessions {
		fmt.Fprintf(&b, "%s  %s\n", s.EndedAt.Local().Format(time.DateTime), s.SessionID)
		fmt.Fprintf(&b, "  files %d (✓ %d, - %d, ✗ %d), %s, %.1f files/min\n",
			s.TotalFiles, s.Completed, s.Skipped, s.Failed,
			scanner.FormatDuration(time.Duration(s.DurationMs)*time.Millisecond),
			s.ThroughputPerMinute)
	}
	return b.String()
}

func formatStatsHuman(s *cachemgr.Stats) string {
	var b strings.Builder
	header(&b, "Cache Statistics")
	fmt.Fprintf(&b, "Directory: %s\n", s.Dir)
	fmt.Fprintf(&b, "File records: %d\n", s.Files)
	fmt.Fprintf(&b, "Indexed strings: %d\n", s.Strings)
	fmt.Fprintf(&b, "Responses: %d (%d valid, %d expired)\n", s.Responses.Total, s.Responses.Valid, s.Responses.Expired)
	fmt.Fprintf(&b, "Size: %s\n", formatBytes(s.TotalSizeBytes))
	if !s.OldestEntry.IsZero() {
		fmt.Fprintf(&b, "Oldest record: %s\n", s.OldestEntry.Local().Format(time.DateTime))
		fmt.Fprintf(&b, "Newest record: %s\n", s.NewestEntry.Local().Format(time.DateTime))
	}
	if s.LastCleanup.IsZero() {
		b.WriteString("Last cleanup: never\n")
	} else {
		fmt.Fprintf(&b, "Last cleanup: %s\n", s.LastCleanup.Local().Format(time.DateTime))
	}
	return b.String()
}

func formatCleanupHuman(r *cachemgr.CleanupResult) string {
	var b strings.Builder
	header(&b, "Cache Cleanup")
	fmt.Fprintf(&b, "Old records removed: %d\n", r.RemovedRecords)
	fmt.Fprintf(&b, "Corrupted records removed: %d\n", r.RemovedCorrupted)
	fmt.Fprintf(&b, "Expired responses removed: %d\n", r.RemovedExpired)
	fmt.Fprintf(&b, "Temp files removed: %d\n", r.RemovedTemp)
	fmt.Fprintf(&b, "Log files removed: %d\n", r.RemovedLogs)
	fmt.Fprintf(&b, "Space saved: %s\n", formatBytes(r.SpaceSavedBytes))
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  ! %s\n", e)
	}
	return b.String()
}

func formatVerifyHuman(r *cachemgr.VerifyResult) string {
	var b strings.Builder
	header(&b, "Cache Verification")
	icon := "✓"
	if r.Corrupted > r.Repaired {
		icon = "✗"
	}
	fmt.Fprintf(&b, "%s %d valid, %d corrupted, %d repaired\n", icon, r.Valid, r.Corrupted, r.Repaired)
	for _, d := range r.Details {
		fmt.Fprintf(&b, "  - %s\n", d)
	}
	for _, p := range r.Backups {
		fmt.Fprintf(&b, "  backup: %s\n", p)
	}
	if r.GitignoreCreated {
		b.WriteString("  created .gitignore\n")
	}
	return b.String()
}

// formatBytes formats byte size in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
