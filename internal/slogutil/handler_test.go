package slogutil

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/config"
)

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("task finished", "path", "src/a.ts", "count", 42, "duration", 1500*time.Millisecond)

	output := buf.String()
	for _, want := range []string{"[info]", "task finished", " | ", "path=src/a.ts", "count=42", "duration=1.5s"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestHandler_QuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Warn("task failed", "error", errors.New("rate limited"), "note", "two words")

	output := buf.String()
	if !strings.Contains(output, `error="rate limited"`) {
		t.Errorf("error should be quoted, got: %s", output)
	}
	if !strings.Contains(output, `note="two words"`) {
		t.Errorf("spaced string should be quoted, got: %s", output)
	}
}

func TestHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).With("run", "r1").WithGroup("task")

	logger.Info("start", "id", 7, slog.Group("file", "size", 10))

	output := buf.String()
	for _, want := range []string{"run=r1", "task.id=7", "task.file.size=10"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("messages below warn should be filtered, got: %s", output)
	}
	if !strings.Contains(output, "[warn] warn message") || !strings.Contains(output, "[error] error message") {
		t.Errorf("warn and error should be included, got: %s", output)
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"off", LevelSilent},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LevelFromString(tt.input); got != tt.expected {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		expected  slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{0, true, LevelSilent},
		{5, true, LevelSilent},
	}

	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.expected {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.expected)
		}
	}
}

func TestTeeHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := NewHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := NewHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(NewTeeHandler(h1, h2))
	logger.Info("info message")
	logger.Warn("warn message")

	if !strings.Contains(buf1.String(), "info message") || !strings.Contains(buf1.String(), "warn message") {
		t.Errorf("buf1 should contain both messages, got: %s", buf1.String())
	}
	if strings.Contains(buf2.String(), "info message") || !strings.Contains(buf2.String(), "warn message") {
		t.Errorf("buf2 should only contain warn, got: %s", buf2.String())
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) should return a logger")
	}
	l := NewLogger(&bytes.Buffer{}, slog.LevelInfo)
	if OrDiscard(l) != l {
		t.Error("OrDiscard should keep a non-nil logger")
	}
}

func TestLoggerFactory_WritesBatchLog(t *testing.T) {
	cacheDir := t.TempDir()
	quiet := LevelSilent
	f := NewLoggerFactory(cacheDir, config.DefaultConfig(), &quiet)

	var console bytes.Buffer
	logger := f.Logger(&console)
	logger.Info("bucket started", "priority", "high")
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if console.Len() != 0 {
		t.Errorf("quiet console should stay empty, got: %s", console.String())
	}
	data, err := os.ReadFile(filepath.Join(cacheDir, "logs", "batch.log"))
	if err != nil {
		t.Fatalf("batch log missing: %v", err)
	}
	if !strings.Contains(string(data), "bucket started") {
		t.Errorf("batch log should contain the record, got: %s", data)
	}
}

func TestLoggerFactory_NoFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.File = false
	cfg.Logging.Level = "debug"
	f := NewLoggerFactory(t.TempDir(), cfg, nil)
	defer f.Close()

	if f.EffectiveLevel() != slog.LevelDebug {
		t.Errorf("EffectiveLevel = %v, want debug", f.EffectiveLevel())
	}
	var console bytes.Buffer
	f.Logger(&console).Debug("hello")
	if !strings.Contains(console.String(), "hello") {
		t.Errorf("console should receive debug output, got: %s", console.String())
	}
}
