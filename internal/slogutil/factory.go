package slogutil

import (
	"io"
	"log/slog"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/config"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
)

// LoggerFactory builds the console and file loggers for one invocation.
// Level precedence: CLI flag > config > info.
type LoggerFactory struct {
	cacheDir string
	config   *config.Config
	cliLevel *slog.Level
	closers  []io.Closer
}

// NewLoggerFactory creates a factory. cliLevel is nil when no CLI override was given.
func NewLoggerFactory(cacheDir string, cfg *config.Config, cliLevel *slog.Level) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{cacheDir: cacheDir, config: cfg, cliLevel: cliLevel}
}

// Logger returns a logger writing to console and, when enabled, to
// <cacheDir>/logs/batch.log. A file that cannot be opened is skipped.
func (f *LoggerFactory) Logger(console io.Writer) *slog.Logger {
	level := f.EffectiveLevel()
	handlers := []slog.Handler{f.handler(console, level)}

	if fh := f.fileHandler(); fh != nil {
		handlers = append(handlers, fh)
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}
	return slog.New(NewTeeHandler(handlers...))
}

// fileHandler always logs at least info so the batch log stays useful
// when the console is quiet.
func (f *LoggerFactory) fileHandler() slog.Handler {
	if f.cacheDir == "" || !f.config.Logging.File {
		return nil
	}
	if err := paths.EnsureCacheDir(f.cacheDir); err != nil {
		return nil
	}
	rf, err := OpenRotatingFile(paths.LogPath(f.cacheDir), ParseSize(f.config.Logging.MaxSize), f.config.Logging.MaxBackups)
	if err != nil {
		return nil
	}
	f.closers = append(f.closers, rf)

	level := LevelFromString(f.config.Logging.Level)
	if level > slog.LevelInfo {
		level = slog.LevelInfo
	}
	return NewHandler(rf, &slog.HandlerOptions{Level: level})
}

func (f *LoggerFactory) handler(w io.Writer, level slog.Level) slog.Handler {
	if f.config.Logging.Format == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return NewHandler(w, &slog.HandlerOptions{Level: level})
}

// EffectiveLevel returns the console level.
func (f *LoggerFactory) EffectiveLevel() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
