package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/cache"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/errors"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/literals"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/slogutil"
)

// DefaultPatterns matches JavaScript and TypeScript sources.
var DefaultPatterns = []string{"**/*.{js,jsx,ts,tsx}"}

// DefaultIgnore skips dependency and build output directories.
var DefaultIgnore = []string{"**/node_modules/**", "**/build/**", "**/dist/**"}

// StalenessChecker decides whether a file's cached result is out of date.
type StalenessChecker interface {
	NeedsTranslation(ctx context.Context, path string) bool
}

// Options configures one scan.
type Options struct {
	Root     string
	Patterns []string
	Ignore   []string
	// SkipCache marks every candidate as needing processing.
	SkipCache   bool
	SortBy      SortKey
	TextPattern *regexp.Regexp
	// Workers bounds concurrent file reads; <= 0 means GOMAXPROCS.
	Workers int
}

// Result is the ordered candidate list plus the files that were excluded
// because they could not be read.
type Result struct {
	Candidates []Candidate
	Errors     []FileError
}

// Scanner walks a source tree.
type Scanner struct {
	store     StalenessChecker
	extractor literals.Extractor
	logger    *slog.Logger
}

// New creates a scanner. A nil store treats every file as stale; a nil
// extractor uses the build's default extractor.
func New(store StalenessChecker, extractor literals.Extractor, logger *slog.Logger) *Scanner {
	if extractor == nil {
		extractor = literals.NewExtractor()
	}
	return &Scanner{
		store:     store,
		extractor: extractor,
		logger:    slogutil.OrDiscard(logger),
	}
}

// Scan enumerates, reads and classifies files. A per-file failure is logged
// and excluded; only a missing root or cancellation fails the scan.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Result, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, errors.New(errors.ScanFailed, "resolve root", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.New(errors.ScanFailed, "source directory unavailable", err)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ScanFailed, "%s is not a directory", root)
	}

	files, globErrs := s.enumerate(root, opts)
	res := &Result{Errors: globErrs}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	slots := make([]*Candidate, len(files))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := s.scanFile(gctx, root, rel, opts)
			if err != nil {
				s.logger.Warn("scan failed, skipping file", "path", rel, "error", err)
				mu.Lock()
				res.Errors = append(res.Errors, FileError{Path: rel, Error: err.Error()})
				mu.Unlock()
				return nil
			}
			slots[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range slots {
		if c != nil && c.MatchCount > 0 {
			res.Candidates = append(res.Candidates, *c)
		}
	}
	Sort(res.Candidates, opts.SortBy)

	s.logger.Debug("scan complete",
		"root", root,
		"files", len(files),
		"candidates", len(res.Candidates),
		"errors", len(res.Errors))
	return res, nil
}

// enumerate expands every pattern under root, drops ignored paths and
// de-duplicates paths matched by several patterns (first match wins).
func (s *Scanner) enumerate(root string, opts Options) ([]string, []FileError) {
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	ignore := opts.Ignore
	if ignore == nil {
		ignore = DefaultIgnore
	}

	fsys := os.DirFS(root)
	seen := make(map[string]struct{})
	var files []string
	var errs []FileError
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern), doublestar.WithFilesOnly())
		if err != nil {
			s.logger.Warn("glob failed", "pattern", pattern, "error", err)
			errs = append(errs, FileError{Path: pattern, Error: err.Error()})
			continue
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup || ignored(m, ignore) {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	return files, errs
}

func ignored(rel string, ignore []string) bool {
	for _, pattern := range ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) scanFile(ctx context.Context, root, rel string, opts Options) (*Candidate, error) {
	path := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	texts, err := literals.Count(ctx, s.extractor, path, src, opts.TextPattern)
	if err != nil {
		return nil, fmt.Errorf("extract literals: %w", err)
	}

	c := &Candidate{
		Path:        path,
		RelPath:     rel,
		ContentHash: cache.HashBytes(src),
		SizeBytes:   info.Size(),
		ModTime:     info.ModTime(),
		MatchCount:  len(texts),
		Texts:       texts,
	}
	if c.MatchCount == 0 {
		return c, nil
	}
	c.Priority = Classify(rel, c.MatchCount, c.SizeBytes)
	c.NeedsProcessing = opts.SkipCache || s.store == nil || s.store.NeedsTranslation(ctx, path)
	return c, nil
}

// QuickScan lists the files under root whose raw content matches pattern at
// all, without literal extraction or cache checks.
func QuickScan(ctx context.Context, root string, patterns, ignore []string, pattern *regexp.Regexp) ([]string, error) {
	if pattern == nil {
		pattern = literals.DefaultTextPattern
	}
	s := New(nil, literals.RegexExtractor{}, nil)
	files, _ := s.enumerate(root, Options{Patterns: patterns, Ignore: ignore})

	var out []string
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := fs.ReadFile(os.DirFS(root), rel)
		if err != nil {
			continue
		}
		if pattern.Match(src) {
			out = append(out, rel)
		}
	}
	return out, nil
}
