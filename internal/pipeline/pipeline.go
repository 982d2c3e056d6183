// Package pipeline wires configuration, the translation cache, the file
// scanner, the scheduler and the progress monitor into one batch run.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/cache"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/cachemgr"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/config"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/errors"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/literals"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/monitor"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/scanner"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/scheduler"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/slogutil"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/storage"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/translator"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/vcs"
)

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithExtractor replaces the literal extractor.
func WithExtractor(e literals.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithRevisions replaces the git revision source.
func WithRevisions(r vcs.RevisionSource) Option {
	return func(p *Pipeline) { p.revisions = r }
}

// WithClock sets the time source of the cache, scheduler and monitor.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithListener adds a scheduler lifecycle listener next to the monitor.
func WithListener(l scheduler.Listener) Option {
	return func(p *Pipeline) { p.listeners = append(p.listeners, l) }
}

// WithSnapshotSink receives the monitor's periodic progress snapshots.
func WithSnapshotSink(s monitor.SnapshotSink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithRegistry registers run metrics on reg.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(p *Pipeline) { p.registry = reg }
}

// WithoutHistory disables the session history database.
func WithoutHistory() Option {
	return func(p *Pipeline) { p.noHistory = true }
}

// Pipeline owns the components of one project.
type Pipeline struct {
	cfg      *config.Config
	root     string
	srcDir   string
	cacheDir string
	pattern  *regexp.Regexp
	sortBy   scanner.SortKey

	store   *cache.Store
	history *storage.DB
	scanner *scanner.Scanner
	cached  *CachedTranslator
	manager *cachemgr.Manager

	logger    *slog.Logger
	extractor literals.Extractor
	revisions vcs.RevisionSource
	listeners scheduler.Listeners
	sink      monitor.SnapshotSink
	registry  *prometheus.Registry
	now       func() time.Time
	noHistory bool
}

// New validates cfg and opens the cache of the project at root. tr may be
// nil for scan-only and cache-maintenance use; Run then fails with a
// configuration error.
func New(root string, cfg *config.Config, tr translator.Translator, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = slogutil.OrDiscard(p.logger)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.New(errors.ConfigurationInvalid, "resolve project root", err)
	}
	p.root = absRoot
	p.srcDir = cfg.Scan.SrcDir
	if !filepath.IsAbs(p.srcDir) {
		p.srcDir = filepath.Join(absRoot, p.srcDir)
	}
	p.cacheDir, err = paths.ResolveCacheDir(absRoot, cfg.Cache.Dir)
	if err != nil {
		return nil, errors.New(errors.ConfigurationInvalid, "resolve cache directory", err)
	}
	// Validate already compiled both of these
	p.pattern = regexp.MustCompile(cfg.Scan.TextPattern)
	p.sortBy, _ = scanner.ParseSortKey(cfg.Scan.PrioritizeBy)

	if p.revisions == nil && cfg.Cache.TrackRevision {
		p.revisions = vcs.NewGit(vcs.DefaultTimeout, p.logger)
	}
	p.store, err = cache.Open(p.cacheDir, cache.Options{
		DefaultTTL:         cfg.DefaultTTL(),
		MaxResponseEntries: cfg.Cache.MaxResponseEntries,
		TrackRevision:      cfg.Cache.TrackRevision,
		Revisions:          p.revisions,
		BatchWrites:        cfg.Cache.BatchWrites,
		Now:                p.now,
		Logger:             p.logger,
	})
	if err != nil {
		return nil, err
	}

	if !p.noHistory {
		p.history, err = storage.Open(paths.HistoryDBPath(p.cacheDir), p.logger)
		if err != nil {
			p.logger.Warn("session history unavailable", "error", err)
			p.history = nil
		}
	}

	if p.extractor == nil {
		p.extractor = literals.NewExtractor()
	}
	p.scanner = scanner.New(p.store, p.extractor, p.logger)
	if tr != nil {
		p.cached = NewCachedTranslator(tr, p.store, p.extractor, p.pattern, cfg.DefaultTTL(), p.logger)
	}
	p.manager = cachemgr.New(p.store, p.logger)
	p.manager.SetClock(p.now)

	p.logger.Debug("pipeline ready",
		"root", p.root,
		"srcDir", p.srcDir,
		"cacheDir", p.cacheDir,
		"history", p.history != nil)
	return p, nil
}

// Store returns the cache handle.
func (p *Pipeline) Store() *cache.Store { return p.store }

// Manager returns the cache maintenance facade.
func (p *Pipeline) Manager() *cachemgr.Manager { return p.manager }

// CacheDir returns the resolved cache directory.
func (p *Pipeline) CacheDir() string { return p.cacheDir }

// SourceDir returns the resolved scan root.
func (p *Pipeline) SourceDir() string { return p.srcDir }

// History returns recent sessions, newest first. It returns nil when
// history is disabled.
func (p *Pipeline) History(ctx context.Context, limit int) ([]storage.SessionRecord, error) {
	if p.history == nil {
		return nil, nil
	}
	return p.history.RecentSessions(ctx, limit)
}

// Scan discovers candidates under the source directory. skipCache marks
// every candidate as needing processing.
func (p *Pipeline) Scan(ctx context.Context, skipCache bool) (*scanner.Result, error) {
	return p.scanner.Scan(ctx, scanner.Options{
		Root:        p.srcDir,
		Patterns:    p.cfg.Scan.Patterns,
		Ignore:      p.cfg.Scan.Ignore,
		SkipCache:   skipCache,
		SortBy:      p.sortBy,
		TextPattern: p.pattern,
	})
}

// RunOptions controls one Run.
type RunOptions struct {
	// Force retranslates files whose cached result is current.
	Force bool
	// DryRun stops after the scan.
	DryRun bool
}

// RunReport is everything a run produced.
type RunReport struct {
	Scan       scanner.Report      `json:"scan" yaml:"scan"`
	Summary    *scheduler.Summary  `json:"summary,omitempty" yaml:"summary,omitempty"`
	Results    []scheduler.Result  `json:"results,omitempty" yaml:"results,omitempty"`
	Session    *monitor.Session    `json:"session,omitempty" yaml:"session,omitempty"`
	Metrics    *monitor.Metrics    `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Comparison *monitor.Comparison `json:"comparison,omitempty" yaml:"comparison,omitempty"`
	Sources    SourceCounts        `json:"sources" yaml:"sources"`
	DryRun     bool                `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
}

// Run scans, then processes every candidate needing work. Task failures are
// reported, not returned; the error is non-nil only for configuration or
// scan failures and caller cancellation (with the partial report).
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	if p.cached == nil && !opts.DryRun {
		return nil, errors.Newf(errors.ConfigurationInvalid, "no translator configured")
	}

	res, err := p.Scan(ctx, opts.Force)
	if err != nil {
		return nil, err
	}
	report := &RunReport{Scan: scanner.GenerateReport(res.Candidates), DryRun: opts.DryRun}
	report.Scan.Errors = res.Errors

	work := make([]scanner.Candidate, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		if c.NeedsProcessing {
			work = append(work, c)
		}
	}
	if opts.DryRun {
		return report, nil
	}

	mopts := monitor.Options{
		HistorySize: p.cfg.Monitor.HistorySize,
		Interval:    p.cfg.ProgressInterval(),
		Sink:        p.sink,
		Registry:    p.registry,
		SessionFile: paths.SessionPath(p.cacheDir),
		Now:         p.now,
		Logger:      p.logger,
	}
	if p.history != nil {
		mopts.History = p.history
	}
	mon, err := monitor.New(len(work), mopts)
	if err != nil {
		return nil, err
	}

	popts := []scheduler.Option{
		scheduler.WithListener(mon),
		scheduler.WithLogger(p.logger),
		scheduler.WithClock(p.now),
	}
	if len(p.listeners) > 0 {
		popts = append(popts, scheduler.WithListener(p.listeners))
	}
	proc, err := scheduler.NewProcessor(scheduler.Config{
		MaxConcurrency: p.cfg.Scheduler.MaxConcurrency,
		TaskTimeout:    p.cfg.TaskTimeout(),
		RunDeadline:    p.cfg.RunDeadline(),
		Isolation:      p.cfg.Scheduler.Isolation,
		Force:          opts.Force,
	}, p.cached, p.store, popts...)
	if err != nil {
		return nil, err
	}

	p.logger.Info("translation run started",
		"session", mon.SessionID(),
		"files", len(work),
		"strings", report.Scan.TotalStrings,
		"executor", proc.Executor().Name())

	mon.StartProgressUpdates(ctx)
	rep, runErr := proc.Process(ctx, work)
	mon.StopProgressUpdates()

	if err := p.store.Flush(); err != nil {
		p.logger.Warn("failed to flush cache", "error", err)
	}

	// history writes must survive a cancelled run
	bg := context.WithoutCancel(ctx)
	metrics, err := mon.CompleteSession(bg)
	if err != nil {
		p.logger.Warn("failed to record session history", "error", err)
	}
	cmp, err := mon.Comparison(bg)
	if err != nil {
		p.logger.Warn("failed to compare with previous sessions", "error", err)
	}

	session := mon.Session()
	report.Session = &session
	report.Metrics = &metrics
	report.Comparison = cmp
	report.Sources = p.cached.Counts()
	if rep != nil {
		report.Summary = &rep.Summary
		report.Results = rep.Results
	}

	p.logger.Info("translation run finished",
		"session", session.SessionID,
		"completed", session.Completed,
		"failed", session.Failed,
		"skipped", session.Skipped,
		"duration", time.Duration(metrics.TotalTimeMs)*time.Millisecond)
	return report, runErr
}

// Close flushes the cache and closes the history database.
func (p *Pipeline) Close() error {
	err := p.store.Close()
	if p.history != nil {
		if herr := p.history.Close(); err == nil {
			err = herr
		}
	}
	return err
}
