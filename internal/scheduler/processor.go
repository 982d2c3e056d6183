package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/errors"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/scanner"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/slogutil"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/translator"
)

// Store is the part of the cache the scheduler consults and updates.
type Store interface {
	NeedsTranslation(ctx context.Context, path string) bool
	Save(ctx context.Context, path string, outcome *translator.Outcome) error
}

// Config contains processor configuration.
type Config struct {
	MaxConcurrency int
	TaskTimeout    time.Duration
	// RunDeadline bounds a whole isolated run; zero means 2 x TaskTimeout.
	RunDeadline time.Duration
	Isolation   bool
	// Force skips the cache re-check after a permit is acquired.
	Force bool
}

// DefaultConfig returns the default processor configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 3,
		TaskTimeout:    5 * time.Minute,
	}
}

// Option customizes a Processor.
type Option func(*Processor)

// WithListener registers a lifecycle listener.
func WithListener(l Listener) Option {
	return func(p *Processor) { p.listeners = append(p.listeners, l) }
}

// WithExecutor replaces the executor chosen from Config.Isolation.
func WithExecutor(e Executor) Option {
	return func(p *Processor) { p.exec = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithClock sets the time source used for task timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// Processor dispatches tasks bucket by bucket.
type Processor struct {
	cfg       Config
	store     Store
	exec      Executor
	listeners Listeners
	logger    *slog.Logger
	now       func() time.Time
}

// NewProcessor validates cfg and builds a processor. Configuration problems
// return a CONFIGURATION_INVALID error before any work starts.
func NewProcessor(cfg Config, tr translator.Translator, store Store, opts ...Option) (*Processor, error) {
	if cfg.MaxConcurrency < 1 {
		return nil, errors.Newf(errors.ConfigurationInvalid, "maxConcurrency must be at least 1, got %d", cfg.MaxConcurrency)
	}
	if cfg.TaskTimeout <= 0 {
		return nil, errors.Newf(errors.ConfigurationInvalid, "task timeout must be positive, got %s", cfg.TaskTimeout)
	}
	if store == nil {
		return nil, errors.Newf(errors.ConfigurationInvalid, "cache store is required")
	}
	if cfg.Isolation && cfg.RunDeadline <= 0 {
		cfg.RunDeadline = 2 * cfg.TaskTimeout
	}

	p := &Processor{
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.exec == nil {
		if tr == nil {
			return nil, errors.Newf(errors.ConfigurationInvalid, "translator is required")
		}
		if cfg.Isolation {
			p.exec = NewIsolatedExecutor(tr)
		} else {
			p.exec = NewInProcessExecutor(tr)
		}
	}
	p.logger = slogutil.OrDiscard(p.logger)
	return p, nil
}

// Executor returns the executor in use.
func (p *Processor) Executor() Executor {
	return p.exec
}

// Process runs every candidate to a terminal state and returns the per-task
// results. Task failures never fail the call; it returns an error only when
// ctx is cancelled by the caller, together with the partial report.
func (p *Processor) Process(ctx context.Context, cands []scanner.Candidate) (*Report, error) {
	start := p.now()

	runCtx := ctx
	if p.cfg.Isolation {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.RunDeadline)
		defer cancel()
	}

	buckets := scanner.Buckets(dedupe(cands))
	sem := semaphore.NewWeighted(int64(p.cfg.MaxConcurrency))

	p.logger.Info("processing started",
		"tasks", countTasks(buckets),
		"buckets", len(buckets),
		"concurrency", p.cfg.MaxConcurrency,
		"executor", p.exec.Name())

	var tasks []*Task
	for _, bucket := range buckets {
		prio := bucket[0].Priority
		p.emit(Event{Type: EventBucketStarted, Time: p.now(), Priority: prio, BucketSize: len(bucket)})
		p.logger.Info("processing bucket", "priority", prio.String(), "files", len(bucket))

		var g errgroup.Group
		for _, c := range bucket {
			t := NewTask(c)
			tasks = append(tasks, t)

			if err := sem.Acquire(runCtx, 1); err != nil {
				p.abandon(runCtx, t)
				continue
			}
			g.Go(func() error {
				defer sem.Release(1)
				p.runTask(runCtx, t)
				return nil
			})
		}
		_ = g.Wait()

		p.emit(Event{Type: EventBucketFinished, Time: p.now(), Priority: prio, BucketSize: len(bucket)})
	}

	report := buildReport(tasks, p.now().Sub(start))
	p.logger.Info("processing finished",
		"processed", report.Summary.Processed,
		"failed", report.Summary.Failed,
		"skipped", report.Summary.Skipped,
		"duration_ms", report.Summary.TotalDurationMs)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (p *Processor) runTask(runCtx context.Context, t *Task) {
	path := t.Candidate.Path
	t.MarkStarted(p.now())
	p.emit(Event{
		Type:     EventTaskStarted,
		Time:     *t.StartedAt,
		Priority: t.Priority,
		TaskID:   t.ID,
		Path:     path,
		Strings:  t.Candidate.MatchCount,
	})

	if !p.cfg.Force && !p.store.NeedsTranslation(runCtx, path) {
		p.logger.Debug("cache hit, skipping", "path", path)
		t.MarkSkipped(p.now())
		p.finish(t)
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.MarkFailed(p.now(), KindUnexpectedException, string(errors.ScanFailed), err)
		p.finish(t)
		return
	}

	p.progress(t, progressRead, -1)

	taskCtx, cancel := context.WithTimeout(runCtx, p.cfg.TaskTimeout)
	defer cancel()

	done := make(chan execResult, 1)
	go func() {
		out, err := p.exec.Execute(taskCtx, Request{Path: path, Content: string(content)})
		done <- execResult{out: out, err: err}
	}()

	var res execResult
	select {
	case res = <-done:
	case <-taskCtx.Done():
		// the call may still be running; its result is dropped
		res = execResult{err: taskCtx.Err()}
	}

	if res.err != nil {
		kind, code, err := p.classify(runCtx, taskCtx, res.err)
		t.MarkFailed(p.now(), kind, string(code), err)
		p.finish(t)
		return
	}

	out := res.out
	if out == nil {
		out = &translator.Outcome{FilePath: path}
	}
	p.progress(t, progressTranslated, len(out.Strings))
	if err := p.store.Save(runCtx, path, out); err != nil {
		p.logger.Warn("failed to record translation in cache", "path", path, "error", err)
	}
	t.MarkCompleted(p.now(), len(out.Strings))
	p.finish(t)
}

// classify maps a failed call onto the result taxonomy. Context state wins
// over the returned error, because a cancelled translator usually reports
// its own cancellation.
func (p *Processor) classify(runCtx, taskCtx context.Context, err error) (ResultKind, errors.ErrorCode, error) {
	if runErr := runCtx.Err(); runErr != nil {
		if stderrors.Is(runErr, context.DeadlineExceeded) {
			return KindTimeout, errors.RunDeadlineExceeded, errors.New(errors.RunDeadlineExceeded, "run deadline exceeded", runErr)
		}
		return KindTranslatorError, errors.TranslatorFailed, errors.New(errors.TranslatorFailed, "run cancelled", runErr)
	}
	if stderrors.Is(taskCtx.Err(), context.DeadlineExceeded) {
		return KindTimeout, errors.TranslatorTimeout,
			errors.Newf(errors.TranslatorTimeout, "translator timed out after %s", p.cfg.TaskTimeout)
	}

	var pe *PanicError
	switch {
	case stderrors.As(err, &pe):
		p.logger.Error("translator panicked", "panic", fmt.Sprint(pe.Value), "stack", string(pe.Stack))
		return KindUnexpectedException, errors.UnexpectedException, err
	case errors.Is(err, errors.TranslatorTimeout):
		return KindTimeout, errors.TranslatorTimeout, err
	case errors.Is(err, errors.UnexpectedException):
		return KindUnexpectedException, errors.UnexpectedException, err
	default:
		return KindTranslatorError, errors.TranslatorFailed, err
	}
}

// abandon finalizes a task that never got a permit because the run ended.
func (p *Processor) abandon(runCtx context.Context, t *Task) {
	kind, code, err := p.classify(runCtx, runCtx, runCtx.Err())
	t.MarkFailed(p.now(), kind, string(code), err)
	p.finish(t)
}

// Progress checkpoints of a running task.
const (
	progressRead       = 10
	progressTranslated = 90
)

// progress moves a running task forward. A negative translated count means
// the count is not known yet.
func (p *Processor) progress(t *Task, pct, translated int) {
	t.SetProgress(pct)
	p.emit(Event{
		Type:       EventTaskProgress,
		Time:       p.now(),
		Priority:   t.Priority,
		TaskID:     t.ID,
		Path:       t.Candidate.Path,
		Progress:   t.Progress,
		Translated: translated,
	})
}

func (p *Processor) finish(t *Task) {
	e := Event{
		Time:       *t.FinishedAt,
		Priority:   t.Priority,
		TaskID:     t.ID,
		Path:       t.Candidate.Path,
		Translated: t.Translated,
		Progress:   t.Progress,
		Kind:       t.Kind,
		Error:      t.Error,
		Duration:   t.Duration(),
	}
	switch t.State {
	case TaskCompleted:
		e.Type = EventTaskCompleted
	case TaskSkipped:
		e.Type = EventTaskSkipped
	default:
		e.Type = EventTaskFailed
		p.logger.Warn("task failed", "path", t.Candidate.Path, "kind", string(t.Kind), "error", t.Error)
	}
	p.emit(e)
}

func (p *Processor) emit(e Event) {
	p.listeners.HandleEvent(e)
}

func dedupe(cands []scanner.Candidate) []scanner.Candidate {
	seen := make(map[string]struct{}, len(cands))
	out := make([]scanner.Candidate, 0, len(cands))
	for _, c := range cands {
		if _, dup := seen[c.Path]; dup {
			continue
		}
		seen[c.Path] = struct{}{}
		out = append(out, c)
	}
	return out
}

func countTasks(buckets [][]scanner.Candidate) int {
	n := 0
	for _, b := range buckets {
		n += len(b)
	}
	return n
}
