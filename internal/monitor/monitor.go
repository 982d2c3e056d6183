// Package monitor tracks the progress of a translation run, estimates the
// remaining time, and keeps a short history of finished sessions.
//
// The monitor owns the Session record and the running tasks; finished task
// records are kept in a bounded window. It is fed lifecycle events by the
// scheduler (HandleEvent) or driven directly through the
// StartTask/CompleteTask family, and is safe for concurrent use.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/cache"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/errors"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/scheduler"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/slogutil"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/storage"
)

const (
	// DefaultInterval is the period of progress snapshots.
	DefaultInterval = 10 * time.Second
	// DefaultHistorySize is the number of sessions kept for comparison.
	DefaultHistorySize = 5
	// assumedTimePerFile prices a cache hit when no file was translated yet.
	assumedTimePerFile = time.Minute
	// retainedTasks bounds the finished task records kept for inspection
	// and the session file.
	retainedTasks = 50
)

// SnapshotSink receives periodic progress snapshots.
type SnapshotSink interface {
	Snapshot(Progress)
}

// SinkFunc adapts a function to SnapshotSink.
type SinkFunc func(Progress)

func (f SinkFunc) Snapshot(p Progress) { f(p) }

// Options configures a Monitor.
type Options struct {
	// History persists finished sessions; nil keeps no history.
	History     storage.HistoryStore
	HistorySize int
	Interval    time.Duration
	Sink        SnapshotSink
	// Registry receives the monitor's collectors; nil creates a private one.
	Registry *prometheus.Registry
	// SessionFile, when set, receives the session state after every change.
	SessionFile string
	Now         func() time.Time
	Logger      *slog.Logger
}

// Monitor aggregates task events into session counters.
type Monitor struct {
	opts     Options
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *collectors

	mu      sync.Mutex
	session Session
	active  map[string]*TaskProgress
	// recent holds the latest finished records, oldest first.
	recent []TaskProgress
	ended  map[string]struct{}
	// completedTime sums the durations of completedN completed tasks.
	completedTime time.Duration
	completedN    int
	done          *Metrics

	tickMu sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts a session of totalFiles files.
func New(totalFiles int, opts Options) (*Monitor, error) {
	if totalFiles < 0 {
		return nil, errors.Newf(errors.ConfigurationInvalid, "total files must not be negative, got %d", totalFiles)
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Monitor{
		opts:     opts,
		logger:   slogutil.OrDiscard(opts.Logger),
		registry: reg,
		metrics:  newCollectors(reg),
		active:   make(map[string]*TaskProgress),
		ended:    make(map[string]struct{}),
		session: Session{
			SessionID:  uuid.New().String(),
			StartedAt:  opts.Now(),
			TotalFiles: totalFiles,
		},
	}
	m.metrics.filesTotal.Set(float64(totalFiles))
	return m, nil
}

// Registry returns the registry holding the monitor's collectors.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// SessionID returns the id of the current session.
func (m *Monitor) SessionID() string {
	return m.session.SessionID
}

// HandleEvent applies a scheduler lifecycle event.
func (m *Monitor) HandleEvent(e scheduler.Event) {
	switch e.Type {
	case scheduler.EventTaskStarted:
		m.StartTask(e.TaskID, e.Path, e.Strings)
	case scheduler.EventTaskProgress:
		m.UpdateTaskProgress(e.TaskID, e.Progress, e.Translated)
	case scheduler.EventTaskCompleted:
		m.CompleteTask(e.TaskID, e.Path, e.Translated)
	case scheduler.EventTaskSkipped:
		m.SkipTask(e.TaskID, e.Path)
	case scheduler.EventTaskFailed:
		m.FailTask(e.TaskID, e.Path, e.Error)
	case scheduler.EventBucketStarted:
		m.logger.Debug("bucket started", "priority", e.Priority.String(), "files", e.BucketSize)
	}
}

// StartTask moves a task to processing. totalStrings is the known literal
// count of the file, used for the string totals.
func (m *Monitor) StartTask(id, path string, totalStrings int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ended[id]; ok {
		return
	}
	if prev, ok := m.active[id]; ok {
		m.session.TotalStrings -= prev.TotalStrings
	}
	m.active[id] = &TaskProgress{
		TaskID:       id,
		FileName:     filepath.Base(path),
		Status:       StatusProcessing,
		StartedAt:    m.opts.Now(),
		TotalStrings: totalStrings,
	}
	m.session.TotalStrings += totalStrings
	m.logger.Debug("task started", "file", filepath.Base(path), "strings", totalStrings)
	m.persistLocked()
}

// UpdateTaskProgress sets the progress of a running task. A negative
// translated count leaves the string counters untouched.
func (m *Monitor) UpdateTaskProgress(id string, progress, translated int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.active[id]
	if !ok {
		return
	}
	t.Progress = clamp(progress)
	if translated >= 0 {
		m.session.TranslatedStrings += translated - t.TranslatedStrings
		t.TranslatedStrings = translated
	}
	m.updateEstimatesLocked()
}

// CompleteTask records a successful task.
func (m *Monitor) CompleteTask(id, path string, translated int) {
	m.finish(id, path, StatusCompleted, translated, "")
}

// SkipTask records a cache hit.
func (m *Monitor) SkipTask(id, path string) {
	m.finish(id, path, StatusSkipped, 0, "")
}

// FailTask records a failed task.
func (m *Monitor) FailTask(id, path, errMsg string) {
	m.finish(id, path, StatusFailed, 0, errMsg)
}

// finish applies a terminal transition once. Tasks that never started (for
// example abandoned at a run deadline) are registered on the spot so the
// counters always add up.
func (m *Monitor) finish(id, path string, status TaskStatus, translated int, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ended[id]; ok {
		return
	}
	now := m.opts.Now()
	t, ok := m.active[id]
	if !ok {
		t = &TaskProgress{TaskID: id, FileName: filepath.Base(path), StartedAt: now}
	}
	delete(m.active, id)
	m.ended[id] = struct{}{}
	t.Status = status
	t.EndedAt = now
	t.Error = errMsg

	if m.session.Finished() >= m.session.TotalFiles {
		m.logger.Warn("more terminal tasks than files in session", "total", m.session.TotalFiles)
		m.session.TotalFiles++
		m.metrics.filesTotal.Set(float64(m.session.TotalFiles))
	}

	switch status {
	case StatusCompleted:
		t.Progress = 100
		// string deltas already reported through progress updates are kept
		m.session.TranslatedStrings += translated - t.TranslatedStrings
		t.TranslatedStrings = translated
		m.session.Completed++
		m.completedTime += t.EndedAt.Sub(t.StartedAt)
		m.completedN++
		m.metrics.taskDuration.Observe(t.EndedAt.Sub(t.StartedAt).Seconds())
		m.metrics.stringsTranslated.Add(float64(translated))
		m.logger.Info("completed", "file", t.FileName, "strings", translated,
			"duration", t.EndedAt.Sub(t.StartedAt).Round(100*time.Millisecond).String())
	case StatusSkipped:
		t.Progress = 100
		m.session.Skipped++
		m.logger.Debug("skipped (cached)", "file", t.FileName)
	case StatusFailed:
		m.session.Failed++
		m.logger.Warn("failed", "file", t.FileName, "error", errMsg)
	}
	m.metrics.tasksTotal.WithLabelValues(string(status)).Inc()

	m.recent = append(m.recent, *t)
	if len(m.recent) > retainedTasks {
		m.recent = append(m.recent[:0], m.recent[len(m.recent)-retainedTasks:]...)
	}
	m.updateEstimatesLocked()
	m.persistLocked()
}

// updateEstimatesLocked recomputes the average over completed tasks and the
// remaining-time estimate.
func (m *Monitor) updateEstimatesLocked() {
	if m.completedN == 0 {
		return
	}
	avg := m.completedTime / time.Duration(m.completedN)
	m.session.AverageTimePerFileMs = avg.Milliseconds()
	eta := avg * time.Duration(m.session.Remaining())
	m.session.EstimatedTimeRemainingMs = eta.Milliseconds()
	m.metrics.eta.Set(eta.Seconds())
}

// Session returns a copy of the session counters.
func (m *Monitor) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Task returns a copy of one task record. Finished tasks are found only
// while they are among the most recent ones.
func (m *Monitor) Task(id string) (TaskProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.active[id]; ok {
		return *t, true
	}
	for i := len(m.recent) - 1; i >= 0; i-- {
		if m.recent[i].TaskID == id {
			return m.recent[i], true
		}
	}
	return TaskProgress{}, false
}

// Snapshot returns the current progress view.
func (m *Monitor) Snapshot() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.Now()
	p := Progress{
		Session:   m.session,
		ElapsedMs: now.Sub(m.session.StartedAt).Milliseconds(),
		Time:      now,
	}
	if m.session.TotalFiles > 0 {
		p.Percent = float64(m.session.Completed+m.session.Skipped) / float64(m.session.TotalFiles) * 100
	}
	for _, t := range m.active {
		p.Active = append(p.Active, *t)
	}
	sort.Slice(p.Active, func(i, j int) bool { return p.Active[i].StartedAt.Before(p.Active[j].StartedAt) })
	return p
}

// StartProgressUpdates emits a snapshot every interval until ctx ends or
// StopProgressUpdates is called. Calling it while updates run is a no-op.
func (m *Monitor) StartProgressUpdates(ctx context.Context) {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.emitSnapshot()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// StopProgressUpdates stops periodic snapshots and waits for the ticker
// goroutine to exit. It is safe to call more than once.
func (m *Monitor) StopProgressUpdates() {
	m.tickMu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.tickMu.Unlock()

	if cancel != nil {
		cancel()
		m.wg.Wait()
	}
}

func (m *Monitor) emitSnapshot() {
	p := m.Snapshot()
	eta := "?"
	if p.Session.EstimatedTimeRemainingMs > 0 {
		eta = (time.Duration(p.Session.EstimatedTimeRemainingMs) * time.Millisecond).Round(time.Second).String()
	}
	m.logger.Info("progress",
		"percent", fmt.Sprintf("%.1f", p.Percent),
		"done", p.Session.Completed+p.Session.Skipped,
		"total", p.Session.TotalFiles,
		"failed", p.Session.Failed,
		"strings", fmt.Sprintf("%d/%d", p.Session.TranslatedStrings, p.Session.TotalStrings),
		"eta", eta,
		"active", len(p.Active))
	if m.opts.Sink != nil {
		m.opts.Sink.Snapshot(p)
	}
}

// CompleteSession stops updates, computes the final metrics and appends
// them to the history. Later calls return the same metrics. A history write
// failure is returned alongside valid metrics.
func (m *Monitor) CompleteSession(ctx context.Context) (Metrics, error) {
	m.StopProgressUpdates()

	m.mu.Lock()
	if m.done != nil {
		defer m.mu.Unlock()
		return *m.done, nil
	}
	m.session.EndedAt = m.opts.Now()
	metrics := m.calculateLocked(m.session.EndedAt)
	m.done = &metrics
	m.metrics.eta.Set(0)
	m.persistLocked()
	rec := m.recordLocked(metrics)
	m.mu.Unlock()

	m.logger.Info("session complete",
		"completed", rec.Completed,
		"skipped", rec.Skipped,
		"failed", rec.Failed,
		"strings", rec.TranslatedStrings,
		"success_rate", fmt.Sprintf("%.1f%%", metrics.SuccessRate),
		"cache_hit_rate", fmt.Sprintf("%.1f%%", metrics.CacheHitRate),
		"throughput", fmt.Sprintf("%.1f files/min", metrics.Throughput))

	if m.opts.History == nil {
		return metrics, nil
	}
	if err := m.opts.History.AppendSession(ctx, rec, m.opts.HistorySize); err != nil {
		return metrics, fmt.Errorf("failed to record session history: %w", err)
	}
	return metrics, nil
}

// Metrics computes the metrics of the session so far.
func (m *Monitor) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		return *m.done
	}
	return m.calculateLocked(m.opts.Now())
}

func (m *Monitor) calculateLocked(end time.Time) Metrics {
	s := m.session
	total := end.Sub(s.StartedAt)
	finished := s.Completed + s.Skipped

	mt := Metrics{
		TotalTimeMs:          total.Milliseconds(),
		AverageTimePerFileMs: float64(s.AverageTimePerFileMs),
	}
	if s.TotalFiles > 0 {
		mt.SuccessRate = float64(finished) / float64(s.TotalFiles) * 100
		mt.CacheHitRate = float64(s.Skipped) / float64(s.TotalFiles) * 100
	}
	if s.TranslatedStrings > 0 {
		mt.AverageTimePerString = float64(total.Milliseconds()) / float64(s.TranslatedStrings)
	}
	if minutes := total.Minutes(); minutes > 0 {
		mt.Throughput = float64(finished) / minutes
	}
	if s.Skipped > 0 {
		per := time.Duration(s.AverageTimePerFileMs) * time.Millisecond
		if per <= 0 {
			per = assumedTimePerFile
		}
		mt.TimeSavedMs = (per * time.Duration(s.Skipped)).Milliseconds()
	}
	return mt
}

func (m *Monitor) recordLocked(mt Metrics) storage.SessionRecord {
	s := m.session
	return storage.SessionRecord{
		SessionID:           s.SessionID,
		StartedAt:           s.StartedAt,
		EndedAt:             s.EndedAt,
		TotalFiles:          s.TotalFiles,
		Completed:           s.Completed,
		Failed:              s.Failed,
		Skipped:             s.Skipped,
		TotalStrings:        s.TotalStrings,
		TranslatedStrings:   s.TranslatedStrings,
		DurationMs:          mt.TotalTimeMs,
		AvgTimePerFileMs:    mt.AverageTimePerFileMs,
		AvgTimePerStringMs:  mt.AverageTimePerString,
		SuccessRate:         mt.SuccessRate,
		CacheHitRate:        mt.CacheHitRate,
		ThroughputPerMinute: mt.Throughput,
	}
}

// Comparison relates the current metrics to the mean of up to HistorySize
// earlier sessions. It returns nil when there is no earlier session.
func (m *Monitor) Comparison(ctx context.Context) (*Comparison, error) {
	if m.opts.History == nil {
		return nil, nil
	}
	recs, err := m.opts.History.RecentSessions(ctx, m.opts.HistorySize+1)
	if err != nil {
		return nil, err
	}

	var prev []storage.SessionRecord
	for _, r := range recs {
		if r.SessionID != m.session.SessionID && len(prev) < m.opts.HistorySize {
			prev = append(prev, r)
		}
	}
	if len(prev) == 0 {
		return nil, nil
	}

	c := &Comparison{Current: m.Metrics(), Sessions: len(prev)}
	for _, r := range prev {
		c.Average.TotalTimeMs += r.DurationMs
		c.Average.AverageTimePerFileMs += r.AvgTimePerFileMs
		c.Average.SuccessRate += r.SuccessRate
		c.Average.CacheHitRate += r.CacheHitRate
		c.Average.Throughput += r.ThroughputPerMinute
	}
	n := float64(len(prev))
	c.Average.TotalTimeMs = int64(float64(c.Average.TotalTimeMs) / n)
	c.Average.AverageTimePerFileMs /= n
	c.Average.SuccessRate /= n
	c.Average.CacheHitRate /= n
	c.Average.Throughput /= n

	if c.Average.Throughput > 0 {
		c.ThroughputChange = (c.Current.Throughput - c.Average.Throughput) / c.Average.Throughput * 100
	}
	c.SuccessRateChange = c.Current.SuccessRate - c.Average.SuccessRate
	if c.Average.AverageTimePerFileMs > 0 {
		c.SpeedupPerFile = (c.Average.AverageTimePerFileMs - c.Current.AverageTimePerFileMs) / c.Average.AverageTimePerFileMs * 100
	}
	return c, nil
}

// persistLocked writes the session state file: the counters, the running
// tasks and the retained finished ones. Failures only log.
func (m *Monitor) persistLocked() {
	if m.opts.SessionFile == "" {
		return
	}
	state := struct {
		Session Session        `json:"session"`
		Tasks   []TaskProgress `json:"tasks"`
		Time    time.Time      `json:"timestamp"`
	}{Session: m.session, Time: m.opts.Now()}
	state.Tasks = make([]TaskProgress, 0, len(m.active)+len(m.recent))
	state.Tasks = append(state.Tasks, m.recent...)
	for _, t := range m.active {
		state.Tasks = append(state.Tasks, *t)
	}
	sort.SliceStable(state.Tasks, func(i, j int) bool { return state.Tasks[i].StartedAt.Before(state.Tasks[j].StartedAt) })

	if err := cache.WriteJSONAtomic(m.opts.SessionFile, state); err != nil {
		m.logger.Warn("failed to save session state", "path", m.opts.SessionFile, "error", err)
	}
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
