package scheduler

import (
	"time"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/scanner"
)

// Result is the terminal record of one task.
type Result struct {
	TaskID     string           `json:"taskId" yaml:"taskId"`
	Path       string           `json:"path" yaml:"path"`
	RelPath    string           `json:"relPath,omitempty" yaml:"relPath,omitempty"`
	Priority   scanner.Priority `json:"priority" yaml:"priority"`
	State      TaskState        `json:"state" yaml:"state"`
	Kind       ResultKind       `json:"kind" yaml:"kind"`
	Code       string           `json:"code,omitempty" yaml:"code,omitempty"`
	Error      string           `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time        `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt" yaml:"finishedAt"`
	DurationMs int64            `json:"durationMs" yaml:"durationMs"`
	Translated int              `json:"translated" yaml:"translated"`
}

// Failure is the user-facing line for a failed task.
type Failure struct {
	Path  string     `json:"path" yaml:"path"`
	Kind  ResultKind `json:"kind" yaml:"kind"`
	Code  string     `json:"code,omitempty" yaml:"code,omitempty"`
	Error string     `json:"error" yaml:"error"`
}

// Summary aggregates a run. Processed counts successful translator calls.
type Summary struct {
	Total             int       `json:"total" yaml:"total"`
	Processed         int       `json:"processed" yaml:"processed"`
	Failed            int       `json:"failed" yaml:"failed"`
	Skipped           int       `json:"skipped" yaml:"skipped"`
	Translated        int       `json:"translated" yaml:"translated"`
	TotalDurationMs   int64     `json:"totalDurationMs" yaml:"totalDurationMs"`
	AverageDurationMs int64     `json:"averageDurationMs" yaml:"averageDurationMs"`
	Failures          []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Report is the outcome of Process.
type Report struct {
	Results []Result `json:"results" yaml:"results"`
	Summary Summary  `json:"summary" yaml:"summary"`
}

// buildReport keeps dispatch order. The average covers tasks that called
// the translator successfully.
func buildReport(tasks []*Task, wall time.Duration) *Report {
	r := &Report{Results: make([]Result, 0, len(tasks))}
	var busy time.Duration
	for _, t := range tasks {
		res := Result{
			TaskID:     t.ID,
			Path:       t.Candidate.Path,
			RelPath:    t.Candidate.RelPath,
			Priority:   t.Priority,
			State:      t.State,
			Kind:       t.Kind,
			Code:       t.Code,
			Error:      t.Error,
			DurationMs: t.Duration().Milliseconds(),
			Translated: t.Translated,
		}
		if t.StartedAt != nil {
			res.StartedAt = *t.StartedAt
		}
		if t.FinishedAt != nil {
			res.FinishedAt = *t.FinishedAt
		}
		r.Results = append(r.Results, res)

		switch t.State {
		case TaskCompleted:
			r.Summary.Processed++
			r.Summary.Translated += t.Translated
			busy += t.Duration()
		case TaskSkipped:
			r.Summary.Skipped++
		default:
			r.Summary.Failed++
			r.Summary.Failures = append(r.Summary.Failures, Failure{
				Path:  t.Candidate.Path,
				Kind:  t.Kind,
				Code:  t.Code,
				Error: t.Error,
			})
		}
	}
	r.Summary.Total = len(tasks)
	r.Summary.TotalDurationMs = wall.Milliseconds()
	if r.Summary.Processed > 0 {
		r.Summary.AverageDurationMs = (busy / time.Duration(r.Summary.Processed)).Milliseconds()
	}
	return r
}

// ByKind counts results per kind.
func (r *Report) ByKind() map[ResultKind]int {
	out := make(map[ResultKind]int)
	for _, res := range r.Results {
		out[res.Kind]++
	}
	return out
}
