// Package scheduler runs translation tasks in strict priority buckets under a
// bounded number of concurrent permits.
package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/scanner"
)

// TaskState is the lifecycle state of a task.
type TaskState string

const (
	TaskPending    TaskState = "pending"
	TaskProcessing TaskState = "processing"
	TaskCompleted  TaskState = "completed"
	TaskFailed     TaskState = "failed"
	TaskSkipped    TaskState = "skipped"
)

// ResultKind classifies how a task ended.
type ResultKind string

const (
	KindCacheSkip           ResultKind = "cache-skip"
	KindSuccess             ResultKind = "success"
	KindTimeout             ResultKind = "timeout"
	KindTranslatorError     ResultKind = "translator-error"
	KindUnexpectedException ResultKind = "unexpected-exception"
)

// Task is one scheduled file.
type Task struct {
	ID         string            `json:"id"`
	Candidate  scanner.Candidate `json:"candidate"`
	Priority   scanner.Priority  `json:"priority"`
	State      TaskState         `json:"state"`
	Kind       ResultKind        `json:"kind,omitempty"`
	Progress   int               `json:"progress"` // 0-100
	StartedAt  *time.Time        `json:"startedAt,omitempty"`
	FinishedAt *time.Time        `json:"finishedAt,omitempty"`
	Error      string            `json:"error,omitempty"`
	Code       string            `json:"code,omitempty"`
	Translated int               `json:"translated,omitempty"`
}

// NewTask creates a pending task for c.
func NewTask(c scanner.Candidate) *Task {
	return &Task{
		ID:        uuid.New().String(),
		Candidate: c,
		Priority:  c.Priority,
		State:     TaskPending,
	}
}

// IsTerminal returns true once the task has completed, failed or been skipped.
func (t *Task) IsTerminal() bool {
	return t.State == TaskCompleted || t.State == TaskFailed || t.State == TaskSkipped
}

// MarkStarted transitions the task to processing.
func (t *Task) MarkStarted(now time.Time) {
	t.State = TaskProcessing
	t.StartedAt = &now
}

// MarkCompleted records a successful translation of n strings.
func (t *Task) MarkCompleted(now time.Time, n int) {
	t.finish(now)
	t.State = TaskCompleted
	t.Kind = KindSuccess
	t.Translated = n
	t.Progress = 100
}

// MarkSkipped records a cache hit.
func (t *Task) MarkSkipped(now time.Time) {
	t.finish(now)
	t.State = TaskSkipped
	t.Kind = KindCacheSkip
	t.Progress = 100
}

// MarkFailed records a failure of the given kind.
func (t *Task) MarkFailed(now time.Time, kind ResultKind, code string, err error) {
	t.finish(now)
	t.State = TaskFailed
	t.Kind = kind
	t.Code = code
	if err != nil {
		t.Error = err.Error()
	}
}

func (t *Task) finish(now time.Time) {
	if t.StartedAt == nil {
		t.StartedAt = &now
	}
	t.FinishedAt = &now
}

// SetProgress updates the task's progress (0-100).
func (t *Task) SetProgress(progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	t.Progress = progress
}

// Duration returns how long the task ran; zero until it has finished.
func (t *Task) Duration() time.Duration {
	if t.StartedAt == nil || t.FinishedAt == nil {
		return 0
	}
	return t.FinishedAt.Sub(*t.StartedAt)
}
