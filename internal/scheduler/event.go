package scheduler

import (
	"sync"
	"time"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/scanner"
)

// EventType names a task or bucket lifecycle transition.
type EventType string

const (
	EventBucketStarted  EventType = "bucket_started"
	EventBucketFinished EventType = "bucket_finished"
	EventTaskStarted    EventType = "task_started"
	EventTaskProgress   EventType = "task_progress"
	EventTaskCompleted  EventType = "task_completed"
	EventTaskFailed     EventType = "task_failed"
	EventTaskSkipped    EventType = "task_skipped"
)

// Event is delivered to listeners as the run progresses. Task fields are
// empty for bucket events.
type Event struct {
	Type     EventType
	Time     time.Time
	Priority scanner.Priority

	TaskID string
	Path   string
	// Strings is the known literal count of the file, set on task_started.
	Strings int
	// Translated is the number of strings the task produced.
	Translated int
	Progress   int
	Kind       ResultKind
	Error      string
	Duration   time.Duration

	// BucketSize is set on bucket events.
	BucketSize int
}

// Listener consumes lifecycle events. HandleEvent is called from task
// goroutines and must be safe for concurrent use.
type Listener interface {
	HandleEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) HandleEvent(e Event) { f(e) }

// Listeners fans events out to several listeners in order.
type Listeners []Listener

func (ls Listeners) HandleEvent(e Event) {
	for _, l := range ls {
		if l != nil {
			l.HandleEvent(e)
		}
	}
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) HandleEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the received events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Of returns the received events of type t.
func (r *Recorder) Of(t EventType) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
