package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/translator"
)

// Request is the input of one translator call.
type Request struct {
	Path    string
	Content string
}

// Executor runs a single translator call. Implementations convert panics
// into *PanicError.
type Executor interface {
	Name() string
	Execute(ctx context.Context, req Request) (*translator.Outcome, error)
}

// PanicError wraps a value recovered from a panicking translator.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("translator panicked: %v", e.Value)
}

func call(ctx context.Context, tr translator.Translator, req Request) (out *translator.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return tr.Translate(ctx, req.Path, req.Content)
}

// InProcessExecutor calls the translator on the task goroutine.
type InProcessExecutor struct {
	Translator translator.Translator
}

// NewInProcessExecutor returns the default executor.
func NewInProcessExecutor(tr translator.Translator) *InProcessExecutor {
	return &InProcessExecutor{Translator: tr}
}

func (e *InProcessExecutor) Name() string { return "in-process" }

func (e *InProcessExecutor) Execute(ctx context.Context, req Request) (*translator.Outcome, error) {
	return call(ctx, e.Translator, req)
}

// IsolatedExecutor runs every call on a dedicated goroutine locked to its own
// OS thread. When ctx ends first, Execute returns immediately and the worker
// is abandoned; its context is already cancelled, which kills subprocess
// translators.
type IsolatedExecutor struct {
	Translator translator.Translator
}

// NewIsolatedExecutor returns the fault-containing executor.
func NewIsolatedExecutor(tr translator.Translator) *IsolatedExecutor {
	return &IsolatedExecutor{Translator: tr}
}

func (e *IsolatedExecutor) Name() string { return "isolated" }

type execResult struct {
	out *translator.Outcome
	err error
}

func (e *IsolatedExecutor) Execute(ctx context.Context, req Request) (*translator.Outcome, error) {
	done := make(chan execResult, 1)
	go func() {
		// the thread is discarded when the goroutine exits without unlocking
		runtime.LockOSThread()
		out, err := call(ctx, e.Translator, req)
		done <- execResult{out: out, err: err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
