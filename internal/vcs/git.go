// Package vcs answers "which revision last touched this file" for cache staleness checks.
// Every failure is reported as "no revision"; callers treat that as a skipped check.
package vcs

import (
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/slogutil"
)

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 5 * time.Second

// RevisionSource reports the latest revision touching a path.
type RevisionSource interface {
	Revision(ctx context.Context, path string) (string, bool)
}

// None never knows a revision.
type None struct{}

func (None) Revision(context.Context, string) (string, bool) { return "", false }

// Git shells out to `git log -1 --format=%H -- <file>` from the file's directory.
type Git struct {
	timeout time.Duration
	logger  *slog.Logger

	once      sync.Once
	available bool
}

// NewGit creates a git revision source. A zero timeout selects DefaultTimeout.
func NewGit(timeout time.Duration, logger *slog.Logger) *Git {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Git{timeout: timeout, logger: slogutil.OrDiscard(logger)}
}

// Available reports whether a git binary is on PATH.
func (g *Git) Available() bool {
	g.once.Do(func() {
		_, err := exec.LookPath("git")
		g.available = err == nil
		if !g.available {
			g.logger.Debug("git not found, revision tracking disabled")
		}
	})
	return g.available
}

// Revision returns the commit hash of the last commit touching path.
// Untracked files, non-repositories and timeouts all yield ("", false).
func (g *Git) Revision(ctx context.Context, path string) (string, bool) {
	if !g.Available() {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "log", "-1", "--format=%H", "--", filepath.Base(path))
	cmd.Dir = filepath.Dir(path)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			g.logger.Debug("git revision lookup timed out", "path", path, "timeout", g.timeout)
		}
		return "", false
	}

	rev := strings.TrimSpace(string(out))
	if rev == "" {
		return "", false
	}
	return rev, true
}
