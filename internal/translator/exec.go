package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/slogutil"
)

// killGrace bounds how long a cancelled command may keep its output pipes open.
const killGrace = 2 * time.Second

// Request is written as JSON to the translator command's stdin.
type Request struct {
	FilePath string `json:"filePath"`
	Content  string `json:"content"`
}

// ExecTranslator runs an external command per file. The command reads a
// Request on stdin and writes an Outcome on stdout. The process is killed
// when ctx is done.
type ExecTranslator struct {
	Command string
	Args    []string
	Env     map[string]string
	Dir     string
	Logger  *slog.Logger
}

func (e *ExecTranslator) Translate(ctx context.Context, filePath, content string) (*Outcome, error) {
	if e.Command == "" {
		return nil, fmt.Errorf("translator command not configured")
	}

	in, err := json.Marshal(Request{FilePath: filePath, Content: content})
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.Command, e.Args...)
	cmd.Dir = e.Dir
	cmd.Stdin = bytes.NewReader(in)
	cmd.WaitDelay = killGrace
	if len(e.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range e.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slogutil.OrDiscard(e.Logger).Debug("running translator", "command", e.Command, "path", filePath)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("translator command failed: %w", err)
		}
		return nil, fmt.Errorf("translator command failed: %w: %s", err, msg)
	}

	var out Outcome
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("decode translator output: %w", err)
	}
	if out.FilePath == "" {
		out.FilePath = filePath
	}
	out.Source = SourceTranslator
	return &out, nil
}
