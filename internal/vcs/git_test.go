package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func TestGit_Revision(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	file := filepath.Join(dir, "a.ts")
	require.NoError(t, os.WriteFile(file, []byte("const a = '你好'"), 0644))

	g := NewGit(0, nil)

	_, ok := g.Revision(context.Background(), file)
	assert.False(t, ok, "untracked file has no revision")

	runGit(t, dir, "add", "a.ts")
	runGit(t, dir, "commit", "-q", "-m", "init")

	rev, ok := g.Revision(context.Background(), file)
	require.True(t, ok)
	assert.Len(t, rev, 40)

	again, ok := g.Revision(context.Background(), file)
	require.True(t, ok)
	assert.Equal(t, rev, again)
}

func TestGit_OutsideRepository(t *testing.T) {
	file := filepath.Join(t.TempDir(), "b.ts")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, ok := NewGit(0, nil).Revision(context.Background(), file)
	assert.False(t, ok)
}

func TestNone(t *testing.T) {
	rev, ok := None{}.Revision(context.Background(), "/any")
	assert.False(t, ok)
	assert.Empty(t, rev)
}
