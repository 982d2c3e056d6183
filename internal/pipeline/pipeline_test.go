package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/cache"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/config"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/errors"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/literals"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/scheduler"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/translator"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/vcs"
)

// countingTranslator translates every qualifying literal and counts calls.
// With delay set each call takes that long; with entered set it is signalled
// once a call is in progress.
type countingTranslator struct {
	calls   atomic.Int32
	fail    string
	delay   time.Duration
	entered chan struct{}
	release chan struct{}
}

func (c *countingTranslator) Translate(ctx context.Context, path, content string) (*translator.Outcome, error) {
	c.calls.Add(1)
	if c.entered != nil {
		c.entered <- struct{}{}
	}
	if c.release != nil {
		<-c.release
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.fail != "" && filepath.Base(path) == c.fail {
		return nil, fmt.Errorf("translator rejected %s", c.fail)
	}
	texts, err := literals.Count(ctx, literals.RegexExtractor{}, path, []byte(content), nil)
	if err != nil {
		return nil, err
	}
	out := &translator.Outcome{FilePath: path}
	for _, t := range texts {
		out.Strings = append(out.Strings, translator.StringResult{
			OriginalText:   t,
			Key:            "common." + t,
			TranslatedText: "T:" + t,
		})
	}
	return out, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Scan.SrcDir = "src"
	cfg.Cache.TrackRevision = false
	cfg.Scheduler.MaxConcurrency = 1
	cfg.Scheduler.TaskTimeoutMs = 5000
	return cfg
}

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, "src", rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func setupTestPipeline(t *testing.T, tr translator.Translator, opts ...Option) (*Pipeline, string) {
	t.Helper()
	return setupTestPipelineWithConfig(t, testConfig(), tr, opts...)
}

func setupTestPipelineWithConfig(t *testing.T, cfg *config.Config, tr translator.Translator, opts ...Option) (*Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	opts = append([]Option{
		WithExtractor(literals.RegexExtractor{}),
		WithRevisions(vcs.None{}),
	}, opts...)
	p, err := New(root, cfg, tr, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, root
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.MaxConcurrency = 0

	_, err := New(t.TempDir(), cfg, &countingTranslator{})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestRun_RequiresTranslator(t *testing.T) {
	p, root := setupTestPipeline(t, nil)
	writeSource(t, root, "a.js", `const a = "你好";`)

	_, err := p.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	report, err := p.Run(context.Background(), RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Scan.NeedsProcessing)
	assert.Nil(t, report.Summary)
}

func TestRun_SharedLiteralReusesStringIndex(t *testing.T) {
	tr := &countingTranslator{}
	p, root := setupTestPipeline(t, tr)
	writeSource(t, root, "a.js", `const a = "你好";`)
	writeSource(t, root, "b.js", `const b = '你好';`)

	report, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), tr.calls.Load())
	assert.Equal(t, 1, p.Store().StringCount())
	assert.Equal(t, SourceCounts{Translator: 1, StringIndex: 1}, report.Sources)

	require.NotNil(t, report.Summary)
	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 2, report.Summary.Processed)
	assert.Equal(t, 0, report.Summary.Failed)
	assert.Equal(t, 2, report.Summary.Translated)

	require.NotNil(t, report.Session)
	assert.Equal(t, 2, report.Session.Completed)
	assert.FileExists(t, paths.SessionPath(p.CacheDir()))
}

func TestRun_SecondRunFindsNothingStale(t *testing.T) {
	tr := &countingTranslator{}
	p, root := setupTestPipeline(t, tr)
	writeSource(t, root, "a.js", `const a = "你好";`)
	writeSource(t, root, "b.js", `const b = "再見";`)

	_, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Equal(t, int32(2), tr.calls.Load())

	report, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), tr.calls.Load())
	assert.Equal(t, 2, report.Scan.TotalFiles)
	assert.Equal(t, 0, report.Scan.NeedsProcessing)
	assert.Equal(t, 0, report.Summary.Total)

	history, err := p.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRun_ForceUsesResponseCache(t *testing.T) {
	tr := &countingTranslator{}
	p, root := setupTestPipeline(t, tr)
	writeSource(t, root, "a.js", `const a = "你好";`)
	writeSource(t, root, "b.js", `const b = "再見";`)

	_, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	report, err := p.Run(context.Background(), RunOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, int32(2), tr.calls.Load())
	assert.Equal(t, 2, report.Scan.NeedsProcessing)
	assert.Equal(t, 2, report.Summary.Processed)
	assert.Equal(t, int64(2), report.Sources.Response)
}

func TestRun_FailureIsReportedNotReturned(t *testing.T) {
	tr := &countingTranslator{fail: "bad.js"}
	p, root := setupTestPipeline(t, tr, WithoutHistory())
	writeSource(t, root, "good.js", `const a = "你好";`)
	writeSource(t, root, "bad.js", `const b = "壞掉";`)

	rec := &scheduler.Recorder{}
	p.listeners = append(p.listeners, rec)

	report, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Processed)
	assert.Equal(t, 1, report.Summary.Failed)
	require.Len(t, report.Summary.Failures, 1)
	assert.Equal(t, scheduler.KindTranslatorError, report.Summary.Failures[0].Kind)
	assert.Len(t, rec.Of(scheduler.EventTaskFailed), 1)

	history, err := p.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Nil(t, history)

	// the failed file is retried on the next run
	report, err = p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scan.NeedsProcessing)
}

func TestCachedTranslator_PartialIndexCallsTranslator(t *testing.T) {
	dir := t.TempDir()
	store, err := cache.Open(dir, cache.Options{})
	require.NoError(t, err)
	require.NoError(t, store.SaveStrings([]translator.StringResult{{OriginalText: "你好", Key: "common.hello", TranslatedText: "Hello"}}))

	tr := &countingTranslator{}
	ct := NewCachedTranslator(tr, store, literals.RegexExtractor{}, nil, 0, nil)

	out, err := ct.Translate(context.Background(), "/src/a.js", `x("你好"); y("新的")`)
	require.NoError(t, err)
	assert.Equal(t, translator.SourceTranslator, out.Source)
	assert.Equal(t, int32(1), tr.calls.Load())

	out, err = ct.Translate(context.Background(), "/src/b.js", `z("你好")`)
	require.NoError(t, err)
	assert.Equal(t, translator.SourceStringIndex, out.Source)
	require.Len(t, out.Strings, 1)
	assert.Equal(t, "T:你好", out.Strings[0].TranslatedText, "the latest translation replaces the indexed one")

	out, err = ct.Translate(context.Background(), "/src/a.js", `x("你好"); y("新的")`)
	require.NoError(t, err)
	assert.Equal(t, translator.SourceResponse, out.Source)
	assert.Equal(t, int32(1), tr.calls.Load())

	assert.Equal(t, SourceCounts{Translator: 1, Response: 1, StringIndex: 1}, ct.Counts())
}

func TestRun_SharedLiteralConcurrentFiles(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.MaxConcurrency = 3
	tr := &countingTranslator{delay: 50 * time.Millisecond}
	p, root := setupTestPipelineWithConfig(t, cfg, tr)
	writeSource(t, root, "a.js", `const a = "你好";`)
	writeSource(t, root, "b.js", `const b = '你好';`)

	report, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), tr.calls.Load(), "one translator call for the shared literal")
	assert.Equal(t, 1, p.Store().StringCount())
	assert.Equal(t, SourceCounts{Translator: 1, StringIndex: 1}, report.Sources)
	require.NotNil(t, report.Summary)
	assert.Equal(t, 2, report.Summary.Processed)
	assert.Equal(t, 2, report.Summary.Translated)
}

func TestCachedTranslator_ConcurrentMissesShareOneCall(t *testing.T) {
	store, err := cache.Open(t.TempDir(), cache.Options{})
	require.NoError(t, err)
	tr := &countingTranslator{entered: make(chan struct{}, 1), release: make(chan struct{})}
	ct := NewCachedTranslator(tr, store, literals.RegexExtractor{}, nil, 0, nil)

	var wg sync.WaitGroup
	outs := make([]*translator.Outcome, 2)
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outs[0], errs[0] = ct.Translate(context.Background(), "/src/a.js", `x("你好"); y("世界")`)
	}()
	<-tr.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		outs[1], errs[1] = ct.Translate(context.Background(), "/src/b.js", `z("世界"); w("你好")`)
	}()
	// give the second call time to join the in-flight translation
	time.Sleep(20 * time.Millisecond)
	close(tr.release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), tr.calls.Load())
	assert.Equal(t, translator.SourceTranslator, outs[0].Source)
	assert.Equal(t, translator.SourceStringIndex, outs[1].Source)
	assert.Equal(t, "/src/b.js", outs[1].FilePath)
	require.Len(t, outs[1].Strings, 2)
	assert.Equal(t, "T:世界", outs[1].Strings[0].TranslatedText)
	assert.Equal(t, SourceCounts{Translator: 1, StringIndex: 1}, ct.Counts())
}

func TestCachedTranslator_FailedFlightLetsFollowerRetry(t *testing.T) {
	store, err := cache.Open(t.TempDir(), cache.Options{})
	require.NoError(t, err)
	tr := &countingTranslator{fail: "a.js"}
	ct := NewCachedTranslator(tr, store, literals.RegexExtractor{}, nil, 0, nil)

	_, err = ct.Translate(context.Background(), "/src/a.js", `x("你好")`)
	require.Error(t, err)

	out, err := ct.Translate(context.Background(), "/src/b.js", `x("你好")`)
	require.NoError(t, err)
	assert.Equal(t, translator.SourceTranslator, out.Source)
	assert.Equal(t, int32(2), tr.calls.Load())
}
