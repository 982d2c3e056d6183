package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/errors"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/translator"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeRevisions serves revisions from a map.
type fakeRevisions struct {
	mu   sync.Mutex
	revs map[string]string
}

func (f *fakeRevisions) set(path, rev string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revs == nil {
		f.revs = map[string]string{}
	}
	f.revs[path] = rev
}

func (f *fakeRevisions) Revision(_ context.Context, path string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev, ok := f.revs[path]
	return rev, ok
}

func setupTestStore(t *testing.T, mutate func(*Options)) (*Store, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts := Options{Now: clock.Now}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := Open(t.TempDir(), opts)
	require.NoError(t, err)
	return s, clock
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	canonical, err := paths.CanonicalizePath(path)
	require.NoError(t, err)
	return canonical
}

func stringResults(text, key, translation string) []translator.StringResult {
	return []translator.StringResult{{OriginalText: text, Key: key, TranslatedText: translation}}
}

func outcomeFor(path string, pairs ...string) *translator.Outcome {
	out := &translator.Outcome{FilePath: path}
	for i := 0; i+2 < len(pairs); i += 3 {
		out.Strings = append(out.Strings, translator.StringResult{
			OriginalText: pairs[i], Key: pairs[i+1], TranslatedText: pairs[i+2],
		})
	}
	return out
}

func TestNeedsTranslation_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t, nil)
	src := writeSource(t, t.TempDir(), "src/a.ts", "const a = '你好'")

	assert.True(t, s.NeedsTranslation(ctx, src), "no record yet")

	require.NoError(t, s.Save(ctx, src, outcomeFor(src, "你好", "common.hello", "Hello")))
	assert.False(t, s.NeedsTranslation(ctx, src), "unchanged content")
	assert.False(t, s.NeedsTranslation(ctx, src), "second scan is still fresh")

	require.NoError(t, os.WriteFile(src, []byte("const a = '你好嗎'"), 0644))
	assert.True(t, s.NeedsTranslation(ctx, src), "content changed")
}

func TestNeedsTranslation_FreshLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := writeSource(t, t.TempDir(), "a.ts", "const a = '你好'")

	s1, err := Open(dir, Options{})
	require.NoError(t, err)
	require.NoError(t, s1.Save(ctx, src, outcomeFor(src, "你好", "k", "Hello")))

	s2, err := Open(dir, Options{})
	require.NoError(t, err)
	assert.False(t, s2.NeedsTranslation(ctx, src))

	hits := s2.LookupStrings([]string{"你好", "再見"})
	require.Len(t, hits, 1)
	assert.Equal(t, "Hello", hits["你好"].Translation)
}

func TestNeedsTranslation_Revision(t *testing.T) {
	ctx := context.Background()
	revs := &fakeRevisions{}
	s, _ := setupTestStore(t, func(o *Options) {
		o.TrackRevision = true
		o.Revisions = revs
	})
	src := writeSource(t, t.TempDir(), "a.ts", "const a = '你好'")

	revs.set(src, "rev1")
	require.NoError(t, s.Save(ctx, src, nil))
	assert.False(t, s.NeedsTranslation(ctx, src))

	revs.set(src, "rev2")
	assert.True(t, s.NeedsTranslation(ctx, src), "revision moved")

	revs.mu.Lock()
	delete(revs.revs, src)
	revs.mu.Unlock()
	assert.False(t, s.NeedsTranslation(ctx, src), "unavailable revision skips the check")

	revs.set(src, "rev1")
	require.NoError(t, os.WriteFile(src, []byte("changed"), 0644))
	assert.True(t, s.NeedsTranslation(ctx, src), "content change wins regardless of revision")
}

func TestNeedsTranslation_RevisionIgnoredWhenUntracked(t *testing.T) {
	ctx := context.Background()
	revs := &fakeRevisions{}
	s, _ := setupTestStore(t, func(o *Options) { o.Revisions = revs })
	src := writeSource(t, t.TempDir(), "a.ts", "x")

	revs.set(src, "rev1")
	require.NoError(t, s.Save(ctx, src, nil))
	revs.set(src, "rev2")
	assert.False(t, s.NeedsTranslation(ctx, src))
}

func TestNeedsTranslation_CorruptedRecord(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t, nil)
	src := writeSource(t, t.TempDir(), "a.ts", "x")
	require.NoError(t, s.Save(ctx, src, nil))

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), paths.RecordName(src)), []byte("{broken"), 0644))
	assert.True(t, s.NeedsTranslation(ctx, src))
}

func TestFileEntry_NameCollision(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t, nil)
	root := t.TempDir()
	a := writeSource(t, root, "a_b.ts", "one")
	b := writeSource(t, root, "a/b.ts", "two")
	require.Equal(t, paths.RecordName(a), paths.RecordName(b))

	require.NoError(t, s.Save(ctx, a, nil))
	entry, err := s.FileEntry(b)
	require.NoError(t, err)
	assert.Nil(t, entry, "record owned by another path is treated as absent")
	assert.True(t, s.NeedsTranslation(ctx, b))
}

func TestSave_StringIndexSharedAcrossFiles(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t, nil)
	root := t.TempDir()
	a := writeSource(t, root, "a.ts", "const t = '提交'")
	b := writeSource(t, root, "b.ts", "const u = '提交'")

	require.NoError(t, s.Save(ctx, a, outcomeFor(a, "提交", "form.submit", "Submit")))
	require.NoError(t, s.Save(ctx, b, outcomeFor(b, "提交", "form.submit", "Submit")))

	assert.Equal(t, 1, s.StringCount())
	found := s.LookupStrings([]string{"提交", "取消"})
	assert.Len(t, found, 1)
	assert.Equal(t, "form.submit", found["提交"].Key)
}

func TestResponseCache_TTL(t *testing.T) {
	s, clock := setupTestStore(t, nil)

	require.NoError(t, s.Set("k", map[string]string{"v": "1"}, time.Minute))

	got, ok := s.Get("k")
	require.True(t, ok)
	assert.JSONEq(t, `{"v":"1"}`, string(got))

	clock.Advance(59 * time.Second)
	_, ok = s.Get("k")
	assert.True(t, ok, "still live before ttl")

	clock.Advance(2 * time.Second)
	_, ok = s.Get("k")
	assert.False(t, ok, "miss after ttl")
	assert.Equal(t, 0, s.ResponseCount(), "expired entry evicted on read")
}

func TestResponseCache_ExpiredEvictedOnRead(t *testing.T) {
	s, clock := setupTestStore(t, nil)
	require.NoError(t, s.Set("a", "x", time.Second))
	require.NoError(t, s.Set("b", "y", time.Hour))

	clock.Advance(2 * time.Second)
	before := s.ResponseCount()
	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, before-1, s.ResponseCount())
}

func TestResponseCache_DefaultTTL(t *testing.T) {
	s, clock := setupTestStore(t, func(o *Options) { o.DefaultTTL = time.Hour })
	require.NoError(t, s.Set("k", 1, 0))

	clock.Advance(59 * time.Minute)
	_, ok := s.Get("k")
	assert.True(t, ok)
	clock.Advance(time.Minute)
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestResponseCache_TrimRemovesOldest(t *testing.T) {
	s, clock := setupTestStore(t, func(o *Options) { o.MaxResponseEntries = 10 })

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Set(fmt.Sprintf("k%02d", i), i, 0))
		clock.Advance(time.Millisecond)
	}
	assert.Equal(t, 10, s.ResponseCount(), "at the cap nothing is trimmed")

	require.NoError(t, s.Set("k10", 10, 0))
	assert.Equal(t, 8, s.ResponseCount())

	for i := 0; i < 3; i++ {
		_, ok := s.Get(fmt.Sprintf("k%02d", i))
		assert.False(t, ok, "k%02d should be trimmed", i)
	}
	for i := 3; i <= 10; i++ {
		_, ok := s.Get(fmt.Sprintf("k%02d", i))
		assert.True(t, ok, "k%02d should survive", i)
	}
}

func TestResponseCache_TrimSameTimestampUsesInsertionOrder(t *testing.T) {
	s, _ := setupTestStore(t, func(o *Options) { o.MaxResponseEntries = 5 })
	for i := 0; i < 6; i++ {
		require.NoError(t, s.Set(fmt.Sprintf("k%d", i), i, 0))
	}
	assert.Equal(t, 4, s.ResponseCount())
	_, ok := s.Get("k0")
	assert.False(t, ok)
	_, ok = s.Get("k1")
	assert.False(t, ok)
	_, ok = s.Get("k5")
	assert.True(t, ok)
}

func TestResponseCache_SweptOnLoad(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock()

	s1, err := Open(dir, Options{Now: clock.Now})
	require.NoError(t, err)
	require.NoError(t, s1.Set("short", 1, time.Second))
	require.NoError(t, s1.Set("long", 2, time.Hour))

	clock.Advance(time.Minute)
	s2, err := Open(dir, Options{Now: clock.Now})
	require.NoError(t, err)
	assert.Equal(t, 1, s2.ResponseCount())
}

func TestInvalidateByPattern(t *testing.T) {
	s, _ := setupTestStore(t, nil)
	require.NoError(t, s.Set(TextKey("你好", "", ""), "hi", 0))
	require.NoError(t, s.Set(TextKey("再見", "", "ctx"), "bye", 0))
	require.NoError(t, s.Set(ResponseKey("", "a.ts", "x"), "file", 0))

	n, err := s.InvalidateByPattern(`^translate:text:`)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, s.ResponseCount())

	_, err = s.InvalidateByPattern("(")
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t, nil)
	src := writeSource(t, t.TempDir(), "a.ts", "x")
	require.NoError(t, s.Save(ctx, src, outcomeFor(src, "你好", "k", "v")))
	require.NoError(t, s.Set("k", 1, 0))

	require.NoError(t, s.Clear())
	assert.True(t, s.NeedsTranslation(ctx, src))
	assert.Equal(t, 0, s.StringCount())
	assert.Equal(t, 0, s.ResponseCount())
	records, err := s.RecordFiles()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBatchWrites(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Options{BatchWrites: true})
	require.NoError(t, err)
	require.NoError(t, s.Set("k", 1, 0))
	require.NoError(t, s.SaveStrings(stringResults("你好", "k", "Hello")))

	_, statErr := os.Stat(paths.ResponseTablePath(dir))
	assert.True(t, os.IsNotExist(statErr), "nothing persisted before Flush")

	require.NoError(t, s.Flush())
	reopened, err := Open(dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.ResponseCount())
	assert.Equal(t, 1, reopened.StringCount())
}

func TestCorruptedTableLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(paths.StringTablePath(dir), []byte("not json"), 0644))
	require.NoError(t, os.WriteFile(paths.ResponseTablePath(dir), []byte("null"), 0644))

	s, err := Open(dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, s.StringCount())

	health := s.TableHealth()
	require.Contains(t, health, TableStrings)
	assert.True(t, errors.Is(health[TableStrings], errors.CacheCorrupted))
	assert.NotContains(t, health, TableResponses)

	require.NoError(t, s.SaveStrings(stringResults("你好", "k", "v")), "store stays writable")
	assert.Empty(t, s.TableHealth(), "a successful write heals the table")
}

func TestConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t, nil)
	root := t.TempDir()

	srcs := make([]string, 20)
	for i := range srcs {
		srcs[i] = writeSource(t, root, fmt.Sprintf("f%d.ts", i), fmt.Sprintf("v%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := srcs[i]
			assert.NoError(t, s.Save(ctx, src, outcomeFor(src, fmt.Sprintf("文字%d", i), "k", "v")))
			assert.NoError(t, s.Set(fmt.Sprintf("r%d", i), i, 0))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, s.StringCount())
	assert.Equal(t, 20, s.ResponseCount())

	var table map[string]StringEntry
	data, err := os.ReadFile(paths.StringTablePath(s.Dir()))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &table))
	assert.Len(t, table, 20)
}
