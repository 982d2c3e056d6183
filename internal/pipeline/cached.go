package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/cache"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/literals"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/slogutil"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/translator"
)

// responseOp namespaces file responses inside the response cache.
const responseOp = "translate"

// SourceCounts tallies where translated outcomes came from.
type SourceCounts struct {
	Translator  int64 `json:"translator" yaml:"translator"`
	Response    int64 `json:"responseCache" yaml:"responseCache"`
	StringIndex int64 `json:"stringIndex" yaml:"stringIndex"`
}

// CachedTranslator consults the response cache and the string index before
// calling the wrapped translator. A file whose every qualifying literal is
// already indexed is answered without a translator call.
type CachedTranslator struct {
	next      translator.Translator
	store     *cache.Store
	extractor literals.Extractor
	pattern   *regexp.Regexp
	ttl       time.Duration
	logger    *slog.Logger

	flights singleflight.Group

	fromTranslator atomic.Int64
	fromResponse   atomic.Int64
	fromIndex      atomic.Int64
}

// NewCachedTranslator wraps next. A nil extractor uses the regex extractor,
// a nil pattern the default CJK pattern.
func NewCachedTranslator(next translator.Translator, store *cache.Store, extractor literals.Extractor, pattern *regexp.Regexp, ttl time.Duration, logger *slog.Logger) *CachedTranslator {
	if extractor == nil {
		extractor = literals.RegexExtractor{}
	}
	if pattern == nil {
		pattern = literals.DefaultTextPattern
	}
	return &CachedTranslator{
		next:      next,
		store:     store,
		extractor: extractor,
		pattern:   pattern,
		ttl:       ttl,
		logger:    slogutil.OrDiscard(logger),
	}
}

// Translate answers from the response cache, then from the string index,
// and only then calls the wrapped translator. Concurrent misses on the same
// set of unknown literals share one translator call; the other callers are
// answered from the index it fills.
func (c *CachedTranslator) Translate(ctx context.Context, filePath, content string) (*translator.Outcome, error) {
	key := cache.ResponseKey(responseOp, filePath, content)

	if raw, ok := c.store.Get(key); ok {
		var out translator.Outcome
		if err := json.Unmarshal(raw, &out); err == nil {
			out.Source = translator.SourceResponse
			c.fromResponse.Add(1)
			c.logger.Debug("response cache hit", "path", filePath)
			return &out, nil
		}
		c.logger.Warn("cached response unreadable, calling translator", "path", filePath)
	}

	texts, err := literals.Count(ctx, c.extractor, filePath, []byte(content), c.pattern)
	if err != nil || len(texts) == 0 {
		return c.translate(ctx, key, filePath, content)
	}
	missing := c.missing(texts)
	if len(missing) == 0 {
		return c.answerFromIndex(key, filePath, texts), nil
	}

	led := false
	v, err, _ := c.flights.Do(flightKey(missing), func() (interface{}, error) {
		led = true
		if len(c.missing(texts)) == 0 {
			return c.answerFromIndex(key, filePath, texts), nil
		}
		return c.translate(ctx, key, filePath, content)
	})
	if led {
		if err != nil {
			return nil, err
		}
		return v.(*translator.Outcome), nil
	}

	// another file's flight translated the same literals
	if len(c.missing(texts)) == 0 {
		c.logger.Debug("reused concurrent translation", "path", filePath)
		return c.answerFromIndex(key, filePath, texts), nil
	}
	return c.translate(ctx, key, filePath, content)
}

func (c *CachedTranslator) translate(ctx context.Context, key, filePath, content string) (*translator.Outcome, error) {
	out, err := c.next.Translate(ctx, filePath, content)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = &translator.Outcome{FilePath: filePath}
	}
	if out.FilePath == "" {
		out.FilePath = filePath
	}
	out.Source = translator.SourceTranslator
	if err := c.store.SaveStrings(out.Strings); err != nil {
		c.logger.Warn("failed to index translated strings", "path", filePath, "error", err)
	}
	c.remember(key, out)
	c.fromTranslator.Add(1)
	return out, nil
}

// missing returns the texts the string index does not know yet.
func (c *CachedTranslator) missing(texts []string) []string {
	hits := c.store.LookupStrings(texts)
	if len(hits) == len(texts) {
		return nil
	}
	out := make([]string, 0, len(texts)-len(hits))
	for _, t := range texts {
		if _, ok := hits[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// answerFromIndex builds the outcome of a file whose every literal is
// indexed and caches it as the file's response.
func (c *CachedTranslator) answerFromIndex(key, filePath string, texts []string) *translator.Outcome {
	hits := c.store.LookupStrings(texts)
	out := &translator.Outcome{
		FilePath: filePath,
		Strings:  make([]translator.StringResult, 0, len(texts)),
		Source:   translator.SourceStringIndex,
	}
	for _, t := range texts {
		e := hits[t]
		out.Strings = append(out.Strings, translator.StringResult{
			OriginalText:   e.OriginalText,
			Key:            e.Key,
			TranslatedText: e.Translation,
		})
	}
	c.logger.Debug("answered from string index", "path", filePath, "strings", len(texts))
	c.remember(key, out)
	c.fromIndex.Add(1)
	return out
}

// flightKey identifies a set of literals independent of their order.
func flightKey(texts []string) string {
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = cache.TextKey(t, responseOp, "")
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

func (c *CachedTranslator) remember(key string, out *translator.Outcome) {
	if err := c.store.Set(key, out, c.ttl); err != nil {
		c.logger.Warn("failed to cache translator response", "error", err)
	}
}

// Counts returns the per-source tallies since construction.
func (c *CachedTranslator) Counts() SourceCounts {
	return SourceCounts{
		Translator:  c.fromTranslator.Load(),
		Response:    c.fromResponse.Load(),
		StringIndex: c.fromIndex.Load(),
	}
}
