package cache

import (
	"time"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/translator"
)

// mergeStringsLocked upserts every result with non-empty text and reports
// whether the index changed.
func (s *Store) mergeStringsLocked(results []translator.StringResult, now time.Time) bool {
	changed := false
	for _, r := range results {
		if r.OriginalText == "" || r.Key == "" {
			continue
		}
		h := HashString(r.OriginalText)
		prev, ok := s.strs[h]
		if ok && prev.Key == r.Key && prev.Translation == r.TranslatedText {
			continue
		}
		s.strs[h] = StringEntry{
			OriginalText: r.OriginalText,
			Key:          r.Key,
			Translation:  r.TranslatedText,
			Timestamp:    now,
		}
		changed = true
	}
	return changed
}

// LookupStrings returns the indexed entries for every known text.
func (s *Store) LookupStrings(texts []string) map[string]StringEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]StringEntry, len(texts))
	for _, t := range texts {
		if e, ok := s.strs[HashString(t)]; ok {
			out[t] = e
		}
	}
	return out
}

// SaveStrings indexes translated strings without a file record.
func (s *Store) SaveStrings(results []translator.StringResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mergeStringsLocked(results, s.opts.Now()) {
		return nil
	}
	return s.markDirty(TableStrings)
}

// StringCount returns the number of indexed strings.
func (s *Store) StringCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.strs)
}
