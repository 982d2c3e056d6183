package cache

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// Get returns the cached payload for key. An entry found expired is evicted
// by this call and reported as a miss.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLocked(key)
}

func (s *Store) getLocked(key string) (json.RawMessage, bool) {
	e, ok := s.responses[key]
	if !ok {
		return nil, false
	}
	if e.expired(s.opts.Now()) {
		delete(s.responses, key)
		if err := s.markDirty(TableResponses); err != nil {
			s.logger.Warn("persist response cache failed", "error", err)
		}
		return nil, false
	}
	return e.Payload, true
}

// Set stores payload under key for ttl (the store default when ttl <= 0).
// When the cache grows past its cap the oldest entries are dropped until
// floor(0.8 * cap) remain.
func (s *Store) Set(key string, payload interface{}, ttl time.Duration) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("encode response %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = s.opts.DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	s.seq++
	s.responses[key] = ResponseEntry{
		Payload:   raw,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Seq:       s.seq,
	}

	s.enforceCapLocked()
	return s.markDirty(TableResponses)
}

func encodePayload(payload interface{}) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		if !json.Valid(p) {
			return nil, fmt.Errorf("invalid json payload")
		}
		return p, nil
	case []byte:
		if !json.Valid(p) {
			return nil, fmt.Errorf("invalid json payload")
		}
		return json.RawMessage(p), nil
	default:
		return json.Marshal(payload)
	}
}

// enforceCapLocked trims the response cache to floor(0.8 * cap) entries
// once it holds more than cap.
func (s *Store) enforceCapLocked() int {
	if len(s.responses) <= s.opts.MaxResponseEntries {
		return 0
	}
	target := int(float64(s.opts.MaxResponseEntries) * trimRatio)
	if target < 1 {
		target = 1
	}
	removed := s.trimLocked(target)
	s.logger.Debug("trimmed response cache", "removed", removed, "remaining", len(s.responses))
	return removed
}

// trimLocked removes the oldest entries until target remain.
func (s *Store) trimLocked(target int) int {
	if len(s.responses) <= target {
		return 0
	}
	keys := make([]string, 0, len(s.responses))
	for k := range s.responses {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return s.responses[keys[i]].older(s.responses[keys[j]])
	})

	n := len(s.responses) - target
	for _, k := range keys[:n] {
		delete(s.responses, k)
	}
	return n
}

// InvalidateByPattern removes every response whose key matches the regular
// expression pattern and returns how many were removed.
func (s *Store) InvalidateByPattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("invalid pattern: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.responses {
		if re.MatchString(k) {
			delete(s.responses, k)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.markDirty(TableResponses)
}

// SweepExpired removes every expired response and returns the count.
func (s *Store) SweepExpired() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.sweepLocked()
	if n == 0 {
		return 0, nil
	}
	return n, s.markDirty(TableResponses)
}

func (s *Store) sweepLocked() int {
	now := s.opts.Now()
	n := 0
	for k, e := range s.responses {
		if e.expired(now) {
			delete(s.responses, k)
			n++
		}
	}
	return n
}

// ResponseCount returns the number of stored responses, expired ones included.
func (s *Store) ResponseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.responses)
}

// ResponseStats summarizes the response cache without evicting anything.
func (s *Store) ResponseStats() ResponseStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	st := ResponseStats{Total: len(s.responses)}
	for _, e := range s.responses {
		if e.expired(now) {
			st.Expired++
		} else {
			st.Valid++
		}
		if st.Oldest.IsZero() || e.CreatedAt.Before(st.Oldest) {
			st.Oldest = e.CreatedAt
		}
		if e.CreatedAt.After(st.Newest) {
			st.Newest = e.CreatedAt
		}
	}
	return st
}
