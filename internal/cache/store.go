// Package cache implements the two-tier translation cache: per-file fingerprint
// records, a string index shared across files, and a TTL response cache.
//
// All in-memory maps are mutated under one mutex, which is the single writer
// for the store. Fingerprint records are separate files written atomically, so
// staleness checks read them without taking the lock.
package cache

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/errors"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/slogutil"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/vcs"
)

const (
	// DefaultTTL is applied by Set when no ttl is given.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultMaxResponseEntries caps the response cache.
	DefaultMaxResponseEntries = 1000
	// trimRatio is the fraction of the cap kept after a trim.
	trimRatio = 0.8
)

// Table names reported by TableHealth.
const (
	TableStrings   = paths.StringTableFile
	TableResponses = paths.ResponseTableFile
)

// Options configures a Store.
type Options struct {
	DefaultTTL         time.Duration
	MaxResponseEntries int
	// TrackRevision enables the secondary VCS staleness signal.
	TrackRevision bool
	// Revisions answers revision lookups; nil disables them.
	Revisions vcs.RevisionSource
	// BatchWrites defers table persistence until Flush.
	BatchWrites bool
	Now         func() time.Time
	Logger      *slog.Logger
}

// Store is the cache handle shared by the scanner, scheduler and manager.
type Store struct {
	dir    string
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	strs      map[string]StringEntry
	responses map[string]ResponseEntry
	seq       uint64
	dirty     map[string]bool
	health    map[string]error
}

// Open loads (or creates) the cache rooted at dir. Expired responses are
// swept on load. Corrupted tables are logged and start empty.
func Open(dir string, opts Options) (*Store, error) {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.MaxResponseEntries <= 0 {
		opts.MaxResponseEntries = DefaultMaxResponseEntries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Revisions == nil || !opts.TrackRevision {
		opts.Revisions = vcs.None{}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	s := &Store{
		dir:    dir,
		opts:   opts,
		logger: slogutil.OrDiscard(opts.Logger),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the cache root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Reload discards in-memory state (including unflushed batched writes) and
// reads both tables from disk.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.strs = make(map[string]StringEntry)
	s.responses = make(map[string]ResponseEntry)
	s.dirty = make(map[string]bool)
	s.health = make(map[string]error)
	s.seq = 0

	if err := s.loadTable(TableStrings, &s.strs); err != nil {
		return err
	}
	if err := s.loadTable(TableResponses, &s.responses); err != nil {
		return err
	}
	for _, e := range s.responses {
		if e.Seq > s.seq {
			s.seq = e.Seq
		}
	}

	if n := s.sweepLocked(); n > 0 {
		s.logger.Info("swept expired responses on load", "count", n)
		return s.persistLocked(TableResponses)
	}
	return nil
}

func (s *Store) loadTable(table string, into interface{}) error {
	_, err := readJSON(s.tablePath(table), into)
	if err != nil {
		if !errors.Is(err, errors.CacheCorrupted) {
			return err
		}
		s.logger.Warn("cache table corrupted, starting empty", "table", table, "error", err)
		s.health[table] = err
	}
	// a corrupted or literal-null table leaves the map nil or partial
	switch m := into.(type) {
	case *map[string]StringEntry:
		if err != nil || *m == nil {
			*m = make(map[string]StringEntry)
		}
	case *map[string]ResponseEntry:
		if err != nil || *m == nil {
			*m = make(map[string]ResponseEntry)
		}
	}
	return nil
}

// TableHealth returns the load error of each corrupted table.
func (s *Store) TableHealth() map[string]error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]error, len(s.health))
	for k, v := range s.health {
		out[k] = v
	}
	return out
}

func (s *Store) tablePath(table string) string {
	switch table {
	case TableStrings:
		return paths.StringTablePath(s.dir)
	default:
		return paths.ResponseTablePath(s.dir)
	}
}

// markDirty persists table now, or defers it when batching.
func (s *Store) markDirty(table string) error {
	if s.opts.BatchWrites {
		s.dirty[table] = true
		return nil
	}
	return s.persistLocked(table)
}

func (s *Store) persistLocked(table string) error {
	var v interface{} = s.responses
	if table == TableStrings {
		v = s.strs
	}
	if err := WriteJSONAtomic(s.tablePath(table), v); err != nil {
		return err
	}
	delete(s.dirty, table)
	delete(s.health, table)
	return nil
}

// Flush writes every table with pending batched mutations.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{TableStrings, TableResponses} {
		if !s.dirty[table] {
			continue
		}
		if err := s.persistLocked(table); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes pending writes.
func (s *Store) Close() error {
	return s.Flush()
}

// Clear removes every fingerprint record and empties both tables.
func (s *Store) Clear() error {
	names, err := s.recordNames()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		if err := os.Remove(s.recordPath(name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	s.strs = make(map[string]StringEntry)
	s.responses = make(map[string]ResponseEntry)
	s.seq = 0
	if err := s.persistLocked(TableStrings); err != nil {
		return err
	}
	return s.persistLocked(TableResponses)
}

func (s *Store) revision(ctx context.Context, path string) (string, bool) {
	if !s.opts.TrackRevision {
		return "", false
	}
	return s.opts.Revisions.Revision(ctx, path)
}
