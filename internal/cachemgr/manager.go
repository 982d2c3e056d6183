// Package cachemgr is the administrative layer over the translation cache:
// statistics, age-based cleanup, integrity checks, and backup archives.
package cachemgr

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/cache"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/slogutil"
)

// Manager administers one cache store.
type Manager struct {
	store  *cache.Store
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// New creates a manager for store.
func New(store *cache.Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		dir:    store.Dir(),
		logger: slogutil.OrDiscard(logger),
		now:    time.Now,
	}
}

// SetClock replaces the time source.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Stats describes the cache contents.
type Stats struct {
	Dir            string              `json:"dir" yaml:"dir"`
	Files          int                 `json:"files" yaml:"files"`
	Strings        int                 `json:"strings" yaml:"strings"`
	Responses      cache.ResponseStats `json:"responses" yaml:"responses"`
	TotalSizeBytes int64               `json:"totalSizeBytes" yaml:"totalSizeBytes"`
	OldestEntry    time.Time           `json:"oldestEntry,omitempty" yaml:"oldestEntry,omitempty"`
	NewestEntry    time.Time           `json:"newestEntry,omitempty" yaml:"newestEntry,omitempty"`
	LastCleanup    time.Time           `json:"lastCleanup,omitempty" yaml:"lastCleanup,omitempty"`
}

// Stats counts records and table entries and sums the size of everything
// under the cache directory.
func (m *Manager) Stats() (*Stats, error) {
	records, err := m.store.RecordFiles()
	if err != nil {
		return nil, err
	}

	st := &Stats{
		Dir:       m.dir,
		Files:     len(records),
		Strings:   m.store.StringCount(),
		Responses: m.store.ResponseStats(),
	}
	for _, r := range records {
		if st.OldestEntry.IsZero() || r.ModTime.Before(st.OldestEntry) {
			st.OldestEntry = r.ModTime
		}
		if r.ModTime.After(st.NewestEntry) {
			st.NewestEntry = r.ModTime
		}
	}

	err = filepath.WalkDir(m.dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			st.TotalSizeBytes += info.Size()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if t, ok := m.LastCleanup(); ok {
		st.LastCleanup = t
	}
	return st, nil
}

// LastCleanup reads the last-cleanup marker.
func (m *Manager) LastCleanup() (time.Time, bool) {
	data, err := os.ReadFile(paths.LastCleanupPath(m.dir))
	if err != nil {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (m *Manager) markCleanup() error {
	stamp := strconv.FormatInt(m.now().UnixMilli(), 10)
	return os.WriteFile(paths.LastCleanupPath(m.dir), []byte(stamp), 0644)
}

// Clear removes every record and empties both tables.
func (m *Manager) Clear() error {
	if err := m.store.Clear(); err != nil {
		return err
	}
	m.logger.Info("cache cleared", "dir", m.dir)
	return nil
}
