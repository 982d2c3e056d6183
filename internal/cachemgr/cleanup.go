package cachemgr

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
)

// DefaultMaxAgeDays is the cleanup threshold when none is given.
const DefaultMaxAgeDays = 30

// CleanupOptions selects what Cleanup removes.
type CleanupOptions struct {
	MaxAgeInDays    int
	RemoveCorrupted bool
	RemoveExpired   bool
}

// CleanupResult reports what Cleanup removed.
type CleanupResult struct {
	RemovedRecords   int      `json:"removedRecords" yaml:"removedRecords"`
	RemovedCorrupted int      `json:"removedCorrupted" yaml:"removedCorrupted"`
	RemovedExpired   int      `json:"removedExpired" yaml:"removedExpired"`
	RemovedTemp      int      `json:"removedTemp" yaml:"removedTemp"`
	RemovedLogs      int      `json:"removedLogs" yaml:"removedLogs"`
	SpaceSavedBytes  int64    `json:"spaceSavedBytes" yaml:"spaceSavedBytes"`
	Errors           []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Cleanup deletes fingerprint records older than the age threshold,
// unparseable records, expired responses, leftover temp files and old logs.
// Problems with single files are collected in Errors; corrupted data never
// fails the call.
func (m *Manager) Cleanup(opts CleanupOptions) (*CleanupResult, error) {
	if opts.MaxAgeInDays <= 0 {
		opts.MaxAgeInDays = DefaultMaxAgeDays
	}
	cutoff := m.now().Add(-time.Duration(opts.MaxAgeInDays) * 24 * time.Hour)
	res := &CleanupResult{}

	records, err := m.store.RecordFiles()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		_, readErr := m.store.ReadRecord(r.Name)
		switch {
		case readErr != nil && opts.RemoveCorrupted:
			if m.remove(res, r.Name, r.Size) {
				res.RemovedCorrupted++
			}
		case readErr == nil && r.ModTime.Before(cutoff):
			if m.remove(res, r.Name, r.Size) {
				res.RemovedRecords++
			}
		}
	}

	if opts.RemoveExpired {
		n, err := m.store.SweepExpired()
		if err != nil {
			res.Errors = append(res.Errors, "sweep expired responses: "+err.Error())
		}
		res.RemovedExpired = n
	}

	res.RemovedTemp = m.removeOld(res, m.dir, paths.TempExt, cutoff, false)
	res.RemovedLogs = m.removeOld(res, paths.LogsDir(m.dir), ".log", cutoff, true)

	if err := m.markCleanup(); err != nil {
		res.Errors = append(res.Errors, "write cleanup marker: "+err.Error())
	}

	m.logger.Info("cache cleanup finished",
		"records", res.RemovedRecords,
		"corrupted", res.RemovedCorrupted,
		"expired", res.RemovedExpired,
		"temp", res.RemovedTemp,
		"logs", res.RemovedLogs,
		"saved_kb", res.SpaceSavedBytes/1024)
	return res, nil
}

func (m *Manager) remove(res *CleanupResult, name string, size int64) bool {
	if err := m.store.RemoveRecord(name); err != nil {
		res.Errors = append(res.Errors, name+": "+err.Error())
		return false
	}
	res.SpaceSavedBytes += size
	return true
}

// removeOld deletes files in dir whose name contains marker and which were
// last modified before cutoff. Rotated logs (batch.log.1) match ".log" too.
func (m *Manager) removeOld(res *CleanupResult, dir, marker string, cutoff time.Time, contains bool) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			res.Errors = append(res.Errors, dir+": "+err.Error())
		}
		return 0
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() || !matches(e, marker, contains) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			res.Errors = append(res.Errors, e.Name()+": "+err.Error())
			continue
		}
		res.SpaceSavedBytes += info.Size()
		n++
	}
	return n
}

func matches(e fs.DirEntry, marker string, contains bool) bool {
	if contains {
		return strings.Contains(e.Name(), marker)
	}
	return strings.HasSuffix(e.Name(), marker)
}
