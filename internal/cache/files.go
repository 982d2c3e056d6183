package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/errors"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/translator"
)

// RecordFile describes one persisted fingerprint record.
type RecordFile struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// NeedsTranslation reports whether path must be sent to the translator:
// no record, a different content hash, or a different known revision.
// A missing revision on either side skips the revision check.
func (s *Store) NeedsTranslation(ctx context.Context, path string) bool {
	canonical, err := paths.CanonicalizePath(path)
	if err != nil {
		return true
	}

	entry, err := s.FileEntry(canonical)
	if err != nil {
		s.logger.Debug("fingerprint unreadable, treating as stale", "path", canonical, "error", err)
		return true
	}
	if entry == nil {
		return true
	}

	hash, err := HashFile(canonical)
	if err != nil || hash != entry.ContentHash {
		return true
	}

	if entry.RevisionHash != "" {
		if rev, ok := s.revision(ctx, canonical); ok && rev != entry.RevisionHash {
			return true
		}
	}
	return false
}

// FileEntry returns the fingerprint record of path, or nil when none exists.
// A record whose stored path differs (sanitized-name collision) counts as absent.
func (s *Store) FileEntry(path string) (*FileEntry, error) {
	canonical, err := paths.CanonicalizePath(path)
	if err != nil {
		return nil, err
	}

	var entry FileEntry
	found, err := readJSON(s.recordPath(paths.RecordName(canonical)), &entry)
	if err != nil {
		return nil, err
	}
	if !found || entry.FilePath != canonical {
		return nil, nil
	}
	return &entry, nil
}

// Save records the current fingerprint of path together with outcome, and
// merges every translated string into the string index.
func (s *Store) Save(ctx context.Context, path string, outcome *translator.Outcome) error {
	canonical, err := paths.CanonicalizePath(path)
	if err != nil {
		return err
	}
	hash, err := HashFile(canonical)
	if err != nil {
		return fmt.Errorf("hash %s: %w", canonical, err)
	}
	rev, _ := s.revision(ctx, canonical)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	entry := FileEntry{
		FilePath:     canonical,
		ContentHash:  hash,
		RevisionHash: rev,
		Timestamp:    now,
		Result:       outcome,
	}
	if err := WriteJSONAtomic(s.recordPath(paths.RecordName(canonical)), entry); err != nil {
		return err
	}

	if outcome == nil || !s.mergeStringsLocked(outcome.Strings, now) {
		return nil
	}
	return s.markDirty(TableStrings)
}

func (s *Store) recordPath(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) recordNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), paths.RecordExt) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// RecordFiles lists every fingerprint record on disk, sorted by name.
func (s *Store) RecordFiles() ([]RecordFile, error) {
	names, err := s.recordNames()
	if err != nil {
		return nil, err
	}
	out := make([]RecordFile, 0, len(names))
	for _, name := range names {
		info, err := os.Stat(s.recordPath(name))
		if err != nil {
			continue
		}
		out = append(out, RecordFile{Name: name, Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ReadRecord parses a record by file name. Unparseable records return a
// CACHE_CORRUPTED error.
func (s *Store) ReadRecord(name string) (*FileEntry, error) {
	var entry FileEntry
	found, err := readJSON(s.recordPath(name), &entry)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, os.ErrNotExist
	}
	if entry.FilePath == "" || entry.ContentHash == "" {
		return nil, errors.New(errors.CacheCorrupted, "incomplete cache record "+name, nil)
	}
	return &entry, nil
}

// RemoveRecord deletes a record by file name.
func (s *Store) RemoveRecord(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.recordPath(filepath.Base(name)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// writeRecord stores an imported entry under its own record name.
func (s *Store) writeRecord(entry FileEntry) error {
	if entry.FilePath == "" {
		return errors.New(errors.CacheCorrupted, "record without filePath", nil)
	}
	return WriteJSONAtomic(s.recordPath(paths.RecordName(entry.FilePath)), entry)
}
