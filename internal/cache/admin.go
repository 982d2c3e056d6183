package cache

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/errors"
)

// ResetTable backs up a table file as <name>.backup.<unix-ms> and replaces it
// with an empty table. It returns the backup path, or "" when there was no file.
func (s *Store) ResetTable(table string) (string, error) {
	if table != TableStrings && table != TableResponses {
		return "", fmt.Errorf("unknown table %q", table)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.tablePath(table)
	backup := ""
	if data, err := os.ReadFile(path); err == nil {
		backup = path + ".backup." + strconv.FormatInt(s.opts.Now().UnixMilli(), 10)
		if err := os.WriteFile(backup, data, 0644); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	if table == TableStrings {
		s.strs = make(map[string]StringEntry)
	} else {
		s.responses = make(map[string]ResponseEntry)
	}
	return backup, s.persistLocked(table)
}

// CheckTable parses a table file straight from disk. A missing file is valid.
func (s *Store) CheckTable(table string) (exists bool, err error) {
	if table == TableStrings {
		var m map[string]StringEntry
		return readJSON(s.tablePath(table), &m)
	}
	var m map[string]ResponseEntry
	return readJSON(s.tablePath(table), &m)
}

// Snapshot captures the complete cache state. Corrupted records are skipped.
func (s *Store) Snapshot() (*Snapshot, error) {
	names, err := s.recordNames()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Files:     make([]FileEntry, 0, len(names)),
		Strings:   make(map[string]StringEntry),
		Responses: make(map[string]ResponseEntry),
	}
	for _, name := range names {
		entry, err := s.ReadRecord(name)
		if err != nil {
			s.logger.Warn("skipping unreadable record in snapshot", "record", name, "error", err)
			continue
		}
		snap.Files = append(snap.Files, *entry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.strs {
		snap.Strings[k] = v
	}
	for k, v := range s.responses {
		snap.Responses[k] = v
	}
	return snap, nil
}

// Restore loads snap into the store. With merge, imported entries overwrite
// matching existing ones and everything else is kept; without merge the
// store is cleared first.
func (s *Store) Restore(snap *Snapshot, merge bool) error {
	if snap == nil {
		return errors.New(errors.CacheCorrupted, "empty snapshot", nil)
	}
	if !merge {
		if err := s.Clear(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range snap.Files {
		if err := s.writeRecord(entry); err != nil {
			s.logger.Warn("skipping invalid imported record", "error", err)
		}
	}
	for k, v := range snap.Strings {
		s.strs[k] = v
	}
	for k, v := range snap.Responses {
		if v.Seq == 0 || v.Seq <= s.seq {
			s.seq++
			v.Seq = s.seq
		} else {
			s.seq = v.Seq
		}
		s.responses[k] = v
	}
	s.sweepLocked()
	s.enforceCapLocked()

	if err := s.persistLocked(TableStrings); err != nil {
		return err
	}
	return s.persistLocked(TableResponses)
}
