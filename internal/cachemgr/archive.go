package cachemgr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/cache"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/errors"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/version"
)

// CompressedExt selects zstd compression for exports.
const CompressedExt = ".zst"

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Archive is the export format.
type Archive struct {
	Timestamp   time.Time                      `json:"timestamp"`
	Version     string                         `json:"version"`
	Translation ArchiveTranslation             `json:"translation"`
	Responses   map[string]cache.ResponseEntry `json:"mcp"`
	Stats       ArchiveStats                   `json:"stats"`
}

// ArchiveTranslation holds the string index and the fingerprint records.
type ArchiveTranslation struct {
	Strings map[string]cache.StringEntry `json:"strings"`
	Files   []ArchiveFile                `json:"files"`
}

// ArchiveFile is one fingerprint record, keyed by its record name.
type ArchiveFile struct {
	File string          `json:"file"`
	Data cache.FileEntry `json:"data"`
}

// ArchiveStats counts the archive contents.
type ArchiveStats struct {
	Files     int `json:"files"`
	Strings   int `json:"strings"`
	Responses int `json:"responses"`
}

// Export writes the full cache state to path. A path ending in .zst is
// zstd-compressed. The file is replaced atomically.
func (m *Manager) Export(path string) (*ArchiveStats, error) {
	snap, err := m.store.Snapshot()
	if err != nil {
		return nil, err
	}

	a := Archive{
		Timestamp: m.now().UTC(),
		Version:   version.CacheFormat,
		Translation: ArchiveTranslation{
			Strings: snap.Strings,
			Files:   make([]ArchiveFile, 0, len(snap.Files)),
		},
		Responses: snap.Responses,
	}
	for _, f := range snap.Files {
		a.Translation.Files = append(a.Translation.Files, ArchiveFile{File: paths.RecordName(f.FilePath), Data: f})
	}
	a.Stats = ArchiveStats{Files: len(snap.Files), Strings: len(snap.Strings), Responses: len(snap.Responses)}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, CompressedExt) {
		if data, err = compress(data); err != nil {
			return nil, err
		}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return nil, fmt.Errorf("write export: %w", err)
	}

	m.logger.Info("cache exported", "path", path, "files", a.Stats.Files, "strings", a.Stats.Strings, "responses", a.Stats.Responses)
	return &a.Stats, nil
}

// Import loads an archive written by Export. With merge, archive entries
// overwrite matching ones and everything else is kept; otherwise the cache
// is replaced. Compressed archives are detected by content.
func (m *Manager) Import(path string, merge bool) (*ArchiveStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, zstdMagic) {
		if data, err = decompress(data); err != nil {
			return nil, errors.New(errors.CacheCorrupted, "decompress archive", err)
		}
	}

	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errors.New(errors.CacheCorrupted, "unparseable archive", err)
	}
	if major(a.Version) != major(version.CacheFormat) {
		return nil, errors.Newf(errors.CacheCorrupted, "unsupported archive version %q", a.Version)
	}

	snap := &cache.Snapshot{
		Strings:   a.Translation.Strings,
		Responses: a.Responses,
		Files:     make([]cache.FileEntry, 0, len(a.Translation.Files)),
	}
	for _, f := range a.Translation.Files {
		snap.Files = append(snap.Files, f.Data)
	}
	if err := m.store.Restore(snap, merge); err != nil {
		return nil, err
	}

	stats := &ArchiveStats{Files: len(snap.Files), Strings: len(snap.Strings), Responses: len(snap.Responses)}
	m.logger.Info("cache imported", "path", path, "merge", merge, "files", stats.Files, "strings", stats.Strings)
	return stats, nil
}

func major(v string) string {
	if i := strings.IndexByte(v, '.'); i >= 0 {
		return v[:i]
	}
	return v
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close zstd encoder: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*"+paths.TempExt)
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
