// Package paths describes the on-disk layout of the translation cache directory.
package paths

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// DefaultCacheDirName is the cache directory created under the project root.
	DefaultCacheDirName = ".translation-cache"

	// ConfigDirName holds the optional project configuration file.
	ConfigDirName = ".i18n-batch"

	StringTableFile   = "translation-strings.json"
	ResponseTableFile = "responses.json"
	HistoryDBFile     = "metrics.db"
	SessionFile       = "translation-session.json"
	LastCleanupFile   = ".last-cleanup"
	GitignoreFile     = ".gitignore"
	LogFileName       = "batch.log"

	// RecordExt is the suffix of every per-file fingerprint record.
	RecordExt = ".cache"
	// TempExt marks an in-flight atomic write.
	TempExt = ".tmp"
)

// GitignoreContent keeps cache artifacts out of version control.
const GitignoreContent = "# Translation cache files\n*.cache\n*.json\n*.log\n*.db*\n"

var unsafeRecordChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-]`)

// RecordName maps a source file path onto the flat name of its fingerprint record.
// Path separators become underscores and any other unsafe character is dropped.
func RecordName(path string) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(path)
	return unsafeRecordChars.ReplaceAllString(name, "") + RecordExt
}

// ResolveCacheDir returns an absolute cache directory. Relative dirs are
// resolved against root; an empty dir selects the default name.
func ResolveCacheDir(root, dir string) (string, error) {
	if dir == "" {
		dir = DefaultCacheDirName
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return filepath.Abs(dir)
}

// EnsureCacheDir creates the cache directory and its logs subdirectory.
func EnsureCacheDir(cacheDir string) error {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(LogsDir(cacheDir), 0755)
}

// LogsDir returns <cacheDir>/logs
func LogsDir(cacheDir string) string {
	return filepath.Join(cacheDir, "logs")
}

// LogPath returns the rotating batch log file path.
func LogPath(cacheDir string) string {
	return filepath.Join(LogsDir(cacheDir), LogFileName)
}

func StringTablePath(cacheDir string) string {
	return filepath.Join(cacheDir, StringTableFile)
}

func ResponseTablePath(cacheDir string) string {
	return filepath.Join(cacheDir, ResponseTableFile)
}

func HistoryDBPath(cacheDir string) string {
	return filepath.Join(cacheDir, HistoryDBFile)
}

func SessionPath(cacheDir string) string {
	return filepath.Join(cacheDir, SessionFile)
}

func LastCleanupPath(cacheDir string) string {
	return filepath.Join(cacheDir, LastCleanupFile)
}

func GitignorePath(cacheDir string) string {
	return filepath.Join(cacheDir, GitignoreFile)
}

// ConfigDir returns <root>/.i18n-batch
func ConfigDir(root string) string {
	return filepath.Join(root, ConfigDirName)
}

// CanonicalizePath returns a cleaned absolute path with symlinks resolved when possible.
// Two spellings of the same file map to one cache identity.
func CanonicalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Clean(abs), nil
		}
		return "", err
	}
	return resolved, nil
}

// RelativeTo returns path relative to root using forward slashes.
// Paths outside root are returned unchanged (slash-normalized).
func RelativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}
