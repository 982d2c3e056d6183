package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/errors"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
)

// WriteJSONAtomic replaces path with the JSON encoding of v. Readers see
// either the old or the new file, never a partial one.
func WriteJSONAtomic(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*"+paths.TempExt)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// readJSON decodes path into v. A missing file leaves v untouched and
// returns (false, nil); undecodable content returns a CACHE_CORRUPTED error.
func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, errors.New(errors.CacheCorrupted, "unparseable cache record "+filepath.Base(path), err)
	}
	return true, nil
}
