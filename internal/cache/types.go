package cache

import (
	"encoding/json"
	"time"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/translator"
)

// FileEntry is the fingerprint record of one translated file.
type FileEntry struct {
	FilePath     string              `json:"filePath"`
	ContentHash  string              `json:"contentHash"`
	RevisionHash string              `json:"revisionHash,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
	Result       *translator.Outcome `json:"result,omitempty"`
}

// StringEntry is one row of the string index, keyed by the hash of OriginalText.
type StringEntry struct {
	OriginalText string    `json:"originalText"`
	Key          string    `json:"key"`
	Translation  string    `json:"translation"`
	Timestamp    time.Time `json:"timestamp"`
}

// ResponseEntry is one row of the TTL response cache. Seq orders entries
// written within the same clock tick.
type ResponseEntry struct {
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Seq       uint64          `json:"seq"`
}

func (e ResponseEntry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// older reports whether e was inserted before o.
func (e ResponseEntry) older(o ResponseEntry) bool {
	if !e.CreatedAt.Equal(o.CreatedAt) {
		return e.CreatedAt.Before(o.CreatedAt)
	}
	return e.Seq < o.Seq
}

// ResponseStats summarizes the response cache.
type ResponseStats struct {
	Total   int       `json:"total"`
	Valid   int       `json:"valid"`
	Expired int       `json:"expired"`
	Oldest  time.Time `json:"oldest,omitempty"`
	Newest  time.Time `json:"newest,omitempty"`
}

// Snapshot is the full cache state used for export and import.
type Snapshot struct {
	Files     []FileEntry              `json:"files"`
	Strings   map[string]StringEntry   `json:"strings"`
	Responses map[string]ResponseEntry `json:"responses"`
}
