// Package scanner discovers source files with translatable literals, decides
// which of them are stale, and orders them by priority.
package scanner

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the dispatch class of a candidate. Lower values run first.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

// Priorities lists every class in dispatch order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// MarshalText renders the priority by name.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses "high", "medium" or "low".
func (p *Priority) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "high":
		*p = PriorityHigh
	case "medium":
		*p = PriorityMedium
	case "low":
		*p = PriorityLow
	default:
		return fmt.Errorf("unknown priority %q", string(b))
	}
	return nil
}

// SortKey orders candidates inside one priority class.
type SortKey string

const (
	SortByCount    SortKey = "count"
	SortBySize     SortKey = "size"
	SortByModified SortKey = "modified"
)

// ParseSortKey validates a secondary sort key. The empty string means count.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(s)) {
	case "", SortByCount:
		return SortByCount, nil
	case SortBySize:
		return SortBySize, nil
	case SortByModified:
		return SortByModified, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want count, size or modified)", s)
	}
}

// Candidate is one scanned file that contains qualifying literal text.
type Candidate struct {
	Path            string    `json:"path"`
	RelPath         string    `json:"relPath"`
	ContentHash     string    `json:"contentHash"`
	SizeBytes       int64     `json:"sizeBytes"`
	ModTime         time.Time `json:"modTime"`
	MatchCount      int       `json:"matchCount"`
	Priority        Priority  `json:"priority"`
	NeedsProcessing bool      `json:"needsProcessing"`
	// Texts holds the distinct qualifying literals in first-seen order.
	Texts []string `json:"-"`
}

// FileError records a file that was excluded from the scan.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}
