package scanner

import (
	"path/filepath"
	"sort"
	"strings"
)

var (
	criticalMarkers = []string{"error", "core", "hook"}
	uiMarkers       = []string{"component", "form", "modal"}
)

// smallFileBytes bounds the "many strings in a small file" rule.
const smallFileBytes = 10 * 1024

// Classify assigns a priority. Rules are evaluated in order and the first
// match wins: critical paths or dense small files are high, UI paths or a
// moderate match count are medium, everything else is low.
func Classify(relPath string, matchCount int, size int64) Priority {
	p := strings.ToLower(filepath.ToSlash(relPath))
	if containsAny(p, criticalMarkers) || (matchCount > 10 && size < smallFileBytes) {
		return PriorityHigh
	}
	if containsAny(p, uiMarkers) || (matchCount >= 5 && matchCount <= 10) {
		return PriorityMedium
	}
	return PriorityLow
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Sort orders cands by priority, then by key. Ties fall back to the path so
// the order is deterministic.
func Sort(cands []Candidate, by SortKey) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		switch by {
		case SortBySize:
			if a.SizeBytes != b.SizeBytes {
				return a.SizeBytes < b.SizeBytes
			}
		case SortByModified:
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.After(b.ModTime)
			}
		default:
			if a.MatchCount != b.MatchCount {
				return a.MatchCount > b.MatchCount
			}
		}
		return a.Path < b.Path
	})
}

// Buckets splits an ordered candidate list by priority, keeping the order
// inside each bucket. Empty buckets are omitted.
func Buckets(cands []Candidate) [][]Candidate {
	byPrio := make(map[Priority][]Candidate, len(Priorities))
	for _, c := range cands {
		byPrio[c.Priority] = append(byPrio[c.Priority], c)
	}
	out := make([][]Candidate, 0, len(Priorities))
	for _, p := range Priorities {
		if len(byPrio[p]) > 0 {
			out = append(out, byPrio[p])
		}
	}
	return out
}
