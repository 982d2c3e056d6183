package scanner

import (
	"fmt"
	"time"
)

// secondsPerString is the rough translator cost used for estimates.
const secondsPerString = 30

// Report summarizes a scan.
type Report struct {
	TotalFiles       int              `json:"totalFiles" yaml:"totalFiles"`
	NeedsProcessing  int              `json:"needsProcessing" yaml:"needsProcessing"`
	TotalStrings     int              `json:"totalStrings" yaml:"totalStrings"`
	ByPriority       map[Priority]int `json:"byPriority" yaml:"byPriority"`
	EstimatedSeconds int              `json:"estimatedSeconds" yaml:"estimatedSeconds"`
	EstimatedTime    string           `json:"estimatedTime" yaml:"estimatedTime"`
	Errors           []FileError      `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// GenerateReport counts only candidates that need processing for the string
// total, the priority breakdown and the time estimate.
func GenerateReport(cands []Candidate) Report {
	r := Report{
		TotalFiles: len(cands),
		ByPriority: make(map[Priority]int),
	}
	for _, c := range cands {
		if !c.NeedsProcessing {
			continue
		}
		r.NeedsProcessing++
		r.TotalStrings += c.MatchCount
		r.ByPriority[c.Priority]++
	}
	r.EstimatedSeconds = r.TotalStrings * secondsPerString
	r.EstimatedTime = FormatDuration(time.Duration(r.EstimatedSeconds) * time.Second)
	return r
}

// FormatDuration renders d as "45s", "2m 30s" or "1h 5m".
func FormatDuration(d time.Duration) string {
	s := int(d.Round(time.Second) / time.Second)
	switch {
	case s < 60:
		return fmt.Sprintf("%ds", s)
	case s < 3600:
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	default:
		return fmt.Sprintf("%dh %dm", s/3600, (s%3600)/60)
	}
}
