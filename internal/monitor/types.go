package monitor

import "time"

// TaskStatus mirrors the scheduler's task states.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusSkipped    TaskStatus = "skipped"
)

// TaskProgress is the monitor's record of one task.
type TaskProgress struct {
	TaskID            string     `json:"taskId" yaml:"taskId"`
	FileName          string     `json:"fileName" yaml:"fileName"`
	Status            TaskStatus `json:"status" yaml:"status"`
	Progress          int        `json:"progress" yaml:"progress"`
	StartedAt         time.Time  `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	EndedAt           time.Time  `json:"endedAt,omitempty" yaml:"endedAt,omitempty"`
	Error             string     `json:"error,omitempty" yaml:"error,omitempty"`
	TotalStrings      int        `json:"totalStrings" yaml:"totalStrings"`
	TranslatedStrings int        `json:"translatedStrings" yaml:"translatedStrings"`
}

// Session holds the aggregate counters of one run.
type Session struct {
	SessionID                string    `json:"sessionId" yaml:"sessionId"`
	StartedAt                time.Time `json:"startedAt" yaml:"startedAt"`
	EndedAt                  time.Time `json:"endedAt,omitempty" yaml:"endedAt,omitempty"`
	TotalFiles               int       `json:"totalFiles" yaml:"totalFiles"`
	Completed                int       `json:"completed" yaml:"completed"`
	Failed                   int       `json:"failed" yaml:"failed"`
	Skipped                  int       `json:"skipped" yaml:"skipped"`
	TotalStrings             int       `json:"totalStrings" yaml:"totalStrings"`
	TranslatedStrings        int       `json:"translatedStrings" yaml:"translatedStrings"`
	AverageTimePerFileMs     int64     `json:"averageTimePerFileMs" yaml:"averageTimePerFileMs"`
	EstimatedTimeRemainingMs int64     `json:"estimatedTimeRemainingMs" yaml:"estimatedTimeRemainingMs"`
}

// Finished returns completed + failed + skipped.
func (s Session) Finished() int {
	return s.Completed + s.Failed + s.Skipped
}

// Remaining returns the number of files without a terminal state.
func (s Session) Remaining() int {
	if r := s.TotalFiles - s.Finished(); r > 0 {
		return r
	}
	return 0
}

// Progress is a point-in-time view emitted by periodic updates.
type Progress struct {
	Session   Session        `json:"session" yaml:"session"`
	Percent   float64        `json:"percent" yaml:"percent"`
	ElapsedMs int64          `json:"elapsedMs" yaml:"elapsedMs"`
	Active    []TaskProgress `json:"active,omitempty" yaml:"active,omitempty"`
	Time      time.Time      `json:"time" yaml:"time"`
}

// Metrics are computed when a session completes.
type Metrics struct {
	TotalTimeMs          int64   `json:"totalTimeMs" yaml:"totalTimeMs"`
	AverageTimePerFileMs float64 `json:"averageTimePerFileMs" yaml:"averageTimePerFileMs"`
	AverageTimePerString float64 `json:"averageTimePerStringMs" yaml:"averageTimePerStringMs"`
	// SuccessRate is (completed + skipped) / total as a percentage.
	SuccessRate float64 `json:"successRate" yaml:"successRate"`
	// CacheHitRate is skipped / total as a percentage.
	CacheHitRate float64 `json:"cacheHitRate" yaml:"cacheHitRate"`
	// Throughput is (completed + skipped) files per minute.
	Throughput float64 `json:"throughput" yaml:"throughput"`
	// TimeSavedMs estimates translator time avoided by cache hits.
	TimeSavedMs int64 `json:"timeSavedMs" yaml:"timeSavedMs"`
}

// Comparison relates the current session to the mean of earlier ones.
type Comparison struct {
	Current  Metrics `json:"current" yaml:"current"`
	Average  Metrics `json:"average" yaml:"average"`
	Sessions int     `json:"sessions" yaml:"sessions"`
	// ThroughputChange is the relative throughput change in percent.
	ThroughputChange float64 `json:"throughputChange" yaml:"throughputChange"`
	// SuccessRateChange is the success-rate difference in points.
	SuccessRateChange float64 `json:"successRateChange" yaml:"successRateChange"`
	// SpeedupPerFile is the relative reduction of time per file in percent.
	SpeedupPerFile float64 `json:"speedupPerFile" yaml:"speedupPerFile"`
}
