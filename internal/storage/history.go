package storage

import (
	"context"
	"database/sql"
	"time"
)

// SessionRecord is one completed run as stored in session_metrics.
type SessionRecord struct {
	SessionID           string    `json:"sessionId"`
	StartedAt           time.Time `json:"startedAt"`
	EndedAt             time.Time `json:"endedAt"`
	TotalFiles          int       `json:"totalFiles"`
	Completed           int       `json:"completed"`
	Failed              int       `json:"failed"`
	Skipped             int       `json:"skipped"`
	TotalStrings        int       `json:"totalStrings"`
	TranslatedStrings   int       `json:"translatedStrings"`
	DurationMs          int64     `json:"durationMs"`
	AvgTimePerFileMs    float64   `json:"avgTimePerFileMs"`
	AvgTimePerStringMs  float64   `json:"avgTimePerStringMs"`
	SuccessRate         float64   `json:"successRate"`
	CacheHitRate        float64   `json:"cacheHitRate"`
	ThroughputPerMinute float64   `json:"throughputPerMinute"`
}

// HistoryStore keeps the bounded run history.
type HistoryStore interface {
	AppendSession(ctx context.Context, rec SessionRecord, keep int) error
	RecentSessions(ctx context.Context, limit int) ([]SessionRecord, error)
}

// AppendSession inserts rec and prunes everything but the newest keep rows
// in one transaction.
func (db *DB) AppendSession(ctx context.Context, rec SessionRecord, keep int) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO session_metrics (
				session_id, started_at, ended_at, total_files, completed, failed, skipped,
				total_strings, translated_strings, duration_ms, avg_time_per_file_ms,
				avg_time_per_string_ms, success_rate, cache_hit_rate, throughput
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.SessionID,
			rec.StartedAt.UTC().Format(time.RFC3339Nano),
			rec.EndedAt.UTC().Format(time.RFC3339Nano),
			rec.TotalFiles, rec.Completed, rec.Failed, rec.Skipped,
			rec.TotalStrings, rec.TranslatedStrings, rec.DurationMs,
			rec.AvgTimePerFileMs, rec.AvgTimePerStringMs,
			rec.SuccessRate, rec.CacheHitRate, rec.ThroughputPerMinute)
		if err != nil {
			return err
		}
		if keep > 0 {
			return pruneSessions(ctx, tx, keep)
		}
		return nil
	})
}

func pruneSessions(ctx context.Context, tx *sql.Tx, keep int) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM session_metrics
		WHERE seq NOT IN (SELECT seq FROM session_metrics ORDER BY seq DESC LIMIT ?)
	`, keep)
	return err
}

// PruneSessions keeps only the newest keep sessions.
func (db *DB) PruneSessions(ctx context.Context, keep int) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		return pruneSessions(ctx, tx, keep)
	})
}

// RecentSessions returns up to limit sessions, newest first.
func (db *DB) RecentSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT session_id, started_at, ended_at, total_files, completed, failed, skipped,
			total_strings, translated_strings, duration_ms, avg_time_per_file_ms,
			avg_time_per_string_ms, success_rate, cache_hit_rate, throughput
		FROM session_metrics
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var started, ended string
		if err := rows.Scan(&rec.SessionID, &started, &ended, &rec.TotalFiles, &rec.Completed,
			&rec.Failed, &rec.Skipped, &rec.TotalStrings, &rec.TranslatedStrings, &rec.DurationMs,
			&rec.AvgTimePerFileMs, &rec.AvgTimePerStringMs, &rec.SuccessRate, &rec.CacheHitRate,
			&rec.ThroughputPerMinute); err != nil {
			return nil, err
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountSessions returns the number of stored sessions.
func (db *DB) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM session_metrics").Scan(&n)
	return n, err
}

// ClearSessions deletes the whole history.
func (db *DB) ClearSessions(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM session_metrics")
	return err
}
