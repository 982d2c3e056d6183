package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	tmpDir := t.TempDir()
	db, err := Open(filepath.Join(tmpDir, "cache", "metrics.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, tmpDir
}

func sampleSession(i int) SessionRecord {
	start := time.Date(2026, 4, 1, 10, i, 0, 0, time.UTC)
	return SessionRecord{
		SessionID:           fmt.Sprintf("session-%d", i),
		StartedAt:           start,
		EndedAt:             start.Add(30 * time.Second),
		TotalFiles:          10,
		Completed:           7,
		Failed:              1,
		Skipped:             2,
		TotalStrings:        40,
		TranslatedStrings:   35,
		DurationMs:          30000,
		AvgTimePerFileMs:    4285.7,
		AvgTimePerStringMs:  857.1,
		SuccessRate:         70,
		CacheHitRate:        20,
		ThroughputPerMinute: 18,
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	db, _ := setupTestDB(t)

	n, err := db.CountSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReopenKeepsHistory(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "metrics.db")
	ctx := context.Background()

	db, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, db.AppendSession(ctx, sampleSession(1), 5))
	require.NoError(t, db.Close())

	db, err = Open(path, nil)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.RecentSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sampleSession(1), got[0])
}

func TestAppendSessionPrunesToKeep(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		require.NoError(t, db.AppendSession(ctx, sampleSession(i), 5))
	}

	n, err := db.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	got, err := db.RecentSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "session-7", got[0].SessionID)
	assert.Equal(t, "session-3", got[4].SessionID)
}

func TestPruneAndClear(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, db.AppendSession(ctx, sampleSession(i), 0))
	}
	require.NoError(t, db.PruneSessions(ctx, 2))
	n, err := db.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, db.ClearSessions(ctx))
	n, err = db.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWithTxRollsBack(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO session_metrics (
			session_id, started_at, ended_at, total_files, completed, failed, skipped,
			total_strings, translated_strings, duration_ms, avg_time_per_file_ms,
			avg_time_per_string_ms, success_rate, cache_hit_rate, throughput
		) VALUES ('x', '', '', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)`); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	n, err := db.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
