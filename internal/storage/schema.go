package storage

import (
	"context"
	"database/sql"
)

const currentSchemaVersion = 1

// migrate creates or upgrades the schema. The version lives in PRAGMA user_version.
func (db *DB) migrate() error {
	var version int
	if err := db.conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version == currentSchemaVersion {
		return nil
	}

	db.logger.Debug("migrating history schema", "from", version, "to", currentSchemaVersion)

	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if version < 1 {
			if err := createSessionMetricsTable(tx); err != nil {
				return err
			}
		}
		_, err := tx.Exec("PRAGMA user_version = 1")
		return err
	})
}

func createSessionMetricsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS session_metrics (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			total_files INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			total_strings INTEGER NOT NULL,
			translated_strings INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			avg_time_per_file_ms REAL NOT NULL,
			avg_time_per_string_ms REAL NOT NULL,
			success_rate REAL NOT NULL,
			cache_hit_rate REAL NOT NULL,
			throughput REAL NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_session_metrics_ended ON session_metrics(ended_at)`)
	return err
}
