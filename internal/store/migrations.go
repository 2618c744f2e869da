package store

import (
	"database/sql"
	"fmt"
)

// migration is one ordered, idempotent schema step. Migrations run inside
// a transaction; a failure anywhere rolls the whole step back.
type migration func(tx *sql.Tx) error

var migrations = []migration{
	migrateV0ToV1,
	migrateV1ToV2,
}

func (s *Store) runMigrations() error {
	current, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	for i, migrate := range migrations {
		target := int64(i + 1)
		if current >= target {
			continue
		}
		err := s.withTx(func(tx *sql.Tx) error {
			if err := migrate(tx); err != nil {
				return err
			}
			return setSchemaVersion(tx, target)
		})
		if err != nil {
			return fmt.Errorf("migrate schema to v%d: %w", target, err)
		}
	}
	return nil
}

func (s *Store) getSchemaVersion() (int64, error) {
	var version int64
	err := s.queryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int64) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// migrateV0ToV1 is the initial schema: the downloads aggregate, its
// three child tables, and the independent site_settings table.
func migrateV0ToV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS downloads (
			id              TEXT PRIMARY KEY,
			url             TEXT NOT NULL,
			filename        TEXT NOT NULL,
			save_path       TEXT NOT NULL,
			total_size      INTEGER,
			downloaded_size INTEGER NOT NULL DEFAULT 0,
			status          TEXT NOT NULL DEFAULT 'pending',
			error_message   TEXT,
			error_code      TEXT,
			mime_type       TEXT,
			category        TEXT NOT NULL DEFAULT 'other',
			resumable       INTEGER NOT NULL DEFAULT 0,
			connections     INTEGER NOT NULL DEFAULT 1,
			speed           REAL NOT NULL DEFAULT 0.0,
			source_domain   TEXT,
			referrer        TEXT,
			cookies         TEXT,
			user_agent      TEXT,
			queue_position  INTEGER,
			retry_count     INTEGER NOT NULL DEFAULT 0,
			created_at      TEXT NOT NULL,
			started_at      TEXT,
			completed_at    TEXT,
			updated_at      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_downloads_status
			ON downloads(status);
		CREATE INDEX IF NOT EXISTS idx_downloads_category
			ON downloads(category);
		CREATE INDEX IF NOT EXISTS idx_downloads_created
			ON downloads(created_at DESC);

		CREATE TABLE IF NOT EXISTS connections (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			download_id    TEXT NOT NULL REFERENCES downloads(id) ON DELETE CASCADE,
			connection_num INTEGER NOT NULL,
			range_start    INTEGER NOT NULL,
			range_end      INTEGER NOT NULL,
			downloaded     INTEGER NOT NULL DEFAULT 0,
			status         TEXT NOT NULL DEFAULT 'pending',
			temp_file      TEXT,
			UNIQUE(download_id, connection_num)
		);

		CREATE INDEX IF NOT EXISTS idx_connections_download
			ON connections(download_id);

		CREATE TABLE IF NOT EXISTS speed_history (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			download_id TEXT NOT NULL REFERENCES downloads(id) ON DELETE CASCADE,
			speed       REAL NOT NULL,
			timestamp   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_speed_download
			ON speed_history(download_id, timestamp);

		CREATE TABLE IF NOT EXISTS retry_log (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			download_id   TEXT NOT NULL REFERENCES downloads(id) ON DELETE CASCADE,
			attempt       INTEGER NOT NULL,
			error_message TEXT,
			error_code    TEXT,
			timestamp     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS site_settings (
			domain      TEXT PRIMARY KEY,
			connections INTEGER,
			save_folder TEXT,
			category    TEXT,
			user_agent  TEXT,
			created_at  TEXT NOT NULL
		);
	`)
	return err
}

// migrateV1ToV2 adds the headers column, carrying per-download custom
// request headers (JSON-encoded) alongside the single-string cookie and
// user-agent fields that predate it.
func migrateV1ToV2(tx *sql.Tx) error {
	var n int
	if err := tx.QueryRow("SELECT COUNT(*) FROM pragma_table_info('downloads') WHERE name = 'headers'").Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := tx.Exec("ALTER TABLE downloads ADD COLUMN headers TEXT")
	return err
}
