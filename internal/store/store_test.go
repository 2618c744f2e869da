package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInMemory_CreatesAllTables(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	require.NoError(t, err)
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	assert.Equal(t, []string{
		"connections", "downloads", "retry_log", "schema_version", "site_settings", "speed_history",
	}, tables)
}

func TestOpen_CreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deep", "nested", "crane.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, path)
}

func TestForeignKeysEnabled(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	var fk int
	require.NoError(t, s.queryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpenTwice_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crane.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
}

func TestFreshDB_HasSchemaVersion2(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	v, err := s.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestMigration_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crane.db")

	s1, err := Open(path)
	require.NoError(t, err)
	v1, err := s1.getSchemaVersion()
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	v2, err := s2.getSchemaVersion()
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(2), v2)
}

// TestExistingDBWithoutVersion_GetsMigrated simulates a pre-schema-version
// database (tables already created, no schema_version row) and confirms
// Open detects it and runs every migration up to the current version
// without losing the tables.
func TestExistingDBWithoutVersion_GetsMigrated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crane.db")

	pre, err := Open(path)
	require.NoError(t, err)
	_, err = pre.exec("DELETE FROM schema_version")
	require.NoError(t, err)
	require.NoError(t, pre.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	var count int
	require.NoError(t, s.queryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table'
		 AND name IN ('downloads','connections','speed_history','retry_log','site_settings')`,
	).Scan(&count))
	assert.Equal(t, 5, count)
}

func TestV1DB_GetsHeadersColumn(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	var hasHeaders bool
	rows, err := s.query("PRAGMA table_info(downloads)")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt any
		var pk int
		require.NoError(t, rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk))
		if name == "headers" {
			hasHeaders = true
		}
	}
	assert.True(t, hasHeaders)
}
