package db

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDBConnection(MemoryDSN, true, "NORMAL")
	require.NoError(t, err, "OpenDBConnection failed for in-memory DB")
	t.Cleanup(func() { db.Close() })
	return db
}

// checkTableExists is a test helper to verify if a table exists in the database.
func checkTableExists(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?;", tableName).Scan(&name)
	require.NoError(t, err, "table '%s' should exist", tableName)
	assert.Equal(t, tableName, name)
}

func TestOpenDBConnection_InvalidSyncMode(t *testing.T) {
	_, err := OpenDBConnection(MemoryDSN, false, "SOMETIMES")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sync pragma value")
}

func TestOpenDBConnection_ForeignKeysEnabled(t *testing.T) {
	db := openTestDB(t)

	var enabled int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys;").Scan(&enabled))
	assert.Equal(t, 1, enabled)
}

func TestUpgradeDB_NewDatabase(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, UpgradeDB(db, MemoryDSN, TargetSchemaVersion, zap.NewNop()))

	for _, tableName := range []string{"dreams_versions", "entries", "patterns", "associations"} {
		checkTableExists(t, db, tableName)
	}

	version, err := GetComponentSchemaVersion(db, DreamsDBComponent)
	require.NoError(t, err)
	assert.Equal(t, TargetSchemaVersion, version)
}

func TestUpgradeDB_AlreadyUpToDate(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, InitializeSchema(db, TargetSchemaVersion))
	require.NoError(t, UpgradeDB(db, MemoryDSN, TargetSchemaVersion, nil))

	version, err := GetComponentSchemaVersion(db, DreamsDBComponent)
	require.NoError(t, err)
	assert.Equal(t, TargetSchemaVersion, version)
}

func TestUpgradeDB_OlderVersionNeedsMigration(t *testing.T) {
	db := openTestDB(t)

	const dbInitialSchemaVersion int64 = 1
	const appTargetsSchemaVersion int64 = 2

	require.NoError(t, InitializeSchema(db, dbInitialSchemaVersion))

	err := UpgradeDB(db, MemoryDSN, appTargetsSchemaVersion, zap.NewNop())
	require.Error(t, err)
	expected := fmt.Sprintf("component %s in database ':memory:' has schema version %d, which is older than application's target schema version %d", DreamsDBComponent, dbInitialSchemaVersion, appTargetsSchemaVersion)
	assert.Contains(t, err.Error(), expected)

	currentVersion, err := GetComponentSchemaVersion(db, DreamsDBComponent)
	require.NoError(t, err)
	assert.Equal(t, dbInitialSchemaVersion, currentVersion, "failed upgrade must not change the version")
}

func TestUpgradeDB_NewerVersionUnsupported(t *testing.T) {
	db := openTestDB(t)

	const dbInitialSchemaVersion int64 = 2
	const appTargetsSchemaVersion int64 = 1

	require.NoError(t, InitializeSchema(db, dbInitialSchemaVersion))

	err := UpgradeDB(db, MemoryDSN, appTargetsSchemaVersion, zap.NewNop())
	require.Error(t, err)
	expected := fmt.Sprintf("component %s in database ':memory:' has schema version %d, which is newer than application's target schema version %d", DreamsDBComponent, dbInitialSchemaVersion, appTargetsSchemaVersion)
	assert.Contains(t, err.Error(), expected)

	currentVersion, err := GetComponentSchemaVersion(db, DreamsDBComponent)
	require.NoError(t, err)
	assert.Equal(t, dbInitialSchemaVersion, currentVersion)
}

func TestGetComponentSchemaVersion_NoTable(t *testing.T) {
	db := openTestDB(t)

	version, err := GetComponentSchemaVersion(db, DreamsDBComponent)
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestSchema_CategoryConstraint(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InitializeSchema(db, TargetSchemaVersion))

	_, err := db.Exec("INSERT INTO patterns (label, category) VALUES (?, ?)", "flying", "weather")
	assert.Error(t, err, "unknown categories must be rejected by the schema")

	_, err = db.Exec("INSERT INTO patterns (label) VALUES (?)", "water")
	require.NoError(t, err)

	var category string
	require.NoError(t, db.QueryRow("SELECT category FROM patterns WHERE label = ?", "water").Scan(&category))
	assert.Equal(t, "other", category)
}
