package dreams

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgdb "github.com/unowned-ai/omo/pkg/db"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := pkgdb.OpenDBConnection(pkgdb.MemoryDSN, true, "NORMAL")
	require.NoError(t, err, "failed to open in-memory database")
	require.NoError(t, pkgdb.InitializeSchema(testDB, pkgdb.TargetSchemaVersion), "failed to initialize schema")

	t.Cleanup(func() { testDB.Close() })
	return testDB
}

func day(year int, month time.Month, d, hour int) time.Time {
	return time.Date(year, month, d, hour, 0, 0, 0, time.UTC)
}

func createTestEntry(t *testing.T, ctx context.Context, db DBTX, date time.Time, text string) Entry {
	t.Helper()
	entry, err := CreateEntry(ctx, db, date, text, false)
	require.NoError(t, err, "CreateEntry failed in createTestEntry")
	return entry
}

func labelsOf(patterns []Pattern) []string {
	labels := make([]string, 0, len(patterns))
	for _, p := range patterns {
		labels = append(labels, p.Label)
	}
	return labels
}
