package dreams

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSnapshot_FlagsCorruptAssociations(t *testing.T) {
	e1 := Entry{ID: uuid.New(), Date: day(2024, 1, 1, 0), Text: "one"}
	ghostEntry := uuid.New()
	patterns := []Pattern{{Label: "moon"}, {Label: "cat"}, {Label: "owl"}}
	associations := []Association{
		{EntryID: e1.ID, PatternLabel: "cat"},
		{EntryID: e1.ID, PatternLabel: "vanished"},
		{EntryID: ghostEntry, PatternLabel: "moon"},
		{EntryID: uuid.Nil, PatternLabel: ""},
	}

	snap := BuildSnapshot([]Entry{e1}, patterns, associations)

	require.Len(t, snap.Entries, 1)
	require.Len(t, snap.Entries[0].Associations, 2)
	assert.False(t, snap.Entries[0].Associations[0].Corrupt())
	assert.True(t, snap.Entries[0].Associations[1].MissingPattern)

	require.Len(t, snap.Corrupt, 3)
	assert.True(t, snap.Corrupt[1].MissingEntry)
	assert.False(t, snap.Corrupt[1].MissingPattern)
	assert.True(t, snap.Corrupt[2].MissingEntry)
	assert.True(t, snap.Corrupt[2].MissingPattern)

	require.Len(t, snap.Patterns, 3)
	assert.Equal(t, "cat", snap.Patterns[0].Label)
	assert.Equal(t, 1, snap.Patterns[0].Count)
	assert.Equal(t, 0, snap.Patterns[1].Count, "links to a missing entry do not count")
	assert.Equal(t, []string{"moon", "owl"}, labelsOf(snap.Orphans))
}

func TestDebugSnapshot_ToleratesDanglingRows(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()

	entry := createTestEntry(t, ctx, testDB, day(2024, 1, 1, 0), "real")
	_, err := SetAssociations(ctx, testDB, entry.ID, []Selection{Draft("door", CategoryObject, false)})
	require.NoError(t, err)
	_, err = CreateOrGetPattern(ctx, testDB, "lonely", "")
	require.NoError(t, err)

	// Simulate storage written without referential checks.
	_, err = testDB.Exec("PRAGMA foreign_keys = OFF")
	require.NoError(t, err)
	_, err = testDB.Exec("INSERT INTO associations (entry_id, pattern_label) VALUES (?, ?)", entry.ID, "missing")
	require.NoError(t, err)
	_, err = testDB.Exec("INSERT INTO associations (entry_id, pattern_label) VALUES (?, ?)", uuid.New(), "door")
	require.NoError(t, err)

	got, err := GetEntry(ctx, testDB, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"door"}, got.PatternLabels(), "reads skip links to missing patterns")

	entries, err := ListEntries(ctx, testDB)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"door"}, entries[0].PatternLabels())

	count, err := PatternUsageCount(ctx, testDB, "door")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "links to missing entries are not usage")

	snap, err := DebugSnapshot(ctx, testDB)
	require.NoError(t, err)
	assert.Len(t, snap.Corrupt, 2)
	assert.Equal(t, []string{"lonely"}, labelsOf(snap.Orphans))

	var total int
	require.NoError(t, testDB.QueryRow("SELECT COUNT(*) FROM associations").Scan(&total))
	assert.Equal(t, 3, total, "the snapshot never modifies storage")
}
