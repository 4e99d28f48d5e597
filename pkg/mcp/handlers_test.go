package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgdb "github.com/unowned-ai/omo/pkg/db"
	"github.com/unowned-ai/omo/pkg/dreams"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := pkgdb.OpenDBConnection(pkgdb.MemoryDSN, false, "")
	require.NoError(t, err)
	require.NoError(t, pkgdb.UpgradeDB(db, "test", pkgdb.TargetSchemaVersion, nil))
	t.Cleanup(func() { db.Close() })
	return db
}

func call(t *testing.T, handler server.ToolHandlerFunc, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func decode[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, result.IsError, resultText(t, result))
	var v T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &v))
	return v
}

func TestPing(t *testing.T) {
	result := call(t, pingHandler, nil)
	assert.Equal(t, "pong_omo", resultText(t, result))
}

func TestCreateEntryWithPatterns(t *testing.T) {
	db := setupTestDB(t)

	result := call(t, createEntryHandler(db), map[string]interface{}{
		"text":     "Flying over the sea",
		"date":     "2024-03-10",
		"is_lucid": true,
		"patterns": "Flying:action:clue, water:place",
	})
	entry := decode[dreams.Entry](t, result)

	assert.Equal(t, "Flying over the sea", entry.Text)
	assert.True(t, entry.IsLucid)
	assert.Equal(t, "2024-03-10", dreams.DayKey(entry.Date))
	assert.Equal(t, []string{"flying", "water"}, entry.PatternLabels())
	assert.True(t, entry.Associations[0].IsRecognitionClue)
	assert.Equal(t, dreams.CategoryPlace, entry.Associations[1].Category)
}

func TestCreateEntry_InvalidInput(t *testing.T) {
	db := setupTestDB(t)

	result := call(t, createEntryHandler(db), map[string]interface{}{"date": "yesterday"})
	assert.True(t, result.IsError)

	result = call(t, createEntryHandler(db), map[string]interface{}{"patterns": "water:swamp"})
	assert.True(t, result.IsError)

	groups := decodeGroups(t, db)
	assert.Empty(t, groups, "invalid input must not create an entry")
}

func decodeGroups(t *testing.T, db *sql.DB) []dreams.DayGroup {
	t.Helper()
	return decode[[]dreams.DayGroup](t, call(t, listEntriesHandler(db), nil))
}

func TestGetEntry(t *testing.T) {
	db := setupTestDB(t)

	result := call(t, getEntryHandler(db), map[string]interface{}{"id": "not-a-uuid"})
	assert.True(t, result.IsError)

	result = call(t, getEntryHandler(db), map[string]interface{}{"id": "6f1c1d2e-8c1b-4c55-9a55-0f4b1f4b1f4b"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not found")

	created := decode[dreams.Entry](t, call(t, createEntryHandler(db), map[string]interface{}{"text": "hello"}))
	got := decode[dreams.Entry](t, call(t, getEntryHandler(db), map[string]interface{}{"id": created.ID.String()}))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "hello", got.Text)
}

func TestUpdateEntry_KeepsOmittedFields(t *testing.T) {
	db := setupTestDB(t)
	created := decode[dreams.Entry](t, call(t, createEntryHandler(db), map[string]interface{}{
		"text": "before", "date": "2024-01-02", "patterns": "cat",
	}))

	result := call(t, updateEntryHandler(db), map[string]interface{}{"id": created.ID.String()})
	assert.True(t, result.IsError)

	updated := decode[dreams.Entry](t, call(t, updateEntryHandler(db), map[string]interface{}{
		"id": created.ID.String(), "is_lucid": true,
	}))
	assert.Equal(t, "before", updated.Text)
	assert.True(t, updated.IsLucid)
	assert.Equal(t, "2024-01-02", dreams.DayKey(updated.Date))
	assert.Equal(t, []string{"cat"}, updated.PatternLabels())
}

func TestDeleteEntries(t *testing.T) {
	db := setupTestDB(t)
	a := decode[dreams.Entry](t, call(t, createEntryHandler(db), map[string]interface{}{"patterns": "moon"}))
	b := decode[dreams.Entry](t, call(t, createEntryHandler(db), nil))

	result := call(t, deleteEntriesHandler(db), map[string]interface{}{"ids": a.ID.String() + ", " + b.ID.String()})
	require.False(t, result.IsError, resultText(t, result))
	assert.Equal(t, "Deleted 2 entries.", resultText(t, result))

	orphans := decode[[]dreams.Pattern](t, call(t, findOrphanPatternsHandler(db), nil))
	require.Len(t, orphans, 1)
	assert.Equal(t, "moon", orphans[0].Label)

	result = call(t, deleteEntriesHandler(db), map[string]interface{}{"ids": ""})
	assert.True(t, result.IsError)
}

func TestSetEntryPatterns(t *testing.T) {
	db := setupTestDB(t)
	entry := decode[dreams.Entry](t, call(t, createEntryHandler(db), map[string]interface{}{"patterns": "flying"}))
	id := entry.ID.String()

	associations := decode[[]dreams.Association](t, call(t, setEntryPatternsHandler(db), map[string]interface{}{
		"id": id, "patterns": "water",
	}))
	require.Len(t, associations, 1)
	assert.Equal(t, "water", associations[0].PatternLabel)

	result := call(t, setEntryPatternsHandler(db), map[string]interface{}{
		"id": id, "patterns": "ghost", "existing_only": true,
	})
	assert.True(t, result.IsError)

	cleared := decode[[]dreams.Association](t, call(t, setEntryPatternsHandler(db), map[string]interface{}{
		"id": id, "patterns": "",
	}))
	assert.Empty(t, cleared)

	usage := decode[[]dreams.PatternUsage](t, call(t, listPatternsHandler(db), nil))
	require.Len(t, usage, 2)
	assert.Equal(t, "flying", usage[0].Label)
	assert.Equal(t, 0, usage[0].Count)
}

func TestAddRemoveAndToggle(t *testing.T) {
	db := setupTestDB(t)
	entry := decode[dreams.Entry](t, call(t, createEntryHandler(db), nil))
	id := entry.ID.String()

	result := call(t, addEntryPatternHandler(db), map[string]interface{}{"id": id, "label": "rain"})
	assert.True(t, result.IsError, "unknown pattern")

	decode[dreams.Pattern](t, call(t, createPatternHandler(db), map[string]interface{}{"label": "Rain", "category": "sound"}))

	result = call(t, addEntryPatternHandler(db), map[string]interface{}{"id": id, "label": "rain"})
	assert.Contains(t, resultText(t, result), "added")
	result = call(t, addEntryPatternHandler(db), map[string]interface{}{"id": id, "label": "RAIN"})
	assert.Contains(t, resultText(t, result), "already has")

	associations := decode[[]dreams.Association](t, call(t, toggleRecognitionClueHandler(db), map[string]interface{}{"id": id, "label": "rain"}))
	require.Len(t, associations, 1)
	assert.True(t, associations[0].IsRecognitionClue)

	result = call(t, removeEntryPatternHandler(db), map[string]interface{}{"id": id, "label": "rain"})
	assert.Contains(t, resultText(t, result), "removed")
	result = call(t, removeEntryPatternHandler(db), map[string]interface{}{"id": id, "label": "rain"})
	assert.Contains(t, resultText(t, result), "has no pattern")

	result = call(t, toggleRecognitionClueHandler(db), map[string]interface{}{"id": id, "label": "rain"})
	assert.True(t, result.IsError)
}

func TestPatternCatalogTools(t *testing.T) {
	db := setupTestDB(t)

	result := call(t, createPatternHandler(db), map[string]interface{}{"label": "  "})
	assert.True(t, result.IsError)

	result = call(t, createPatternHandler(db), map[string]interface{}{"label": "x", "category": "smell"})
	assert.True(t, result.IsError)

	decode[dreams.Pattern](t, call(t, createPatternHandler(db), map[string]interface{}{"label": "Forest"}))
	updated := decode[dreams.Pattern](t, call(t, setPatternCategoryHandler(db), map[string]interface{}{"label": "forest", "category": "place"}))
	assert.Equal(t, dreams.CategoryPlace, updated.Category)

	result = call(t, setPatternCategoryHandler(db), map[string]interface{}{"label": "desert", "category": "place"})
	assert.Contains(t, resultText(t, result), "not found")

	suggestions := decode[[]dreams.Pattern](t, call(t, suggestPatternsHandler(db), map[string]interface{}{"fragment": "RES"}))
	require.Len(t, suggestions, 1)
	assert.Equal(t, "forest", suggestions[0].Label)

	result = call(t, suggestPatternsHandler(db), map[string]interface{}{"fragment": "res", "exclude": "forest"})
	assert.Equal(t, "[]", resultText(t, result))

	result = call(t, deletePatternHandler(db), map[string]interface{}{"label": "forest"})
	assert.Contains(t, resultText(t, result), "deleted")
	result = call(t, deletePatternHandler(db), map[string]interface{}{"label": "forest"})
	assert.True(t, result.IsError)
}

func TestDeleteOrphanPatterns(t *testing.T) {
	db := setupTestDB(t)
	decode[dreams.Entry](t, call(t, createEntryHandler(db), map[string]interface{}{"patterns": "used"}))
	decode[dreams.Pattern](t, call(t, createPatternHandler(db), map[string]interface{}{"label": "unused"}))

	removed := decode[[]dreams.Pattern](t, call(t, deleteOrphanPatternsHandler(db), nil))
	require.Len(t, removed, 1)
	assert.Equal(t, "unused", removed[0].Label)

	result := call(t, deleteOrphanPatternsHandler(db), nil)
	assert.Equal(t, "[]", resultText(t, result))
}

func TestDebugSnapshot(t *testing.T) {
	db := setupTestDB(t)
	decode[dreams.Entry](t, call(t, createEntryHandler(db), map[string]interface{}{"patterns": "door"}))
	decode[dreams.Pattern](t, call(t, createPatternHandler(db), map[string]interface{}{"label": "key"}))

	snap := decode[dreams.Snapshot](t, call(t, debugSnapshotHandler(db), nil))
	assert.Len(t, snap.Entries, 1)
	require.Len(t, snap.Patterns, 2)
	require.Len(t, snap.Orphans, 1)
	assert.Equal(t, "key", snap.Orphans[0].Label)
	assert.Empty(t, snap.Corrupt)
}

func TestRegisterAll(t *testing.T) {
	db := setupTestDB(t)
	s := server.NewMCPServer("test", "0.0.0")

	names := RegisterAll(s, db)
	assert.Contains(t, names, "ping")
	assert.Contains(t, names, "set_entry_patterns")
	assert.Contains(t, names, "debug_snapshot")
	assert.Len(t, names, 18)
}
