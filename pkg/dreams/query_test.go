package dreams

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByDay(t *testing.T) {
	morning := Entry{ID: uuid.New(), Date: day(2024, 1, 1, 8), Text: "morning"}
	night := Entry{ID: uuid.New(), Date: day(2024, 1, 1, 23), Text: "night"}
	later := Entry{ID: uuid.New(), Date: day(2024, 1, 3, 4), Text: "later"}
	earlier := Entry{ID: uuid.New(), Date: day(2023, 12, 31, 12), Text: "earlier"}

	groups := GroupByDay([]Entry{morning, earlier, night, later})
	require.Len(t, groups, 3)

	assert.Equal(t, "2024-01-03", groups[0].Key)
	assert.Equal(t, "2024-01-01", groups[1].Key)
	assert.Equal(t, "2023-12-31", groups[2].Key)

	require.Len(t, groups[1].Entries, 2)
	assert.Equal(t, "night", groups[1].Entries[0].Text)
	assert.Equal(t, "morning", groups[1].Entries[1].Text)
	assert.Equal(t, day(2024, 1, 1, 0), groups[1].Day)
}

func TestGroupByDay_Empty(t *testing.T) {
	assert.Empty(t, GroupByDay(nil))
}

func TestDayKey_IgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	a := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)
	b := time.Date(2024, 3, 1, 23, 59, 59, 0, loc)
	assert.Equal(t, DayKey(a), DayKey(b))
	assert.Equal(t, "2024-03-01", DayKey(b))
}

func TestGroupEntriesByDay(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()

	createTestEntry(t, ctx, testDB, day(2024, 1, 1, 8), "a")
	createTestEntry(t, ctx, testDB, day(2024, 1, 1, 23), "b")
	createTestEntry(t, ctx, testDB, day(2024, 1, 2, 1), "c")

	groups, err := GroupEntriesByDay(ctx, testDB)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "2024-01-02", groups[0].Key)
	assert.Len(t, groups[1].Entries, 2)
}

func TestSortPatterns(t *testing.T) {
	in := []Pattern{{Label: "water"}, {Label: "apple"}, {Label: "moon"}}
	out := SortPatterns(in)

	assert.Equal(t, []string{"apple", "moon", "water"}, labelsOf(out))
	assert.Equal(t, "water", in[0].Label, "input is not modified")
}

func TestPatternSuggestions(t *testing.T) {
	patterns := []Pattern{
		{Label: "flying"},
		{Label: "falling"},
		{Label: "fly fishing"},
		{Label: "water"},
	}

	assert.Equal(t, []string{"fly fishing", "flying"}, labelsOf(PatternSuggestions(patterns, "FLY", nil)))
	assert.Equal(t, []string{"falling", "flying"}, labelsOf(PatternSuggestions(patterns, "ing", []string{"Fly Fishing"})))
	assert.Equal(t, []string{"water"}, labelsOf(PatternSuggestions(patterns, "ate", nil)))
	assert.Empty(t, PatternSuggestions(patterns, "", nil), "an empty fragment suggests nothing")
	assert.Empty(t, PatternSuggestions(patterns, "   ", nil))
	assert.Empty(t, PatternSuggestions(patterns, "zzz", nil))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-05-06 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06", DayKey(d))
	assert.Equal(t, time.Local, d.Location())
	assert.Equal(t, 0, d.Hour())

	d, err = ParseDate("2024-05-06T22:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 22, d.Hour())

	_, err = ParseDate("06/05/2024")
	assert.Error(t, err)
}
