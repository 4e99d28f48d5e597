package dreams

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DayKeyLayout formats the stable section key of a day group.
const DayKeyLayout = "2006-01-02"

// DayGroup holds the entries recorded on one calendar day.
type DayGroup struct {
	Day     time.Time `json:"day"`
	Key     string    `json:"key"`
	Entries []Entry   `json:"entries"`
}

// StartOfDay truncates t to midnight in t's own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayKey returns the canonical YYYY-MM-DD form of t's calendar day. It does
// not depend on the time of day.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// GroupByDay groups entries by calendar day, most recent day first. Entries
// inside a day are ordered most recent first.
func GroupByDay(entries []Entry) []DayGroup {
	index := make(map[string]int)
	var groups []DayGroup

	for _, e := range entries {
		key := DayKey(e.Date)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Day: StartOfDay(e.Date), Key: key})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Key > groups[j].Key
	})
	for _, g := range groups {
		sort.SliceStable(g.Entries, func(i, j int) bool {
			return g.Entries[i].Date.After(g.Entries[j].Date)
		})
	}

	return groups
}

// GroupEntriesByDay loads every entry and groups it with GroupByDay.
func GroupEntriesByDay(ctx context.Context, db DBTX) ([]DayGroup, error) {
	entries, err := ListEntries(ctx, db)
	if err != nil {
		return nil, err
	}
	return GroupByDay(entries), nil
}

// SortPatterns returns a copy of patterns ordered by label.
func SortPatterns(patterns []Pattern) []Pattern {
	sorted := make([]Pattern, len(patterns))
	copy(sorted, patterns)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Label < sorted[j].Label
	})
	return sorted
}

// PatternSuggestions returns the patterns whose label contains fragment,
// case-insensitively, leaving out labels that are already selected. An
// empty fragment yields no suggestions.
func PatternSuggestions(patterns []Pattern, fragment string, alreadySelected []string) []Pattern {
	fragment = NormalizeLabel(fragment)
	if fragment == "" {
		return nil
	}

	selected := make(map[string]bool, len(alreadySelected))
	for _, label := range alreadySelected {
		selected[NormalizeLabel(label)] = true
	}

	var matches []Pattern
	for _, p := range patterns {
		label := NormalizeLabel(p.Label)
		if selected[label] {
			continue
		}
		if strings.Contains(label, fragment) {
			matches = append(matches, p)
		}
	}
	return SortPatterns(matches)
}

// ParseDate accepts an RFC3339 timestamp or a plain YYYY-MM-DD day, which is
// read as local midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(DayKeyLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date '%s': want YYYY-MM-DD or RFC3339", s)
	}
	return t, nil
}
