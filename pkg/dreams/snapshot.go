package dreams

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SnapshotAssociation is an association as seen by the diagnostic report.
type SnapshotAssociation struct {
	EntryID           uuid.UUID `json:"entry_id"`
	PatternLabel      string    `json:"pattern_label"`
	IsRecognitionClue bool      `json:"is_recognition_clue"`
	MissingEntry      bool      `json:"missing_entry,omitempty"`
	MissingPattern    bool      `json:"missing_pattern,omitempty"`
}

// Corrupt reports whether either side of the link is missing.
func (a SnapshotAssociation) Corrupt() bool {
	return a.MissingEntry || a.MissingPattern
}

// SnapshotEntry is an entry with every association that names it.
type SnapshotEntry struct {
	ID           uuid.UUID             `json:"id"`
	Date         time.Time             `json:"date"`
	Text         string                `json:"text"`
	IsLucid      bool                  `json:"is_lucid"`
	Associations []SnapshotAssociation `json:"associations"`
}

// Snapshot is a read-only report of the whole journal.
type Snapshot struct {
	Entries  []SnapshotEntry       `json:"entries"`
	Patterns []PatternUsage        `json:"patterns"`
	Orphans  []Pattern             `json:"orphans"`
	Corrupt  []SnapshotAssociation `json:"corrupt"`
}

// BuildSnapshot assembles a Snapshot from raw rows. Associations whose entry
// or pattern is absent are reported in Corrupt and ignored for usage counts.
// The Associations field of the given entries is not consulted.
func BuildSnapshot(entries []Entry, patterns []Pattern, associations []Association) Snapshot {
	entryIndex := make(map[uuid.UUID]int, len(entries))
	snap := Snapshot{
		Entries:  make([]SnapshotEntry, 0, len(entries)),
		Patterns: make([]PatternUsage, 0, len(patterns)),
	}
	for i, e := range entries {
		entryIndex[e.ID] = i
		snap.Entries = append(snap.Entries, SnapshotEntry{
			ID:           e.ID,
			Date:         e.Date,
			Text:         e.Text,
			IsLucid:      e.IsLucid,
			Associations: []SnapshotAssociation{},
		})
	}

	known := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		known[p.Label] = true
	}

	counts := make(map[string]int)
	for _, a := range associations {
		sa := SnapshotAssociation{
			EntryID:           a.EntryID,
			PatternLabel:      a.PatternLabel,
			IsRecognitionClue: a.IsRecognitionClue,
		}
		i, entryFound := entryIndex[a.EntryID]
		sa.MissingEntry = a.EntryID == uuid.Nil || !entryFound
		sa.MissingPattern = a.PatternLabel == "" || !known[a.PatternLabel]

		if entryFound {
			snap.Entries[i].Associations = append(snap.Entries[i].Associations, sa)
		}
		if sa.Corrupt() {
			snap.Corrupt = append(snap.Corrupt, sa)
			continue
		}
		counts[a.PatternLabel]++
	}

	for _, p := range SortPatterns(patterns) {
		snap.Patterns = append(snap.Patterns, PatternUsage{Pattern: p, Count: counts[p.Label]})
		if counts[p.Label] == 0 {
			snap.Orphans = append(snap.Orphans, p)
		}
	}

	return snap
}

// DebugSnapshot reads the journal and builds a diagnostic Snapshot. It never
// modifies anything.
func DebugSnapshot(ctx context.Context, db DBTX) (Snapshot, error) {
	entries, err := ListEntries(ctx, db)
	if err != nil {
		return Snapshot{}, err
	}
	patterns, err := ListPatterns(ctx, db)
	if err != nil {
		return Snapshot{}, err
	}
	associations, err := listRawAssociations(ctx, db)
	if err != nil {
		return Snapshot{}, err
	}
	return BuildSnapshot(entries, patterns, associations), nil
}
