package dreams

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a single dream journal record.
type Entry struct {
	ID           uuid.UUID     `json:"id"`
	Date         time.Time     `json:"date"`
	Text         string        `json:"text"`
	IsLucid      bool          `json:"is_lucid"`
	Associations []Association `json:"associations,omitempty"` // ordered by position
	CreatedAt    float64       `json:"created_at"`
	UpdatedAt    float64       `json:"updated_at"`
}

// HasPattern reports whether the entry is linked to the pattern with the given label.
func (e Entry) HasPattern(label string) bool {
	label = NormalizeLabel(label)
	for _, a := range e.Associations {
		if a.PatternLabel == label {
			return true
		}
	}
	return false
}

// PatternLabels returns the labels of the entry's associations in order.
func (e Entry) PatternLabels() []string {
	labels := make([]string, 0, len(e.Associations))
	for _, a := range e.Associations {
		labels = append(labels, a.PatternLabel)
	}
	return labels
}

// Pattern is a reusable, catalog-wide tag. Labels are unique and lowercase.
type Pattern struct {
	Label     string   `json:"label"`
	Category  Category `json:"category"`
	CreatedAt float64  `json:"created_at"`
	UpdatedAt float64  `json:"updated_at"`
}

// Association links one entry to one pattern.
type Association struct {
	EntryID           uuid.UUID `json:"entry_id"`
	PatternLabel      string    `json:"pattern_label"`
	Category          Category  `json:"category,omitempty"`
	IsRecognitionClue bool      `json:"is_recognition_clue"`
	Position          int       `json:"position"`
	CreatedAt         float64   `json:"created_at"`
}

// PatternUsage pairs a pattern with the number of entries referencing it.
type PatternUsage struct {
	Pattern
	Count int `json:"count"`
}
