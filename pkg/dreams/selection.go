package dreams

import (
	"context"
	"fmt"
	"strings"
)

// PatternRef identifies the pattern side of a Selection. It is either an
// ExistingPatternRef or a NewPatternDraft.
type PatternRef interface {
	patternLabel() string
	resolve(ctx context.Context, db DBTX) (Pattern, error)
}

// ExistingPatternRef points at a pattern that must already be in the catalog.
type ExistingPatternRef struct {
	Label string
}

func (r ExistingPatternRef) patternLabel() string { return NormalizeLabel(r.Label) }

func (r ExistingPatternRef) resolve(ctx context.Context, db DBTX) (Pattern, error) {
	p, err := FindPatternByLabel(ctx, db, r.Label)
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern '%s': %w", r.patternLabel(), err)
	}
	return p, nil
}

// NewPatternDraft is a pattern typed during editing. It is registered in the
// catalog only when the selection is committed, and resolves to the existing
// pattern if the label is already taken.
type NewPatternDraft struct {
	Label    string
	Category Category
}

func (d NewPatternDraft) patternLabel() string { return NormalizeLabel(d.Label) }

func (d NewPatternDraft) resolve(ctx context.Context, db DBTX) (Pattern, error) {
	return CreateOrGetPattern(ctx, db, d.Label, d.Category)
}

// Selection is one pattern chosen for an entry, with its per-entry clue flag.
type Selection struct {
	Ref               PatternRef
	IsRecognitionClue bool
}

// Label returns the normalized label the selection refers to.
func (s Selection) Label() string {
	if s.Ref == nil {
		return ""
	}
	return s.Ref.patternLabel()
}

// Existing builds a selection of a catalog pattern.
func Existing(label string, isRecognitionClue bool) Selection {
	return Selection{Ref: ExistingPatternRef{Label: label}, IsRecognitionClue: isRecognitionClue}
}

// Draft builds a selection that creates the pattern on commit when needed.
func Draft(label string, category Category, isRecognitionClue bool) Selection {
	return Selection{Ref: NewPatternDraft{Label: label, Category: category}, IsRecognitionClue: isRecognitionClue}
}

const clueMarker = "clue"

// ParseSelection parses the text form "label[:category][:clue]".
//
//	flying            -> draft "flying", category other
//	water:place       -> draft "water", category place
//	water:place:clue  -> same, flagged as recognition clue
//	water:clue        -> draft "water", category other, recognition clue
func ParseSelection(s string) (Selection, error) {
	parts := strings.Split(s, ":")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	isClue := false
	if len(parts) > 1 && strings.EqualFold(parts[len(parts)-1], clueMarker) {
		isClue = true
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 2 {
		return Selection{}, fmt.Errorf("%w: %q", ErrInvalidSelection, s)
	}

	label := NormalizeLabel(parts[0])
	if label == "" {
		return Selection{}, fmt.Errorf("%w: %q: %v", ErrInvalidSelection, s, ErrEmptyLabel)
	}

	category := CategoryOther
	if len(parts) == 2 {
		var err error
		category, err = ParseCategory(parts[1])
		if err != nil {
			return Selection{}, err
		}
	}

	return Draft(label, category, isClue), nil
}

// ParseSelections parses a comma-separated list of selections, skipping
// empty items.
func ParseSelections(csv string) ([]Selection, error) {
	var selections []Selection
	for _, item := range strings.Split(csv, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		sel, err := ParseSelection(item)
		if err != nil {
			return nil, err
		}
		selections = append(selections, sel)
	}
	return selections, nil
}

// AsExisting rewrites selections so that each must resolve to a pattern
// already in the catalog.
func AsExisting(selections []Selection) []Selection {
	out := make([]Selection, len(selections))
	for i, s := range selections {
		out[i] = Existing(s.Label(), s.IsRecognitionClue)
	}
	return out
}
