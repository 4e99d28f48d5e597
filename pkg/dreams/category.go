package dreams

import (
	"fmt"
	"strings"
)

// Category groups patterns by the kind of thing they describe.
type Category string

const (
	CategoryAction    Category = "action"
	CategoryPlace     Category = "place"
	CategoryCharacter Category = "character"
	CategoryObject    Category = "object"
	CategoryEmotion   Category = "emotion"
	CategoryColor     Category = "color"
	CategorySound     Category = "sound"
	CategoryOther     Category = "other"
)

var allCategories = []Category{
	CategoryAction,
	CategoryPlace,
	CategoryCharacter,
	CategoryObject,
	CategoryEmotion,
	CategoryColor,
	CategorySound,
	CategoryOther,
}

var categoryDisplayNames = map[Category]string{
	CategoryAction:    "Acción",
	CategoryPlace:     "Lugar",
	CategoryCharacter: "Personaje",
	CategoryObject:    "Objeto",
	CategoryEmotion:   "Emoción",
	CategoryColor:     "Color",
	CategorySound:     "Sonido",
	CategoryOther:     "Otro",
}

// AllCategories returns every category in display order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryDisplayNames[c]
	return ok
}

// DisplayName returns the human readable name shown in the journal.
func (c Category) DisplayName() string {
	if name, ok := categoryDisplayNames[c]; ok {
		return name
	}
	return categoryDisplayNames[CategoryOther]
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory converts user input into a Category. Empty input yields CategoryOther.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryOther, nil
	}
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// orDefault returns CategoryOther for the zero value.
func (c Category) orDefault() Category {
	if c == "" {
		return CategoryOther
	}
	return c
}
