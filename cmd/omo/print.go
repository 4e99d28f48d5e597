package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/unowned-ai/omo/pkg/dreams"
)

var (
	headerColor = color.New(color.Bold, color.Underline)
	lucidColor  = color.New(color.FgCyan)
	clueColor   = color.New(color.FgYellow, color.Bold)
	dimColor    = color.New(color.Faint)
	warnColor   = color.New(color.FgRed)
)

// formatTimestamp converts a Unix timestamp (float64, seconds since epoch)
// to a human-readable string in RFC3339 format.
func formatTimestamp(timestamp float64) string {
	return time.Unix(int64(timestamp), 0).Format(time.RFC3339)
}

// formatPatterns renders associations as "label (Categoría)", marking
// recognition clues with a star.
func formatPatterns(associations []dreams.Association) string {
	if len(associations) == 0 {
		return dimColor.Sprint("-")
	}
	parts := make([]string, 0, len(associations))
	for _, a := range associations {
		label := fmt.Sprintf("%s (%s)", a.PatternLabel, a.Category.DisplayName())
		if a.IsRecognitionClue {
			label = clueColor.Sprint("*" + label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, ", ")
}

func lucidMark(isLucid bool) string {
	if isLucid {
		return lucidColor.Sprint("lucid")
	}
	return ""
}

func printEntry(e dreams.Entry) {
	tbl := uitable.New()
	tbl.Wrap = true
	tbl.MaxColWidth = 80
	tbl.AddRow("ID:", e.ID)
	tbl.AddRow("Date:", e.Date.Format(time.RFC3339))
	tbl.AddRow("Lucid:", e.IsLucid)
	tbl.AddRow("Patterns:", formatPatterns(e.Associations))
	tbl.AddRow("Created At:", formatTimestamp(e.CreatedAt))
	tbl.AddRow("Updated At:", formatTimestamp(e.UpdatedAt))
	tbl.AddRow("Text:", e.Text)
	_, _ = fmt.Fprintln(color.Output, tbl)
}

func printDayGroups(groups []dreams.DayGroup) {
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(color.Output)
		}
		headerColor.Fprintln(color.Output, g.Key)

		tbl := uitable.New()
		tbl.Separator = "  "
		tbl.MaxColWidth = 60
		for _, e := range g.Entries {
			tbl.AddRow(e.ID, lucidMark(e.IsLucid), summarize(e.Text), formatPatterns(e.Associations))
		}
		_, _ = fmt.Fprintln(color.Output, tbl)
	}
}

func summarize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return dimColor.Sprint("(no text)")
	}
	return text
}

func printPatternUsage(usage []dreams.PatternUsage) {
	tbl := uitable.New()
	tbl.AddRow("LABEL", "CATEGORY", "ENTRIES")
	for _, u := range usage {
		count := fmt.Sprint(u.Count)
		if u.Count == 0 {
			count = dimColor.Sprint(count)
		}
		tbl.AddRow(u.Label, u.Category.DisplayName(), count)
	}
	_, _ = fmt.Fprintln(color.Output, tbl)
}

func printPatterns(patterns []dreams.Pattern) {
	tbl := uitable.New()
	for _, p := range patterns {
		tbl.AddRow(p.Label, p.Category.DisplayName())
	}
	_, _ = fmt.Fprintln(color.Output, tbl)
}

func printSnapshot(snap dreams.Snapshot) {
	headerColor.Fprintf(color.Output, "Entries (%d)\n", len(snap.Entries))
	tbl := uitable.New()
	tbl.MaxColWidth = 60
	for _, e := range snap.Entries {
		labels := make([]string, 0, len(e.Associations))
		for _, a := range e.Associations {
			label := a.PatternLabel
			if a.Corrupt() {
				label = warnColor.Sprint(label + "!")
			}
			labels = append(labels, label)
		}
		tbl.AddRow(e.ID, dreams.DayKey(e.Date), lucidMark(e.IsLucid), strings.Join(labels, ", "))
	}
	_, _ = fmt.Fprintln(color.Output, tbl)

	headerColor.Fprintf(color.Output, "\nPatterns (%d)\n", len(snap.Patterns))
	printPatternUsage(snap.Patterns)

	headerColor.Fprintf(color.Output, "\nOrphans (%d)\n", len(snap.Orphans))
	printPatterns(snap.Orphans)

	headerColor.Fprintf(color.Output, "\nDangling links (%d)\n", len(snap.Corrupt))
	tbl = uitable.New()
	for _, a := range snap.Corrupt {
		var missing []string
		if a.MissingEntry {
			missing = append(missing, "entry")
		}
		if a.MissingPattern {
			missing = append(missing, "pattern")
		}
		tbl.AddRow(a.EntryID, a.PatternLabel, warnColor.Sprint("missing "+strings.Join(missing, "+")))
	}
	_, _ = fmt.Fprintln(color.Output, tbl)
}
