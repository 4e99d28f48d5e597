package mcp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/unowned-ai/omo/pkg/dreams"
)

// RegisterAll registers every tool and returns their names in registration order.
func RegisterAll(s *server.MCPServer, db *sql.DB) []string {
	tools := []struct {
		tool    mcp.Tool
		handler server.ToolHandlerFunc
	}{
		{pingTool(), pingHandler},

		{createEntryTool(), createEntryHandler(db)},
		{getEntryTool(), getEntryHandler(db)},
		{listEntriesTool(), listEntriesHandler(db)},
		{updateEntryTool(), updateEntryHandler(db)},
		{deleteEntriesTool(), deleteEntriesHandler(db)},

		{setEntryPatternsTool(), setEntryPatternsHandler(db)},
		{addEntryPatternTool(), addEntryPatternHandler(db)},
		{removeEntryPatternTool(), removeEntryPatternHandler(db)},
		{toggleRecognitionClueTool(), toggleRecognitionClueHandler(db)},

		{createPatternTool(), createPatternHandler(db)},
		{setPatternCategoryTool(), setPatternCategoryHandler(db)},
		{deletePatternTool(), deletePatternHandler(db)},
		{listPatternsTool(), listPatternsHandler(db)},
		{suggestPatternsTool(), suggestPatternsHandler(db)},
		{findOrphanPatternsTool(), findOrphanPatternsHandler(db)},
		{deleteOrphanPatternsTool(), deleteOrphanPatternsHandler(db)},

		{debugSnapshotTool(), debugSnapshotHandler(db)},
	}

	names := make([]string, 0, len(tools))
	for _, t := range tools {
		s.AddTool(t.tool, t.handler)
		names = append(names, t.tool.Name)
	}
	return names
}

func pingTool() mcp.Tool {
	return mcp.NewTool("ping",
		mcp.WithDescription("Responds with 'pong' to check if the Omo MCP server is alive."),
	)
}

func pingHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong_omo"), nil
}

// Entries

func createEntryTool() mcp.Tool {
	return mcp.NewTool("create_entry",
		mcp.WithDescription("Records a new dream. The date defaults to the start of today."),
		mcp.WithString("text", mcp.Description("Free-form dream narrative. May be empty.")),
		mcp.WithString("date", mcp.Description("Day of the dream, YYYY-MM-DD or RFC3339.")),
		mcp.WithBoolean("is_lucid", mcp.Description("Whether the dream was lucid.")),
		mcp.WithString("patterns", mcp.Description("Comma-separated patterns, each 'label[:category][:clue]'. Unknown labels are added to the catalog.")),
	)
}

func createEntryHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, _ := stringArg(request, "text")
		isLucid, _ := boolArg(request, "is_lucid")

		date := dreams.NewEntryDate(time.Now())
		if raw, ok := stringArg(request, "date"); ok && raw != "" {
			parsed, err := dreams.ParseDate(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			date = parsed
		}

		var selections []dreams.Selection
		if raw, ok := stringArg(request, "patterns"); ok {
			parsed, err := dreams.ParseSelections(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			selections = parsed
		}

		entry, err := dreams.CreateEntryWithPatterns(ctx, db, date, text, isLucid, selections)
		if err != nil {
			return errorResult("create entry", err)
		}

		return jsonResult(entry)
	}
}

func getEntryTool() mcp.Tool {
	return mcp.NewTool("get_entry",
		mcp.WithDescription("Retrieves an entry with its patterns."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry ID (UUID).")),
	)
}

func getEntryHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := entryIDArg(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		entry, err := dreams.GetEntry(ctx, db, id)
		if errors.Is(err, dreams.ErrEntryNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Entry '%s' not found.", id)), nil
		}
		if err != nil {
			return errorResult("get entry", err)
		}
		return jsonResult(entry)
	}
}

func listEntriesTool() mcp.Tool {
	return mcp.NewTool("list_entries",
		mcp.WithDescription("Lists all entries grouped by calendar day, most recent day first."),
	)
}

func listEntriesHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		groups, err := dreams.GroupEntriesByDay(ctx, db)
		if err != nil {
			return errorResult("list entries", err)
		}
		if len(groups) == 0 {
			return mcp.NewToolResultText("[]"), nil
		}
		return jsonResult(groups)
	}
}

func updateEntryTool() mcp.Tool {
	return mcp.NewTool("update_entry",
		mcp.WithDescription("Updates the text, date or lucidity of an entry. Omitted fields are kept."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry ID (UUID).")),
		mcp.WithString("text", mcp.Description("New narrative.")),
		mcp.WithString("date", mcp.Description("New day, YYYY-MM-DD or RFC3339.")),
		mcp.WithBoolean("is_lucid", mcp.Description("New lucidity flag.")),
	)
}

func updateEntryHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := entryIDArg(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		current, err := dreams.GetEntry(ctx, db, id)
		if errors.Is(err, dreams.ErrEntryNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Entry '%s' not found.", id)), nil
		}
		if err != nil {
			return errorResult("get entry", err)
		}

		text, textOk := stringArg(request, "text")
		isLucid, lucidOk := boolArg(request, "is_lucid")
		rawDate, dateOk := stringArg(request, "date")
		if !textOk && !lucidOk && !dateOk {
			return mcp.NewToolResultError("No update fields provided (use text, date, or is_lucid)."), nil
		}

		if !textOk {
			text = current.Text
		}
		if !lucidOk {
			isLucid = current.IsLucid
		}
		date := current.Date
		if dateOk {
			if date, err = dreams.ParseDate(rawDate); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		updated, err := dreams.UpdateEntry(ctx, db, id, date, text, isLucid)
		if err != nil {
			return errorResult("update entry", err)
		}
		return jsonResult(updated)
	}
}

func deleteEntriesTool() mcp.Tool {
	return mcp.NewTool("delete_entries",
		mcp.WithDescription("Deletes one or more entries with their pattern links. Patterns stay in the catalog."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated entry IDs.")),
	)
}

func deleteEntriesHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, _ := stringArg(request, "ids")
		items := splitList(raw)
		if len(items) == 0 {
			return mcp.NewToolResultError("'ids' parameter is required and must list at least one entry ID."), nil
		}

		ids := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			id, err := uuid.Parse(item)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Invalid entry ID '%s'.", item)), nil
			}
			ids = append(ids, id)
		}

		deleted, err := dreams.DeleteEntries(ctx, db, ids)
		if err != nil {
			return errorResult("delete entries", err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted %d entries.", deleted)), nil
	}
}

// Associations

func setEntryPatternsTool() mcp.Tool {
	return mcp.NewTool("set_entry_patterns",
		mcp.WithDescription("Replaces the whole pattern set of an entry in one step."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry ID (UUID).")),
		mcp.WithString("patterns", mcp.Required(), mcp.Description("Comma-separated patterns, each 'label[:category][:clue]'. Empty clears all links.")),
		mcp.WithBoolean("existing_only", mcp.Description("Fail instead of creating patterns missing from the catalog.")),
	)
}

func setEntryPatternsHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := entryIDArg(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		raw, ok := stringArg(request, "patterns")
		if !ok {
			return mcp.NewToolResultError("'patterns' parameter is required."), nil
		}

		selections, err := dreams.ParseSelections(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if existingOnly, _ := boolArg(request, "existing_only"); existingOnly {
			selections = dreams.AsExisting(selections)
		}

		associations, err := dreams.SetAssociations(ctx, db, id, selections)
		if err != nil {
			return errorResult(fmt.Sprintf("set patterns of entry %s", id), err)
		}
		if associations == nil {
			return mcp.NewToolResultText("[]"), nil
		}
		return jsonResult(associations)
	}
}

func addEntryPatternTool() mcp.Tool {
	return mcp.NewTool("add_entry_pattern",
		mcp.WithDescription("Links an existing pattern to an entry. Adding a pattern twice has no effect."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry ID (UUID).")),
		mcp.WithString("label", mcp.Required(), mcp.Description("Pattern label.")),
		mcp.WithBoolean("is_recognition_clue", mcp.Description("Mark the pattern as a recognition clue for this dream.")),
	)
}

func addEntryPatternHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := entryIDArg(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		label, ok := stringArg(request, "label")
		if !ok || label == "" {
			return mcp.NewToolResultError("'label' parameter is required and must be a non-empty string."), nil
		}
		isClue, _ := boolArg(request, "is_recognition_clue")

		added, err := dreams.AddAssociation(ctx, db, id, label, isClue)
		if err != nil {
			return errorResult(fmt.Sprintf("add pattern '%s' to entry %s", label, id), err)
		}
		if !added {
			return mcp.NewToolResultText(fmt.Sprintf("Entry %s already has pattern '%s'.", id, dreams.NormalizeLabel(label))), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Pattern '%s' added to entry %s.", dreams.NormalizeLabel(label), id)), nil
	}
}

func removeEntryPatternTool() mcp.Tool {
	return mcp.NewTool("remove_entry_pattern",
		mcp.WithDescription("Unlinks a pattern from an entry. The pattern stays in the catalog."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry ID (UUID).")),
		mcp.WithString("label", mcp.Required(), mcp.Description("Pattern label.")),
	)
}

func removeEntryPatternHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := entryIDArg(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		label, ok := stringArg(request, "label")
		if !ok || label == "" {
			return mcp.NewToolResultError("'label' parameter is required and must be a non-empty string."), nil
		}

		removed, err := dreams.RemoveAssociation(ctx, db, id, label)
		if err != nil {
			return errorResult(fmt.Sprintf("remove pattern '%s' from entry %s", label, id), err)
		}
		if !removed {
			return mcp.NewToolResultText(fmt.Sprintf("Entry %s has no pattern '%s'.", id, dreams.NormalizeLabel(label))), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Pattern '%s' removed from entry %s.", dreams.NormalizeLabel(label), id)), nil
	}
}

func toggleRecognitionClueTool() mcp.Tool {
	return mcp.NewTool("toggle_recognition_clue",
		mcp.WithDescription("Flips whether a linked pattern is a recognition clue for this entry."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry ID (UUID).")),
		mcp.WithString("label", mcp.Required(), mcp.Description("Pattern label.")),
	)
}

func toggleRecognitionClueHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := entryIDArg(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		label, ok := stringArg(request, "label")
		if !ok || label == "" {
			return mcp.NewToolResultError("'label' parameter is required and must be a non-empty string."), nil
		}

		toggled, err := dreams.ToggleRecognitionClue(ctx, db, id, label)
		if err != nil {
			return errorResult("toggle recognition clue", err)
		}
		if !toggled {
			return mcp.NewToolResultError(fmt.Sprintf("Entry %s has no pattern '%s'.", id, dreams.NormalizeLabel(label))), nil
		}

		associations, err := dreams.ListAssociationsForEntry(ctx, db, id)
		if err != nil {
			return errorResult("list associations", err)
		}
		return jsonResult(associations)
	}
}

// Patterns

func createPatternTool() mcp.Tool {
	return mcp.NewTool("create_pattern",
		mcp.WithDescription("Adds a pattern to the catalog, or returns the existing one with the same label."),
		mcp.WithString("label", mcp.Required(), mcp.Description("Pattern label. Case-insensitive.")),
		mcp.WithString("category", mcp.Description("One of action, place, character, object, emotion, color, sound, other. Defaults to other.")),
	)
}

func createPatternHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		label, _ := stringArg(request, "label")
		rawCategory, _ := stringArg(request, "category")

		category, err := dreams.ParseCategory(rawCategory)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		pattern, err := dreams.CreateOrGetPattern(ctx, db, label, category)
		if err != nil {
			return errorResult("create pattern", err)
		}
		return jsonResult(pattern)
	}
}

func setPatternCategoryTool() mcp.Tool {
	return mcp.NewTool("set_pattern_category",
		mcp.WithDescription("Changes the category of a pattern. Every entry using it sees the change."),
		mcp.WithString("label", mcp.Required(), mcp.Description("Pattern label.")),
		mcp.WithString("category", mcp.Required(), mcp.Description("New category.")),
	)
}

func setPatternCategoryHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		label, _ := stringArg(request, "label")
		rawCategory, ok := stringArg(request, "category")
		if !ok || rawCategory == "" {
			return mcp.NewToolResultError("'category' parameter is required."), nil
		}

		category, err := dreams.ParseCategory(rawCategory)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		pattern, err := dreams.SetPatternCategory(ctx, db, label, category)
		if errors.Is(err, dreams.ErrPatternNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Pattern '%s' not found.", dreams.NormalizeLabel(label))), nil
		}
		if err != nil {
			return errorResult("set pattern category", err)
		}
		return jsonResult(pattern)
	}
}

func deletePatternTool() mcp.Tool {
	return mcp.NewTool("delete_pattern",
		mcp.WithDescription("Deletes a pattern from the catalog and unlinks it from every entry."),
		mcp.WithString("label", mcp.Required(), mcp.Description("Pattern label.")),
	)
}

func deletePatternHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		label, _ := stringArg(request, "label")

		unlinked, err := dreams.DeletePattern(ctx, db, label)
		if errors.Is(err, dreams.ErrPatternNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Pattern '%s' not found.", dreams.NormalizeLabel(label))), nil
		}
		if err != nil {
			return errorResult("delete pattern", err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Pattern '%s' deleted (unlinked from %d entries).", dreams.NormalizeLabel(label), unlinked)), nil
	}
}

func listPatternsTool() mcp.Tool {
	return mcp.NewTool("list_patterns",
		mcp.WithDescription("Lists the pattern catalog alphabetically with the number of entries using each pattern."),
	)
}

func listPatternsHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		usage, err := dreams.ListPatternUsage(ctx, db)
		if err != nil {
			return errorResult("list patterns", err)
		}
		if len(usage) == 0 {
			return mcp.NewToolResultText("[]"), nil
		}
		return jsonResult(usage)
	}
}

func suggestPatternsTool() mcp.Tool {
	return mcp.NewTool("suggest_patterns",
		mcp.WithDescription("Suggests catalog patterns whose label contains the typed fragment."),
		mcp.WithString("fragment", mcp.Required(), mcp.Description("Text typed so far.")),
		mcp.WithString("exclude", mcp.Description("Comma-separated labels already selected.")),
	)
}

func suggestPatternsHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fragment, _ := stringArg(request, "fragment")
		exclude, _ := stringArg(request, "exclude")

		patterns, err := dreams.ListPatterns(ctx, db)
		if err != nil {
			return errorResult("list patterns", err)
		}

		suggestions := dreams.PatternSuggestions(patterns, fragment, splitList(exclude))
		if len(suggestions) == 0 {
			return mcp.NewToolResultText("[]"), nil
		}
		return jsonResult(suggestions)
	}
}

func findOrphanPatternsTool() mcp.Tool {
	return mcp.NewTool("find_orphan_patterns",
		mcp.WithDescription("Lists catalog patterns that no entry uses."),
	)
}

func findOrphanPatternsHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		orphans, err := dreams.FindOrphanPatterns(ctx, db)
		if err != nil {
			return errorResult("find orphan patterns", err)
		}
		if len(orphans) == 0 {
			return mcp.NewToolResultText("[]"), nil
		}
		return jsonResult(orphans)
	}
}

func deleteOrphanPatternsTool() mcp.Tool {
	return mcp.NewTool("delete_orphan_patterns",
		mcp.WithDescription("Deletes every pattern that no entry uses and returns them."),
	)
}

func deleteOrphanPatternsHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		removed, err := dreams.DeleteOrphanPatterns(ctx, db)
		if err != nil {
			return errorResult("delete orphan patterns", err)
		}
		if len(removed) == 0 {
			return mcp.NewToolResultText("[]"), nil
		}
		return jsonResult(removed)
	}
}

// Diagnostics

func debugSnapshotTool() mcp.Tool {
	return mcp.NewTool("debug_snapshot",
		mcp.WithDescription("Read-only report of all entries, patterns with usage counts, orphans and dangling links."),
	)
}

func debugSnapshotHandler(db *sql.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap, err := dreams.DebugSnapshot(ctx, db)
		if err != nil {
			return errorResult("build snapshot", err)
		}
		return jsonResult(snap)
	}
}
