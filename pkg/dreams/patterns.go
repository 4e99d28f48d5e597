package dreams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const (
	getPatternStatement = `
	SELECT label, category, created_at, updated_at
	FROM patterns
	WHERE label = ?
	`

	insertPatternStatement = `
	INSERT INTO patterns (label, category)
	VALUES (?, ?)
	ON CONFLICT(label) DO NOTHING
	`

	listPatternsStatement = `
	SELECT label, category, created_at, updated_at
	FROM patterns
	ORDER BY label ASC
	`

	updatePatternCategoryStatement = `
	UPDATE patterns
	SET category = ?, updated_at = unixepoch()
	WHERE label = ?
	`

	// Associations whose entry row is gone do not count as usage.
	countPatternUsageStatement = `
	SELECT COUNT(*)
	FROM associations a
	JOIN entries e ON e.id = a.entry_id
	WHERE a.pattern_label = ?
	`

	listPatternUsageStatement = `
	SELECT p.label, p.category, p.created_at, p.updated_at, COUNT(e.id)
	FROM patterns p
	LEFT JOIN associations a ON a.pattern_label = p.label
	LEFT JOIN entries e ON e.id = a.entry_id
	GROUP BY p.label, p.category, p.created_at, p.updated_at
	ORDER BY p.label ASC
	`

	listOrphanPatternsStatement = `
	SELECT p.label, p.category, p.created_at, p.updated_at
	FROM patterns p
	WHERE NOT EXISTS (
		SELECT 1
		FROM associations a
		JOIN entries e ON e.id = a.entry_id
		WHERE a.pattern_label = p.label
	)
	ORDER BY p.label ASC
	`

	deletePatternAssociationsStatement = `
	DELETE FROM associations
	WHERE pattern_label = ?
	`

	deletePatternStatement = `
	DELETE FROM patterns
	WHERE label = ?
	`
)

// NormalizeLabel trims surrounding whitespace and lowercases a pattern label.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

func scanPattern(row rowScanner) (Pattern, error) {
	var p Pattern
	err := row.Scan(&p.Label, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func queryPatterns(ctx context.Context, db DBTX, query string, args ...any) ([]Pattern, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	var patterns []Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern row: %w", err)
		}
		patterns = append(patterns, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pattern rows: %w", err)
	}

	return patterns, nil
}

// FindPatternByLabel looks a pattern up case-insensitively.
func FindPatternByLabel(ctx context.Context, db DBTX, label string) (Pattern, error) {
	normalized := NormalizeLabel(label)
	if normalized == "" {
		return Pattern{}, ErrEmptyLabel
	}

	p, err := scanPattern(db.QueryRowContext(ctx, getPatternStatement, normalized))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Pattern{}, ErrPatternNotFound
		}
		return Pattern{}, err
	}
	return p, nil
}

// CreateOrGetPattern returns the pattern registered under label, creating it
// with category when absent. An existing pattern is returned unchanged: the
// category argument only applies to newly created patterns.
func CreateOrGetPattern(ctx context.Context, db DBTX, label string, category Category) (Pattern, error) {
	normalized := NormalizeLabel(label)
	if normalized == "" {
		return Pattern{}, ErrEmptyLabel
	}

	category = category.orDefault()
	if !category.Valid() {
		return Pattern{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	if _, err := db.ExecContext(ctx, insertPatternStatement, normalized, category); err != nil {
		return Pattern{}, fmt.Errorf("failed to create pattern '%s': %w", normalized, err)
	}

	return FindPatternByLabel(ctx, db, normalized)
}

// SetPatternCategory re-categorizes a pattern. Associations are untouched.
func SetPatternCategory(ctx context.Context, db DBTX, label string, category Category) (Pattern, error) {
	normalized := NormalizeLabel(label)
	if normalized == "" {
		return Pattern{}, ErrEmptyLabel
	}
	if !category.Valid() {
		return Pattern{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	res, err := db.ExecContext(ctx, updatePatternCategoryStatement, category, normalized)
	if err != nil {
		return Pattern{}, err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return Pattern{}, err
	}

	if rowsAffected == 0 {
		return Pattern{}, ErrPatternNotFound
	}

	return FindPatternByLabel(ctx, db, normalized)
}

// ListPatterns returns the whole catalog sorted by label.
func ListPatterns(ctx context.Context, db DBTX) ([]Pattern, error) {
	return queryPatterns(ctx, db, listPatternsStatement)
}

// ListPatternUsage returns every pattern with its usage count, sorted by label.
func ListPatternUsage(ctx context.Context, db DBTX) ([]PatternUsage, error) {
	rows, err := db.QueryContext(ctx, listPatternUsageStatement)
	if err != nil {
		return nil, fmt.Errorf("failed to query pattern usage: %w", err)
	}
	defer rows.Close()

	var usage []PatternUsage
	for rows.Next() {
		var u PatternUsage
		if err := rows.Scan(&u.Label, &u.Category, &u.CreatedAt, &u.UpdatedAt, &u.Count); err != nil {
			return nil, fmt.Errorf("failed to scan pattern usage row: %w", err)
		}
		usage = append(usage, u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pattern usage rows: %w", err)
	}

	return usage, nil
}

// PatternUsageCount returns how many entries reference the pattern.
func PatternUsageCount(ctx context.Context, db DBTX, label string) (int, error) {
	p, err := FindPatternByLabel(ctx, db, label)
	if err != nil {
		return 0, err
	}

	var count int
	if err := db.QueryRowContext(ctx, countPatternUsageStatement, p.Label).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count usage of pattern '%s': %w", p.Label, err)
	}
	return count, nil
}

// FindOrphanPatterns returns the patterns no entry references.
func FindOrphanPatterns(ctx context.Context, db DBTX) ([]Pattern, error) {
	return queryPatterns(ctx, db, listOrphanPatternsStatement)
}

// deletePattern removes the pattern's associations and then the pattern.
// It returns the number of associations removed.
func deletePattern(ctx context.Context, db DBTX, label string) (int64, error) {
	res, err := db.ExecContext(ctx, deletePatternAssociationsStatement, label)
	if err != nil {
		return 0, fmt.Errorf("failed to delete associations of pattern '%s': %w", label, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	res, err = db.ExecContext(ctx, deletePatternStatement, label)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pattern '%s': %w", label, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rowsAffected == 0 {
		return 0, ErrPatternNotFound
	}

	return removed, nil
}

// DeletePattern removes a pattern from the catalog together with every
// association referencing it, whichever entry owns them. It returns the
// number of associations removed.
func DeletePattern(ctx context.Context, db *sql.DB, label string) (int64, error) {
	normalized := NormalizeLabel(label)
	if normalized == "" {
		return 0, ErrEmptyLabel
	}

	var removed int64
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		var err error
		removed, err = deletePattern(ctx, tx, normalized)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteOrphanPatterns deletes every orphan pattern in one transaction and
// returns the patterns that were removed.
func DeleteOrphanPatterns(ctx context.Context, db *sql.DB) ([]Pattern, error) {
	var orphans []Pattern
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		var err error
		orphans, err = FindOrphanPatterns(ctx, tx)
		if err != nil {
			return err
		}
		for _, p := range orphans {
			if _, err := deletePattern(ctx, tx, p.Label); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orphans, nil
}

// UsageCount counts the associations across entries whose label matches p.
func UsageCount(p Pattern, entries []Entry) int {
	count := 0
	for _, e := range entries {
		for _, a := range e.Associations {
			if a.PatternLabel == p.Label {
				count++
			}
		}
	}
	return count
}

// FindOrphans returns the patterns with a zero UsageCount over entries.
func FindOrphans(patterns []Pattern, entries []Entry) []Pattern {
	used := make(map[string]bool)
	for _, e := range entries {
		for _, a := range e.Associations {
			used[a.PatternLabel] = true
		}
	}

	var orphans []Pattern
	for _, p := range patterns {
		if !used[p.Label] {
			orphans = append(orphans, p)
		}
	}
	return orphans
}
