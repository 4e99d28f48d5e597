package dreams

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// Joining patterns and entries skips links whose pattern or entry is missing.
	listEntryAssociationsStatement = `
	SELECT a.entry_id, a.pattern_label, p.category, a.is_recognition_clue, a.position, a.created_at
	FROM associations a
	JOIN patterns p ON p.label = a.pattern_label
	WHERE a.entry_id = ?
	ORDER BY a.position ASC, a.created_at ASC
	`

	listAllAssociationsStatement = `
	SELECT a.entry_id, a.pattern_label, p.category, a.is_recognition_clue, a.position, a.created_at
	FROM associations a
	JOIN patterns p ON p.label = a.pattern_label
	JOIN entries e ON e.id = a.entry_id
	ORDER BY a.entry_id, a.position ASC, a.created_at ASC
	`

	listRawAssociationsStatement = `
	SELECT a.entry_id, a.pattern_label, COALESCE(p.category, ''), a.is_recognition_clue, a.position, a.created_at
	FROM associations a
	LEFT JOIN patterns p ON p.label = a.pattern_label
	ORDER BY a.entry_id, a.position ASC
	`

	insertAssociationStatement = `
	INSERT INTO associations (entry_id, pattern_label, is_recognition_clue, position)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(entry_id, pattern_label) DO NOTHING
	`

	appendAssociationStatement = `
	INSERT INTO associations (entry_id, pattern_label, is_recognition_clue, position)
	SELECT ?, ?, ?, COALESCE(MAX(position) + 1, 0)
	FROM associations
	WHERE entry_id = ?
	ON CONFLICT(entry_id, pattern_label) DO NOTHING
	`

	deleteAssociationStatement = `
	DELETE FROM associations
	WHERE entry_id = ? AND pattern_label = ?
	`

	toggleRecognitionClueStatement = `
	UPDATE associations
	SET is_recognition_clue = NOT is_recognition_clue
	WHERE entry_id = ? AND pattern_label = ?
	`
)

func queryAssociations(ctx context.Context, db DBTX, query string, args ...any) ([]Association, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query associations: %w", err)
	}
	defer rows.Close()

	var associations []Association
	for rows.Next() {
		var a Association
		if err := rows.Scan(&a.EntryID, &a.PatternLabel, &a.Category, &a.IsRecognitionClue, &a.Position, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan association row: %w", err)
		}
		associations = append(associations, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating association rows: %w", err)
	}

	return associations, nil
}

func listAssociationsForEntry(ctx context.Context, db DBTX, entryID uuid.UUID) ([]Association, error) {
	return queryAssociations(ctx, db, listEntryAssociationsStatement, entryID)
}

func listAllAssociations(ctx context.Context, db DBTX) (map[uuid.UUID][]Association, error) {
	associations, err := queryAssociations(ctx, db, listAllAssociationsStatement)
	if err != nil {
		return nil, err
	}

	byEntry := make(map[uuid.UUID][]Association)
	for _, a := range associations {
		byEntry[a.EntryID] = append(byEntry[a.EntryID], a)
	}
	return byEntry, nil
}

// listRawAssociations returns every association row, including links whose
// entry or pattern no longer exists.
func listRawAssociations(ctx context.Context, db DBTX) ([]Association, error) {
	return queryAssociations(ctx, db, listRawAssociationsStatement)
}

// ListAssociationsForEntry returns the entry's associations in order.
func ListAssociationsForEntry(ctx context.Context, db DBTX, entryID uuid.UUID) ([]Association, error) {
	if err := entryExists(ctx, db, entryID); err != nil {
		return nil, err
	}
	return listAssociationsForEntry(ctx, db, entryID)
}

func setAssociations(ctx context.Context, tx DBTX, entryID uuid.UUID, selections []Selection) error {
	if err := entryExists(ctx, tx, entryID); err != nil {
		return err
	}

	resolved := make([]Pattern, len(selections))
	for i, sel := range selections {
		if sel.Ref == nil {
			return fmt.Errorf("%w: selection %d has no pattern", ErrInvalidSelection, i)
		}
		p, err := sel.Ref.resolve(ctx, tx)
		if err != nil {
			return err
		}
		resolved[i] = p
	}

	if _, err := tx.ExecContext(ctx, deleteEntryAssociationsStatement, entryID); err != nil {
		return fmt.Errorf("failed to clear associations of entry %s: %w", entryID, err)
	}

	for i, p := range resolved {
		if _, err := tx.ExecContext(ctx, insertAssociationStatement, entryID, p.Label, selections[i].IsRecognitionClue, i); err != nil {
			return fmt.Errorf("failed to link pattern '%s' to entry %s: %w", p.Label, entryID, err)
		}
	}

	_, err := tx.ExecContext(ctx, touchEntryStatement, entryID)
	return err
}

// SetAssociations replaces the entry's whole pattern set with selections in
// one transaction. Every selection is resolved first, which may register new
// patterns; only then are the previous links removed and the new ones
// created in selection order. Patterns that lose their last link stay in the
// catalog as orphans. Duplicate labels in selections keep the first one.
func SetAssociations(ctx context.Context, db *sql.DB, entryID uuid.UUID, selections []Selection) ([]Association, error) {
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		return setAssociations(ctx, tx, entryID, selections)
	})
	if err != nil {
		return nil, err
	}

	return listAssociationsForEntry(ctx, db, entryID)
}

// CreateEntryWithPatterns stores a new entry and links it to selections in
// one transaction. Nothing is stored if any selection fails to resolve.
func CreateEntryWithPatterns(ctx context.Context, db *sql.DB, date time.Time, text string, isLucid bool, selections []Selection) (Entry, error) {
	var entryID uuid.UUID
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		entry, err := CreateEntry(ctx, tx, date, text, isLucid)
		if err != nil {
			return err
		}
		entryID = entry.ID
		return setAssociations(ctx, tx, entryID, selections)
	})
	if err != nil {
		return Entry{}, err
	}

	return GetEntry(ctx, db, entryID)
}

// AddAssociation appends a link from the entry to an existing pattern. It
// reports false without error when the entry already has that pattern.
func AddAssociation(ctx context.Context, db DBTX, entryID uuid.UUID, label string, isRecognitionClue bool) (bool, error) {
	if err := entryExists(ctx, db, entryID); err != nil {
		return false, err
	}
	p, err := FindPatternByLabel(ctx, db, label)
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, appendAssociationStatement, entryID, p.Label, isRecognitionClue, entryID)
	if err != nil {
		return false, fmt.Errorf("failed to link pattern '%s' to entry %s: %w", p.Label, entryID, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// RemoveAssociation unlinks the pattern from the entry. It reports false
// without error when there was no such link.
func RemoveAssociation(ctx context.Context, db DBTX, entryID uuid.UUID, label string) (bool, error) {
	if err := entryExists(ctx, db, entryID); err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, deleteAssociationStatement, entryID, NormalizeLabel(label))
	if err != nil {
		return false, err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// ToggleRecognitionClue flips the clue flag of the entry's link to the
// pattern. It reports false without error when there is no such link.
func ToggleRecognitionClue(ctx context.Context, db DBTX, entryID uuid.UUID, label string) (bool, error) {
	if err := entryExists(ctx, db, entryID); err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, toggleRecognitionClueStatement, entryID, NormalizeLabel(label))
	if err != nil {
		return false, err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}
