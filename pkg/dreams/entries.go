package dreams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	createEntryStatement = `
	INSERT INTO entries (id, date, text, is_lucid)
	VALUES (?, ?, ?, ?)
	`

	getEntryStatement = `
	SELECT id, date, text, is_lucid, created_at, updated_at
	FROM entries
	WHERE id = ?
	`

	listEntriesStatement = `
	SELECT id, date, text, is_lucid, created_at, updated_at
	FROM entries
	ORDER BY date DESC, created_at DESC
	`

	updateEntryStatement = `
	UPDATE entries
	SET date = ?, text = ?, is_lucid = ?, updated_at = unixepoch()
	WHERE id = ?
	`

	touchEntryStatement = `
	UPDATE entries
	SET updated_at = unixepoch()
	WHERE id = ?
	`

	deleteEntryAssociationsStatement = `
	DELETE FROM associations
	WHERE entry_id = ?
	`

	deleteEntryStatement = `
	DELETE FROM entries
	WHERE id = ?
	`

	entryExistsStatement = `
	SELECT EXISTS(SELECT 1 FROM entries WHERE id = ?)
	`
)

// NewEntryDate returns the default date for a freshly started entry: the
// start of now's calendar day.
func NewEntryDate(now time.Time) time.Time {
	return StartOfDay(now)
}

func scanEntry(row rowScanner) (Entry, error) {
	var entry Entry
	err := row.Scan(
		&entry.ID,
		&entry.Date,
		&entry.Text,
		&entry.IsLucid,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	return entry, err
}

func entryExists(ctx context.Context, db DBTX, id uuid.UUID) error {
	var exists bool
	if err := db.QueryRowContext(ctx, entryExistsStatement, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up entry %s: %w", id, err)
	}
	if !exists {
		return ErrEntryNotFound
	}
	return nil
}

// CreateEntry stores a new entry. Fields are stored verbatim; empty text is allowed.
func CreateEntry(ctx context.Context, db DBTX, date time.Time, text string, isLucid bool) (Entry, error) {
	entryID := uuid.New()

	_, err := db.ExecContext(
		ctx,
		createEntryStatement,
		entryID,
		date,
		text,
		isLucid,
	)
	if err != nil {
		return Entry{}, err
	}

	return GetEntry(ctx, db, entryID)
}

// GetEntry retrieves an entry together with its associations.
func GetEntry(ctx context.Context, db DBTX, id uuid.UUID) (Entry, error) {
	entry, err := scanEntry(db.QueryRowContext(ctx, getEntryStatement, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}

	entry.Associations, err = listAssociationsForEntry(ctx, db, id)
	if err != nil {
		return Entry{}, err
	}

	return entry, nil
}

// ListEntries returns every entry with its associations. The order carries
// no meaning; use GroupByDay for presentation.
func ListEntries(ctx context.Context, db DBTX) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, listEntriesStatement)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	byEntry, err := listAllAssociations(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Associations = byEntry[entries[i].ID]
	}

	return entries, nil
}

// UpdateEntry replaces the entry's date, text and lucidity in place. It
// does not touch associations; see SetAssociations.
func UpdateEntry(ctx context.Context, db DBTX, id uuid.UUID, date time.Time, text string, isLucid bool) (Entry, error) {
	res, err := db.ExecContext(
		ctx,
		updateEntryStatement,
		date,
		text,
		isLucid,
		id,
	)
	if err != nil {
		return Entry{}, err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return Entry{}, err
	}

	if rowsAffected == 0 {
		return Entry{}, ErrEntryNotFound
	}

	return GetEntry(ctx, db, id)
}

func deleteEntry(ctx context.Context, db DBTX, id uuid.UUID) error {
	if _, err := db.ExecContext(ctx, deleteEntryAssociationsStatement, id); err != nil {
		return fmt.Errorf("failed to delete associations of entry %s: %w", id, err)
	}

	res, err := db.ExecContext(ctx, deleteEntryStatement, id)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrEntryNotFound
	}

	return nil
}

// DeleteEntry removes an entry and all of its associations in one transaction.
func DeleteEntry(ctx context.Context, db *sql.DB, id uuid.UUID) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		return deleteEntry(ctx, tx, id)
	})
}

// DeleteEntries removes several entries at once. If any id is unknown
// nothing is deleted and ErrEntryNotFound is returned.
func DeleteEntries(ctx context.Context, db *sql.DB, ids []uuid.UUID) (int64, error) {
	var deleted int64
	seen := make(map[uuid.UUID]bool, len(ids))
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			if err := deleteEntry(ctx, tx, id); err != nil {
				if errors.Is(err, ErrEntryNotFound) {
					return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
				}
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
