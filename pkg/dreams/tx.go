package dreams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrEntryNotFound    = errors.New("entry not found")
	ErrPatternNotFound  = errors.New("pattern not found")
	ErrEmptyLabel       = errors.New("pattern label is empty")
	ErrInvalidCategory  = errors.New("invalid pattern category")
	ErrInvalidSelection = errors.New("invalid pattern selection")
	ErrCommitFailed     = errors.New("commit failed")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// withTx runs fn inside a transaction. Any error from fn rolls the whole
// transaction back; a failed commit is reported as ErrCommitFailed.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	return nil
}
