// package repositories provides persistence layer implementations for all model types.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// DBTX is the subset of [sql.DB] and [sql.Tx] the repositories use.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles the repositories over a single database handle.
type Store struct {
	db        *sql.DB
	Users     *UserRepository
	Playlists *PlaylistRepository
	Items     *ItemRepository
}

// NewStore creates a [Store] backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		Users:     NewUserRepository(db),
		Playlists: NewPlaylistRepository(db),
		Items:     NewItemRepository(db),
	}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTx runs fn with repositories bound to one transaction.
//
// The transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return shared.StorageError("begin transaction", err)
	}
	defer tx.Rollback()

	bound := &Store{
		db:        s.db,
		Users:     &UserRepository{db: tx},
		Playlists: &PlaylistRepository{db: tx},
		Items:     &ItemRepository{db: tx},
	}

	if err := fn(bound); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return shared.StorageError("commit transaction", err)
	}
	return nil
}

// validate runs model validation before a write.
func validate(m models.Model) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a sqlite UNIQUE or PRIMARY KEY constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// isCheckViolation reports whether err is a sqlite CHECK constraint failure.
func isCheckViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintCheck
	}
	return false
}

// nullString maps "" to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// requireRow turns a zero RowsAffected into [shared.ErrNotFound].
func requireRow(result sql.Result, what, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return shared.StorageError("read affected rows", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", what, id, shared.ErrNotFound)
	}
	return nil
}
