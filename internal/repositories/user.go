package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/shared"
)

// UserRepository persists [models.User] accounts.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user with a generated ID.
//
// A duplicate username or handle yields [shared.ErrConflict].
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := validate(user); err != nil {
		return err
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO users (id, username, handle, password_hash, created_at) VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, id, user.Username(), user.Handle(), user.PasswordHash(), user.CreatedAt())
	if isUniqueViolation(err) {
		return fmt.Errorf("username or handle already exists: %w", shared.ErrConflict)
	}
	if err != nil {
		return shared.StorageError("insert user", err)
	}

	user.SetID(id)
	return nil
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, username, handle, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), id)
}

// GetByHandle retrieves a user by exact handle (including the "@" prefix).
func (r *UserRepository) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	query := `
		SELECT id, username, handle, password_hash, created_at
		FROM users
		WHERE handle = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, handle), handle)
}

// Exists reports whether a user already holds the username or the handle.
func (r *UserRepository) Exists(ctx context.Context, username, handle string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username = ? OR handle = ?)", username, handle,
	).Scan(&exists)
	if err != nil {
		return false, shared.StorageError("check user existence", err)
	}
	return exists, nil
}

// scanOne scans a single row into a [models.User]
func (r *UserRepository) scanOne(row *sql.Row, key string) (*models.User, error) {
	var (
		id           string
		username     string
		handle       string
		passwordHash string
		createdAt    time.Time
	)

	err := row.Scan(&id, &username, &handle, &passwordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", key, shared.ErrNotFound)
	}
	if err != nil {
		return nil, shared.StorageError("scan user", err)
	}

	user := models.NewUser(username, handle, passwordHash)
	user.SetID(id)
	user.SetCreatedAt(createdAt)
	return user, nil
}
