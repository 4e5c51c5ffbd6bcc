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

const playlistColumns = "p.id, p.user_id, p.name, p.description, p.visibility, p.access_code, p.created_at"

// PlaylistRepository persists [models.Playlist] records.
//
// Lookups return the row whoever owns it; callers decide whether the actor may see it.
type PlaylistRepository struct {
	db DBTX
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db DBTX) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist with a generated ID.
//
// A code already held by another code-visible playlist yields [shared.ErrConflict].
func (r *PlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	if err := validate(playlist); err != nil {
		return err
	}

	if playlist.CreatedAt.IsZero() {
		playlist.CreatedAt = time.Now().UTC()
	}

	id := shared.GenerateID()
	code, _ := playlist.Visibility.AccessCode()

	query := `
		INSERT INTO playlists (id, user_id, name, description, visibility, access_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		id,
		playlist.OwnerID,
		playlist.Name,
		playlist.Description,
		playlist.Visibility.String(),
		nullString(code),
		playlist.CreatedAt,
	)
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("access code already in use: %w", shared.ErrConflict)
	case isCheckViolation(err):
		return fmt.Errorf("%w: playlist rejected by schema: %v", shared.ErrInvalidArgument, err)
	case err != nil:
		return shared.StorageError("insert playlist", err)
	}

	playlist.ID = id
	return nil
}

// Get retrieves a playlist by ID.
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists p WHERE p.id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), id)
}

// GetByAccessCode retrieves the code-visible playlist holding code.
func (r *PlaylistRepository) GetByAccessCode(ctx context.Context, code string) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists p WHERE p.visibility = 'code' AND p.access_code = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, code), "with that access code")
}

// ListByOwner returns the owner's playlists with item counts, newest first.
func (r *PlaylistRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.PlaylistSummary, error) {
	query := `
		SELECT ` + playlistColumns + `, COUNT(i.id)
		FROM playlists p
		LEFT JOIN playlist_items i ON i.playlist_id = p.id
		WHERE p.user_id = ?
		GROUP BY p.id
		ORDER BY p.created_at DESC, p.rowid DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, shared.StorageError("list playlists", err)
	}
	defer rows.Close()

	summaries := []models.PlaylistSummary{}
	for rows.Next() {
		var count int
		playlist, err := scanPlaylist(rows, &count)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, models.PlaylistSummary{Playlist: *playlist, ItemCount: count})
	}

	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("iterate playlists", err)
	}
	return summaries, nil
}

// Delete removes the playlist row. Items must already be gone (see [ItemRepository.DeleteByPlaylist]).
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return shared.StorageError("delete playlist", err)
	}
	return requireRow(result, "playlist", id)
}

// scanOne scans a single row into a [models.Playlist]
func (r *PlaylistRepository) scanOne(row *sql.Row, key string) (*models.Playlist, error) {
	playlist, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("playlist %s: %w", key, shared.ErrNotFound)
	}
	return playlist, err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanPlaylist reads [playlistColumns] followed by any extra destinations.
//
// [sql.ErrNoRows] is returned unwrapped so callers can map it.
func scanPlaylist(s scanner, extra ...any) (*models.Playlist, error) {
	var (
		p          models.Playlist
		visibility string
		code       sql.NullString
	)

	dest := append([]any{&p.ID, &p.OwnerID, &p.Name, &p.Description, &visibility, &code, &p.CreatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, shared.StorageError("scan playlist", err)
	}

	v, err := models.ParseVisibility(visibility, code.String)
	if err != nil {
		return nil, shared.StorageError("decode visibility", err)
	}
	p.Visibility = v
	return &p, nil
}
