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

const itemColumns = "i.id, i.playlist_id, i.title, i.url, i.media_type, i.thumbnail, i.duration, i.added_at"

// ItemRepository persists [models.PlaylistItem] records.
type ItemRepository struct {
	db DBTX
}

// NewItemRepository creates a new ItemRepository with the given database connection
func NewItemRepository(db DBTX) *ItemRepository {
	return &ItemRepository{db: db}
}

// Add inserts an item with a generated ID. Duplicate URLs in one playlist are allowed.
func (r *ItemRepository) Add(ctx context.Context, item *models.PlaylistItem) error {
	if err := validate(item); err != nil {
		return err
	}

	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO playlist_items (id, playlist_id, title, url, media_type, thumbnail, duration, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		id,
		item.PlaylistID,
		item.Title,
		item.URL,
		item.MediaType,
		nullString(item.Thumbnail),
		nullString(item.Duration),
		item.AddedAt,
	)
	if err != nil {
		return shared.StorageError("insert playlist item", err)
	}

	item.ID = id
	return nil
}

// ListByPlaylist returns a playlist's items, newest first.
func (r *ItemRepository) ListByPlaylist(ctx context.Context, playlistID string) ([]models.PlaylistItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM playlist_items i
		WHERE i.playlist_id = ?
		ORDER BY i.added_at DESC, i.rowid DESC
	`

	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, shared.StorageError("list playlist items", err)
	}
	defer rows.Close()

	items := []models.PlaylistItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("iterate playlist items", err)
	}
	return items, nil
}

// GetWithPlaylist retrieves an item together with the playlist that holds it.
func (r *ItemRepository) GetWithPlaylist(ctx context.Context, itemID string) (*models.PlaylistItem, *models.Playlist, error) {
	query := `
		SELECT ` + itemColumns + `, ` + playlistColumns + `
		FROM playlist_items i
		JOIN playlists p ON p.id = i.playlist_id
		WHERE i.id = ?
	`

	var (
		item       models.PlaylistItem
		thumbnail  sql.NullString
		duration   sql.NullString
		playlist   models.Playlist
		visibility string
		code       sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, itemID).Scan(
		&item.ID, &item.PlaylistID, &item.Title, &item.URL, &item.MediaType, &thumbnail, &duration, &item.AddedAt,
		&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description, &visibility, &code, &playlist.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("item %s: %w", itemID, shared.ErrNotFound)
	}
	if err != nil {
		return nil, nil, shared.StorageError("scan playlist item", err)
	}

	item.Thumbnail = thumbnail.String
	item.Duration = duration.String

	v, err := models.ParseVisibility(visibility, code.String)
	if err != nil {
		return nil, nil, shared.StorageError("decode visibility", err)
	}
	playlist.Visibility = v

	return &item, &playlist, nil
}

// UpdateTitle changes an item's title. It is the only mutable item field.
func (r *ItemRepository) UpdateTitle(ctx context.Context, itemID, title string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE playlist_items SET title = ? WHERE id = ?", title, itemID)
	if err != nil {
		return shared.StorageError("update item title", err)
	}
	return requireRow(result, "item", itemID)
}

// Delete removes a single item.
func (r *ItemRepository) Delete(ctx context.Context, itemID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM playlist_items WHERE id = ?", itemID)
	if err != nil {
		return shared.StorageError("delete playlist item", err)
	}
	return requireRow(result, "item", itemID)
}

// DeleteByPlaylist removes every item of a playlist and returns how many were deleted.
func (r *ItemRepository) DeleteByPlaylist(ctx context.Context, playlistID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM playlist_items WHERE playlist_id = ?", playlistID)
	if err != nil {
		return 0, shared.StorageError("delete playlist items", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, shared.StorageError("read affected rows", err)
	}
	return n, nil
}

// scanItem scans one row of [itemColumns].
func scanItem(s scanner) (*models.PlaylistItem, error) {
	var (
		item      models.PlaylistItem
		thumbnail sql.NullString
		duration  sql.NullString
	)

	if err := s.Scan(&item.ID, &item.PlaylistID, &item.Title, &item.URL, &item.MediaType, &thumbnail, &duration, &item.AddedAt); err != nil {
		return nil, shared.StorageError("scan playlist item", err)
	}

	item.Thumbnail = thumbnail.String
	item.Duration = duration.String
	return &item, nil
}
