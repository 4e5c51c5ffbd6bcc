// Package playlists implements the playlist store: owned playlists, their items and uploads.
//
// Every operation takes the caller's user ID and consults [access.CanAccess] before reading
// or changing anything. A playlist the caller does not own is reported exactly like one that
// does not exist ([shared.ErrNotFound]). Checks and the writes they guard share one transaction.
package playlists

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mdx/internal/access"
	"github.com/desertthunder/mdx/internal/blobstore"
	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/repositories"
	"github.com/desertthunder/mdx/internal/shared"
)

const (
	// UnknownDuration marks items whose length is not known, such as uploads.
	UnknownDuration = "N/A"

	defaultMediaType = "mp4"
	defaultTitle     = "Untitled"

	// codeAttempts bounds retries when a generated access code collides.
	codeAttempts = 3
)

// CreateInput carries a create-playlist request.
//
// AccessCode is only read when Visibility is "code"; when it is empty a code is generated.
type CreateInput struct {
	Name        string
	Description string
	Visibility  string
	AccessCode  string
}

// Service is the playlist store.
type Service struct {
	store  *repositories.Store
	blobs  blobstore.Store
	logger *log.Logger
}

// NewService creates a playlist [Service].
func NewService(store *repositories.Store, blobs blobstore.Store, logger *log.Logger) *Service {
	return &Service{store: store, blobs: blobs, logger: shared.WithLogger(logger, "component", "playlists")}
}

// Create stores a new playlist owned by actorID.
//
// Fails with [shared.ErrInvalidArgument] on a blank name or unknown visibility and with
// [shared.ErrConflict] when a supplied access code is already taken.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (*models.Playlist, error) {
	if actorID == "" {
		return nil, fmt.Errorf("create playlist: %w", shared.ErrUnauthorized)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidArgument)
	}

	generate := strings.EqualFold(strings.TrimSpace(in.Visibility), string(models.VisibilityCode)) &&
		models.NormalizeAccessCode(in.AccessCode) == ""

	for attempt := 1; ; attempt++ {
		code := in.AccessCode
		if generate {
			var err error
			if code, err = access.GenerateCode(); err != nil {
				return nil, err
			}
		}

		visibility, err := models.ParseVisibility(in.Visibility, code)
		if err != nil {
			return nil, err
		}

		p := &models.Playlist{
			OwnerID:     actorID,
			Name:        name,
			Description: strings.TrimSpace(in.Description),
			Visibility:  visibility,
		}

		err = s.store.Playlists.Create(ctx, p)
		if generate && errors.Is(err, shared.ErrConflict) && attempt < codeAttempts {
			s.logger.Debug("generated access code collided, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("created playlist", "id", p.ID, "owner", actorID, "visibility", p.Visibility)
		return p, nil
	}
}

// List returns the actor's playlists with item counts, newest first.
func (s *Service) List(ctx context.Context, actorID string) ([]models.PlaylistSummary, error) {
	if actorID == "" {
		return nil, fmt.Errorf("list playlists: %w", shared.ErrUnauthorized)
	}
	return s.store.Playlists.ListByOwner(ctx, actorID)
}

// GetContent returns an owned playlist with its items, newest first.
func (s *Service) GetContent(ctx context.Context, playlistID, actorID string) (*models.PlaylistContent, error) {
	var content *models.PlaylistContent
	err := s.store.WithTx(ctx, func(tx *repositories.Store) error {
		p, err := ownedPlaylist(ctx, tx, playlistID, actorID, access.View)
		if err != nil {
			return err
		}

		items, err := tx.Items.ListByPlaylist(ctx, p.ID)
		if err != nil {
			return err
		}

		content = &models.PlaylistContent{Playlist: *p, Items: items}
		return nil
	})
	return content, err
}

// AddItem appends an extracted media description to an owned playlist.
//
// The item URL is the first non-empty of download_url, video and audio.
// The media type is the lower-cased format, "mp4" when absent. Duplicates are allowed.
func (s *Service) AddItem(ctx context.Context, playlistID, actorID string, media models.MediaDescription) (*models.PlaylistItem, error) {
	item := &models.PlaylistItem{
		PlaylistID: playlistID,
		Title:      strings.TrimSpace(media.Title),
		URL:        media.MediaURL(),
		MediaType:  strings.ToLower(strings.TrimSpace(media.Format)),
		Thumbnail:  media.Thumbnail,
		Duration:   media.Duration,
	}

	if item.Title == "" {
		item.Title = defaultTitle
	}
	if item.MediaType == "" {
		item.MediaType = defaultMediaType
	}
	if item.URL == "" {
		return nil, fmt.Errorf("%w: media has no url", shared.ErrInvalidArgument)
	}

	if err := s.insertOwned(ctx, actorID, item); err != nil {
		return nil, err
	}

	s.logger.Debug("added item", "playlist", playlistID, "item", item.ID, "type", item.MediaType)
	return item, nil
}

// UploadItem stores a file through the blob store and appends it to an owned playlist.
//
// The filename is reduced to its base name; an existing blob with that name is overwritten.
func (s *Service) UploadItem(ctx context.Context, playlistID, actorID, filename string, r io.Reader, size int64) (*models.PlaylistItem, error) {
	name, err := blobstore.CleanName(filename)
	if err != nil {
		return nil, err
	}

	if _, err := ownedPlaylist(ctx, s.store, playlistID, actorID, access.Mutate); err != nil {
		return nil, err
	}

	if err := s.blobs.Put(ctx, name, r, size); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	item := &models.PlaylistItem{
		PlaylistID: playlistID,
		Title:      UploadTitle(name),
		URL:        blobstore.ServePath(name),
		MediaType:  ClassifyMediaType(name),
		Duration:   UnknownDuration,
	}

	if err := s.insertOwned(ctx, actorID, item); err != nil {
		s.logger.Warn("upload stored but item not created", "file", name, "playlist", playlistID, "error", err)
		return nil, err
	}

	s.logger.Info("uploaded item", "playlist", playlistID, "file", name, "backend", s.blobs.Name())
	return item, nil
}

// RenameItem changes the title of an item in an owned playlist.
//
// A blank title is [shared.ErrInvalidArgument] and leaves the item unchanged.
func (s *Service) RenameItem(ctx context.Context, itemID, actorID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title cannot be empty", shared.ErrInvalidArgument)
	}

	return s.store.WithTx(ctx, func(tx *repositories.Store) error {
		if err := ownedItem(ctx, tx, itemID, actorID); err != nil {
			return err
		}
		return tx.Items.UpdateTitle(ctx, itemID, title)
	})
}

// RemoveItem deletes one item from an owned playlist.
func (s *Service) RemoveItem(ctx context.Context, itemID, actorID string) error {
	return s.store.WithTx(ctx, func(tx *repositories.Store) error {
		if err := ownedItem(ctx, tx, itemID, actorID); err != nil {
			return err
		}
		return tx.Items.Delete(ctx, itemID)
	})
}

// Delete removes an owned playlist and all of its items atomically.
func (s *Service) Delete(ctx context.Context, playlistID, actorID string) error {
	var removed int64
	err := s.store.WithTx(ctx, func(tx *repositories.Store) error {
		p, err := ownedPlaylist(ctx, tx, playlistID, actorID, access.Mutate)
		if err != nil {
			return err
		}

		if removed, err = tx.Items.DeleteByPlaylist(ctx, p.ID); err != nil {
			return err
		}
		return tx.Playlists.Delete(ctx, p.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("deleted playlist", "id", playlistID, "items", removed)
	return nil
}

// insertOwned re-checks ownership of item.PlaylistID and inserts item in one transaction.
func (s *Service) insertOwned(ctx context.Context, actorID string, item *models.PlaylistItem) error {
	return s.store.WithTx(ctx, func(tx *repositories.Store) error {
		if _, err := ownedPlaylist(ctx, tx, item.PlaylistID, actorID, access.Mutate); err != nil {
			return err
		}
		return tx.Items.Add(ctx, item)
	})
}

// ownedPlaylist loads a playlist and hides it unless actorID may perform a on it.
func ownedPlaylist(ctx context.Context, tx *repositories.Store, playlistID, actorID string, a access.Action) (*models.Playlist, error) {
	if strings.TrimSpace(playlistID) == "" {
		return nil, fmt.Errorf("%w: playlist id is required", shared.ErrInvalidArgument)
	}

	p, err := tx.Playlists.Get(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccess(actorID, p, a) {
		return nil, fmt.Errorf("playlist %s: %w", playlistID, shared.ErrNotFound)
	}
	return p, nil
}

// ownedItem checks, through the item's playlist, that actorID may change itemID.
func ownedItem(ctx context.Context, tx *repositories.Store, itemID, actorID string) error {
	if strings.TrimSpace(itemID) == "" {
		return fmt.Errorf("%w: item id is required", shared.ErrInvalidArgument)
	}

	_, p, err := tx.Items.GetWithPlaylist(ctx, itemID)
	if err != nil {
		return err
	}
	if !access.CanAccess(actorID, p, access.Mutate) {
		return fmt.Errorf("item %s: %w", itemID, shared.ErrNotFound)
	}
	return nil
}

// ClassifyMediaType maps a filename extension to a media type:
// mp3/wav/ogg are "mp3", mp4/avi/mov are "mp4", anything else is the bare extension.
func ClassifyMediaType(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "mp3", "wav", "ogg":
		return "mp3"
	case "mp4", "avi", "mov":
		return "mp4"
	case "":
		return "unknown"
	default:
		return ext
	}
}

// UploadTitle is the filename without its extension, or the whole name when nothing else remains.
func UploadTitle(filename string) string {
	if title := strings.TrimSuffix(filename, filepath.Ext(filename)); strings.TrimSpace(title) != "" {
		return title
	}
	return filename
}
