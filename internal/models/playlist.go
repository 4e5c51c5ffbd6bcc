package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mdx/internal/shared"
)

// Playlist is a user-owned collection of media items.
// OwnerID and Visibility are fixed at creation.
type Playlist struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Visibility  Visibility
	CreatedAt   time.Time
}

func (p *Playlist) GetID() string      { return p.ID }
func (p *Playlist) Created() time.Time { return p.CreatedAt }

// Validate checks the playlist has an owner and a non-blank name.
func (p *Playlist) Validate() error {
	if p.OwnerID == "" {
		return fmt.Errorf("%w: playlist owner is required", shared.ErrInvalidArgument)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidArgument)
	}
	return nil
}

// PlaylistSummary is a playlist annotated with its item count.
type PlaylistSummary struct {
	Playlist
	ItemCount int
}

// PlaylistItem is one media entry. Only Title changes after insertion.
type PlaylistItem struct {
	ID         string
	PlaylistID string
	Title      string
	URL        string
	MediaType  string
	Thumbnail  string // empty when unknown
	Duration   string // formatted, empty when unknown
	AddedAt    time.Time
}

func (i *PlaylistItem) GetID() string      { return i.ID }
func (i *PlaylistItem) Created() time.Time { return i.AddedAt }

// Validate checks the fields every stored item must carry.
func (i *PlaylistItem) Validate() error {
	if i.PlaylistID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidArgument)
	}
	if strings.TrimSpace(i.Title) == "" {
		return fmt.Errorf("%w: item title is required", shared.ErrInvalidArgument)
	}
	if i.MediaType == "" {
		return fmt.Errorf("%w: media type is required", shared.ErrInvalidArgument)
	}
	return nil
}

// PlaylistContent is a playlist header with its items, newest first.
type PlaylistContent struct {
	Playlist Playlist
	Items    []PlaylistItem
}
