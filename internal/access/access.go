// package access decides who may see or change a playlist.
//
// Ownership is the only relation: owners may do everything, everyone else nothing,
// except that any signed-in holder of a code-visible playlist's access code may read it.
package access

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/repositories"
	"github.com/desertthunder/mdx/internal/shared"
)

// Action is an operation class checked against a playlist.
type Action int

const (
	View Action = iota
	Mutate
)

func (a Action) String() string {
	switch a {
	case View:
		return "view"
	case Mutate:
		return "mutate"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

const (
	// CodeLength is the number of characters in a generated access code.
	CodeLength   = 8
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// CanAccess reports whether actorID may perform a on p.
//
// Public playlists are not readable by non-owners: no discovery path exists for them yet.
func CanAccess(actorID string, p *models.Playlist, a Action) bool {
	if p == nil || actorID == "" {
		return false
	}
	return p.OwnerID == actorID
}

// CanAccessWithCode reports whether code unlocks p for reading.
//
// The actor's identity is irrelevant beyond being signed in.
func CanAccessWithCode(actorID string, p *models.Playlist, code string) bool {
	if p == nil || actorID == "" {
		return false
	}

	want, ok := p.Visibility.AccessCode()
	got := models.NormalizeAccessCode(code)
	if !ok || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// GenerateCode returns a random [CodeLength]-character upper-case base-36 code.
func GenerateCode() (string, error) {
	base := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, CodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("failed to generate access code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// Controller serves reads that bypass ownership through an access code.
type Controller struct {
	store  *repositories.Store
	logger *log.Logger
}

// NewController creates a [Controller] over store.
func NewController(store *repositories.Store, logger *log.Logger) *Controller {
	return &Controller{store: store, logger: shared.WithLogger(logger, "component", "access")}
}

// AccessByCode returns the code-visible playlist matching code with all of its items,
// whoever actorID is. An empty actor is [shared.ErrUnauthorized]; no match is [shared.ErrNotFound].
func (c *Controller) AccessByCode(ctx context.Context, actorID, code string) (*models.PlaylistContent, error) {
	if actorID == "" {
		return nil, fmt.Errorf("access by code: %w", shared.ErrUnauthorized)
	}

	code = models.NormalizeAccessCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: access code is required", shared.ErrNotFound)
	}

	var content *models.PlaylistContent
	err := c.store.WithTx(ctx, func(tx *repositories.Store) error {
		p, err := tx.Playlists.GetByAccessCode(ctx, code)
		if err != nil {
			return err
		}
		if !CanAccessWithCode(actorID, p, code) {
			return fmt.Errorf("playlist with that access code: %w", shared.ErrNotFound)
		}

		items, err := tx.Items.ListByPlaylist(ctx, p.ID)
		if err != nil {
			return err
		}

		content = &models.PlaylistContent{Playlist: *p, Items: items}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("playlist opened by code", "playlist", content.Playlist.ID, "actor", actorID, "owner", content.Playlist.OwnerID)
	return content, nil
}
