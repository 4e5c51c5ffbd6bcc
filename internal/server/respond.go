package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/shared"
	"github.com/go-chi/chi/v5/middleware"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// failure is the uniform error envelope.
type failure struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	Redirect bool   `json:"redirect,omitempty"`
}

// okResponse is the bare success envelope.
type okResponse struct {
	Success bool `json:"success"`
}

var success = okResponse{Success: true}

type playlistView struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Visibility  string    `json:"visibility"`
	AccessCode  string    `json:"access_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type summaryView struct {
	playlistView
	ItemCount int `json:"item_count"`
}

type itemView struct {
	ID         string    `json:"id"`
	PlaylistID string    `json:"playlist_id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	MediaType  string    `json:"media_type"`
	Thumbnail  string    `json:"thumbnail,omitempty"`
	Duration   string    `json:"duration,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}

type contentView struct {
	Success  bool         `json:"success"`
	Playlist playlistView `json:"playlist"`
	Items    []itemView   `json:"items"`
}

func newPlaylistView(p models.Playlist) playlistView {
	code, _ := p.Visibility.AccessCode()
	return playlistView{
		ID:          p.ID,
		UserID:      p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		Visibility:  p.Visibility.String(),
		AccessCode:  code,
		CreatedAt:   p.CreatedAt,
	}
}

func newItemView(i models.PlaylistItem) itemView {
	return itemView{
		ID:         i.ID,
		PlaylistID: i.PlaylistID,
		Title:      i.Title,
		URL:        i.URL,
		MediaType:  i.MediaType,
		Thumbnail:  i.Thumbnail,
		Duration:   i.Duration,
		AddedAt:    i.AddedAt,
	}
}

func newContentView(c *models.PlaylistContent) contentView {
	items := make([]itemView, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, newItemView(item))
	}
	return contentView{Success: true, Playlist: newPlaylistView(c.Playlist), Items: items}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", shared.ErrInvalidArgument)
		}
		return fmt.Errorf("%w: malformed JSON body", shared.ErrInvalidArgument)
	}
	return nil
}

// fail writes the failure envelope for err.
//
// Domain errors are reported with their message; storage and unexpected errors are logged
// and replaced with a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetReqID(r.Context())

	switch {
	case errors.Is(err, shared.ErrStorage):
		s.logger.Error("storage failure", "path", r.URL.Path, "error", err, "request_id", reqID)
		writeJSON(w, http.StatusOK, failure{Error: "a storage error occurred, please try again"})
	case errors.Is(err, shared.ErrExtractionFailed):
		s.logger.Warn("extraction failed", "path", r.URL.Path, "error", err, "request_id", reqID)
		writeJSON(w, http.StatusOK, failure{Error: err.Error()})
	case shared.IsDomainError(err):
		s.logger.Debug("request rejected", "path", r.URL.Path, "error", err, "request_id", reqID)
		writeJSON(w, http.StatusOK, failure{Error: err.Error()})
	default:
		s.logger.Error("unexpected failure", "path", r.URL.Path, "error", err, "request_id", reqID)
		writeJSON(w, http.StatusOK, failure{Error: "internal error"})
	}
}
