package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/mdx/internal/blobstore"
	"github.com/desertthunder/mdx/internal/formatter"
	"github.com/desertthunder/mdx/internal/identity"
	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/playlists"
	"github.com/desertthunder/mdx/internal/session"
	"github.com/desertthunder/mdx/internal/shared"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of an upload is buffered in memory before spilling to disk.
const multipartMemory = 32 << 20

func (s *Server) routes() {
	r := s.router
	r.Use(RequestID(), RequestLogger(s.logger), Recover(s.logger), LoadSession(s.sessions, s.logger))

	r.Handle(http.MethodGet, "/health", http.HandlerFunc(s.handleHealth))
	r.Handle(http.MethodPost, "/register", http.HandlerFunc(s.handleRegister))
	r.Handle(http.MethodPost, "/login", http.HandlerFunc(s.handleLogin))
	r.Handle(http.MethodGet, "/check_session", http.HandlerFunc(s.handleCheckSession))
	r.Handler(&downloadsHandler{server: s})
	r.NotFound(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, failure{Error: "not found"})
	}))

	auth := r.Group(RequireSession)
	auth.Handle(http.MethodPost, "/logout", http.HandlerFunc(s.handleLogout))
	auth.Handle(http.MethodPost, "/process", http.HandlerFunc(s.handleProcess))
	auth.Handle(http.MethodPost, "/create_playlist", http.HandlerFunc(s.handleCreatePlaylist))
	auth.Handle(http.MethodGet, "/playlists", http.HandlerFunc(s.handleListPlaylists))
	auth.Handle(http.MethodPost, "/add_to_playlist", http.HandlerFunc(s.handleAddToPlaylist))
	auth.Handle(http.MethodPost, "/upload_to_playlist", http.HandlerFunc(s.handleUpload))
	auth.Handle(http.MethodPost, "/rename_item", http.HandlerFunc(s.handleRenameItem))
	auth.Handle(http.MethodGet, "/playlist/{id}", http.HandlerFunc(s.handleGetPlaylist))
	auth.Handle(http.MethodGet, "/playlist/{id}/export", http.HandlerFunc(s.handleExport))
	auth.Handle(http.MethodPost, "/remove_from_playlist", http.HandlerFunc(s.handleRemoveItem))
	auth.Handle(http.MethodPost, "/delete_playlist", http.HandlerFunc(s.handleDeletePlaylist))
	auth.Handle(http.MethodPost, "/access_playlist", http.HandlerFunc(s.handleAccessPlaylist))
}

// actor returns the signed-in user's ID. Routes behind [RequireSession] always have one.
func actor(r *http.Request) string {
	id, _ := session.FromContext(r.Context())
	return id.UserID
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
	}{Success: true, Status: "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username        string `json:"username"`
		Arobase         string `json:"arobase"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	user, err := s.identity.Register(r.Context(), identity.RegisterInput{
		Username:        req.Username,
		Handle:          req.Arobase,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		UserID  string `json:"user_id"`
		Arobase string `json:"arobase"`
	}{Success: true, UserID: user.ID(), Arobase: user.Handle()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	id, err := s.identity.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.sessions.Save(w, r, id); err != nil {
		s.fail(w, r, shared.StorageError("save session", err))
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Arobase string `json:"arobase"`
	}{Success: true, Arobase: id.Handle})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Clear(w, r); err != nil {
		s.fail(w, r, shared.StorageError("clear session", err))
		return
	}
	writeJSON(w, http.StatusOK, success)
}

func (s *Server) handleCheckSession(w http.ResponseWriter, r *http.Request) {
	id, loggedIn := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, struct {
		Success  bool   `json:"success"`
		LoggedIn bool   `json:"logged_in"`
		UserID   string `json:"user_id,omitempty"`
		Arobase  string `json:"arobase,omitempty"`
	}{Success: true, LoggedIn: loggedIn, UserID: id.UserID, Arobase: id.Handle})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL      string `json:"url"`
		Platform string `json:"platform"`
		Format   string `json:"format"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	media, err := s.extractor.Extract(r.Context(), req.URL, req.Platform, req.Format)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*models.MediaDescription
	}{Success: true, MediaDescription: media})
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Visibility  string `json:"visibility"`
		AccessCode  string `json:"access_code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	p, err := s.playlists.Create(r.Context(), actor(r), playlists.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Visibility:  req.Visibility,
		AccessCode:  req.AccessCode,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	code, _ := p.Visibility.AccessCode()
	writeJSON(w, http.StatusOK, struct {
		Success    bool   `json:"success"`
		PlaylistID string `json:"playlist_id"`
		AccessCode string `json:"access_code,omitempty"`
	}{Success: true, PlaylistID: p.ID, AccessCode: code})
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.playlists.List(r.Context(), actor(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	views := make([]summaryView, 0, len(summaries))
	for _, sum := range summaries {
		views = append(views, summaryView{playlistView: newPlaylistView(sum.Playlist), ItemCount: sum.ItemCount})
	}

	writeJSON(w, http.StatusOK, struct {
		Success   bool          `json:"success"`
		Playlists []summaryView `json:"playlists"`
	}{Success: true, Playlists: views})
}

func (s *Server) handleAddToPlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlaylistID string                  `json:"playlist_id"`
		Media      models.MediaDescription `json:"media"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	item, err := s.playlists.AddItem(r.Context(), req.PlaylistID, actor(r), req.Media)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, itemResponse{Success: true, Item: newItemView(*item)})
}

type itemResponse struct {
	Success bool     `json:"success"`
	Item    itemView `json:"item"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.maxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, fmt.Errorf("%w: file exceeds %d MB", shared.ErrInvalidArgument, limit>>20))
			return
		}
		s.fail(w, r, fmt.Errorf("%w: invalid multipart upload", shared.ErrInvalidArgument))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		s.fail(w, r, fmt.Errorf("%w: no file provided", shared.ErrInvalidArgument))
		return
	}
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: unreadable file part", shared.ErrInvalidArgument))
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.fail(w, r, fmt.Errorf("%w: no file selected", shared.ErrInvalidArgument))
		return
	}

	item, err := s.playlists.UploadItem(r.Context(), r.FormValue("playlist_id"), actor(r), header.Filename, file, header.Size)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, itemResponse{Success: true, Item: newItemView(*item)})
}

func (s *Server) handleRenameItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID   string `json:"item_id"`
		NewTitle string `json:"new_title"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.playlists.RenameItem(r.Context(), req.ItemID, actor(r), req.NewTitle); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	content, err := s.playlists.GetContent(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newContentView(content))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := formatter.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	content, err := s.playlists.GetContent(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	data, err := formatter.Export(content, format)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", attachment(exportName(content.Playlist.Name)+format.Extension()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"item_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.playlists.RemoveItem(r.Context(), req.ItemID, actor(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlaylistID string `json:"playlist_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.playlists.Delete(r.Context(), req.PlaylistID, actor(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

func (s *Server) handleAccessPlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessCode string `json:"access_code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	content, err := s.access.AccessByCode(r.Context(), actor(r), req.AccessCode)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newContentView(content))
}

// downloadsHandler serves stored uploads as attachments.
type downloadsHandler struct {
	server *Server
}

func (h *downloadsHandler) Routes() []string {
	return []string{blobstore.ServePrefix + "{filename}"}
}

func (h *downloadsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeJSON(w, http.StatusMethodNotAllowed, failure{Error: "method not allowed"})
		return
	}

	name := chi.URLParam(r, "filename")
	rc, info, err := h.server.blobs.Open(r.Context(), name)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrInvalidArgument) {
			h.server.logger.Error("failed to open download", "file", name, "error", err)
		}
		writeJSON(w, http.StatusNotFound, failure{Error: "file not found"})
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Disposition", attachment(info.Name))
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.server.logger.Warn("download interrupted", "file", name, "error", err)
	}
}

func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

// exportName turns a playlist name into a safe file stem.
func exportName(name string) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))

	if len(stem) > 50 {
		stem = stem[:50]
	}
	if stem == "" {
		return "playlist"
	}
	return stem
}
