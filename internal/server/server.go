// package server contains middleware & handlers for the mdx web service
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mdx/internal/access"
	"github.com/desertthunder/mdx/internal/blobstore"
	"github.com/desertthunder/mdx/internal/identity"
	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/playlists"
	"github.com/desertthunder/mdx/internal/session"
	"github.com/desertthunder/mdx/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, session loading, CORS, panic recovery, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own their route patterns.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Extractor resolves a media URL to a description. [services.Gateway] implements it.
type Extractor interface {
	Extract(ctx context.Context, url, platform, format string) (*models.MediaDescription, error)
}

// Deps are the components the HTTP layer delegates to.
type Deps struct {
	Identity  *identity.Service
	Playlists *playlists.Service
	Access    *access.Controller
	Extractor Extractor
	Blobs     blobstore.Store
	Sessions  session.Store
	Logger    *log.Logger
}

// Server is the mdx HTTP service.
type Server struct {
	handler   http.Handler
	router    *BasicRouter
	identity  *identity.Service
	playlists *playlists.Service
	access    *access.Controller
	extractor Extractor
	blobs     blobstore.Store
	sessions  session.Store
	logger    *log.Logger
	config    shared.ServerConfig
}

// New builds a [Server] and registers every route.
func New(deps Deps, config shared.ServerConfig) *Server {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}

	s := &Server{
		router:    NewBasicRouter(),
		identity:  deps.Identity,
		playlists: deps.Playlists,
		access:    deps.Access,
		extractor: deps.Extractor,
		blobs:     deps.Blobs,
		sessions:  deps.Sessions,
		logger:    shared.WithLogger(deps.Logger, "component", "server"),
		config:    config,
	}
	s.routes()

	// CORS runs ahead of routing so preflight requests reach it.
	s.handler = CORS(config.AllowedOrigins)(s.router)
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on the configured address until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// maxUploadBytes is the multipart body limit derived from the server config.
func (s *Server) maxUploadBytes() int64 {
	if s.config.MaxUploadMB <= 0 {
		return 512 << 20
	}
	return s.config.MaxUploadMB << 20
}
