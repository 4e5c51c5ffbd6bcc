package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// BasicRouter is an HTTP router implementing the [Router] interface.
//
// Uses a [chi.Mux] internally for routing, so paths may carry "{param}" segments
// read back with [chi.URLParam]. Method mismatches get chi's 405 response.
type BasicRouter struct {
	mux         chi.Router
	middlewares []Middleware
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{
		mux:         chi.NewRouter(),
		middlewares: []Middleware{},
	}
}

// Use adds [Middleware] to the [Router] instance's middleware stack, applied in the order it's added.
//
// Only routes registered after the call are wrapped.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Group returns a router sharing this router's routes whose handlers are also wrapped by middleware.
func (r *BasicRouter) Group(middleware ...Middleware) *BasicRouter {
	stack := make([]Middleware, 0, len(r.middlewares)+len(middleware))
	stack = append(stack, r.middlewares...)
	stack = append(stack, middleware...)
	return &BasicRouter{mux: r.mux, middlewares: stack}
}

// Handle registers a handler for the specified HTTP method and path.
//
// The handler is wrapped with all registered middleware.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Method(strings.ToUpper(method), path, r.Apply(handler))
}

// Handler registers a custom Handler implementation for every method.
//
// All routes returned by [Handler.Routes] are registered with this handler.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)

	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// NotFound sets the handler for unmatched paths, wrapped with the registered middleware.
func (r *BasicRouter) NotFound(handler http.Handler) {
	r.mux.NotFound(r.Apply(handler).ServeHTTP)
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}
