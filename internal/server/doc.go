// Package server provides HTTP routing, middleware, and the JSON handlers of the mdx web service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses a chi mux internally, so routes may carry path parameters
// such as "/playlist/{id}". [BasicRouter.Group] shares the mux while adding middleware, which is how
// the session-gated routes get [RequireSession].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// The "/downloads/{filename}" blob handler is registered this way.
//
// # Responses
//
// Every JSON response carries "success". Failures are HTTP 200 with {"success": false, "error": "..."},
// except:
//   - session-gated routes without a session: 401 with "redirect": true
//   - missing downloads and unknown paths: 404
//   - recovered panics: 500
//
// Storage failures are logged with the request id and reported with a generic message.
//
// # Sessions
//
// [LoadSession] resolves the caller through a [session.Store] and stores the identity in the
// request context; handlers read it back with [session.FromContext].
package server
