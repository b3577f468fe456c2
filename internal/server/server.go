// package server contains middleware & handlers for the now-playing web service
package server

import (
	"context"
	"net/http"

	"github.com/desertthunder/nowplaying/internal/session"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// chi's middleware functions satisfy this type directly.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows which paths it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Session is the gate plus the cheap authorization check used by page routes.
type Session interface {
	session.Gate
	Authorized(ctx context.Context) bool
}
