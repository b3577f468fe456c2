// Package server provides HTTP routing, middleware, and the handlers of the now-playing web service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] implements it on
// [http.ServeMux] method patterns. [Middleware] has the same shape as chi's middleware, so
// RequestID and RealIP from go-chi plug straight into [BasicRouter.Use]. [Recoverer] answers
// panics in the failing route's JSON shape.
//
// # Routes
//
//	GET  /                 page, or redirect to /login without a session
//	GET  /data             current track and up to five queued tracks
//	POST /control          {"action": "next" | "previous" | "toggle"}
//	POST /next_track       same as action "next"
//	POST /previous_track   same as action "previous"
//	POST /toggle_playback  same as action "toggle"
//	GET  /healthz          liveness and session state
//	GET  /login            start the authorization code flow
//	GET  /callback         finish it (path taken from the redirect URI)
//	POST /logout           forget the stored token
//
// # OAuth Callback Handlers
//
// [AuthHandler] serves the browser flow and writes the token to a token store.
//
// [OAuthHandler] serves the CLI flow: a temporary local server handles exactly one callback and
// publishes the token on a channel, rejecting replays.
package server
