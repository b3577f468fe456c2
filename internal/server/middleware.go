package server

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/playback"
	"github.com/go-chi/chi/v5/middleware"
)

const errInternal = "internal error"

// DefaultMiddleware is the stack every route gets: request ids, client address, request logging
// and panic recovery.
func DefaultMiddleware(logger *log.Logger) []Middleware {
	return []Middleware{
		middleware.RequestID,
		middleware.RealIP,
		RequestLogger(logger),
		Recoverer(logger),
	}
}

// Recoverer turns a panic into a 500 carrying the route's JSON error shape.
// [http.ErrAbortHandler] is re-raised so the server aborts the connection.
func Recoverer(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic",
					"err", rec,
					"path", r.URL.Path,
					"request_id", middleware.GetReqID(r.Context()),
					"stack", string(debug.Stack()),
				)
				writeJSON(w, http.StatusInternalServerError, errorBody(r.URL.Path, errInternal))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// errorBody shapes a failure the way the route at path reports its own failures.
func errorBody(path, message string) any {
	switch path {
	case "/data":
		return IdleResponse{Error: message}
	case "/control", "/next_track", "/previous_track", "/toggle_playback":
		return playback.ControlResult{Error: message}
	default:
		return map[string]string{"error": message}
	}
}

// methodNotAllowed answers any method other than allow with a JSON 405.
func methodNotAllowed(allow string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody(r.URL.Path, "method not allowed"))
	})
}

// RequestLogger logs one line per request once the response has been written.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				kv := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
					"remote", r.RemoteAddr,
				}
				if status >= http.StatusInternalServerError {
					logger.Error("request", kv...)
				} else {
					logger.Info("request", kv...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
