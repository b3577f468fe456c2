package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/playback"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// AppOpts wires the web service.
type AppOpts struct {
	Session Session
	Auth    *AuthHandler // nil disables /login, the callback and /logout
	Page    http.Handler
	Logger  *log.Logger
}

// NewApp registers every route of the web service on a [BasicRouter].
func NewApp(opts AppOpts) *BasicRouter {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	router := NewBasicRouter()
	router.Use(DefaultMiddleware(shared.WithLogger(logger, "component", "http"))...)

	api := NewAPI(opts.Session, opts.Page, logger)
	router.Handle(http.MethodGet, "/", http.HandlerFunc(api.Index))
	router.Handle(http.MethodGet, "/data", http.HandlerFunc(api.Data))
	router.Handle(http.MethodPost, "/control", http.HandlerFunc(api.Control))
	router.Handle(http.MethodPost, "/next_track", api.Alias(playback.Next))
	router.Handle(http.MethodPost, "/previous_track", api.Alias(playback.Previous))
	router.Handle(http.MethodPost, "/toggle_playback", api.Alias(playback.Toggle))
	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(api.Health))

	for path, allow := range map[string]string{
		"/data":            http.MethodGet,
		"/healthz":         http.MethodGet,
		"/control":         http.MethodPost,
		"/next_track":      http.MethodPost,
		"/previous_track":  http.MethodPost,
		"/toggle_playback": http.MethodPost,
	} {
		router.Handle("", path, methodNotAllowed(allow))
	}

	if opts.Auth != nil {
		router.Handle(http.MethodGet, "/login", http.HandlerFunc(opts.Auth.Login))
		router.Handle(http.MethodGet, opts.Auth.CallbackPath(), http.HandlerFunc(opts.Auth.Callback))
		router.Handle(http.MethodPost, "/logout", http.HandlerFunc(opts.Auth.Logout))
	}

	return router
}

// ShutdownTimeout bounds graceful shutdown once the serve context is cancelled.
const ShutdownTimeout = 5 * time.Second

// Serve runs handler on cfg's address until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, cfg shared.ServerConfig, handler http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout.Duration,
		WriteTimeout: cfg.WriteTimeout.Duration,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errs
}
