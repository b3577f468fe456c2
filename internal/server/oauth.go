package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/shared"
	"golang.org/x/oauth2"
)

// StateTTL bounds how long a /login state value stays redeemable.
const StateTTL = 10 * time.Minute

var errInvalidState = fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)

// exchange validates the callback query and trades its code for a token. The returned status is
// the HTTP status to answer the callback with when err is non-nil.
func exchange(ctx context.Context, config *oauth2.Config, query url.Values, validState func(string) bool) (*oauth2.Token, int, error) {
	if !validState(query.Get("state")) {
		return nil, http.StatusBadRequest, errInvalidState
	}

	code := query.Get("code")
	if code == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("%w: %s - %s",
			shared.ErrAuthFailed, query.Get("error"), query.Get("error_description"))
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, http.StatusBadGateway, fmt.Errorf("%w: token exchange failed: %w", shared.ErrAuthFailed, err)
	}
	return token, http.StatusOK, nil
}

// callbackPath is the path component of the configured redirect URI.
func callbackPath(config *oauth2.Config) string {
	u, err := url.Parse(config.RedirectURL)
	if err != nil || u.Path == "" {
		return "/callback"
	}
	return u.Path
}

// AuthHandler runs the browser authorization flow of the web service: /login starts it, the
// redirect URI completes it and stores the token, /logout forgets it.
type AuthHandler struct {
	config *oauth2.Config
	store  repositories.TokenStore
	logger *log.Logger
	now    func() time.Time

	mu     sync.Mutex
	states map[string]time.Time
}

// NewAuthHandler creates an [AuthHandler].
func NewAuthHandler(config *oauth2.Config, store repositories.TokenStore, logger *log.Logger) *AuthHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AuthHandler{
		config: config,
		store:  store,
		logger: shared.WithLogger(logger, "component", "auth"),
		now:    time.Now,
		states: map[string]time.Time{},
	}
}

// CallbackPath is the route the authorization server redirects back to.
func (h *AuthHandler) CallbackPath() string {
	return callbackPath(h.config)
}

// Login redirects to Spotify's consent page with a fresh state value.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()

	h.mu.Lock()
	h.expireStates()
	h.states[state] = h.now().Add(StateTTL)
	h.mu.Unlock()

	http.Redirect(w, r, h.config.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the flow, stores the token and sends the browser back to the page.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	token, status, err := exchange(r.Context(), h.config, r.URL.Query(), h.redeem)
	if err != nil {
		h.logger.Warn("authorization callback rejected", "status", status, "error", err)
		http.Error(w, err.Error(), status)
		return
	}

	if err := h.store.Save(r.Context(), token); err != nil {
		h.logger.Error("failed to store token", "error", err)
		http.Error(w, "failed to store token", http.StatusInternalServerError)
		return
	}

	h.logger.Info("authorized", "expiry", token.Expiry)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout clears the stored token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		h.logger.Error("failed to clear token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	h.logger.Info("logged out")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// redeem consumes a state value. Each value is accepted at most once.
func (h *AuthHandler) redeem(state string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.expireStates()
	if _, ok := h.states[state]; !ok || state == "" {
		return false
	}
	delete(h.states, state)
	return true
}

// expireStates must be called with mu held.
func (h *AuthHandler) expireStates() {
	now := h.now()
	for state, deadline := range h.states {
		if now.After(deadline) {
			delete(h.states, state)
		}
	}
}

// OAuthResult contains the result of a CLI authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	Err   error
}

// OAuthHandler handles the single callback of the CLI authorization flow, served from a
// temporary local server. Implements [Handler].
type OAuthHandler struct {
	config  *oauth2.Config
	state   string
	results chan OAuthResult
	once    sync.Once

	mu  sync.Mutex
	hit bool
}

// NewOAuthHandler creates a CLI callback handler expecting state.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:  config,
		state:   state,
		results: make(chan OAuthResult, 1),
	}
}

// Routes returns the redirect URI path.
func (h *OAuthHandler) Routes() []string {
	return []string{callbackPath(h.config)}
}

// ServeHTTP exchanges the code and publishes the outcome on [OAuthHandler.Result]. Only the
// first request is processed.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	token, status, err := exchange(r.Context(), h.config, r.URL.Query(), func(s string) bool {
		return s != "" && s == h.state
	})
	if err != nil {
		h.send(OAuthResult{Err: err})
		http.Error(w, err.Error(), status)
		return
	}

	h.send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, authorizedPage)
}

func (h *OAuthHandler) send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result receives exactly one [OAuthResult] and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

// Wait blocks until the callback arrives or ctx is done.
func (h *OAuthHandler) Wait(ctx context.Context) (*oauth2.Token, error) {
	select {
	case result := <-h.results:
		return result.Token, result.Err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: waiting for authorization callback", shared.ErrTimeout)
		}
		return nil, ctx.Err()
	}
}

const authorizedPage = `<!DOCTYPE html>
<html>
<head>
    <title>Authorized</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #121212; color: #b3b3b3; }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
    </style>
</head>
<body>
    <div>
        <h1>nowplaying is authorized</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
