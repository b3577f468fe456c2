// Package session answers whether an authorized Spotify client is available for the current request.
//
// The gate never starts the authorization flow and never fails: a missing, unreadable or unusable
// token simply means there is no session.
package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Gate hands out [services.Player] handles bound to the cached token.
type Gate interface {
	CurrentClient(ctx context.Context) (services.Player, bool)
}

// TokenGate implements [Gate] on top of a [repositories.TokenStore].
type TokenGate struct {
	config  *oauth2.Config
	store   repositories.TokenStore
	limiter *rate.Limiter
	baseURL string
	base    *http.Client
	logger  *log.Logger
}

// TokenGateOpts configures a [TokenGate].
type TokenGateOpts struct {
	Config  *oauth2.Config
	Store   repositories.TokenStore
	Limiter *rate.Limiter // shared by every client the gate hands out
	BaseURL string        // Spotify API base URL, defaults to the public API
	Base    *http.Client  // transport used for API and token-refresh calls
	Logger  *log.Logger
}

// NewTokenGate creates a new [TokenGate].
func NewTokenGate(opts TokenGateOpts) *TokenGate {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Limiter == nil {
		opts.Limiter = services.NewLimiter(0, 0)
	}

	return &TokenGate{
		config:  opts.Config,
		store:   opts.Store,
		limiter: opts.Limiter,
		baseURL: opts.BaseURL,
		base:    opts.Base,
		logger:  shared.WithLogger(opts.Logger, "component", "session"),
	}
}

// CurrentClient returns a client for the cached token, or false when there is no usable session.
//
// An expired token still yields a client when it carries a refresh token; the refresh happens on
// the first API call and the new token is written back to the store.
func (g *TokenGate) CurrentClient(ctx context.Context) (services.Player, bool) {
	token, ok := g.token(ctx)
	if !ok {
		return nil, false
	}

	clientCtx := context.Background()
	if g.base != nil {
		clientCtx = context.WithValue(clientCtx, oauth2.HTTPClient, g.base)
	}

	httpClient := services.NewAuthorizedClient(clientCtx, g.config, token, g.persist)
	return services.NewSpotifyService(services.SpotifyOpts{
		BaseURL:    g.baseURL,
		HTTPClient: httpClient,
		Limiter:    g.limiter,
	}), true
}

// Authorized reports whether [TokenGate.CurrentClient] would return a client.
func (g *TokenGate) Authorized(ctx context.Context) bool {
	_, ok := g.token(ctx)
	return ok
}

func (g *TokenGate) token(ctx context.Context) (*oauth2.Token, bool) {
	if g.config == nil || g.store == nil {
		return nil, false
	}

	token, err := g.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, shared.ErrNoToken) {
			g.logger.Warn("token store unavailable", "error", err)
		} else {
			g.logger.Debug("no session")
		}
		return nil, false
	}

	if token.AccessToken == "" || (!token.Valid() && token.RefreshToken == "") {
		g.logger.Debug("stored token unusable", "expired", !token.Expiry.IsZero())
		return nil, false
	}
	return token, true
}

// persist writes refreshed tokens back to the store. Refreshes happen inside HTTP
// round trips, after the request context may be gone, so a fresh context is used.
func (g *TokenGate) persist(token *oauth2.Token) {
	if err := g.store.Save(context.Background(), token); err != nil {
		g.logger.Error("failed to persist refreshed token", "error", err)
		return
	}
	g.logger.Debug("refreshed token persisted", "expiry", token.Expiry)
}
