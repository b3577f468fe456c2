// package repositories provides persistence for the OAuth token cache.
package repositories

import (
	"context"

	"golang.org/x/oauth2"
)

// SpotifyProvider is the provider key the Spotify token is stored under.
const SpotifyProvider = "spotify"

// TokenStore loads and saves the cached token for the authorized account.
//
// Load returns [shared.ErrNoToken] when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, token *oauth2.Token) error
	Clear(ctx context.Context) error
}
