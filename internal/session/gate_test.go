package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/shared"
	"golang.org/x/oauth2"
)

type failingStore struct{ repositories.MemoryTokenStore }

func (f *failingStore) Load(ctx context.Context) (*oauth2.Token, error) {
	return nil, errors.New("disk on fire")
}

// newSpotifyStub serves /token (refresh) and /me/player, recording the bearer header it saw.
func newSpotifyStub(t *testing.T) (*httptest.Server, *string) {
	t.Helper()
	var lastAuth string

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token": "refreshed", "token_type": "Bearer", "expires_in": 3600}`)
	})
	mux.HandleFunc("/me/player", func(w http.ResponseWriter, r *http.Request) {
		lastAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &lastAuth
}

func newGate(srv *httptest.Server, store repositories.TokenStore) *TokenGate {
	config := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
	}
	return NewTokenGate(TokenGateOpts{
		Config:  config,
		Store:   store,
		BaseURL: srv.URL,
		Base:    srv.Client(),
		Logger:  shared.NewLogger(io.Discard),
	})
}

func TestTokenGate(t *testing.T) {
	ctx := context.Background()

	t.Run("no token means no session", func(t *testing.T) {
		srv, _ := newSpotifyStub(t)
		gate := newGate(srv, repositories.NewMemoryTokenStore(nil))

		client, ok := gate.CurrentClient(ctx)
		if ok || client != nil {
			t.Error("expected no client without a stored token")
		}
		if gate.Authorized(ctx) {
			t.Error("expected Authorized to be false")
		}
	})

	t.Run("store failure means no session", func(t *testing.T) {
		srv, _ := newSpotifyStub(t)
		gate := newGate(srv, &failingStore{})

		if _, ok := gate.CurrentClient(ctx); ok {
			t.Error("expected no client when the store fails")
		}
	})

	t.Run("expired token without refresh token", func(t *testing.T) {
		srv, _ := newSpotifyStub(t)
		store := repositories.NewMemoryTokenStore(&oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)})
		gate := newGate(srv, store)

		if _, ok := gate.CurrentClient(ctx); ok {
			t.Error("expected no client for an unrefreshable token")
		}
	})

	t.Run("missing config", func(t *testing.T) {
		gate := NewTokenGate(TokenGateOpts{Store: repositories.NewMemoryTokenStore(&oauth2.Token{AccessToken: "x"})})
		if _, ok := gate.CurrentClient(ctx); ok {
			t.Error("expected no client without an oauth config")
		}
	})

	t.Run("valid token", func(t *testing.T) {
		srv, lastAuth := newSpotifyStub(t)
		store := repositories.NewMemoryTokenStore(&oauth2.Token{AccessToken: "valid", Expiry: time.Now().Add(time.Hour)})
		gate := newGate(srv, store)

		client, ok := gate.CurrentClient(ctx)
		if !ok {
			t.Fatal("expected a client")
		}
		if _, err := client.CurrentPlayback(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *lastAuth != "Bearer valid" {
			t.Errorf("expected stored token to be used, got %q", *lastAuth)
		}
	})

	t.Run("expired token is refreshed and persisted", func(t *testing.T) {
		srv, lastAuth := newSpotifyStub(t)
		store := repositories.NewMemoryTokenStore(&oauth2.Token{
			AccessToken:  "old",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(-time.Hour),
		})
		gate := newGate(srv, store)

		client, ok := gate.CurrentClient(ctx)
		if !ok {
			t.Fatal("expected a client for a refreshable token")
		}
		if _, err := client.CurrentPlayback(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *lastAuth != "Bearer refreshed" {
			t.Errorf("expected refreshed token on the wire, got %q", *lastAuth)
		}

		saved, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("failed to load token: %v", err)
		}
		if saved.AccessToken != "refreshed" {
			t.Errorf("expected refreshed token to be persisted, got %s", saved.AccessToken)
		}
		if saved.RefreshToken != "refresh" {
			t.Errorf("expected refresh token to be kept, got %q", saved.RefreshToken)
		}
	})
}
