package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/shared"
	tu "github.com/desertthunder/nowplaying/internal/testing"
	"golang.org/x/oauth2"
)

// newTokenEndpoint answers authorization code exchanges; code "bad" is rejected.
func newTokenEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") == "bad" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": "invalid_grant", "error_description": "Invalid authorization code"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token": "access-%s", "refresh_token": "refresh", "token_type": "Bearer", "expires_in": 3600}`, r.Form.Get("code"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:5000/callback",
		Scopes:       []string{"user-read-playback-state"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/authorize",
			TokenURL: tokenURL,
		},
	}
}

func TestAuthHandler(t *testing.T) {
	tokens := newTokenEndpoint(t)
	client := &http.Client{CheckRedirect: noRedirects}

	newApp := func(t *testing.T) (*httptest.Server, *AuthHandler, repositories.TokenStore) {
		store := repositories.NewMemoryTokenStore(nil)
		auth := NewAuthHandler(testOAuthConfig(tokens.URL), store, discardLogger())
		srv := httptest.NewServer(NewApp(AppOpts{Session: &tu.FakeGate{}, Auth: auth, Page: page, Logger: discardLogger()}))
		t.Cleanup(srv.Close)
		return srv, auth, store
	}

	login := func(t *testing.T, srv *httptest.Server) string {
		t.Helper()
		resp, err := client.Get(srv.URL + "/login")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("expected redirect, got %d", resp.StatusCode)
		}

		location, err := url.Parse(resp.Header.Get("Location"))
		if err != nil {
			t.Fatal(err)
		}
		if location.Host != "accounts.example.com" || location.Query().Get("client_id") != "client" {
			t.Errorf("unexpected authorization URL %s", location)
		}
		return location.Query().Get("state")
	}

	callback := func(t *testing.T, srv *httptest.Server, query url.Values) *http.Response {
		t.Helper()
		resp, err := client.Get(srv.URL + "/callback?" + query.Encode())
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp
	}

	t.Run("login then callback stores the token", func(t *testing.T) {
		srv, _, store := newApp(t)
		state := login(t, srv)
		if state == "" {
			t.Fatal("expected a state parameter")
		}

		resp := callback(t, srv, url.Values{"state": {state}, "code": {"abc"}})
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
			t.Fatalf("expected redirect to /, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
		}

		token, err := store.Load(context.Background())
		if err != nil {
			t.Fatalf("expected stored token, got %v", err)
		}
		if token.AccessToken != "access-abc" || token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", token)
		}
	})

	t.Run("state is single use", func(t *testing.T) {
		srv, _, _ := newApp(t)
		state := login(t, srv)

		callback(t, srv, url.Values{"state": {state}, "code": {"abc"}})
		resp := callback(t, srv, url.Values{"state": {state}, "code": {"abc"}})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", resp.StatusCode)
		}
	})

	t.Run("rejected callbacks", func(t *testing.T) {
		tc := []struct {
			name   string
			query  func(state string) url.Values
			status int
		}{
			{
				name:   "unknown state",
				query:  func(string) url.Values { return url.Values{"state": {"forged"}, "code": {"abc"}} },
				status: http.StatusBadRequest,
			},
			{
				name:   "missing state",
				query:  func(string) url.Values { return url.Values{"code": {"abc"}} },
				status: http.StatusBadRequest,
			},
			{
				name: "access denied",
				query: func(state string) url.Values {
					return url.Values{"state": {state}, "error": {"access_denied"}}
				},
				status: http.StatusBadRequest,
			},
			{
				name:   "exchange failure",
				query:  func(state string) url.Values { return url.Values{"state": {state}, "code": {"bad"}} },
				status: http.StatusBadGateway,
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				srv, _, store := newApp(t)
				state := login(t, srv)

				resp := callback(t, srv, tt.query(state))
				if resp.StatusCode != tt.status {
					t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
				}
				if _, err := store.Load(context.Background()); !errors.Is(err, shared.ErrNoToken) {
					t.Errorf("expected no stored token, got %v", err)
				}
			})
		}
	})

	t.Run("expired state", func(t *testing.T) {
		srv, auth, _ := newApp(t)
		state := login(t, srv)

		auth.mu.Lock()
		auth.now = func() time.Time { return time.Now().Add(StateTTL + time.Minute) }
		auth.mu.Unlock()

		resp := callback(t, srv, url.Values{"state": {state}, "code": {"abc"}})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected expired state to be rejected, got %d", resp.StatusCode)
		}
	})

	t.Run("logout clears the token", func(t *testing.T) {
		srv, _, store := newApp(t)
		store.Save(context.Background(), &oauth2.Token{AccessToken: "a"})

		resp := post(t, srv.URL+"/logout", "")
		body := decode(t, resp)
		if resp.StatusCode != http.StatusOK || body["ok"] != true {
			t.Errorf("unexpected logout response %d %v", resp.StatusCode, body)
		}
		if _, err := store.Load(context.Background()); !errors.Is(err, shared.ErrNoToken) {
			t.Errorf("expected token to be cleared, got %v", err)
		}
	})
}

func TestOAuthHandler(t *testing.T) {
	tokens := newTokenEndpoint(t)

	serve := func(h *OAuthHandler, query url.Values) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+query.Encode(), nil))
		return rec
	}

	t.Run("routes follow the redirect URI", func(t *testing.T) {
		config := testOAuthConfig(tokens.URL)
		config.RedirectURL = "http://127.0.0.1:3000/auth/done"

		routes := NewOAuthHandler(config, "s").Routes()
		if len(routes) != 1 || routes[0] != "/auth/done" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("successful exchange", func(t *testing.T) {
		h := NewOAuthHandler(testOAuthConfig(tokens.URL), "state-1")

		rec := serve(h, url.Values{"state": {"state-1"}, "code": {"xyz"}})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		token, err := h.Wait(ctx)
		if err != nil || token.AccessToken != "access-xyz" {
			t.Errorf("unexpected result %v %v", token, err)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		h := NewOAuthHandler(testOAuthConfig(tokens.URL), "state-1")

		rec := serve(h, url.Values{"state": {"other"}, "code": {"xyz"}})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-h.Result()
		if !errors.Is(result.Err, shared.ErrAuthFailed) || result.Token != nil {
			t.Errorf("expected auth failure, got %+v", result)
		}
	})

	t.Run("only the first callback is processed", func(t *testing.T) {
		h := NewOAuthHandler(testOAuthConfig(tokens.URL), "state-1")

		serve(h, url.Values{"state": {"state-1"}, "code": {"xyz"}})
		rec := serve(h, url.Values{"state": {"state-1"}, "code": {"xyz"}})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}
	})

	t.Run("wait times out", func(t *testing.T) {
		h := NewOAuthHandler(testOAuthConfig(tokens.URL), "state-1")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if _, err := h.Wait(ctx); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected timeout, got %v", err)
		}
	})
}
