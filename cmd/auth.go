package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/nowplaying/internal/server"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// Auth runs the authorization code flow with a temporary callback server and stores the token.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	config, err := r.oauthConfig()
	if err != nil {
		return err
	}

	store, err := r.tokenStore()
	if err != nil {
		return err
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = authTimeout
	}

	token, err := r.doOAuth(ctx, config, timeout, !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	if err := store.Save(ctx, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("You can now use: nowplaying serve, nowplaying status\n")
	return nil
}

// doOAuth serves the redirect URI locally until one callback arrives, ctx ends or timeout passes.
func (r *Runner) doOAuth(ctx context.Context, config *oauth2.Config, timeout time.Duration, browser bool) (*oauth2.Token, error) {
	redirect, err := url.Parse(config.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, config.RedirectURL)
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(config, state)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(shared.WithLogger(r.logger, "component", "oauth")))
	router.Handler(handler)

	httpServer := &http.Server{Addr: redirect.Host, Handler: router}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting OAuth callback server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := config.AuthCodeURL(state)
	if browser {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := r.openBrowser(ctx, authURL); err != nil {
			r.logger.Warn("failed to open browser automatically", "error", err)
			browser = false
		}
	}
	if !browser {
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		token *oauth2.Token
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		token, err := handler.Wait(waitCtx)
		done <- outcome{token, err}
	}()

	select {
	case err := <-serverErrors:
		return nil, fmt.Errorf("%w: callback server: %w", shared.ErrServiceUnavailable, err)
	case result := <-done:
		if result.err != nil {
			return nil, fmt.Errorf("authorization failed: %w", result.err)
		}
		if result.token == nil {
			return nil, errNoToken
		}
		return result.token, nil
	}
}

// Logout removes the stored token.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	store, err := r.tokenStore()
	if err != nil {
		return err
	}

	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}

	r.logger.Info("token cleared")
	return r.writePlainln("✓ Logged out")
}
