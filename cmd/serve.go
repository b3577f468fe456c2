package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/nowplaying/internal/server"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/desertthunder/nowplaying/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the web service until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	config, err := r.oauthConfig()
	if err != nil {
		return err
	}

	store, err := r.tokenStore()
	if err != nil {
		return err
	}

	gate, err := r.sessionGate()
	if err != nil {
		return err
	}

	app := server.NewApp(server.AppOpts{
		Session: gate,
		Auth:    server.NewAuthHandler(config, store, r.logger),
		Page:    web.Handler(),
		Logger:  r.logger,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.writePlain("→ Serving on http://%s\n", cfg.Addr())
	return server.Serve(ctx, cfg, app, shared.WithLogger(r.logger, "component", "server"))
}
