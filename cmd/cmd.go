// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "nowplaying",
		Usage:   "Watch and control Spotify playback from a browser or the terminal",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("NOWPLAYING_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("NOWPLAYING_LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:  "memory",
				Usage: "Keep the OAuth token in memory instead of the database",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

// serveCommand runs the web service.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the now-playing page and its JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

// authCommand runs the authorization flow from the terminal.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize with Spotify using OAuth2 and store the token",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: authTimeout,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: r.Auth,
	}
}

// statusCommand prints what is playing.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "status",
		Aliases: []string{"now"},
		Usage:   "Show the current track and upcoming queue",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON in the shape of GET /data",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Plain output format instead of the styled view (text, markdown, csv)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the --format output to a file",
			},
		},
		Action: r.Status,
	}
}

// controlCommand dispatches a playback control.
func controlCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "control",
		Usage:     "Send a playback control: next, previous or toggle",
		ArgsUsage: "<next|previous|toggle>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "action"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the control result as JSON",
			},
		},
		Action: r.Control,
	}
}

// setupCommand writes the config file and prepares the token database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing, initialize the database and run migrations",
		Action: r.Setup,
	}
}

// logoutCommand forgets the stored token.
func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Remove the stored Spotify token",
		Action: r.Logout,
	}
}
