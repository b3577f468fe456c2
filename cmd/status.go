package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/nowplaying/internal/formatter"
	"github.com/desertthunder/nowplaying/internal/playback"
	"github.com/desertthunder/nowplaying/internal/server"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/desertthunder/nowplaying/internal/ui"
	"github.com/urfave/cli/v3"
)

// Status prints the current track and queue.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	player, err := r.currentClient(ctx)
	if err != nil {
		return err
	}

	result := playback.NewReader(r.logger).Read(ctx, player)

	if cmd.Bool("json") {
		switch {
		case result.Err != nil:
			return r.writeJSON(server.IdleResponse{Error: result.Err.Error()}, cmd.Bool("pretty"))
		case !result.Active:
			return r.writeJSON(server.IdleResponse{}, cmd.Bool("pretty"))
		default:
			return r.writeJSON(server.DataResponse{
				Current: server.NewCurrentView(result.Snapshot),
				Queue:   result.Queue,
			}, cmd.Bool("pretty"))
		}
	}

	if format := cmd.String("format"); format != "" {
		if path := cmd.String("output"); path != "" {
			if err := formatter.WriteExport(result, format, path); err != nil {
				return err
			}
			return r.writePlain("✓ Wrote %s\n", path)
		}

		data, err := formatter.Format(result, format)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	if err := r.writePlainln("%s", ui.RenderStatus(result)); err != nil {
		return err
	}
	if result.Err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, result.Err)
	}
	return nil
}

// Control dispatches next, previous or toggle.
func (r *Runner) Control(ctx context.Context, cmd *cli.Command) error {
	action := cmd.StringArg("action")
	if action == "" {
		return fmt.Errorf("%w: action (next, previous or toggle)", shared.ErrMissingArgument)
	}

	gate, err := r.sessionGate()
	if err != nil {
		return err
	}

	result := playback.NewDispatcher(gate, r.logger).Dispatch(ctx, action)

	if cmd.Bool("json") {
		err = r.writeJSON(result, false)
	} else {
		err = r.writePlainln("%s", ui.RenderControl(result))
	}
	if err != nil {
		return err
	}

	if !result.OK {
		return exitError(result.Status, result.Error)
	}
	return nil
}
