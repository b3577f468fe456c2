package playback

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/fields"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/session"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// Error messages reported in [ControlResult.Error].
const (
	ErrMsgUnauthenticated = "unauthenticated"
	ErrMsgMissingAction   = "missing action"
	ErrMsgUnknownAction   = "unknown action"
)

// Dispatcher executes control intents against the current session's client.
type Dispatcher struct {
	gate   session.Gate
	logger *log.Logger

	// toggle serializes the read-then-act sequence of [Toggle].
	toggle sync.Mutex
}

// NewDispatcher creates a [Dispatcher] that obtains clients from gate.
func NewDispatcher(gate session.Gate, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Dispatcher{gate: gate, logger: shared.WithLogger(logger, "component", "dispatcher")}
}

// Dispatch runs the named action. No upstream call is made unless a session exists and the
// action is known.
func (d *Dispatcher) Dispatch(ctx context.Context, action string) ControlResult {
	player, ok := d.gate.CurrentClient(ctx)
	if !ok {
		return ControlResult{Error: ErrMsgUnauthenticated, Status: http.StatusUnauthorized}
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return ControlResult{Error: ErrMsgMissingAction, Status: http.StatusBadRequest}
	}

	intent, ok := ParseIntent(action)
	if !ok {
		return ControlResult{Error: ErrMsgUnknownAction + ": " + action, Status: http.StatusBadRequest}
	}

	var (
		performed string
		err       error
	)
	switch intent {
	case Next:
		performed, err = "next", player.Next(ctx)
	case Previous:
		performed, err = "previous", player.Previous(ctx)
	case Toggle:
		performed, err = d.toggleWith(ctx, player)
	}

	if err != nil {
		status, ok := services.StatusOf(err)
		if !ok {
			status = http.StatusBadGateway
		}
		d.logger.Error("control failed", "intent", intent, "status", status, "error", err)
		return ControlResult{Error: err.Error(), Status: status}
	}

	d.logger.Info("control dispatched", "intent", intent, "action", performed)
	return ControlResult{OK: true, Action: performed, Status: http.StatusOK}
}

// toggleWith pauses when Spotify reports playback in progress and plays otherwise.
func (d *Dispatcher) toggleWith(ctx context.Context, player services.Player) (string, error) {
	d.toggle.Lock()
	defer d.toggle.Unlock()

	doc, err := player.CurrentPlayback(ctx)
	if err != nil {
		return "", err
	}

	if fields.Extract(doc, false, "is_playing") {
		return "pause", player.Pause(ctx)
	}
	return "play", player.Play(ctx)
}
