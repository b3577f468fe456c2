package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/playback"
	"github.com/desertthunder/nowplaying/internal/shared"
)

const maxControlBody = 1 << 12

// CurrentView is the "current" object of the /data response.
type CurrentView struct {
	Playing     bool   `json:"playing"`
	Name        string `json:"name"`
	ArtistName  string `json:"artist_name"`
	AlbumName   string `json:"album_name"`
	AlbumArt    string `json:"album_art"`
	ArtistImage string `json:"artist_image"`
	Progress    int    `json:"progress"`
	Duration    int    `json:"duration"`
	IsPlaying   bool   `json:"is_playing"`
}

// NewCurrentView flattens a snapshot with a track for the browser.
func NewCurrentView(s playback.Snapshot) CurrentView {
	view := CurrentView{Playing: s.Track != nil, Progress: s.ProgressMs, Duration: s.DurationMs, IsPlaying: s.IsPlaying}
	if s.Track != nil {
		view.Name = s.Track.Name
		view.ArtistName = s.Track.ArtistName
		view.AlbumName = s.Track.AlbumName
		view.AlbumArt = s.Track.AlbumArtURL
		view.ArtistImage = s.Track.ArtistImageURL
	}
	return view
}

// DataResponse is the body of GET /data while a track is loaded.
type DataResponse struct {
	Current CurrentView           `json:"current"`
	Queue   []playback.QueueEntry `json:"queue"`
}

// IdleResponse is the body of GET /data when there is nothing to show.
type IdleResponse struct {
	Playing bool   `json:"playing"`
	Error   string `json:"error,omitempty"`
}

func idle(err error) IdleResponse {
	if err != nil {
		return IdleResponse{Error: err.Error()}
	}
	return IdleResponse{}
}

// ControlRequest is the body of POST /control.
type ControlRequest struct {
	Action string `json:"action"`
}

// API serves the page, read, control and health routes.
type API struct {
	session    Session
	reader     *playback.Reader
	dispatcher *playback.Dispatcher
	page       http.Handler
	logger     *log.Logger
}

// NewAPI creates an [API]. page is served at / for authorized visitors.
func NewAPI(session Session, page http.Handler, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{
		session:    session,
		reader:     playback.NewReader(shared.WithLogger(logger, "component", "reader")),
		dispatcher: playback.NewDispatcher(session, logger),
		page:       page,
		logger:     logger,
	}
}

// Index serves the page, or sends unauthorized visitors to /login.
func (a *API) Index(w http.ResponseWriter, r *http.Request) {
	if !a.session.Authorized(r.Context()) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	a.page.ServeHTTP(w, r)
}

// Data returns the current track and upcoming queue.
func (a *API) Data(w http.ResponseWriter, r *http.Request) {
	player, ok := a.session.CurrentClient(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, idle(nil))
		return
	}

	result := a.reader.Read(r.Context(), player)
	switch {
	case result.Err != nil:
		writeJSON(w, http.StatusOK, idle(result.Err))
	case !result.Active:
		writeJSON(w, http.StatusOK, idle(nil))
	default:
		writeJSON(w, http.StatusOK, DataResponse{Current: NewCurrentView(result.Snapshot), Queue: result.Queue})
	}
}

// Control dispatches the action named in the JSON body.
func (a *API) Control(w http.ResponseWriter, r *http.Request) {
	var req ControlRequest

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxControlBody)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		if !a.session.Authorized(r.Context()) {
			a.writeControl(w, playback.ControlResult{Error: playback.ErrMsgUnauthenticated, Status: http.StatusUnauthorized})
			return
		}
		a.logger.Debug("malformed control request", "error", err)
		a.writeControl(w, playback.ControlResult{Error: "invalid request body", Status: http.StatusBadRequest})
		return
	}

	a.writeControl(w, a.dispatcher.Dispatch(r.Context(), req.Action))
}

// Alias dispatches a fixed intent, for the single-purpose control routes.
func (a *API) Alias(intent playback.Intent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.writeControl(w, a.dispatcher.Dispatch(r.Context(), string(intent)))
	}
}

// Health reports liveness and whether a session exists.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"authenticated": a.session.Authorized(r.Context()),
	})
}

func (a *API) writeControl(w http.ResponseWriter, result playback.ControlResult) {
	status := result.Status
	if status == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
