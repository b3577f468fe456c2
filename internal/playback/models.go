package playback

import "strings"

// Fallback values used when Spotify leaves a field out.
const (
	UnknownTrack  = "Unknown Track"
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

// QueueLimit caps the number of upcoming tracks returned to the client.
const QueueLimit = 5

// Snapshot is what is playing right now. A nil Track means nothing is playing.
type Snapshot struct {
	IsPlaying  bool       `json:"is_playing"`
	Track      *TrackInfo `json:"track"`
	ProgressMs int        `json:"progress_ms"`
	DurationMs int        `json:"duration_ms"`
}

// TrackInfo is always fully populated; missing upstream values use the Unknown* fallbacks or "".
type TrackInfo struct {
	Name           string `json:"name"`
	ArtistName     string `json:"artist_name"`
	AlbumName      string `json:"album_name"`
	AlbumArtURL    string `json:"album_art"`
	ArtistImageURL string `json:"artist_image"`
}

// QueueEntry is one upcoming track.
type QueueEntry struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	ArtURL string `json:"art"`
}

// Intent is a user-facing playback control.
type Intent string

const (
	Next     Intent = "next"
	Previous Intent = "previous"
	Toggle   Intent = "toggle"
)

// ParseIntent maps an action name onto an [Intent], ignoring case and surrounding space.
func ParseIntent(action string) (Intent, bool) {
	switch intent := Intent(strings.ToLower(strings.TrimSpace(action))); intent {
	case Next, Previous, Toggle:
		return intent, true
	default:
		return "", false
	}
}

// ControlResult is the outcome of a dispatched control. Status is the HTTP status to report.
type ControlResult struct {
	OK     bool   `json:"ok"`
	Action string `json:"action,omitempty"`
	Error  string `json:"error,omitempty"`
	Status int    `json:"-"`
}
