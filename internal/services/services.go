// package services defines the Player interface for the Spotify Web API playback endpoints
package services

import (
	"context"
)

// Player is the set of Spotify Web API calls the playback core depends on.
//
// Read calls return the decoded JSON document untouched (map[string]any trees), or nil when
// Spotify answers 204 No Content. Failures carry an [UpstreamError] when Spotify reported a status.
type Player interface {
	// CurrentPlayback returns the document from GET /me/player.
	CurrentPlayback(ctx context.Context) (any, error)

	// Queue returns the document from GET /me/player/queue.
	Queue(ctx context.Context) (any, error)

	// Artist returns the document from GET /artists/{id}.
	Artist(ctx context.Context, id string) (any, error)

	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
}
