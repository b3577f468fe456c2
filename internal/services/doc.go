// Package services implements the Spotify Web API client used by the playback core.
//
// # Player Interface
//
// [Player] is the collaborator contract consumed by the normalizer and the control dispatcher:
// three reads (current playback, queue, artist) and four writes (next, previous, play, pause).
// Reads hand back raw decoded JSON so that all missing-field tolerance lives in one place
// (package fields) rather than in struct tags.
//
// # Spotify Implementation
//
// [SpotifyService] talks to https://api.spotify.com/v1 over an [oauth2] client. The token source
// refreshes expired access tokens with the refresh token and reports every new token through a
// callback, which the session layer uses to persist it.
//
// Every call waits on a shared [rate.Limiter] so bursts of browser polling stay inside Spotify's
// rate limits. Calls are never retried.
//
// # Error Handling
//
// Non-2xx responses become [UpstreamError] values carrying Spotify's status and message, parsed
// from the {"error": {"status", "message"}} body when present. [UpstreamError] unwraps to
// [shared.ErrAPIRequest]. Transport failures are wrapped with [shared.ErrAPIRequest] and carry
// no status.
package services
