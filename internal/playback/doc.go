// Package playback turns Spotify playback documents into a small, total view model and turns
// control intents into Spotify calls.
//
// # Normalization
//
// [Normalizer] consumes the raw /me/player and /me/player/queue documents. Every field is read
// through package fields, so absent or malformed data resolves to a documented fallback instead of
// an error. Image selection is deliberately asymmetric: track and artist art take the first image
// (largest), queue thumbnails take the last (smallest).
//
// The playback document, the artist lookup and the queue are separate failure domains. [Reader]
// fails the read only when the playback document itself cannot be fetched; a failed artist lookup
// blanks the artist image and a failed queue fetch yields an empty queue.
//
// # Dispatch
//
// [Dispatcher] checks the session first, then parses the intent, then issues the minimal calls.
// Toggle reads the playback state and issues the opposite action; the read and the write run under
// a mutex so two concurrent toggles cannot both observe the same state.
package playback
