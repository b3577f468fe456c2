// Package repositories implements SQLite persistence for the OAuth token cache.
//
// The only persisted entity is the Spotify token of the single authorized account: playback state is
// always fetched fresh and never stored.
//
// Key Implementations:
//   - [TokenRepository] : token cache in the oauth_tokens table, keyed by provider
//   - [MemoryTokenStore] : process-local store for tests and --memory runs
//
// Both satisfy [TokenStore], which the session gate reads and the OAuth callback writes.
package repositories
