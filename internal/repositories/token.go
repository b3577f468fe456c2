package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/nowplaying/internal/shared"
	"golang.org/x/oauth2"
)

// TokenRepository implements [TokenStore] on the oauth_tokens table.
type TokenRepository struct {
	db       *sql.DB
	provider string
}

// NewTokenRepository creates a new [TokenRepository] for the Spotify provider with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db, provider: SpotifyProvider}
}

// Load retrieves the stored token
func (r *TokenRepository) Load(ctx context.Context) (*oauth2.Token, error) {
	query := `
		SELECT access_token, refresh_token, token_type, expiry
		FROM oauth_tokens
		WHERE provider = ?
	`

	var (
		token  oauth2.Token
		expiry sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, r.provider).Scan(&token.AccessToken, &token.RefreshToken, &token.TokenType, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}

	if expiry.Valid {
		token.Expiry = expiry.Time
	}

	return &token, nil
}

// Save inserts or replaces the stored token.
//
// A refreshed token without a refresh token keeps the one already stored.
func (r *TokenRepository) Save(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidInput)
	}

	var expiry sql.NullTime
	if !token.Expiry.IsZero() {
		expiry = sql.NullTime{Time: token.Expiry.UTC(), Valid: true}
	}

	scope, _ := token.Extra("scope").(string)

	query := `
		INSERT INTO oauth_tokens (provider, access_token, refresh_token, token_type, expiry, scope, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN oauth_tokens.refresh_token ELSE excluded.refresh_token END,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			scope = CASE WHEN excluded.scope = '' THEN oauth_tokens.scope ELSE excluded.scope END,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, r.provider, token.AccessToken, token.RefreshToken, token.Type(), expiry, scope, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

// Clear removes the stored token. Clearing an empty store is not an error.
func (r *TokenRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM oauth_tokens WHERE provider = ?", r.provider); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// MemoryTokenStore implements [TokenStore] in process memory.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token *oauth2.Token
}

// NewMemoryTokenStore creates an empty store, optionally seeded with a token.
func NewMemoryTokenStore(seed *oauth2.Token) *MemoryTokenStore {
	return &MemoryTokenStore{token: seed}
}

func (m *MemoryTokenStore) Load(ctx context.Context) (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == nil {
		return nil, shared.ErrNoToken
	}
	copied := *m.token
	return &copied, nil
}

func (m *MemoryTokenStore) Save(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *token
	if copied.RefreshToken == "" && m.token != nil {
		copied.RefreshToken = m.token.RefreshToken
	}
	m.token = &copied
	return nil
}

func (m *MemoryTokenStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.token = nil
	m.mu.Unlock()
	return nil
}
