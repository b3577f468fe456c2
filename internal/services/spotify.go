// Spotify API implementation of [Player]
//
// Endpoints per https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/nowplaying/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI = "http://127.0.0.1:5000/callback"
)

// Scopes required to read and control playback.
var Scopes = []string{
	"user-read-currently-playing",
	"user-read-playback-state",
	"user-modify-playback-state",
}

// NewOAuthConfig builds the authorization-code flow configuration from client credentials.
func NewOAuthConfig(credentials map[string]string) (*oauth2.Config, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}, nil
}

// UpstreamError is a failed Spotify API call.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("spotify API error %d: %s", e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return shared.ErrAPIRequest
}

// StatusOf returns the upstream HTTP status carried by err, if any.
func StatusOf(err error) (int, bool) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.Status > 0 {
		return upstream.Status, true
	}
	return 0, false
}

// errorBody is Spotify's regular error object.
type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
}

// SpotifyService implements [Player] against the Spotify Web API.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyService creates a client. The HTTP client is expected to add authorization
// (see [NewAuthorizedClient]); a nil limiter means calls are not paced.
func NewSpotifyService(opts SpotifyOpts) *SpotifyService {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}

	return &SpotifyService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    opts.Limiter,
	}
}

// NewLimiter builds the shared limiter from a calls-per-second rate and burst.
// A non-positive rate disables pacing.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// NewAuthorizedClient returns an HTTP client that authorizes requests with token, refreshing it
// through config when it expires. onRefresh receives every token the source hands out that differs
// from the previous one.
func NewAuthorizedClient(ctx context.Context, config *oauth2.Config, token *oauth2.Token, onRefresh func(*oauth2.Token)) *http.Client {
	source := &refreshableTokenSource{
		source:   config.TokenSource(ctx, token),
		callback: onRefresh,
		last:     token.AccessToken,
	}
	client := oauth2.NewClient(ctx, source)
	client.Timeout = 30 * time.Second
	return client
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports token changes.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (s *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.source.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := token.AccessToken != s.last
	s.last = token.AccessToken
	s.mu.Unlock()

	if changed && s.callback != nil {
		s.callback(token)
	}
	return token, nil
}

// doRequest performs one Spotify API call and decodes a JSON response body into a generic document.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any) (any, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", shared.ErrAPIRequest, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) {
			return nil, &UpstreamError{Status: http.StatusUnauthorized, Message: "token refresh failed"}
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstreamError(resp.StatusCode, data)
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return doc, nil
}

func upstreamError(status int, data []byte) *UpstreamError {
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		return &UpstreamError{Status: status, Message: body.Error.Message}
	}
	return &UpstreamError{Status: status, Message: http.StatusText(status)}
}

// CurrentUser retrieves the authorized user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (any, error) {
	return s.doRequest(ctx, http.MethodGet, "/me", nil)
}

// CurrentPlayback retrieves the playback state. A nil document means no active device.
func (s *SpotifyService) CurrentPlayback(ctx context.Context) (any, error) {
	return s.doRequest(ctx, http.MethodGet, "/me/player", nil)
}

// Queue retrieves the currently playing item and the upcoming queue.
func (s *SpotifyService) Queue(ctx context.Context) (any, error) {
	return s.doRequest(ctx, http.MethodGet, "/me/player/queue", nil)
}

// Artist retrieves an artist by ID.
func (s *SpotifyService) Artist(ctx context.Context, id string) (any, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty artist id", shared.ErrInvalidArgument)
	}
	return s.doRequest(ctx, http.MethodGet, "/artists/"+url.PathEscape(id), nil)
}

// Next skips to the next track.
func (s *SpotifyService) Next(ctx context.Context) error {
	_, err := s.doRequest(ctx, http.MethodPost, "/me/player/next", nil)
	return err
}

// Previous skips to the previous track.
func (s *SpotifyService) Previous(ctx context.Context) error {
	_, err := s.doRequest(ctx, http.MethodPost, "/me/player/previous", nil)
	return err
}

// Play resumes playback on the active device.
func (s *SpotifyService) Play(ctx context.Context) error {
	// Spotify wants a JSON body on resume, even an empty one.
	_, err := s.doRequest(ctx, http.MethodPut, "/me/player/play", struct{}{})
	return err
}

// Pause pauses playback on the active device.
func (s *SpotifyService) Pause(ctx context.Context) error {
	_, err := s.doRequest(ctx, http.MethodPut, "/me/player/pause", nil)
	return err
}
