// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/desertthunder/nowplaying/internal/services"
)

// FakePlayer is a test double for [services.Player] that counts calls.
//
// Documents are returned as configured; a non-nil error field makes the matching call fail.
type FakePlayer struct {
	mu sync.Mutex

	Playback any
	QueueDoc any
	Artists  map[string]any

	PlaybackErr error
	QueueErr    error
	ArtistErr   error
	ControlErr  error

	// OnPlayback runs inside CurrentPlayback before it returns, for interleaving tests.
	OnPlayback func()

	calls map[string]int
}

// NewFakePlayer returns a player with no session activity.
func NewFakePlayer() *FakePlayer {
	return &FakePlayer{Artists: map[string]any{}, calls: map[string]int{}}
}

func (f *FakePlayer) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

// Calls returns how often the named method was invoked.
func (f *FakePlayer) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// TotalCalls returns the number of upstream calls of any kind.
func (f *FakePlayer) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// SetPlaying flips the "is_playing" flag of the playback document, creating it if needed.
func (f *FakePlayer) SetPlaying(playing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.Playback.(map[string]any)
	if !ok {
		doc = map[string]any{}
		f.Playback = doc
	}
	doc["is_playing"] = playing
}

func (f *FakePlayer) CurrentPlayback(ctx context.Context) (any, error) {
	f.record("CurrentPlayback")
	if f.OnPlayback != nil {
		f.OnPlayback()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PlaybackErr != nil {
		return nil, f.PlaybackErr
	}
	return copyDoc(f.Playback), nil
}

func (f *FakePlayer) Queue(ctx context.Context) (any, error) {
	f.record("Queue")
	if f.QueueErr != nil {
		return nil, f.QueueErr
	}
	return f.QueueDoc, nil
}

func (f *FakePlayer) Artist(ctx context.Context, id string) (any, error) {
	f.record("Artist")
	if f.ArtistErr != nil {
		return nil, f.ArtistErr
	}
	return f.Artists[id], nil
}

func (f *FakePlayer) Next(ctx context.Context) error {
	f.record("Next")
	return f.ControlErr
}

func (f *FakePlayer) Previous(ctx context.Context) error {
	f.record("Previous")
	return f.ControlErr
}

func (f *FakePlayer) Play(ctx context.Context) error {
	f.record("Play")
	if f.ControlErr == nil {
		f.SetPlaying(true)
	}
	return f.ControlErr
}

func (f *FakePlayer) Pause(ctx context.Context) error {
	f.record("Pause")
	if f.ControlErr == nil {
		f.SetPlaying(false)
	}
	return f.ControlErr
}

// copyDoc returns a shallow copy of a map document so callers can't race with SetPlaying.
func copyDoc(doc any) any {
	m, ok := doc.(map[string]any)
	if !ok {
		return doc
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FakeGate is a test double for [session.Gate].
type FakeGate struct {
	Player services.Player // nil means unauthenticated
	Checks int
	mu     sync.Mutex
}

func (g *FakeGate) CurrentClient(ctx context.Context) (services.Player, bool) {
	g.mu.Lock()
	g.Checks++
	g.mu.Unlock()
	if g.Player == nil {
		return nil, false
	}
	return g.Player, true
}

// CheckCount reports how many times CurrentClient ran.
func (g *FakeGate) CheckCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Checks
}

func (g *FakeGate) Authorized(ctx context.Context) bool {
	return g.Player != nil
}

// MustDecode parses a JSON fixture into a generic document, panicking on malformed input.
func MustDecode(raw string) any {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic("invalid JSON fixture: " + err.Error())
	}
	return doc
}

// PlaybackFixture is a /me/player document with three album images and a primary artist.
const PlaybackFixture = `{
	"is_playing": true,
	"progress_ms": 42000,
	"currently_playing_type": "track",
	"item": {
		"name": "Weird Fishes",
		"duration_ms": 318000,
		"artists": [{"id": "radiohead", "name": "Radiohead"}, {"id": "other", "name": "Other"}],
		"album": {
			"name": "In Rainbows",
			"images": [
				{"url": "https://img/album-big", "height": 640, "width": 640},
				{"url": "https://img/album-medium", "height": 300, "width": 300},
				{"url": "https://img/album-small", "height": 64, "width": 64}
			]
		}
	}
}`

// ArtistFixture is a /artists/{id} document.
const ArtistFixture = `{
	"id": "radiohead",
	"images": [
		{"url": "https://img/artist-big"},
		{"url": "https://img/artist-small"}
	]
}`

// QueueFixture is a /me/player/queue document with seven upcoming tracks.
const QueueFixture = `{
	"currently_playing": null,
	"queue": [
		{"name": "Q1", "artists": [{"name": "A1"}], "album": {"images": [{"url": "big1"}, {"url": "medium1"}, {"url": "small1"}]}},
		{"name": "Q2", "artists": [{"name": "A2"}], "album": {"images": [{"url": "big2"}, {"url": "small2"}]}},
		{"name": "Q3", "artists": [], "album": {"images": []}},
		{"name": "Q4", "artists": [{"name": "A4"}], "album": {}},
		{"artists": [{"name": "A5"}], "album": {"images": [{"url": "only5"}]}},
		{"name": "Q6", "artists": [{"name": "A6"}], "album": {"images": [{"url": "small6"}]}},
		{"name": "Q7", "artists": [{"name": "A7"}], "album": {"images": [{"url": "small7"}]}}
	]
}`

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails once maxWrites writes have gone through
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, target: target}
}
