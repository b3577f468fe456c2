package playback

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/shared"
	tu "github.com/desertthunder/nowplaying/internal/testing"
)

func newFixturePlayer() *tu.FakePlayer {
	player := tu.NewFakePlayer()
	player.Playback = tu.MustDecode(tu.PlaybackFixture)
	player.QueueDoc = tu.MustDecode(tu.QueueFixture)
	player.Artists["radiohead"] = tu.MustDecode(tu.ArtistFixture)
	return player
}

func TestNormalize(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	t.Run("nothing playing", func(t *testing.T) {
		tc := []struct {
			name     string
			playback any
		}{
			{name: "nil document", playback: nil},
			{name: "null item", playback: tu.MustDecode(`{"is_playing": false, "item": null}`)},
			{name: "missing item", playback: tu.MustDecode(`{"is_playing": true, "progress_ms": 10}`)},
			{name: "item of wrong shape", playback: tu.MustDecode(`{"item": "track"}`)},
			{name: "document of wrong shape", playback: tu.MustDecode(`[1, 2, 3]`)},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				player := newFixturePlayer()
				snapshot, queue := NewNormalizer(player, logger).Normalize(ctx, tt.playback, tu.MustDecode(tu.QueueFixture))

				if snapshot != (Snapshot{}) {
					t.Errorf("expected zero snapshot, got %+v", snapshot)
				}
				if queue == nil || len(queue) != 0 {
					t.Errorf("expected empty non-nil queue, got %#v", queue)
				}
				if player.TotalCalls() != 0 {
					t.Errorf("expected no upstream calls, got %d", player.TotalCalls())
				}
			})
		}
	})

	t.Run("full document", func(t *testing.T) {
		player := newFixturePlayer()
		snapshot, queue := NewNormalizer(player, logger).Normalize(ctx, player.Playback, player.QueueDoc)

		if !snapshot.IsPlaying {
			t.Error("expected is_playing true")
		}
		if snapshot.ProgressMs != 42000 || snapshot.DurationMs != 318000 {
			t.Errorf("unexpected progress/duration %d/%d", snapshot.ProgressMs, snapshot.DurationMs)
		}

		want := TrackInfo{
			Name:           "Weird Fishes",
			ArtistName:     "Radiohead",
			AlbumName:      "In Rainbows",
			AlbumArtURL:    "https://img/album-big",
			ArtistImageURL: "https://img/artist-big",
		}
		if snapshot.Track == nil || *snapshot.Track != want {
			t.Errorf("track = %+v, want %+v", snapshot.Track, want)
		}

		if len(queue) != QueueLimit {
			t.Fatalf("expected %d queue entries, got %d", QueueLimit, len(queue))
		}
		if player.Calls("Artist") != 1 {
			t.Errorf("expected one artist lookup, got %d", player.Calls("Artist"))
		}
	})

	t.Run("missing fields fall back", func(t *testing.T) {
		player := tu.NewFakePlayer()
		playback := tu.MustDecode(`{"item": {"name": "  ", "artists": [], "album": {"images": null}, "duration_ms": -5}, "progress_ms": "soon"}`)

		snapshot, _ := NewNormalizer(player, logger).Normalize(ctx, playback, nil)

		want := TrackInfo{Name: UnknownTrack, ArtistName: UnknownArtist, AlbumName: UnknownAlbum}
		if snapshot.Track == nil || *snapshot.Track != want {
			t.Errorf("track = %+v, want %+v", snapshot.Track, want)
		}
		if snapshot.IsPlaying {
			t.Error("missing is_playing should default to false")
		}
		if snapshot.ProgressMs != 0 || snapshot.DurationMs != 0 {
			t.Errorf("expected zero progress/duration, got %d/%d", snapshot.ProgressMs, snapshot.DurationMs)
		}
		if player.Calls("Artist") != 0 {
			t.Error("artist lookup must be skipped when there is no artist id")
		}
	})

	t.Run("podcast episode", func(t *testing.T) {
		playback := tu.MustDecode(`{
			"is_playing": true,
			"currently_playing_type": "episode",
			"item": {
				"name": "Episode 12",
				"duration_ms": 3600000,
				"images": [{"url": "ep-big"}, {"url": "ep-small"}],
				"show": {"name": "The Show", "publisher": "Studio"}
			}
		}`)

		snapshot, _ := NewNormalizer(nil, logger).Normalize(ctx, playback, nil)

		want := TrackInfo{Name: "Episode 12", ArtistName: "Studio", AlbumName: "The Show", AlbumArtURL: "ep-big"}
		if *snapshot.Track != want {
			t.Errorf("track = %+v, want %+v", *snapshot.Track, want)
		}
	})

	t.Run("artist lookup failure only blanks the artist image", func(t *testing.T) {
		player := newFixturePlayer()
		player.ArtistErr = &services.UpstreamError{Status: 500, Message: "boom"}

		snapshot, queue := NewNormalizer(player, logger).Normalize(ctx, player.Playback, player.QueueDoc)

		if snapshot.Track.ArtistImageURL != "" {
			t.Errorf("expected empty artist image, got %q", snapshot.Track.ArtistImageURL)
		}
		if snapshot.Track.Name != "Weird Fishes" || snapshot.Track.AlbumArtURL != "https://img/album-big" {
			t.Errorf("other fields must stay populated, got %+v", snapshot.Track)
		}
		if len(queue) != QueueLimit {
			t.Errorf("queue must be unaffected, got %d entries", len(queue))
		}
	})

	t.Run("artist without images", func(t *testing.T) {
		player := newFixturePlayer()
		player.Artists["radiohead"] = tu.MustDecode(`{"id": "radiohead", "images": []}`)

		snapshot, _ := NewNormalizer(player, logger).Normalize(ctx, player.Playback, nil)
		if snapshot.Track.ArtistImageURL != "" {
			t.Errorf("expected empty artist image, got %q", snapshot.Track.ArtistImageURL)
		}
	})
}

func TestNormalizeQueue(t *testing.T) {
	t.Run("caps at five and keeps order", func(t *testing.T) {
		queue := NormalizeQueue(tu.MustDecode(tu.QueueFixture))

		want := []QueueEntry{
			{Name: "Q1", Artist: "A1", ArtURL: "small1"},
			{Name: "Q2", Artist: "A2", ArtURL: "small2"},
			{Name: "Q3", Artist: UnknownArtist, ArtURL: ""},
			{Name: "Q4", Artist: "A4", ArtURL: ""},
			{Name: UnknownTrack, Artist: "A5", ArtURL: "only5"},
		}
		if len(queue) != len(want) {
			t.Fatalf("expected %d entries, got %d", len(want), len(queue))
		}
		for i := range want {
			if queue[i] != want[i] {
				t.Errorf("entry %d = %+v, want %+v", i, queue[i], want[i])
			}
		}
	})

	t.Run("short queue", func(t *testing.T) {
		queue := NormalizeQueue(tu.MustDecode(`{"queue": [{"name": "only"}]}`))
		if len(queue) != 1 || queue[0].Name != "only" {
			t.Errorf("unexpected queue %+v", queue)
		}
	})

	t.Run("absent or malformed queue", func(t *testing.T) {
		for _, raw := range []any{nil, tu.MustDecode(`{}`), tu.MustDecode(`{"queue": {"0": {}}}`), tu.MustDecode(`"queue"`)} {
			if queue := NormalizeQueue(raw); queue == nil || len(queue) != 0 {
				t.Errorf("expected empty queue for %#v, got %#v", raw, queue)
			}
		}
	})
}

func TestThumbnailSelection(t *testing.T) {
	images := tu.MustDecode(`[{"url": "big"}, {"url": "medium"}, {"url": "small"}]`)

	if got := firstImageURL(images); got != "big" {
		t.Errorf("track art = %q, want big", got)
	}
	if got := lastImageURL(images); got != "small" {
		t.Errorf("queue art = %q, want small", got)
	}
}

func TestReader(t *testing.T) {
	ctx := context.Background()
	reader := NewReader(shared.NewLogger(io.Discard))

	t.Run("active playback", func(t *testing.T) {
		player := newFixturePlayer()
		result := reader.Read(ctx, player)

		if result.Err != nil || !result.Active {
			t.Fatalf("expected active result, got %+v", result)
		}
		if result.Snapshot.Track.ArtistImageURL != "https://img/artist-big" {
			t.Errorf("unexpected artist image %q", result.Snapshot.Track.ArtistImageURL)
		}
		if len(result.Queue) != QueueLimit {
			t.Errorf("expected %d queue entries, got %d", QueueLimit, len(result.Queue))
		}
	})

	t.Run("nothing playing skips the other calls", func(t *testing.T) {
		player := tu.NewFakePlayer()
		result := reader.Read(ctx, player)

		if result.Err != nil || result.Active {
			t.Errorf("expected inactive result, got %+v", result)
		}
		if player.Calls("Queue") != 0 || player.Calls("Artist") != 0 {
			t.Error("queue and artist must not be fetched when nothing is playing")
		}
	})

	t.Run("playback failure fails the read", func(t *testing.T) {
		player := newFixturePlayer()
		player.PlaybackErr = &services.UpstreamError{Status: 401, Message: "The access token expired"}

		result := reader.Read(ctx, player)
		var upstream *services.UpstreamError
		if !errors.As(result.Err, &upstream) || upstream.Status != 401 {
			t.Errorf("expected upstream error, got %v", result.Err)
		}
		if result.Active {
			t.Error("failed read must not be active")
		}
	})

	t.Run("queue failure degrades to empty queue", func(t *testing.T) {
		player := newFixturePlayer()
		player.QueueErr = errors.New("connection reset")

		result := reader.Read(ctx, player)
		if result.Err != nil || !result.Active {
			t.Fatalf("expected active result, got %+v", result)
		}
		if len(result.Queue) != 0 {
			t.Errorf("expected empty queue, got %d entries", len(result.Queue))
		}
		if result.Snapshot.Track.Name != "Weird Fishes" {
			t.Errorf("snapshot must be unaffected, got %+v", result.Snapshot.Track)
		}
	})
}
