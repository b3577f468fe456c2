package playback

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/fields"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// ArtistFetcher looks up an artist document by id.
type ArtistFetcher interface {
	Artist(ctx context.Context, id string) (any, error)
}

// Normalizer builds [Snapshot] and [QueueEntry] values from raw Spotify documents.
type Normalizer struct {
	artists ArtistFetcher
	logger  *log.Logger
}

// NewNormalizer creates a [Normalizer]. A nil artists fetcher leaves artist images empty.
func NewNormalizer(artists ArtistFetcher, logger *log.Logger) *Normalizer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Normalizer{artists: artists, logger: logger}
}

// Normalize converts the /me/player and /me/player/queue documents. It never fails: when the
// playback document has no current item the zero [Snapshot] and an empty queue are returned.
func (n *Normalizer) Normalize(ctx context.Context, rawPlayback, rawQueue any) (Snapshot, []QueueEntry) {
	item, ok := fields.Extract[any](rawPlayback, nil, "item").(map[string]any)
	if !ok {
		return Snapshot{}, []QueueEntry{}
	}

	track := TrackInfo{
		Name:           fields.Text(item, UnknownTrack, "name"),
		ArtistName:     creator(item),
		AlbumName:      fields.Text(item, fields.Text(item, UnknownAlbum, "show", "name"), "album", "name"),
		AlbumArtURL:    firstImageURL(images(item)),
		ArtistImageURL: n.artistImage(ctx, fields.Text(item, "", "artists", 0, "id")),
	}

	snapshot := Snapshot{
		IsPlaying:  fields.Extract(rawPlayback, false, "is_playing"),
		Track:      &track,
		ProgressMs: nonNegative(fields.Extract(rawPlayback, 0, "progress_ms")),
		DurationMs: nonNegative(fields.Extract(item, 0, "duration_ms")),
	}

	return snapshot, NormalizeQueue(rawQueue)
}

// NormalizeQueue returns up to [QueueLimit] upcoming tracks in queue order, each with its
// smallest album image as thumbnail.
func NormalizeQueue(rawQueue any) []QueueEntry {
	upcoming := fields.Take(fields.Extract[any](rawQueue, nil, "queue"), QueueLimit)

	entries := make([]QueueEntry, 0, len(upcoming))
	for _, t := range upcoming {
		entries = append(entries, QueueEntry{
			Name:   fields.Text(t, UnknownTrack, "name"),
			Artist: creator(t),
			ArtURL: lastImageURL(images(t)),
		})
	}
	return entries
}

// artistImage fetches the primary artist and returns its largest image. A blank id or a failed
// lookup both yield "".
func (n *Normalizer) artistImage(ctx context.Context, id string) string {
	if id == "" || n.artists == nil {
		return ""
	}

	doc, err := n.artists.Artist(ctx, id)
	if err != nil {
		n.logger.Warn("artist lookup failed, omitting artist image", "artist_id", id, "error", err)
		return ""
	}
	return firstImageURL(fields.Extract[any](doc, nil, "images"))
}

// creator is the primary artist of a track, or the publisher of a podcast episode.
func creator(item any) string {
	return fields.Text(item, fields.Text(item, UnknownArtist, "show", "publisher"), "artists", 0, "name")
}

// images is the album artwork of a track, or the episode artwork of a podcast episode.
func images(item any) any {
	if album := fields.Extract[any](item, nil, "album", "images"); len(fields.Take(album, 1)) > 0 {
		return album
	}
	return fields.Extract[any](item, nil, "images")
}

// Spotify lists images largest first.
func firstImageURL(images any) string {
	return fields.Extract(fields.First[any](images, nil), "", "url")
}

func lastImageURL(images any) string {
	return fields.Extract(fields.Last[any](images, nil), "", "url")
}

func nonNegative(v int) int {
	return max(v, 0)
}

// ReadResult is the outcome of reading the current playback for a client.
type ReadResult struct {
	Active   bool // an item is loaded on the player
	Snapshot Snapshot
	Queue    []QueueEntry
	Err      error // the playback document itself could not be fetched
}

// Reader fetches and normalizes the playback state for a single request.
type Reader struct {
	logger *log.Logger
}

// NewReader creates a [Reader].
func NewReader(logger *log.Logger) *Reader {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Reader{logger: logger}
}

// Read fetches the playback document, then the queue and the artist, and normalizes them.
//
// Only a failure of the playback fetch fails the result; queue and artist failures degrade the
// snapshot instead.
func (r *Reader) Read(ctx context.Context, player services.Player) ReadResult {
	rawPlayback, err := player.CurrentPlayback(ctx)
	if err != nil {
		r.logger.Error("failed to fetch playback state", "error", err)
		return ReadResult{Err: err}
	}

	if _, ok := fields.Extract[any](rawPlayback, nil, "item").(map[string]any); !ok {
		return ReadResult{Queue: []QueueEntry{}}
	}

	rawQueue, err := player.Queue(ctx)
	if err != nil {
		r.logger.Warn("queue fetch failed, returning empty queue", "error", err)
		rawQueue = nil
	}

	snapshot, queue := NewNormalizer(player, r.logger).Normalize(ctx, rawPlayback, rawQueue)
	return ReadResult{Active: true, Snapshot: snapshot, Queue: queue}
}
