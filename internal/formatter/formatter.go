// package formatter renders a playback read as plain text, Markdown or CSV for scripts and notes
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/nowplaying/internal/playback"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// Formats accepted by [Format].
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// Format renders result in the named format.
func Format(result playback.ReadResult, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatText, "txt":
		return ExportToText(result)
	case FormatMarkdown, "md":
		return ExportToMarkdown(result)
	case FormatCSV:
		return ExportToCSV(result)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (text, markdown, csv)", shared.ErrInvalidArgument, format)
	}
}

// ExportToCSV writes the current track and the queue with columns: Position, Name, Artist, Album, Art.
// Position 0 is the current track.
func ExportToCSV(result playback.ReadResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "Name", "Artist", "Album", "Art"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	if track := current(result); track != nil {
		record := []string{"0", track.Name, track.ArtistName, track.AlbumName, track.AlbumArtURL}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	for i, entry := range result.Queue {
		record := []string{strconv.Itoa(i + 1), entry.Name, entry.Artist, "", entry.ArtURL}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown writes the current track with its cover and the queue as a numbered list.
func ExportToMarkdown(result playback.ReadResult) ([]byte, error) {
	var buf bytes.Buffer

	track := current(result)
	if track == nil {
		buf.WriteString("# Nothing playing\n")
		if result.Err != nil {
			buf.WriteString(fmt.Sprintf("\n**Error**: %v\n", result.Err))
		}
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("# %s\n\n", track.Name))
	if track.AlbumArtURL != "" {
		buf.WriteString(fmt.Sprintf("![%s](%s)\n\n", track.AlbumName, track.AlbumArtURL))
	}
	buf.WriteString(fmt.Sprintf("**Artist**: %s\n", track.ArtistName))
	buf.WriteString(fmt.Sprintf("**Album**: %s\n", track.AlbumName))
	buf.WriteString(fmt.Sprintf("**Position**: %s / %s (%s)\n\n",
		clock(result.Snapshot.ProgressMs), clock(result.Snapshot.DurationMs), state(result.Snapshot)))

	if len(result.Queue) > 0 {
		buf.WriteString("## Up next\n\n")
		for i, entry := range result.Queue {
			buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, entry.Artist, entry.Name))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText writes a one-line summary of the current track followed by the queue.
func ExportToText(result playback.ReadResult) ([]byte, error) {
	var buf bytes.Buffer

	track := current(result)
	if track == nil {
		buf.WriteString("Nothing playing\n")
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("%s - %s [%s/%s] %s\n", track.ArtistName, track.Name,
		clock(result.Snapshot.ProgressMs), clock(result.Snapshot.DurationMs), state(result.Snapshot)))

	for i, entry := range result.Queue {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, entry.Artist, entry.Name))
	}

	return buf.Bytes(), nil
}

// WriteExport renders result and writes it to path.
func WriteExport(result playback.ReadResult, format, path string) error {
	data, err := Format(result, format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return nil
}

func current(result playback.ReadResult) *playback.TrackInfo {
	if result.Err != nil || !result.Active {
		return nil
	}
	return result.Snapshot.Track
}

func state(s playback.Snapshot) string {
	if s.IsPlaying {
		return "playing"
	}
	return "paused"
}

func clock(ms int) string {
	s := max(ms, 0) / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
