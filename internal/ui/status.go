package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/nowplaying/internal/playback"
)

const barWidth = 30

// RenderStatus renders a playback read for the status command.
func RenderStatus(result playback.ReadResult) string {
	if result.Err != nil {
		return styles.err.Render(fmt.Sprintf("Spotify is unavailable: %v", result.Err))
	}
	if !result.Active || result.Snapshot.Track == nil {
		return styles.muted.Render("Nothing is playing.")
	}

	snapshot := result.Snapshot
	track := snapshot.Track

	state := styles.ok.Render("▶ Playing")
	if !snapshot.IsPlaying {
		state = styles.warn.Render("⏸ Paused")
	}

	lines := []string{
		state,
		styles.title.Render(track.Name),
		fmt.Sprintf("%s %s %s", track.ArtistName, styles.muted.Render("on"), track.AlbumName),
		fmt.Sprintf("%s %s / %s", ProgressBar(snapshot.ProgressMs, snapshot.DurationMs, barWidth),
			Clock(snapshot.ProgressMs), Clock(snapshot.DurationMs)),
	}

	if len(result.Queue) > 0 {
		lines = append(lines, "", styles.title.Render("Up next"))
		for i, entry := range result.Queue {
			lines = append(lines, fmt.Sprintf("  %d. %s %s", i+1, entry.Name, styles.muted.Render("- "+entry.Artist)))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderControl renders the outcome of a control command.
func RenderControl(result playback.ControlResult) string {
	if !result.OK {
		return styles.err.Render(fmt.Sprintf("✗ %s", result.Error))
	}

	switch result.Action {
	case "next":
		return styles.ok.Render("⏭ Skipped to next track")
	case "previous":
		return styles.ok.Render("⏮ Back to previous track")
	case "pause":
		return styles.ok.Render("⏸ Paused")
	case "play":
		return styles.ok.Render("▶ Resumed")
	default:
		return styles.ok.Render("✓ " + result.Action)
	}
}

// ProgressBar draws a fixed-width bar of progress over duration.
func ProgressBar(progress, duration, width int) string {
	filled := 0
	if duration > 0 {
		filled = min(width, max(0, progress*width/duration))
	}
	return styles.ok.Render(strings.Repeat("━", filled)) + styles.muted.Render(strings.Repeat("─", width-filled))
}

// Clock formats milliseconds as m:ss.
func Clock(ms int) string {
	s := max(ms, 0) / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
