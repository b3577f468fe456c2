// Package ui renders playback state and control results for the terminal with lipgloss.
//
// [RenderStatus] prints the current track, a progress bar and the upcoming queue. [RenderControl]
// prints the outcome of a dispatched control. Both return plain strings so commands decide where
// they go.
package ui
