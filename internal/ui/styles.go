// Package ui renders terminal output for the dd CLI.
package ui

import (
	"fmt"

	"github.com/alfredjeanlab/dealdesk/internal/model"
)

// ANSI 256 colour codes.
const (
	colorAccent = 74  // blue
	colorMuted  = 245 // grey
	colorGreen  = 71
	colorAmber  = 179
	colorRed    = 167
	colorSlate  = 103
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent colour.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in grey.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderSuccess returns s in green.
func RenderSuccess(s string) string { return paint(colorGreen, s) }

// RenderError returns s in red.
func RenderError(s string) string { return paint(colorRed, s) }

// RenderWarning returns s in amber.
func RenderWarning(s string) string { return paint(colorAmber, s) }

var statusColors = map[model.Status]int{
	model.StatusActive:  colorGreen,
	model.StatusClosed:  colorSlate,
	model.StatusStandBy: colorAmber,
	model.StatusFailed:  colorRed,
}

// RenderStatus returns the label of s in its status colour.
func RenderStatus(s model.Status) string {
	code, ok := statusColors[s]
	if !ok {
		return s.Label()
	}
	return paint(code, s.Label())
}

// RenderBadge renders a count in brackets, red when non-zero.
func RenderBadge(n int) string {
	text := fmt.Sprintf("[%d]", n)
	if n == 0 {
		return RenderMuted(text)
	}
	return RenderError(text)
}

// ForceNoColor disables colour output globally.
func ForceNoColor() {
	noColor = true
}
