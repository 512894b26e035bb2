// Package tui implements an interactive terminal browser for analysis
// results: a diagnostic list with a detail pane.
package tui

import "github.com/charmbracelet/lipgloss"

// Severity glyphs convey meaning without relying on color alone.
const (
	GlyphError   = "✗"
	GlyphWarning = "!"
	GlyphClean   = "✓"
	GlyphCursor  = "▸"
)

// Palette adapts to terminal capabilities via lipgloss.
var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
	colorWhite  = lipgloss.Color("255")
)

// --- Header styles ---

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan).
	Padding(0, 1)

var (
	countErrorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	countWarningStyle = lipgloss.NewStyle().
				Foreground(colorYellow).
				Bold(true)

	cleanStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)
)

// --- Diagnostic list styles ---

var (
	itemNormal = lipgloss.NewStyle().
			Foreground(colorWhite)

	itemSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	itemError = lipgloss.NewStyle().
			Foreground(colorRed)

	itemWarning = lipgloss.NewStyle().
			Foreground(colorYellow)

	locationStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// --- Panel styles ---

var panelBorder = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorDim)

// --- Key bar styles ---

var (
	keyStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	keyDescStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	keyBarStyle = lipgloss.NewStyle().
			Padding(0, 1)
)
