// Package theme centralizes the styles used by stockwatch terminal output.
package theme

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette (Kanagawa-ish, reads fine on dark and light terminals)
const (
	colorGreen  = "#98BB6C"
	colorYellow = "#FF9E3B"
	colorRed    = "#FF5D62"
	colorBlue   = "#7E9CD8"
	colorAqua   = "#7AA89F"
	colorGray   = "#727169"
)

// Theme holds the lipgloss styles for terminal rendering.
type Theme struct {
	Title   lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Border  lipgloss.Style
}

// DefaultTheme is the theme used across the CLI and TUI.
var DefaultTheme = newTheme()

func newTheme() Theme {
	return Theme{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorBlue)),
		Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorAqua)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorGray)).
			Padding(0, 1),
	}
}

// HasColor reports whether the terminal supports color output.
func HasColor() bool {
	return termenv.DefaultOutput().ColorProfile() != termenv.Ascii
}
