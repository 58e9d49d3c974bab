// Package theme derives terminal presentation state from document
// settings. The derivation runs after every persisted settings change so
// CLI output picks the new look up immediately.
package theme

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/classdeck/classdeck/internal/document"
)

// Theme is the resolved presentation state.
type Theme struct {
	Dark   bool   // effective mode after resolving "system"
	Accent string // hex accent color

	Title lipgloss.Style
	Label lipgloss.Style
	Muted lipgloss.Style
	Error lipgloss.Style
}

// Derive resolves settings into concrete styles. A "system" theme follows
// the terminal background; unknown values fall back to light.
func Derive(s document.Settings) Theme {
	dark := false
	switch s.Theme {
	case "dark":
		dark = true
	case "light":
		dark = false
	default:
		dark = termenv.HasDarkBackground()
	}

	accent := s.AccentColor
	if accent == "" {
		accent = document.DefaultSettings().AccentColor
	}

	muted := "240"
	if dark {
		muted = "245"
	}

	return Theme{
		Dark:   dark,
		Accent: accent,
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(accent)),
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(accent)),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(muted)),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
	}
}
