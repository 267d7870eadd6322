package display

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Theme selects the color palette.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme maps a config value to a Theme.
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case "", ThemeDark:
		return ThemeDark, nil
	case ThemeLight:
		return ThemeLight, nil
	default:
		return ThemeDark, fmt.Errorf("unknown theme %q", s)
	}
}

type palette struct {
	frame    lipgloss.Style
	title    lipgloss.Style
	status   lipgloss.Style
	question lipgloss.Style
	content  lipgloss.Style
	avatar   lipgloss.Style
	hint     lipgloss.Style
	button   lipgloss.Style
	focused  lipgloss.Style
	banner   lipgloss.Style
}

func newPalette(t Theme) palette {
	// Dark mirrors the muted zinc/slate scheme; light inverts the contrast.
	fg, dim, accent, soft, border := "#d4d4d8", "#71717a", "#bae6fd", "#bbf7d0", "#52525b"
	if t == ThemeLight {
		fg, dim, accent, soft, border = "#27272a", "#71717a", "#0369a1", "#15803d", "#a1a1aa"
	}
	return palette{
		frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(border)).
			Padding(0, 1),
		title:    lipgloss.NewStyle().Foreground(lipgloss.Color(dim)).Bold(true),
		status:   lipgloss.NewStyle().Foreground(lipgloss.Color(fg)),
		question: lipgloss.NewStyle().Foreground(lipgloss.Color(soft)).Italic(true),
		content:  lipgloss.NewStyle().Foreground(lipgloss.Color(accent)),
		avatar:   lipgloss.NewStyle().Foreground(lipgloss.Color(accent)),
		hint:     lipgloss.NewStyle().Foreground(lipgloss.Color(dim)),
		button: lipgloss.NewStyle().
			Foreground(lipgloss.Color(fg)).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(border)).
			Padding(0, 2),
		focused: lipgloss.NewStyle().
			Foreground(lipgloss.Color(accent)).
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color(accent)).
			Padding(0, 2),
		banner: lipgloss.NewStyle().Foreground(lipgloss.Color(dim)),
	}
}
