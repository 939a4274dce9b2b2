package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kastheco/monothematic/palette"
)

// Theme is the preview's chrome, drawn from the palette being previewed so
// the frame around the swatches is itself themed.
type Theme struct {
	// Base tones
	Base    lipgloss.Color
	Overlay lipgloss.Color
	Muted   lipgloss.Color
	Subtle  lipgloss.Color
	Text    lipgloss.Color

	// Semantic colors
	Error   lipgloss.Color
	Warning lipgloss.Color
	Success lipgloss.Color
}

// ThemeFor picks dark-mode chrome colors out of p.
func ThemeFor(p palette.Palette) Theme {
	pick := func(name string) lipgloss.Color {
		nc, _ := p.Lookup(name)
		return lipgloss.Color(nc.Hex)
	}
	return Theme{
		Base:    pick("base-10"),
		Overlay: pick("base-22"),
		Muted:   pick("base-50"),
		Subtle:  pick("base-66"),
		Text:    pick("base-94"),
		Error:   pick("error-70"),
		Warning: pick("warning-70"),
		Success: pick("success-70"),
	}
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Text).MarginBottom(1)
}

func (t Theme) sectionStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Subtle).MarginTop(1)
}

func (t Theme) mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted)
}

func (t Theme) frameStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Overlay).
		Padding(1, 2)
}
