// Package ui renders palettes for the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/gamut"
	gamutpalette "github.com/muesli/gamut/palette"

	"github.com/kastheco/monothematic/palette"
)

const swatchWidth = 14

// NearestCSSName returns the CSS named color closest to c.
func NearestCSSName(c palette.Color) string {
	names, _ := gamutpalette.CSS.Name(c.Colorful())
	if len(names) == 0 {
		return ""
	}
	return names[0].Name
}

// labelColor is black or white, whichever reads better on c.
func labelColor(c palette.Color) lipgloss.Color {
	fg, _ := colorful.MakeColor(gamut.Contrast(c.Colorful()))
	return lipgloss.Color(fg.Hex())
}

// Swatch renders one palette entry: a colored block labelled with its name,
// then hex, CSS and the nearest CSS color name.
func Swatch(nc palette.NamedColor, t Theme) string {
	block := lipgloss.NewStyle().
		Width(swatchWidth).
		Align(lipgloss.Center).
		Background(lipgloss.Color(nc.Hex)).
		Foreground(labelColor(nc.Color)).
		Render(nc.Name)

	text := lipgloss.NewStyle().Foreground(t.Text)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		block,
		" ",
		text.Render(nc.Hex),
		"  ",
		text.Render(fmt.Sprintf("%-28s", nc.CSS)),
		t.mutedStyle().Render("~"+NearestCSSName(nc.Color)),
	)
}

// RenderPalette renders the base ramp and the accents, one swatch per line,
// inside a frame themed from p itself.
func RenderPalette(p palette.Palette) string {
	if p.IsZero() {
		return ""
	}
	t := ThemeFor(p)

	var b strings.Builder
	b.WriteString(t.titleStyle().Render("palette"))
	b.WriteString("\n")
	for _, nc := range p.Base {
		b.WriteString(Swatch(nc, t))
		b.WriteString("\n")
	}

	b.WriteString(t.sectionStyle().Render("accents"))
	b.WriteString("\n")
	for _, a := range p.Accents() {
		b.WriteString(Swatch(a.Light, t))
		b.WriteString("\n")
		b.WriteString(Swatch(a.Dark, t))
		b.WriteString("\n")
	}

	return t.frameStyle().Render(strings.TrimRight(b.String(), "\n"))
}
