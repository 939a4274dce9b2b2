package recolor

import (
	"math"
	"strings"

	"github.com/kastheco/monothematic/palette"
)

// Replacement records what one match was rewritten to.
type Replacement struct {
	Match  Match
	Chosen palette.NamedColor
	Text   string
}

// Result is a rewritten document plus the replacements made in it.
type Result struct {
	Text         string
	Replacements []Replacement
}

// Changed reports whether any literal was rewritten to different text.
func (r Result) Changed() bool {
	for _, rep := range r.Replacements {
		if rep.Text != rep.Match.Raw {
			return true
		}
	}
	return false
}

// Nearest returns the candidate whose lightness is closest to l. Ties go to
// the earliest candidate. ok is false only when candidates is empty.
func Nearest(candidates []palette.NamedColor, l float64) (nc palette.NamedColor, ok bool) {
	best := math.Inf(1)
	for _, c := range candidates {
		if d := math.Abs(c.Color.L - l); d < best {
			best = d
			nc = c
			ok = true
		}
	}
	return nc, ok
}

// Recolor replaces every color literal in text with the palette entry of
// nearest lightness, keeping each literal's form. Text without literals is
// returned unchanged.
func Recolor(text string, p palette.Palette) string {
	return Apply(text, p).Text
}

// Apply is Recolor that also reports each replacement.
func Apply(text string, p palette.Palette) Result {
	matches := Scan(text)
	if len(matches) == 0 {
		return Result{Text: text}
	}

	candidates := p.Flatten()
	reps := make([]Replacement, 0, len(matches))
	for _, m := range matches {
		chosen, ok := Nearest(candidates, m.Lightness)
		if !ok {
			continue
		}
		reps = append(reps, Replacement{Match: m, Chosen: chosen, Text: replacementText(m.Kind, chosen)})
	}
	if len(reps) == 0 {
		return Result{Text: text}
	}

	var b strings.Builder
	b.Grow(len(text))
	cursor := 0
	for _, r := range reps {
		b.WriteString(text[cursor:r.Match.Start])
		b.WriteString(r.Text)
		cursor = r.Match.End
	}
	b.WriteString(text[cursor:])

	return Result{Text: b.String(), Replacements: reps}
}

func replacementText(kind Kind, nc palette.NamedColor) string {
	if kind == KindFunc {
		return nc.CSS
	}
	return nc.Hex
}
