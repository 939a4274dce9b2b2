package recolor

import (
	"regexp"
	"sort"

	"github.com/kastheco/monothematic/palette"
)

// Kind is the textual form a color literal was written in.
type Kind int

const (
	KindHex  Kind = iota // #rgb or #rrggbb
	KindFunc             // oklch(...)
)

func (k Kind) String() string {
	switch k {
	case KindHex:
		return "hex"
	case KindFunc:
		return "oklch"
	default:
		return "unknown"
	}
}

// Match is one color literal located in a document.
type Match struct {
	Start, End int // byte offsets, [Start, End)
	Raw        string
	Kind       Kind
	Lightness  float64
}

// hexLiteralRe matches #rgb / #rrggbb ending on a word boundary, so the
// leading digits of a longer hex-like token are not picked up.
var hexLiteralRe = regexp.MustCompile(`#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})\b`)

// funcLiteralRe matches an oklch() call; the body is validated by the decoder.
var funcLiteralRe = regexp.MustCompile(`(?i)oklch\([^)]+\)`)

// Scan returns every decodable color literal in text, ordered by start
// offset and never overlapping.
func Scan(text string) []Match {
	var found []Match
	found = appendMatches(found, text, hexLiteralRe, KindHex)
	found = appendMatches(found, text, funcLiteralRe, KindFunc)

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Start < found[j].Start
	})

	out := found[:0]
	end := 0
	for _, m := range found {
		if m.Start < end {
			continue
		}
		out = append(out, m)
		end = m.End
	}
	return out
}

func appendMatches(dst []Match, text string, re *regexp.Regexp, kind Kind) []Match {
	for _, loc := range re.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		c, ok := palette.Decode(raw)
		if !ok {
			continue
		}
		dst = append(dst, Match{
			Start:     loc[0],
			End:       loc[1],
			Raw:       raw,
			Kind:      kind,
			Lightness: c.L,
		})
	}
	return dst
}
