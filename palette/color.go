package palette

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is a point in OKLCH space. The zero value is black.
type Color struct {
	L float64 // lightness, [0,1]
	C float64 // chroma, >= 0
	H float64 // hue in degrees, [0,360)
}

// New builds a Color, clamping lightness to [0,1], flooring chroma at 0 and
// wrapping hue into [0,360). NaN components become 0.
func New(l, c, h float64) Color {
	return Color{
		L: clamp(finite(l), 0, 1),
		C: math.Max(0, finite(c)),
		H: normalizeHue(finite(h)),
	}
}

// FromColorful converts an sRGB go-colorful color into OKLCH.
func FromColorful(c colorful.Color) Color {
	return New(c.OkLch())
}

// FromHex parses a #rgb or #rrggbb string.
func FromHex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, err
	}
	return FromColorful(c), nil
}

// Colorful converts the color to sRGB. Channels may fall outside [0,1] for
// out-of-gamut colors.
func (c Color) Colorful() colorful.Color {
	return colorful.OkLch(c.L, c.C, c.H)
}

// Hex returns the #rrggbb projection, clamping out-of-gamut channels.
func (c Color) Hex() string {
	return c.Colorful().Clamped().Hex()
}

// CSS returns the canonical oklch() text form.
func (c Color) CSS() string {
	return fmt.Sprintf("oklch(%s %s %s)", formatFloat(c.L), formatFloat(c.C), formatFloat(c.H))
}

func (c Color) String() string {
	return c.CSS()
}

// Decode parses a color literal: a #rgb / #rrggbb hex code or an oklch()
// function. It reports false for anything it does not recognise.
func Decode(text string) (Color, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "#") {
		c, err := FromHex(text)
		if err != nil {
			return Color{}, false
		}
		return c, true
	}
	return decodeOklch(text)
}

// oklchFuncRe captures the body of an oklch() function.
var oklchFuncRe = regexp.MustCompile(`(?i)^oklch\(\s*([^)]*?)\s*\)$`)

// numberRe matches a CSS <number>.
var numberRe = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)

// angleRe splits a hue component into number and optional unit.
var angleRe = regexp.MustCompile(`(?i)^([+-]?(?:\d+\.?\d*|\.\d+)(?:e[+-]?\d+)?)(deg|rad|grad|turn)?$`)

func decodeOklch(text string) (Color, bool) {
	m := oklchFuncRe.FindStringSubmatch(text)
	if m == nil {
		return Color{}, false
	}

	body := m[1]
	if i := strings.Index(body, "/"); i >= 0 {
		alpha := strings.TrimSpace(body[i+1:])
		if _, ok := parsePercentOrNumber(alpha, 1); !ok {
			return Color{}, false
		}
		body = body[:i]
	}

	parts := strings.Fields(body)
	if len(parts) != 3 {
		return Color{}, false
	}

	l, ok := parsePercentOrNumber(parts[0], 1)
	if !ok {
		return Color{}, false
	}
	c, ok := parsePercentOrNumber(parts[1], 0.4)
	if !ok {
		return Color{}, false
	}
	h, ok := parseHue(parts[2])
	if !ok {
		return Color{}, false
	}
	return New(l, c, h), true
}

// parsePercentOrNumber parses a number, a percentage scaled so that 100%
// equals full, or the keyword none (0).
func parsePercentOrNumber(s string, full float64) (float64, bool) {
	if strings.EqualFold(s, "none") {
		return 0, true
	}
	if strings.HasSuffix(s, "%") {
		v, ok := parseNumber(strings.TrimSuffix(s, "%"))
		return v / 100 * full, ok
	}
	return parseNumber(s)
}

func parseNumber(s string) (float64, bool) {
	if !numberRe.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseHue(s string) (float64, bool) {
	if strings.EqualFold(s, "none") {
		return 0, true
	}
	m := angleRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "rad":
		v = v * 180 / math.Pi
	case "grad":
		v = v * 0.9
	case "turn":
		v = v * 360
	}
	return v, true
}

func normalizeHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
