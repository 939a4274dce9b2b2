package palette

import "fmt"

// Chroma bounds applied to the seed before a palette is derived from it.
const (
	MinChroma = 0.03
	MaxChroma = 0.25
)

// Lightness tiers on the 0-100 scale.
const (
	rampTop   = 98
	rampStep  = 4
	rampFloor = 2
	lightTier = 70
	darkTier  = 30
)

// Role is a semantic accent with a fixed hue.
type Role struct {
	Name string
	Hue  float64
}

// Roles lists the semantic accents in serialization order.
var Roles = []Role{
	{Name: "error", Hue: 29},
	{Name: "warning", Hue: 109},
	{Name: "success", Hue: 142},
}

// NamedColor binds a Color to a stable identifier together with its hex and
// CSS projections.
type NamedColor struct {
	Name  string
	Color Color
	Hex   string
	CSS   string
}

func newNamed(name string, c Color) NamedColor {
	return NamedColor{Name: name, Color: c, Hex: c.Hex(), CSS: c.CSS()}
}

// Accent is the light/dark pair of one semantic role.
type Accent struct {
	Light NamedColor
	Dark  NamedColor
}

// Palette is the full set of colors derived from one seed.
type Palette struct {
	Base    []NamedColor // base-98 .. base-02
	Error   Accent
	Warning Accent
	Success Accent
}

// Tiers returns the base ramp lightness tiers, highest first.
func Tiers() []int {
	var tiers []int
	for l := rampTop; l >= rampFloor; l -= rampStep {
		tiers = append(tiers, l)
	}
	return tiers
}

// BaseName returns the identifier of a ramp stop, e.g. base-02.
func BaseName(tier int) string {
	return fmt.Sprintf("base-%02d", tier)
}

// AccentName returns the identifier of a semantic variant, e.g. error-70.
func AccentName(role string, tier int) string {
	return fmt.Sprintf("%s-%d", role, tier)
}

// Generate derives a palette from seed. The seed's chroma is clamped to
// [MinChroma, MaxChroma]; its lightness is ignored.
func Generate(seed Color) Palette {
	seed = New(seed.L, seed.C, seed.H)
	chroma := clamp(seed.C, MinChroma, MaxChroma)

	var p Palette
	for _, tier := range Tiers() {
		p.Base = append(p.Base, newNamed(BaseName(tier), tierColor(tier, chroma, seed.H)))
	}

	accents := make([]Accent, len(Roles))
	for i, role := range Roles {
		accents[i] = Accent{
			Light: newNamed(AccentName(role.Name, lightTier), tierColor(lightTier, chroma, role.Hue)),
			Dark:  newNamed(AccentName(role.Name, darkTier), tierColor(darkTier, chroma, role.Hue)),
		}
	}
	p.Error, p.Warning, p.Success = accents[0], accents[1], accents[2]

	return p
}

func tierColor(tier int, chroma, hue float64) Color {
	return New(float64(tier)/100, chroma, hue)
}

// Accents returns the semantic pairs in role order.
func (p Palette) Accents() []Accent {
	return []Accent{p.Error, p.Warning, p.Success}
}

// Flatten returns every entry in matching order: the base ramp from light to
// dark, then each role's light and dark variant. Nearest-match ties resolve
// to the earliest entry in this order.
func (p Palette) Flatten() []NamedColor {
	out := make([]NamedColor, 0, len(p.Base)+2*len(Roles))
	out = append(out, p.Base...)
	for _, a := range p.Accents() {
		out = append(out, a.Light, a.Dark)
	}
	return out
}

// Lookup finds an entry by identifier.
func (p Palette) Lookup(name string) (NamedColor, bool) {
	for _, nc := range p.Flatten() {
		if nc.Name == name {
			return nc, true
		}
	}
	return NamedColor{}, false
}

// IsZero reports whether p holds no colors.
func (p Palette) IsZero() bool {
	return len(p.Base) == 0
}
