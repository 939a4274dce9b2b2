package palette

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// schemeEntry is the value stored under each identifier in the scheme file.
type schemeEntry struct {
	OKLCH string `json:"oklch"`
	Hex   string `json:"hex"`
}

// MarshalJSON encodes the palette as a flat object keyed by identifier, in
// Flatten order.
func (p Palette) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, nc := range p.Flatten() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(nc.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(schemeEntry{OKLCH: nc.CSS, Hex: nc.Hex})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON rebuilds a palette from its scheme encoding. Each entry's
// color is decoded from its oklch text; the stored hex is kept as written.
func (p *Palette) UnmarshalJSON(data []byte) error {
	var entries map[string]schemeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	entry := func(name string) (NamedColor, error) {
		e, ok := entries[name]
		if !ok {
			return NamedColor{}, fmt.Errorf("missing %s", name)
		}
		c, ok := Decode(e.OKLCH)
		if !ok {
			return NamedColor{}, fmt.Errorf("%s: invalid oklch %q", name, e.OKLCH)
		}
		nc := newNamed(name, c)
		if e.Hex != "" {
			nc.Hex = e.Hex
		}
		return nc, nil
	}

	var out Palette
	for _, tier := range Tiers() {
		nc, err := entry(BaseName(tier))
		if err != nil {
			return err
		}
		out.Base = append(out.Base, nc)
	}

	accents := make([]Accent, len(Roles))
	for i, role := range Roles {
		light, err := entry(AccentName(role.Name, lightTier))
		if err != nil {
			return err
		}
		dark, err := entry(AccentName(role.Name, darkTier))
		if err != nil {
			return err
		}
		accents[i] = Accent{Light: light, Dark: dark}
	}
	out.Error, out.Warning, out.Success = accents[0], accents[1], accents[2]

	*p = out
	return nil
}

// EncodeScheme renders the scheme file: the MarshalJSON object indented by
// two spaces with a trailing newline.
func (p Palette) EncodeScheme() ([]byte, error) {
	raw, err := p.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal scheme: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indent scheme: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// ParseScheme reads a scheme file produced by EncodeScheme.
func ParseScheme(data []byte) (Palette, error) {
	var p Palette
	if err := json.Unmarshal(data, &p); err != nil {
		return Palette{}, fmt.Errorf("parse scheme: %w", err)
	}
	return p, nil
}
