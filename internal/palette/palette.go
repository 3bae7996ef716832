// Package palette defines the fixed 7-color palettes a pattern is quantized
// to. A palette is immutable after construction: entry order is the legend
// order, symbols are the integers 1..7, and the perceptual vectors used for
// nearest-color matching are computed exactly once.
package palette

import (
	_ "embed"
	"fmt"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/patternforge/diamondgrid/internal/colorspace"
)

// Size is the number of colors in every palette. The pipeline, counters and
// exporters all assume exactly this many symbols.
const Size = 7

// Entry is one palette color with its precomputed perceptual vectors.
type Entry struct {
	Symbol int    `json:"symbol"`
	Name   string `json:"name"`
	Hex    string `json:"hex"`
	R      uint8  `json:"-"`
	G      uint8  `json:"-"`
	B      uint8  `json:"-"`

	Lab   colorspace.Lab   `json:"-"`
	OKLab colorspace.OKLab `json:"-"`
}

// RGB returns the entry color as an encoded sRGB triplet in [0,1].
func (e Entry) RGB() colorspace.RGB {
	return colorspace.RGB8(e.R, e.G, e.B)
}

// BagCode returns the drill-bag code for the entry (B01..B07).
func (e Entry) BagCode() string {
	return fmt.Sprintf("B%02d", e.Symbol)
}

// Palette is an immutable ordered set of exactly Size colors.
type Palette struct {
	ID      string
	Name    string
	entries [Size]Entry
}

// Definition is the raw form a palette is built from.
type Definition struct {
	Symbol int    `yaml:"symbol"`
	Name   string `yaml:"name"`
	Hex    string `yaml:"hex"`
}

// New validates the definitions and builds an immutable palette. It fails if
// there are not exactly Size colors, if the symbols are not a permutation of
// 1..Size, or if a hex code does not parse.
func New(id, name string, defs []Definition) (*Palette, error) {
	if len(defs) != Size {
		return nil, fmt.Errorf("palette %q: expected %d colors, got %d", id, Size, len(defs))
	}

	p := &Palette{ID: id, Name: name}
	seen := [Size + 1]bool{}

	for i, def := range defs {
		if def.Symbol < 1 || def.Symbol > Size {
			return nil, fmt.Errorf("palette %q: symbol %d out of range 1..%d", id, def.Symbol, Size)
		}
		if seen[def.Symbol] {
			return nil, fmt.Errorf("palette %q: duplicate symbol %d", id, def.Symbol)
		}
		seen[def.Symbol] = true

		c, err := colorful.Hex(def.Hex)
		if err != nil {
			return nil, fmt.Errorf("palette %q: color %q: %w", id, def.Hex, err)
		}
		r, g, b := c.RGB255()

		rgb := colorspace.RGB8(r, g, b)
		p.entries[i] = Entry{
			Symbol: def.Symbol,
			Name:   def.Name,
			Hex:    def.Hex,
			R:      r,
			G:      g,
			B:      b,
			Lab:    colorspace.RGBToLab(rgb),
			OKLab:  colorspace.RGBToOKLab(rgb),
		}
	}

	// Legend order is symbol order.
	sort.Slice(p.entries[:], func(i, j int) bool {
		return p.entries[i].Symbol < p.entries[j].Symbol
	})

	return p, nil
}

// Entries returns the palette colors in legend order.
func (p *Palette) Entries() []Entry {
	out := make([]Entry, Size)
	copy(out, p.entries[:])
	return out
}

// Entry returns the palette entry for a symbol in 1..Size.
func (p *Palette) Entry(symbol int) Entry {
	return p.entries[symbol-1]
}

// NearestSymbol returns the symbol of the palette color closest to c in
// CIELAB. Ties break to the lowest symbol: the scan runs in ascending symbol
// order with a strict less-than, so an earlier entry keeps an equal distance.
// Dark early-palette colors dominate portraits, which makes this tie-break
// observable across runs.
func (p *Palette) NearestSymbol(c colorspace.Lab) int {
	best := p.entries[0].Symbol
	bestDist := colorspace.DeltaE(c, p.entries[0].Lab)

	for i := 1; i < Size; i++ {
		if d := colorspace.DeltaE(c, p.entries[i].Lab); d < bestDist {
			bestDist = d
			best = p.entries[i].Symbol
		}
	}

	return best
}

//go:embed palettes.yaml
var builtinYAML []byte

var builtin = map[string]*Palette{}
var builtinIDs []string

func init() {
	var doc struct {
		Palettes []struct {
			ID     string       `yaml:"id"`
			Name   string       `yaml:"name"`
			Colors []Definition `yaml:"colors"`
		} `yaml:"palettes"`
	}

	if err := yaml.Unmarshal(builtinYAML, &doc); err != nil {
		panic(fmt.Sprintf("palette: malformed embedded palettes.yaml: %v", err))
	}

	for _, raw := range doc.Palettes {
		p, err := New(raw.ID, raw.Name, raw.Colors)
		if err != nil {
			panic(fmt.Sprintf("palette: invalid builtin palette: %v", err))
		}
		builtin[raw.ID] = p
		builtinIDs = append(builtinIDs, raw.ID)
	}
}

// Get returns the built-in palette with the given id.
func Get(id string) (*Palette, bool) {
	p, ok := builtin[id]
	return p, ok
}

// IDs returns the built-in palette ids in definition order.
func IDs() []string {
	out := make([]string, len(builtinIDs))
	copy(out, builtinIDs)
	return out
}
