package palette

import (
	"testing"

	"github.com/patternforge/diamondgrid/internal/colorspace"
)

func TestBuiltinPalettes(t *testing.T) {
	for _, id := range []string{"original", "warm", "pop"} {
		p, ok := Get(id)
		if !ok {
			t.Fatalf("builtin palette %q missing", id)
		}

		entries := p.Entries()
		if len(entries) != Size {
			t.Fatalf("palette %q has %d entries, want %d", id, len(entries), Size)
		}
		for i, e := range entries {
			if e.Symbol != i+1 {
				t.Errorf("palette %q entry %d has symbol %d, want %d", id, i, e.Symbol, i+1)
			}
		}
	}
}

func TestNewValidation(t *testing.T) {
	valid := func() []Definition {
		return []Definition{
			{1, "A", "#000000"}, {2, "B", "#222222"}, {3, "C", "#444444"},
			{4, "D", "#666666"}, {5, "E", "#888888"}, {6, "F", "#AAAAAA"},
			{7, "G", "#FFFFFF"},
		}
	}

	tests := []struct {
		name   string
		mutate func([]Definition) []Definition
	}{
		{"too few colors", func(d []Definition) []Definition { return d[:6] }},
		{"duplicate symbol", func(d []Definition) []Definition { d[1].Symbol = 1; return d }},
		{"symbol out of range", func(d []Definition) []Definition { d[0].Symbol = 8; return d }},
		{"bad hex", func(d []Definition) []Definition { d[0].Hex = "nope"; return d }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New("test", "test_v1", tt.mutate(valid())); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if _, err := New("test", "test_v1", valid()); err != nil {
		t.Fatalf("valid palette rejected: %v", err)
	}
}

func TestNearestSymbol(t *testing.T) {
	p, _ := Get("original")

	// Every palette color is its own nearest neighbor.
	for _, e := range p.Entries() {
		if got := p.NearestSymbol(e.Lab); got != e.Symbol {
			t.Errorf("symbol %d matched to %d", e.Symbol, got)
		}
	}

	// Pure black is closest to the Black entry (symbol 1).
	if got := p.NearestSymbol(colorspace.RGBToLab(colorspace.RGB{})); got != 1 {
		t.Errorf("pure black matched symbol %d, want 1", got)
	}
}

func TestNearestSymbolTieBreaksLow(t *testing.T) {
	defs := []Definition{
		{1, "A", "#101010"},
		{2, "B", "#101010"}, // identical color, higher symbol
		{3, "C", "#808080"},
		{4, "D", "#909090"},
		{5, "E", "#A0A0A0"},
		{6, "F", "#B0B0B0"},
		{7, "G", "#FFFFFF"},
	}
	p, err := New("tie", "tie_v1", defs)
	if err != nil {
		t.Fatal(err)
	}

	probe := colorspace.RGBToLab(colorspace.RGB8(0x10, 0x10, 0x10))
	if got := p.NearestSymbol(probe); got != 1 {
		t.Errorf("tie resolved to symbol %d, want lowest symbol 1", got)
	}
}

func TestBagCodes(t *testing.T) {
	p, _ := Get("warm")
	if code := p.Entry(1).BagCode(); code != "B01" {
		t.Errorf("bag code = %q, want B01", code)
	}
	if code := p.Entry(7).BagCode(); code != "B07" {
		t.Errorf("bag code = %q, want B07", code)
	}
}
