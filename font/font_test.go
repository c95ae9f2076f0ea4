package font

import (
	"math"
	"testing"

	"github.com/tsawler/marginalia/core"
)

func TestLoadSimpleFontWidths(t *testing.T) {
	dict := core.Dict{
		"Type":      core.Name("Font"),
		"Subtype":   core.Name("TrueType"),
		"BaseFont":  core.Name("CustomSans"),
		"FirstChar": core.Int(65),
		"Widths":    core.Array{core.Int(600), core.Int(650), core.Int(700)},
	}

	f, err := Load(dict, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.BaseFont != "CustomSans" {
		t.Errorf("BaseFont = %q", f.BaseFont)
	}
	if got := f.GlyphWidth('A'); got != 600 {
		t.Errorf("width of A = %v", got)
	}
	if got := f.GlyphWidth('C'); got != 700 {
		t.Errorf("width of C = %v", got)
	}
	// Outside the table the estimate applies
	if got := f.GlyphWidth('z'); got != averageGlyphWidth {
		t.Errorf("width of z = %v", got)
	}
}

func TestDecodeWithoutToUnicodeFallsBackToLatin(t *testing.T) {
	f, err := Load(core.Dict{"Subtype": core.Name("Type1")}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	text, width := f.Decode([]byte("Hi"))
	if text != "Hi" {
		t.Errorf("text = %q", text)
	}
	if math.Abs(width-1000) > 1e-9 {
		t.Errorf("width = %v, want 1000", width)
	}
}

func TestToUnicodeBFChar(t *testing.T) {
	cmap := `/CIDInit /ProcSet findresource begin
begincmap
2 beginbfchar
<41> <0048>
<42> <0065006C>
endbfchar
endcmap
end`

	f := &Font{codeBytes: 1, toUnicode: make(map[uint32]string)}
	f.parseCMap([]byte(cmap))

	if got := f.toUnicode[0x41]; got != "H" {
		t.Errorf("mapping for 0x41 = %q", got)
	}
	// Multi-code-point targets decode fully
	if got := f.toUnicode[0x42]; got != "el" {
		t.Errorf("mapping for 0x42 = %q", got)
	}
}

func TestToUnicodeBFRange(t *testing.T) {
	cmap := `1 beginbfrange
<41> <43> <0061>
endbfrange`

	f := &Font{codeBytes: 1, toUnicode: make(map[uint32]string)}
	f.parseCMap([]byte(cmap))

	want := map[uint32]string{0x41: "a", 0x42: "b", 0x43: "c"}
	for code, expect := range want {
		if got := f.toUnicode[code]; got != expect {
			t.Errorf("mapping for %#x = %q, want %q", code, got, expect)
		}
	}
}

func TestToUnicodeBFRangeArrayForm(t *testing.T) {
	cmap := `1 beginbfrange
<01> <02> [<0058> <0059>]
endbfrange`

	f := &Font{codeBytes: 1, toUnicode: make(map[uint32]string)}
	f.parseCMap([]byte(cmap))

	if f.toUnicode[1] != "X" || f.toUnicode[2] != "Y" {
		t.Errorf("array-form mappings = %q, %q", f.toUnicode[1], f.toUnicode[2])
	}
}

func TestType0UsesTwoByteCodes(t *testing.T) {
	f, err := Load(core.Dict{"Subtype": core.Name("Type0")}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.CodeBytes() != 2 {
		t.Errorf("CodeBytes = %d, want 2", f.CodeBytes())
	}

	f.toUnicode[0x0041] = "A"
	text, _ := f.Decode([]byte{0x00, 0x41})
	if text != "A" {
		t.Errorf("decoded %q", text)
	}
}
