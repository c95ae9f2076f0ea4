// Package font loads the font attributes text extraction needs: advance
// widths for positioning and ToUnicode mappings for decoding show-text
// strings into Go strings.
package font

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/tsawler/marginalia/core"
)

// Font holds decoded attributes of one font resource
type Font struct {
	BaseFont string
	Subtype  string

	firstChar int
	widths    []float64 // advance widths in 1/1000 text space units

	toUnicode map[uint32]string
	codeBytes int // 1 for simple fonts, 2 for Type0
}

// averageGlyphWidth is the width estimate (in 1/1000 units) used when the
// font carries no /Widths data
const averageGlyphWidth = 500.0

// Load reads a font dictionary from a page's resource dictionary
func Load(dict core.Dict, resolve core.Resolver) (*Font, error) {
	f := &Font{codeBytes: 1, toUnicode: make(map[uint32]string)}

	if name, ok := dict.GetName("BaseFont"); ok {
		f.BaseFont = string(name)
	}
	if name, ok := dict.GetName("Subtype"); ok {
		f.Subtype = string(name)
	}
	if f.Subtype == "Type0" {
		f.codeBytes = 2
	}

	if fc, ok := dict.GetInt("FirstChar"); ok {
		f.firstChar = int(fc)
	}
	if err := f.loadWidths(dict, resolve); err != nil {
		return nil, err
	}
	if err := f.loadToUnicode(dict, resolve); err != nil {
		return nil, err
	}

	return f, nil
}

func (f *Font) loadWidths(dict core.Dict, resolve core.Resolver) error {
	obj := dict.Get("Widths")
	if ref, ok := obj.(core.IndirectRef); ok {
		resolved, err := resolve(ref)
		if err != nil {
			return fmt.Errorf("resolving /Widths: %w", err)
		}
		obj = resolved
	}
	arr, ok := obj.(core.Array)
	if !ok {
		return nil
	}

	f.widths = make([]float64, arr.Len())
	for i := range f.widths {
		w, ok := arr.GetNumber(i)
		if !ok {
			// Entries may be indirect in sloppy files; fall back to the
			// estimate rather than failing the whole font
			w = averageGlyphWidth
		}
		f.widths[i] = w
	}
	return nil
}

func (f *Font) loadToUnicode(dict core.Dict, resolve core.Resolver) error {
	obj := dict.Get("ToUnicode")
	if ref, ok := obj.(core.IndirectRef); ok {
		resolved, err := resolve(ref)
		if err != nil {
			return fmt.Errorf("resolving /ToUnicode: %w", err)
		}
		obj = resolved
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil
	}

	data, err := stream.Decode()
	if err != nil {
		return fmt.Errorf("decoding ToUnicode CMap: %w", err)
	}
	f.parseCMap(data)
	return nil
}

// parseCMap reads the bfchar and bfrange sections of a ToUnicode CMap.
// Anything it cannot understand is skipped; a partial map is still useful.
func (f *Font) parseCMap(data []byte) {
	lexer := core.NewLexer(data)
	for {
		tok, err := lexer.NextToken()
		if err != nil {
			// CMaps embed PostScript the lexer does not fully speak; skip a
			// byte and continue scanning for the sections we care about
			lexer = core.NewLexerAt(data, lexer.Pos()+1)
			continue
		}
		if tok.Type == core.TokenEOF {
			return
		}
		if tok.Type != core.TokenKeyword {
			continue
		}
		switch string(tok.Value) {
		case "beginbfchar":
			f.parseBFChar(lexer)
		case "beginbfrange":
			f.parseBFRange(lexer)
		}
	}
}

func (f *Font) parseBFChar(lexer *core.Lexer) {
	for {
		src, err := lexer.NextToken()
		if err != nil || src.Type == core.TokenEOF {
			return
		}
		if src.Type == core.TokenKeyword && string(src.Value) == "endbfchar" {
			return
		}
		dst, err := lexer.NextToken()
		if err != nil || dst.Type != core.TokenHexString || src.Type != core.TokenHexString {
			return
		}
		code, ok := hexCode(src.Value)
		if !ok {
			continue
		}
		f.toUnicode[code] = utf16BEString(hexBytes(dst.Value))
	}
}

func (f *Font) parseBFRange(lexer *core.Lexer) {
	for {
		lo, err := lexer.NextToken()
		if err != nil || lo.Type == core.TokenEOF {
			return
		}
		if lo.Type == core.TokenKeyword && string(lo.Value) == "endbfrange" {
			return
		}
		hi, err := lexer.NextToken()
		if err != nil || lo.Type != core.TokenHexString || hi.Type != core.TokenHexString {
			return
		}
		loCode, okLo := hexCode(lo.Value)
		hiCode, okHi := hexCode(hi.Value)
		if !okLo || !okHi || hiCode < loCode || hiCode-loCode > 0xFFFF {
			return
		}

		dst, err := lexer.NextToken()
		if err != nil {
			return
		}
		switch dst.Type {
		case core.TokenHexString:
			// Consecutive mapping: the last byte increments per code
			base := hexBytes(dst.Value)
			for c := loCode; c <= hiCode; c++ {
				mapped := make([]byte, len(base))
				copy(mapped, base)
				if len(mapped) > 0 {
					mapped[len(mapped)-1] += byte(c - loCode)
				}
				f.toUnicode[c] = utf16BEString(mapped)
			}
		case core.TokenArrayStart:
			for c := loCode; ; c++ {
				el, err := lexer.NextToken()
				if err != nil || el.Type == core.TokenArrayEnd || el.Type == core.TokenEOF {
					break
				}
				if el.Type == core.TokenHexString && c <= hiCode {
					f.toUnicode[c] = utf16BEString(hexBytes(el.Value))
				}
			}
		default:
			return
		}
	}
}

// CodeBytes returns how many bytes one character code occupies
func (f *Font) CodeBytes() int {
	return f.codeBytes
}

// GlyphWidth returns the advance width for a character code in 1/1000 text
// space units
func (f *Font) GlyphWidth(code uint32) float64 {
	idx := int(code) - f.firstChar
	if idx >= 0 && idx < len(f.widths) {
		return f.widths[idx]
	}
	return averageGlyphWidth
}

// Decode converts a show-text string into Unicode text and reports the
// total advance width in 1/1000 text space units
func (f *Font) Decode(raw []byte) (string, float64) {
	var sb strings.Builder
	var width float64

	step := f.codeBytes
	for i := 0; i+step <= len(raw); i += step {
		var code uint32
		for j := 0; j < step; j++ {
			code = code<<8 | uint32(raw[i+j])
		}
		width += f.GlyphWidth(code)

		if mapped, ok := f.toUnicode[code]; ok {
			sb.WriteString(mapped)
		} else if step == 1 {
			// Assume a Latin-ish simple encoding when no map exists
			sb.WriteRune(rune(code))
		} else {
			sb.WriteRune('�')
		}
	}
	return sb.String(), width
}

func hexCode(hex []byte) (uint32, bool) {
	b := hexBytes(hex)
	if len(b) == 0 || len(b) > 4 {
		return 0, false
	}
	var code uint32
	for _, x := range b {
		code = code<<8 | uint32(x)
	}
	return code, true
}

func hexBytes(hex []byte) []byte {
	out := make([]byte, 0, (len(hex)+1)/2)
	var hi byte
	haveHi := false
	for _, b := range hex {
		v, ok := hexVal(b)
		if !ok {
			continue
		}
		if haveHi {
			out = append(out, hi<<4|v)
			haveHi = false
		} else {
			hi = v
			haveHi = true
		}
	}
	if haveHi {
		out = append(out, hi<<4)
	}
	return out
}

func hexVal(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}

func utf16BEString(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(units))
}
