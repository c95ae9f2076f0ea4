package content

import (
	"fmt"

	"github.com/tsawler/marginalia/core"
	"github.com/tsawler/marginalia/font"
	"github.com/tsawler/marginalia/model"
)

// RunExtractor interprets a content stream and collects positioned glyph
// runs. One extractor serves one page.
type RunExtractor struct {
	state   *State
	resolve core.Resolver

	fontDict core.Dict
	fonts    map[string]*font.Font

	runs []model.GlyphRun
}

// ExtractRuns interprets the decoded content stream of one page and returns
// its glyph runs in content-stream order
func ExtractRuns(contents []byte, resources core.Dict, resolve core.Resolver) ([]model.GlyphRun, error) {
	ops, err := ParseOperations(contents)
	if err != nil {
		return nil, err
	}

	e := &RunExtractor{
		state:   NewState(),
		resolve: resolve,
		fonts:   make(map[string]*font.Font),
	}
	if resources != nil {
		if fd, err := resolvedDict(resources.Get("Font"), resolve); err == nil {
			e.fontDict = fd
		}
	}

	for _, op := range ops {
		e.process(op)
	}
	// A trailing run with no following line operator still ends its line
	e.markLineBreak()

	return e.runs, nil
}

func (e *RunExtractor) process(op Operation) {
	s := e.state
	ts := &s.Current().Text

	switch op.Operator {
	case "q":
		s.Push()
	case "Q":
		s.Pop()
	case "cm":
		var m model.Matrix
		ok := true
		for i := 0; i < 6; i++ {
			v, has := op.Number(i)
			if !has {
				ok = false
				break
			}
			m[i] = v
		}
		if ok {
			s.Concat(m)
		}

	case "BT":
		s.BeginText()
	case "ET":
		e.markLineBreak()
		s.EndText()

	case "Tf":
		name, okName := op.Operand(0).(core.Name)
		size, okSize := op.Number(1)
		if okName && okSize {
			ts.FontName = string(name)
			ts.FontSize = size
			ts.Font = e.lookupFont(string(name))
		}
	case "Tc":
		if v, ok := op.Number(0); ok {
			ts.CharSpacing = v
		}
	case "Tw":
		if v, ok := op.Number(0); ok {
			ts.WordSpacing = v
		}
	case "Tz":
		if v, ok := op.Number(0); ok {
			ts.Horizontal = v / 100
		}
	case "TL":
		if v, ok := op.Number(0); ok {
			ts.Leading = v
		}
	case "Ts":
		if v, ok := op.Number(0); ok {
			ts.Rise = v
		}
	case "Tr":
		if v, ok := op.Number(0); ok {
			ts.RenderMode = int(v)
		}

	case "Td":
		tx, okX := op.Number(0)
		ty, okY := op.Number(1)
		if okX && okY {
			e.markLineBreak()
			s.NextLine(tx, ty)
		}
	case "TD":
		tx, okX := op.Number(0)
		ty, okY := op.Number(1)
		if okX && okY {
			ts.Leading = -ty
			e.markLineBreak()
			s.NextLine(tx, ty)
		}
	case "Tm":
		var m model.Matrix
		ok := true
		for i := 0; i < 6; i++ {
			v, has := op.Number(i)
			if !has {
				ok = false
				break
			}
			m[i] = v
		}
		if ok {
			e.markLineBreak()
			s.SetTextMatrix(m)
		}
	case "T*":
		e.markLineBreak()
		s.NextLineLeading()

	case "Tj":
		if str, ok := op.Operand(0).(core.String); ok {
			e.showText([]byte(str))
		}
	case "'":
		if str, ok := op.Operand(0).(core.String); ok {
			e.markLineBreak()
			s.NextLineLeading()
			e.showText([]byte(str))
		}
	case "\"":
		aw, okW := op.Number(0)
		ac, okC := op.Number(1)
		str, okS := op.Operand(2).(core.String)
		if okW && okC && okS {
			ts.WordSpacing = aw
			ts.CharSpacing = ac
			e.markLineBreak()
			s.NextLineLeading()
			e.showText([]byte(str))
		}
	case "TJ":
		arr, ok := op.Operand(0).(core.Array)
		if !ok {
			return
		}
		for i := 0; i < arr.Len(); i++ {
			switch el := arr.Get(i).(type) {
			case core.String:
				e.showText([]byte(el))
			case core.Int, core.Real:
				adj, _ := core.ToNumber(el)
				s.Advance(-adj / 1000 * ts.FontSize * ts.Horizontal)
			}
		}
	}
}

// showText decodes a show-text string, records the glyph run and advances
// the text matrix
func (e *RunExtractor) showText(raw []byte) {
	if len(raw) == 0 {
		return
	}
	s := e.state
	ts := s.Current().Text

	var text string
	var w1000 float64
	codeCount := len(raw)
	if ts.Font != nil {
		text, w1000 = ts.Font.Decode(raw)
		codeCount = len(raw) / ts.Font.CodeBytes()
	} else {
		// No font selected: decode bytes directly and estimate widths
		text = string(raw)
		w1000 = float64(len(raw)) * 500
	}

	spaces := 0
	for _, b := range raw {
		if b == ' ' {
			spaces++
		}
	}

	tx := (w1000/1000*ts.FontSize +
		ts.CharSpacing*float64(codeCount) +
		ts.WordSpacing*float64(spaces)) * ts.Horizontal

	trm := s.RenderMatrix()
	startX, startY := trm.Position()
	s.Advance(tx)
	endX, endY := s.RenderMatrix().Position()

	if text == "" {
		return
	}

	width := model.Point{X: startX, Y: startY}.Distance(model.Point{X: endX, Y: endY})
	e.runs = append(e.runs, model.GlyphRun{
		Text:   text,
		Width:  width,
		Affine: trm,
	})
}

// markLineBreak flags the most recent run as the last one on its line
func (e *RunExtractor) markLineBreak() {
	if len(e.runs) > 0 {
		e.runs[len(e.runs)-1].HasLineBreak = true
	}
}

// lookupFont loads a font resource by name, caching per page
func (e *RunExtractor) lookupFont(name string) *font.Font {
	if f, ok := e.fonts[name]; ok {
		return f
	}
	var f *font.Font
	if e.fontDict != nil {
		if dict, err := resolvedDict(e.fontDict.Get(name), e.resolve); err == nil && dict != nil {
			loaded, err := font.Load(dict, e.resolve)
			if err == nil {
				f = loaded
			}
		}
	}
	e.fonts[name] = f // cache misses too, so we only try once
	return f
}

func resolvedDict(obj core.Object, resolve core.Resolver) (core.Dict, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		r, err := resolve(ref)
		if err != nil {
			return nil, err
		}
		obj = r
	}
	if obj == nil {
		return nil, nil
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("expected dictionary, got %s", obj.Type())
	}
	return dict, nil
}
