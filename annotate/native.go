package annotate

import (
	"fmt"

	"github.com/tsawler/marginalia/compose"
	"github.com/tsawler/marginalia/coords"
	"github.com/tsawler/marginalia/core"
	"github.com/tsawler/marginalia/model"
	"github.com/tsawler/marginalia/pages"
	"github.com/tsawler/marginalia/reader"
)

// MarkupSubtype selects the native markup annotation kind
type MarkupSubtype string

const (
	// SubtypeHighlight renders quads as filled highlight regions
	SubtypeHighlight MarkupSubtype = "Highlight"
	// SubtypeUnderline renders quads as underlines along the quad bottoms
	SubtypeUnderline MarkupSubtype = "Underline"
)

// Annotation flag bits
const (
	flagPrint    = 4
	flagReadOnly = 64
)

// WriteNative appends markup annotations to the document as an incremental
// update. The original bytes are preserved verbatim at the head of the
// output, so the result stays openable even by readers that only trust the
// first revision.
func WriteNative(doc *reader.Document, instructions []compose.PageInstructions, subtype MarkupSubtype) ([]byte, error) {
	if subtype == "" {
		subtype = SubtypeHighlight
	}
	updater := core.NewUpdater(doc.Data(), doc.XRef())

	changed := false
	for _, pi := range instructions {
		page, err := doc.Page(pi.Page)
		if err != nil {
			return nil, err
		}
		geo := page.Geometry()
		if geo.IsDegenerate() {
			continue
		}

		var refs []core.Object
		for _, inst := range pi.Rects {
			dict, ok := markupDict(inst, geo, subtype)
			if !ok {
				continue
			}
			refs = append(refs, updater.AddObject(dict))
		}
		for _, note := range pi.Notes {
			refs = append(refs, updater.AddObject(noteDict(note, geo)))
		}
		if len(refs) == 0 {
			continue
		}

		if err := appendAnnots(doc, updater, page, refs); err != nil {
			return nil, fmt.Errorf("page %d: %w", pi.Page, err)
		}
		changed = true
	}

	if !changed {
		return doc.Data(), nil
	}
	return updater.Bytes()
}

// markupDict builds one markup annotation: QuadPoints for the highlighted
// region, a Rect equal to the quad envelope, and the match or note text as
// contents
func markupDict(inst compose.Instruction, geo model.PageGeometry, subtype MarkupSubtype) (core.Dict, bool) {
	pr := coords.ToPagePoints(inst.Rect, geo)
	if pr.W <= 0 || pr.H <= 0 {
		return nil, false
	}

	// Quad order: upper-left, upper-right, lower-left, lower-right
	quad := []float64{
		pr.X, pr.Y + pr.H,
		pr.X + pr.W, pr.Y + pr.H,
		pr.X, pr.Y,
		pr.X + pr.W, pr.Y,
	}
	quadArr := make(core.Array, 0, len(quad))
	for _, v := range quad {
		quadArr = append(quadArr, core.Real(v))
	}

	flags := flagPrint
	if !inst.Interactive {
		flags |= flagReadOnly
	}

	dict := core.Dict{
		"Type":       core.Name("Annot"),
		"Subtype":    core.Name(string(subtype)),
		"Rect":       rectArray(pr.X, pr.Y, pr.X+pr.W, pr.Y+pr.H),
		"QuadPoints": quadArr,
		"C":          colorArray(inst.Color),
		"CA":         core.Real(fillAlpha),
		"F":          core.Int(flags),
	}
	if inst.Label != "" {
		dict["Contents"] = core.String(inst.Label)
	}
	return dict, true
}

// noteDict builds a text (sticky note) annotation at the note's anchor
func noteDict(note model.Note, geo model.PageGeometry) core.Dict {
	pr := coords.ToPagePoints(model.Rect{X: note.X, Y: note.Y, W: 0, H: 0}, geo)

	// Standard sticky-note icon footprint
	const iconSize = 20.0
	return core.Dict{
		"Type":     core.Name("Annot"),
		"Subtype":  core.Name("Text"),
		"Rect":     rectArray(pr.X, pr.Y-iconSize, pr.X+iconSize, pr.Y),
		"Contents": core.String(note.Text),
		"Name":     core.Name("Comment"),
		"C":        colorArray(model.ColorNoteRef),
		"F":        core.Int(flagPrint),
	}
}

// appendAnnots extends the page's /Annots array with the new annotation
// references, updating either the array object itself (when indirect) or
// the page dictionary (when direct or absent)
func appendAnnots(doc *reader.Document, updater *core.Updater, page *pages.Page, refs []core.Object) error {
	switch annots := page.AnnotsRef().(type) {
	case core.IndirectRef:
		obj, err := doc.Resolve(annots)
		if err != nil {
			return fmt.Errorf("resolving /Annots: %w", err)
		}
		arr, ok := obj.(core.Array)
		if !ok {
			arr = core.Array{}
		}
		updater.ReplaceObject(annots, append(append(core.Array{}, arr...), refs...))
		return nil

	case core.Array:
		newDict := page.Dict.Clone()
		newDict.Set("Annots", append(append(core.Array{}, annots...), refs...))
		updater.ReplaceObject(page.Ref, newDict)
		return nil

	default:
		newDict := page.Dict.Clone()
		newDict.Set("Annots", core.Array(refs))
		updater.ReplaceObject(page.Ref, newDict)
		return nil
	}
}

func rectArray(x0, y0, x1, y1 float64) core.Array {
	return core.Array{core.Real(x0), core.Real(y0), core.Real(x1), core.Real(y1)}
}

// colorArray converts an 8-bit color to the 0..1 component array PDF uses
func colorArray(c model.Color) core.Array {
	return core.Array{
		core.Real(float64(c.R) / 255),
		core.Real(float64(c.G) / 255),
		core.Real(float64(c.B) / 255),
	}
}
