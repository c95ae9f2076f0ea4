// Package annotate renders composed draw instructions into a new document
// buffer, either by drawing overlay graphics onto imported page content or
// by appending native markup annotations through an incremental update.
package annotate

import (
	"bytes"
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/tsawler/marginalia/compose"
	"github.com/tsawler/marginalia/model"
)

const (
	fillAlpha   = 0.35
	borderWidth = 0.7
)

// WriteOverlay rebuilds the document with every page's content imported as
// a template and the instructions drawn on top. The result is flattened
// graphics: not native annotations, not removable post-export.
func WriteOverlay(original []byte, geometry func(page int) (model.PageGeometry, error), pageCount int, instructions []compose.PageInstructions) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: 612, Ht: 792},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", noteFontSize)

	byPage := make(map[int]compose.PageInstructions, len(instructions))
	for _, pi := range instructions {
		byPage[pi.Page] = pi
	}

	importer := gofpdi.NewImporter()
	var rs io.ReadSeeker = bytes.NewReader(original)

	for page := 0; page < pageCount; page++ {
		geo, err := geometry(page)
		if err != nil {
			return nil, fmt.Errorf("page %d geometry: %w", page, err)
		}

		degenerate := geo.IsDegenerate()
		if degenerate {
			// The page still exists in the output; only its instructions
			// are skipped
			geo = model.PageGeometry{Width: 612, Height: 792}
		}

		orientation := "P"
		if geo.Width > geo.Height {
			orientation = "L"
		}
		pdf.AddPageFormat(orientation, fpdf.SizeType{Wd: geo.Width, Ht: geo.Height})

		tpl := importer.ImportPageFromStream(pdf, &rs, page+1, "/MediaBox")
		importer.UseImportedTemplate(pdf, tpl, 0, 0, geo.Width, geo.Height)

		if degenerate {
			continue
		}
		pi, ok := byPage[page]
		if !ok {
			continue
		}

		for _, inst := range pi.Rects {
			drawRect(pdf, inst, geo)
		}
		drawNotes(pdf, pi.Notes, geo)
	}

	if pdf.Err() {
		return nil, fmt.Errorf("overlay rendering failed: %w", pdf.Error())
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("serializing overlay output: %w", err)
	}
	return out.Bytes(), nil
}

// drawRect paints one highlight: a semi-transparent fill and a thin opaque
// border. fpdf's origin is top-left, matching the normalized convention, so
// scaling by the page extent is the whole conversion.
func drawRect(pdf *fpdf.Fpdf, inst compose.Instruction, geo model.PageGeometry) {
	r := inst.Rect
	if r.W <= 0 || r.H <= 0 {
		return
	}
	x := r.X * geo.Width
	y := r.Y * geo.Height
	w := r.W * geo.Width
	h := r.H * geo.Height

	c := inst.Color
	pdf.SetAlpha(fillAlpha, "Normal")
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
	pdf.Rect(x, y, w, h, "F")

	pdf.SetAlpha(1, "Normal")
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
	pdf.SetLineWidth(borderWidth)
	pdf.Rect(x, y, w, h, "D")
}
