package annotate

import (
	"strings"

	"codeberg.org/go-pdf/fpdf"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/tsawler/marginalia/model"
)

// Note box layout constants, in points
const (
	noteBoxWidth   = 140.0
	noteBoxPadding = 5.0
	noteFontSize   = 8.0
	noteLineHeight = 10.0
	noteTopMargin  = 40.0
	noteGap        = 8.0
	noteRightInset = 10.0
)

// WidthFunc measures rendered string width in points
type WidthFunc func(s string) float64

// BasicWidthFunc measures with the fixed basicfont face, scaled to the note
// font size. It serves callers that lay out note boxes without a renderer
// at hand, and keeps layout deterministic in tests.
func BasicWidthFunc() WidthFunc {
	face := basicfont.Face7x13
	scale := noteFontSize / float64(face.Height)
	return func(s string) float64 {
		adv := xfont.MeasureString(face, s)
		return float64(adv) / 64 * scale
	}
}

// WrapText word-wraps text against a maximum width using the given metric
// function. A single word wider than the limit gets a line of its own
// rather than being split mid-word.
func WrapText(text string, maxWidth float64, width WidthFunc) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var wrapped []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if width(candidate) <= maxWidth {
			line = candidate
			continue
		}
		wrapped = append(wrapped, line)
		line = word
	}
	return append(wrapped, line)
}

// NoteBox is the computed placement of one sticky note box, top-left
// coordinates in points
type NoteBox struct {
	Note  model.Note
	X, Y  float64
	W, H  float64
	Lines []string

	// AnchorX, AnchorY is the note's anchor point on the page, where the
	// connector line terminates
	AnchorX, AnchorY float64
}

// LayoutNotes stacks note boxes down the right margin starting from the top
// margin. Boxes never start above the margin (minimum Y clamp); a page with
// many notes simply stacks past the bottom edge, which overlay drawing
// clips naturally.
func LayoutNotes(notes []model.Note, geo model.PageGeometry, width WidthFunc) []NoteBox {
	boxes := make([]NoteBox, 0, len(notes))
	x := geo.Width - noteBoxWidth - noteRightInset
	y := noteTopMargin

	for _, note := range notes {
		lines := WrapText(note.Text, noteBoxWidth-2*noteBoxPadding, width)
		if len(lines) == 0 {
			lines = []string{""}
		}
		h := float64(len(lines))*noteLineHeight + 2*noteBoxPadding

		if y < noteTopMargin {
			y = noteTopMargin
		}
		boxes = append(boxes, NoteBox{
			Note:    note,
			X:       x,
			Y:       y,
			W:       noteBoxWidth,
			H:       h,
			Lines:   lines,
			AnchorX: note.X * geo.Width,
			AnchorY: note.Y * geo.Height,
		})
		y += h + noteGap
	}
	return boxes
}

// drawNotes renders sticky note boxes with connector lines to their anchors
func drawNotes(pdf *fpdf.Fpdf, notes []model.Note, geo model.PageGeometry) {
	if len(notes) == 0 {
		return
	}

	boxes := LayoutNotes(notes, geo, pdf.GetStringWidth)
	c := model.ColorNoteRef

	for _, box := range boxes {
		pdf.SetAlpha(1, "Normal")
		pdf.SetDrawColor(180, 160, 60)
		pdf.SetLineWidth(0.5)
		pdf.Line(box.X, box.Y+box.H/2, box.AnchorX, box.AnchorY)

		pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
		pdf.Rect(box.X, box.Y, box.W, box.H, "FD")

		pdf.SetTextColor(60, 50, 10)
		ty := box.Y + noteBoxPadding + noteLineHeight*0.8
		for _, line := range box.Lines {
			pdf.Text(box.X+noteBoxPadding, ty, line)
			ty += noteLineHeight
		}
	}
}
