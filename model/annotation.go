package model

// GlyphRun is a contiguous string rendered with one affine transform, as
// reported by page text-layout extraction. Runs are transient: they exist
// only while a single page is being scanned.
type GlyphRun struct {
	// Text is the decoded string for this run
	Text string

	// Width is the advance width of the run in page units
	Width float64

	// Affine maps run-local coordinates into page space
	Affine Matrix

	// HasLineBreak marks the last run before an explicit line advance
	// in the content stream (T*, Td, TD, ' or ")
	HasLineBreak bool
}

// Top returns the page-space top coordinate of the run
func (g GlyphRun) Top() float64 {
	_, y := g.Affine.Position()
	return y + g.Affine.RunHeight()
}

// Height returns the rotation-invariant run height
func (g GlyphRun) Height() float64 {
	return g.Affine.RunHeight()
}

// PageGeometry holds a page's dimensions in point units. All scale
// conversions are relative to these values.
type PageGeometry struct {
	Width  float64
	Height float64
}

// IsDegenerate reports whether the page has zero (or negative) extent in
// either dimension. Degenerate pages are skipped, not fatal.
func (g PageGeometry) IsDegenerate() bool {
	return g.Width <= 0 || g.Height <= 0
}

// Color is an RGB color with 8-bit components
type Color struct {
	R, G, B uint8
}

// Provenance distinguishes why a rectangle exists. It is immutable once a
// rectangle is created and drives color and interactivity defaults.
type Provenance int

const (
	// Manual marks a hand-drawn highlight rectangle
	Manual Provenance = iota
	// Phrase marks a rectangle resolved from a phrase match
	Phrase
	// NoteRef marks a rectangle back-referencing a margin note
	NoteRef
)

// String returns a string representation of the provenance
func (p Provenance) String() string {
	switch p {
	case Manual:
		return "manual"
	case Phrase:
		return "phrase"
	case NoteRef:
		return "noteref"
	default:
		return "unknown"
	}
}

// Default colors by provenance.
var (
	ColorManual  = Color{R: 59, G: 130, B: 246}  // blue
	ColorPhrase  = Color{R: 20, G: 184, B: 166}  // teal
	ColorNoteRef = Color{R: 254, G: 240, B: 138} // pale yellow
)

// DefaultColor returns the provenance's default color
func (p Provenance) DefaultColor() Color {
	switch p {
	case Phrase:
		return ColorPhrase
	case NoteRef:
		return ColorNoteRef
	default:
		return ColorManual
	}
}

// Rect is a highlight rectangle in the canonical interchange form:
// normalized [0,1] fractions of page width/height with top-left origin.
type Rect struct {
	Page       int
	X, Y, W, H float64

	// Provenance is fixed at creation time
	Provenance Provenance

	// Color overrides the provenance default when set
	Color *Color

	// NoteID is the back-reference for NoteRef rectangles
	NoteID string
}

// EffectiveColor returns the explicit color if set, else the provenance
// default.
func (r Rect) EffectiveColor() Color {
	if r.Color != nil {
		return *r.Color
	}
	return r.Provenance.DefaultColor()
}

// IsFinite reports whether all four components are finite numbers
func (r Rect) IsFinite() bool {
	return isFinite(r.X) && isFinite(r.Y) && isFinite(r.W) && isFinite(r.H)
}

// Clamp returns a copy clamped into the unit square so that
// 0 <= x,y and x+w <= 1, y+h <= 1.
func (r Rect) Clamp() Rect {
	c := r
	if c.X < 0 {
		c.W += c.X
		c.X = 0
	}
	if c.Y < 0 {
		c.H += c.Y
		c.Y = 0
	}
	if c.X > 1 {
		c.X = 1
	}
	if c.Y > 1 {
		c.Y = 1
	}
	if c.X+c.W > 1 {
		c.W = 1 - c.X
	}
	if c.Y+c.H > 1 {
		c.H = 1 - c.Y
	}
	if c.W < 0 {
		c.W = 0
	}
	if c.H < 0 {
		c.H = 0
	}
	return c
}

// Note is a margin note anchored to a normalized, top-left-origin point.
type Note struct {
	ID   string
	Page int
	X, Y float64
	Text string
}

// Match is one literal occurrence of a phrase on a page, together with the
// resolved rectangle(s). A match within one visual line resolves to exactly
// one rectangle; a match crossing a line break carries one per line.
type Match struct {
	Page      int
	Phrase    string
	CharStart int
	CharLen   int
	Rects     []Rect

	// RTL reports that the matched line reads right to left. It does not
	// affect geometry; preview renderers use it to align excerpt text.
	RTL bool
}
