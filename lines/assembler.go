// Package lines reconstructs visual lines from the unordered glyph runs a
// page scan produces. Lines exist only within a single page's processing
// window and are discarded after matching.
package lines

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/bidi"

	"github.com/tsawler/marginalia/model"
)

// DefaultEpsilon is the vertical tolerance, in page units, within which two
// runs are considered to share a line
const DefaultEpsilon = 3.0

// Line is an ordered sequence of glyph runs sharing a vertical band,
// sorted left-to-right
type Line struct {
	Runs []model.GlyphRun

	// Top is the representative page-space top coordinate of the line
	Top float64

	// Dir is the dominant text direction, populated by Assemble. Geometry
	// handling does not depend on it; it is carried into match output for
	// preview consumers.
	Dir bidi.Direction
}

// Segment maps a half-open rune range of the line's concatenated text back
// to the run it came from
type Segment struct {
	RunIndex  int
	CharStart int
	CharLen   int
}

// Text returns the concatenated text of the line's runs in visual order
func (l Line) Text() string {
	var sb strings.Builder
	for _, r := range l.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Segments returns the rune-offset map from line text to runs
func (l Line) Segments() []Segment {
	segs := make([]Segment, 0, len(l.Runs))
	offset := 0
	for i, r := range l.Runs {
		n := len([]rune(r.Text))
		segs = append(segs, Segment{RunIndex: i, CharStart: offset, CharLen: n})
		offset += n
	}
	return segs
}

// Direction computes the dominant text direction of the line's text.
// Mixed-script lines report bidi.Mixed.
func (l Line) Direction() bidi.Direction {
	var p bidi.Paragraph
	if _, err := p.SetString(l.Text()); err != nil {
		return bidi.LeftToRight
	}
	return p.Direction()
}

// Assemble groups a page's glyph runs into visual lines. When the run list
// carries explicit line-break markers they drive the grouping; otherwise
// runs are clustered by top-coordinate proximity within epsilon. Both
// signals must be supported because upstream extraction may supply either.
// An empty run list yields an empty line list.
func Assemble(runs []model.GlyphRun, epsilon float64) []Line {
	if len(runs) == 0 {
		return nil
	}
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}

	var result []Line
	if hasBreakMarkers(runs) {
		result = groupByMarkers(runs)
	} else {
		result = clusterByTop(runs, epsilon)
	}

	for i := range result {
		sortLeftToRight(result[i].Runs)
		result[i].Top = lineTop(result[i].Runs)
		result[i].Dir = result[i].Direction()
	}
	return result
}

func hasBreakMarkers(runs []model.GlyphRun) bool {
	for _, r := range runs {
		if r.HasLineBreak {
			return true
		}
	}
	return false
}

// groupByMarkers flushes the current line at every break marker
func groupByMarkers(runs []model.GlyphRun) []Line {
	var result []Line
	var current []model.GlyphRun

	for _, r := range runs {
		current = append(current, r)
		if r.HasLineBreak {
			result = append(result, Line{Runs: current})
			current = nil
		}
	}
	if len(current) > 0 {
		result = append(result, Line{Runs: current})
	}
	return result
}

// clusterByTop groups runs whose top coordinates fall within epsilon of an
// existing line's top. Runs arrive in extraction order, which need not be
// top-to-bottom, so each run searches all open lines.
func clusterByTop(runs []model.GlyphRun, epsilon float64) []Line {
	var result []Line
	tops := make([]float64, 0, 8)

	for _, r := range runs {
		top := r.Top()
		placed := false
		for i, t := range tops {
			if abs(top-t) <= epsilon {
				result[i].Runs = append(result[i].Runs, r)
				placed = true
				break
			}
		}
		if !placed {
			result = append(result, Line{Runs: []model.GlyphRun{r}})
			tops = append(tops, top)
		}
	}
	return result
}

// sortLeftToRight orders runs by their page-space x position so that
// out-of-order extraction (justified or RTL-mixed layouts) still yields a
// left-to-right searchable string
func sortLeftToRight(runs []model.GlyphRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		xi, _ := runs[i].Affine.Position()
		xj, _ := runs[j].Affine.Position()
		return xi < xj
	})
}

func lineTop(runs []model.GlyphRun) float64 {
	var top float64
	for i, r := range runs {
		if t := r.Top(); i == 0 || t > top {
			top = t
		}
	}
	return top
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
