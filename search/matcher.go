// Package search finds literal phrase occurrences inside assembled visual
// lines and maps them back to on-page geometry.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/bidi"

	"github.com/tsawler/marginalia/coords"
	"github.com/tsawler/marginalia/lines"
	"github.com/tsawler/marginalia/model"
)

// Options controls phrase matching behavior
type Options struct {
	// CaseSensitive disables the default case folding
	CaseSensitive bool

	// WholeWord rejects matches whose neighboring characters are word
	// characters
	WholeWord bool
}

// Matcher finds occurrences of a fixed phrase list. Phrases are trimmed and
// case-folded once at construction; an empty phrase after trimming is
// skipped silently.
type Matcher struct {
	opts    Options
	phrases []preparedPhrase
}

type preparedPhrase struct {
	original string
	needle   []rune
}

// NewMatcher prepares a matcher for the given phrases. Caller-supplied
// order is preserved: it is the tie-break order for reporting matches.
func NewMatcher(phrases []string, opts Options) *Matcher {
	m := &Matcher{opts: opts}
	for _, p := range phrases {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		needle := []rune(trimmed)
		if !opts.CaseSensitive {
			needle = foldRunes(needle)
		}
		m.phrases = append(m.phrases, preparedPhrase{original: trimmed, needle: needle})
	}
	return m
}

// Empty reports whether no usable phrases remain after preparation
func (m *Matcher) Empty() bool {
	return len(m.phrases) == 0
}

// MatchPage scans one page's visual lines and returns matches in phrase
// order, then line order, then left-to-right. Running twice on identical
// input yields identical ordered results.
func (m *Matcher) MatchPage(pageIndex int, pageLines []lines.Line, geo model.PageGeometry) []model.Match {
	if geo.IsDegenerate() {
		return nil
	}

	var matches []model.Match
	for _, phrase := range m.phrases {
		for _, line := range pageLines {
			matches = append(matches, m.matchLine(pageIndex, phrase, line, geo)...)
		}
	}
	return matches
}

// matchLine scans one line with a moving cursor, so matches of the same
// phrase may be adjacent but never overlap each other
func (m *Matcher) matchLine(pageIndex int, phrase preparedPhrase, line lines.Line, geo model.PageGeometry) []model.Match {
	haystack := []rune(line.Text())
	if !m.opts.CaseSensitive {
		haystack = foldRunes(haystack)
	}

	segs := line.Segments()
	var matches []model.Match

	cursor := 0
	for {
		start := runeIndex(haystack, phrase.needle, cursor)
		if start < 0 {
			break
		}
		end := start + len(phrase.needle)
		cursor = end

		if m.opts.WholeWord && !atWordBoundary(haystack, start, end) {
			continue
		}

		rect, ok := resolveRect(line, segs, start, end, geo)
		if !ok {
			continue
		}
		rect.Page = pageIndex
		rect.Provenance = model.Phrase

		matches = append(matches, model.Match{
			Page:      pageIndex,
			Phrase:    phrase.original,
			CharStart: start,
			CharLen:   end - start,
			Rects:     []model.Rect{rect},
			RTL:       line.Dir == bidi.RightToLeft,
		})
	}
	return matches
}

// resolveRect maps the rune span [start, end) back to a page rectangle.
// The x-origin interpolates proportionally within the first contributing
// run by character-offset ratio; the width sums proportional widths across
// all contributing runs; the height is the tallest contributing run's.
// This is an even per-character approximation, deliberately ignoring
// per-glyph kerning.
func resolveRect(line lines.Line, segs []lines.Segment, start, end int, geo model.PageGeometry) (model.Rect, bool) {
	var (
		x, width, height float64
		bottom           float64
		first            = true
	)

	for _, seg := range segs {
		segEnd := seg.CharStart + seg.CharLen
		if segEnd <= start || seg.CharStart >= end || seg.CharLen == 0 {
			continue
		}
		run := line.Runs[seg.RunIndex]
		perChar := run.Width / float64(seg.CharLen)

		from := max(start, seg.CharStart)
		to := min(end, segEnd)
		covered := float64(to-from) * perChar

		runX, runY := run.Affine.Position()
		if first {
			x = runX + float64(from-seg.CharStart)*perChar
			bottom = runY
			first = false
		} else if runY < bottom {
			bottom = runY
		}
		width += covered
		if h := run.Height(); h > height {
			height = h
		}
	}

	if first {
		return model.Rect{}, false
	}

	rect := coords.ToNormalized(coords.PointRect{X: x, Y: bottom, W: width, H: height}, geo)
	if !rect.IsFinite() {
		// Non-finite geometry is dropped here, never written
		return model.Rect{}, false
	}
	return rect, true
}

// runeIndex finds needle in haystack at or after from, by rune offset
func runeIndex(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		if haystack[i] != needle[0] {
			continue
		}
		match := true
		for j := 1; j < len(needle); j++ {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// atWordBoundary reports whether both neighbors of [start, end) are
// non-word characters or line boundaries
func atWordBoundary(haystack []rune, start, end int) bool {
	if start > 0 && isWordRune(haystack[start-1]) {
		return false
	}
	if end < len(haystack) && isWordRune(haystack[end]) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func foldRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}
