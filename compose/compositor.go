// Package compose merges the three highlight sources — phrase matches,
// manual rectangles and note back-references — into per-page draw
// instructions for the annotation writer.
package compose

import (
	"sort"

	"github.com/tsawler/marginalia/model"
)

// Instruction is one rectangle to draw, fully resolved: clamped into the
// unit square, colored, and tagged for interactivity
type Instruction struct {
	Rect  model.Rect
	Color model.Color

	// Interactive is false for note back-reference rectangles, which must
	// not present a click target
	Interactive bool

	// Label carries the text a native annotation stores as its contents:
	// the matched phrase or the note text
	Label string
}

// PageInstructions is the ordered instruction list for one page
type PageInstructions struct {
	Page  int
	Rects []Instruction
	Notes []model.Note
}

// Input gathers everything one export composites
type Input struct {
	Matches  []model.Match
	Manual   []model.Rect
	Notes    []model.Note
	NoteRefs []model.Rect
}

// Compose builds per-page instruction lists, ordered by page index. Within
// a page the three sources concatenate in a fixed order: phrase matches,
// then manual rectangles, then note references. Overlapping rectangles from
// different provenances are all retained; a manual highlight and a phrase
// match over the same text stay separately identifiable objects.
func Compose(in Input) []PageInstructions {
	byPage := make(map[int]*PageInstructions)
	page := func(idx int) *PageInstructions {
		p, ok := byPage[idx]
		if !ok {
			p = &PageInstructions{Page: idx}
			byPage[idx] = p
		}
		return p
	}

	for _, match := range in.Matches {
		for _, rect := range match.Rects {
			if inst, ok := instruction(rect, match.Phrase); ok {
				page(rect.Page).Rects = append(page(rect.Page).Rects, inst)
			}
		}
	}

	for _, rect := range in.Manual {
		if inst, ok := instruction(rect, ""); ok {
			page(rect.Page).Rects = append(page(rect.Page).Rects, inst)
		}
	}

	// Note references are only drawn while their note is still alive, so a
	// deleted note takes its back-reference rectangles with it
	noteText := make(map[string]string, len(in.Notes))
	for _, note := range in.Notes {
		noteText[note.ID] = note.Text
	}
	for _, rect := range in.NoteRefs {
		text, alive := noteText[rect.NoteID]
		if !alive {
			continue
		}
		if inst, ok := instruction(rect, text); ok {
			page(rect.Page).Rects = append(page(rect.Page).Rects, inst)
		}
	}

	for _, note := range in.Notes {
		page(note.Page).Notes = append(page(note.Page).Notes, note)
	}

	result := make([]PageInstructions, 0, len(byPage))
	for _, p := range byPage {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Page < result[j].Page })
	return result
}

// instruction clamps and resolves one rectangle. Non-finite geometry is
// dropped here and never reaches the writer.
func instruction(rect model.Rect, label string) (Instruction, bool) {
	if !rect.IsFinite() {
		return Instruction{}, false
	}
	return Instruction{
		Rect:        rect.Clamp(),
		Color:       rect.EffectiveColor(),
		Interactive: rect.Provenance != model.NoteRef,
		Label:       label,
	}, true
}
