package compose

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tsawler/marginalia/model"
)

func phraseMatch(page int, phrase string, rect model.Rect) model.Match {
	rect.Page = page
	rect.Provenance = model.Phrase
	return model.Match{Page: page, Phrase: phrase, Rects: []model.Rect{rect}}
}

func TestOverlappingSourcesNotMerged(t *testing.T) {
	// A manual rect and a phrase match over the same region must both
	// appear as separate instructions
	region := model.Rect{X: 0.1, Y: 0.1, W: 0.2, H: 0.05}

	manual := region
	manual.Provenance = model.Manual

	out := Compose(Input{
		Matches: []model.Match{phraseMatch(0, "hello", region)},
		Manual:  []model.Rect{manual},
	})

	if len(out) != 1 {
		t.Fatalf("expected 1 page, got %d", len(out))
	}
	if got := len(out[0].Rects); got != 2 {
		t.Fatalf("expected 2 separate instructions, got %d", got)
	}

	// Phrase first, then manual, with their respective default colors
	if out[0].Rects[0].Color != model.ColorPhrase {
		t.Errorf("first instruction color = %+v, want phrase default", out[0].Rects[0].Color)
	}
	if out[0].Rects[1].Color != model.ColorManual {
		t.Errorf("second instruction color = %+v, want manual default", out[0].Rects[1].Color)
	}
}

func TestAllRectsClampedIntoUnitSquare(t *testing.T) {
	out := Compose(Input{
		Manual: []model.Rect{
			{Page: 0, X: -0.2, Y: 0.5, W: 0.5, H: 0.1, Provenance: model.Manual},
			{Page: 0, X: 0.9, Y: 0.95, W: 0.3, H: 0.3, Provenance: model.Manual},
		},
	})

	for _, pi := range out {
		for _, inst := range pi.Rects {
			r := inst.Rect
			if r.X < 0 || r.Y < 0 || r.X+r.W > 1+1e-9 || r.Y+r.H > 1+1e-9 {
				t.Errorf("instruction rect %+v escapes the unit square", r)
			}
		}
	}
}

func TestNonFiniteRectsDropped(t *testing.T) {
	out := Compose(Input{
		Manual: []model.Rect{
			{Page: 0, X: math.NaN(), Y: 0, W: 0.1, H: 0.1, Provenance: model.Manual},
			{Page: 0, X: 0.1, Y: math.Inf(1), W: 0.1, H: 0.1, Provenance: model.Manual},
		},
	})
	if len(out) != 1 || len(out[0].Rects) != 0 {
		t.Errorf("non-finite rects must not produce instructions: %+v", out)
	}
}

func TestNoteRefNonInteractive(t *testing.T) {
	out := Compose(Input{
		Notes: []model.Note{{ID: "n1", Page: 0, X: 0.5, Y: 0.5, Text: "margin note"}},
		NoteRefs: []model.Rect{
			{Page: 0, X: 0.1, Y: 0.1, W: 0.1, H: 0.05, Provenance: model.NoteRef, NoteID: "n1"},
		},
	})

	if len(out) != 1 || len(out[0].Rects) != 1 {
		t.Fatalf("expected 1 noteref instruction, got %+v", out)
	}
	inst := out[0].Rects[0]
	if inst.Interactive {
		t.Error("noteref instructions must be non-interactive")
	}
	if inst.Label != "margin note" {
		t.Errorf("noteref label = %q, want the note text", inst.Label)
	}
	if inst.Color != model.ColorNoteRef {
		t.Errorf("noteref color = %+v", inst.Color)
	}
}

func TestDeletedNoteDropsItsRefs(t *testing.T) {
	refs := []model.Rect{
		{Page: 0, X: 0.1, Y: 0.1, W: 0.1, H: 0.05, Provenance: model.NoteRef, NoteID: "gone"},
		{Page: 0, X: 0.3, Y: 0.1, W: 0.1, H: 0.05, Provenance: model.NoteRef, NoteID: "kept"},
	}
	out := Compose(Input{
		Notes:    []model.Note{{ID: "kept", Page: 0, Text: "still here"}},
		NoteRefs: refs,
	})

	if len(out) != 1 {
		t.Fatalf("expected 1 page, got %d", len(out))
	}
	if got := len(out[0].Rects); got != 1 {
		t.Fatalf("refs of a deleted note must vanish, got %d instructions", got)
	}
	if out[0].Rects[0].Label != "still here" {
		t.Errorf("surviving ref label = %q", out[0].Rects[0].Label)
	}
}

func TestPagesOrderedAndGrouped(t *testing.T) {
	out := Compose(Input{
		Manual: []model.Rect{
			{Page: 2, X: 0.1, Y: 0.1, W: 0.1, H: 0.1, Provenance: model.Manual},
			{Page: 0, X: 0.1, Y: 0.1, W: 0.1, H: 0.1, Provenance: model.Manual},
			{Page: 2, X: 0.2, Y: 0.2, W: 0.1, H: 0.1, Provenance: model.Manual},
		},
	})

	var gotPages []int
	for _, pi := range out {
		gotPages = append(gotPages, pi.Page)
	}
	if diff := cmp.Diff([]int{0, 2}, gotPages); diff != "" {
		t.Errorf("page order (-want +got):\n%s", diff)
	}
	if len(out[1].Rects) != 2 {
		t.Errorf("expected 2 instructions on page 2, got %d", len(out[1].Rects))
	}
}
