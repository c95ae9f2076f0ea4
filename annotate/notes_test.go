package annotate

import (
	"strings"
	"testing"

	"github.com/tsawler/marginalia/model"
)

// fixedWidth measures 5 points per character
func fixedWidth(s string) float64 {
	return float64(len(s)) * 5
}

func TestWrapTextFitsWidth(t *testing.T) {
	got := WrapText("the quick brown fox jumps", 60, fixedWidth)

	for _, line := range got {
		if fixedWidth(line) > 60 {
			t.Errorf("line %q exceeds the width limit", line)
		}
	}
	if joined := strings.Join(got, " "); joined != "the quick brown fox jumps" {
		t.Errorf("wrapping lost words: %q", joined)
	}
}

func TestWrapTextLongWordGetsOwnLine(t *testing.T) {
	got := WrapText("a extraordinarily b", 40, fixedWidth)
	if len(got) != 3 {
		t.Fatalf("got %d lines: %v", len(got), got)
	}
	if got[1] != "extraordinarily" {
		t.Errorf("middle line = %q", got[1])
	}
}

func TestWrapTextEmpty(t *testing.T) {
	if got := WrapText("   ", 100, fixedWidth); got != nil {
		t.Errorf("expected nil for blank text, got %v", got)
	}
}

func TestLayoutNotesStacksDownward(t *testing.T) {
	geo := model.PageGeometry{Width: 612, Height: 792}
	notes := []model.Note{
		{ID: "a", Page: 0, X: 0.2, Y: 0.3, Text: "first note"},
		{ID: "b", Page: 0, X: 0.4, Y: 0.6, Text: "second note with a longer body that wraps"},
		{ID: "c", Page: 0, X: 0.1, Y: 0.9, Text: "third"},
	}

	boxes := LayoutNotes(notes, geo, fixedWidth)
	if len(boxes) != 3 {
		t.Fatalf("got %d boxes", len(boxes))
	}

	// First box starts at the top margin; each later box sits below the
	// previous one
	if boxes[0].Y != noteTopMargin {
		t.Errorf("first box y = %v, want %v", boxes[0].Y, noteTopMargin)
	}
	for i := 1; i < len(boxes); i++ {
		if boxes[i].Y < boxes[i-1].Y+boxes[i-1].H {
			t.Errorf("box %d overlaps its predecessor", i)
		}
	}

	// Boxes sit in the right margin
	for i, box := range boxes {
		if box.X+box.W > geo.Width {
			t.Errorf("box %d extends past the page edge", i)
		}
	}

	// Anchors scale from the normalized note position
	if boxes[0].AnchorX != 0.2*612 || boxes[0].AnchorY != 0.3*792 {
		t.Errorf("anchor = (%v, %v)", boxes[0].AnchorX, boxes[0].AnchorY)
	}
}

func TestBasicWidthFuncMonotone(t *testing.T) {
	width := BasicWidthFunc()
	short := width("abc")
	long := width("abcdef")
	if short <= 0 {
		t.Errorf("width of abc = %v", short)
	}
	if long <= short {
		t.Errorf("longer string should measure wider: %v vs %v", short, long)
	}
}
