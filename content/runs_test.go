package content

import (
	"math"
	"testing"

	"github.com/tsawler/marginalia/core"
	"github.com/tsawler/marginalia/model"
)

func extract(t *testing.T, stream string) []Operation {
	t.Helper()
	ops, err := ParseOperations([]byte(stream))
	if err != nil {
		t.Fatalf("ParseOperations: %v", err)
	}
	return ops
}

func TestParseOperations(t *testing.T) {
	ops := extract(t, "BT /F1 12 Tf 72 700 Td (Hi) Tj ET")

	wantOps := []string{"BT", "Tf", "Td", "Tj", "ET"}
	if len(ops) != len(wantOps) {
		t.Fatalf("got %d operations, want %d", len(ops), len(wantOps))
	}
	for i, want := range wantOps {
		if ops[i].Operator != want {
			t.Errorf("op %d = %q, want %q", i, ops[i].Operator, want)
		}
	}

	if name, ok := ops[1].Operand(0).(core.Name); !ok || name != "F1" {
		t.Errorf("Tf operand 0 = %v", ops[1].Operand(0))
	}
	if v, ok := ops[1].Number(1); !ok || v != 12 {
		t.Errorf("Tf operand 1 = %v", ops[1].Operand(1))
	}
}

func TestParseOperationsSkipsInlineImage(t *testing.T) {
	ops := extract(t, "q BI /W 2 /H 2 ID \x00\x01\x02\x03 EI Q BT ET")

	var names []string
	for _, op := range ops {
		names = append(names, op.Operator)
	}
	// The inline image body vanishes; the surrounding operators survive
	found := false
	for _, n := range names {
		if n == "BT" {
			found = true
		}
	}
	if !found {
		t.Errorf("BT lost after inline image skip: %v", names)
	}
}

func TestParseOperationsTJArray(t *testing.T) {
	ops := extract(t, "[(A) -120 (B)] TJ")
	if len(ops) != 1 || ops[0].Operator != "TJ" {
		t.Fatalf("ops = %+v", ops)
	}
	arr, ok := ops[0].Operand(0).(core.Array)
	if !ok || arr.Len() != 3 {
		t.Fatalf("TJ operand = %v", ops[0].Operand(0))
	}
}

func TestExtractRunsPositionsAndBreaks(t *testing.T) {
	// Two lines shown with Td advances; no font resources, so widths use
	// the per-character estimate
	stream := "BT /F1 12 Tf 72 700 Td (Hello world) Tj 0 -14 Td (Second) Tj ET"

	runs, err := ExtractRuns([]byte(stream), nil, nil)
	if err != nil {
		t.Fatalf("ExtractRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}

	first := runs[0]
	if first.Text != "Hello world" {
		t.Errorf("first run text = %q", first.Text)
	}
	x, y := first.Affine.Position()
	if x != 72 || y != 700 {
		t.Errorf("first run at (%v, %v), want (72, 700)", x, y)
	}
	if h := first.Height(); math.Abs(h-12) > 1e-9 {
		t.Errorf("first run height = %v, want 12", h)
	}
	// 11 characters at the 500/1000 estimate and 12pt font: 66 units
	if math.Abs(first.Width-66) > 1e-9 {
		t.Errorf("first run width = %v, want 66", first.Width)
	}
	if !first.HasLineBreak {
		t.Error("run before a Td advance must carry the line-break mark")
	}

	second := runs[1]
	_, y2 := second.Affine.Position()
	if y2 != 686 {
		t.Errorf("second run y = %v, want 686", y2)
	}
	if !second.HasLineBreak {
		t.Error("final run before ET must carry the line-break mark")
	}
}

func TestExtractRunsTJAdjustments(t *testing.T) {
	stream := "BT /F1 10 Tf 0 0 Td [(AB) -500 (CD)] TJ ET"
	runs, err := ExtractRuns([]byte(stream), nil, nil)
	if err != nil {
		t.Fatalf("ExtractRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}

	// AB: 2 chars * 0.5 * 10 = 10 wide; the -500 adjustment advances a
	// further 5 units before CD
	x2, _ := runs[1].Affine.Position()
	if math.Abs(x2-15) > 1e-9 {
		t.Errorf("second run x = %v, want 15", x2)
	}
}

func TestExtractRunsScaledTextMatrix(t *testing.T) {
	stream := "BT /F1 1 Tf 24 0 0 24 100 500 Tm (X) Tj ET"
	runs, err := ExtractRuns([]byte(stream), nil, nil)
	if err != nil {
		t.Fatalf("ExtractRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs", len(runs))
	}

	// Font size 1 scaled by a 24x text matrix gives a 24-unit run height
	if h := runs[0].Height(); math.Abs(h-24) > 1e-9 {
		t.Errorf("run height = %v, want 24", h)
	}
	x, y := runs[0].Affine.Position()
	if x != 100 || y != 500 {
		t.Errorf("run at (%v, %v)", x, y)
	}
}

func TestGraphicsStateStack(t *testing.T) {
	s := NewState()
	s.Concat(mustMatrix(2, 0, 0, 2, 0, 0))
	s.Push()
	s.Concat(mustMatrix(1, 0, 0, 1, 50, 50))

	s.Pop()
	if got := s.Current().CTM; got != mustMatrix(2, 0, 0, 2, 0, 0) {
		t.Errorf("CTM after pop = %v", got)
	}

	// Unbalanced Q is ignored
	s.Pop()
	s.Pop()
}

func mustMatrix(a, b, c, d, e, f float64) model.Matrix {
	return model.Matrix{a, b, c, d, e, f}
}
