package reader

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tsawler/marginalia/core"
	"github.com/tsawler/marginalia/internal/testpdf"
)

func TestOpenRejectsNonPDF(t *testing.T) {
	if _, err := Open([]byte("this is not a document")); err == nil {
		t.Error("expected an error for a missing header")
	}
}

func TestOpenMinimalDocument(t *testing.T) {
	data := testpdf.Build(
		"BT /F1 12 Tf 72 700 Td (Page one) Tj ET",
		"BT /F1 12 Tf 72 700 Td (Page two) Tj ET",
		"BT /F1 12 Tf 72 700 Td (Page three) Tj ET",
	)

	doc, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := doc.PageCount(); got != 3 {
		t.Fatalf("PageCount = %d, want 3", got)
	}

	geo, err := doc.PageGeometry(0)
	if err != nil {
		t.Fatalf("PageGeometry: %v", err)
	}
	if geo.Width != 612 || geo.Height != 792 {
		t.Errorf("geometry = %+v", geo)
	}

	if _, err := doc.Page(3); err == nil {
		t.Error("expected an error for an out-of-range page index")
	}
}

func TestPageContentsDecode(t *testing.T) {
	content := "BT /F1 12 Tf 72 700 Td (Hello) Tj ET"
	doc, err := Open(testpdf.Build(content))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	page, err := doc.Page(0)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	got, err := page.Contents()
	if err != nil {
		t.Fatalf("Contents: %v", err)
	}
	if !strings.Contains(string(got), "(Hello) Tj") {
		t.Errorf("contents = %q", got)
	}
}

func TestPageResources(t *testing.T) {
	doc, err := Open(testpdf.Build("BT ET"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	page, _ := doc.Page(0)

	res, err := page.Resources()
	if err != nil {
		t.Fatalf("Resources: %v", err)
	}
	fonts, ok := res.GetDict("Font")
	if !ok {
		t.Fatalf("resources have no /Font: %v", res)
	}
	if !fonts.Has("F1") {
		t.Error("expected /F1 font resource")
	}
}

func TestDataIsRetainedNotCopied(t *testing.T) {
	data := testpdf.Build("BT ET")
	doc, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(doc.Data(), data) {
		t.Error("Data() should return the original buffer")
	}
}

func TestResolveMissingObjectYieldsNull(t *testing.T) {
	doc, err := Open(testpdf.Build("BT ET"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	obj, err := doc.Resolve(core.IndirectRef{Number: 999})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := obj.(core.Null); !ok {
		t.Errorf("expected null for a missing object, got %v", obj)
	}
}
