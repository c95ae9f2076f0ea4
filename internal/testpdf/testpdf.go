// Package testpdf assembles small, well-formed PDF files for tests: a
// catalog, a page tree, a shared Helvetica font and one content stream per
// page, indexed by a classic xref table.
package testpdf

import (
	"bytes"
	"fmt"
)

// PageSize is the media box applied to every built page
var PageSize = [2]float64{612, 792}

// Build produces a document with one page per content stream. Content
// strings are raw content-stream syntax, e.g.
// "BT /F1 12 Tf 72 700 Td (Hello) Tj ET".
func Build(pageContents ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	pageCount := len(pageContents)
	// 1 catalog, 2 pages root, 3 font, then (page, contents) pairs
	objCount := 3 + 2*pageCount
	offsets := make([]int, objCount+1)

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")

	var kids bytes.Buffer
	for i := 0; i < pageCount; i++ {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(&kids, "%d 0 R", 4+2*i)
	}
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), pageCount))

	writeObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i, content := range pageContents {
		pageNum := 4 + 2*i
		contentNum := pageNum + 1
		writeObj(pageNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			PageSize[0], PageSize[1], contentNum))
		writeObj(contentNum, fmt.Sprintf(
			"<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", objCount+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= objCount; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", objCount+1, xrefStart)

	return buf.Bytes()
}
