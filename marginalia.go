// Package marginalia resolves phrase occurrences in PDF page text to exact
// on-page rectangles and writes them back as highlights, margin notes and
// native markup annotations. Documents are read and annotated entirely in
// memory; the input buffer is never mutated.
package marginalia

import (
	"fmt"
	"io"
	"os"
)

// sourceKind tags the variant a Source holds
type sourceKind int

const (
	sourceBytes sourceKind = iota
	sourceFile
	sourceReader
)

// Source identifies where the input document comes from. The variant is
// resolved to a byte buffer exactly once, at the export boundary; core
// logic never re-inspects it.
type Source struct {
	kind   sourceKind
	data   []byte
	path   string
	reader io.Reader
}

// FromBytes wraps an in-memory document buffer
func FromBytes(data []byte) Source {
	return Source{kind: sourceBytes, data: data}
}

// FromFile reads the document from a file path at export time
func FromFile(path string) Source {
	return Source{kind: sourceFile, path: path}
}

// FromReader drains the document from a reader at export time
func FromReader(r io.Reader) Source {
	return Source{kind: sourceReader, reader: r}
}

// resolve produces the document bytes for this source
func (s Source) resolve() ([]byte, error) {
	switch s.kind {
	case sourceBytes:
		if len(s.data) == 0 {
			return nil, fmt.Errorf("empty document buffer")
		}
		return s.data, nil
	case sourceFile:
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.path, err)
		}
		return data, nil
	case sourceReader:
		if s.reader == nil {
			return nil, fmt.Errorf("nil reader source")
		}
		data, err := io.ReadAll(s.reader)
		if err != nil {
			return nil, fmt.Errorf("draining reader source: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown source kind %d", s.kind)
	}
}
