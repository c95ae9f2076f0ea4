package core

import (
	"bytes"
	"fmt"
	"strconv"
)

// XRefEntryType describes where an object lives
type XRefEntryType int

const (
	// XRefFree marks a free entry
	XRefFree XRefEntryType = iota
	// XRefInUse marks an object stored at a byte offset in the file
	XRefInUse
	// XRefInObjectStream marks an object stored inside an object stream
	XRefInObjectStream
)

// XRefEntry is one cross-reference entry
type XRefEntry struct {
	Type       XRefEntryType
	Offset     int // byte offset for XRefInUse
	Generation int
	StreamNum  int // containing object stream number for XRefInObjectStream
	StreamIdx  int // index within that object stream
}

// XRefTable holds the merged cross-reference data and trailer for a document
type XRefTable struct {
	Entries map[int]XRefEntry
	Trailer Dict

	// MaxObjectNumber is the highest object number seen, used when
	// appending new objects in an incremental update
	MaxObjectNumber int

	// StartOffset is the byte offset of the most recent xref section,
	// written as /Prev by the incremental-update writer
	StartOffset int
}

// LoadXRef locates the startxref pointer at the end of the buffer and loads
// the full cross-reference chain, following /Prev (and hybrid /XRefStm)
// links. Entries from newer sections shadow older ones.
func LoadXRef(data []byte) (*XRefTable, error) {
	start, err := findStartXRef(data)
	if err != nil {
		return nil, err
	}

	table := &XRefTable{
		Entries:     make(map[int]XRefEntry),
		StartOffset: start,
	}

	seen := make(map[int]bool)
	offset := start
	for offset >= 0 {
		if seen[offset] {
			return nil, fmt.Errorf("circular xref chain at offset %d", offset)
		}
		seen[offset] = true

		prev, err := table.loadSection(data, offset)
		if err != nil {
			return nil, err
		}
		offset = prev
	}

	for num := range table.Entries {
		if num > table.MaxObjectNumber {
			table.MaxObjectNumber = num
		}
	}

	if table.Trailer == nil {
		return nil, fmt.Errorf("document has no trailer")
	}
	return table, nil
}

// findStartXRef scans the tail of the buffer for the startxref keyword
func findStartXRef(data []byte) (int, error) {
	tailLen := 1024
	if tailLen > len(data) {
		tailLen = len(data)
	}
	tail := data[len(data)-tailLen:]

	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref keyword not found")
	}

	lexer := NewLexerAt(data, len(data)-tailLen+idx+len("startxref"))
	tok, err := lexer.NextToken()
	if err != nil {
		return 0, fmt.Errorf("reading startxref offset: %w", err)
	}
	if tok.Type != TokenInteger {
		return 0, fmt.Errorf("startxref is not followed by an integer offset")
	}
	offset, err := strconv.Atoi(string(tok.Value))
	if err != nil || offset < 0 || offset >= len(data) {
		return 0, fmt.Errorf("startxref offset %q out of range", tok.Value)
	}
	return offset, nil
}

// loadSection loads one xref section (classic table or xref stream) at the
// given offset and returns the /Prev offset, or -1 when the chain ends.
func (t *XRefTable) loadSection(data []byte, offset int) (int, error) {
	lexer := NewLexerAt(data, offset)
	tok, err := lexer.NextToken()
	if err != nil {
		return 0, err
	}

	var trailer Dict
	if tok.Type == TokenKeyword && string(tok.Value) == "xref" {
		trailer, err = t.loadClassicTable(data, lexer)
	} else {
		trailer, err = t.loadXRefStream(data, offset)
	}
	if err != nil {
		return 0, err
	}

	if t.Trailer == nil {
		t.Trailer = trailer
	}

	// Hybrid files: a classic trailer may point at an xref stream holding
	// the compressed-object entries
	if stm, ok := trailer.GetInt("XRefStm"); ok {
		if _, err := t.loadXRefStream(data, int(stm)); err != nil {
			return 0, fmt.Errorf("loading hybrid xref stream: %w", err)
		}
	}

	if prev, ok := trailer.GetInt("Prev"); ok {
		return int(prev), nil
	}
	return -1, nil
}

// loadClassicTable parses a classic "xref" table followed by its trailer
func (t *XRefTable) loadClassicTable(data []byte, lexer *Lexer) (Dict, error) {
	for {
		tok, err := lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenKeyword && string(tok.Value) == "trailer" {
			break
		}
		if tok.Type != TokenInteger {
			return nil, fmt.Errorf("expected subsection start, got %q at %d", tok.Value, tok.Pos)
		}
		first, _ := strconv.Atoi(string(tok.Value))

		tok, err = lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type != TokenInteger {
			return nil, fmt.Errorf("expected subsection count, got %q at %d", tok.Value, tok.Pos)
		}
		count, _ := strconv.Atoi(string(tok.Value))

		for i := 0; i < count; i++ {
			offTok, err := lexer.NextToken()
			if err != nil {
				return nil, err
			}
			genTok, err := lexer.NextToken()
			if err != nil {
				return nil, err
			}
			kindTok, err := lexer.NextToken()
			if err != nil {
				return nil, err
			}

			num := first + i
			if _, exists := t.Entries[num]; exists {
				continue // newer section already defined this object
			}

			off, _ := strconv.Atoi(string(offTok.Value))
			gen, _ := strconv.Atoi(string(genTok.Value))
			switch string(kindTok.Value) {
			case "n":
				t.Entries[num] = XRefEntry{Type: XRefInUse, Offset: off, Generation: gen}
			case "f":
				t.Entries[num] = XRefEntry{Type: XRefFree, Generation: gen}
			default:
				return nil, fmt.Errorf("invalid xref entry kind %q at %d", kindTok.Value, kindTok.Pos)
			}
		}
	}

	parser := NewParserAt(data, lexer.Pos())
	obj, err := parser.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("parsing trailer: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is not a dictionary")
	}
	return trailer, nil
}

// loadXRefStream parses a cross-reference stream object at the given offset
func (t *XRefTable) loadXRefStream(data []byte, offset int) (Dict, error) {
	parser := NewParserAt(data, offset)
	ind, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("parsing xref stream object: %w", err)
	}
	stream, ok := ind.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("object at offset %d is not a stream", offset)
	}
	if typ, _ := stream.Dict.GetName("Type"); typ != "XRef" {
		return nil, fmt.Errorf("stream at offset %d is not an xref stream", offset)
	}

	decoded, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding xref stream: %w", err)
	}

	widths, ok := stream.Dict.GetArray("W")
	if !ok || widths.Len() < 3 {
		return nil, fmt.Errorf("xref stream missing /W array")
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		n, ok := widths.Get(i).(Int)
		if !ok || n < 0 {
			return nil, fmt.Errorf("invalid /W entry at index %d", i)
		}
		w[i] = int(n)
	}
	rowLen := w[0] + w[1] + w[2]
	if rowLen == 0 {
		return nil, fmt.Errorf("xref stream has zero-width rows")
	}

	size, ok := stream.Dict.GetInt("Size")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /Size")
	}

	// Default index is a single subsection covering [0, Size)
	var subsections []int
	if index, ok := stream.Dict.GetArray("Index"); ok {
		for i := 0; i < index.Len(); i++ {
			n, ok := index.Get(i).(Int)
			if !ok {
				return nil, fmt.Errorf("invalid /Index entry")
			}
			subsections = append(subsections, int(n))
		}
	} else {
		subsections = []int{0, int(size)}
	}
	if len(subsections)%2 != 0 {
		return nil, fmt.Errorf("/Index has odd length %d", len(subsections))
	}

	pos := 0
	for s := 0; s < len(subsections); s += 2 {
		first, count := subsections[s], subsections[s+1]
		for i := 0; i < count; i++ {
			if pos+rowLen > len(decoded) {
				return nil, fmt.Errorf("xref stream data truncated at row %d", first+i)
			}
			row := decoded[pos : pos+rowLen]
			pos += rowLen

			num := first + i
			if _, exists := t.Entries[num]; exists {
				continue
			}

			// A zero-width type field defaults to type 1
			fieldType := 1
			if w[0] > 0 {
				fieldType = int(readBE(row[:w[0]]))
			}
			f2 := readBE(row[w[0] : w[0]+w[1]])
			f3 := readBE(row[w[0]+w[1]:])

			switch fieldType {
			case 0:
				t.Entries[num] = XRefEntry{Type: XRefFree, Generation: int(f3)}
			case 1:
				t.Entries[num] = XRefEntry{Type: XRefInUse, Offset: int(f2), Generation: int(f3)}
			case 2:
				t.Entries[num] = XRefEntry{Type: XRefInObjectStream, StreamNum: int(f2), StreamIdx: int(f3)}
			}
		}
	}

	// The stream dict doubles as the trailer for this section
	return stream.Dict, nil
}

// readBE reads a big-endian unsigned integer from up to 8 bytes
func readBE(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}
