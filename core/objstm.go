package core

import (
	"fmt"
	"strconv"
)

// ObjectStream gives access to the objects packed inside a /Type /ObjStm
// stream. The header is a whitespace-separated list of N (number, offset)
// pairs, followed at /First by the concatenated object bodies.
type ObjectStream struct {
	numbers []int
	offsets []int
	body    []byte
}

// ParseObjectStream decodes a compressed object stream
func ParseObjectStream(stream *Stream) (*ObjectStream, error) {
	if typ, _ := stream.Dict.GetName("Type"); typ != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream (got /Type %s)", typ)
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream missing /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream missing /First")
	}

	decoded, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding object stream: %w", err)
	}
	if int(first) > len(decoded) {
		return nil, fmt.Errorf("object stream /First %d beyond data length %d", first, len(decoded))
	}

	os := &ObjectStream{
		numbers: make([]int, 0, int(n)),
		offsets: make([]int, 0, int(n)),
		body:    decoded[first:],
	}

	lexer := NewLexer(decoded[:first])
	for i := 0; i < int(n); i++ {
		numTok, err := lexer.NextToken()
		if err != nil {
			return nil, err
		}
		offTok, err := lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if numTok.Type != TokenInteger || offTok.Type != TokenInteger {
			return nil, fmt.Errorf("malformed object stream header pair %d", i)
		}
		num, _ := strconv.Atoi(string(numTok.Value))
		off, _ := strconv.Atoi(string(offTok.Value))
		os.numbers = append(os.numbers, num)
		os.offsets = append(os.offsets, off)
	}

	return os, nil
}

// Count returns the number of objects in the stream
func (os *ObjectStream) Count() int {
	return len(os.numbers)
}

// ObjectAt parses the object at the given index and returns it with its
// object number
func (os *ObjectStream) ObjectAt(index int) (int, Object, error) {
	if index < 0 || index >= len(os.numbers) {
		return 0, nil, fmt.Errorf("object stream index %d out of range [0,%d)", index, len(os.numbers))
	}
	off := os.offsets[index]
	if off > len(os.body) {
		return 0, nil, fmt.Errorf("object stream offset %d beyond body length %d", off, len(os.body))
	}

	parser := NewParserAt(os.body, off)
	obj, err := parser.ParseObject()
	if err != nil {
		return 0, nil, fmt.Errorf("parsing compressed object at index %d: %w", index, err)
	}
	return os.numbers[index], obj, nil
}
