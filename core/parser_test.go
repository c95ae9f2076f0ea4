package core

import (
	"bytes"
	"testing"
)

func TestParseDict(t *testing.T) {
	p := NewParser([]byte("<< /Type /Page /Count 3 /Box [0 0 612 792] >>"))
	obj, err := p.ParseObject()
	if err != nil {
		t.Fatalf("ParseObject: %v", err)
	}

	dict, ok := obj.(Dict)
	if !ok {
		t.Fatalf("expected Dict, got %T", obj)
	}
	if name, _ := dict.GetName("Type"); name != "Page" {
		t.Errorf("Type = %q", name)
	}
	if n, _ := dict.GetInt("Count"); n != 3 {
		t.Errorf("Count = %d", n)
	}
	box, ok := dict.GetArray("Box")
	if !ok || box.Len() != 4 {
		t.Fatalf("Box = %v", box)
	}
	if v, _ := box.GetNumber(2); v != 612 {
		t.Errorf("Box[2] = %v", v)
	}
}

func TestParseIndirectReference(t *testing.T) {
	p := NewParser([]byte("<< /Parent 2 0 R /N 5 >>"))
	obj, err := p.ParseObject()
	if err != nil {
		t.Fatalf("ParseObject: %v", err)
	}
	dict := obj.(Dict)

	ref, ok := dict.GetIndirectRef("Parent")
	if !ok || ref.Number != 2 || ref.Generation != 0 {
		t.Errorf("Parent = %v", dict.Get("Parent"))
	}
	// The trailing integer must not be swallowed by ref lookahead
	if n, _ := dict.GetInt("N"); n != 5 {
		t.Errorf("N = %d", n)
	}
}

func TestParseIndirectObject(t *testing.T) {
	p := NewParser([]byte("7 0 obj\n<< /Kind /Test >>\nendobj"))
	ind, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("ParseIndirectObject: %v", err)
	}
	if ind.Ref.Number != 7 {
		t.Errorf("ref = %v", ind.Ref)
	}
	if _, ok := ind.Object.(Dict); !ok {
		t.Errorf("object type = %T", ind.Object)
	}
}

func TestParseStreamWithDirectLength(t *testing.T) {
	data := []byte("<< /Length 5 >>\nstream\nhello\nendstream")
	p := NewParser(data)
	obj, err := p.ParseObject()
	if err != nil {
		t.Fatalf("ParseObject: %v", err)
	}
	stream, ok := obj.(*Stream)
	if !ok {
		t.Fatalf("expected *Stream, got %T", obj)
	}
	if !bytes.Equal(stream.Data, []byte("hello")) {
		t.Errorf("stream data = %q", stream.Data)
	}
}

func TestParseStreamWithIndirectLength(t *testing.T) {
	data := []byte("<< /Length 9 0 R >>\nstream\nworld\nendstream")
	p := NewParser(data)
	p.SetResolver(func(ref IndirectRef) (Object, error) {
		if ref.Number != 9 {
			t.Errorf("resolver asked for %v", ref)
		}
		return Int(5), nil
	})

	obj, err := p.ParseObject()
	if err != nil {
		t.Fatalf("ParseObject: %v", err)
	}
	stream := obj.(*Stream)
	if !bytes.Equal(stream.Data, []byte("world")) {
		t.Errorf("stream data = %q", stream.Data)
	}
}

func TestParseStreamWithoutLengthScansForEndstream(t *testing.T) {
	data := []byte("<< /Kind /Raw >>\nstream\npayload bytes\nendstream")
	p := NewParser(data)
	obj, err := p.ParseObject()
	if err != nil {
		t.Fatalf("ParseObject: %v", err)
	}
	stream := obj.(*Stream)
	if !bytes.Equal(stream.Data, []byte("payload bytes")) {
		t.Errorf("stream data = %q", stream.Data)
	}
}

func TestParseHexStringObject(t *testing.T) {
	p := NewParser([]byte("<48656C6C6F>"))
	obj, err := p.ParseObject()
	if err != nil {
		t.Fatalf("ParseObject: %v", err)
	}
	if s, ok := obj.(String); !ok || string(s) != "Hello" {
		t.Errorf("got %T %v", obj, obj)
	}
}
