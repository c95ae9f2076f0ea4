package filters

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"testing"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

func TestFlateDecodeNoPredictor(t *testing.T) {
	want := []byte("stream payload with some repetition repetition repetition")
	got, err := FlateDecode(deflate(t, want), FlateParams{Predictor: 1})
	if err != nil {
		t.Fatalf("FlateDecode: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q", got)
	}
}

func TestFlateDecodePNGUpPredictor(t *testing.T) {
	// Two rows of three columns, filter type 2 (Up): each row adds to the
	// previous reconstructed row
	encoded := []byte{
		2, 1, 2, 3,
		2, 1, 1, 1,
	}
	want := []byte{1, 2, 3, 2, 3, 4}

	got, err := FlateDecode(deflate(t, encoded), FlateParams{
		Predictor: 12, Colors: 1, BitsPerComponent: 8, Columns: 3,
	})
	if err != nil {
		t.Fatalf("FlateDecode: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFlateDecodePNGSubPredictor(t *testing.T) {
	encoded := []byte{1, 10, 5, 5}
	want := []byte{10, 15, 20}

	got, err := FlateDecode(deflate(t, encoded), FlateParams{
		Predictor: 10, Colors: 1, BitsPerComponent: 8, Columns: 3,
	})
	if err != nil {
		t.Fatalf("FlateDecode: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestASCIIHexDecode(t *testing.T) {
	got, err := ASCIIHexDecode([]byte("48 65 6C 6C 6F>"))
	if err != nil {
		t.Fatalf("ASCIIHexDecode: %v", err)
	}
	if string(got) != "Hello" {
		t.Errorf("got %q", got)
	}

	// Odd trailing digit pads with zero
	got, err = ASCIIHexDecode([]byte("487>"))
	if err != nil {
		t.Fatalf("ASCIIHexDecode: %v", err)
	}
	if !bytes.Equal(got, []byte{0x48, 0x70}) {
		t.Errorf("got %v", got)
	}
}

func TestASCIIHexDecodeRejectsJunk(t *testing.T) {
	if _, err := ASCIIHexDecode([]byte("4z>")); err == nil {
		t.Error("expected error for invalid hex digit")
	}
}

func TestASCII85Decode(t *testing.T) {
	want := []byte("Hello world, this is stream data")
	encoded := make([]byte, ascii85.MaxEncodedLen(len(want)))
	n := ascii85.Encode(encoded, want)
	encoded = append(encoded[:n], []byte("~>")...)

	got, err := ASCII85Decode(encoded)
	if err != nil {
		t.Fatalf("ASCII85Decode: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}
