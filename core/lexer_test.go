package core

import (
	"bytes"
	"testing"
)

func mustToken(t *testing.T, l *Lexer) *Token {
	t.Helper()
	tok, err := l.NextToken()
	if err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	return tok
}

func TestLexerBasicTokens(t *testing.T) {
	l := NewLexer([]byte("<< /Type /Page >> [ 1 -2 3.5 ] true null"))

	expected := []TokenType{
		TokenDictStart, TokenName, TokenName, TokenDictEnd,
		TokenArrayStart, TokenInteger, TokenInteger, TokenReal, TokenArrayEnd,
		TokenKeyword, TokenKeyword, TokenEOF,
	}
	for i, want := range expected {
		tok := mustToken(t, l)
		if tok.Type != want {
			t.Fatalf("token %d: got type %v value %q, want %v", i, tok.Type, tok.Value, want)
		}
	}
}

func TestLexerStringEscapes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`(hello)`, "hello"},
		{`(a\(b\)c)`, "a(b)c"},
		{`(nested (parens) ok)`, "nested (parens) ok"},
		{`(tab\there)`, "tab\there"},
		{`(\101\102)`, "AB"},
		{`(back\\slash)`, `back\slash`},
	}

	for _, tt := range tests {
		l := NewLexer([]byte(tt.in))
		tok := mustToken(t, l)
		if tok.Type != TokenString {
			t.Errorf("%s: got type %v", tt.in, tok.Type)
			continue
		}
		if string(tok.Value) != tt.want {
			t.Errorf("%s: got %q, want %q", tt.in, tok.Value, tt.want)
		}
	}
}

func TestLexerHexString(t *testing.T) {
	l := NewLexer([]byte("<48 65 6C 6C 6F>"))
	tok := mustToken(t, l)
	if tok.Type != TokenHexString {
		t.Fatalf("got type %v", tok.Type)
	}
	if string(tok.Value) != "48656C6C6F" {
		t.Errorf("got %q", tok.Value)
	}
}

func TestLexerNameEscapes(t *testing.T) {
	l := NewLexer([]byte("/A#20B"))
	tok := mustToken(t, l)
	if tok.Type != TokenName || string(tok.Value) != "A B" {
		t.Errorf("got type %v value %q", tok.Type, tok.Value)
	}
}

func TestLexerSkipsComments(t *testing.T) {
	l := NewLexer([]byte("% a comment\n42"))
	tok := mustToken(t, l)
	if tok.Type != TokenInteger || string(tok.Value) != "42" {
		t.Errorf("got type %v value %q", tok.Type, tok.Value)
	}
}

func TestLexerIndirectRefKeyword(t *testing.T) {
	l := NewLexer([]byte("3 0 R"))
	mustToken(t, l)
	mustToken(t, l)
	tok := mustToken(t, l)
	if tok.Type != TokenIndirectRef {
		t.Errorf("got type %v", tok.Type)
	}
}

func TestReadBytesAndStreamEOL(t *testing.T) {
	data := []byte("stream\r\nabcde")
	l := NewLexerAt(data, len("stream"))
	l.SkipStreamEOL()

	got, err := l.ReadBytes(5)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(got, []byte("abcde")) {
		t.Errorf("got %q", got)
	}
}
