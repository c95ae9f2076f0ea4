package core

import (
	"bytes"
	"fmt"
	"strconv"
)

// Resolver resolves an indirect reference to its object. The parser needs one
// to read streams whose /Length is itself indirect.
type Resolver func(ref IndirectRef) (Object, error)

// Parser parses PDF objects from a token stream
type Parser struct {
	lexer   *Lexer
	peeked  []*Token
	resolve Resolver
}

// NewParser creates a parser over the given buffer
func NewParser(data []byte) *Parser {
	return &Parser{lexer: NewLexer(data)}
}

// NewParserAt creates a parser positioned at the given offset
func NewParserAt(data []byte, offset int) *Parser {
	return &Parser{lexer: NewLexerAt(data, offset)}
}

// SetResolver installs the indirect-reference resolver used for stream
// lengths
func (p *Parser) SetResolver(r Resolver) {
	p.resolve = r
}

// Pos returns the lexer's current byte position
func (p *Parser) Pos() int {
	if len(p.peeked) > 0 {
		return p.peeked[0].Pos
	}
	return p.lexer.Pos()
}

func (p *Parser) next() (*Token, error) {
	if len(p.peeked) > 0 {
		tok := p.peeked[0]
		p.peeked = p.peeked[1:]
		return tok, nil
	}
	return p.lexer.NextToken()
}

func (p *Parser) peek() (*Token, error) {
	if len(p.peeked) == 0 {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		p.peeked = append(p.peeked, tok)
	}
	return p.peeked[0], nil
}

func (p *Parser) peekAt(n int) (*Token, error) {
	for len(p.peeked) <= n {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		p.peeked = append(p.peeked, tok)
	}
	return p.peeked[n], nil
}

// ParseObject parses the next object from the input
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	return p.parseFromToken(tok)
}

func (p *Parser) parseFromToken(tok *Token) (Object, error) {
	switch tok.Type {
	case TokenEOF:
		return nil, fmt.Errorf("unexpected end of input at %d", tok.Pos)

	case TokenKeyword:
		switch string(tok.Value) {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		case "null":
			return Null{}, nil
		default:
			return nil, fmt.Errorf("unexpected keyword %q at %d", tok.Value, tok.Pos)
		}

	case TokenInteger:
		// Could be the start of an indirect reference "n g R"
		if obj, ok, err := p.tryIndirectRef(tok); err != nil {
			return nil, err
		} else if ok {
			return obj, nil
		}
		i, err := strconv.ParseInt(string(tok.Value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q at %d: %w", tok.Value, tok.Pos, err)
		}
		return Int(i), nil

	case TokenReal:
		r, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real %q at %d: %w", tok.Value, tok.Pos, err)
		}
		return Real(r), nil

	case TokenString:
		return String(tok.Value), nil

	case TokenHexString:
		decoded, err := decodeHexString(tok.Value)
		if err != nil {
			return nil, err
		}
		return String(decoded), nil

	case TokenName:
		return Name(tok.Value), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDictOrStream()

	default:
		return nil, fmt.Errorf("unexpected token %q at %d", tok.Value, tok.Pos)
	}
}

// tryIndirectRef checks whether the integer token begins an "n g R" triple
// and consumes it if so
func (p *Parser) tryIndirectRef(first *Token) (Object, bool, error) {
	second, err := p.peekAt(0)
	if err != nil {
		return nil, false, err
	}
	if second.Type != TokenInteger {
		return nil, false, nil
	}
	third, err := p.peekAt(1)
	if err != nil {
		return nil, false, err
	}
	if third.Type != TokenIndirectRef {
		return nil, false, nil
	}

	num, err := strconv.Atoi(string(first.Value))
	if err != nil {
		return nil, false, fmt.Errorf("invalid object number %q: %w", first.Value, err)
	}
	gen, err := strconv.Atoi(string(second.Value))
	if err != nil {
		return nil, false, fmt.Errorf("invalid generation number %q: %w", second.Value, err)
	}

	p.peeked = p.peeked[2:]
	return IndirectRef{Number: num, Generation: gen}, true, nil
}

func (p *Parser) parseArray() (Object, error) {
	arr := Array{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenArrayEnd {
			return arr, nil
		}
		if tok.Type == TokenEOF {
			return nil, fmt.Errorf("unterminated array at %d", tok.Pos)
		}
		obj, err := p.parseFromToken(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

// parseDictOrStream parses a dictionary; if the keyword 'stream' follows,
// the dictionary heads a stream object and the raw data is read as well
func (p *Parser) parseDictOrStream() (Object, error) {
	dict := Dict{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenDictEnd {
			break
		}
		if tok.Type != TokenName {
			return nil, fmt.Errorf("expected name key in dictionary, got %q at %d", tok.Value, tok.Pos)
		}
		key := string(tok.Value)

		value, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		dict[key] = value
	}

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenKeyword || string(tok.Value) != "stream" {
		return dict, nil
	}
	p.peeked = p.peeked[1:]

	return p.parseStream(dict)
}

func (p *Parser) parseStream(dict Dict) (Object, error) {
	p.lexer.SkipStreamEOL()

	start := p.lexer.Pos()
	length, ok := p.streamLength(dict)
	if ok {
		data, err := p.lexer.ReadBytes(length)
		if err == nil {
			// Consume the closing endstream keyword; tolerate sloppy
			// producers whose /Length is a few bytes off by rescanning from
			// the stream start when it is missing
			tok, err := p.next()
			if err == nil && tok.Type == TokenKeyword && string(tok.Value) == "endstream" {
				return &Stream{Dict: dict, Data: data}, nil
			}
		}
		p.peeked = nil
		p.lexer.pos = start
	}

	// No usable /Length: scan forward for the endstream marker
	data, err := p.scanToEndstream()
	if err != nil {
		return nil, err
	}
	return &Stream{Dict: dict, Data: data}, nil
}

// streamLength extracts the /Length value, chasing one level of indirection
// through the resolver when needed
func (p *Parser) streamLength(dict Dict) (int, bool) {
	obj := dict.Get("Length")
	if ref, ok := obj.(IndirectRef); ok {
		if p.resolve == nil {
			return 0, false
		}
		resolved, err := p.resolve(ref)
		if err != nil {
			return 0, false
		}
		obj = resolved
	}
	if n, ok := obj.(Int); ok && n >= 0 {
		return int(n), true
	}
	return 0, false
}

func (p *Parser) scanToEndstream() ([]byte, error) {
	start := p.lexer.Pos()
	idx := bytes.Index(p.lexer.data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("stream at %d has no endstream marker", start)
	}
	end := start + idx
	// Trim the EOL that precedes endstream
	for end > start && (p.lexer.data[end-1] == '\n' || p.lexer.data[end-1] == '\r') {
		end--
	}
	data := p.lexer.data[start:end]
	p.lexer.pos = start + idx + len("endstream")
	return data, nil
}

// ParseIndirectObject parses an "n g obj ... endobj" definition at the
// current position
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	numTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if numTok.Type != TokenInteger {
		return nil, fmt.Errorf("expected object number, got %q at %d", numTok.Value, numTok.Pos)
	}
	genTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if genTok.Type != TokenInteger {
		return nil, fmt.Errorf("expected generation number, got %q at %d", genTok.Value, genTok.Pos)
	}
	objTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if objTok.Type != TokenKeyword || string(objTok.Value) != "obj" {
		return nil, fmt.Errorf("expected 'obj' keyword, got %q at %d", objTok.Value, objTok.Pos)
	}

	num, _ := strconv.Atoi(string(numTok.Value))
	gen, _ := strconv.Atoi(string(genTok.Value))

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("parsing object %d %d: %w", num, gen, err)
	}

	// endobj is optional in practice; consume it when present
	tok, err := p.peek()
	if err == nil && tok.Type == TokenKeyword && string(tok.Value) == "endobj" {
		p.peeked = p.peeked[1:]
	}

	return &IndirectObject{
		Ref:    IndirectRef{Number: num, Generation: gen},
		Object: obj,
	}, nil
}

func decodeHexString(hex []byte) ([]byte, error) {
	// Odd-length hex strings are padded with a trailing zero
	if len(hex)%2 == 1 {
		hex = append(append([]byte{}, hex...), '0')
	}
	out := make([]byte, len(hex)/2)
	for i := 0; i < len(hex); i += 2 {
		out[i/2] = hexValue(hex[i])*16 + hexValue(hex[i+1])
	}
	return out, nil
}
