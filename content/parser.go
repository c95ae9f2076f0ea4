// Package content interprets page content streams far enough to recover
// positioned glyph runs: it tracks the graphics and text state machines and
// evaluates the text-showing operators against the current font.
package content

import (
	"bytes"
	"fmt"

	"github.com/tsawler/marginalia/core"
)

// Operation is one content-stream operator with its operands in order
type Operation struct {
	Operator string
	Operands []core.Object
}

// Operand returns the operand at the given index, or nil
func (op Operation) Operand(index int) core.Object {
	if index < 0 || index >= len(op.Operands) {
		return nil
	}
	return op.Operands[index]
}

// Number returns a numeric operand as float64
func (op Operation) Number(index int) (float64, bool) {
	return core.ToNumber(op.Operand(index))
}

// ParseOperations tokenizes a decoded content stream into operations.
// Operands accumulate on a local stack until an operator keyword flushes
// them. Inline image data (BI..ID..EI) is skipped wholesale.
func ParseOperations(data []byte) ([]Operation, error) {
	lexer := core.NewLexer(data)
	parser := core.NewParserAt(data, 0)

	var ops []Operation
	var operands []core.Object

	for {
		tok, err := lexer.NextToken()
		if err != nil {
			return nil, fmt.Errorf("tokenizing content stream: %w", err)
		}
		if tok.Type == core.TokenEOF {
			break
		}

		if tok.Type == core.TokenKeyword {
			kw := string(tok.Value)
			switch kw {
			case "true":
				operands = append(operands, core.Bool(true))
				continue
			case "false":
				operands = append(operands, core.Bool(false))
				continue
			case "null":
				operands = append(operands, core.Null{})
				continue
			case "BI":
				next, err := skipInlineImage(data, lexer.Pos())
				if err != nil {
					return nil, err
				}
				lexer = core.NewLexerAt(data, next)
				parser = core.NewParserAt(data, next)
				operands = operands[:0]
				continue
			}

			ops = append(ops, Operation{Operator: kw, Operands: operands})
			operands = nil
			continue
		}

		// Re-parse the token as an object; the parser handles compound
		// values (arrays, dicts) that span multiple tokens
		parser = core.NewParserAt(data, tok.Pos)
		obj, err := parser.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("parsing content operand at %d: %w", tok.Pos, err)
		}
		operands = append(operands, obj)
		lexer = core.NewLexerAt(data, parser.Pos())
	}

	return ops, nil
}

// skipInlineImage advances past an inline image body to just after its EI
// marker
func skipInlineImage(data []byte, from int) (int, error) {
	rest := data[from:]
	for search := 0; ; {
		idx := bytes.Index(rest[search:], []byte("EI"))
		if idx < 0 {
			return 0, fmt.Errorf("inline image at %d has no EI marker", from)
		}
		pos := search + idx
		// EI must be delimited by whitespace to count as the marker
		before := pos == 0 || isWS(rest[pos-1])
		after := pos+2 >= len(rest) || isWS(rest[pos+2])
		if before && after {
			return from + pos + 2, nil
		}
		search = pos + 2
	}
}

func isWS(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\f' || b == 0
}
