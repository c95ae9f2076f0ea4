package content

import (
	"github.com/tsawler/marginalia/font"
	"github.com/tsawler/marginalia/model"
)

// TextState holds the text-state parameters that affect glyph positioning
type TextState struct {
	Font        *font.Font
	FontName    string
	FontSize    float64
	CharSpacing float64
	WordSpacing float64
	Horizontal  float64 // Tz scaling as a fraction (100 -> 1.0)
	Leading     float64
	Rise        float64
	RenderMode  int
}

// GraphicsState is the subset of graphics state text extraction tracks
type GraphicsState struct {
	CTM  model.Matrix
	Text TextState
}

// State drives the graphics and text state machines across a content
// stream. Text matrices live outside the q/Q stack per the PDF model.
type State struct {
	current GraphicsState
	stack   []GraphicsState

	Tm     model.Matrix // text matrix
	Tlm    model.Matrix // text line matrix
	inText bool
}

// NewState returns a state machine with default parameters
func NewState() *State {
	return &State{
		current: GraphicsState{
			CTM:  model.Identity(),
			Text: TextState{Horizontal: 1.0},
		},
		Tm:  model.Identity(),
		Tlm: model.Identity(),
	}
}

// Current returns the active graphics state
func (s *State) Current() *GraphicsState {
	return &s.current
}

// Push saves the current graphics state (operator q)
func (s *State) Push() {
	s.stack = append(s.stack, s.current)
}

// Pop restores the most recently saved state (operator Q). An unbalanced Q
// is ignored.
func (s *State) Pop() {
	if len(s.stack) == 0 {
		return
	}
	s.current = s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
}

// Concat prepends a matrix onto the CTM (operator cm)
func (s *State) Concat(m model.Matrix) {
	s.current.CTM = m.Multiply(s.current.CTM)
}

// BeginText resets the text matrices (operator BT)
func (s *State) BeginText() {
	s.Tm = model.Identity()
	s.Tlm = model.Identity()
	s.inText = true
}

// EndText leaves text mode (operator ET)
func (s *State) EndText() {
	s.inText = false
}

// InText reports whether a BT..ET block is open
func (s *State) InText() bool {
	return s.inText
}

// SetTextMatrix sets both text matrices (operator Tm)
func (s *State) SetTextMatrix(m model.Matrix) {
	s.Tm = m
	s.Tlm = m
}

// NextLine moves to the start of the next line offset by (tx, ty) from the
// current line start (operators Td, TD)
func (s *State) NextLine(tx, ty float64) {
	s.Tlm = model.Translate(tx, ty).Multiply(s.Tlm)
	s.Tm = s.Tlm
}

// NextLineLeading moves down by the current leading (operator T*)
func (s *State) NextLineLeading() {
	s.NextLine(0, -s.current.Text.Leading)
}

// RenderMatrix composes the text rendering matrix for the current state:
// the font-size scaling, then the text matrix, then the CTM
func (s *State) RenderMatrix() model.Matrix {
	ts := s.current.Text
	scale := model.Matrix{ts.FontSize * ts.Horizontal, 0, 0, ts.FontSize, 0, ts.Rise}
	return scale.Multiply(s.Tm).Multiply(s.current.CTM)
}

// Advance moves the text matrix right by a text-space displacement
// (operator side effect of showing text or a TJ adjustment)
func (s *State) Advance(tx float64) {
	s.Tm = model.Translate(tx, 0).Multiply(s.Tm)
}
