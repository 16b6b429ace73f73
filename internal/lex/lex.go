// Package lex implements a small reusable state-function rune scanner
// (the Lexer/StateFn/Next/Backup/Emit idiom) as a full UTF-8 source
// scanner that tracks (line, column, length) on every emitted token, for
// the SHDL front end's diagnostic model.
package lex

import (
	"unicode/utf8"

	"github.com/shdl-lang/shdlc/internal/diag"
	"github.com/shdl-lang/shdlc/internal/token"
)

// EOF is returned by Next/Peek/Current once the input is exhausted.
const EOF rune = -1

// StateFn is one state of the scanner. It returns the next state, or
// nil to stop scanning.
type StateFn func(*Lexer) StateFn

// Lexer scans a rune stream, tracking source position and recording
// emitted tokens plus any lexical diagnostics in Diags.
type Lexer struct {
	file string
	src  []rune
	pos  int // rune index of the next unread rune

	// position of the rune last returned by Next (for Backup)
	prevLine, prevCol int
	line, col         int

	// start of the token currently being scanned
	startPos  int
	startLine int
	startCol  int

	Items []token.Token
	Diags *diag.Bag
}

// New creates a Lexer for file, scanning src.
func New(file string, src []rune, diags *diag.Bag) *Lexer {
	return &Lexer{file: file, src: src, line: 1, col: 1, Diags: diags}
}

// Next returns the next rune and advances the cursor.
func (l *Lexer) Next() rune {
	if l.pos >= len(l.src) {
		l.prevLine, l.prevCol = l.line, l.col
		return EOF
	}
	r := l.src[l.pos]
	l.pos++
	l.prevLine, l.prevCol = l.line, l.col
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// Backup undoes the last Next call. It may only be called once per
// Next call; there is only one rune of pushback.
func (l *Lexer) Backup() {
	if l.pos > 0 {
		l.pos--
		l.line, l.col = l.prevLine, l.prevCol
	}
}

// Peek returns the next rune without consuming it.
func (l *Lexer) Peek() rune {
	r := l.Next()
	if r != EOF {
		l.Backup()
	}
	return r
}

// Current returns the rune last returned by Next.
func (l *Lexer) Current() rune {
	if l.pos == 0 {
		return EOF
	}
	return l.src[l.pos-1]
}

// AcceptWhile advances the cursor while pred holds for the next rune.
func (l *Lexer) AcceptWhile(pred func(rune) bool) {
	for {
		r := l.Next()
		if r == EOF {
			return
		}
		if !pred(r) {
			l.Backup()
			return
		}
	}
}

// MarkStart records the current position as the start of the next
// token (call this before scanning a new token).
func (l *Lexer) MarkStart() {
	l.startPos, l.startLine, l.startCol = l.pos, l.line, l.col
}

// StartPos returns the source position recorded by MarkStart.
func (l *Lexer) StartPos() token.Pos {
	return token.Pos{File: l.file, Line: l.startLine, Col: l.startCol}
}

// Emit appends a token spanning from the last MarkStart to the current
// position.
func (l *Lexer) Emit(t token.Type, lit string, intVal int64) {
	length := l.pos - l.startPos
	if length < 0 {
		length = 0
	}
	l.Items = append(l.Items, token.Token{
		Type:   t,
		Lit:    lit,
		IntVal: intVal,
		Pos:    l.StartPos(),
		Length: length,
	})
}

// RunesSince returns the runes consumed since the last MarkStart.
func (l *Lexer) RunesSince() []rune {
	return l.src[l.startPos:l.pos]
}

// Errorf records a lexical diagnostic anchored at the current token's
// start position.
func (l *Lexer) Errorf(code diag.Code, format string, args ...interface{}) {
	start := l.StartPos()
	end := token.Pos{File: l.file, Line: l.line, Col: l.col}
	l.Diags.Add(diag.New(code, token.Span{Start: start, End: end}, format, args...))
}

// Run drives the scanner to completion starting from init, returning
// the accumulated token list (always terminated with an EOF token).
func Run(l *Lexer, init StateFn) []token.Token {
	for state := init; state != nil; {
		state = state(l)
	}
	if len(l.Items) == 0 || l.Items[len(l.Items)-1].Type != token.EOF {
		l.MarkStart()
		l.Emit(token.EOF, "", 0)
	}
	return l.Items
}

// DecodeRune is a small helper for callers that receive raw bytes
// rather than a pre-decoded []rune (e.g. from disk).
func DecodeRune(b []byte) (rune, int) {
	return utf8.DecodeRune(b)
}
