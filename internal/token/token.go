// Package token defines the lexical token kinds shared by the SHDL
// lexer and parser.
package token

import "fmt"

// Type identifies the lexical class of a Token.
type Type int

const (
	EOF Type = iota
	Invalid

	Ident
	Int

	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semi
	Colon
	DColon // ::
	Dot
	Arrow // ->
	Gt    // >
	Eq    // =
	Plus
	Minus
	Star

	KwComponent
	KwUse
	KwConnect
)

var names = map[Type]string{
	EOF:         "EOF",
	Invalid:     "INVALID",
	Ident:       "IDENT",
	Int:         "INT",
	LParen:      "(",
	RParen:      ")",
	LBrace:      "{",
	RBrace:      "}",
	LBracket:    "[",
	RBracket:    "]",
	Comma:       ",",
	Semi:        ";",
	Colon:       ":",
	DColon:      "::",
	Dot:         ".",
	Arrow:       "->",
	Gt:          ">",
	Eq:          "=",
	Plus:        "+",
	Minus:       "-",
	Star:        "*",
	KwComponent: "component",
	KwUse:       "use",
	KwConnect:   "connect",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Keywords maps reserved identifiers to their keyword token type.
var Keywords = map[string]Type{
	"component": KwComponent,
	"use":       KwUse,
	"connect":   KwConnect,
}

// Pos is a source location: file name plus 1-based line/column.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Span is a half-open source range used to anchor diagnostics.
type Span struct {
	Start Pos
	End   Pos
}

func (s Span) String() string {
	if s.Start.Line == s.End.Line {
		return fmt.Sprintf("%s:%d:%d-%d", s.Start.File, s.Start.Line, s.Start.Col, s.End.Col)
	}
	return fmt.Sprintf("%s - %s", s.Start, s.End)
}

// Token is one lexical unit plus its source span, length, and (for
// Ident/Int) decoded value.
type Token struct {
	Type   Type
	Lit    string
	IntVal int64
	Pos    Pos
	Length int
}

func (t Token) Span() Span {
	end := t.Pos
	end.Col += t.Length
	return Span{Start: t.Pos, End: end}
}

func (t Token) String() string {
	if t.Lit != "" {
		return fmt.Sprintf("%s(%q)", t.Type, t.Lit)
	}
	return t.Type.String()
}
