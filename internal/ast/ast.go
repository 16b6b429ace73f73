// Package ast defines the Expanded-SHDL abstract syntax tree produced
// by internal/parse: one Module per source file, containing imports
// and component definitions.
package ast

import "github.com/shdl-lang/shdlc/internal/token"

// Module is one parsed .shdl file.
type Module struct {
	Name       string // derived from the file's base name, without extension
	File       string
	Imports    []*Import
	Components []*ComponentDef // declaration order
}

// ComponentByName looks up a component definition declared in this
// module (not transitively through imports).
func (m *Module) ComponentByName(name string) *ComponentDef {
	for _, c := range m.Components {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Import is a `use m::{A,B};` statement.
type Import struct {
	Module string   // "m"
	Names  []string // ["A", "B"]
	Span   token.Span
}

// Port is a named, fixed-width input or output pin of a component.
// Bit 1 is the LSB, bit Width is the MSB (1-based, LSB-first).
type Port struct {
	Name  string
	Width int // always >= 1
	Span  token.Span
}

// ComponentDef is one `component NAME(...)->(...) { ... }` block.
type ComponentDef struct {
	Name    string
	Inputs  []*Port
	Outputs []*Port

	Decls       []*InstanceDecl // top-level instance declarations
	Constants   []*Constant
	Generators  []*Generator // top-level generators (may contain decls/connections/nested generators)
	ConnectBody *ConnectBlock

	Span token.Span
}

// PortByName searches both input and output ports.
func (c *ComponentDef) PortByName(name string) *Port {
	for _, p := range c.Inputs {
		if p.Name == name {
			return p
		}
	}
	for _, p := range c.Outputs {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// InstanceDecl is `name: Type;` — Type is either a primitive keyword
// (AND, OR, NOT, XOR, __VCC__, __GND__) or a user component name.
// InterpName allows the declared instance name to contain a generator
// substitution such as `g{i}`.
type InstanceDecl struct {
	Name InterpName
	Type string
	Span token.Span
}

// Constant is `name[width] = value;`. Width is nil when omitted (the
// spec's implicit-width rule then applies: ceil(log2(value+1)), or 1
// for value 0).
type Constant struct {
	Name  string
	Width *Expr // nil => implicit
	Value *Expr
	Span  token.Span
}

// Generator is `> v [ranges] { body }`.
type Generator struct {
	Var    string
	Ranges []Range
	Body   *GenBody
	Span   token.Span
}

// Range is one element of a generator's range list, per the grammar
// `range = INT | INT ":" INT | INT ":" | ":" INT`.
//
// Bare marks the single-INT form, whose meaning is position-dependent:
// if it is the *only* item in the enclosing range list it denotes
// 1..k; otherwise it denotes the singleton k. That disambiguation
// needs the full list length, so it is resolved during generator
// expansion (phase 2), not here.
type Range struct {
	Bare  bool // single INT, no colon
	Lo    *Expr
	Hi    *Expr
	HasLo bool // false => open low bound (":b" form)
	HasHi bool // false => open high bound ("a:" form, or Bare)
	Span  token.Span
}

// GenBody is the statement list inside a generator's braces: nested
// instance declarations, connections, and further nested generators.
type GenBody struct {
	Decls       []*InstanceDecl
	Connections []*Connection
	Generators  []*Generator
}

// ConnectBlock is the component's single `connect { ... }` block: an
// ordered list of connections and generators. Ordering is syntactic
// only — semantics are concurrent.
type ConnectBlock struct {
	Connections []*Connection
	Generators  []*Generator
	Span        token.Span
}

// Connection is `src -> dst;`.
type Connection struct {
	Src, Dst *SignalRef
	Span     token.Span
}

// SignalRefKind distinguishes the three forms of signal reference.
type SignalRefKind int

const (
	RefPort     SignalRefKind = iota // a component port: Name[Index]
	RefInstance                      // an instance port: Name.Sub[Index]
	RefConstant                      // a named constant: Name[Index]
)

// SignalRef is a signal reference inside a connection: a component
// port, an instance port, or a constant reference, optionally with a
// bit index, a [:n]/[n:] open slice, or an [a:b] closed slice.
//
// InterpName carries generator-variable substitution for the base
// identifier (e.g. `g{i}.O`); Sub is the literal sub-port name (always
// "A", "B" or "O" for primitives after flattening, but any declared
// port name pre-flatten).
type SignalRef struct {
	Kind SignalRefKind
	Name InterpName
	Sub  string // instance port name; empty for RefPort/RefConstant

	Index      *Expr // single-bit index; nil if not indexed
	SliceLo    *Expr // closed/open-lower slice bound
	SliceHi    *Expr // closed/open-upper slice bound
	HasSliceLo bool
	HasSliceHi bool
	IsSlice    bool // true if this is any [..] slice form (vs. a plain Index)

	Span token.Span
}

// InterpName is an identifier that may contain generator-variable
// interpolation: either plain text, or segments alternating literal
// text and {expr} substitutions in the `name{i}` form.
type InterpName struct {
	Literal  string // fast path when there is no interpolation
	Segments []NameSegment
}

// NameSegment is one piece of an interpolated identifier.
type NameSegment struct {
	Text string // literal text; empty if Expr != nil
	Expr *Expr  // {expr}; nil if this segment is literal text
}

// HasInterp reports whether n contains any {expr} substitution.
func (n InterpName) HasInterp() bool { return len(n.Segments) > 0 }

// Expr is an integer arithmetic expression over literals and
// generator-bound variables, built from +, -, * and grouping.
type Expr struct {
	// Leaf
	IsLit bool
	Lit   int64
	IsVar bool
	Var   string

	// Binary
	Op    byte // '+', '-', '*'
	Left  *Expr
	Right *Expr

	Span token.Span
}

func Lit(v int64, span token.Span) *Expr { return &Expr{IsLit: true, Lit: v, Span: span} }
func Var(name string, span token.Span) *Expr {
	return &Expr{IsVar: true, Var: name, Span: span}
}
func Bin(op byte, l, r *Expr, span token.Span) *Expr {
	return &Expr{Op: op, Left: l, Right: r, Span: span}
}
