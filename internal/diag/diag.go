// Package diag implements the structured diagnostic model of the SHDL
// toolchain: every compiler stage reports a {code, severity, message,
// span, notes} value rather than a bare error, organized under a stable
// error-code taxonomy.
package diag

import (
	"fmt"
	"strings"

	"github.com/shdl-lang/shdlc/internal/token"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Code is one of the taxonomy codes: E01xx (lex),
// E02xx (parse), E03xx (name resolution), E04xx (type/width),
// E05xx (connection), E06xx (generator), E07xx (import), E08xx
// (constant), W01xx (warning).
type Code string

const (
	// Lex
	ELexInvalid             Code = "E0101"
	ELexUnterminatedComment Code = "E0102"
	ELexBadNumber           Code = "E0103"

	// Parse
	EParseExpectedToken Code = "E0201"
	EParseBadWidth      Code = "E0202"
	EParseBadRange      Code = "E0203"
	EParseUnbalanced    Code = "E0204"

	// Name resolution
	ENameUndefinedComponent Code = "E0301"
	ENameUndefinedPort      Code = "E0302"
	ENameUndefinedInstance  Code = "E0303"
	ENameDuplicateInstance  Code = "E0304"

	// Type / width
	EWidthMismatch   Code = "E0401"
	EIndexOutOfRange Code = "E0402"
	EBadWidth        Code = "E0403"

	// Connection
	EMultiDriver       Code = "E0501"
	EUnconnectedInput  Code = "E0502"
	EUnconnectedOutput Code = "E0503"

	// Generator
	EGeneratorRange     Code = "E0601"
	EGeneratorShadow    Code = "E0602"
	WGeneratorShadow    Code = "W0106"
	WUnusedPortOrConst  Code = "W0101"
	WImplicitWidthShort Code = "W0102"

	// Import
	EImportNotFound Code = "E0701"
	EImportCycle    Code = "E0702"

	// Constant
	EConstantWidth Code = "E0801"
)

// Diagnostic is a single structured compiler message. It satisfies the
// error interface so it can be wrapped with github.com/pkg/errors at
// call sites that need to attach an outer (I/O, exec) causal chain.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	Span     token.Span
	Notes    []string
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s [%s]: %s", d.Span, d.Severity, d.Code, d.Message)
	for _, n := range d.Notes {
		fmt.Fprintf(&b, "\n\tnote: %s", n)
	}
	return b.String()
}

// New builds an error-severity Diagnostic.
func New(code Code, span token.Span, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Code: code, Severity: Error, Message: fmt.Sprintf(format, args...), Span: span}
}

// Warnf builds a warning-severity Diagnostic.
func Warnf(code Code, span token.Span, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Code: code, Severity: Warning, Message: fmt.Sprintf(format, args...), Span: span}
}

// WithNote appends a note and returns d for chaining.
func (d *Diagnostic) WithNote(note string) *Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// Bag accumulates diagnostics across a recoverable pass so that a
// single invocation can report many problems before the pipeline
// aborts: the parser and flattener recover to the next statement
// boundary rather than stopping at the first error.
type Bag struct {
	items []*Diagnostic
}

// Add appends d to the bag. Nil is ignored so call sites can pass the
// result of a fallible helper directly.
func (b *Bag) Add(d *Diagnostic) {
	if d != nil {
		b.items = append(b.items, d)
	}
}

// Errorf is a convenience wrapper around Add(New(...)).
func (b *Bag) Errorf(code Code, span token.Span, format string, args ...interface{}) {
	b.Add(New(code, span, format, args...))
}

// HasErrors reports whether the bag contains at least one error-severity
// diagnostic. A non-empty error set must abort the pipeline before
// codegen.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// All returns every diagnostic collected so far, in insertion order.
func (b *Bag) All() []*Diagnostic { return b.items }

// Errors returns only the error-severity diagnostics.
func (b *Bag) Errors() []*Diagnostic {
	var out []*Diagnostic
	for _, d := range b.items {
		if d.Severity == Error {
			out = append(out, d)
		}
	}
	return out
}

// Err returns a combined error for the whole bag (nil if there are no
// error-severity diagnostics), for callers that just want a pass/fail
// boundary.
func (b *Bag) Err() error {
	if !b.HasErrors() {
		return nil
	}
	return &bagError{b}
}

type bagError struct{ b *Bag }

func (e *bagError) Error() string {
	var b strings.Builder
	for i, d := range e.b.Errors() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.Error())
	}
	return b.String()
}

// Diagnostics unwraps a bagError back to its diagnostics, for tests
// that want to assert on specific codes.
func Diagnostics(err error) []*Diagnostic {
	if be, ok := err.(*bagError); ok {
		return be.b.All()
	}
	if d, ok := err.(*Diagnostic); ok {
		return []*Diagnostic{d}
	}
	return nil
}
