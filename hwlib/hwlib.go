// Package hwlib is the canonical SHDL design library: a small set of
// example circuits (adders, a cross-coupled latch, a multiplexer)
// embedded as source and exercised by this repository's own tests and
// by anyone experimenting with the toolchain. These designs are
// themselves SHDL source, not hand-written Go: circuits are data here,
// compiled through the same lexer/parser/flattener/analyzer pipeline
// as any user design.
package hwlib

import (
	"embed"
	"fmt"

	"github.com/shdl-lang/shdlc/internal/analyze"
	"github.com/shdl-lang/shdlc/internal/diag"
	"github.com/shdl-lang/shdlc/internal/flatten"
	"github.com/shdl-lang/shdlc/internal/parse"
	"github.com/shdl-lang/shdlc/internal/resolve"
	"github.com/shdl-lang/shdlc/internal/token"
)

//go:embed shdl/*.shdl
var Sources embed.FS

// Design names one of the embedded example circuits, by (file, entry
// component) pair.
type Design struct {
	File      string
	Component string
}

var (
	HalfAdder   = Design{"adders.shdl", "half_adder"}
	FullAdder   = Design{"adders.shdl", "full_adder"}
	RippleAdder = Design{"adders.shdl", "ripple_adder4"}
	NorLatch    = Design{"latch.shdl", "nor_latch"}
	Mux2        = Design{"mux.shdl", "mux2"}
)

// Analyze parses, flattens, and semantically analyzes d, returning the
// post-analysis Base IR ready for codegen. Diagnostics accumulate in
// diags; the caller should check diags.HasErrors() before using the
// result.
func Analyze(d Design, diags *diag.Bag) *analyze.Result {
	src, err := Sources.ReadFile("shdl/" + d.File)
	if err != nil {
		diags.Add(diag.New(diag.EImportNotFound, token.Span{}, "hwlib: %s", err))
		return nil
	}
	mod := parse.File(d.File, string(src), diags)
	set := resolve.Resolve(mod, nil, diags)
	c := flatten.Flatten(mod, d.Component, set, diags)
	if c == nil {
		return nil
	}
	return analyze.Analyze(c, diags)
}

// String renders d as "file:component", for test failure messages.
func (d Design) String() string {
	return fmt.Sprintf("%s:%s", d.File, d.Component)
}
