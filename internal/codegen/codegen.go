// Package codegen lowers an analyzed Base SHDL component into a
// self-contained C source file implementing the bit-packed simulator
// kernel and runtime shell.
//
// The emitter assembles C text directly with strings.Builder, piece by
// piece, rather than reaching for a templating library: there is no
// text/template anywhere in this package.
package codegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shdl-lang/shdlc/internal/analyze"
	"github.com/shdl-lang/shdlc/internal/ir"
)

// Options controls source-level details of the emitted file that have
// no bearing on simulation semantics.
type Options struct {
	// Prefix is prepended to every emitted C identifier, so multiple
	// generated designs can be linked into one binary without symbol
	// clashes. Empty is fine for the common one-design-per-file case;
	// the four ABI entry points (reset/poke/peek/step) are never
	// prefixed, since their names are fixed by the contract.
	Prefix string
}

// Generate emits the C source for res (an analyzed Base component) and
// returns it as a string, along with the side-table describing its
// ports and lane map for the driver package to consume without
// re-parsing C.
func Generate(res *analyze.Result, opts Options) (string, *SideTable) {
	c := res.Component
	lm := BuildLaneMap(c)
	kinds := presentKinds(lm)

	e := &emitter{b: &strings.Builder{}, c: c, lm: lm, kinds: kinds, drivers: res.Drivers, prefix: opts.Prefix}

	e.header()
	e.stateStruct()
	e.globals()
	e.tickFn()
	e.recomputeOutputsFn()
	e.nameTables()
	e.abiFns()

	return e.b.String(), buildSideTable(c, lm)
}

// presentKinds returns the stateful kinds (AND/OR/NOT/XOR) that have at
// least one instance in lm, sorted by Kind value for determinism.
func presentKinds(lm LaneMap) []ir.Kind {
	seen := map[ir.Kind]bool{}
	for _, l := range lm {
		seen[l.Kind] = true
	}
	out := make([]ir.Kind, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type emitter struct {
	b       *strings.Builder
	c       *ir.Component
	lm      LaneMap
	kinds   []ir.Kind
	drivers analyze.DriverMap
	prefix  string
}

func (e *emitter) p(format string, args ...interface{}) {
	fmt.Fprintf(e.b, format, args...)
}

func (e *emitter) header() {
	e.p("// Code generated by shdlc from %s. DO NOT EDIT.\n", e.c.Name)
	e.p("#include <stdint.h>\n")
	e.p("#include <string.h>\n")
	e.p("#include <stdio.h>\n\n")
}

// stateStruct declares one uint64_t field per (KIND, chunk) that has an
// active lane.
func (e *emitter) stateStruct() {
	e.p("typedef struct {\n")
	for _, k := range e.kinds {
		for _, chunk := range activeChunks(e.lm, k) {
			e.p("    uint64_t %s;\n", chunkWordName(k, chunk))
		}
	}
	e.p("} %sstate_t;\n\n", e.prefix)
}

// globals declares the single process-wide simulator instance: current
// state, pending state, per-port input/output caches, and the
// outputs-valid dirty flag.
func (e *emitter) globals() {
	e.p("static %sstate_t %scur;\n", e.prefix, e.prefix)
	e.p("static %sstate_t %spend;\n", e.prefix, e.prefix)
	for _, in := range e.c.Inputs {
		e.p("static uint64_t %sin_%s;\n", e.prefix, in.Name)
	}
	for _, out := range e.c.Outputs {
		e.p("static uint64_t %sout_%s;\n", e.prefix, out.Name)
	}
	e.p("static int %soutputs_valid;\n\n", e.prefix)
}

// laneMask returns the C literal for a chunk's active-lane population
// mask: all 64 bits set except when it is the last, partially filled
// chunk of its kind.
func laneMask(n int) string {
	if n >= 64 {
		return "0xFFFFFFFFFFFFFFFFULL"
	}
	return "0x" + hex64((uint64(1)<<uint(n))-1) + "ULL"
}

func widthMask(w int) string {
	if w >= 64 {
		return "0xFFFFFFFFFFFFFFFFULL"
	}
	return "0x" + hex64((uint64(1)<<uint(w))-1) + "ULL"
}

func hex64(v uint64) string {
	return strings.ToUpper(strconv.FormatUint(v, 16))
}

// gatherExpr builds the branchless gather expression for one operand
// (A or B) of every active lane in a chunk, depositing
// each lane's driver bit at its lane position. Instances are visited in
// name order so the emitted expression — and hence the generated
// file — is independent of Go map iteration order.
func (e *emitter) gatherExpr(k ir.Kind, chunk int, operand string, stateVar string) string {
	var insts []string
	for name, l := range e.lm {
		if l.Kind == k && l.Chunk == chunk {
			insts = append(insts, name)
		}
	}
	sort.Strings(insts)

	var parts []string
	for _, name := range insts {
		l := e.lm[name]
		src, ok := e.drivers[ir.Ref{Kind: ir.RefInstancePort, Name: name, Port: operand, Bit: 1}]
		if !ok {
			continue // NOT has no B operand; any other absence is caught by the analyzer
		}
		parts = append(parts, e.depositExpr(src, l.Bit, stateVar))
	}
	if len(parts) == 0 {
		return "0ULL"
	}
	return strings.Join(parts, " | ")
}

// depositExpr renders the branchless deposit of driver src into a lane
// bit of a gather word: the driver bit, sign-extended to all 64 bits
// via negation, masked down to its single lane position.
func (e *emitter) depositExpr(src ir.Ref, lane int, stateVar string) string {
	return fmt.Sprintf("((-(uint64_t)(%s)) & (1ULL << %d))", e.driverBitExpr(src, stateVar), lane)
}

// driverBitExpr renders a 0/1 C expression for the current value of a
// single-bit driver: an external input bit, a literal for a VCC/GND
// source, or another primitive instance's output lane read out of its
// (KIND, chunk) state word (read through stateVar, so the same logic
// serves both the committed and pending state blocks).
func (e *emitter) driverBitExpr(src ir.Ref, stateVar string) string {
	switch src.Kind {
	case ir.RefComponentIn:
		return fmt.Sprintf("((%sin_%s >> %d) & 1ULL)", e.prefix, src.Name, src.Bit-1)
	case ir.RefInstancePort:
		if l, ok := e.lm[src.Name]; ok {
			return fmt.Sprintf("((%s.%s >> %d) & 1ULL)", stateVar, chunkWordName(l.Kind, l.Chunk), l.Bit)
		}
		if in, ok := e.c.InstanceByName(src.Name); ok && in.Kind == ir.VCC {
			return "1ULL"
		}
		return "0ULL"
	}
	return "0ULL"
}

func (e *emitter) tickFn() {
	e.p("static void %stick(%sstate_t *out, const %sstate_t *in) {\n", e.prefix, e.prefix, e.prefix)
	e.p("    (void)in;\n")
	for _, k := range e.kinds {
		for _, chunk := range activeChunks(e.lm, k) {
			n := chunkLaneCount(e.lm, k, chunk)
			word := chunkWordName(k, chunk)
			a := e.gatherExpr(k, chunk, "A", "(*in)")
			switch k {
			case ir.NOT:
				e.p("    out->%s = (~(%s)) & %s;\n", word, a, laneMask(n))
			default:
				b := e.gatherExpr(k, chunk, "B", "(*in)")
				e.p("    out->%s = ((%s) %s (%s)) & %s;\n", word, a, binOp(k), b, laneMask(n))
			}
		}
	}
	e.p("}\n\n")
}

func binOp(k ir.Kind) string {
	switch k {
	case ir.AND:
		return "&"
	case ir.OR:
		return "|"
	case ir.XOR:
		return "^"
	}
	return "&"
}

// recomputeOutputsFn extracts every component output port's bits from
// a given state block into the cached output words.
func (e *emitter) recomputeOutputsFn() {
	e.p("static void %srecompute_outputs(const %sstate_t *s) {\n", e.prefix, e.prefix)
	for _, out := range e.c.Outputs {
		e.p("    %sout_%s = 0;\n", e.prefix, out.Name)
		for bit := 1; bit <= out.Width; bit++ {
			src, ok := e.drivers[ir.Ref{Kind: ir.RefComponentOut, Name: out.Name, Bit: bit}]
			if !ok {
				continue
			}
			e.p("    %sout_%s |= (%s) << %d;\n", e.prefix, out.Name, e.driverBitExpr(src, "(*s)"), bit-1)
		}
	}
	e.p("}\n\n")
}

// nameTables emits the port descriptor arrays used by peek/poke, and
// the list of internal (KIND, chunk) word names exposed for
// introspection.
func (e *emitter) nameTables() {
	e.p("typedef struct { const char *name; int width; } %sport_t;\n\n", e.prefix)

	e.p("static const %sport_t %sinputs[] = {\n", e.prefix, e.prefix)
	for _, in := range e.c.Inputs {
		e.p("    {\"%s\", %d},\n", in.Name, in.Width)
	}
	e.p("};\n\n")

	e.p("static const %sport_t %soutputs[] = {\n", e.prefix, e.prefix)
	for _, out := range e.c.Outputs {
		e.p("    {\"%s\", %d},\n", out.Name, out.Width)
	}
	e.p("};\n\n")
}

// abiFns emits the four C-linkage entry points plus the internal
// do_tick helper implementing the runtime-shell state machine: poke
// dirties outputs_valid; step(n<=0) recomputes outputs from the
// committed state directly (no tick), so peeking after a poke never
// advances time or observes a half-applied mask; step(n>0) ticks n
// times, committing pend into cur after each tick; eval() computes one
// tick into pend without committing, so repeated peeks between pokes
// stay cheap.
func (e *emitter) abiFns() {
	e.p("static void %sdo_tick(void) {\n", e.prefix)
	e.p("    %stick(&%spend, &%scur);\n", e.prefix, e.prefix, e.prefix)
	e.p("    %srecompute_outputs(&%spend);\n", e.prefix, e.prefix)
	e.p("}\n\n")

	e.p("void reset(void) {\n")
	e.p("    memset(&%scur, 0, sizeof(%scur));\n", e.prefix, e.prefix)
	e.p("    memset(&%spend, 0, sizeof(%spend));\n", e.prefix, e.prefix)
	for _, in := range e.c.Inputs {
		e.p("    %sin_%s = 0;\n", e.prefix, in.Name)
	}
	e.p("    %srecompute_outputs(&%scur);\n", e.prefix, e.prefix)
	e.p("    %soutputs_valid = 1;\n", e.prefix)
	e.p("}\n\n")

	e.p("void poke(const char *name, uint64_t value) {\n")
	for _, in := range e.c.Inputs {
		e.p("    if (strcmp(name, \"%s\") == 0) { %sin_%s = value & %s; %soutputs_valid = 0; return; }\n",
			in.Name, e.prefix, in.Name, widthMask(in.Width), e.prefix)
	}
	e.p("    fprintf(stderr, \"shdlc: poke: unknown signal %%s\\n\", name);\n")
	e.p("}\n\n")

	e.p("uint64_t peek(const char *name) {\n")
	for _, in := range e.c.Inputs {
		e.p("    if (strcmp(name, \"%s\") == 0) return %sin_%s;\n", in.Name, e.prefix, in.Name)
	}
	if len(e.c.Outputs) > 0 {
		e.p("    int %sis_output = 0;\n", e.prefix)
		for _, out := range e.c.Outputs {
			e.p("    if (strcmp(name, \"%s\") == 0) %sis_output = 1;\n", out.Name, e.prefix)
		}
		e.p("    if (%sis_output) {\n", e.prefix)
		e.p("        if (!%soutputs_valid) { %sdo_tick(); %soutputs_valid = 1; }\n", e.prefix, e.prefix, e.prefix)
		for _, out := range e.c.Outputs {
			e.p("        if (strcmp(name, \"%s\") == 0) return %sout_%s;\n", out.Name, e.prefix, out.Name)
		}
		e.p("    }\n")
	}
	for _, k := range e.kinds {
		for _, ch := range activeChunks(e.lm, k) {
			word := chunkWordName(k, ch)
			e.p("    if (strcmp(name, \"%s\") == 0) return %scur.%s;\n", word, e.prefix, word)
		}
	}
	e.p("    fprintf(stderr, \"shdlc: peek: unknown signal %%s\\n\", name);\n")
	e.p("    return 0;\n")
	e.p("}\n\n")

	e.p("void step(int32_t cycles) {\n")
	e.p("    if (cycles <= 0) {\n")
	e.p("        %srecompute_outputs(&%scur);\n", e.prefix, e.prefix)
	e.p("        %soutputs_valid = 1;\n", e.prefix)
	e.p("        return;\n")
	e.p("    }\n")
	e.p("    for (int32_t i = 0; i < cycles; i++) {\n")
	e.p("        %sdo_tick();\n", e.prefix)
	e.p("        %scur = %spend;\n", e.prefix, e.prefix)
	e.p("    }\n")
	e.p("    %soutputs_valid = 1;\n", e.prefix)
	e.p("}\n\n")

	e.p("void eval(void) {\n")
	e.p("    if (!%soutputs_valid) { %sdo_tick(); %soutputs_valid = 1; }\n", e.prefix, e.prefix, e.prefix)
	e.p("}\n")
}
