// Phase 3 — classification and bit-slice expansion.
//
// classifyAndDeclare resolves each flat instance declaration's Type
// into either a primitive ir.Kind or a pending user-component
// reference, and populates workComponent.Instances. expandSlices then
// walks every flat connection and expands any [:n]/[n:]/[a:b] slice
// reference into the corresponding per-bit single connections,
// rejecting width mismatches between a slice and the single bits it
// drives or is driven by.
package flatten

import (
	"github.com/shdl-lang/shdlc/internal/ast"
	"github.com/shdl-lang/shdlc/internal/diag"
	"github.com/shdl-lang/shdlc/internal/ir"
)

// classifyAndDeclare turns the flat instance declarations of a
// component into workInstance entries: a declared Type that names a
// primitive becomes that ir.Kind, and any other Type is kept as a
// pending user-component name, looked up in the component environment
// later by phase 5. Duplicate instance names are reported as E0304.
func classifyAndDeclare(def *ast.ComponentDef, fdecls []FlatDecl, wc *workComponent, diags *diag.Bag) {
	seen := map[string]bool{}
	for _, fd := range fdecls {
		if seen[fd.Name] {
			diags.Add(diag.New(diag.ENameDuplicateInstance, fd.Span, "instance %q declared more than once in component %q", fd.Name, def.Name))
			continue
		}
		seen[fd.Name] = true

		wi := workInstance{Name: fd.Name, Span: fd.Span}
		if k, ok := ir.ParseKind(fd.Type); ok {
			wi.Prim = true
			wi.Kind = k
		} else {
			wi.Prim = false
			wi.UserType = fd.Type
		}
		wc.Instances = append(wc.Instances, wi)
	}
}

// refWidth returns the declared bit width of a resolved flat signal
// reference, needed to expand an un-indexed whole-signal reference and
// to validate slice bounds. ok is false if the reference cannot be
// resolved against the component's ports/constants/instances (reported
// separately by the caller).
func refWidth(def *ast.ComponentDef, e *env, wc *workComponent, consts map[string]*resolvedConst, r FlatRef) (int, bool) {
	switch r.Kind {
	case ast.RefPort:
		if p := def.PortByName(r.Name); p != nil {
			return p.Width, true
		}
		// Might actually be an instance reference parsed without a dot
		// (impossible by grammar) or a constant; fall through.
		if c, ok := consts[r.Name]; ok {
			return c.width, true
		}
		return 0, false
	case ast.RefConstant:
		if c, ok := consts[r.Name]; ok {
			return c.width, true
		}
		return 0, false
	case ast.RefInstance:
		in, ok := wc.instanceByName(r.Name)
		if !ok {
			return 0, false
		}
		if in.Prim {
			return 1, true // every primitive pin is single-bit
		}
		// User-component instance: look up the declared width of Sub on
		// its type's own AST definition. This only needs the syntactic
		// port list, not a flattened result, so it is available
		// immediately without recursing into that component's own
		// flattening.
		nestedDef, ok := e.components[in.UserType]
		if !ok {
			return 0, false
		}
		p := nestedDef.PortByName(r.Sub)
		if p == nil {
			return 0, false
		}
		return p.Width, true
	}
	return 0, false
}

// resolvedConst is a constant's evaluated value and width, computed
// ahead of expandSlices so that constant references can be
// width-checked and later (phase 4) materialized.
type resolvedConst struct {
	value int64
	width int
}

func resolveConstants(def *ast.ComponentDef, diags *diag.Bag) map[string]*resolvedConst {
	out := map[string]*resolvedConst{}
	env := genEnv{}
	for _, c := range def.Constants {
		v, err := evalExpr(c.Value, env)
		if err != nil {
			diags.Add(diag.New(diag.EConstantWidth, c.Span, "%v", err))
			continue
		}
		var w int
		if c.Width != nil {
			wv, err := evalExpr(c.Width, env)
			if err != nil {
				diags.Add(diag.New(diag.EConstantWidth, c.Span, "%v", err))
				continue
			}
			w = int(wv)
		} else {
			w = implicitWidth(v)
		}
		if !fitsWidth(v, w) {
			diags.Add(diag.New(diag.EConstantWidth, c.Span, "constant %q value %d does not fit in %d bit(s)", c.Name, v, w))
		}
		out[c.Name] = &resolvedConst{value: v, width: w}
	}
	return out
}

// implicitWidth computes ceil(log2(v+1)), or 1 for v == 0, per the
// spec's implicit constant-width rule.
func implicitWidth(v int64) int {
	if v <= 0 {
		return 1
	}
	w := 0
	n := v
	for n > 0 {
		w++
		n >>= 1
	}
	return w
}

func fitsWidth(v int64, w int) bool {
	if v < 0 || w <= 0 || w >= 63 {
		return w > 0
	}
	return v < (int64(1) << uint(w))
}

// expandSlices runs phase 3 proper: every FlatConn is turned into one
// or more single-bit ir.Conn, with slice and whole-signal references
// expanded bit-by-bit consistent with 1-based, LSB-first port
// addressing (bit 1 is the LSB, bit Width is the MSB).
func expandSlices(def *ast.ComponentDef, e *env, wc *workComponent, fconns []FlatConn, diags *diag.Bag) []ir.Conn {
	consts := resolveConstants(def, diags)

	var out []ir.Conn
	for _, fc := range fconns {
		srcBits, srcW, srcOK := expandRef(def, e, wc, consts, fc.Src, diags)
		dstBits, dstW, dstOK := expandRef(def, e, wc, consts, fc.Dst, diags)
		if !srcOK || !dstOK {
			continue
		}
		if srcW != dstW {
			diags.Add(diag.New(diag.EWidthMismatch, fc.Span, "width mismatch in connection: source is %d bit(s), destination is %d bit(s)", srcW, dstW))
			n := srcW
			if dstW < n {
				n = dstW
			}
			srcBits, dstBits = srcBits[:n], dstBits[:n]
		}
		for i := range srcBits {
			out = append(out, ir.Conn{Src: srcBits[i], Dst: dstBits[i], Span: fc.Span})
		}
	}
	sortConns(out)
	return out
}

// expandRef resolves a FlatRef into its bit-ordered list of ir.Ref
// (one per bit, index 0 = bit 1 / LSB) plus its total width.
func expandRef(def *ast.ComponentDef, e *env, wc *workComponent, consts map[string]*resolvedConst, r FlatRef, diags *diag.Bag) ([]ir.Ref, int, bool) {
	total, ok := refWidth(def, e, wc, consts, r)
	if !ok {
		diags.Add(diag.New(diag.ENameUndefinedPort, r.Span, "undefined reference %q", r.Name))
		return nil, 0, false
	}

	lo, hi := 1, total
	if r.IsSlice {
		if r.HasSliceLo {
			lo = r.SliceLo
		}
		if r.HasSliceHi {
			hi = r.SliceHi
		}
	} else if r.HasIndex {
		lo, hi = r.Index, r.Index
	}
	if lo < 1 || hi > total || lo > hi {
		diags.Add(diag.New(diag.EIndexOutOfRange, r.Span, "index/slice %d:%d out of range for %d-bit signal %q", lo, hi, total, r.Name))
		if lo < 1 {
			lo = 1
		}
		if hi > total {
			hi = total
		}
		if lo > hi {
			lo, hi = 1, 1
		}
	}

	var refs []ir.Ref
	for bit := lo; bit <= hi; bit++ {
		refs = append(refs, toRef(def, wc, consts, r, bit))
	}
	return refs, len(refs), true
}

// constRefPrefix tags a synthesized component-input name standing in
// for a named constant until phase 4 replaces it with a reference to
// the constant's materialized VCC/GND instance.
const constRefPrefix = "__const_"

// toRef converts a single resolved bit of a FlatRef into an ir.Ref.
// Classification against the component's own ports, named constants,
// and nested-instance pins happens here: a bare (non-dotted) name is
// checked against ports first, then constants, falling back to an
// instance reference (the parser cannot tell these apart without the
// component's declarations in scope).
func toRef(def *ast.ComponentDef, wc *workComponent, consts map[string]*resolvedConst, r FlatRef, bit int) ir.Ref {
	if r.Kind == ast.RefInstance {
		return ir.Ref{Kind: ir.RefInstancePort, Name: r.Name, Port: r.Sub, Bit: bit}
	}
	if p := def.PortByName(r.Name); p != nil {
		for _, out := range def.Outputs {
			if out.Name == r.Name {
				return ir.Ref{Kind: ir.RefComponentOut, Name: r.Name, Bit: bit}
			}
		}
		return ir.Ref{Kind: ir.RefComponentIn, Name: r.Name, Bit: bit}
	}
	if _, ok := consts[r.Name]; ok {
		return ir.Ref{Kind: ir.RefComponentIn, Name: constRefPrefix + r.Name, Bit: bit}
	}
	return ir.Ref{Kind: ir.RefInstancePort, Name: r.Name, Port: r.Sub, Bit: bit}
}
