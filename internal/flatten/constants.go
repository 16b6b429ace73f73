// Phase 4 — constant materialization.
//
// Every named constant used anywhere in the component is decomposed
// bit-by-bit into synthesized VCC/GND primitive instances (one per
// referenced bit), and every connection referencing the constant is rewritten to
// instead reference the corresponding synthesized instance's output
// pin.
package flatten

import (
	"fmt"

	"github.com/shdl-lang/shdlc/internal/ast"
	"github.com/shdl-lang/shdlc/internal/diag"
	"github.com/shdl-lang/shdlc/internal/ir"
)

// materializeConstants rewrites every constRefPrefix-tagged Ref in
// conns into a reference to a synthesized VCC/GND instance, appending
// those instances to wc.Instances. A constant that is never referenced
// contributes no instances: constants materialize on use, not on
// declaration.
func materializeConstants(def *ast.ComponentDef, wc *workComponent, conns []ir.Conn, diags *diag.Bag) []ir.Conn {
	consts := resolveConstants(def, diags)
	synthesized := map[string]bool{} // instance name -> already appended

	rewrite := func(r ir.Ref) ir.Ref {
		if r.Kind != ir.RefComponentIn || len(r.Name) <= len(constRefPrefix) || r.Name[:len(constRefPrefix)] != constRefPrefix {
			return r
		}
		cname := r.Name[len(constRefPrefix):]
		c, ok := consts[cname]
		if !ok {
			diags.Add(diag.New(diag.EConstantWidth, def.Span, "reference to undefined constant %q", cname))
			return r
		}
		instName := fmt.Sprintf("%s_bit%d", cname, r.Bit)
		bitSet := r.Bit >= 1 && r.Bit <= 64 && (c.value>>(uint(r.Bit)-1))&1 == 1
		if !synthesized[instName] {
			synthesized[instName] = true
			kind := ir.GND
			if bitSet {
				kind = ir.VCC
			}
			wc.Instances = append(wc.Instances, workInstance{Name: instName, Prim: true, Kind: kind})
		}
		return ir.Ref{Kind: ir.RefInstancePort, Name: instName, Port: ir.OutputPort, Bit: 1}
	}

	out := make([]ir.Conn, len(conns))
	for i, c := range conns {
		out[i] = ir.Conn{Src: rewrite(c.Src), Dst: rewrite(c.Dst), Span: c.Span}
	}
	sortConns(out)
	return out
}
