// Phase 5 — hierarchy flattening.
//
// Every user-component instance in a workComponent is itself already
// fully flattened to primitives-only IR by the time flattenHierarchy
// runs (flattenComponent recurses bottom-up and memoizes by name), so
// inlining a single instance is a bounded substitution: its primitive
// instances are renamed with an instName_ prefix and spliced into the
// parent's instance list, and the two connection maps below erase the
// instance boundary:
//
//   - driverForInput  — what the parent wires into each input pin of
//     the instance
//   - rawOutputSrc    — what drives each output pin, from inside the
//     nested component's own (already-flattened) connections
//
// A nested component's output can itself be a bare pass-through of one
// of its own input ports (a wrapper with no gates at all), which is
// why resolving an output may recurse back out into the parent's own
// driverForInput — hence the cycle guard in resolveAny.
package flatten

import (
	"github.com/shdl-lang/shdlc/internal/diag"
	"github.com/shdl-lang/shdlc/internal/ir"
	"github.com/shdl-lang/shdlc/internal/token"
)

type portBit struct {
	inst string
	port string
	bit  int
}

type hierCtx struct {
	wc     *workComponent
	nested map[string]*ir.Component // user instance name -> its fully-flattened type

	driverForInput map[portBit]ir.Ref
	rawOutputSrc   map[portBit]ir.Ref

	diags *diag.Bag
}

func (h *hierCtx) isUserInstance(name string) bool {
	_, ok := h.nested[name]
	return ok
}

// flattenHierarchy runs phase 5 over a workComponent whose instances
// have already been classified (phase 3) and whose Conns have already
// been through slice expansion and constant materialization (phases
// 3-4). Every user-component instance is recursively flattened (memoized
// in cache) and inlined; the result contains only primitive instances.
func flattenHierarchy(wc *workComponent, e *env, cache map[string]*ir.Component, visiting map[string]bool, diags *diag.Bag) *ir.Component {
	h := &hierCtx{
		wc:             wc,
		nested:         map[string]*ir.Component{},
		driverForInput: map[portBit]ir.Ref{},
		rawOutputSrc:   map[portBit]ir.Ref{},
		diags:          diags,
	}

	for _, in := range wc.Instances {
		if in.Prim {
			continue
		}
		def, ok := e.components[in.UserType]
		if !ok {
			diags.Add(diag.New(diag.ENameUndefinedComponent, in.Span, "unknown component type %q for instance %q", in.UserType, in.Name))
			continue
		}
		h.nested[in.Name] = flattenComponent(def, e, cache, visiting, diags)
	}

	for _, c := range wc.Conns {
		if c.Dst.Kind == ir.RefInstancePort && h.isUserInstance(c.Dst.Name) {
			h.driverForInput[portBit{c.Dst.Name, c.Dst.Port, c.Dst.Bit}] = c.Src
		}
	}
	for instName, nested := range h.nested {
		for _, c := range nested.Connections {
			if c.Dst.Kind == ir.RefComponentOut {
				h.rawOutputSrc[portBit{instName, c.Dst.Name, c.Dst.Bit}] = c.Src
			}
		}
	}

	out := &ir.Component{Name: wc.Name, Span: wc.Span, Inputs: wc.Inputs, Outputs: wc.Outputs}

	for _, in := range wc.Instances {
		if in.Prim {
			out.Instances = append(out.Instances, ir.Instance{Name: in.Name, Kind: in.Kind})
			continue
		}
		nested, ok := h.nested[in.Name]
		if !ok {
			continue // unknown component type already reported above
		}
		for _, ni := range nested.Instances {
			out.Instances = append(out.Instances, ir.Instance{Name: instanceName(in.Name, ni.Name), Kind: ni.Kind})
		}
	}

	var conns []ir.Conn
	for _, c := range wc.Conns {
		if c.Dst.Kind == ir.RefInstancePort && h.isUserInstance(c.Dst.Name) {
			continue // consumed above as a driverForInput anchor
		}
		conns = append(conns, ir.Conn{Src: h.resolveAny(c.Src, c.Span, map[portBit]bool{}), Dst: c.Dst, Span: c.Span})
	}
	for instName, nested := range h.nested {
		for _, c := range nested.Connections {
			if c.Dst.Kind != ir.RefInstancePort {
				continue // ComponentOut entries only feed rawOutputSrc, not re-emitted
			}
			dst := ir.Ref{Kind: ir.RefInstancePort, Name: instanceName(instName, c.Dst.Name), Port: c.Dst.Port, Bit: c.Dst.Bit}
			var src ir.Ref
			if c.Src.Kind == ir.RefComponentIn {
				src = h.resolveSrcAtParent(instName, c.Src.Name, c.Src.Bit, c.Span, map[portBit]bool{})
			} else {
				src = ir.Ref{Kind: ir.RefInstancePort, Name: instanceName(instName, c.Src.Name), Port: c.Src.Port, Bit: c.Src.Bit}
			}
			conns = append(conns, ir.Conn{Src: src, Dst: dst, Span: c.Span})
		}
	}

	sortConns(conns)
	out.Connections = conns
	return out
}

// resolveAny resolves r to its ultimate concrete driver: if r names a
// user-instance output pin, that pin's driver is substituted
// (recursively, since the driver may itself be another user
// instance's output, or a pass-through back to this component's own
// input). Anything else — this component's own input port, or one of
// its own primitive instances — is already concrete.
func (h *hierCtx) resolveAny(r ir.Ref, span token.Span, visiting map[portBit]bool) ir.Ref {
	if r.Kind != ir.RefInstancePort || !h.isUserInstance(r.Name) {
		return r
	}
	return h.resolveOutput(r.Name, r.Port, r.Bit, span, visiting)
}

func (h *hierCtx) resolveOutput(instName, port string, bit int, span token.Span, visiting map[portBit]bool) ir.Ref {
	key := portBit{instName, port, bit}
	if visiting[key] {
		h.diags.Add(diag.New(diag.EMultiDriver, span, "combinational cycle resolving output %s.%s[%d]", instName, port, bit))
		return ir.Ref{}
	}
	visiting[key] = true
	defer delete(visiting, key)

	src, ok := h.rawOutputSrc[key]
	if !ok {
		h.diags.Add(diag.New(diag.EUnconnectedOutput, span, "output %s.%s[%d] has no driver", instName, port, bit))
		return ir.Ref{}
	}
	if src.Kind == ir.RefComponentIn {
		return h.resolveSrcAtParent(instName, src.Name, src.Bit, span, visiting)
	}
	return ir.Ref{Kind: ir.RefInstancePort, Name: instanceName(instName, src.Name), Port: src.Port, Bit: src.Bit}
}

func (h *hierCtx) resolveSrcAtParent(instName, port string, bit int, span token.Span, visiting map[portBit]bool) ir.Ref {
	key := portBit{instName, port, bit}
	if visiting[key] {
		h.diags.Add(diag.New(diag.EMultiDriver, span, "combinational cycle resolving input %s.%s[%d]", instName, port, bit))
		return ir.Ref{}
	}
	visiting[key] = true
	defer delete(visiting, key)

	src, ok := h.driverForInput[key]
	if !ok {
		h.diags.Add(diag.New(diag.EUnconnectedInput, span, "input %s.%s[%d] has no driver", instName, port, bit))
		return ir.Ref{}
	}
	return h.resolveAny(src, span, visiting)
}
