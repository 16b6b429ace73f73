// Phase 2 — generator expansion.
//
// Each generator is unrolled innermost-first. Ranges evaluate to
// explicit integer sequences; each emitted body gets its loop variable
// bound and substituted into embedded `{expr}` arithmetic and the
// special `name{i}` identifier-concatenation form. After this phase no
// `>` generator syntax remains: the component reduces to a flat list
// of instance declarations and connections.
package flatten

import (
	"fmt"
	"strconv"

	"github.com/shdl-lang/shdlc/internal/ast"
	"github.com/shdl-lang/shdlc/internal/diag"
	"github.com/shdl-lang/shdlc/internal/token"
)

// FlatDecl is a fully-named (no interpolation left) instance
// declaration, still referring to its source type name (a primitive
// keyword or a user component name).
type FlatDecl struct {
	Name string
	Type string
	Span token.Span
}

// FlatRef is a signal reference with all generator interpolation
// resolved: Name/Sub are plain strings, and any index or slice bound
// that was expressible as a closed-form arithmetic expression is now a
// concrete integer. Classification into RefPort/RefInstance/RefConstant
// happens in the expander (phase 3 setup), since it needs the
// component's declared ports/constants/instances to disambiguate.
type FlatRef struct {
	Kind ast.SignalRefKind
	Name string
	Sub  string

	HasIndex bool
	Index    int

	IsSlice    bool
	HasSliceLo bool
	SliceLo    int
	HasSliceHi bool
	SliceHi    int

	Span token.Span
}

// FlatConn is a connection with both sides resolved to FlatRef.
type FlatConn struct {
	Src, Dst FlatRef
	Span     token.Span
}

// genEnv binds generator loop variables to concrete integer values for
// substitution.
type genEnv map[string]int64

func (g genEnv) child(v string, val int64) genEnv {
	c := make(genEnv, len(g)+1)
	for k, v := range g {
		c[k] = v
	}
	c[v] = val
	return c
}

// expandGenerators runs phase 2 over an entire component definition,
// returning the flat instance declarations and connections.
func expandGenerators(def *ast.ComponentDef, diags *diag.Bag) ([]FlatDecl, []FlatConn) {
	var decls []FlatDecl
	var conns []FlatConn

	env := genEnv{}
	for _, d := range def.Decls {
		decls = append(decls, resolveDecl(d, env, diags))
	}
	for _, g := range def.Generators {
		gd, gc := expandOneGenerator(g, env, diags)
		decls = append(decls, gd...)
		conns = append(conns, gc...)
	}
	if def.ConnectBody != nil {
		for _, c := range def.ConnectBody.Connections {
			conns = append(conns, resolveConn(c, env, diags))
		}
		for _, g := range def.ConnectBody.Generators {
			gd, gc := expandOneGenerator(g, env, diags)
			decls = append(decls, gd...)
			conns = append(conns, gc...)
		}
	}
	return decls, conns
}

// expandOneGenerator unrolls a single generator (and, recursively, any
// nested generators in its body) innermost-first: since we evaluate
// nested generators only after binding the enclosing variable, the
// innermost variable is always the last one substituted, which is the
// same as saying the innermost generator is expanded first for each
// outer iteration.
func expandOneGenerator(g *ast.Generator, outer genEnv, diags *diag.Bag) ([]FlatDecl, []FlatConn) {
	if _, shadowed := outer[g.Var]; shadowed {
		diags.Add(diag.New(diag.EGeneratorShadow, g.Span, "generator variable %q shadows an enclosing generator variable", g.Var))
	}
	values := evalRangeList(g.Ranges, outer, diags)

	var decls []FlatDecl
	var conns []FlatConn
	for _, v := range values {
		env := outer.child(g.Var, v)
		for _, d := range g.Body.Decls {
			decls = append(decls, resolveDecl(d, env, diags))
		}
		for _, c := range g.Body.Connections {
			conns = append(conns, resolveConn(c, env, diags))
		}
		for _, ng := range g.Body.Generators {
			nd, nc := expandOneGenerator(ng, env, diags)
			decls = append(decls, nd...)
			conns = append(conns, nc...)
		}
	}
	return decls, conns
}

// evalRangeList evaluates a generator's `[a:b, c, d:e]` range list into
// the union of integer values, in order. A range list containing a
// single bare INT item means 1..k; a bare INT among several items is a
// singleton.
func evalRangeList(ranges []ast.Range, env genEnv, diags *diag.Bag) []int64 {
	var out []int64
	singleBare := len(ranges) == 1 && ranges[0].Bare
	for _, r := range ranges {
		switch {
		case r.Bare && singleBare:
			k, err := evalExpr(r.Hi, env)
			if err != nil {
				diags.Add(diag.New(diag.EGeneratorRange, r.Span, "%v", err))
				continue
			}
			if k <= 0 {
				diags.Add(diag.New(diag.EGeneratorRange, r.Span, "generator range must be positive, got %d", k))
				continue
			}
			for i := int64(1); i <= k; i++ {
				out = append(out, i)
			}
		case r.Bare:
			k, err := evalExpr(r.Hi, env)
			if err != nil {
				diags.Add(diag.New(diag.EGeneratorRange, r.Span, "%v", err))
				continue
			}
			out = append(out, k)
		case !r.HasLo:
			// ":b" — open low bound, resolved to 1..b, consistent with
			// 1-based indexing.
			hi, err := evalExpr(r.Hi, env)
			if err != nil {
				diags.Add(diag.New(diag.EGeneratorRange, r.Span, "%v", err))
				continue
			}
			for i := int64(1); i <= hi; i++ {
				out = append(out, i)
			}
		case !r.HasHi:
			diags.Add(diag.New(diag.EGeneratorRange, r.Span, "open-ended range 'a:' is only valid inside a signal index, not a generator range"))
		default:
			lo, err1 := evalExpr(r.Lo, env)
			hi, err2 := evalExpr(r.Hi, env)
			if err1 != nil {
				diags.Add(diag.New(diag.EGeneratorRange, r.Span, "%v", err1))
				continue
			}
			if err2 != nil {
				diags.Add(diag.New(diag.EGeneratorRange, r.Span, "%v", err2))
				continue
			}
			if hi < lo {
				diags.Add(diag.New(diag.EGeneratorRange, r.Span, "generator range %d:%d is empty or descending", lo, hi))
				continue
			}
			for i := lo; i <= hi; i++ {
				out = append(out, i)
			}
		}
	}
	return out
}

// evalExpr evaluates an integer arithmetic expression over literals
// and bound generator variables.
func evalExpr(e *ast.Expr, env genEnv) (int64, error) {
	if e == nil {
		return 0, errf("missing expression")
	}
	switch {
	case e.IsLit:
		return e.Lit, nil
	case e.IsVar:
		if v, ok := env[e.Var]; ok {
			return v, nil
		}
		return 0, errf("undefined generator variable %q", e.Var)
	default:
		l, err := evalExpr(e.Left, env)
		if err != nil {
			return 0, err
		}
		r, err := evalExpr(e.Right, env)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case '+':
			return l + r, nil
		case '-':
			return l - r, nil
		case '*':
			return l * r, nil
		default:
			return 0, errf("unknown operator %q", string(e.Op))
		}
	}
}

// resolveDecl substitutes env into an instance declaration's
// (possibly interpolated) name.
func resolveDecl(d *ast.InstanceDecl, env genEnv, diags *diag.Bag) FlatDecl {
	name, err := resolveName(d.Name, env)
	if err != nil {
		diags.Add(diag.New(diag.EGeneratorRange, d.Span, "%v", err))
	}
	return FlatDecl{Name: name, Type: d.Type, Span: d.Span}
}

func resolveConn(c *ast.Connection, env genEnv, diags *diag.Bag) FlatConn {
	return FlatConn{Src: resolveRef(c.Src, env, diags), Dst: resolveRef(c.Dst, env, diags), Span: c.Span}
}

func resolveRef(r *ast.SignalRef, env genEnv, diags *diag.Bag) FlatRef {
	name, err := resolveName(r.Name, env)
	if err != nil {
		diags.Add(diag.New(diag.EGeneratorRange, r.Span, "%v", err))
	}
	fr := FlatRef{Kind: r.Kind, Name: name, Sub: r.Sub, IsSlice: r.IsSlice, Span: r.Span}
	if r.Index != nil {
		v, err := evalExpr(r.Index, env)
		if err != nil {
			diags.Add(diag.New(diag.EGeneratorRange, r.Span, "%v", err))
		}
		fr.HasIndex = true
		fr.Index = int(v)
	}
	if r.HasSliceLo {
		v, err := evalExpr(r.SliceLo, env)
		if err != nil {
			diags.Add(diag.New(diag.EGeneratorRange, r.Span, "%v", err))
		}
		fr.HasSliceLo = true
		fr.SliceLo = int(v)
	}
	if r.HasSliceHi {
		v, err := evalExpr(r.SliceHi, env)
		if err != nil {
			diags.Add(diag.New(diag.EGeneratorRange, r.Span, "%v", err))
		}
		fr.HasSliceHi = true
		fr.SliceHi = int(v)
	}
	return fr
}

// resolveName substitutes env into an interpolated identifier: plain
// text segments are copied verbatim, and {expr} segments are replaced
// by the decimal representation of their evaluated value, matching the
// spec's `name{i}` concatenation form.
func resolveName(n ast.InterpName, env genEnv) (string, error) {
	if !n.HasInterp() {
		return n.Literal, nil
	}
	out := ""
	for _, seg := range n.Segments {
		if seg.Expr == nil {
			out += seg.Text
			continue
		}
		v, err := evalExpr(seg.Expr, env)
		if err != nil {
			return out, err
		}
		out += strconv.FormatInt(v, 10)
	}
	return out, nil
}

func errf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
