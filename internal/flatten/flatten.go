// Package flatten lowers an Expanded-SHDL module into Base SHDL
// (internal/ir), running five sequential phases: lexical stripping
// (module resolution, already done by internal/resolve, consumed
// here), generator expansion, bit-slice expansion, constant
// materialization, and hierarchy flattening.
package flatten

import (
	"fmt"
	"sort"

	"github.com/shdl-lang/shdlc/internal/ast"
	"github.com/shdl-lang/shdlc/internal/diag"
	"github.com/shdl-lang/shdlc/internal/ir"
	"github.com/shdl-lang/shdlc/internal/resolve"
	"github.com/shdl-lang/shdlc/internal/token"
)

// env is the phase-1 flat symbol environment: every component
// reachable from the entry module, keyed by bare name. Primitive
// keywords are not stored here; they are recognized directly by
// ir.ParseKind.
type env struct {
	components map[string]*ast.ComponentDef
}

// buildEnv implements phase 1 for component lookup: the entry
// module's own components take priority; imported names are added
// without overwriting an existing entry, and a collision between two
// distinct imports is reported as a warning rather than an error,
// since there is no canonical precedence for name clashes across
// modules.
func buildEnv(entry *ast.Module, set *resolve.Set, diags *diag.Bag) *env {
	e := &env{components: map[string]*ast.ComponentDef{}}
	for _, c := range entry.Components {
		e.components[c.Name] = c
	}
	for _, imp := range entry.Imports {
		mod := set.Modules[imp.Module]
		if mod == nil {
			continue
		}
		for _, name := range imp.Names {
			c := mod.ComponentByName(name)
			if c == nil {
				continue
			}
			if _, exists := e.components[name]; exists {
				diags.Add(diag.Warnf(diag.WUnusedPortOrConst, imp.Span, "component %q imported from %q shadowed by an existing definition", name, imp.Module))
				continue
			}
			e.components[name] = c
		}
	}
	// Components that imported components instantiate may live in any
	// resolved module without being named in a `use` list; they are
	// added last, in module-name order, never overwriting an entry.
	modNames := make([]string, 0, len(set.Modules))
	for name := range set.Modules {
		modNames = append(modNames, name)
	}
	sort.Strings(modNames)
	for _, name := range modNames {
		for _, c := range set.Modules[name].Components {
			if _, exists := e.components[c.Name]; !exists {
				e.components[c.Name] = c
			}
		}
	}
	return e
}

// Flatten runs all five phases and returns the fully flattened Base
// SHDL component for entryName, declared in entry (or reachable from
// it via `use`).
func Flatten(entry *ast.Module, entryName string, set *resolve.Set, diags *diag.Bag) *ir.Component {
	e := buildEnv(entry, set, diags)
	def, ok := e.components[entryName]
	if !ok {
		def = entry.ComponentByName(entryName)
	}
	if def == nil {
		diags.Add(diag.New(diag.ENameUndefinedComponent, token.Span{}, "entry component %q not found", entryName))
		return nil
	}
	cache := map[string]*ir.Component{}
	visiting := map[string]bool{}
	return flattenComponent(def, e, cache, visiting, diags)
}

// flattenComponent runs phases 2-5 for a single component definition,
// memoizing the fully-resolved (primitives-only) result by name so a
// component instantiated many times is only flattened once.
func flattenComponent(def *ast.ComponentDef, e *env, cache map[string]*ir.Component, visiting map[string]bool, diags *diag.Bag) *ir.Component {
	if c, ok := cache[def.Name]; ok {
		return c
	}
	if visiting[def.Name] {
		diags.Add(diag.New(diag.ENameUndefinedComponent, def.Span, "component %q recursively instantiates itself", def.Name))
		return emptyComponent(def)
	}
	visiting[def.Name] = true
	defer delete(visiting, def.Name)

	// Phase 2: generator expansion.
	fdecls, fconns := expandGenerators(def, diags)

	// Phase 3 (+classification): bit-slice expansion.
	wc := &workComponent{
		Name:    def.Name,
		Span:    def.Span,
		Inputs:  portsToIR(def.Inputs),
		Outputs: portsToIR(def.Outputs),
	}
	classifyAndDeclare(def, fdecls, wc, diags)
	expanded := expandSlices(def, e, wc, fconns, diags)

	// Phase 4: constant materialization.
	expanded = materializeConstants(def, wc, expanded, diags)

	wc.Conns = expanded

	// Phase 5: hierarchy flattening (recursive).
	return flattenHierarchy(wc, e, cache, visiting, diags)
}

func emptyComponent(def *ast.ComponentDef) *ir.Component {
	return &ir.Component{Name: def.Name, Span: def.Span, Inputs: portsToIR(def.Inputs), Outputs: portsToIR(def.Outputs)}
}

func portsToIR(ps []*ast.Port) []ir.Port {
	out := make([]ir.Port, len(ps))
	for i, p := range ps {
		out[i] = ir.Port{Name: p.Name, Width: p.Width}
	}
	return out
}

// workInstance is an instance declaration mid-flatten: either a
// resolved primitive, or a still-to-be-inlined user component.
type workInstance struct {
	Name     string
	Prim     bool
	Kind     ir.Kind
	UserType string
	Span     token.Span
}

// workComponent is the working representation of a component between
// phases 3/4 and the hierarchy-flattening of phase 5.
type workComponent struct {
	Name      string
	Span      token.Span
	Inputs    []ir.Port
	Outputs   []ir.Port
	Instances []workInstance
	Conns     []ir.Conn
}

func (wc *workComponent) instanceByName(name string) (workInstance, bool) {
	for _, in := range wc.Instances {
		if in.Name == name {
			return in, true
		}
	}
	return workInstance{}, false
}

func (wc *workComponent) portWidth(name string, isOutput bool) (int, bool) {
	list := wc.Inputs
	if isOutput {
		list = wc.Outputs
	}
	for _, p := range list {
		if p.Name == name {
			return p.Width, true
		}
	}
	return 0, false
}

// sortConns gives connection emission a deterministic order
// (lexicographic by destination then source string form), so two
// compiles of the same design produce byte-identical output.
func sortConns(conns []ir.Conn) {
	sort.SliceStable(conns, func(i, j int) bool {
		a, b := conns[i], conns[j]
		if a.Dst.String() != b.Dst.String() {
			return a.Dst.String() < b.Dst.String()
		}
		return a.Src.String() < b.Src.String()
	})
}

func instanceName(parent, child string) string {
	return fmt.Sprintf("%s_%s", parent, child)
}
