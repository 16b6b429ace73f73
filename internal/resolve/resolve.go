// Package resolve implements SHDL's module resolution: `use m::{A,B}`
// locates `m.shdl` on the include search path and parses it
// transitively, detecting import cycles. The flattener's phase 1 builds
// its flat symbol environment from the resulting module set.
package resolve

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/shdl-lang/shdlc/internal/ast"
	"github.com/shdl-lang/shdlc/internal/diag"
	"github.com/shdl-lang/shdlc/internal/parse"
)

// Set is the transitive closure of modules reachable from an entry
// module, keyed by module name.
type Set struct {
	Modules map[string]*ast.Module
}

// ComponentDef looks up a component definition by (possibly empty)
// module name; an empty module name searches the entry module.
func (s *Set) ComponentDef(entry *ast.Module, modName, compName string) *ast.ComponentDef {
	mod := entry
	if modName != "" {
		mod = s.Modules[modName]
		if mod == nil {
			return nil
		}
	}
	return mod.ComponentByName(compName)
}

// Resolve takes the already-parsed entry module and recursively resolves
// every `use` import reachable from it, searching searchPaths (in order)
// for `<module>.shdl`.
// Import cycles are reported as E0702 diagnostics.
func Resolve(entry *ast.Module, searchPaths []string, diags *diag.Bag) *Set {
	set := &Set{Modules: map[string]*ast.Module{entry.Name: entry}}
	inStack := map[string]bool{entry.Name: true}
	resolveImports(entry, searchPaths, set, inStack, diags)
	return set
}

func resolveImports(m *ast.Module, searchPaths []string, set *Set, inStack map[string]bool, diags *diag.Bag) {
	for _, imp := range m.Imports {
		if inStack[imp.Module] {
			diags.Add(diag.New(diag.EImportCycle, imp.Span, "circular import involving module %q", imp.Module))
			continue
		}
		if existing, ok := set.Modules[imp.Module]; ok {
			checkNames(existing, imp, diags)
			continue
		}
		path, err := findModule(imp.Module, searchPaths)
		if err != nil {
			diags.Add(diag.New(diag.EImportNotFound, imp.Span, "cannot find module %q: %v", imp.Module, err))
			continue
		}
		src, err := os.ReadFile(path)
		if err != nil {
			diags.Add(diag.New(diag.EImportNotFound, imp.Span, "cannot read %q: %v", path, errors.Cause(err)))
			continue
		}
		sub := parse.File(path, string(src), diags)
		set.Modules[imp.Module] = sub
		checkNames(sub, imp, diags)

		inStack[imp.Module] = true
		resolveImports(sub, searchPaths, set, inStack, diags)
		delete(inStack, imp.Module)
	}
}

func checkNames(mod *ast.Module, imp *ast.Import, diags *diag.Bag) {
	for _, name := range imp.Names {
		if mod.ComponentByName(name) == nil {
			diags.Add(diag.New(diag.ENameUndefinedComponent, imp.Span, "module %q has no component %q", imp.Module, name))
		}
	}
}

// findModule searches searchPaths (in order) for "<name>.shdl".
func findModule(name string, searchPaths []string) (string, error) {
	fname := name + ".shdl"
	for _, dir := range searchPaths {
		p := filepath.Join(dir, fname)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", errors.Errorf("%s not found on search path", fname)
}
