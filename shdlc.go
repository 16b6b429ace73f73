package shdlc

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/shdl-lang/shdlc/internal/analyze"
	"github.com/shdl-lang/shdlc/internal/codegen"
	"github.com/shdl-lang/shdlc/internal/diag"
	"github.com/shdl-lang/shdlc/internal/flatten"
	"github.com/shdl-lang/shdlc/internal/parse"
	"github.com/shdl-lang/shdlc/internal/resolve"
)

// Options controls a single Compile invocation, mirroring the shdlc
// command-line flags.
type Options struct {
	// InputPath is the SHDL source file to compile.
	InputPath string
	// SearchPaths are additional directories searched for `use`-
	// resolved modules, in order (-I, repeatable).
	SearchPaths []string
	// Component selects the entry component when InputPath defines
	// more than one; empty selects the file's only component, which is
	// an error if there is more than one.
	Component string
	// Prefix is forwarded to codegen.Options.Prefix.
	Prefix string
}

// Result is everything a Compile call produces: the emitted C source,
// its companion side table, and the diagnostics collected along the
// way (which may include warnings even on success).
type Result struct {
	ComponentName string
	Source        string
	SideTable     *codegen.SideTable
	Diagnostics   *diag.Bag
}

// Compile runs the full front-end-through-codegen pipeline: parse,
// resolve imports, flatten to Base IR, analyze, and emit C source. It
// does not invoke the host C toolchain or load a shared object — that
// boundary-crossing step belongs to the driver package, which consumes
// Result.Source and Result.SideTable directly.
func Compile(opts Options) (*Result, error) {
	src, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", opts.InputPath)
	}

	diags := &diag.Bag{}
	mod := parse.File(opts.InputPath, string(src), diags)
	if diags.HasErrors() {
		return &Result{Diagnostics: diags}, diags.Err()
	}

	entry := opts.Component
	if entry == "" {
		if len(mod.Components) != 1 {
			return nil, errors.Errorf("%s defines %d components; pass Component to select one", opts.InputPath, len(mod.Components))
		}
		entry = mod.Components[0].Name
	}

	set := resolve.Resolve(mod, opts.SearchPaths, diags)
	if diags.HasErrors() {
		return &Result{Diagnostics: diags}, diags.Err()
	}

	c := flatten.Flatten(mod, entry, set, diags)
	if diags.HasErrors() || c == nil {
		return &Result{Diagnostics: diags}, diags.Err()
	}

	res := analyze.Analyze(c, diags)
	if diags.HasErrors() {
		return &Result{Diagnostics: diags}, diags.Err()
	}

	source, st := codegen.Generate(res, codegen.Options{Prefix: opts.Prefix})
	return &Result{ComponentName: entry, Source: source, SideTable: st, Diagnostics: diags}, nil
}

// DefaultOutputPath mirrors the CLI's default for -o: the input's base
// name with its extension replaced by .c.
func DefaultOutputPath(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".c"
}
