// Command shdlc compiles an SHDL source file into a native simulator.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shdl-lang/shdlc"
	"github.com/shdl-lang/shdlc/driver"
)

// searchPaths collects repeatable -I flags in order.
type searchPaths []string

func (s *searchPaths) String() string { return strings.Join(*s, ",") }
func (s *searchPaths) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("shdlc", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	output := fs.String("o", "", "output path for emitted source (default: input basename + .c)")
	var includes searchPaths
	fs.Var(&includes, "I", "additional search path for `use` resolution (repeatable)")
	compileOnly := fs.Bool("c", false, "emit source; do not invoke the host toolchain")
	fs.BoolVar(compileOnly, "compile-only", false, "alias for -c")
	optLevel := fs.Int("O", 3, "optimization level passed to the host toolchain (0-3)")
	component := fs.String("component", "", "entry component name, when the file defines several")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected exactly one input file")
	}
	if *optLevel < 0 || *optLevel > 3 {
		return fmt.Errorf("-O must be 0-3, got %d", *optLevel)
	}
	input := fs.Arg(0)

	res, err := shdlc.Compile(shdlc.Options{
		InputPath:   input,
		SearchPaths: includes,
		Component:   *component,
	})
	if res != nil && res.Diagnostics != nil {
		for _, d := range res.Diagnostics.All() {
			fmt.Fprintln(os.Stderr, d.Error())
		}
	}
	if err != nil {
		return err
	}

	outPath := *output
	if outPath == "" {
		outPath = shdlc.DefaultOutputPath(input)
	}
	if err := os.WriteFile(outPath, []byte(res.Source), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	if *compileOnly {
		return nil
	}

	sideTable, err := res.SideTable.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling side table: %w", err)
	}
	sidePath := outPath + ".json"
	if err := os.WriteFile(sidePath, sideTable, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", sidePath, err)
	}

	_, err = driver.Compile(res.ComponentName, res.Source, driver.CompileOptions{
		OptLevel: *optLevel,
		WorkDir:  filepath.Dir(outPath),
	})
	if err != nil {
		return fmt.Errorf("compiling %s: %w", outPath, err)
	}
	return nil
}
