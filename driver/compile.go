// Package driver is the host-toolchain boundary: it invokes the host C
// compiler on emitted source, loads the resulting shared object, and
// exposes the four FFI symbols (reset/poke/peek/step) to the embedding
// Go process as a small, mutex-guarded Simulator type.
package driver

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
)

// CompileOptions controls the invocation of the host C toolchain.
type CompileOptions struct {
	// CC is the compiler to invoke; defaults to "cc" if empty.
	CC string
	// OptLevel is passed as -O{level}; must be 0-3.
	OptLevel int
	// WorkDir is where the .c source and .so output are written;
	// defaults to os.MkdirTemp if empty.
	WorkDir string
}

// CompileResult names the artifacts produced by Compile.
type CompileResult struct {
	SourcePath string
	SharedPath string
}

// Compile writes source to a .c file under opts.WorkDir and invokes the
// host C toolchain to produce a shared object, using -shared -fPIC
// and a tunable optimization level.
func Compile(name, source string, opts CompileOptions) (*CompileResult, error) {
	cc := opts.CC
	if cc == "" {
		cc = "cc"
	}
	level := opts.OptLevel
	if level < 0 || level > 3 {
		return nil, errors.Errorf("invalid optimization level %d: must be 0-3", level)
	}

	dir := opts.WorkDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "shdlc-")
		if err != nil {
			return nil, errors.Wrap(err, "creating work directory")
		}
	}

	srcPath := filepath.Join(dir, name+".c")
	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		return nil, errors.Wrapf(err, "writing %s", srcPath)
	}

	soPath := filepath.Join(dir, name+".so")
	args := []string{"-shared", "-fPIC", fmt.Sprintf("-O%d", level), "-o", soPath, srcPath}
	cmd := exec.Command(cc, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errors.Wrapf(err, "%s %v failed: %s", cc, args, out)
	}

	return &CompileResult{SourcePath: srcPath, SharedPath: soPath}, nil
}
