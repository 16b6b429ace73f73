package driver

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

typedef void     (*reset_fn)(void);
typedef void     (*poke_fn)(const char *, uint64_t);
typedef uint64_t (*peek_fn)(const char *);
typedef void     (*step_fn)(int32_t);

static void call_reset(reset_fn f) { f(); }
static void call_poke(poke_fn f, const char *name, uint64_t value) { f(name, value); }
static uint64_t call_peek(peek_fn f, const char *name) { return f(name); }
static void call_step(step_fn f, int32_t cycles) { f(cycles); }
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
)

// Simulator wraps a loaded shared object's four ABI symbols
// (reset/poke/peek/step) behind a Go-idiomatic API. The embedded Mutex
// is not used internally — the emitted C runtime shell holds one
// mutable state block per process and is not re-entrant — so any
// caller driving a Simulator from more than
// one goroutine must Lock/Unlock it around every Poke/Step/Peek/Reset
// call itself. A Simulator used from a single goroutine needs no
// locking at all.
type Simulator struct {
	sync.Mutex

	handle unsafe.Pointer
	reset  C.reset_fn
	poke   C.poke_fn
	peek   C.peek_fn
	step   C.step_fn
}

// Load dlopen()s the shared object at path and binds its four ABI
// symbols. The returned Simulator is not reset; call Reset before use.
func Load(path string) (*Simulator, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	handle := C.dlopen(cPath, C.RTLD_NOW)
	if handle == nil {
		return nil, errors.Errorf("dlopen %s: %s", path, C.GoString(C.dlerror()))
	}

	sym := func(name string) (unsafe.Pointer, error) {
		cName := C.CString(name)
		defer C.free(unsafe.Pointer(cName))
		C.dlerror() // clear any pending error
		p := C.dlsym(handle, cName)
		if p == nil {
			if msg := C.dlerror(); msg != nil {
				return nil, errors.Errorf("dlsym %s: %s", name, C.GoString(msg))
			}
		}
		return p, nil
	}

	resetP, err := sym("reset")
	if err != nil {
		return nil, err
	}
	pokeP, err := sym("poke")
	if err != nil {
		return nil, err
	}
	peekP, err := sym("peek")
	if err != nil {
		return nil, err
	}
	stepP, err := sym("step")
	if err != nil {
		return nil, err
	}

	return &Simulator{
		handle: handle,
		reset:  C.reset_fn(resetP),
		poke:   C.poke_fn(pokeP),
		peek:   C.peek_fn(peekP),
		step:   C.step_fn(stepP),
	}, nil
}

// Close dlclose()s the underlying shared object. The Simulator must not
// be used afterward.
func (s *Simulator) Close() error {
	if s.handle == nil {
		return nil
	}
	if C.dlclose(s.handle) != 0 {
		return errors.Errorf("dlclose: %s", C.GoString(C.dlerror()))
	}
	s.handle = nil
	return nil
}

// Reset zeroes the simulator's state and cached inputs.
func (s *Simulator) Reset() {
	C.call_reset(s.reset)
}

// Poke writes an input port, masking to its declared width; outputs
// are marked stale until the next Peek/Step/Eval.
func (s *Simulator) Poke(name string, value uint64) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	C.call_poke(s.poke, cName, C.uint64_t(value))
}

// Peek reads an input port, an output port, or (for introspection) an
// internal KIND_O_c word. Reading an output port may trigger one
// pending recompute if outputs are currently stale, matching the
// generated shell's "ensure outputs up-to-date before returning a
// peek" contract.
func (s *Simulator) Peek(name string) uint64 {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	return uint64(C.call_peek(s.peek, cName))
}

// Step advances the simulator cycles ticks, committing the computed
// next state to the current state each cycle. cycles <= 0 recomputes
// output extraction from the already-committed state without
// advancing time, per the step(0) decision recorded in the design
// notes.
func (s *Simulator) Step(cycles int32) {
	C.call_step(s.step, C.int32_t(cycles))
}
