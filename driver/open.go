package driver

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/shdl-lang/shdlc/internal/codegen"
)

// Checked pairs a loaded Simulator with the side table describing its
// ports, so callers get a programmatic error on an unrecognized signal
// name instead of relying on the generated shell's stderr diagnostic.
type Checked struct {
	*Simulator
	Table *codegen.SideTable

	inputs  map[string]int
	outputs map[string]int
}

// Open compiles source, loads the resulting shared object, and parses
// sideTableJSON (as produced by codegen.SideTable.Marshal) into a
// Checked wrapper ready for Poke/Peek by validated port name.
func Open(name, source string, opts CompileOptions, sideTableJSON []byte) (*Checked, error) {
	res, err := Compile(name, source, opts)
	if err != nil {
		return nil, err
	}
	sim, err := Load(res.SharedPath)
	if err != nil {
		return nil, err
	}

	var st codegen.SideTable
	if err := json.Unmarshal(sideTableJSON, &st); err != nil {
		sim.Close()
		return nil, errors.Wrap(err, "parsing side table")
	}

	c := &Checked{Simulator: sim, Table: &st, inputs: map[string]int{}, outputs: map[string]int{}}
	for _, p := range st.Inputs {
		c.inputs[p.Name] = p.Width
	}
	for _, p := range st.Outputs {
		c.outputs[p.Name] = p.Width
	}
	return c, nil
}

// PokeChecked validates name against the component's declared input
// ports before calling Poke, returning an error rather than letting an
// unrecognized name fall through to the generated shell's
// silently-ignored behavior.
func (c *Checked) PokeChecked(name string, value uint64) error {
	if _, ok := c.inputs[name]; !ok {
		return errors.Errorf("unknown input port %q", name)
	}
	c.Poke(name, value)
	return nil
}

// PeekChecked validates name against the component's declared input and
// output ports (the internal KIND_O_c introspection names are left to
// raw Peek, since they are not part of the design's own port list)
// before calling Peek.
func (c *Checked) PeekChecked(name string) (uint64, error) {
	if _, ok := c.inputs[name]; ok {
		return c.Peek(name), nil
	}
	if _, ok := c.outputs[name]; ok {
		return c.Peek(name), nil
	}
	return 0, errors.Errorf("unknown port %q", name)
}
