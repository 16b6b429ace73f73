// Package ir defines Base SHDL: the flat intermediate representation
// produced by the flattener (internal/flatten) and consumed by the
// semantic analyzer (internal/analyze) and code generator
// (internal/codegen).
//
// A Base Component has only the original port list, a list of
// primitive instances, and single-bit connections: no hierarchy,
// generators, expanders, or named constants survive flattening.
package ir

import (
	"fmt"

	"github.com/shdl-lang/shdlc/internal/token"
)

// Kind is one of the six primitive gate kinds. These are the only
// primitives the flattener and code generator ever produce; NAND/NOR
// are not primitive here and must be expressed as a small network of
// AND/OR/NOT/XOR/VCC/GND.
type Kind int

const (
	AND Kind = iota
	OR
	NOT
	XOR
	VCC
	GND
)

var kindNames = [...]string{"AND", "OR", "NOT", "XOR", "VCC", "GND"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a primitive keyword (as it appears in source, or its
// synthesized internal form) to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "AND":
		return AND, true
	case "OR":
		return OR, true
	case "NOT":
		return NOT, true
	case "XOR":
		return XOR, true
	case "__VCC__":
		return VCC, true
	case "__GND__":
		return GND, true
	}
	return 0, false
}

// InputPorts returns the fixed port names a primitive of kind k
// exposes, in declaration order.
func (k Kind) InputPorts() []string {
	switch k {
	case NOT:
		return []string{"A"}
	case VCC, GND:
		return nil
	default:
		return []string{"A", "B"}
	}
}

// OutputPort is always "O" for every primitive kind.
const OutputPort = "O"

// Port is a named, fixed-width component input or output.
type Port struct {
	Name  string
	Width int
}

// Instance is one primitive gate in the flattened netlist. Name is
// globally unique within the component and reflects its origin
// through `parent_child` path concatenation, built up as hierarchy
// flattening inlines each nested instance.
type Instance struct {
	Name string
	Kind Kind
}

// RefKind distinguishes the three forms a single-bit Ref can take.
type RefKind int

const (
	RefComponentIn  RefKind = iota // a component input port bit
	RefComponentOut                // a component output port bit
	RefInstancePort                // an instance's A/B/O pin
)

// Ref is a single-bit signal reference in the flattened netlist: a
// component port bit, or an instance's pin.
//
// Bit is a 1-based bit index. For a primitive instance pin it is
// always 1 (every primitive pin is single-bit), but for a
// not-yet-inlined user-component instance pin (pre-hierarchy-
// flattening only; never present in a final Component) it addresses
// the bit of that instance's declared port width. Hierarchy flattening
// (phase 5) eliminates every such reference by substituting the real
// driver/load on the other side of the nested component's boundary.
type Ref struct {
	Kind RefKind
	Name string // component port name, or instance name
	Port string // "" for component ports; "A"/"B"/"O" for instance pins
	Bit  int
}

func (r Ref) String() string {
	switch r.Kind {
	case RefComponentIn, RefComponentOut:
		return fmt.Sprintf("%s[%d]", r.Name, r.Bit)
	default:
		return fmt.Sprintf("%s.%s[%d]", r.Name, r.Port, r.Bit)
	}
}

// Conn is a single-bit connection `Src -> Dst`. Span is the source
// position of the connection (or constant/decl) that produced it, used
// only for diagnostics — it plays no role in simulation semantics.
type Conn struct {
	Src, Dst Ref
	Span     token.Span
}

// Component is a flattened Base SHDL design: no hierarchy, generators,
// expanders or named constants remain.
type Component struct {
	Name        string
	Span        token.Span // the component definition's own source span, used as a diagnostic fallback when no connection span applies
	Inputs      []Port
	Outputs     []Port
	Instances   []Instance
	Connections []Conn
}

// InstanceByName does a linear lookup; flattener/analyzer call this
// rarely enough (construction time, not per-tick) that an index is not
// warranted.
func (c *Component) InstanceByName(name string) (Instance, bool) {
	for _, in := range c.Instances {
		if in.Name == name {
			return in, true
		}
	}
	return Instance{}, false
}

// InputPort and OutputPort look up a declared port by name.
func (c *Component) InputPort(name string) (Port, bool) {
	for _, p := range c.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

func (c *Component) OutputPort(name string) (Port, bool) {
	for _, p := range c.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}
