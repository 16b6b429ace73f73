// Package analyze is the semantic analyzer: it builds the driver map
// over a flattened Base SHDL component and enforces the single-driver
// invariant.
//
// The check runs once, ahead of time, over the whole flattened netlist
// rather than incrementally as parts are wired, since static analysis
// here is fully separated from execution: every bit-level destination
// must have exactly one driver before any code is generated.
package analyze

import (
	"sort"

	"github.com/shdl-lang/shdlc/internal/diag"
	"github.com/shdl-lang/shdlc/internal/ir"
)

// DriverMap maps every sink (a primitive input pin, or a component
// output port bit) to the single source that drives it.
type DriverMap map[ir.Ref]ir.Ref

// Result is the post-analysis Base IR: the flattened component plus
// its driver map, the only structure codegen needs.
type Result struct {
	Component *ir.Component
	Drivers   DriverMap

	// Feedback lists the instance names that participate in a
	// combinational cycle (register/latch idiom) — detected, not an
	// error: self-feedback through a gate network is how state is
	// built in a language with no explicit register primitive.
	Feedback []string
}

// Analyze builds the driver map for c and checks the single-driver and
// fully-connected invariants, reporting diagnostics into diags.
// Analysis continues past the first problem so every violation in a
// design is reported in one pass, but codegen must not run if diags
// ends up with any error-severity diagnostic.
func Analyze(c *ir.Component, diags *diag.Bag) *Result {
	drivers := DriverMap{}
	multiplyDriven := map[ir.Ref]bool{}

	for _, conn := range c.Connections {
		if existing, ok := drivers[conn.Dst]; ok {
			if existing != conn.Src && !multiplyDriven[conn.Dst] {
				multiplyDriven[conn.Dst] = true
				diags.Add(diag.New(diag.EMultiDriver, conn.Span, "%s is driven by more than one source", conn.Dst))
			}
			continue
		}
		drivers[conn.Dst] = conn.Src
	}

	checkFullyConnected(c, drivers, diags)

	return &Result{
		Component: c,
		Drivers:   drivers,
		Feedback:  detectFeedback(c, drivers),
	}
}

// checkFullyConnected verifies every primitive input pin and every
// declared component output bit has a driver. Primitive output pins
// (A "O" pin) and VCC/GND (which have no inputs at all) need no entry.
func checkFullyConnected(c *ir.Component, drivers DriverMap, diags *diag.Bag) {
	for _, in := range c.Instances {
		for _, port := range in.Kind.InputPorts() {
			sink := ir.Ref{Kind: ir.RefInstancePort, Name: in.Name, Port: port, Bit: 1}
			if _, ok := drivers[sink]; !ok {
				diags.Add(diag.New(diag.EUnconnectedInput, c.Span, "%s has no driver", sink))
			}
		}
	}
	for _, out := range c.Outputs {
		for bit := 1; bit <= out.Width; bit++ {
			sink := ir.Ref{Kind: ir.RefComponentOut, Name: out.Name, Bit: bit}
			if _, ok := drivers[sink]; !ok {
				diags.Add(diag.New(diag.EUnconnectedOutput, c.Span, "%s has no driver", sink))
			}
		}
	}
}

// detectFeedback finds every primitive instance that is its own
// (possibly indirect) ancestor in the driver graph, restricted to
// instance-to-instance dependency edges (component ports are graph
// boundaries, never intermediate nodes, since an output port is never
// itself read as a source within the same component). Returned names
// are sorted for deterministic diagnostics/logging.
func detectFeedback(c *ir.Component, drivers DriverMap) []string {
	// dependsOn[instance] = set of instances whose output directly
	// drives one of instance's input pins.
	dependsOn := map[string]map[string]bool{}
	for _, in := range c.Instances {
		dependsOn[in.Name] = map[string]bool{}
	}
	for sink, src := range drivers {
		if sink.Kind != ir.RefInstancePort || src.Kind != ir.RefInstancePort {
			continue
		}
		if src.Name == sink.Name {
			dependsOn[sink.Name][sink.Name] = true
			continue
		}
		dependsOn[sink.Name][src.Name] = true
	}

	const (
		white = iota
		gray
		black
	)
	color := map[string]int{}
	feedback := map[string]bool{}

	var visit func(string) bool
	visit = func(n string) bool {
		color[n] = gray
		for dep := range dependsOn[n] {
			switch color[dep] {
			case gray:
				feedback[n] = true
				feedback[dep] = true
			case white:
				if visit(dep) {
					feedback[n] = true
				}
			}
		}
		color[n] = black
		return feedback[n]
	}
	for _, in := range c.Instances {
		if color[in.Name] == white {
			visit(in.Name)
		}
	}

	out := make([]string, 0, len(feedback))
	for n := range feedback {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
