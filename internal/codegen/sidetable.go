package codegen

import (
	"encoding/json"

	"github.com/shdl-lang/shdlc/internal/ir"
)

// SideTable is the companion artifact the driver package consumes
// alongside the compiled shared object, so it can validate port names
// and widths without re-parsing the generated C. There is no
// third-party JSON library anywhere in the example pack's own code
// (only transitive entries in one example's go.mod), so encoding/json
// is the correctly-justified choice here.
type SideTable struct {
	Component string          `json:"component"`
	Inputs    []PortInfo      `json:"inputs"`
	Outputs   []PortInfo      `json:"outputs"`
	Internal  []InternalWord  `json:"internal"`
	Lanes     map[string]Lane `json:"lanes"`
}

// PortInfo is one declared input or output port.
type PortInfo struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
}

// InternalWord names one (KIND, chunk) state word exposed for
// introspection via peek, along with how many lanes of it are active.
type InternalWord struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Chunk int    `json:"chunk"`
	Lanes int    `json:"lanes"`
}

func buildSideTable(c *ir.Component, lm LaneMap) *SideTable {
	st := &SideTable{Component: c.Name, Lanes: map[string]Lane{}}
	for _, in := range c.Inputs {
		st.Inputs = append(st.Inputs, PortInfo{Name: in.Name, Width: in.Width})
	}
	for _, out := range c.Outputs {
		st.Outputs = append(st.Outputs, PortInfo{Name: out.Name, Width: out.Width})
	}
	for name, l := range lm {
		st.Lanes[name] = l
	}
	for _, k := range presentKinds(lm) {
		for _, ch := range activeChunks(lm, k) {
			st.Internal = append(st.Internal, InternalWord{
				Name:  chunkWordName(k, ch),
				Kind:  k.String(),
				Chunk: ch,
				Lanes: chunkLaneCount(lm, k, ch),
			})
		}
	}
	return st
}

// Marshal renders the side table as indented JSON, for writing
// alongside the generated C source (the shdlc command writes it to the
// C output path with ".json" appended, e.g. "design.c.json").
func (st *SideTable) Marshal() ([]byte, error) {
	return json.MarshalIndent(st, "", "  ")
}
