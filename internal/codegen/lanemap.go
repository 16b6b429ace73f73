// Lane assignment: primitives of the same kind are bucketed in source
// order, 64 to a chunk.
package codegen

import (
	"sort"
	"strconv"

	"github.com/shdl-lang/shdlc/internal/ir"
)

// Lane is one primitive instance's position in the bit-packed state:
// its kind, which 64-lane chunk it lives in, and its bit position
// (0-63) within that chunk's word.
type Lane struct {
	Kind  ir.Kind
	Chunk int
	Bit   int
}

// LaneMap assigns every stateful primitive instance (every kind except
// VCC/GND, which carry no state word) a Lane. Order matches the
// component's own Instances slice, which the flattener already
// produces in a deterministic order, so lane
// assignment itself requires no further sorting — just a stable
// per-kind counter.
type LaneMap map[string]Lane

// BuildLaneMap assigns lanes for every instance of c whose kind is
// stateful (AND, OR, NOT, XOR).
func BuildLaneMap(c *ir.Component) LaneMap {
	lm := LaneMap{}
	counters := map[ir.Kind]int{}
	for _, in := range c.Instances {
		if !stateful(in.Kind) {
			continue
		}
		i := counters[in.Kind]
		counters[in.Kind] = i + 1
		lm[in.Name] = Lane{Kind: in.Kind, Chunk: i / 64, Bit: i % 64}
	}
	return lm
}

func stateful(k ir.Kind) bool {
	return k == ir.AND || k == ir.OR || k == ir.NOT || k == ir.XOR
}

// chunkWordName is the C identifier for a (kind, chunk) state word,
// e.g. "XOR_O_0".
func chunkWordName(k ir.Kind, chunk int) string {
	return k.String() + "_O_" + strconv.Itoa(chunk)
}

// activeChunks returns, for a given kind, the sorted list of chunk
// indices that have at least one active lane. The lane count of a chunk
// comes from chunkLaneCount.
func activeChunks(lm LaneMap, k ir.Kind) []int {
	seen := map[int]bool{}
	for _, l := range lm {
		if l.Kind == k {
			seen[l.Chunk] = true
		}
	}
	chunks := make([]int, 0, len(seen))
	for c := range seen {
		chunks = append(chunks, c)
	}
	sort.Ints(chunks)
	return chunks
}

// chunkLaneCount returns how many lanes of kind k are populated in the
// given chunk (1-64), used to build that chunk's active-lane mask:
// chunks before the last are always full (64 lanes).
func chunkLaneCount(lm LaneMap, k ir.Kind, chunk int) int {
	n := 0
	for _, l := range lm {
		if l.Kind == k && l.Chunk == chunk {
			n++
		}
	}
	return n
}

