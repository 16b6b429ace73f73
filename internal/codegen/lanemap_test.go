package codegen

import (
	"testing"

	"github.com/shdl-lang/shdlc/internal/ir"
)

// manyAnds builds a synthetic component with n AND instances (no
// connections), enough to exercise lane assignment across a 64-lane
// chunk boundary.
func manyAnds(n int) *ir.Component {
	c := &ir.Component{Name: "wide"}
	for i := 0; i < n; i++ {
		c.Instances = append(c.Instances, ir.Instance{Name: "g" + string(rune('a'+i%26)) + string(rune('0'+i/26)), Kind: ir.AND})
	}
	return c
}

// TestLaneAssignmentCrossesChunkBoundary is testable property 4: for
// every kind and chunk, the active-lane mask has exactly
// min(64, remaining_instances) bits set.
func TestLaneAssignmentCrossesChunkBoundary(t *testing.T) {
	c := manyAnds(65)
	lm := BuildLaneMap(c)
	if len(lm) != 65 {
		t.Fatalf("expected 65 lanes assigned, got %d", len(lm))
	}

	chunks := activeChunks(lm, ir.AND)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 active chunks for 65 instances, got %v", chunks)
	}
	if n := chunkLaneCount(lm, ir.AND, 0); n != 64 {
		t.Errorf("chunk 0 lane count = %d, want 64 (full)", n)
	}
	if n := chunkLaneCount(lm, ir.AND, 1); n != 1 {
		t.Errorf("chunk 1 lane count = %d, want 1 (spillover)", n)
	}
	if mask := laneMask(64); mask != "0xFFFFFFFFFFFFFFFFULL" {
		t.Errorf("laneMask(64) = %s, want all 64 bits set", mask)
	}
	if mask := laneMask(1); mask != "0x1ULL" {
		t.Errorf("laneMask(1) = %s, want a single set bit", mask)
	}

	// Bit positions within a chunk must be distinct and span 0-63.
	seen := map[int]bool{}
	for _, l := range lm {
		if l.Kind != ir.AND || l.Chunk != 0 {
			continue
		}
		if seen[l.Bit] {
			t.Fatalf("duplicate bit position %d in chunk 0", l.Bit)
		}
		seen[l.Bit] = true
	}
	if len(seen) != 64 {
		t.Fatalf("chunk 0 has %d distinct bit positions, want 64", len(seen))
	}
}

// TestLaneAssignmentKeepsKindsSeparate checks that instances of
// different kinds never share a lane counter, even when declared in
// interleaved source order.
func TestLaneAssignmentKeepsKindsSeparate(t *testing.T) {
	c := &ir.Component{Instances: []ir.Instance{
		{Name: "a1", Kind: ir.AND},
		{Name: "o1", Kind: ir.OR},
		{Name: "a2", Kind: ir.AND},
		{Name: "vcc1", Kind: ir.VCC},
	}}
	lm := BuildLaneMap(c)
	if _, ok := lm["vcc1"]; ok {
		t.Fatal("VCC must not receive a state lane (stateless primitive)")
	}
	if lm["a1"].Bit != 0 || lm["a2"].Bit != 1 {
		t.Errorf("AND lanes = %v, %v, want bits 0 and 1", lm["a1"], lm["a2"])
	}
	if lm["o1"].Bit != 0 {
		t.Errorf("OR lane = %v, want bit 0 (its own counter)", lm["o1"])
	}
}
