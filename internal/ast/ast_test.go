package ast

import (
	"testing"

	"github.com/shdl-lang/shdlc/internal/token"
)

func TestInterpNameHasInterp(t *testing.T) {
	plain := InterpName{Literal: "g1"}
	if plain.HasInterp() {
		t.Error("a plain literal name must report HasInterp() == false")
	}
	interp := InterpName{Segments: []NameSegment{{Text: "g"}, {Expr: Var("i", token.Span{})}}}
	if !interp.HasInterp() {
		t.Error("a name with a substitution segment must report HasInterp() == true")
	}
}

func TestModuleComponentByName(t *testing.T) {
	m := &Module{Components: []*ComponentDef{
		{Name: "half_adder"},
		{Name: "full_adder"},
	}}
	if c := m.ComponentByName("full_adder"); c == nil || c.Name != "full_adder" {
		t.Errorf("ComponentByName(full_adder) = %v", c)
	}
	if c := m.ComponentByName("nope"); c != nil {
		t.Errorf("ComponentByName(nope) = %v, want nil", c)
	}
}

func TestComponentDefPortByName(t *testing.T) {
	c := &ComponentDef{
		Inputs:  []*Port{{Name: "A", Width: 1}},
		Outputs: []*Port{{Name: "Sum", Width: 1}},
	}
	if p := c.PortByName("A"); p == nil {
		t.Error("PortByName(A) should find an input port")
	}
	if p := c.PortByName("Sum"); p == nil {
		t.Error("PortByName(Sum) should find an output port")
	}
	if p := c.PortByName("nope"); p != nil {
		t.Errorf("PortByName(nope) = %v, want nil", p)
	}
}

func TestExprConstructors(t *testing.T) {
	e := Bin('+', Lit(2, token.Span{}), Var("i", token.Span{}), token.Span{})
	if e.Op != '+' || !e.Left.IsLit || e.Left.Lit != 2 || !e.Right.IsVar || e.Right.Var != "i" {
		t.Errorf("Bin(...) = %+v", e)
	}
}
