package parse

import (
	"testing"

	"github.com/shdl-lang/shdlc/internal/diag"
	"github.com/shdl-lang/shdlc/internal/token"
)

func tokenTypes(toks []token.Token) []token.Type {
	var out []token.Type
	for _, t := range toks {
		out = append(out, t.Type)
	}
	return out
}

func TestScanPunctuationAndKeywords(t *testing.T) {
	diags := &diag.Bag{}
	toks := Scan("t.shdl", "component c(A) -> (B) { g: AND; connect { A -> g.A; } }", diags)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	want := []token.Type{
		token.KwComponent, token.Ident, token.LParen, token.Ident, token.RParen,
		token.Arrow, token.LParen, token.Ident, token.RParen, token.LBrace,
		token.Ident, token.Colon, token.Ident, token.Semi,
		token.KwConnect, token.LBrace,
		token.Ident, token.Arrow, token.Ident, token.Dot, token.Ident, token.Semi,
		token.RBrace, token.RBrace, token.EOF,
	}
	got := tokenTypes(toks)
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d\ngot:  %v\nwant: %v", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestScanIntegerLiterals(t *testing.T) {
	diags := &diag.Bag{}
	toks := Scan("t.shdl", "10 0xFF 0b101", diags)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	want := []int64{10, 255, 5}
	for i, w := range want {
		if toks[i].Type != token.Int {
			t.Fatalf("token %d type = %s, want INT", i, toks[i].Type)
		}
		if toks[i].IntVal != w {
			t.Errorf("token %d value = %d, want %d", i, toks[i].IntVal, w)
		}
	}
}

func TestScanComments(t *testing.T) {
	diags := &diag.Bag{}
	toks := Scan("t.shdl", "A # trailing comment\n\"single line\"\nB\n\"\"\"a block\ncomment\"\"\"\nC", diags)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	var idents []string
	for _, tk := range toks {
		if tk.Type == token.Ident {
			idents = append(idents, tk.Lit)
		}
	}
	if len(idents) != 3 || idents[0] != "A" || idents[1] != "B" || idents[2] != "C" {
		t.Fatalf("idents = %v, want [A B C]", idents)
	}
}

func TestScanArrowVsMinus(t *testing.T) {
	diags := &diag.Bag{}
	toks := Scan("t.shdl", "a -> b - 1", diags)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	if toks[1].Type != token.Arrow {
		t.Errorf("token 1 = %s, want ->", toks[1].Type)
	}
	if toks[3].Type != token.Minus {
		t.Errorf("token 3 = %s, want -", toks[3].Type)
	}
}

func TestScanUnterminatedCommentIsError(t *testing.T) {
	diags := &diag.Bag{}
	Scan("t.shdl", `"""unterminated`, diags)
	if !diags.HasErrors() {
		t.Fatal("expected an unterminated-comment error")
	}
}

func TestScanInvalidCharacterIsError(t *testing.T) {
	diags := &diag.Bag{}
	Scan("t.shdl", "A $ B", diags)
	if !diags.HasErrors() {
		t.Fatal("expected an invalid-character error")
	}
	found := false
	for _, d := range diags.Errors() {
		if d.Code == diag.ELexInvalid {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E0101, got %v", diags.Errors())
	}
}
