package diag

import (
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/shdl-lang/shdlc/internal/token"
)

func span() token.Span {
	return token.Span{
		Start: token.Pos{File: "t.shdl", Line: 3, Col: 5},
		End:   token.Pos{File: "t.shdl", Line: 3, Col: 9},
	}
}

func TestDiagnosticErrorFormat(t *testing.T) {
	d := New(EMultiDriver, span(), "signal %q has %d drivers", "Y", 2)
	msg := d.Error()
	if !strings.Contains(msg, "E0501") {
		t.Errorf("message missing code: %s", msg)
	}
	if !strings.Contains(msg, `signal "Y" has 2 drivers`) {
		t.Errorf("message missing formatted text: %s", msg)
	}
	if !strings.Contains(msg, "t.shdl:3:5-9") {
		t.Errorf("message missing span: %s", msg)
	}
}

func TestDiagnosticWithNote(t *testing.T) {
	d := New(EUnconnectedInput, span(), "input g.B has no driver").WithNote("every AND/OR/XOR pin must be driven")
	msg := d.Error()
	if !strings.Contains(msg, "note: every AND/OR/XOR pin must be driven") {
		t.Errorf("message missing note: %s", msg)
	}
}

func TestWarnfSeverity(t *testing.T) {
	d := Warnf(WUnusedPortOrConst, span(), "constant %q is never used", "K")
	if d.Severity != Warning {
		t.Errorf("severity = %v, want Warning", d.Severity)
	}
}

func TestBagHasErrorsIgnoresWarnings(t *testing.T) {
	b := &Bag{}
	b.Add(Warnf(WUnusedPortOrConst, span(), "unused"))
	if b.HasErrors() {
		t.Fatal("a warning-only bag must not report HasErrors")
	}
	b.Add(New(EMultiDriver, span(), "boom"))
	if !b.HasErrors() {
		t.Fatal("expected HasErrors after adding an error diagnostic")
	}
	if len(b.All()) != 2 {
		t.Errorf("All() = %d entries, want 2", len(b.All()))
	}
	if len(b.Errors()) != 1 {
		t.Errorf("Errors() = %d entries, want 1", len(b.Errors()))
	}
}

func TestBagAddIgnoresNil(t *testing.T) {
	b := &Bag{}
	b.Add(nil)
	if len(b.All()) != 0 {
		t.Fatalf("expected Add(nil) to be a no-op, got %d entries", len(b.All()))
	}
}

func TestBagErrCombinesMessages(t *testing.T) {
	b := &Bag{}
	b.Add(New(EMultiDriver, span(), "first"))
	b.Add(New(EUnconnectedInput, span(), "second"))
	err := b.Err()
	if err == nil {
		t.Fatal("expected a non-nil combined error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "first") || !strings.Contains(msg, "second") {
		t.Errorf("combined error missing a message: %s", msg)
	}
	ds := Diagnostics(err)
	if len(ds) != 2 {
		t.Fatalf("Diagnostics(err) = %d, want 2", len(ds))
	}
}

// TestDiagnosticsSurvivesCauseWrapping checks that a bag error wrapped
// by a caller (e.g. a driver shelling out to a file-read step above the
// parser) still yields its diagnostic codes once unwrapped with
// errors.Cause, so callers can assert on a specific code beneath a
// causal chain rather than string-matching messages.
func TestDiagnosticsSurvivesCauseWrapping(t *testing.T) {
	b := &Bag{}
	b.Add(New(EMultiDriver, span(), "signal %q has %d drivers", "Y", 2))
	wrapped := errors.Wrap(b.Err(), "compiling design.shdl")

	ds := Diagnostics(errors.Cause(wrapped))
	if len(ds) != 1 {
		t.Fatalf("Diagnostics(errors.Cause(wrapped)) = %d, want 1", len(ds))
	}
	if ds[0].Code != EMultiDriver {
		t.Errorf("code = %v, want %v", ds[0].Code, EMultiDriver)
	}
}

func TestBagErrNilWhenNoErrors(t *testing.T) {
	b := &Bag{}
	b.Add(Warnf(WUnusedPortOrConst, span(), "unused"))
	if b.Err() != nil {
		t.Fatal("expected Err() to be nil when the bag holds only warnings")
	}
}
