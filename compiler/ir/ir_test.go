package ir

import (
	"strings"
	"testing"
)

func TestPoolReuse(t *testing.T) {
	var p Pool

	a := p.Get()
	b := p.Get()

	if a != 0 || b != 1 {
		t.Fatalf("fresh pool must count from zero: got %v, %v", a, b)
	}

	p.Release(a)

	if c := p.Get(); c != a {
		t.Errorf("released id must be reused first: got t%d, want t%d", c, a)
	}
	if d := p.Get(); d != 2 {
		t.Errorf("exhausted free list must mint a fresh id: got t%d, want t2", d)
	}
}

func TestTempNames(t *testing.T) {
	if Temp(7) != "t7" {
		t.Errorf("Temp(7) = %q", Temp(7))
	}

	for op, want := range map[string]bool{
		"t0":    true,
		"t12":   true,
		"t":     false,
		"total": false,
		"x1":    false,
		"":      false,
	} {
		if IsTemp(op) != want {
			t.Errorf("IsTemp(%q) = %v, want %v", op, !want, want)
		}
	}
}

func TestLabelsMonotonic(t *testing.T) {
	var p Prog

	a := p.NewLabel()
	b := p.NewLabel()

	if a == b {
		t.Fatalf("labels must never repeat: %v", a)
	}
	if a != "L0" || b != "L1" {
		t.Errorf("labels = %v, %v", a, b)
	}
}

func TestPatch(t *testing.T) {
	var p Prog

	f := p.Emit("ENTER", "", "0", "")
	p.Emit("RET", "", "", "")

	p.Patch(f, "16")

	if p.Code[f].A1 != "16" {
		t.Errorf("patched operand = %q, want 16", p.Code[f].A1)
	}
}

func TestInstrString(t *testing.T) {
	i := Instr{Op: "ADD", Res: "t0", A1: "x", A2: "1"}
	if got := i.String(); got != "ADD t0 x 1" {
		t.Errorf("String() = %q", got)
	}

	i = Instr{Op: "JUMP", Res: "L3", Comment: "loop back"}
	if got := i.String(); got != "JUMP L3    # loop back" {
		t.Errorf("String() = %q", got)
	}

	var p Prog
	p.Label("program_start")
	p.Emit("PRINT", "", "1", "")

	if got := p.String(); !strings.HasPrefix(got, "LABEL program_start\n") {
		t.Errorf("program listing:\n%s", got)
	}
}
