package frame

import (
	"testing"
)

func TestParamOffsets(t *testing.T) {
	l := NewLayout("f")

	a := l.AddParam("a")
	b := l.AddParam("b")
	c := l.AddParam("c")

	if a.Offset != 8 || b.Offset != 12 || c.Offset != 16 {
		t.Errorf("param offsets = %v, %v, %v", a.Offset, b.Offset, c.Offset)
	}

	// re-adding returns the same slot
	if l.AddParam("a") != a {
		t.Errorf("AddParam must be idempotent per name")
	}
}

func TestLocalOffsets(t *testing.T) {
	l := NewLayout("f")

	x := l.AddLocal("x")
	y := l.AddLocal("y")

	if x.Offset != -12 || y.Offset != -16 {
		t.Errorf("local offsets = %v, %v; locals grow down from the header", x.Offset, y.Offset)
	}
}

func TestSize(t *testing.T) {
	l := NewLayout("leaf")

	// no locals: just the saved ra/fp header
	if l.Size() != 8 {
		t.Errorf("empty frame size = %v, want 8", l.Size())
	}

	l.AddLocal("x")
	if l.Size() != 16 {
		t.Errorf("one local pads 12 to 16, got %v", l.Size())
	}

	l.AddLocal("y")
	if l.Size() != 16 {
		t.Errorf("two locals fit exactly in 16, got %v", l.Size())
	}

	l.AddLocal("z")
	if l.Size() != 24 {
		t.Errorf("three locals pad 20 to 24, got %v", l.Size())
	}
}

func TestLookup(t *testing.T) {
	l := NewLayout("f")
	l.AddParam("n")
	l.AddLocal("acc")

	if s := l.Lookup("n"); s == nil || s.Offset != 8 {
		t.Errorf("param lookup: %+v", s)
	}
	if s := l.Lookup("acc"); s == nil || s.Offset != -12 {
		t.Errorf("local lookup: %+v", s)
	}
	if l.Lookup("ghost") != nil {
		t.Errorf("unknown name must not resolve")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if r.Has("f") {
		t.Fatalf("fresh registry must be empty")
	}

	f := r.Frame("f")
	f.AddLocal("x")

	if !r.Has("f") {
		t.Errorf("Frame must register the layout")
	}
	if r.Frame("f") != f {
		t.Errorf("Frame must return the same layout per name")
	}
}
