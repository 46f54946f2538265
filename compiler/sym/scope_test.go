package sym

import (
	"testing"

	"github.com/compiscript/cps/compiler/tp"
)

func TestScopeShadowing(t *testing.T) {
	global := NewScope(nil)

	err := global.Define(NewVar("x", tp.Int{}))
	if err != nil {
		t.Fatalf("define: %v", err)
	}

	err = global.Define(NewVar("x", tp.String{}))
	if err == nil {
		t.Errorf("redeclaration in the same scope must fail")
	}

	inner := NewScope(global)

	err = inner.Define(NewVar("x", tp.String{}))
	if err != nil {
		t.Fatalf("shadowing in a child scope must be allowed: %v", err)
	}

	if got := inner.Resolve("x").SymType(); got.String() != "string" {
		t.Errorf("inner x resolves to %v, want the shadowing string", got)
	}
	if got := global.Resolve("x").SymType(); got.String() != "integer" {
		t.Errorf("global x resolves to %v, want integer", got)
	}

	if inner.Resolve("y") != nil {
		t.Errorf("undeclared name must resolve to nil")
	}
	if inner.ResolveLocal("nope") != nil {
		t.Errorf("ResolveLocal must not walk outward")
	}
}

func TestScopeResolvesOuter(t *testing.T) {
	global := NewScope(nil)
	_ = global.Define(NewVar("g", tp.Bool{}))

	leaf := NewScope(NewScope(global))

	if leaf.Resolve("g") == nil {
		t.Errorf("resolution must walk the whole chain")
	}
	if leaf.ResolveLocal("g") != nil {
		t.Errorf("g is not local to the leaf scope")
	}
}

func TestClassMembers(t *testing.T) {
	base := NewClass("Animal")
	_ = base.AddField(NewVar("name", tp.String{}))
	_ = base.AddMethod(&Func{Name: "speak"})

	if err := base.AddField(NewVar("name", tp.Int{})); err == nil {
		t.Errorf("duplicate field must fail")
	}
	if err := base.AddMethod(&Func{Name: "name"}); err == nil {
		t.Errorf("method clashing with a field must fail")
	}

	dog := NewClass("Dog")
	if err := dog.SetBase(base); err != nil {
		t.Fatalf("set base: %v", err)
	}

	if dog.Field("name") == nil {
		t.Errorf("field lookup must walk the base chain")
	}
	if dog.Method("speak") == nil {
		t.Errorf("method lookup must walk the base chain")
	}
	if got := dog.MethodOwner("speak"); got != base {
		t.Errorf("speak is declared by Animal, got %v", got)
	}
	if !dog.HasMember("name") || dog.HasMember("age") {
		t.Errorf("HasMember mismatch")
	}
}

func TestInheritanceCycle(t *testing.T) {
	a := NewClass("A")
	b := NewClass("B")

	if err := b.SetBase(a); err != nil {
		t.Fatalf("set base: %v", err)
	}
	if err := a.SetBase(b); err == nil {
		t.Errorf("inheritance cycle must be rejected")
	}
	if err := a.SetBase(a); err == nil {
		t.Errorf("self inheritance must be rejected")
	}
}
