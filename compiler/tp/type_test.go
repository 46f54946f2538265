package tp

import (
	"testing"
)

func TestCompatible(t *testing.T) {
	cases := []struct {
		dst, src Type
		ok       bool
	}{
		{Int{}, Int{}, true},
		{Int{}, Float{}, false},
		{Float{}, Int{}, true},
		{Float{}, Float{}, true},
		{String{}, String{}, true},
		{String{}, Int{}, false},
		{Bool{}, Int{}, false},
		{Array{Elem: Int{}}, Array{Elem: Int{}}, true},
		{Array{Elem: Int{}}, Array{Elem: String{}}, false},
		{Array{Elem: Int{}}, Array{Elem: Null{}}, true},
		{Array{Elem: Int{}}, Int{}, false},
		{Class{Name: "A"}, Class{Name: "A"}, true},
		{Class{Name: "A"}, Class{Name: "B"}, false},
	}

	for _, c := range cases {
		if got := c.dst.Compatible(c.src); got != c.ok {
			t.Errorf("%v.Compatible(%v) = %v, want %v", c.dst, c.src, got, c.ok)
		}
	}
}

func TestPromote(t *testing.T) {
	if _, ok := Promote(Int{}, Int{}).(Int); !ok {
		t.Errorf("integer arithmetic must stay integer")
	}
	if _, ok := Promote(Int{}, Float{}).(Float); !ok {
		t.Errorf("mixed arithmetic must widen to float")
	}
	if _, ok := Promote(Float{}, Int{}).(Float); !ok {
		t.Errorf("mixed arithmetic must widen to float")
	}
}

func TestNames(t *testing.T) {
	for _, c := range []struct {
		tp   Type
		want string
	}{
		{Int{}, "integer"},
		{Float{}, "float"},
		{String{}, "string"},
		{Bool{}, "boolean"},
		{Array{Elem: Int{}}, "integer[]"},
		{Array{Elem: Array{Elem: Bool{}}}, "boolean[][]"},
		{Class{Name: "Dog"}, "Dog"},
	} {
		if got := c.tp.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}
