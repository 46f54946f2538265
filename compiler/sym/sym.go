package sym

import (
	"github.com/compiscript/cps/compiler/tp"
)

type (
	// Symbol is any named entity: Var, Func or Class.
	Symbol interface {
		SymName() string
		SymType() tp.Type
	}

	// Var is a variable, constant, parameter or class field.
	Var struct {
		Name string
		Type tp.Type

		Const       bool
		Initialized bool

		IsParam    bool
		ParamIndex int

		Width  int // bytes in a frame slot
		Offset int // frame offset once layout is known
	}

	Func struct {
		Name string
		Ret  tp.Type

		Params []*Var

		Entry string
		Exit  string

		FrameSize int // finalized after the body is generated
	}

	Class struct {
		Name string

		fields  map[string]*Var
		methods map[string]*Func

		FieldOrder  []string
		MethodOrder []string

		Base *Class
	}
)

func NewVar(name string, typ tp.Type) *Var {
	return &Var{
		Name:  name,
		Type:  typ,
		Width: 4,
	}
}

func (v *Var) SymName() string  { return v.Name }
func (v *Var) SymType() tp.Type { return v.Type }

func (f *Func) SymName() string { return f.Name }

// SymType of a function is its return type; callability is checked
// by asserting the *Func symbol itself.
func (f *Func) SymType() tp.Type { return f.Ret }

func (c *Class) SymName() string  { return c.Name }
func (c *Class) SymType() tp.Type { return tp.Class{Name: c.Name} }
