package tp

type (
	// Type is a value type of the source language. Types are immutable
	// once constructed.
	//
	// Compatible(rhs) answers whether a value of type rhs can be used
	// where the receiver is expected. It is exact-nominal for classes
	// and structural for arrays. The one asymmetric case is numeric
	// widening: Float accepts Int, Int does not accept Float.
	Type interface {
		Compatible(rhs Type) bool
		Size() int
		String() string
	}

	Int    struct{}
	Float  struct{}
	String struct{}
	Bool   struct{}
	Null   struct{}

	Array struct {
		Elem Type
	}

	Class struct {
		Name string
	}
)

func (Int) Compatible(rhs Type) bool {
	_, ok := rhs.(Int)
	return ok
}

func (Float) Compatible(rhs Type) bool {
	switch rhs.(type) {
	case Float, Int:
		return true
	}

	return false
}

func (String) Compatible(rhs Type) bool {
	_, ok := rhs.(String)
	return ok
}

func (Bool) Compatible(rhs Type) bool {
	_, ok := rhs.(Bool)
	return ok
}

func (Null) Compatible(rhs Type) bool {
	_, ok := rhs.(Null)
	return ok
}

func (t Array) Compatible(rhs Type) bool {
	r, ok := rhs.(Array)
	if !ok {
		return false
	}

	// an empty array literal types as null-elem and fits any array
	if _, null := r.Elem.(Null); null {
		return true
	}

	return t.Elem.Compatible(r.Elem)
}

func (t Class) Compatible(rhs Type) bool {
	r, ok := rhs.(Class)

	return ok && t.Name == r.Name
}

// IsNumeric reports whether t is integer or float.
func IsNumeric(t Type) bool {
	switch t.(type) {
	case Int, Float:
		return true
	}

	return false
}

// Promote is the arithmetic result type of two numeric operands:
// any float operand makes the result float.
func Promote(l, r Type) Type {
	if _, ok := l.(Float); ok {
		return Float{}
	}
	if _, ok := r.(Float); ok {
		return Float{}
	}

	return Int{}
}

func (Int) Size() int    { return 4 }
func (Float) Size() int  { return 4 }
func (String) Size() int { return 4 }
func (Bool) Size() int   { return 4 }
func (Null) Size() int   { return 4 }
func (Array) Size() int  { return 4 }
func (Class) Size() int  { return 4 }

func (Int) String() string    { return "integer" }
func (Float) String() string  { return "float" }
func (String) String() string { return "string" }
func (Bool) String() string   { return "boolean" }
func (Null) String() string   { return "null" }

func (t Array) String() string { return t.Elem.String() + "[]" }
func (t Class) String() string { return t.Name }
