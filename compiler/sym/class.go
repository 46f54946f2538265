package sym

import (
	"tlog.app/go/errors"
)

type (
	// ClassTable maps class names to their symbols. It is filled
	// incrementally while declarations are visited.
	ClassTable struct {
		classes map[string]*Class

		Order []string
	}
)

func NewClass(name string) *Class {
	return &Class{
		Name:    name,
		fields:  map[string]*Var{},
		methods: map[string]*Func{},
	}
}

func (c *Class) AddField(v *Var) error {
	if _, ok := c.fields[v.Name]; ok {
		return errors.New("Miembro duplicado en la clase '%v': %v", c.Name, v.Name)
	}
	if _, ok := c.methods[v.Name]; ok {
		return errors.New("Miembro duplicado en la clase '%v': %v", c.Name, v.Name)
	}

	c.fields[v.Name] = v
	c.FieldOrder = append(c.FieldOrder, v.Name)

	return nil
}

func (c *Class) AddMethod(f *Func) error {
	if _, ok := c.methods[f.Name]; ok {
		return errors.New("Miembro duplicado en la clase '%v': %v", c.Name, f.Name)
	}
	if _, ok := c.fields[f.Name]; ok {
		return errors.New("Miembro duplicado en la clase '%v': %v", c.Name, f.Name)
	}

	c.methods[f.Name] = f
	c.MethodOrder = append(c.MethodOrder, f.Name)

	return nil
}

// SetBase links the base class, rejecting inheritance cycles so member
// lookup can walk the chain without a guard.
func (c *Class) SetBase(base *Class) error {
	for b := base; b != nil; b = b.Base {
		if b == c {
			return errors.New("Herencia cíclica: la clase '%v' se hereda a sí misma", c.Name)
		}
	}

	c.Base = base

	return nil
}

// Field resolves a field walking the base chain, nearest declaration
// first.
func (c *Class) Field(name string) *Var {
	for b := c; b != nil; b = b.Base {
		if f, ok := b.fields[name]; ok {
			return f
		}
	}

	return nil
}

// Method resolves a method walking the base chain.
func (c *Class) Method(name string) *Func {
	for b := c; b != nil; b = b.Base {
		if m, ok := b.methods[name]; ok {
			return m
		}
	}

	return nil
}

// MethodOwner returns the class in the chain that declares the method,
// which is the class whose label the call must target.
func (c *Class) MethodOwner(name string) *Class {
	for b := c; b != nil; b = b.Base {
		if _, ok := b.methods[name]; ok {
			return b
		}
	}

	return nil
}

// HasMember reports whether name is a field or method anywhere in the
// chain.
func (c *Class) HasMember(name string) bool {
	return c.Field(name) != nil || c.Method(name) != nil
}

func NewClassTable() *ClassTable {
	return &ClassTable{
		classes: map[string]*Class{},
	}
}

func (t *ClassTable) Add(c *Class) {
	if _, ok := t.classes[c.Name]; !ok {
		t.Order = append(t.Order, c.Name)
	}

	t.classes[c.Name] = c
}

func (t *ClassTable) Get(name string) *Class {
	return t.classes[name]
}
