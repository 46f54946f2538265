package sym

import (
	"tlog.app/go/errors"
)

type (
	// Scope is one link of a parent-chained lexical scope. Names are
	// unique within a scope; shadowing across scopes is allowed.
	Scope struct {
		parent *Scope

		syms map[string]Symbol
	}
)

func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent: parent,
		syms:   map[string]Symbol{},
	}
}

func (s *Scope) Parent() *Scope { return s.parent }

// Define binds a symbol in this scope. Redeclaration in the same scope
// is an error; outer declarations are shadowed silently.
func (s *Scope) Define(x Symbol) error {
	name := x.SymName()

	if _, ok := s.syms[name]; ok {
		return errors.New("Redeclaración en el mismo ámbito: %v", name)
	}

	s.syms[name] = x

	return nil
}

// Resolve walks the chain outward and returns the first match.
func (s *Scope) Resolve(name string) Symbol {
	for cur := s; cur != nil; cur = cur.parent {
		if x, ok := cur.syms[name]; ok {
			return x
		}
	}

	return nil
}

// ResolveLocal looks the name up in this scope only.
func (s *Scope) ResolveLocal(name string) Symbol {
	return s.syms[name]
}
