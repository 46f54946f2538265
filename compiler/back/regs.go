package back

import (
	"fmt"
	"strings"

	"github.com/compiscript/cps/compiler/ir"
)

type (
	// regState is one allocatable register of the descriptor. A bound
	// register caches the named operand; dirty means memory is stale.
	regState struct {
		reg   string
		saved bool

		name  string
		dirty bool
		last  int
	}
)

// regOf finds the register currently caching name.
func (e *emitter) regOf(name string) *regState {
	for i := range e.regs {
		if e.regs[i].name == name {
			return &e.regs[i]
		}
	}

	return nil
}

// alloc takes a register from the preferred pool, overflowing into a
// free register of the other pool before evicting the least recently
// used binding. Evicted dirty values are written back to their home
// slot first.
func (e *emitter) alloc(saved bool) *regState {
	var victim *regState

	for i := range e.regs {
		r := &e.regs[i]
		if r.saved != saved {
			continue
		}

		if r.name == "" {
			victim = r
			break
		}

		if victim == nil || r.last < victim.last {
			victim = r
		}
	}

	if victim.name != "" {
		for i := range e.regs {
			r := &e.regs[i]
			if r.saved != saved && r.name == "" {
				victim = r
				break
			}
		}
	}

	if victim.name != "" {
		if victim.dirty {
			e.ln("sw\t%s, %s", victim.reg, e.home(victim.name))
		}

		victim.name = ""
		victim.dirty = false
	}

	return victim
}

// read returns a register holding the operand. Immediates and string
// literals are materialized into the given scratch register; variables
// and temporaries go through the descriptor, loading from their home
// slot on a miss.
func (e *emitter) read(op, scratch string) string {
	if isQuoted(op) {
		e.ln("la\t%s, %s", scratch, e.intern(op))
		return scratch
	}

	if isNum(op) {
		n := numText(op)
		if n == "0" {
			return "$zero"
		}

		e.ln("li\t%s, %s", scratch, n)

		return scratch
	}

	if r := e.regOf(op); r != nil {
		e.clock++
		r.last = e.clock

		return r.reg
	}

	r := e.alloc(!ir.IsTemp(op))
	e.ln("lw\t%s, %s", r.reg, e.home(op))

	e.clock++
	*r = regState{reg: r.reg, saved: r.saved, name: op, last: e.clock}

	return r.reg
}

// write binds a register for the operand without loading the old
// value, marking it dirty.
func (e *emitter) write(op string) string {
	r := e.regOf(op)
	if r == nil {
		r = e.alloc(!ir.IsTemp(op))
		r.name = op
	}

	e.clock++
	r.last = e.clock
	r.dirty = true

	return r.reg
}

// flush writes every dirty binding back and empties the descriptor.
// Called at labels, branches and calls so memory is the truth at every
// control-flow edge.
func (e *emitter) flush() {
	for i := range e.regs {
		r := &e.regs[i]
		if r.name == "" {
			continue
		}

		if r.dirty {
			e.ln("sw\t%s, %s", r.reg, e.home(r.name))
		}

		r.name = ""
		r.dirty = false
	}
}

// loadTo moves an operand into a specific register, reading from the
// home slot. Only valid right after a flush.
func (e *emitter) loadTo(reg, op string) {
	switch {
	case isQuoted(op):
		e.ln("la\t%s, %s", reg, e.intern(op))
	case isNum(op):
		e.ln("li\t%s, %s", reg, numText(op))
	default:
		e.ln("lw\t%s, %s", reg, e.home(op))
	}
}

// home is the memory operand backing a name: a frame slot inside a
// function, a data-segment word at top level.
func (e *emitter) home(name string) string {
	if fn := e.fnTop(); fn != nil {
		if off, ok := fn.slots[name]; ok {
			return fmt.Sprintf("%d($fp)", off)
		}
	}

	e.global(name)

	return "g_" + name
}

func (e *emitter) global(name string) {
	if e.globals[name] {
		return
	}

	e.globals[name] = true
	e.globalOrder = append(e.globalOrder, name)
}

func isQuoted(op string) bool {
	return len(op) > 0 && op[0] == '"'
}

func isNum(op string) bool {
	if op == "" {
		return false
	}
	if op[0] == '-' {
		op = op[1:]
	}

	return len(op) > 0 && op[0] >= '0' && op[0] <= '9'
}

// numText truncates float literals: the machine model is integer
// words.
func numText(op string) string {
	if i := strings.IndexByte(op, '.'); i >= 0 {
		if i == 0 || op == "-." {
			return "0"
		}

		return op[:i]
	}

	return op
}
