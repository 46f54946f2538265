package ir

import (
	"strconv"
)

type (
	// Pool hands out numbered temporaries, reusing released ids LIFO
	// before minting new ones. Double-release or use-after-release is a
	// caller bug, not checked here.
	Pool struct {
		free []int
		next int
	}
)

func (p *Pool) Get() int {
	if l := len(p.free); l > 0 {
		t := p.free[l-1]
		p.free = p.free[:l-1]

		return t
	}

	t := p.next
	p.next++

	return t
}

func (p *Pool) Release(t int) {
	p.free = append(p.free, t)
}

func (p *Pool) Reset() {
	p.free = p.free[:0]
	p.next = 0
}

// Temp is the operand name of temporary t.
func Temp(t int) string {
	return "t" + strconv.Itoa(t)
}

// IsTemp reports whether an operand names a pool temporary.
func IsTemp(op string) bool {
	if len(op) < 2 || op[0] != 't' {
		return false
	}

	for i := 1; i < len(op); i++ {
		if op[i] < '0' || op[i] > '9' {
			return false
		}
	}

	return true
}
