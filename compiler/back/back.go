package back

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/compiscript/cps/compiler/frame"
	"github.com/compiscript/cps/compiler/ir"
)

type (
	// Compiler lowers a TAC program to assembly for the target.
	Compiler struct {
		t *Target
	}

	emitter struct {
		t      *Target
		frames *frame.Registry

		b []byte

		// strs interns string literals: quoted text to data label.
		strs     map[string]string
		strOrder []string

		// fields assigns every property name a uniform object offset.
		fields     map[string]int
		fieldOrder []string

		globals     map[string]bool
		globalOrder []string

		// stringy marks operands that hold string pointers, so PRINT
		// can pick the right syscall. Temps, parameters and locals are
		// keyed per function; globals by bare name.
		stringy map[string]bool

		// funcTemps lists the distinct temporaries each function body
		// touches; each gets a frame slot so any of them can spill.
		funcTemps map[string][]string

		fns    []*fnState
		params []string

		regs  []regState
		clock int

		tr tlog.Span
	}

	fnState struct {
		name  string
		slots map[string]int
		size  int
		nreg  int
	}
)

func New(t *Target) *Compiler {
	if t == nil {
		t = MIPS32()
	}

	return &Compiler{t: t}
}

// Compile emits the whole program: a text segment whose entry falls
// into the top-level code, and a data segment with interned strings
// and top-level variables.
func (c *Compiler) Compile(ctx context.Context, b []byte, p *ir.Prog, frames *frame.Registry) (_ []byte, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "back: compile", "target", c.t.Name, "instrs", len(p.Code))
	defer tr.Finish("err", &err)

	err = c.t.validate()
	if err != nil {
		return nil, errors.Wrap(err, "target")
	}

	e := &emitter{
		t:      c.t,
		frames: frames,
		b:      b,

		strs:      map[string]string{},
		fields:    map[string]int{},
		globals:   map[string]bool{},
		stringy:   map[string]bool{},
		funcTemps: map[string][]string{},

		tr: tr,
	}

	for _, r := range c.t.Temps {
		e.regs = append(e.regs, regState{reg: r})
	}
	for _, r := range c.t.Saved {
		e.regs = append(e.regs, regState{reg: r, saved: true})
	}

	e.analyze(p)

	e.b = fmt.Appendf(e.b, "\t.text\n\t.globl main\nmain:\n")

	for _, i := range p.Code {
		e.instr(i)
	}

	// fall off the end: clean exit
	e.ln("li\t$v0, 10")
	e.ln("syscall")

	e.data()

	if tr.If("dump_asm") {
		tr.Printw("assembly", "size", len(e.b), "text", string(e.b), "from", loc.Caller(0))
	}

	return e.b, nil
}

// analyze walks the program once before emission: function temporary
// sets, the global field offset table, and string propagation through
// moves.
func (e *emitter) analyze(p *ir.Prog) {
	var stack []string

	for _, i := range p.Code {
		switch i.Op {
		case "LABEL":
			if fn, ok := strings.CutPrefix(i.A1, "func_"); ok {
				stack = append(stack, fn)
			}

			continue
		case "RET":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

			continue
		case "GETP", "MOVP":
			if _, ok := e.fields[i.A2]; !ok {
				e.fields[i.A2] = 4 * len(e.fieldOrder)
				e.fieldOrder = append(e.fieldOrder, i.A2)
			}
		}

		if len(stack) == 0 {
			continue
		}

		fn := stack[len(stack)-1]

		for _, op := range i.Operands() {
			if !ir.IsTemp(op) {
				continue
			}

			if !contains(e.funcTemps[fn], op) {
				e.funcTemps[fn] = append(e.funcTemps[fn], op)
			}
		}
	}

	// string-typed operands: literal sources, then a fixed point over
	// moves, returns and calls, so vars holding copies of strings and
	// results of string-returning functions print as strings too
	retString := map[string]bool{}

	for again := true; again; {
		again = false

		stack = stack[:0]

		for _, i := range p.Code {
			cur := ""
			if len(stack) > 0 {
				cur = stack[len(stack)-1]
			}

			switch i.Op {
			case "LABEL":
				if fn, ok := strings.CutPrefix(i.A1, "func_"); ok {
					stack = append(stack, fn)
				}
			case "MOV":
				dst := e.key(cur, i.Res)

				if (isQuoted(i.A1) || e.stringy[e.key(cur, i.A1)]) && !e.stringy[dst] {
					e.stringy[dst] = true
					again = true
				}
			case "RET":
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]

					if e.stringy[e.key(cur, i.A1)] && !retString[cur] {
						retString[cur] = true
						again = true
					}
				}
			case "CALL":
				fn, _ := strings.CutPrefix(i.A1, "func_")
				res := e.key(cur, i.Res)

				if i.Res != "" && retString[fn] && !e.stringy[res] {
					e.stringy[res] = true
					again = true
				}
			}
		}
	}
}

// key scopes an operand to the function it belongs to. A name that is
// neither a temporary nor in the function's layout is a global and
// keeps its bare name, so string globals keep their kind everywhere.
func (e *emitter) key(fn, op string) string {
	if fn == "" || op == "" || isQuoted(op) || isNum(op) {
		return op
	}

	if !ir.IsTemp(op) && !e.isLocal(fn, op) {
		return op
	}

	return fn + "." + op
}

func (e *emitter) isLocal(fn, op string) bool {
	if !e.frames.Has(fn) {
		return false
	}

	return e.frames.Frame(fn).Lookup(op) != nil
}

func contains(s []string, x string) bool {
	for _, v := range s {
		if v == x {
			return true
		}
	}

	return false
}

func (e *emitter) fnTop() *fnState {
	if len(e.fns) == 0 {
		return nil
	}

	return e.fns[len(e.fns)-1]
}

func (e *emitter) ln(f string, args ...any) {
	e.b = append(e.b, '\t')
	e.b = fmt.Appendf(e.b, f, args...)
	e.b = append(e.b, '\n')
}

func (e *emitter) label(name string) {
	e.b = fmt.Appendf(e.b, "%s:\n", name)
}

func (e *emitter) instr(i ir.Instr) {
	if i.Op != "LABEL" {
		e.b = fmt.Appendf(e.b, "\t# %s\n", i.String())
	}

	s0, s1 := e.t.Scratch[0], e.t.Scratch[1]

	switch i.Op {
	case "LABEL":
		e.flush()

		if fn, ok := strings.CutPrefix(i.A1, "func_"); ok {
			e.enterFunc(fn)
		}

		e.label(i.A1)
	case "JUMP":
		e.flush()
		e.ln("j\t%s", i.Res)
	case "IFZ", "IFNZ":
		r := e.read(i.A1, s0)
		e.flush()

		br := "beq"
		if i.Op == "IFNZ" {
			br = "bne"
		}

		e.ln("%s\t%s, $zero, %s", br, r, i.Res)
	case "MOV":
		e.mov(i)
	case "ADD", "SUB", "MUL":
		rs := e.read(i.A1, s0)
		rt := e.read(i.A2, s1)
		rd := e.write(i.Res)

		e.ln("%s\t%s, %s, %s", map[string]string{"ADD": "addu", "SUB": "subu", "MUL": "mul"}[i.Op], rd, rs, rt)
	case "DIV", "MOD":
		rs := e.read(i.A1, s0)
		rt := e.read(i.A2, s1)
		rd := e.write(i.Res)

		e.ln("div\t%s, %s", rs, rt)

		if i.Op == "DIV" {
			e.ln("mflo\t%s", rd)
		} else {
			e.ln("mfhi\t%s", rd)
		}
	case "NEG":
		rs := e.read(i.A1, s0)
		rd := e.write(i.Res)
		e.ln("subu\t%s, $zero, %s", rd, rs)
	case "NOT":
		rs := e.read(i.A1, s0)
		rd := e.write(i.Res)
		e.ln("sltiu\t%s, %s, 1", rd, rs)
	case "CMP==", "CMP!=", "CMP<", "CMP<=", "CMP>", "CMP>=":
		e.cmp(i)
	case "PARAM":
		e.params = append(e.params, i.A1)
	case "CALL":
		e.call(i)
	case "ENTER":
		e.enter()
	case "LEAVE":
		// folded into RET
	case "RET":
		e.retInstr(i)
	case "PRINT":
		e.print(i)
	case "NEW":
		size := 4 * len(e.fieldOrder)
		if size == 0 {
			size = 4
		}

		e.ln("li\t$a0, %d", size)
		e.ln("li\t$v0, 9")
		e.ln("syscall")

		rd := e.write(i.Res)
		e.ln("move\t%s, $v0", rd)
	case "NEWARR":
		e.newarr(i)
	case "LEN":
		rs := e.read(i.A1, s1)
		rd := e.write(i.Res)
		e.ln("lw\t%s, 0(%s)", rd, rs)
	case "GETIDX":
		ra := e.read(i.A1, s1)
		ri := e.read(i.A2, s0)

		e.ln("sll\t%s, %s, 2", s0, ri)
		e.ln("addu\t%s, %s, %s", s0, s0, ra)

		rd := e.write(i.Res)
		e.ln("lw\t%s, 4(%s)", rd, s0)
	case "SETIDX":
		ra := e.read(i.Res, s1)
		ri := e.read(i.A2, s0)

		e.ln("sll\t%s, %s, 2", s0, ri)
		e.ln("addu\t%s, %s, %s", s0, s0, ra)

		rv := e.read(i.A1, s1)
		e.ln("sw\t%s, 4(%s)", rv, s0)
	case "GETP":
		ro := e.read(i.A1, s1)
		rd := e.write(i.Res)
		e.ln("lw\t%s, %d(%s)", rd, e.fields[i.A2], ro)
	case "MOVP":
		ro := e.read(i.Res, s1)
		rv := e.read(i.A1, s0)
		e.ln("sw\t%s, %d(%s)", rv, e.fields[i.A2], ro)
	default:
		e.tr.Printw("unhandled op", "op", i.Op)
		e.ln("# unhandled %s", i.Op)
	}
}

func (e *emitter) mov(i ir.Instr) {
	switch {
	case isQuoted(i.A1):
		rd := e.write(i.Res)
		e.ln("la\t%s, %s", rd, e.intern(i.A1))
	case isNum(i.A1):
		rd := e.write(i.Res)
		e.ln("li\t%s, %s", rd, numText(i.A1))
	default:
		rs := e.read(i.A1, e.t.Scratch[0])
		rd := e.write(i.Res)

		if rd != rs {
			e.ln("move\t%s, %s", rd, rs)
		}
	}
}

// cmp lowers comparisons to set instructions. > and >= swap operands
// of slt; the non-strict forms invert the strict ones.
func (e *emitter) cmp(i ir.Instr) {
	rs := e.read(i.A1, e.t.Scratch[0])
	rt := e.read(i.A2, e.t.Scratch[1])
	rd := e.write(i.Res)

	switch i.Op {
	case "CMP==":
		e.ln("seq\t%s, %s, %s", rd, rs, rt)
	case "CMP!=":
		e.ln("sne\t%s, %s, %s", rd, rs, rt)
	case "CMP<":
		e.ln("slt\t%s, %s, %s", rd, rs, rt)
	case "CMP>":
		e.ln("slt\t%s, %s, %s", rd, rt, rs)
	case "CMP<=":
		e.ln("slt\t%s, %s, %s", rd, rt, rs)
		e.ln("xori\t%s, %s, 1", rd, rd)
	case "CMP>=":
		e.ln("slt\t%s, %s, %s", rd, rs, rt)
		e.ln("xori\t%s, %s, 1", rd, rd)
	}
}

// enterFunc computes the frame map: header, register-argument copies,
// locals, then one slot per temporary the body uses. Arguments beyond
// the register budget stay where the caller pushed them, right above
// the frame pointer.
func (e *emitter) enterFunc(name string) {
	layout := e.frames.Frame(name)

	fn := &fnState{
		name:  name,
		slots: map[string]int{},
	}

	off := -frame.HeaderSize

	fn.nreg = len(layout.ParamOrder)
	if max := len(e.t.Args); fn.nreg > max {
		fn.nreg = max
	}

	for i, p := range layout.ParamOrder {
		if i < fn.nreg {
			off -= 4
			fn.slots[p] = off
		} else {
			fn.slots[p] = 4 * (i - fn.nreg)
		}
	}

	for _, l := range layout.LocalOrder {
		off -= 4
		fn.slots[l] = off
	}

	for _, t := range e.funcTemps[name] {
		off -= 4
		fn.slots[t] = off
	}

	fn.size = alignUp(-off, e.t.Align)

	e.fns = append(e.fns, fn)
}

// enter is the prologue: push the frame, save ra and the old frame
// pointer in the header, point fp at the caller's stack top, then
// store register arguments into their slots.
func (e *emitter) enter() {
	fn := e.fnTop()
	if fn == nil {
		return
	}

	e.ln("addiu\t$sp, $sp, -%d", fn.size)
	e.ln("sw\t$ra, %d($sp)", fn.size-4)
	e.ln("sw\t$fp, %d($sp)", fn.size-8)
	e.ln("addiu\t$fp, $sp, %d", fn.size)

	layout := e.frames.Frame(fn.name)

	for i := 0; i < fn.nreg; i++ {
		e.ln("sw\t%s, %d($fp)", e.t.Args[i], fn.slots[layout.ParamOrder[i]])
	}
}

// retInstr is the epilogue: return value to the result register, then
// unwind the frame and jump back.
func (e *emitter) retInstr(i ir.Instr) {
	if i.A1 != "" {
		r := e.read(i.A1, e.t.Scratch[0])
		e.ln("move\t%s, %s", e.t.Ret, r)
	}

	e.flush()

	e.ln("lw\t$ra, -4($fp)")
	e.ln("move\t%s, $fp", e.t.Scratch[0])
	e.ln("lw\t$fp, -8($fp)")
	e.ln("move\t$sp, %s", e.t.Scratch[0])
	e.ln("jr\t$ra")

	if len(e.fns) > 0 {
		e.fns = e.fns[:len(e.fns)-1]
	}
}

// call spills everything, pushes stack arguments in reverse so the
// first lands lowest, fills the argument registers, and binds the
// result from the return register.
func (e *emitter) call(i ir.Instr) {
	e.flush()

	nreg := len(e.params)
	if max := len(e.t.Args); nreg > max {
		nreg = max
	}

	extra := len(e.params) - nreg

	for j := len(e.params) - 1; j >= nreg; j-- {
		e.loadTo(e.t.Scratch[0], e.params[j])
		e.ln("addiu\t$sp, $sp, -4")
		e.ln("sw\t%s, 0($sp)", e.t.Scratch[0])
	}

	for j := 0; j < nreg; j++ {
		e.loadTo(e.t.Args[j], e.params[j])
	}

	e.ln("jal\t%s", i.A1)

	if extra > 0 {
		e.ln("addiu\t$sp, $sp, %d", 4*extra)
	}

	if i.Res != "" {
		rd := e.write(i.Res)
		e.ln("move\t%s, %s", rd, e.t.Ret)
	}

	e.params = e.params[:0]
}

func (e *emitter) print(i ir.Instr) {
	fn := ""
	if f := e.fnTop(); f != nil {
		fn = f.name
	}

	str := isQuoted(i.A1) || e.stringy[e.key(fn, i.A1)]

	if isQuoted(i.A1) || isNum(i.A1) {
		e.loadTo("$a0", i.A1)
	} else {
		r := e.read(i.A1, e.t.Scratch[0])
		e.ln("move\t$a0, %s", r)
	}

	if str {
		e.ln("li\t$v0, 4")
	} else {
		e.ln("li\t$v0, 1")
	}

	e.ln("syscall")

	// trailing newline
	e.ln("li\t$a0, 10")
	e.ln("li\t$v0, 11")
	e.ln("syscall")
}

// newarr allocates 4 header bytes plus 4 per element and stores the
// length in the header.
func (e *emitter) newarr(i ir.Instr) {
	rl := e.read(i.A1, e.t.Scratch[1])

	e.ln("sll\t$a0, %s, 2", rl)
	e.ln("addiu\t$a0, $a0, 4")
	e.ln("li\t$v0, 9")
	e.ln("syscall")

	rd := e.write(i.Res)
	e.ln("move\t%s, $v0", rd)
	e.ln("sw\t%s, 0(%s)", rl, rd)
}

func (e *emitter) intern(q string) string {
	if l, ok := e.strs[q]; ok {
		return l
	}

	l := "str_" + strconv.Itoa(len(e.strOrder))
	e.strs[q] = l
	e.strOrder = append(e.strOrder, q)

	return l
}

// data emits the data segment: interned strings and top-level
// variable words. It comes after the code so on-demand interning is
// complete; assemblers resolve the forward references.
func (e *emitter) data() {
	if len(e.strOrder) == 0 && len(e.globalOrder) == 0 {
		return
	}

	e.b = fmt.Appendf(e.b, "\n\t.data\n")

	for _, q := range e.strOrder {
		e.b = fmt.Appendf(e.b, "%s:\t.asciiz %s\n", e.strs[q], q)
	}

	for _, g := range e.globalOrder {
		e.b = fmt.Appendf(e.b, "g_%s:\t.word 0\n", g)
	}
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
