package ir

import (
	"strconv"
	"strings"
)

type (
	// Instr is one three-address instruction. Operands are plain text:
	// a literal lexeme, a variable or temporary name, or a label.
	// Types were already checked upstream and are not retained.
	Instr struct {
		Op      string
		Res     string
		A1      string
		A2      string
		Comment string
	}

	// Prog is an append-only instruction sequence. Labels minted by
	// NewLabel are monotonic and never reused, orphaned or not.
	Prog struct {
		Code []Instr

		labels int
	}

	// Fixup is a handle to a single emitted instruction, resolved
	// exactly once (frame-size backpatching).
	Fixup int
)

func (p *Prog) Emit(op, res, a1, a2 string) Fixup {
	p.Code = append(p.Code, Instr{Op: op, Res: res, A1: a1, A2: a2})

	return Fixup(len(p.Code) - 1)
}

func (p *Prog) EmitComment(op, res, a1, a2, comment string) Fixup {
	p.Code = append(p.Code, Instr{Op: op, Res: res, A1: a1, A2: a2, Comment: comment})

	return Fixup(len(p.Code) - 1)
}

// NewLabel mints a fresh label name without emitting anything.
func (p *Prog) NewLabel() string {
	l := "L" + strconv.Itoa(p.labels)
	p.labels++

	return l
}

// Label emits a LABEL instruction for the given name.
func (p *Prog) Label(name string) {
	p.Emit("LABEL", "", name, "")
}

// Patch sets operand A1 of a previously emitted instruction.
func (p *Prog) Patch(f Fixup, a1 string) {
	p.Code[f].A1 = a1
}

// Operands lists the value operands of the instruction, skipping
// labels, field names and other non-value fields.
func (i Instr) Operands() []string {
	var res, a1, a2 bool

	switch i.Op {
	case "LABEL", "JUMP", "ENTER", "LEAVE":
	case "IFZ", "IFNZ", "PARAM", "PRINT", "RET":
		a1 = true
	case "CALL", "NEW":
		res = true
	case "GETP", "MOVP":
		res, a1 = true, true
	default:
		res, a1, a2 = true, true, true
	}

	ops := make([]string, 0, 3)

	if res && i.Res != "" {
		ops = append(ops, i.Res)
	}
	if a1 && i.A1 != "" {
		ops = append(ops, i.A1)
	}
	if a2 && i.A2 != "" {
		ops = append(ops, i.A2)
	}

	return ops
}

func (i Instr) String() string {
	var b strings.Builder

	b.WriteString(i.Op)

	for _, x := range []string{i.Res, i.A1, i.A2} {
		if x == "" {
			continue
		}

		b.WriteByte(' ')
		b.WriteString(x)
	}

	if i.Comment != "" {
		b.WriteString("    # ")
		b.WriteString(i.Comment)
	}

	return b.String()
}

func (p *Prog) String() string {
	var b strings.Builder

	for _, i := range p.Code {
		b.WriteString(i.String())
		b.WriteByte('\n')
	}

	return b.String()
}
