package back

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/compiscript/cps/compiler/check"
	"github.com/compiscript/cps/compiler/frame"
	"github.com/compiscript/cps/compiler/gen"
	"github.com/compiscript/cps/compiler/ir"
	"github.com/compiscript/cps/compiler/parse"
)

func compile(t *testing.T, src string) string {
	t.Helper()

	tree, diags := parse.Parse(context.Background(), []byte(src))
	require.Empty(t, diags)

	c := check.New()
	require.Empty(t, c.Check(context.Background(), tree))

	g := gen.New(c.Classes)
	prog := g.Generate(context.Background(), tree)

	obj, err := New(nil).Compile(context.Background(), nil, prog, g.Frames)
	require.NoError(t, err)

	return string(obj)
}

func TestSmoke(t *testing.T) {
	p := &ir.Prog{}
	p.Label("program_start")
	p.Emit("MOV", "x", "5", "")
	p.Emit("PRINT", "", "x", "")
	p.Label("program_end")

	obj, err := New(nil).Compile(context.Background(), nil, p, frame.NewRegistry())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	t.Logf("result:\n%s", obj)
}

func TestEntryAndExit(t *testing.T) {
	asm := compile(t, `print(1);`)

	require.Contains(t, asm, "\t.globl main")
	require.Contains(t, asm, "main:")
	require.Contains(t, asm, "program_start:")
	require.Contains(t, asm, "li\t$v0, 10", "clean exit syscall")
}

func TestStringPooling(t *testing.T) {
	asm := compile(t, `
print("hola");
print("hola");
print("mundo");
`)

	require.Contains(t, asm, "\t.data")
	require.Contains(t, asm, `str_0:	.asciiz "hola"`)
	require.Contains(t, asm, `str_1:	.asciiz "mundo"`)
	require.NotContains(t, asm, "str_2", "identical literals share one entry")

	require.Contains(t, asm, "li\t$v0, 4", "strings print via syscall 4")
}

func TestStringVarPrintsAsString(t *testing.T) {
	asm := compile(t, `
let s: string = "hola";
let u: string = s;
print(u);
`)

	require.Contains(t, asm, "li\t$v0, 4", "copies of string values keep the string syscall")
}

func TestStringReturningCall(t *testing.T) {
	asm := compile(t, `
function saludo(): string { return "hola"; }
print(saludo());
`)

	require.Contains(t, asm, "li\t$v0, 4", "a string-returning call result prints as a string")
}

func TestPrintTypeScopedPerFunction(t *testing.T) {
	asm := compile(t, `
function a() {
	let x: string = "hola";
	print(x);
}
function b() {
	let x: integer = 5;
	print(x);
}
a();
b();
`)

	body := func(from, to string) string {
		t.Helper()

		i := strings.Index(asm, from+":")
		j := strings.Index(asm, to+":")
		require.True(t, i >= 0 && j > i, "labels %v and %v must bracket a body", from, to)

		return asm[i:j]
	}

	require.Contains(t, body("func_a", "a_exit"), "li\t$v0, 4")
	require.Contains(t, body("func_b", "b_exit"), "li\t$v0, 1")
	require.NotContains(t, body("func_b", "b_exit"), "li\t$v0, 4",
		"an integer local must not pick up a same-named string from another function")
}

func TestIntPrint(t *testing.T) {
	asm := compile(t, `print(42);`)

	require.Contains(t, asm, "li\t$v0, 1")
	require.Contains(t, asm, "li\t$v0, 11", "trailing newline")
}

func TestFramePrologueEpilogue(t *testing.T) {
	asm := compile(t, `
function f(a: integer): integer {
	let x: integer = a + 1;
	return x;
}
let r: integer = f(1);
`)

	require.Contains(t, asm, "func_f:")
	require.Contains(t, asm, "addiu\t$sp, $sp, -")
	require.Contains(t, asm, "sw\t$ra, ")
	require.Contains(t, asm, "sw\t$a0, ", "register argument lands in its slot")
	require.Contains(t, asm, "lw\t$ra, -4($fp)")
	require.Contains(t, asm, "jr\t$ra")
	require.Contains(t, asm, "jal\tfunc_f")
}

func TestStackArguments(t *testing.T) {
	asm := compile(t, `
function f(a: integer, b: integer, c: integer, d: integer, e: integer, g: integer): integer {
	return a + g;
}
let r: integer = f(1, 2, 3, 4, 5, 6);
`)

	for _, reg := range []string{"$a0", "$a1", "$a2", "$a3"} {
		require.Contains(t, asm, "li\t"+reg+", ", "first four arguments ride registers")
	}

	require.Contains(t, asm, "sw\t$t8, 0($sp)", "extras go on the stack")
	require.Contains(t, asm, "addiu\t$sp, $sp, 8", "caller pops the two extras")
}

func TestComparisons(t *testing.T) {
	asm := compile(t, `
let a: boolean = 1 < 2;
let b: boolean = 1 >= 2;
let c: boolean = 1 == 2;
`)

	require.Contains(t, asm, "slt\t")
	require.Contains(t, asm, "xori\t")
	require.Contains(t, asm, "seq\t")
}

func TestArrays(t *testing.T) {
	asm := compile(t, `
let xs: integer[] = [1, 2, 3];
print(xs[1]);
`)

	require.Contains(t, asm, "li\t$v0, 9", "allocation via sbrk")
	require.Contains(t, asm, "lw\t", "indexed load")
	require.Contains(t, asm, "sll\t", "index scaled by 4")
	require.Contains(t, asm, ", 4(", "element access skips the length header")
}

func TestObjects(t *testing.T) {
	asm := compile(t, `
class P {
	let x: integer;
	let y: integer;
	function constructor(x: integer) { this.x = x; this.y = 0; }
}
let p: P = new P(3);
print(p.x);
`)

	require.Contains(t, asm, "jal\tfunc_P_constructor")
	require.Contains(t, asm, "lw\t", "field read")
	require.Contains(t, asm, ", 0(", "first field at offset 0")
	require.Contains(t, asm, ", 4(", "second field at offset 4")
}

func TestGlobalsInData(t *testing.T) {
	asm := compile(t, `
let x: integer = 1;
x = x + 1;
print(x);
`)

	require.Contains(t, asm, "g_x:\t.word 0", "top-level variables live in the data segment")
}

func TestTargetDefaults(t *testing.T) {
	tg := MIPS32()

	require.NoError(t, tg.validate())
	require.Len(t, tg.Temps, 8)
	require.Len(t, tg.Args, 4)
	require.Equal(t, "$v0", tg.Ret)
}

func TestLoadTarget(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "target.yaml")

	err := os.WriteFile(name, []byte(`
name: tiny
temp_regs: ["$t0", "$t1"]
arg_regs: ["$a0", "$a1"]
`), 0o644)
	require.NoError(t, err)

	tg, err := LoadTarget(name)
	require.NoError(t, err)
	require.Equal(t, "tiny", tg.Name)
	require.Len(t, tg.Temps, 2)
	require.Len(t, tg.Args, 2)
	require.Equal(t, "$v0", tg.Ret, "unset fields keep the defaults")

	err = os.WriteFile(name, []byte(`frame_align: 3`), 0o644)
	require.NoError(t, err)

	_, err = LoadTarget(name)
	require.Error(t, err, "alignment must be a power of two")
}

func TestRegisterSpill(t *testing.T) {
	// more live variables than the saved pool holds
	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString("let v")
		b.WriteByte(byte('a' + i))
		b.WriteString(": integer = ")
		b.WriteString("1;\n")
	}
	b.WriteString("print(va + vb + vc + vd + ve + vf + vg + vh + vi + vj + vk + vl);\n")

	asm := compile(t, b.String())

	require.Contains(t, asm, "sw\t$s", "evicted variables spill")
	require.Contains(t, asm, "lw\t$s", "spilled variables reload")
}
