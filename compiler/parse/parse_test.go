package parse

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/compiscript/cps/compiler/ast"
)

func parseOK(t *testing.T, src string) *ast.Program {
	t.Helper()

	prog, diags := Parse(context.Background(), []byte(src))
	require.Empty(t, diags, "source:\n%s", src)

	return prog
}

func TestDeclarations(t *testing.T) {
	prog := parseOK(t, `
let a: integer = 1;
const msg: string = "hola";
let inferred = true;
`)

	require.Len(t, prog.Stmts, 3)

	v, ok := prog.Stmts[0].(*ast.VarDecl)
	require.True(t, ok)
	require.Equal(t, "a", v.Name)
	require.Equal(t, "integer", v.Type.Name)
	require.False(t, v.Const)

	c := prog.Stmts[1].(*ast.VarDecl)
	require.True(t, c.Const)
	require.NotNil(t, c.Init)

	i := prog.Stmts[2].(*ast.VarDecl)
	require.Nil(t, i.Type)
}

func TestPrecedence(t *testing.T) {
	prog := parseOK(t, `let x = 1 + 2 * 3;`)

	decl := prog.Stmts[0].(*ast.VarDecl)

	add, ok := decl.Init.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, "+", add.Op)

	mul, ok := add.R.(*ast.Binary)
	require.True(t, ok, "* binds tighter than +")
	require.Equal(t, "*", mul.Op)
}

func TestLogicalAndTernary(t *testing.T) {
	prog := parseOK(t, `let x = a && b || c ? 1 : 2;`)

	decl := prog.Stmts[0].(*ast.VarDecl)

	tern, ok := decl.Init.(*ast.Ternary)
	require.True(t, ok)

	or, ok := tern.Cond.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, "||", or.Op)

	and, ok := or.L.(*ast.Binary)
	require.True(t, ok, "&& binds tighter than ||")
	require.Equal(t, "&&", and.Op)
}

func TestControlFlow(t *testing.T) {
	prog := parseOK(t, `
function f(n: integer): integer {
	if (n <= 1) { return 1; }
	return n * f(n - 1);
}

while (true) { break; }
do { continue; } while (false);
for (let i = 0; i < 10; i = i + 1) { print(i); }
foreach (x in [1, 2, 3]) { print(x); }

switch (a == 1) {
	case true: print("uno");
	default: print("otro");
}
`)

	require.Len(t, prog.Stmts, 6)

	_, ok := prog.Stmts[0].(*ast.FuncDecl)
	require.True(t, ok)

	sw := prog.Stmts[5].(*ast.Switch)
	require.Len(t, sw.Cases, 2)
	require.Nil(t, sw.Cases[1].Value, "default case has no value")
}

func TestClasses(t *testing.T) {
	prog := parseOK(t, `
class Animal {
	let name: string;
	function constructor(name: string) { this.name = name; }
	function speak(): string { return this.name; }
}

class Dog : Animal {
	function speak(): string { return "guau"; }
}

let d = new Dog("firulais");
print(d.speak());
`)

	cls := prog.Stmts[0].(*ast.ClassDecl)
	require.Equal(t, "Animal", cls.Name)
	require.Len(t, cls.Members, 3)

	dog := prog.Stmts[1].(*ast.ClassDecl)
	require.Equal(t, "Animal", dog.BaseCls)
}

func TestArrayTypes(t *testing.T) {
	prog := parseOK(t, `let m: integer[] = [1, 2]; let n: string[][] = [];`)

	m := prog.Stmts[0].(*ast.VarDecl)
	require.NotNil(t, m.Type.Elem)
	require.Equal(t, "integer", m.Type.Elem.Name)

	n := prog.Stmts[1].(*ast.VarDecl)
	require.NotNil(t, n.Type.Elem.Elem)
}

func TestSyntaxErrors(t *testing.T) {
	_, diags := Parse(context.Background(), []byte("let = 5;\nlet y = 6;"))
	require.NotEmpty(t, diags)
	require.Contains(t, diags[0], "[SyntaxError] L1:")

	// recovery: the second statement still parses
	prog, diags := Parse(context.Background(), []byte("let x 5;\nprint(2);"))
	require.NotEmpty(t, diags)
	require.NotEmpty(t, prog.Stmts)
}

func TestPositions(t *testing.T) {
	prog := parseOK(t, "\n\nlet x = 1;")

	line, col := prog.Stmts[0].Where()
	require.Equal(t, 3, line)
	require.Equal(t, 1, col)
}

func TestStringEscapes(t *testing.T) {
	prog := parseOK(t, `let s = "a\n\t\"b\"";`)

	lit := prog.Stmts[0].(*ast.VarDecl).Init.(*ast.StrLit)
	require.True(t, strings.Contains(lit.Value, "\n"))
	require.True(t, strings.Contains(lit.Value, `"b"`))
}
