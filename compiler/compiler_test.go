package compiler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tlog.app/go/errors"
)

const factorial = `
function fact(n: integer): integer {
	if (n < 2) { return 1; }
	return n * fact(n - 1);
}

print(fact(5));
`

func TestCompileFactorial(t *testing.T) {
	obj, err := Compile(context.Background(), "fact.cps", []byte(factorial), nil)
	require.NoError(t, err)

	asm := string(obj)
	require.Contains(t, asm, "func_fact:")
	require.Contains(t, asm, "fact_exit:")
	require.Contains(t, asm, "jal\tfunc_fact")
	require.Contains(t, asm, "li\t$v0, 1", "result prints as an integer")

	t.Logf("result:\n%s", asm)
}

func TestCompileClasses(t *testing.T) {
	obj, err := Compile(context.Background(), "pt.cps", []byte(`
class Point {
	let x: integer;
	let y: integer;
	function constructor(x: integer, y: integer) {
		this.x = x;
		this.y = y;
	}
	function sum(): integer { return this.x + this.y; }
}

let p: Point = new Point(3, 4);
print(p.sum());
`), nil)
	require.NoError(t, err)

	asm := string(obj)
	require.Contains(t, asm, "func_Point_constructor:")
	require.Contains(t, asm, "func_Point_sum:")
	require.Contains(t, asm, "li\t$v0, 9", "object allocation")
}

func TestSemanticErrorsAbort(t *testing.T) {
	_, err := Compile(context.Background(), "bad.cps", []byte(`let x: integer = "hola";`), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "[SemanticError]")

	var d Diagnostics
	require.True(t, errors.As(err, &d))
	require.Len(t, d, 1)
}

func TestSyntaxErrorsAbort(t *testing.T) {
	_, err := Compile(context.Background(), "bad.cps", []byte(`let = ;`), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "[SyntaxError]")
}

func TestCheckCollectsAll(t *testing.T) {
	diags, err := Check(context.Background(), "bad.cps", []byte(`
let a: integer = true;
b = 1;
break;
`))
	require.NoError(t, err)
	require.Len(t, diags, 3, "checking reports every error, not just the first:\n%s", strings.Join(diags, "\n"))
}

func TestLowerListsTAC(t *testing.T) {
	prog, frames, err := Lower(context.Background(), "ok.cps", []byte(factorial))
	require.NoError(t, err)
	require.NotNil(t, frames)

	tac := prog.String()
	require.True(t, strings.HasPrefix(tac, "LABEL program_start\n"))
	require.Contains(t, tac, "LABEL func_fact")
	require.Contains(t, tac, "ENTER")
	require.Contains(t, tac, "RET")
}

func TestCompileFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "fact.cps")
	require.NoError(t, os.WriteFile(name, []byte(factorial), 0o644))

	obj, err := CompileFile(context.Background(), name, nil)
	require.NoError(t, err)
	require.NotEmpty(t, obj)
}
