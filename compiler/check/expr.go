package check

import (
	"github.com/compiscript/cps/compiler/ast"
	"github.com/compiscript/cps/compiler/sym"
	"github.com/compiscript/cps/compiler/tp"
)

// expr computes the type of an expression node, emitting diagnostics
// and substituting null on violations so checking continues.
func (c *Checker) expr(x cx, n ast.Node) tp.Type {
	switch n := n.(type) {
	case *ast.IntLit:
		return tp.Int{}
	case *ast.FloatLit:
		return tp.Float{}
	case *ast.StrLit:
		return tp.String{}
	case *ast.BoolLit:
		return tp.Bool{}
	case *ast.NullLit:
		return tp.Null{}
	case *ast.This:
		if x.cls == nil {
			c.err(n, "'this' solo puede usarse dentro de métodos de clase.")
			return tp.Null{}
		}

		return tp.Class{Name: x.cls.Name}
	case *ast.Ident:
		s := x.scope.Resolve(n.Name)
		if s == nil {
			c.err(n, "Variable no declarada: %v", n.Name)
			return tp.Null{}
		}

		return s.SymType()
	case *ast.ArrayLit:
		return c.arrayLit(x, n)
	case *ast.Unary:
		return c.unary(x, n)
	case *ast.Binary:
		return c.binary(x, n)
	case *ast.Ternary:
		return c.ternary(x, n)
	case *ast.Index:
		return c.index(x, n)
	case *ast.Property:
		return c.property(x, n)
	case *ast.Call:
		return c.call(x, n)
	case *ast.New:
		return c.neww(x, n)
	}

	return tp.Null{}
}

func (c *Checker) arrayLit(x cx, n *ast.ArrayLit) tp.Type {
	if len(n.Elems) == 0 {
		return tp.Array{Elem: tp.Null{}}
	}

	elem := c.expr(x, n.Elems[0])

	for _, e := range n.Elems[1:] {
		et := c.expr(x, e)

		switch {
		case elem.Compatible(et):
		case et.Compatible(elem):
			elem = et
		default:
			c.err(n, "Arreglo con elementos de tipos incompatibles: %v y %v.", elem, et)
		}
	}

	return tp.Array{Elem: elem}
}

func (c *Checker) unary(x cx, n *ast.Unary) tp.Type {
	xt := c.expr(x, n.X)

	if n.Op == "!" {
		if !isBool(xt) {
			c.err(n, "Negación lógica requiere un operando boolean, no %v.", xt)
			return tp.Null{}
		}

		return tp.Bool{}
	}

	if !tp.IsNumeric(xt) {
		c.err(n, "El operador unario '%v' requiere un operando numérico, no %v.", n.Op, xt)
		return tp.Null{}
	}

	return xt
}

func (c *Checker) binary(x cx, n *ast.Binary) tp.Type {
	lt := c.expr(x, n.L)
	rt := c.expr(x, n.R)

	switch n.Op {
	case "&&", "||":
		if !isBool(lt) || !isBool(rt) {
			c.err(n, "Operación lógica requiere booleanos: %v y %v.", lt, rt)
		}

		return tp.Bool{}
	case "==", "!=":
		if !lt.Compatible(rt) && !rt.Compatible(lt) {
			c.err(n, "Comparación entre tipos incompatibles: %v y %v.", lt, rt)
		}

		return tp.Bool{}
	case "<", "<=", ">", ">=":
		if !tp.IsNumeric(lt) || !tp.IsNumeric(rt) {
			c.err(n, "Comparación relacional requiere números: %v y %v.", lt, rt)
		}

		return tp.Bool{}
	case "+", "-":
		if isString(lt) && isString(rt) && n.Op == "+" {
			return tp.String{}
		}

		if !tp.IsNumeric(lt) || !tp.IsNumeric(rt) {
			c.err(n, "Suma/resta requiere operandos numéricos: %v y %v.", lt, rt)
			return tp.Null{}
		}

		return tp.Promote(lt, rt)
	default: // * / %
		if !tp.IsNumeric(lt) || !tp.IsNumeric(rt) {
			c.err(n, "Multiplicación/división requiere operandos numéricos: %v y %v.", lt, rt)
			return tp.Null{}
		}

		return tp.Promote(lt, rt)
	}
}

func (c *Checker) ternary(x cx, n *ast.Ternary) tp.Type {
	if !isBool(c.expr(x, n.Cond)) {
		c.err(n, "La condición del operador ternario debe ser boolean.")
	}

	lt := c.expr(x, n.Then)
	rt := c.expr(x, n.Else)

	if !lt.Compatible(rt) && !rt.Compatible(lt) {
		c.err(n, "Las ramas del operador ternario deben tener tipos compatibles: %v y %v.", lt, rt)
	}

	return lt
}

func (c *Checker) index(x cx, n *ast.Index) tp.Type {
	at := c.expr(x, n.X)

	if !isInt(c.expr(x, n.Idx)) {
		c.err(n, "El índice de un arreglo debe ser integer.")
	}

	arr, ok := at.(tp.Array)
	if !ok {
		c.err(n, "Indexación requiere un arreglo.")
		return tp.Null{}
	}

	return arr.Elem
}

func (c *Checker) property(x cx, n *ast.Property) tp.Type {
	ot := c.expr(x, n.X)

	ct, ok := ot.(tp.Class)
	if !ok {
		c.err(n, "Acceso a propiedad requiere un objeto.")
		return tp.Null{}
	}

	cls := c.Classes.Get(ct.Name)
	if cls == nil {
		c.err(n, "Clase '%v' no declarada.", ct.Name)
		return tp.Null{}
	}

	if f := cls.Field(n.Name); f != nil {
		return f.Type
	}

	if m := cls.Method(n.Name); m != nil {
		return m.Ret
	}

	c.err(n, "La clase '%v' no tiene miembro '%v'.", ct.Name, n.Name)

	return tp.Null{}
}

func (c *Checker) call(x cx, n *ast.Call) tp.Type {
	switch fun := n.Fun.(type) {
	case *ast.Ident:
		s := x.scope.Resolve(fun.Name)
		if s == nil {
			c.checkArgs(x, n, nil, fun.Name)
			c.err(n, "Función no declarada: %v", fun.Name)

			return tp.Null{}
		}

		f, ok := s.(*sym.Func)
		if !ok {
			c.checkArgs(x, n, nil, fun.Name)
			c.err(n, "Llamada aplicada a algo que no es función declarada.")

			return tp.Null{}
		}

		c.checkArgs(x, n, f, fun.Name)

		return f.Ret
	case *ast.Property:
		ot := c.expr(x, fun.X)

		ct, ok := ot.(tp.Class)
		if !ok {
			c.checkArgs(x, n, nil, fun.Name)
			c.err(n, "Llamada de método requiere un objeto.")

			return tp.Null{}
		}

		cls := c.Classes.Get(ct.Name)
		if cls == nil {
			c.checkArgs(x, n, nil, fun.Name)
			c.err(n, "Clase '%v' no declarada.", ct.Name)

			return tp.Null{}
		}

		m := cls.Method(fun.Name)
		if m == nil {
			c.checkArgs(x, n, nil, fun.Name)
			c.err(n, "La clase '%v' no tiene miembro '%v'.", ct.Name, fun.Name)

			return tp.Null{}
		}

		c.checkArgs(x, n, m, fun.Name)

		return m.Ret
	default:
		c.expr(x, fun)
		c.checkArgs(x, n, nil, "")
		c.err(n, "Llamada aplicada a algo que no es función declarada.")

		return tp.Null{}
	}
}

// checkArgs types every argument and, when the callee is known, checks
// arity and per-position compatibility.
func (c *Checker) checkArgs(x cx, n *ast.Call, f *sym.Func, name string) {
	var args []tp.Type

	for _, a := range n.Args {
		args = append(args, c.expr(x, a))
	}

	if f == nil {
		return
	}

	if len(args) != len(f.Params) {
		c.err(n, "La función '%v' espera %d argumentos pero recibió %d.", name, len(f.Params), len(args))
		return
	}

	for i, at := range args {
		if !f.Params[i].Type.Compatible(at) {
			c.err(n, "Argumento %d de '%v' debe ser %v pero recibió %v.", i+1, name, f.Params[i].Type, at)
		}
	}
}

func (c *Checker) neww(x cx, n *ast.New) tp.Type {
	cls := c.Classes.Get(n.Class)
	if cls == nil {
		for _, a := range n.Args {
			c.expr(x, a)
		}

		c.err(n, "Clase '%v' no declarada.", n.Class)

		return tp.Null{}
	}

	ctor := cls.Method("constructor")

	var args []tp.Type
	for _, a := range n.Args {
		args = append(args, c.expr(x, a))
	}

	if ctor == nil {
		if len(args) != 0 {
			c.err(n, "La clase '%v' no tiene constructor pero recibió %d argumentos.", n.Class, len(args))
		}

		return tp.Class{Name: n.Class}
	}

	if len(args) != len(ctor.Params) {
		c.err(n, "El constructor de '%v' espera %d argumentos pero recibió %d.", n.Class, len(ctor.Params), len(args))
		return tp.Class{Name: n.Class}
	}

	for i, at := range args {
		if !ctor.Params[i].Type.Compatible(at) {
			c.err(n, "Argumento %d del constructor de '%v' debe ser %v pero recibió %v.", i+1, n.Class, ctor.Params[i].Type, at)
		}
	}

	return tp.Class{Name: n.Class}
}

func isString(t tp.Type) bool {
	_, ok := t.(tp.String)
	return ok
}
