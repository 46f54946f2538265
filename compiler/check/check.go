package check

import (
	"context"
	"fmt"

	"tlog.app/go/tlog"

	"github.com/compiscript/cps/compiler/ast"
	"github.com/compiscript/cps/compiler/sym"
	"github.com/compiscript/cps/compiler/tp"
)

type (
	// Checker validates a parse tree against the type system and the
	// scoping rules, accumulating one formatted diagnostic per
	// violation. It never aborts on an error: offending expressions
	// type as null so the rest of the tree still gets checked.
	Checker struct {
		Global  *sym.Scope
		Classes *sym.ClassTable

		Errors []string

		// loop nesting is a plain counter, deliberately shared across
		// nested functions.
		loops int
	}

	// cx is the walk context: the active scope and the enclosing
	// function/class, threaded explicitly through the recursion.
	cx struct {
		scope *sym.Scope
		fn    *sym.Func
		cls   *sym.Class
	}
)

func New() *Checker {
	return &Checker{
		Global:  sym.NewScope(nil),
		Classes: sym.NewClassTable(),
	}
}

// Check walks the whole program once, left to right, depth first, and
// returns the accumulated diagnostics.
func (c *Checker) Check(ctx context.Context, prog *ast.Program) (diags []string) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "check", "stmts", len(prog.Stmts))
	defer tr.Finish()

	x := cx{scope: c.Global}

	c.stmts(x, prog.Stmts)

	tr.Printw("checked", "diags", len(c.Errors))

	return c.Errors
}

func (c *Checker) err(n ast.Node, f string, args ...any) {
	line, col := n.Where()

	c.Errors = append(c.Errors, fmt.Sprintf("[SemanticError] L%d:C%d %s", line, col, fmt.Sprintf(f, args...)))
}

// stmts checks a statement sequence, flagging everything after a
// terminal statement as unreachable (but still checking it).
func (c *Checker) stmts(x cx, list []ast.Node) {
	terminated := false

	for _, s := range list {
		if terminated {
			c.err(s, "Código inalcanzable.")
		}

		if c.stmt(x, s) {
			terminated = true
		}
	}
}

// stmt checks one statement and reports whether it terminates the
// block (return/break/continue).
func (c *Checker) stmt(x cx, n ast.Node) (terminal bool) {
	switch n := n.(type) {
	case *ast.VarDecl:
		c.varDecl(x, n)
	case *ast.Assign:
		c.assign(x, n)
	case *ast.ExprStmt:
		c.expr(x, n.X)
	case *ast.Print:
		c.expr(x, n.X)
	case *ast.Block:
		c.stmts(cx{scope: sym.NewScope(x.scope), fn: x.fn, cls: x.cls}, n.Stmts)
	case *ast.If:
		if !isBool(c.expr(x, n.Cond)) {
			c.err(n, "La condición de 'if' debe ser boolean.")
		}

		c.stmt(x, n.Then)

		if n.Else != nil {
			c.stmt(x, n.Else)
		}
	case *ast.While:
		if !isBool(c.expr(x, n.Cond)) {
			c.err(n, "La condición de 'while' debe ser boolean.")
		}

		c.loops++
		c.stmt(x, n.Body)
		c.loops--
	case *ast.DoWhile:
		c.loops++
		c.stmt(x, n.Body)
		c.loops--

		if !isBool(c.expr(x, n.Cond)) {
			c.err(n, "La condición de 'do-while' debe ser boolean.")
		}
	case *ast.For:
		if n.Init != nil {
			c.stmt(x, n.Init)
		}

		if n.Cond != nil && !isBool(c.expr(x, n.Cond)) {
			c.err(n, "La condición de 'for' debe ser boolean.")
		}

		if n.Post != nil {
			c.stmt(x, n.Post)
		}

		c.loops++
		c.stmt(x, n.Body)
		c.loops--
	case *ast.Foreach:
		c.foreach(x, n)
	case *ast.Switch:
		if !isBool(c.expr(x, n.Subject)) {
			c.err(n, "La expresión de 'switch' debe ser boolean.")
		}

		for _, cs := range n.Cases {
			if cs.Value != nil {
				c.expr(x, cs.Value)
			}

			c.stmts(x, cs.Stmts)
		}
	case *ast.Break:
		if c.loops == 0 {
			c.err(n, "'break' solo se permite dentro de bucles.")
		}

		return true
	case *ast.Continue:
		if c.loops == 0 {
			c.err(n, "'continue' solo se permite dentro de bucles.")
		}

		return true
	case *ast.Return:
		c.ret(x, n)

		return true
	case *ast.FuncDecl:
		c.funcDecl(x, n)
	case *ast.ClassDecl:
		c.classDecl(x, n)
	default:
		c.expr(x, n)
	}

	return false
}

func (c *Checker) varDecl(x cx, n *ast.VarDecl) {
	var vt tp.Type

	switch {
	case n.Type != nil:
		vt = c.typeOf(n.Type)
	case n.Init != nil:
		vt = c.expr(x, n.Init)
	default:
		c.err(n, "No se puede inferir el tipo de '%v' sin anotación ni inicializador.", n.Name)
		vt = tp.Null{}
	}

	if n.Type != nil && n.Init != nil {
		et := c.expr(x, n.Init)

		if !vt.Compatible(et) {
			if n.Const {
				c.err(n, "Constante '%v' declarada como %v pero inicializa con %v.", n.Name, vt, et)
			} else {
				c.err(n, "Asignación incompatible: variable '%v' es %v pero expresión es %v.", n.Name, vt, et)
			}
		}
	}

	v := sym.NewVar(n.Name, vt)
	v.Const = n.Const
	v.Initialized = n.Init != nil

	if err := x.scope.Define(v); err != nil {
		c.err(n, "%v", err)
	}
}

func (c *Checker) assign(x cx, n *ast.Assign) {
	switch t := n.Target.(type) {
	case *ast.Ident:
		s := x.scope.Resolve(t.Name)
		if s == nil {
			c.err(n, "Variable no declarada: %v", t.Name)
			c.expr(x, n.Value)

			return
		}

		if v, ok := s.(*sym.Var); ok && v.Const {
			c.err(n, "No se puede asignar a constante '%v'.", t.Name)
		}

		et := c.expr(x, n.Value)

		if !s.SymType().Compatible(et) {
			c.err(n, "Asignación incompatible: variable '%v' es %v pero expresión es %v.", t.Name, s.SymType(), et)
		}

		if v, ok := s.(*sym.Var); ok {
			v.Initialized = true
		}
	case *ast.Property:
		ot := c.expr(x, t.X)
		et := c.expr(x, n.Value)

		ct, ok := ot.(tp.Class)
		if !ok {
			c.err(n, "La asignación de propiedad requiere un objeto.")
			return
		}

		cls := c.Classes.Get(ct.Name)
		if cls == nil {
			c.err(n, "Clase '%v' no declarada.", ct.Name)
			return
		}

		f := cls.Field(t.Name)
		if f == nil {
			c.err(n, "La clase '%v' no tiene campo '%v'.", ct.Name, t.Name)
			return
		}

		if f.Const {
			c.err(n, "No se puede asignar al campo constante '%v'.", t.Name)
		}

		if !f.Type.Compatible(et) {
			c.err(n, "Asignación incompatible: campo '%v' es %v pero expresión es %v.", t.Name, f.Type, et)
		}
	case *ast.Index:
		at := c.expr(x, t.X)

		if !isInt(c.expr(x, t.Idx)) {
			c.err(n, "El índice de un arreglo debe ser integer.")
		}

		et := c.expr(x, n.Value)

		arr, ok := at.(tp.Array)
		if !ok {
			c.err(n, "Indexación requiere un arreglo.")
			return
		}

		if !arr.Elem.Compatible(et) {
			c.err(n, "Asignación incompatible: elemento es %v pero expresión es %v.", arr.Elem, et)
		}
	}
}

func (c *Checker) foreach(x cx, n *ast.Foreach) {
	st := c.expr(x, n.Seq)

	var elem tp.Type = tp.Null{}

	if arr, ok := st.(tp.Array); ok {
		elem = arr.Elem
	} else {
		c.err(n, "El 'foreach' requiere iterar sobre un arreglo.")
	}

	inner := cx{scope: sym.NewScope(x.scope), fn: x.fn, cls: x.cls}

	v := sym.NewVar(n.Name, elem)
	v.Initialized = true

	if err := inner.scope.Define(v); err != nil {
		c.err(n, "%v", err)
	}

	c.loops++
	c.stmt(inner, n.Body)
	c.loops--
}

func (c *Checker) ret(x cx, n *ast.Return) {
	if x.fn == nil {
		c.err(n, "'return' solo se permite dentro de una función.")

		if n.X != nil {
			c.expr(x, n.X)
		}

		return
	}

	if n.X == nil {
		return
	}

	et := c.expr(x, n.X)

	if !x.fn.Ret.Compatible(et) {
		c.err(n, "El 'return' devuelve %v pero la función retorna %v.", et, x.fn.Ret)
	}
}

// funcDecl declares the function in the enclosing scope before its body
// is checked, so recursive calls resolve.
func (c *Checker) funcDecl(x cx, n *ast.FuncDecl) {
	f := c.funcSig(n)

	if err := x.scope.Define(f); err != nil {
		c.err(n, "%v", err)
	}

	c.funcBody(x, f, n)
}

func (c *Checker) funcSig(n *ast.FuncDecl) *sym.Func {
	f := &sym.Func{
		Name: n.Name,
		Ret:  tp.Null{},
	}

	if n.Ret != nil {
		f.Ret = c.typeOf(n.Ret)
	}

	for i, p := range n.Params {
		var pt tp.Type = tp.Null{}
		if p.Type != nil {
			pt = c.typeOf(p.Type)
		}

		v := sym.NewVar(p.Name, pt)
		v.Initialized = true
		v.IsParam = true
		v.ParamIndex = i

		f.Params = append(f.Params, v)
	}

	return f
}

// funcBody checks the body with the parameters in a fresh child scope.
func (c *Checker) funcBody(x cx, f *sym.Func, n *ast.FuncDecl) {
	inner := cx{scope: sym.NewScope(x.scope), fn: f, cls: x.cls}

	for _, p := range f.Params {
		if err := inner.scope.Define(p); err != nil {
			c.err(n, "%v", err)
		}
	}

	c.stmt(inner, n.Body)
}

// classDecl registers the class name first (self-reference is fine),
// resolves the base, builds the member signature table, and only then
// checks member bodies with `this` bound.
func (c *Checker) classDecl(x cx, n *ast.ClassDecl) {
	if c.Classes.Get(n.Name) != nil {
		c.err(n, "Clase '%v' ya declarada.", n.Name)
	}

	cls := sym.NewClass(n.Name)
	c.Classes.Add(cls)

	if n.BaseCls != "" {
		base := c.Classes.Get(n.BaseCls)
		if base == nil {
			c.err(n, "Clase base no declarada: %v", n.BaseCls)
		} else if err := cls.SetBase(base); err != nil {
			c.err(n, "%v", err)
		}
	}

	var methods []*sym.Func

	for _, m := range n.Members {
		switch m := m.(type) {
		case *ast.VarDecl:
			var ft tp.Type = tp.Null{}
			if m.Type != nil {
				ft = c.typeOf(m.Type)
			}

			f := sym.NewVar(m.Name, ft)
			f.Const = m.Const
			f.Initialized = m.Init != nil

			if err := cls.AddField(f); err != nil {
				c.err(m, "%v", err)
			}
		case *ast.FuncDecl:
			f := c.funcSig(m)

			if err := cls.AddMethod(f); err != nil {
				c.err(m, "%v", err)
			}

			methods = append(methods, f)
		}
	}

	// second pass: field initializers and method bodies
	mi := 0

	for _, m := range n.Members {
		switch m := m.(type) {
		case *ast.VarDecl:
			if m.Init == nil {
				continue
			}

			et := c.expr(cx{scope: x.scope, cls: cls}, m.Init)

			if f := cls.Field(m.Name); f != nil && !f.Type.Compatible(et) {
				c.err(m, "Asignación incompatible: campo '%v' es %v pero expresión es %v.", m.Name, f.Type, et)
			}
		case *ast.FuncDecl:
			c.funcBody(cx{scope: x.scope, cls: cls}, methods[mi], m)
			mi++
		}
	}
}

// typeOf maps a source annotation to a value type. Names that are not
// primitives are class names; their existence is validated on use.
func (c *Checker) typeOf(r *ast.TypeRef) tp.Type {
	if r.Elem != nil {
		return tp.Array{Elem: c.typeOf(r.Elem)}
	}

	switch r.Name {
	case "integer":
		return tp.Int{}
	case "float":
		return tp.Float{}
	case "string":
		return tp.String{}
	case "boolean":
		return tp.Bool{}
	case "null", "void":
		return tp.Null{}
	}

	return tp.Class{Name: r.Name}
}

func isBool(t tp.Type) bool {
	_, ok := t.(tp.Bool)
	return ok
}

func isInt(t tp.Type) bool {
	_, ok := t.(tp.Int)
	return ok
}
