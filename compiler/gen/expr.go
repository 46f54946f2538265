package gen

import (
	"strconv"

	"github.com/compiscript/cps/compiler/ast"
	"github.com/compiscript/cps/compiler/tp"
)

func (g *Gen) expr(n ast.Node) val {
	switch n := n.(type) {
	case *ast.IntLit:
		return imm(n.Text)
	case *ast.FloatLit:
		return imm(n.Text)
	case *ast.StrLit:
		// the quotes survive into the operand so the backend can tell
		// string literals from names
		return imm(strconv.Quote(n.Value))
	case *ast.BoolLit:
		if n.Value {
			return imm("1")
		}

		return imm("0")
	case *ast.NullLit:
		return imm("0")
	case *ast.Ident:
		return val{tmp: -1, text: n.Name, objInfo: g.objs[n.Name]}
	case *ast.This:
		return val{tmp: -1, text: "this", objInfo: objInfo{cls: g.cls}}
	case *ast.Unary:
		return g.unary(n)
	case *ast.Binary:
		return g.binary(n)
	case *ast.Ternary:
		return g.ternary(n)
	case *ast.ArrayLit:
		return g.arrayLit(n)
	case *ast.Index:
		return g.index(n)
	case *ast.Property:
		return g.property(n)
	case *ast.Call:
		return g.call(n)
	case *ast.New:
		return g.neww(n)
	}

	return imm("0")
}

func (g *Gen) unary(n *ast.Unary) val {
	v := g.expr(n.X)

	switch n.Op {
	case "+":
		return v
	case "-":
		res := temp(g.temps.Get())
		g.prog.Emit("NEG", res.operand(), v.operand(), "")
		g.release(v)

		return res
	case "!":
		res := temp(g.temps.Get())
		g.prog.Emit("NOT", res.operand(), v.operand(), "")
		g.release(v)

		return res
	}

	return v
}

var binOps = map[string]string{
	"+": "ADD", "-": "SUB", "*": "MUL", "/": "DIV", "%": "MOD",
	"==": "CMP==", "!=": "CMP!=",
	"<": "CMP<", "<=": "CMP<=", ">": "CMP>", ">=": "CMP>=",
}

func (g *Gen) binary(n *ast.Binary) val {
	switch n.Op {
	case "&&":
		return g.and(n)
	case "||":
		return g.or(n)
	}

	l := g.expr(n.L)
	r := g.expr(n.R)

	res := temp(g.temps.Get())
	g.prog.Emit(binOps[n.Op], res.operand(), l.operand(), r.operand())

	g.release(l)
	g.release(r)

	return res
}

// and short-circuits: the right operand is never evaluated when the
// left is zero.
func (g *Gen) and(n *ast.Binary) val {
	res := temp(g.temps.Get())

	lFalse := g.prog.NewLabel()
	lEnd := g.prog.NewLabel()

	l := g.expr(n.L)
	g.prog.Emit("IFZ", lFalse, l.operand(), "")
	g.release(l)

	r := g.expr(n.R)
	g.prog.Emit("MOV", res.operand(), r.operand(), "")
	g.release(r)

	g.prog.Emit("JUMP", lEnd, "", "")
	g.prog.Label(lFalse)
	g.prog.Emit("MOV", res.operand(), "0", "")
	g.prog.Label(lEnd)

	return res
}

func (g *Gen) or(n *ast.Binary) val {
	res := temp(g.temps.Get())

	lTrue := g.prog.NewLabel()
	lEnd := g.prog.NewLabel()

	l := g.expr(n.L)
	g.prog.Emit("IFNZ", lTrue, l.operand(), "")
	g.release(l)

	r := g.expr(n.R)
	g.prog.Emit("MOV", res.operand(), r.operand(), "")
	g.release(r)

	g.prog.Emit("JUMP", lEnd, "", "")
	g.prog.Label(lTrue)
	g.prog.Emit("MOV", res.operand(), "1", "")
	g.prog.Label(lEnd)

	return res
}

func (g *Gen) ternary(n *ast.Ternary) val {
	res := temp(g.temps.Get())

	lElse := g.prog.NewLabel()
	lEnd := g.prog.NewLabel()

	cond := g.expr(n.Cond)
	g.prog.Emit("IFZ", lElse, cond.operand(), "")
	g.release(cond)

	t := g.expr(n.Then)
	g.prog.Emit("MOV", res.operand(), t.operand(), "")
	g.release(t)

	res.objInfo = t.objInfo

	g.prog.Emit("JUMP", lEnd, "", "")
	g.prog.Label(lElse)

	e := g.expr(n.Else)
	g.prog.Emit("MOV", res.operand(), e.operand(), "")
	g.release(e)

	g.prog.Label(lEnd)

	return res
}

func (g *Gen) arrayLit(n *ast.ArrayLit) val {
	res := temp(g.temps.Get())
	g.prog.Emit("NEWARR", res.operand(), strconv.Itoa(len(n.Elems)), "")

	for i, el := range n.Elems {
		v := g.expr(el)
		g.prog.Emit("SETIDX", res.operand(), v.operand(), strconv.Itoa(i))
		g.release(v)

		if i == 0 {
			res.elem = v.cls
		}
	}

	return res
}

func (g *Gen) index(n *ast.Index) val {
	arr := g.expr(n.X)
	idx := g.expr(n.Idx)

	res := temp(g.temps.Get())
	g.prog.Emit("GETIDX", res.operand(), arr.operand(), idx.operand())

	g.release(arr)
	g.release(idx)

	res.cls = arr.elem

	return res
}

func (g *Gen) property(n *ast.Property) val {
	obj := g.expr(n.X)

	res := temp(g.temps.Get())
	g.prog.Emit("GETP", res.operand(), obj.operand(), n.Name)

	g.release(obj)

	res.objInfo = g.fieldInfo(obj.cls, n.Name)

	return res
}

// fieldInfo looks the field's class up in the receiver's class chain.
func (g *Gen) fieldInfo(cls, field string) (o objInfo) {
	c := g.classes.Get(cls)
	if c == nil {
		return o
	}

	f := c.Field(field)
	if f == nil {
		return o
	}

	switch t := f.Type.(type) {
	case tp.Class:
		o.cls = t.Name
	case tp.Array:
		if et, ok := t.Elem.(tp.Class); ok {
			o.elem = et.Name
		}
	}

	return o
}

func (g *Gen) call(n *ast.Call) val {
	switch fn := n.Fun.(type) {
	case *ast.Ident:
		label := g.funcLabel(fn.Name)
		g.params(nil, n.Args)

		res := temp(g.temps.Get())
		g.prog.Emit("CALL", res.operand(), label, "")

		res.objInfo = g.rets[label]

		return res
	case *ast.Property:
		obj := g.expr(fn.X)
		label := g.methodLabel(obj.cls, fn.Name)

		g.params(&obj, n.Args)
		g.release(obj)

		res := temp(g.temps.Get())
		g.prog.Emit("CALL", res.operand(), label, "")

		res.objInfo = g.rets[label]

		return res
	}

	// calls through arbitrary expressions are rejected by the checker
	return imm("0")
}

// params evaluates every argument first, then pushes the receiver
// (when present) and the arguments as one contiguous PARAM run right
// before the CALL, so calls nested in argument position cannot steal
// the enclosing call's pending parameters.
func (g *Gen) params(recv *val, args []ast.Node) {
	vals := make([]val, 0, len(args))

	for _, a := range args {
		vals = append(vals, g.expr(a))
	}

	if recv != nil {
		g.prog.Emit("PARAM", "", recv.operand(), "")
	}

	for _, v := range vals {
		g.prog.Emit("PARAM", "", v.operand(), "")
		g.release(v)
	}
}

// methodLabel resolves a method call on a receiver of the given class
// to func_<Owner>_m, where the owner is the class in the chain that
// declares the method.
func (g *Gen) methodLabel(cls, name string) string {
	if cls == "" {
		return "func_" + name
	}

	if c := g.classes.Get(cls); c != nil {
		if owner := c.MethodOwner(name); owner != nil {
			return "func_" + owner.Name + "_" + name
		}
	}

	return "func_" + cls + "_" + name
}

// neww allocates the object, then runs the constructor with the fresh
// object as the implicit first parameter. The constructor result is
// discarded.
func (g *Gen) neww(n *ast.New) val {
	res := temp(g.temps.Get())
	res.cls = n.Class

	g.prog.Emit("NEW", res.operand(), n.Class, "")

	ctor := false
	ctorClass := n.Class

	if c := g.classes.Get(n.Class); c != nil {
		if owner := c.MethodOwner("constructor"); owner != nil {
			ctor, ctorClass = true, owner.Name
		}
	}

	if !ctor && len(n.Args) == 0 {
		return res
	}

	g.params(&res, n.Args)
	g.prog.Emit("CALL", "", "func_"+ctorClass+"_constructor", "")

	return res
}
