package gen

import (
	"context"
	"strconv"

	"tlog.app/go/tlog"

	"github.com/compiscript/cps/compiler/ast"
	"github.com/compiscript/cps/compiler/frame"
	"github.com/compiscript/cps/compiler/ir"
	"github.com/compiscript/cps/compiler/sym"
)

type (
	// Gen lowers a checked parse tree into a flat TAC program. It
	// assumes a clean tree: nothing is re-validated here, and the
	// output for an invalid tree is unspecified.
	Gen struct {
		prog  *ir.Prog
		temps ir.Pool

		// Frames collects every function's parameter/local offsets
		// while its body is walked; the backend consumes it.
		Frames *frame.Registry

		// classes is the checker's class table, used to resolve
		// constructor signatures and method labels.
		classes *sym.ClassTable

		// objs maps variables to the class they hold (or the class
		// their elements hold, for arrays), seeded by annotations and
		// refined by every assignment, so method calls on copies and
		// on chained receivers still resolve to the right label.
		objs map[string]objInfo

		// rets records the same per function label, for calls used as
		// receivers.
		rets map[string]objInfo

		// funcs maps bare function names to their emitted labels at
		// the top level; nested declarations live in their fnCx.
		funcs map[string]string

		fn    *fnCx
		cls   string
		loops []loopCx
	}

	// objInfo is the class a value belongs to: cls for objects, elem
	// for arrays of objects. Empty strings mean "not an object".
	objInfo struct {
		cls  string
		elem string
	}

	fnCx struct {
		name   string
		layout *frame.Layout
		enter  ir.Fixup
		exit   string
		rv     int
		hasRet bool

		funcs map[string]string

		prev *fnCx
	}

	loopCx struct {
		cont string
		brk  string
	}

	// val is an expression result: a pool temporary or an immediate
	// operand (literal lexeme or variable name), tagged with the class
	// it belongs to when one is known.
	val struct {
		tmp  int
		text string

		objInfo
	}
)

func New(classes *sym.ClassTable) *Gen {
	return &Gen{
		prog:    &ir.Prog{},
		Frames:  frame.NewRegistry(),
		classes: classes,
		objs:    map[string]objInfo{},
		rets:    map[string]objInfo{},
		funcs:   map[string]string{},
	}
}

// Generate lowers the whole program, bracketed by program_start and
// program_end labels.
func (g *Gen) Generate(ctx context.Context, prog *ast.Program) *ir.Prog {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "gen", "stmts", len(prog.Stmts))
	defer tr.Finish()

	g.prog.Label("program_start")

	for _, s := range prog.Stmts {
		g.stmt(s)
	}

	g.prog.Label("program_end")

	tr.Printw("generated", "instrs", len(g.prog.Code))

	return g.prog
}

func imm(text string) val { return val{tmp: -1, text: text} }

func temp(t int) val { return val{tmp: t} }

func (v val) operand() string {
	if v.tmp >= 0 {
		return ir.Temp(v.tmp)
	}

	return v.text
}

// release returns a temporary to the pool once its value has been
// consumed. Immediates are no-ops.
func (g *Gen) release(v val) {
	if v.tmp >= 0 {
		g.temps.Release(v.tmp)
	}
}

func (g *Gen) stmt(n ast.Node) {
	switch n := n.(type) {
	case *ast.VarDecl:
		g.varDecl(n)
	case *ast.Assign:
		g.assign(n)
	case *ast.ExprStmt:
		// unused values are still fully evaluated, then dropped
		g.release(g.expr(n.X))
	case *ast.Print:
		v := g.expr(n.X)
		g.prog.Emit("PRINT", "", v.operand(), "")
		g.release(v)
	case *ast.Block:
		for _, s := range n.Stmts {
			g.stmt(s)
		}
	case *ast.If:
		g.ifStmt(n)
	case *ast.While:
		g.whileStmt(n)
	case *ast.DoWhile:
		g.doWhile(n)
	case *ast.For:
		g.forStmt(n)
	case *ast.Foreach:
		g.foreach(n)
	case *ast.Switch:
		g.switchStmt(n)
	case *ast.Break:
		if l := len(g.loops); l > 0 {
			g.prog.Emit("JUMP", g.loops[l-1].brk, "", "")
		}
	case *ast.Continue:
		if l := len(g.loops); l > 0 {
			g.prog.Emit("JUMP", g.loops[l-1].cont, "", "")
		}
	case *ast.Return:
		g.ret(n)
	case *ast.FuncDecl:
		g.funcDecl(n, "")
	case *ast.ClassDecl:
		g.classDecl(n)
	}
}

func (g *Gen) varDecl(n *ast.VarDecl) {
	if g.fn != nil {
		g.fn.layout.AddLocal(n.Name)
	}

	g.noteType(n.Name, n.Type)

	if n.Init == nil {
		return
	}

	v := g.expr(n.Init)
	g.noteVal(n.Name, v)
	g.prog.Emit("MOV", n.Name, v.operand(), "")
	g.release(v)
}

// noteType remembers which class a variable is annotated with so
// method calls on it can resolve to the right label.
func (g *Gen) noteType(name string, t *ast.TypeRef) {
	if o := typeInfo(t); o != (objInfo{}) {
		g.objs[name] = o
	}
}

// noteVal does the same from the value flowing into the variable,
// covering inferred declarations and object copies.
func (g *Gen) noteVal(name string, v val) {
	if v.objInfo != (objInfo{}) {
		g.objs[name] = v.objInfo
	}
}

// typeInfo extracts the class an annotation names, or the element
// class of a one-dimensional array annotation.
func typeInfo(t *ast.TypeRef) (o objInfo) {
	if t == nil {
		return o
	}

	if t.Elem != nil {
		o.elem = className(t.Elem)
		return o
	}

	o.cls = className(t)

	return o
}

func className(t *ast.TypeRef) string {
	if t.Elem != nil {
		return ""
	}

	switch t.Name {
	case "integer", "float", "string", "boolean", "null", "void":
		return ""
	}

	return t.Name
}

func (g *Gen) assign(n *ast.Assign) {
	switch t := n.Target.(type) {
	case *ast.Ident:
		v := g.expr(n.Value)
		g.noteVal(t.Name, v)
		g.prog.Emit("MOV", t.Name, v.operand(), "")
		g.release(v)
	case *ast.Property:
		v := g.expr(n.Value)
		obj := g.expr(t.X)

		g.prog.Emit("MOVP", obj.operand(), v.operand(), t.Name)

		g.release(v)
		g.release(obj)
	case *ast.Index:
		v := g.expr(n.Value)
		arr := g.expr(t.X)
		idx := g.expr(t.Idx)

		g.prog.Emit("SETIDX", arr.operand(), v.operand(), idx.operand())

		g.release(v)
		g.release(arr)
		g.release(idx)
	}
}

func (g *Gen) ifStmt(n *ast.If) {
	lElse := g.prog.NewLabel()
	lEnd := g.prog.NewLabel()

	cond := g.expr(n.Cond)
	g.prog.Emit("IFZ", lElse, cond.operand(), "")
	g.release(cond)

	g.stmt(n.Then)
	g.prog.Emit("JUMP", lEnd, "", "")

	g.prog.Label(lElse)

	if n.Else != nil {
		g.stmt(n.Else)
	}

	g.prog.Label(lEnd)
}

func (g *Gen) whileStmt(n *ast.While) {
	lCond := g.prog.NewLabel()
	lEnd := g.prog.NewLabel()

	g.prog.Label(lCond)

	cond := g.expr(n.Cond)
	g.prog.Emit("IFZ", lEnd, cond.operand(), "")
	g.release(cond)

	g.loop(lCond, lEnd, n.Body)

	g.prog.Emit("JUMP", lCond, "", "")
	g.prog.Label(lEnd)
}

func (g *Gen) doWhile(n *ast.DoWhile) {
	lBody := g.prog.NewLabel()
	lCond := g.prog.NewLabel()
	lEnd := g.prog.NewLabel()

	g.prog.Label(lBody)

	g.loop(lCond, lEnd, n.Body)

	g.prog.Label(lCond)

	cond := g.expr(n.Cond)
	g.prog.Emit("IFZ", lEnd, cond.operand(), "")
	g.release(cond)

	g.prog.Emit("JUMP", lBody, "", "")
	g.prog.Label(lEnd)
}

func (g *Gen) forStmt(n *ast.For) {
	if n.Init != nil {
		g.stmt(n.Init)
	}

	lCond := g.prog.NewLabel()
	lStep := g.prog.NewLabel()
	lEnd := g.prog.NewLabel()

	g.prog.Label(lCond)

	if n.Cond != nil {
		cond := g.expr(n.Cond)
		g.prog.Emit("IFZ", lEnd, cond.operand(), "")
		g.release(cond)
	}

	g.loop(lStep, lEnd, n.Body)

	g.prog.Label(lStep)

	if n.Post != nil {
		g.stmt(n.Post)
	}

	g.prog.Emit("JUMP", lCond, "", "")
	g.prog.Label(lEnd)
}

func (g *Gen) foreach(n *ast.Foreach) {
	if g.fn != nil {
		g.fn.layout.AddLocal(n.Name)
	}

	arr := g.expr(n.Seq)

	if arr.elem != "" {
		g.objs[n.Name] = objInfo{cls: arr.elem}
	}

	i := temp(g.temps.Get())
	length := temp(g.temps.Get())

	g.prog.Emit("MOV", i.operand(), "0", "")
	g.prog.Emit("LEN", length.operand(), arr.operand(), "")

	lCond := g.prog.NewLabel()
	lStep := g.prog.NewLabel()
	lEnd := g.prog.NewLabel()

	g.prog.Label(lCond)

	c := temp(g.temps.Get())
	g.prog.Emit("CMP<", c.operand(), i.operand(), length.operand())
	g.prog.Emit("IFZ", lEnd, c.operand(), "")
	g.release(c)

	g.prog.Emit("GETIDX", n.Name, arr.operand(), i.operand())

	g.loop(lStep, lEnd, n.Body)

	g.prog.Label(lStep)
	g.prog.Emit("ADD", i.operand(), i.operand(), "1")
	g.prog.Emit("JUMP", lCond, "", "")
	g.prog.Label(lEnd)

	g.release(length)
	g.release(i)
	g.release(arr)
}

func (g *Gen) switchStmt(n *ast.Switch) {
	subj := g.expr(n.Subject)
	lEnd := g.prog.NewLabel()

	for _, cs := range n.Cases {
		lNext := ""

		if cs.Value != nil {
			lNext = g.prog.NewLabel()

			v := g.expr(cs.Value)
			c := temp(g.temps.Get())

			g.prog.Emit("CMP==", c.operand(), subj.operand(), v.operand())
			g.prog.Emit("IFZ", lNext, c.operand(), "")

			g.release(c)
			g.release(v)
		}

		for _, s := range cs.Stmts {
			g.stmt(s)
		}

		g.prog.Emit("JUMP", lEnd, "", "")

		if lNext != "" {
			g.prog.Label(lNext)
		}
	}

	g.prog.Label(lEnd)
	g.release(subj)
}

func (g *Gen) loop(cont, brk string, body *ast.Block) {
	g.loops = append(g.loops, loopCx{cont: cont, brk: brk})
	g.stmt(body)
	g.loops = g.loops[:len(g.loops)-1]
}

// ret moves the value into the function's return-value temporary and
// jumps to the single epilogue under the exit label.
func (g *Gen) ret(n *ast.Return) {
	if g.fn == nil {
		return
	}

	if n.X != nil {
		v := g.expr(n.X)
		g.prog.Emit("MOV", ir.Temp(g.fn.rv), v.operand(), "")
		g.release(v)

		g.fn.hasRet = true
	}

	g.prog.Emit("JUMP", g.fn.exit, "", "")
}

// funcDecl emits the function inline, jumping over the body so
// top-level control flow cannot fall into it. The ENTER size operand is
// backpatched once the body (and so the frame layout) is complete.
// Nested declarations are qualified with the enclosing function's name
// so the labels stay unique program-wide.
func (g *Gen) funcDecl(n *ast.FuncDecl, class string) {
	name := n.Name

	switch {
	case class != "":
		name = class + "_" + n.Name
	case g.fn != nil:
		name = g.fn.name + "_" + n.Name
	}

	label := "func_" + name

	if class == "" {
		g.defineFunc(n.Name, label)
	}

	g.rets[label] = typeInfo(n.Ret)

	lSkip := g.prog.NewLabel()
	g.prog.Emit("JUMP", lSkip, "", "")

	g.prog.Label(label)

	f := &fnCx{
		name:   name,
		layout: g.Frames.Frame(name),
		exit:   name + "_exit",
		rv:     g.temps.Get(),
		prev:   g.fn,
	}

	f.enter = g.prog.Emit("ENTER", "", "0", "")

	if class != "" {
		f.layout.AddParam("this")
	}

	for _, p := range n.Params {
		f.layout.AddParam(p.Name)
		g.noteType(p.Name, p.Type)
	}

	g.fn = f

	g.stmt(n.Body)

	g.prog.Label(f.exit)
	g.prog.Patch(f.enter, strconv.Itoa(f.layout.Size()))
	g.prog.Emit("LEAVE", "", "", "")

	if f.hasRet {
		g.prog.Emit("RET", "", ir.Temp(f.rv), "")
	} else {
		g.prog.Emit("RET", "", "", "")
	}

	g.temps.Release(f.rv)
	g.fn = f.prev

	g.prog.Label(lSkip)
}

// defineFunc binds a function name to its label in the innermost
// context, shadowing outer declarations the way scopes do.
func (g *Gen) defineFunc(name, label string) {
	if g.fn != nil {
		if g.fn.funcs == nil {
			g.fn.funcs = map[string]string{}
		}

		g.fn.funcs[name] = label

		return
	}

	g.funcs[name] = label
}

// funcLabel resolves a call by name, innermost declaration first.
func (g *Gen) funcLabel(name string) string {
	for f := g.fn; f != nil; f = f.prev {
		if l, ok := f.funcs[name]; ok {
			return l
		}
	}

	if l, ok := g.funcs[name]; ok {
		return l
	}

	return "func_" + name
}

func (g *Gen) classDecl(n *ast.ClassDecl) {
	prev := g.cls
	g.cls = n.Name

	for _, m := range n.Members {
		if f, ok := m.(*ast.FuncDecl); ok {
			g.funcDecl(f, n.Name)
		}
	}

	g.cls = prev
}
