package parse

import (
	"context"
	"fmt"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/compiscript/cps/compiler/ast"
)

type (
	parser struct {
		toks []token
		i    int

		errs []string
	}

	// bailout unwinds a statement that cannot be parsed further; the
	// statement loop recovers and resynchronizes. The diagnostic has
	// already been recorded by then.
	bailout struct{}
)

// ParseFile reads and parses one source file.
func ParseFile(ctx context.Context, name string) (*ast.Program, []string, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read file")
	}

	prog, diags := Parse(ctx, text)

	return prog, diags, nil
}

// Parse turns source text into a parse tree. The second result is a
// list of formatted syntax diagnostics; a non-empty list short-circuits
// the rest of the pipeline.
func Parse(ctx context.Context, text []byte) (*ast.Program, []string) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "parse", "size", len(text))
	defer tr.Finish()

	l := newLexer(text)

	p := &parser{
		toks: l.tokens(),
		errs: l.errs,
	}

	prog := &ast.Program{Base: p.base()}

	for p.cur().kind != tokEOF {
		if s := p.stmt(); s != nil {
			prog.Stmts = append(prog.Stmts, s)
		}
	}

	tr.Printw("parsed", "stmts", len(prog.Stmts), "diags", len(p.errs))

	return prog, p.errs
}

func (p *parser) cur() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}

	return t
}

func (p *parser) base() ast.Base {
	t := p.cur()

	return ast.Base{Pos: t.pos, Line: t.line, Col: t.col}
}

func (p *parser) is(text string) bool {
	t := p.cur()

	return (t.kind == tokPunct || t.kind == tokIdent) && t.text == text
}

func (p *parser) eat(text string) bool {
	if !p.is(text) {
		return false
	}

	p.next()

	return true
}

func (p *parser) expect(text string) {
	if !p.eat(text) {
		p.fail("se esperaba %q, se encontró %q", text, p.cur().text)
	}
}

func (p *parser) fail(f string, args ...any) {
	t := p.cur()
	p.errs = append(p.errs, fmt.Sprintf("[SyntaxError] L%d:C%d %s", t.line, t.col, fmt.Sprintf(f, args...)))

	panic(bailout{})
}

// sync skips to the start of the next statement after a bailout.
func (p *parser) sync() {
	for {
		switch t := p.cur(); {
		case t.kind == tokEOF:
			return
		case t.kind == tokPunct && (t.text == ";" || t.text == "}"):
			p.next()
			return
		default:
			p.next()
		}
	}
}

func (p *parser) stmt() (s ast.Node) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}

			p.sync()
			s = nil
		}
	}()

	b := p.base()

	switch {
	case p.is("let"), p.is("const"):
		return p.varDecl()
	case p.is("function"):
		return p.funcDecl()
	case p.is("class"):
		return p.classDecl()
	case p.is("if"):
		return p.ifStmt()
	case p.is("while"):
		p.next()
		p.expect("(")
		cond := p.expr()
		p.expect(")")

		return &ast.While{Base: b, Cond: cond, Body: p.block()}
	case p.is("do"):
		p.next()
		body := p.block()
		p.expect("while")
		p.expect("(")
		cond := p.expr()
		p.expect(")")
		p.expect(";")

		return &ast.DoWhile{Base: b, Body: body, Cond: cond}
	case p.is("for"):
		return p.forStmt()
	case p.is("foreach"):
		p.next()
		p.expect("(")
		name := p.ident()
		p.expect("in")
		seq := p.expr()
		p.expect(")")

		return &ast.Foreach{Base: b, Name: name, Seq: seq, Body: p.block()}
	case p.is("switch"):
		return p.switchStmt()
	case p.is("break"):
		p.next()
		p.expect(";")

		return &ast.Break{Base: b}
	case p.is("continue"):
		p.next()
		p.expect(";")

		return &ast.Continue{Base: b}
	case p.is("return"):
		p.next()

		var x ast.Node
		if !p.is(";") {
			x = p.expr()
		}

		p.expect(";")

		return &ast.Return{Base: b, X: x}
	case p.is("print"):
		p.next()
		p.expect("(")
		x := p.expr()
		p.expect(")")
		p.expect(";")

		return &ast.Print{Base: b, X: x}
	case p.is("{"):
		return p.block()
	default:
		return p.simpleStmt(true)
	}
}

// simpleStmt is an assignment or expression statement. semi controls
// the trailing semicolon (omitted inside for-headers).
func (p *parser) simpleStmt(semi bool) ast.Node {
	b := p.base()
	x := p.expr()

	if p.eat("=") {
		switch x.(type) {
		case *ast.Ident, *ast.Property, *ast.Index:
		default:
			p.fail("destino de asignación inválido")
		}

		v := p.expr()
		if semi {
			p.expect(";")
		}

		return &ast.Assign{Base: b, Target: x, Value: v}
	}

	if semi {
		p.expect(";")
	}

	return &ast.ExprStmt{Base: b, X: x}
}

func (p *parser) varDecl() ast.Node {
	b := p.base()
	isConst := p.cur().text == "const"
	p.next()

	d := &ast.VarDecl{
		Base:  b,
		Name:  p.ident(),
		Const: isConst,
	}

	if p.eat(":") {
		d.Type = p.typeRef()
	}

	if p.eat("=") {
		d.Init = p.expr()
	} else if isConst {
		p.fail("una constante requiere inicializador")
	}

	p.expect(";")

	return d
}

func (p *parser) funcDecl() *ast.FuncDecl {
	b := p.base()
	p.next()

	d := &ast.FuncDecl{
		Base: b,
		Name: p.ident(),
	}

	p.expect("(")

	for !p.is(")") {
		if len(d.Params) != 0 {
			p.expect(",")
		}

		par := ast.Param{Base: p.base(), Name: p.ident()}
		if p.eat(":") {
			par.Type = p.typeRef()
		}

		d.Params = append(d.Params, par)
	}

	p.expect(")")

	if p.eat(":") {
		d.Ret = p.typeRef()
	}

	d.Body = p.block()

	return d
}

func (p *parser) classDecl() ast.Node {
	b := p.base()
	p.next()

	d := &ast.ClassDecl{
		Base: b,
		Name: p.ident(),
	}

	if p.eat(":") {
		d.BaseCls = p.ident()
	}

	p.expect("{")

	for !p.eat("}") {
		switch {
		case p.is("let"), p.is("const"):
			d.Members = append(d.Members, p.varDecl())
		case p.is("function"):
			d.Members = append(d.Members, p.funcDecl())
		default:
			p.fail("se esperaba un miembro de clase, se encontró %q", p.cur().text)
		}
	}

	return d
}

func (p *parser) ifStmt() ast.Node {
	b := p.base()
	p.next()
	p.expect("(")
	cond := p.expr()
	p.expect(")")

	s := &ast.If{Base: b, Cond: cond, Then: p.block()}

	if p.eat("else") {
		if p.is("if") {
			eb := p.base()
			s.Else = &ast.Block{Base: eb, Stmts: []ast.Node{p.ifStmt()}}
		} else {
			s.Else = p.block()
		}
	}

	return s
}

func (p *parser) forStmt() ast.Node {
	b := p.base()
	p.next()
	p.expect("(")

	s := &ast.For{Base: b}

	switch {
	case p.eat(";"):
	case p.is("let"), p.is("const"):
		s.Init = p.varDecl()
	default:
		s.Init = p.simpleStmt(true)
	}

	if !p.is(";") {
		s.Cond = p.expr()
	}

	p.expect(";")

	if !p.is(")") {
		s.Post = p.simpleStmt(false)
	}

	p.expect(")")
	s.Body = p.block()

	return s
}

func (p *parser) switchStmt() ast.Node {
	b := p.base()
	p.next()
	p.expect("(")
	subj := p.expr()
	p.expect(")")
	p.expect("{")

	s := &ast.Switch{Base: b, Subject: subj}

	for !p.eat("}") {
		c := ast.SwitchCase{Base: p.base()}

		switch {
		case p.eat("case"):
			c.Value = p.expr()
		case p.eat("default"):
		default:
			p.fail("se esperaba 'case' o 'default', se encontró %q", p.cur().text)
		}

		p.expect(":")

		for !p.is("case") && !p.is("default") && !p.is("}") {
			if st := p.stmt(); st != nil {
				c.Stmts = append(c.Stmts, st)
			}
		}

		s.Cases = append(s.Cases, c)
	}

	return s
}

func (p *parser) block() *ast.Block {
	b := &ast.Block{Base: p.base()}

	p.expect("{")

	for !p.eat("}") {
		if p.cur().kind == tokEOF {
			p.fail("falta '}'")
		}

		if s := p.stmt(); s != nil {
			b.Stmts = append(b.Stmts, s)
		}
	}

	return b
}

func (p *parser) ident() string {
	t := p.cur()
	if t.kind != tokIdent {
		p.fail("se esperaba un identificador, se encontró %q", t.text)
	}

	p.next()

	return t.text
}

func (p *parser) typeRef() *ast.TypeRef {
	t := &ast.TypeRef{Base: p.base(), Name: p.ident()}

	for p.i+1 < len(p.toks) && p.is("[") && p.toks[p.i+1].text == "]" {
		p.next()
		p.next()

		t = &ast.TypeRef{Base: t.Base, Elem: t}
	}

	return t
}
