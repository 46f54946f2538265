package parse

import (
	"github.com/compiscript/cps/compiler/ast"
)

func (p *parser) expr() ast.Node {
	return p.ternary()
}

func (p *parser) ternary() ast.Node {
	b := p.base()
	cond := p.binary(0)

	if !p.eat("?") {
		return cond
	}

	then := p.expr()
	p.expect(":")
	els := p.expr()

	return &ast.Ternary{Base: b, Cond: cond, Then: then, Else: els}
}

// binary levels, loosest first.
var binLevels = [][]string{
	{"||"},
	{"&&"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) binary(level int) ast.Node {
	if level == len(binLevels) {
		return p.unary()
	}

	b := p.base()
	x := p.binary(level + 1)

	for {
		op := ""

		for _, cand := range binLevels[level] {
			if p.cur().kind == tokPunct && p.cur().text == cand {
				op = cand
				break
			}
		}

		if op == "" {
			return x
		}

		p.next()

		x = &ast.Binary{Base: b, Op: op, L: x, R: p.binary(level + 1)}
	}
}

func (p *parser) unary() ast.Node {
	b := p.base()

	if p.cur().kind == tokPunct {
		switch op := p.cur().text; op {
		case "!", "-", "+":
			p.next()

			return &ast.Unary{Base: b, Op: op, X: p.unary()}
		}
	}

	return p.postfix()
}

func (p *parser) postfix() ast.Node {
	x := p.primary()

	for {
		b := p.base()

		switch {
		case p.eat("("):
			c := &ast.Call{Base: b, Fun: x}

			for !p.is(")") {
				if len(c.Args) != 0 {
					p.expect(",")
				}

				c.Args = append(c.Args, p.expr())
			}

			p.expect(")")
			x = c
		case p.eat("["):
			idx := p.expr()
			p.expect("]")

			x = &ast.Index{Base: b, X: x, Idx: idx}
		case p.eat("."):
			x = &ast.Property{Base: b, X: x, Name: p.ident()}
		default:
			return x
		}
	}
}

func (p *parser) primary() ast.Node {
	b := p.base()
	t := p.cur()

	switch t.kind {
	case tokInt:
		p.next()
		return &ast.IntLit{Base: b, Text: t.text}
	case tokFloat:
		p.next()
		return &ast.FloatLit{Base: b, Text: t.text}
	case tokStr:
		p.next()
		return &ast.StrLit{Base: b, Value: t.text}
	case tokIdent:
		switch t.text {
		case "true", "false":
			p.next()
			return &ast.BoolLit{Base: b, Value: t.text == "true"}
		case "null":
			p.next()
			return &ast.NullLit{Base: b}
		case "this":
			p.next()
			return &ast.This{Base: b}
		case "new":
			p.next()

			n := &ast.New{Base: b, Class: p.ident()}
			p.expect("(")

			for !p.is(")") {
				if len(n.Args) != 0 {
					p.expect(",")
				}

				n.Args = append(n.Args, p.expr())
			}

			p.expect(")")

			return n
		}

		p.next()

		return &ast.Ident{Base: b, Name: t.text}
	case tokPunct:
		switch t.text {
		case "(":
			p.next()
			x := p.expr()
			p.expect(")")

			return x
		case "[":
			p.next()

			a := &ast.ArrayLit{Base: b}

			for !p.is("]") {
				if len(a.Elems) != 0 {
					p.expect(",")
				}

				a.Elems = append(a.Elems, p.expr())
			}

			p.expect("]")

			return a
		}
	}

	p.fail("expresión inválida: %q", t.text)

	return nil
}
