package parse

import (
	"fmt"
)

type (
	tokKind int

	token struct {
		kind tokKind
		text string

		pos  int
		line int
		col  int
	}

	lexer struct {
		b []byte

		i    int
		line int
		col  int

		errs []string
	}
)

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokFloat
	tokStr
	tokPunct
)

func newLexer(text []byte) *lexer {
	return &lexer{
		b:    text,
		line: 1,
		col:  0,
	}
}

func (l *lexer) errorf(line, col int, f string, args ...any) {
	l.errs = append(l.errs, fmt.Sprintf("[SyntaxError] L%d:C%d %s", line, col, fmt.Sprintf(f, args...)))
}

func (l *lexer) adv() byte {
	c := l.b[l.i]
	l.i++

	if c == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}

	return c
}

func (l *lexer) skipSpaces() {
	for l.i < len(l.b) {
		switch l.b[l.i] {
		case ' ', '\t', '\r', '\n':
			l.adv()
		case '/':
			if l.i+1 < len(l.b) && l.b[l.i+1] == '/' {
				for l.i < len(l.b) && l.b[l.i] != '\n' {
					l.adv()
				}

				continue
			}

			return
		default:
			return
		}
	}
}

func (l *lexer) tokens() []token {
	var toks []token

	for {
		t := l.next()
		toks = append(toks, t)

		if t.kind == tokEOF {
			return toks
		}
	}
}

func (l *lexer) next() (t token) {
	l.skipSpaces()

	t.pos, t.line, t.col = l.i, l.line, l.col+1

	if l.i == len(l.b) {
		t.kind = tokEOF
		return t
	}

	c := l.b[l.i]

	switch {
	case isIdentStart(c):
		st := l.i
		for l.i < len(l.b) && isIdentPart(l.b[l.i]) {
			l.adv()
		}

		t.kind = tokIdent
		t.text = string(l.b[st:l.i])
	case c >= '0' && c <= '9':
		st := l.i
		t.kind = tokInt

		for l.i < len(l.b) && l.b[l.i] >= '0' && l.b[l.i] <= '9' {
			l.adv()
		}

		if l.i+1 < len(l.b) && l.b[l.i] == '.' && l.b[l.i+1] >= '0' && l.b[l.i+1] <= '9' {
			t.kind = tokFloat
			l.adv()

			for l.i < len(l.b) && l.b[l.i] >= '0' && l.b[l.i] <= '9' {
				l.adv()
			}
		}

		t.text = string(l.b[st:l.i])
	case c == '"':
		l.adv()
		var v []byte

		for {
			if l.i == len(l.b) || l.b[l.i] == '\n' {
				l.errorf(t.line, t.col, "cadena sin cerrar")
				break
			}

			c := l.adv()
			if c == '"' {
				break
			}

			if c == '\\' && l.i < len(l.b) {
				switch e := l.adv(); e {
				case 'n':
					v = append(v, '\n')
				case 't':
					v = append(v, '\t')
				case '"', '\\':
					v = append(v, e)
				default:
					v = append(v, '\\', e)
				}

				continue
			}

			v = append(v, c)
		}

		t.kind = tokStr
		t.text = string(v)
	default:
		t.kind = tokPunct
		t.text = l.punct()

		if t.text == "" {
			l.errorf(t.line, t.col, "carácter inesperado: %q", c)
			l.adv()

			return l.next()
		}
	}

	return t
}

func (l *lexer) punct() string {
	two := ""
	if l.i+1 < len(l.b) {
		two = string(l.b[l.i : l.i+2])
	}

	switch two {
	case "==", "!=", "<=", ">=", "&&", "||":
		l.adv()
		l.adv()

		return two
	}

	switch c := l.b[l.i]; c {
	case '(', ')', '{', '}', '[', ']', ';', ',', ':', '.', '?',
		'+', '-', '*', '/', '%', '<', '>', '=', '!':
		l.adv()

		return string(c)
	}

	return ""
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
