package compiler

import (
	"context"
	"os"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/compiscript/cps/compiler/back"
	"github.com/compiscript/cps/compiler/check"
	"github.com/compiscript/cps/compiler/frame"
	"github.com/compiscript/cps/compiler/gen"
	"github.com/compiscript/cps/compiler/ir"
	"github.com/compiscript/cps/compiler/parse"
)

type (
	// Diagnostics is the list of syntax and semantic errors found in a
	// source file, one line each, in source order.
	Diagnostics []string
)

func (d Diagnostics) Error() string {
	return strings.Join(d, "\n")
}

func CompileFile(ctx context.Context, name string, t *back.Target) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, t)
}

// Compile runs the full pipeline: parse, check, lower to TAC, emit
// assembly. Diagnostics abort before lowering.
func Compile(ctx context.Context, name string, text []byte, t *back.Target) (obj []byte, err error) {
	prog, frames, err := Lower(ctx, name, text)
	if err != nil {
		return nil, err
	}

	obj, err = back.New(t).Compile(ctx, nil, prog, frames)
	if err != nil {
		return nil, errors.Wrap(err, "emit")
	}

	return obj, nil
}

// Lower parses and checks the source and produces the TAC program
// with the frame layouts the generator collected.
func Lower(ctx context.Context, name string, text []byte) (prog *ir.Prog, frames *frame.Registry, err error) {
	tree, diags := parse.Parse(ctx, text)
	if len(diags) != 0 {
		return nil, nil, errors.Wrap(Diagnostics(diags), "parse %v", name)
	}

	c := check.New()

	diags = c.Check(ctx, tree)
	if len(diags) != 0 {
		return nil, nil, errors.Wrap(Diagnostics(diags), "check %v", name)
	}

	g := gen.New(c.Classes)
	prog = g.Generate(ctx, tree)

	return prog, g.Frames, nil
}

// Check parses and checks the source, returning the diagnostics
// without aborting on the first batch.
func Check(ctx context.Context, name string, text []byte) (Diagnostics, error) {
	tree, diags := parse.Parse(ctx, text)
	if len(diags) != 0 {
		return Diagnostics(diags), nil
	}

	c := check.New()

	return Diagnostics(c.Check(ctx, tree)), nil
}
