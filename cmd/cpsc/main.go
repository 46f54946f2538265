package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/compiscript/cps/compiler"
	"github.com/compiscript/cps/compiler/back"
)

func main() {
	checkCmd := &cli.Command{
		Name:   "check",
		Action: checkAct,
		Args:   cli.Args{},
	}

	tacCmd := &cli.Command{
		Name:   "tac",
		Action: tacAct,
		Args:   cli.Args{},
	}

	buildCmd := &cli.Command{
		Name:   "build",
		Action: buildAct,
		Args:   cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("target", "", "target description file (yaml)"),
			cli.NewFlag("o", "", "output file"),
		},
	}

	app := &cli.Command{
		Name:        "cpsc",
		Description: "cpsc is the Compiscript compiler",
		Commands: []*cli.Command{
			checkCmd,
			tacCmd,
			buildCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func checkAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	bad := false

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		diags, err := compiler.Check(ctx, a, text)
		if err != nil {
			return errors.Wrap(err, "check %v", a)
		}

		for _, d := range diags {
			fmt.Printf("%s: %s\n", a, d)
		}

		if len(diags) == 0 {
			fmt.Printf("%s: ok\n", a)
		}

		bad = bad || len(diags) != 0
	}

	if bad {
		return errors.New("errors found")
	}

	return nil
}

func tacAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		prog, _, err := compiler.Lower(ctx, a, text)
		if err != nil {
			return errors.Wrap(err, "lower %v", a)
		}

		fmt.Printf("%s", prog)
	}

	return nil
}

func buildAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	t := back.MIPS32()

	if name := c.String("target"); name != "" {
		t, err = back.LoadTarget(name)
		if err != nil {
			return errors.Wrap(err, "target")
		}
	}

	out := c.String("o")

	for _, a := range c.Args {
		obj, err := compiler.CompileFile(ctx, a, t)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		if out == "" {
			fmt.Printf("%s", obj)
			continue
		}

		err = os.WriteFile(out, obj, 0o644)
		if err != nil {
			return errors.Wrap(err, "write %v", out)
		}
	}

	return nil
}
