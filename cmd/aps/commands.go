package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/drumondpe/APS-LogComp/pkg/config"
	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
	"github.com/drumondpe/APS-LogComp/pkg/formatter"
	"github.com/drumondpe/APS-LogComp/pkg/help"
	"github.com/drumondpe/APS-LogComp/pkg/parser"
	"github.com/drumondpe/APS-LogComp/pkg/runtime"
)

func runAction(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		if ctx.Command.Name == "" {
			return cli.ShowAppHelp(ctx)
		}
		return usageError("run <file|->")
	}
	if err := setup(ctx); err != nil {
		return err
	}
	source, filename, err := readSource(ctx.Args().First())
	if err != nil {
		return report(err)
	}

	opts := []runtime.Option{
		runtime.WithStdin(os.Stdin),
		runtime.WithStdout(stdout),
		runtime.WithLogger(logger.New("file", filename)),
		runtime.WithLimits(cfg.Limits()),
	}
	if path := stringFlag(ctx, traceFlag.Name); path != "" {
		tw, err := createTraceWriter(path)
		if err != nil {
			return report(ioError(fmt.Sprintf("cannot create trace file: %s", path), err))
		}
		defer func() {
			if err := tw.Close(); err != nil {
				logger.Error("Failed to write trace", "file", path, "err", err)
			}
		}()
		opts = append(opts, runtime.WithTrace(tw.Write), runtime.WithRunID(newRunID()))
	}

	c, cancel := interruptible()
	defer cancel()
	res, err := runtime.New(opts...).Run(c, source, filename)
	if err != nil {
		return report(err)
	}
	logger.Debug("Program finished", "file", filename,
		"statements", res.Stats.Statements, "calls", res.Stats.Calls, "iterations", res.Stats.Iterations)
	return nil
}

func checkAction(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return usageError("check <file|->")
	}
	if err := setup(ctx); err != nil {
		return err
	}
	source, filename, err := readSource(ctx.Args().First())
	if err != nil {
		return report(err)
	}

	if diags := runtime.New().Check(source, filename); len(diags) > 0 {
		return report(&runtime.DiagnosticError{Diagnostics: diags})
	}
	if cfg.Output.Pretty {
		fmt.Fprintln(stdout, "No errors found.")
	} else {
		fmt.Fprintln(stdout, "[]")
	}
	return nil
}

func fmtAction(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return usageError("fmt <file> [--write]")
	}
	if err := setup(ctx); err != nil {
		return err
	}
	file := ctx.Args().First()
	source, filename, err := readSource(file)
	if err != nil {
		return report(err)
	}

	formatted, err := runtime.New().Format(source, filename)
	if err != nil {
		return report(err)
	}
	if formatter.HasComments(source) {
		logger.Warn("Comments are not preserved by the formatter", "file", filename)
	}

	if ctx.Bool("write") && file != "-" {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			return report(ioError(fmt.Sprintf("cannot write file: %s", file), err))
		}
		return nil
	}
	fmt.Fprint(stdout, formatted)
	return nil
}

func tokensAction(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return usageError("tokens <file|->")
	}
	if err := setup(ctx); err != nil {
		return err
	}
	source, filename, err := readSource(ctx.Args().First())
	if err != nil {
		return report(err)
	}

	toks, err := runtime.New().Tokens(source, filename)
	if err != nil {
		return report(err)
	}
	table := tablewriter.NewWriter(stdout)
	table.SetHeader([]string{"Line", "Col", "Kind", "Value"})
	table.SetAutoWrapText(false)
	for _, tok := range toks {
		table.Append([]string{
			strconv.Itoa(tok.Span.StartLine),
			strconv.Itoa(tok.Span.StartCol),
			tok.Kind.String(),
			tok.Value,
		})
	}
	table.Render()
	return nil
}

func astAction(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return usageError("ast <file|->")
	}
	if err := setup(ctx); err != nil {
		return err
	}
	source, filename, err := readSource(ctx.Args().First())
	if err != nil {
		return report(err)
	}

	prog, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return report(&runtime.DiagnosticError{Diagnostics: diags})
	}
	dumper := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	dumper.Fdump(stdout, prog)
	return nil
}

func dumpConfigAction(ctx *cli.Context) error {
	if err := setup(ctx); err != nil {
		return err
	}
	if err := config.Dump(stdout, cfg); err != nil {
		return configError(err)
	}
	return nil
}

func helpAction(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		fmt.Fprint(stdout, help.QUICKREF)
		return nil
	}
	_, content, err := help.MatchTopic(ctx.Args().First())
	if err != nil {
		return cli.NewExitError(err.Error(), diagnostics.ExitUsage)
	}
	fmt.Fprint(stdout, content)
	return nil
}

func usageError(usage string) error {
	return cli.NewExitError("usage: aps "+usage, diagnostics.ExitUsage)
}

// readSource loads the program named by path; "-" reads standard input.
func readSource(path string) (source, filename string, err error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", ioError("cannot read program from stdin", err)
		}
		return string(data), "<stdin>", nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", "", ioError(fmt.Sprintf("source file not found: %s", path), err)
	}
	if err != nil {
		return "", "", ioError(fmt.Sprintf("cannot read file: %s", path), err)
	}
	return string(data), path, nil
}

func ioError(msg string, cause error) error {
	var hint string
	if cause != nil {
		hint = cause.Error()
	}
	return &runtime.DiagnosticError{Diagnostics: []diagnostics.Diagnostic{
		diagnostics.MakeDiag(diagnostics.EIO, msg, nil, hint),
	}}
}

func newRunID() string {
	return "run-" + strconv.FormatInt(time.Now().UnixNano(), 36)
}
