// Command aps is the APS interpreter CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/inconshreveable/log15"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/urfave/cli.v1"

	"github.com/drumondpe/APS-LogComp/pkg/config"
	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
	"github.com/drumondpe/APS-LogComp/pkg/runtime"
)

const version = "1.0.0"

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level (crit, error, warn, info, debug)",
	}
	logFormatFlag = cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format (terminal, logfmt, json)",
	}
	colorFlag = cli.StringFlag{
		Name:  "color",
		Usage: "Colour diagnostics (auto, always, never)",
	}

	prettyFlag = cli.BoolFlag{
		Name:  "pretty",
		Usage: "Human-readable diagnostics; --pretty=false prints JSON",
	}
	traceFlag = cli.StringFlag{
		Name:  "trace",
		Usage: "Write execution trace events to `FILE` as NDJSON",
	}
	maxDepthFlag = cli.IntFlag{
		Name:  "max-depth",
		Usage: "Maximum function call depth",
	}
	maxIterationsFlag = cli.Int64Flag{
		Name:  "max-iterations",
		Usage: "Maximum loop iterations (0 = unlimited)",
	}

	runFlags = []cli.Flag{prettyFlag, traceFlag, maxDepthFlag, maxIterationsFlag}
)

// Process-wide state prepared by setup.
var (
	cfg    = config.Defaults
	logger log15.Logger
	stderr io.Writer = colorable.NewColorableStderr()
	stdout io.Writer = os.Stdout
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "aps"
	app.Usage = "interpreter for the APS language"
	app.Version = version
	app.ArgsUsage = "<file>"
	app.Flags = append([]cli.Flag{configFileFlag, logLevelFlag, logFormatFlag, colorFlag}, runFlags...)
	app.Action = runAction
	app.Commands = []cli.Command{
		{
			Action:    runAction,
			Name:      "run",
			Usage:     "Run an APS program",
			ArgsUsage: "<file|->",
			Flags:     runFlags,
			Description: `Parses, validates and executes the program. IMPRIME writes to stdout,
LEIA reads lines from stdin. Use - to read the program itself from stdin.`,
		},
		{
			Action:    checkAction,
			Name:      "check",
			Usage:     "Parse and validate a program without running it",
			ArgsUsage: "<file|->",
			Flags:     []cli.Flag{prettyFlag},
		},
		{
			Action:    fmtAction,
			Name:      "fmt",
			Usage:     "Print a program in canonical form",
			ArgsUsage: "<file>",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "write, w", Usage: "Rewrite the file in place"},
			},
		},
		{
			Action:    tokensAction,
			Name:      "tokens",
			Usage:     "Show the token stream of a program",
			ArgsUsage: "<file|->",
		},
		{
			Action:    astAction,
			Name:      "ast",
			Usage:     "Dump the syntax tree of a program",
			ArgsUsage: "<file|->",
		},
		{
			Action: replAction,
			Name:   "repl",
			Usage:  "Start an interactive session",
			Flags:  []cli.Flag{maxDepthFlag, maxIterationsFlag},
		},
		{
			Action:      dumpConfigAction,
			Name:        "dumpconfig",
			Usage:       "Show configuration values",
			Description: `The dumpconfig command shows the effective configuration as TOML.`,
		},
		{
			Action:    traceAction,
			Name:      "trace",
			Usage:     "Summarise an NDJSON trace file",
			ArgsUsage: "<file>",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "json", Usage: "Print the summary as JSON"},
			},
		},
		{
			Action:    helpAction,
			Name:      "help",
			Usage:     "Show the language reference",
			ArgsUsage: "[topic]",
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(diagnostics.ExitUsage)
	}
}

// setup loads the configuration, applies global flags and installs the
// log handler. Every command calls it first.
func setup(ctx *cli.Context) error {
	wd, err := os.Getwd()
	if err != nil {
		return cli.NewExitError(err.Error(), diagnostics.ExitUsage)
	}
	loaded, src, err := config.Load(ctx.GlobalString(configFileFlag.Name), wd)
	if err != nil {
		return configError(err)
	}
	cfg = loaded

	if s := ctx.GlobalString(logLevelFlag.Name); s != "" {
		cfg.Log.Level = s
	}
	if s := ctx.GlobalString(logFormatFlag.Name); s != "" {
		cfg.Log.Format = s
	}
	if s := ctx.GlobalString(colorFlag.Name); s != "" {
		cfg.Output.Color = s
	}
	if isSet(ctx, prettyFlag.Name) {
		cfg.Output.Pretty = boolFlag(ctx, prettyFlag.Name)
	}
	if isSet(ctx, maxDepthFlag.Name) {
		cfg.Interpreter.MaxCallDepth = intFlag(ctx, maxDepthFlag.Name)
	}
	if isSet(ctx, maxIterationsFlag.Name) {
		cfg.Interpreter.MaxIterations = int64Flag(ctx, maxIterationsFlag.Name)
	}
	if err := cfg.Validate(); err != nil {
		return configError(err)
	}

	if err := diagnostics.ConfigureColor(cfg.Output.Color, os.Stderr); err != nil {
		return configError(err)
	}
	logger, err = newLogger(cfg.Log)
	if err != nil {
		return configError(err)
	}
	if src != "" {
		logger.Debug("Loaded configuration", "file", src)
	}
	return nil
}

func newLogger(c config.Log) (log15.Logger, error) {
	lvl, err := log15.LvlFromString(c.Level)
	if err != nil {
		return nil, err
	}
	var format log15.Format
	switch c.Format {
	case "terminal":
		if fd := os.Stderr.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			format = log15.TerminalFormat()
		} else {
			format = log15.LogfmtFormat()
		}
	case "logfmt":
		format = log15.LogfmtFormat()
	case "json":
		format = log15.JsonFormat()
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Format)
	}
	l := log15.New()
	l.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(stderr, format)))
	return l, nil
}

func configError(err error) error {
	var cerr *config.Error
	if !errors.As(err, &cerr) {
		cerr = &config.Error{Err: err}
	}
	fmt.Fprintln(stderr, diagnostics.FormatDiagnostic(cerr.Diagnostic(), cfg.Output.Pretty))
	return cli.NewExitError("", diagnostics.ExitConfig)
}

// Flags are declared both on the app and on commands; a value given at
// either level counts.
func isSet(ctx *cli.Context, name string) bool {
	return ctx.IsSet(name) || ctx.GlobalIsSet(name)
}

func boolFlag(ctx *cli.Context, name string) bool {
	if ctx.IsSet(name) {
		return ctx.Bool(name)
	}
	return ctx.GlobalBool(name)
}

func intFlag(ctx *cli.Context, name string) int {
	if ctx.IsSet(name) {
		return ctx.Int(name)
	}
	return ctx.GlobalInt(name)
}

func int64Flag(ctx *cli.Context, name string) int64 {
	if ctx.IsSet(name) {
		return ctx.Int64(name)
	}
	return ctx.GlobalInt64(name)
}

func stringFlag(ctx *cli.Context, name string) string {
	if ctx.IsSet(name) {
		return ctx.String(name)
	}
	return ctx.GlobalString(name)
}

// report prints err and converts it to the matching exit status.
func report(err error) error {
	if err == nil {
		return nil
	}
	if diags := runtime.Diagnostics(err); len(diags) > 0 {
		fmt.Fprintln(stderr, diagnostics.FormatDiagnostics(diags, cfg.Output.Pretty))
		return cli.NewExitError("", diagnostics.ExitCode(diags[0].Code))
	}
	if errors.Is(err, context.Canceled) {
		return cli.NewExitError("execution interrupted", diagnostics.ExitRuntime)
	}
	return cli.NewExitError(err.Error(), diagnostics.ExitUsage)
}

// interruptible returns a context cancelled by Ctrl-C.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
