// Package runtime provides the top-level APS runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/inconshreveable/log15"

	"github.com/drumondpe/APS-LogComp/pkg/ast"
	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
	"github.com/drumondpe/APS-LogComp/pkg/evaluator"
	"github.com/drumondpe/APS-LogComp/pkg/formatter"
	"github.com/drumondpe/APS-LogComp/pkg/lexer"
	"github.com/drumondpe/APS-LogComp/pkg/parser"
	"github.com/drumondpe/APS-LogComp/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	// Returned is the value of a top-level RETORNA, or nil.
	Returned evaluator.Value
	Stats    evaluator.Stats
}

// Runtime wires together all APS components for program execution.
type Runtime struct {
	stdin  evaluator.LineReader
	stdout io.Writer
	logger log15.Logger
	limits evaluator.Limits
	runID  string
	trace  func(event evaluator.TraceEvent)
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdin sets the reader LEIA consumes lines from.
func WithStdin(r io.Reader) Option {
	return func(rt *Runtime) {
		rt.stdin = evaluator.NewLineReader(r)
	}
}

// WithLineReader sets a custom line source for LEIA.
func WithLineReader(lr evaluator.LineReader) Option {
	return func(rt *Runtime) {
		rt.stdin = lr
	}
}

// WithStdout sets the writer IMPRIME writes to.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithLogger sets the logger for the interpreter debug trail.
func WithLogger(l log15.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithLimits sets the execution limits.
func WithLimits(l evaluator.Limits) Option {
	return func(rt *Runtime) {
		rt.limits = l
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// New creates a new Runtime with the given options.
// By default the process stdio is used and recursion is capped at
// evaluator.DefaultMaxCallDepth.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		limits: evaluator.Limits{MaxCallDepth: evaluator.DefaultMaxCallDepth},
		runID:  "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Compile parses and validates an APS program.
func (rt *Runtime) Compile(source, filename string) (*ast.Block, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	if vDiags := validator.Validate(program); len(vDiags) > 0 {
		return nil, &DiagnosticError{Diagnostics: vDiags}
	}
	return program, nil
}

// Run parses, validates, and executes an APS program.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, err := rt.Compile(source, filename)
	if err != nil {
		return nil, err
	}
	return toResult(evaluator.Execute(ctx, program, rt.buildExecOptions()))
}

// Check parses and validates an APS program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	return validator.Validate(program)
}

// Format parses and formats an APS program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// Tokens returns the token stream of source, ending with the EOF token.
func (rt *Runtime) Tokens(source, filename string) ([]lexer.Token, error) {
	toks, err := lexer.Tokenize(source, filename)
	if err != nil {
		var lerr *lexer.LexError
		if errors.As(err, &lerr) {
			return toks, &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{lerr.Diag}}
		}
		return toks, err
	}
	return toks, nil
}

// Session executes successive program fragments against one global
// environment, as the REPL does.
type Session struct {
	rt   *Runtime
	sess *evaluator.Session
}

// NewSession starts a session sharing this runtime's configuration.
func (rt *Runtime) NewSession() *Session {
	return &Session{rt: rt, sess: evaluator.NewSession(rt.buildExecOptions())}
}

// Eval compiles and executes source in the session's environment.
// Declarations made by earlier fragments stay visible.
func (s *Session) Eval(ctx context.Context, source, filename string) (*Result, error) {
	program, err := s.rt.Compile(source, filename)
	if err != nil {
		return nil, err
	}
	return toResult(s.sess.Execute(ctx, program))
}

// Names lists the global bindings of the session.
func (s *Session) Names() []string {
	return s.sess.Root().Names()
}

func toResult(res *evaluator.ExecResult, err error) (*Result, error) {
	if res == nil {
		return nil, err
	}
	return &Result{Returned: res.Returned, Stats: res.Stats}, err
}

// buildExecOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) buildExecOptions() evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Stdin:  rt.stdin,
		Stdout: rt.stdout,
		Logger: rt.logger,
		Limits: rt.limits,
		Trace:  rt.trace,
		RunID:  rt.runID,
	}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Diagnostics extracts the diagnostics carried by err. Errors that are
// neither diagnostics nor runtime errors yield nil.
func Diagnostics(err error) []diagnostics.Diagnostic {
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Diagnostics
	}
	var re *evaluator.RuntimeError
	if errors.As(err, &re) {
		return []diagnostics.Diagnostic{re.Diagnostic()}
	}
	return nil
}
