package evaluator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/drumondpe/APS-LogComp/pkg/ast"
	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart    TraceEventType = "run_start"
	TraceRunEnd      TraceEventType = "run_end"
	TraceStmtStart   TraceEventType = "stmt_start"
	TraceStmtEnd     TraceEventType = "stmt_end"
	TraceFnCallStart TraceEventType = "fn_call_start"
	TraceFnCallEnd   TraceEventType = "fn_call_end"
	TraceLoopStart   TraceEventType = "loop_start"
	TraceLoopEnd     TraceEventType = "loop_end"
	TraceRead        TraceEventType = "read"
	TracePrint       TraceEventType = "print"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	RunID     string            `json:"runId"`
	Event     TraceEventType    `json:"event"`
	Span      *ast.Span         `json:"span,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// LineReader supplies one line of input per LEIA.
type LineReader interface {
	ReadLine() (string, error)
}

type bufferedLineReader struct {
	r *bufio.Reader
}

// NewLineReader reads lines from r. The line terminator is not included
// in the returned line; a final line without one is still returned.
func NewLineReader(r io.Reader) LineReader {
	return &bufferedLineReader{r: bufio.NewReader(r)}
}

func (b *bufferedLineReader) ReadLine() (string, error) {
	line, err := b.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ExecOptions configures program execution.
type ExecOptions struct {
	Stdin  LineReader
	Stdout io.Writer
	Logger log15.Logger
	Limits Limits
	Trace  func(event TraceEvent)
	RunID  string
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	// Returned is the value of a top-level RETORNA, or nil.
	Returned Value
	Stats    Stats
}

// RuntimeError represents a runtime error during APS execution.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	Hint    string
	// Frames lists the calls the error unwound through, innermost first.
	Frames []string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error into a diagnostic for display.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	d := diagnostics.MakeDiag(e.Code, e.Message, e.Span, e.Hint)
	d.Frames = e.Frames
	return d
}

func rtErr(code string, span ast.Span, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Span: &span}
}

// at attaches span to a runtime error that does not have one yet.
func at(err error, span ast.Span) error {
	var re *RuntimeError
	if errors.As(err, &re) && re.Span == nil {
		re.Span = &span
	}
	return err
}

// outcome is the result of executing a statement: either normal
// completion or a RETORNA carrying its value up to the nearest call.
type outcome struct {
	returning bool
	value     Value
}

var normal = outcome{}

// Session owns a root environment that survives across Execute calls.
type Session struct {
	root *Env
	opts ExecOptions
}

// NewSession creates a session with a fresh root environment.
func NewSession(opts ExecOptions) *Session {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stdin == nil {
		opts.Stdin = NewLineReader(os.Stdin)
	}
	if opts.Logger == nil {
		opts.Logger = log15.New()
		opts.Logger.SetHandler(log15.DiscardHandler())
	}
	return &Session{root: NewEnv(nil), opts: opts}
}

// Root returns the session's global environment.
func (s *Session) Root() *Env {
	return s.root
}

// Execute runs prog against the session's root environment.
func (s *Session) Execute(ctx context.Context, prog *ast.Block) (*ExecResult, error) {
	ev := &evaluator{
		ctx:   ctx,
		opts:  s.opts,
		log:   s.opts.Logger,
		stack: newCallStack(s.opts.Limits.MaxCallDepth),
	}

	span := prog.Span
	ev.emit(TraceRunStart, &span, nil)
	out, err := ev.executeBlock(prog, s.root)
	ev.emit(TraceRunEnd, &span, map[string]string{
		"statements": strconv.FormatInt(ev.stats.Statements, 10),
		"calls":      strconv.FormatInt(ev.stats.Calls, 10),
		"iterations": strconv.FormatInt(ev.stats.Iterations, 10),
	})

	res := &ExecResult{Stats: ev.stats}
	if err != nil {
		return res, err
	}
	if out.returning {
		ev.log.Debug("program returned at top level", "value", out.value)
		res.Returned = out.value
	}
	return res, nil
}

// Execute runs an APS program in a fresh root environment.
func Execute(ctx context.Context, prog *ast.Block, opts ExecOptions) (*ExecResult, error) {
	return NewSession(opts).Execute(ctx, prog)
}

type evaluator struct {
	ctx   context.Context
	opts  ExecOptions
	log   log15.Logger
	stack *callStack
	stats Stats
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span, data map[string]string) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

// --- Statements ---

func (ev *evaluator) executeBlock(b *ast.Block, env *Env) (outcome, error) {
	for _, stmt := range b.Statements {
		span := stmt.NodeSpan()
		ev.stats.Statements++
		ev.emit(TraceStmtStart, &span, map[string]string{"kind": stmt.Kind()})
		out, err := ev.executeStmt(stmt, env)
		if err != nil {
			return normal, err
		}
		ev.emit(TraceStmtEnd, &span, map[string]string{"kind": stmt.Kind()})
		if out.returning {
			return out, nil
		}
	}
	return normal, nil
}

func (ev *evaluator) executeStmt(stmt ast.Stmt, env *Env) (outcome, error) {
	switch s := stmt.(type) {
	case *ast.Block:
		return ev.executeBlock(s, env)

	case *ast.VarDecl:
		val := DefaultValue(s.Type)
		if s.Init != nil {
			v, err := ev.evalOperand(s.Init, env)
			if err != nil {
				return normal, err
			}
			val = v
		}
		env.Declare(s.Name, val, string(s.Type))
		ev.log.Debug("declare", "fn", ev.stack.current(), "name", s.Name, "type", s.Type, "value", val)
		return normal, nil

	case *ast.AssignStmt:
		val, err := ev.evalOperand(s.Value, env)
		if err != nil {
			return normal, err
		}
		if b, err := env.Lookup(s.Name); err == nil && b.Type == TypeFunction {
			return normal, rtErr(diagnostics.EType, s.Span, "cannot assign to function '%s'", s.Name)
		}
		if err := env.Assign(s.Name, val); err != nil {
			return normal, at(err, s.Span)
		}
		ev.log.Debug("assign", "fn", ev.stack.current(), "name", s.Name, "value", val)
		return normal, nil

	case *ast.PrintStmt:
		val, err := ev.evalExpr(s.Value, env)
		if err != nil {
			return normal, err
		}
		text := Display(val)
		if _, err := fmt.Fprintln(ev.opts.Stdout, text); err != nil {
			return normal, rtErr(diagnostics.EIO, s.Span, "writing output: %v", err)
		}
		ev.emit(TracePrint, &s.Span, map[string]string{"value": text})
		return normal, nil

	case *ast.ReadStmt:
		return normal, ev.executeRead(s, env)

	case *ast.IfStmt:
		ok, err := ev.evalCondition(s.Cond, env)
		if err != nil {
			return normal, err
		}
		if ok {
			return ev.executeBlock(s.Then, env)
		}
		if s.Else != nil {
			return ev.executeBlock(s.Else, env)
		}
		return normal, nil

	case *ast.WhileStmt:
		return ev.executeWhile(s, env)

	case *ast.ForStmt:
		return ev.executeFor(s, env)

	case *ast.FuncDecl:
		fn := &Func{Decl: s, Closure: env}
		env.Root().Declare(s.Name, fn, TypeFunction)
		ev.log.Debug("declare function", "name", s.Name, "params", len(s.Params), "returns", s.ReturnType)
		return normal, nil

	case *ast.CallStmt:
		if _, err := ev.callFunc(s.Call, env); err != nil {
			return normal, err
		}
		return normal, nil

	case *ast.ReturnStmt:
		val, err := ev.evalExpr(s.Value, env)
		if err != nil {
			return normal, err
		}
		return outcome{returning: true, value: val}, nil
	}

	return normal, rtErr(diagnostics.EUnknownOp, stmt.NodeSpan(), "unsupported statement %s", stmt.Kind())
}

func (ev *evaluator) executeRead(s *ast.ReadStmt, env *Env) error {
	b, err := env.Lookup(s.Name)
	if err != nil {
		return rtErr(diagnostics.EUndeclared, s.Span, "undeclared variable '%s'", s.Name)
	}
	if b.Type == TypeFunction {
		return rtErr(diagnostics.EType, s.Span, "cannot read into function '%s'", s.Name)
	}

	line, err := ev.opts.Stdin.ReadLine()
	if err != nil {
		if err == io.EOF {
			return rtErr(diagnostics.EInput, s.Span, "end of input while reading '%s'", s.Name)
		}
		return rtErr(diagnostics.EInput, s.Span, "reading '%s': %v", s.Name, err)
	}

	var val Value
	switch ast.VarType(b.Type) {
	case ast.TypeInt, ast.TypeBool:
		n, perr := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if perr != nil {
			e := rtErr(diagnostics.EInput, s.Span, "cannot convert %q to %s for '%s'", line, b.Type, s.Name)
			e.Hint = "enter a whole number"
			return e
		}
		val = NewInt(n)
	default:
		val = NewStr(line)
	}

	if err := env.Assign(s.Name, val); err != nil {
		return at(err, s.Span)
	}
	ev.emit(TraceRead, &s.Span, map[string]string{"name": s.Name, "value": line})
	ev.log.Debug("read", "fn", ev.stack.current(), "name", s.Name, "value", val)
	return nil
}

func (ev *evaluator) executeWhile(s *ast.WhileStmt, env *Env) (outcome, error) {
	ev.emit(TraceLoopStart, &s.Span, map[string]string{"kind": "ENQUANTO"})
	defer ev.emit(TraceLoopEnd, &s.Span, map[string]string{"kind": "ENQUANTO"})

	for {
		ok, err := ev.evalCondition(s.Cond, env)
		if err != nil {
			return normal, err
		}
		if !ok {
			return normal, nil
		}
		if err := ev.countIteration(s.Span); err != nil {
			return normal, err
		}
		if err := ev.ctx.Err(); err != nil {
			return normal, err
		}
		out, err := ev.executeBlock(s.Body, env)
		if err != nil || out.returning {
			return out, err
		}
	}
}

func (ev *evaluator) executeFor(s *ast.ForStmt, env *Env) (outcome, error) {
	start, err := ev.evalInt(s.Start, env, "loop start")
	if err != nil {
		return normal, err
	}
	end, err := ev.evalInt(s.End, env, "loop end")
	if err != nil {
		return normal, err
	}
	step := int64(1)
	if s.Step != nil {
		if step, err = ev.evalInt(s.Step, env, "loop step"); err != nil {
			return normal, err
		}
	}
	ascending := step > 0

	if s.VarType != ast.TypeInt {
		ev.log.Info("PARA variable declared as INT", "var", s.Var, "written", s.VarType)
	}
	env.Declare(s.Var, NewInt(start), string(ast.TypeInt))
	ev.log.Debug("loop start", "fn", ev.stack.current(), "var", s.Var, "from", start, "to", end, "step", step)
	ev.emit(TraceLoopStart, &s.Span, map[string]string{"kind": "PARA", "var": s.Var})
	defer ev.emit(TraceLoopEnd, &s.Span, map[string]string{"kind": "PARA", "var": s.Var})

	for {
		cur, err := ev.loopVar(s, env)
		if err != nil {
			return normal, err
		}
		if (ascending && cur > end) || (!ascending && cur < end) {
			return normal, nil
		}
		if err := ev.countIteration(s.Span); err != nil {
			return normal, err
		}
		if err := ev.ctx.Err(); err != nil {
			return normal, err
		}
		out, err := ev.executeBlock(s.Body, env)
		if err != nil || out.returning {
			return out, err
		}
		if cur, err = ev.loopVar(s, env); err != nil {
			return normal, err
		}
		if err := env.Assign(s.Var, NewInt(cur+step)); err != nil {
			return normal, at(err, s.Span)
		}
	}
}

// loopVar re-reads the loop variable through the environment so that
// assignments made by the body are honoured.
func (ev *evaluator) loopVar(s *ast.ForStmt, env *Env) (int64, error) {
	b, err := env.Lookup(s.Var)
	if err != nil {
		return 0, at(err, s.Span)
	}
	i, ok := b.Value.(Int)
	if !ok {
		return 0, rtErr(diagnostics.EType, s.Span, "loop variable '%s' holds %s, not an integer", s.Var, KindName(b.Value))
	}
	return i.Value, nil
}

// --- Calls ---

func (ev *evaluator) callFunc(call *ast.CallExpr, env *Env) (Value, error) {
	b, err := env.Lookup(call.Name)
	if err != nil {
		e := rtErr(diagnostics.EUndefined, call.Span, "undefined function '%s'", call.Name)
		return nil, e
	}
	fn, ok := b.Value.(*Func)
	if !ok || b.Type != TypeFunction {
		return nil, rtErr(diagnostics.ENotFunction, call.Span, "'%s' is %s, not a function", call.Name, KindName(b.Value))
	}
	decl := fn.Decl
	if len(call.Args) != len(decl.Params) {
		return nil, rtErr(diagnostics.EArity, call.Span, "function '%s' expects %d argument(s), got %d",
			call.Name, len(decl.Params), len(call.Args))
	}

	args := make([]Value, len(call.Args))
	for i, a := range call.Args {
		v, err := ev.evalOperand(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	frame := Frame{Name: decl.Name, Call: call.Span}
	if err := ev.stack.push(frame); err != nil {
		return nil, err
	}
	defer ev.stack.pop()
	ev.stats.Calls++
	if d := ev.stack.depth(); d > ev.stats.MaxDepth {
		ev.stats.MaxDepth = d
	}

	local := fn.Closure.Child()
	for i, p := range decl.Params {
		local.Declare(p.Name, args[i], string(p.Type))
	}

	log := ev.log.New("fn", decl.Name, "depth", ev.stack.depth())
	log.Debug("call", "args", args)
	ev.emit(TraceFnCallStart, &call.Span, map[string]string{"fn": decl.Name})

	out, err := ev.executeBlock(decl.Body, local)
	if err != nil {
		var re *RuntimeError
		if errors.As(err, &re) {
			re.Frames = append(re.Frames, frame.String())
		}
		return nil, err
	}

	var result Value = Void{}
	if out.returning {
		result = out.value
	}
	ev.emit(TraceFnCallEnd, &call.Span, map[string]string{"fn": decl.Name, "result": Display(result)})
	log.Debug("return", "value", result)
	return result, nil
}

// --- Expressions ---

func (ev *evaluator) evalExpr(expr ast.Expr, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return NewInt(e.Value), nil

	case *ast.StrLiteral:
		return NewStr(e.Value), nil

	case *ast.BoolLiteral:
		return NewBool(e.Value), nil

	case *ast.Ident:
		b, err := env.Lookup(e.Name)
		if err != nil {
			return nil, at(err, e.Span)
		}
		return b.Value, nil

	case *ast.CallExpr:
		return ev.callFunc(e, env)

	case *ast.BinaryExpr:
		return ev.evalBinary(e, env)

	case *ast.UnaryExpr:
		return ev.evalUnary(e, env)

	case *ast.RelationalExpr:
		return ev.evalRelational(e, env)
	}

	return nil, rtErr(diagnostics.EUnknownOp, expr.NodeSpan(), "unsupported expression %s", expr.Kind())
}

// evalOperand evaluates an expression whose value is consumed, so it may
// not be void.
func (ev *evaluator) evalOperand(expr ast.Expr, env *Env) (Value, error) {
	v, err := ev.evalExpr(expr, env)
	if err != nil {
		return nil, err
	}
	if _, isVoid := v.(Void); isVoid {
		return nil, rtErr(diagnostics.EType, expr.NodeSpan(), "expression has no value")
	}
	return v, nil
}

func (ev *evaluator) evalInt(expr ast.Expr, env *Env, what string) (int64, error) {
	v, err := ev.evalOperand(expr, env)
	if err != nil {
		return 0, err
	}
	i, ok := v.(Int)
	if !ok {
		return 0, rtErr(diagnostics.EType, expr.NodeSpan(), "%s must be an integer, got %s", what, KindName(v))
	}
	return i.Value, nil
}

func (ev *evaluator) evalCondition(expr ast.Expr, env *Env) (bool, error) {
	v, err := ev.evalOperand(expr, env)
	if err != nil {
		return false, err
	}
	ok, isInt := Truthy(v)
	if !isInt {
		return false, rtErr(diagnostics.EType, expr.NodeSpan(), "condition must be an integer, got %s", KindName(v))
	}
	return ok, nil
}

func (ev *evaluator) evalBinary(e *ast.BinaryExpr, env *Env) (Value, error) {
	left, err := ev.evalOperand(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalOperand(e.Right, env)
	if err != nil {
		return nil, err
	}

	if e.Op == ast.OpAdd {
		_, ls := left.(Str)
		_, rs := right.(Str)
		if ls || rs {
			if err := concatOperand(left, e.Left); err != nil {
				return nil, err
			}
			if err := concatOperand(right, e.Right); err != nil {
				return nil, err
			}
			return NewStr(Display(left) + Display(right)), nil
		}
	}

	l, lok := left.(Int)
	r, rok := right.(Int)
	if !lok || !rok {
		return nil, rtErr(diagnostics.EType, e.Span, "cannot apply '%s' to %s and %s", e.Op, KindName(left), KindName(right))
	}

	switch e.Op {
	case ast.OpAdd:
		return NewInt(l.Value + r.Value), nil
	case ast.OpSub:
		return NewInt(l.Value - r.Value), nil
	case ast.OpMul:
		return NewInt(l.Value * r.Value), nil
	case ast.OpDiv:
		if r.Value == 0 {
			return nil, rtErr(diagnostics.EDivZero, e.Span, "division by zero")
		}
		return NewInt(l.Value / r.Value), nil
	}
	return nil, rtErr(diagnostics.EUnknownOp, e.Span, "unknown operator '%s'", e.Op)
}

func concatOperand(v Value, expr ast.Expr) error {
	switch v.(type) {
	case Int, Str:
		return nil
	}
	return rtErr(diagnostics.EType, expr.NodeSpan(), "cannot concatenate %s", KindName(v))
}

func (ev *evaluator) evalUnary(e *ast.UnaryExpr, env *Env) (Value, error) {
	v, err := ev.evalOperand(e.Operand, env)
	if err != nil {
		return nil, err
	}
	i, ok := v.(Int)
	if !ok {
		return nil, rtErr(diagnostics.EType, e.Span, "cannot apply '%s' to %s", e.Op, KindName(v))
	}
	switch e.Op {
	case ast.OpPlus:
		return i, nil
	case ast.OpNeg:
		return NewInt(-i.Value), nil
	case ast.OpNot:
		return NewBool(i.Value == 0), nil
	}
	return nil, rtErr(diagnostics.EUnknownOp, e.Span, "unknown operator '%s'", e.Op)
}

func (ev *evaluator) evalRelational(e *ast.RelationalExpr, env *Env) (Value, error) {
	left, err := ev.evalOperand(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalOperand(e.Right, env)
	if err != nil {
		return nil, err
	}

	var cmp int
	switch l := left.(type) {
	case Int:
		r, ok := right.(Int)
		if !ok {
			return nil, compareError(e, left, right)
		}
		switch {
		case l.Value < r.Value:
			cmp = -1
		case l.Value > r.Value:
			cmp = 1
		}
	case Str:
		r, ok := right.(Str)
		if !ok {
			return nil, compareError(e, left, right)
		}
		cmp = strings.Compare(l.Value, r.Value)
	default:
		return nil, compareError(e, left, right)
	}

	switch e.Op {
	case ast.OpEq:
		return NewBool(cmp == 0), nil
	case ast.OpNe:
		return NewBool(cmp != 0), nil
	case ast.OpGt:
		return NewBool(cmp > 0), nil
	case ast.OpLt:
		return NewBool(cmp < 0), nil
	case ast.OpGe:
		return NewBool(cmp >= 0), nil
	case ast.OpLe:
		return NewBool(cmp <= 0), nil
	}
	return nil, rtErr(diagnostics.EUnknownOp, e.Span, "unknown relational operator '%s'", e.Op)
}

func compareError(e *ast.RelationalExpr, left, right Value) error {
	err := rtErr(diagnostics.EType, e.Span, "cannot compare %s with %s using %s", KindName(left), KindName(right), e.Op)
	err.Hint = "only integer/integer and text/text comparisons are allowed"
	return err
}
