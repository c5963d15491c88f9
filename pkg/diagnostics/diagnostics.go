// Package diagnostics defines APS diagnostic types for lex/parse/validation/runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/drumondpe/APS-LogComp/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex         = "E_LEX"
	EParse       = "E_PARSE"
	EEOF         = "E_EOF"
	ETrailing    = "E_TRAILING"
	EUndeclared  = "E_UNDECLARED"
	EUndefined   = "E_UNDEFINED"
	ENotFunction = "E_NOT_FUNCTION"
	EArity       = "E_ARITY"
	EUnknownOp   = "E_UNKNOWN_OP"
	EType        = "E_TYPE"
	EDivZero     = "E_DIV_ZERO"
	EInput       = "E_INPUT"
	ECallDepth   = "E_CALL_DEPTH"
	EIterations  = "E_ITERATIONS"
	EDupParam    = "E_DUP_PARAM"
	EIO          = "E_IO"
	EConfig      = "E_CONFIG"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitSyntax  = 2
	ExitConfig  = 3
	ExitRuntime = 4
)

// ExitCode maps a diagnostic code to the exit status of the CLI.
func ExitCode(code string) int {
	switch code {
	case ELex, EParse, EEOF, ETrailing, EDupParam:
		return ExitSyntax
	case EConfig:
		return ExitConfig
	case EIO:
		return ExitUsage
	default:
		return ExitRuntime
	}
}

// Diagnostic represents a lex, parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
	Frames  []string  `json:"frames,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

var (
	errorLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	arrowLabel = color.New(color.FgBlue, color.Bold).SprintFunc()
	hintLabel  = color.New(color.FgCyan).SprintFunc()
)

// ConfigureColor sets colour output for pretty diagnostics. mode is one of
// "auto", "always" or "never"; "auto" colours only when f is a terminal.
func ConfigureColor(mode string, f *os.File) error {
	switch strings.ToLower(mode) {
	case "", "auto":
		fd := f.Fd()
		color.NoColor = os.Getenv("NO_COLOR") != "" ||
			!(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		return fmt.Errorf("unknown color mode %q (want auto, always or never)", mode)
	}
	return nil
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("%s: %s\n  %s %s", errorLabel("error["+d.Code+"]"), d.Message, arrowLabel("-->"), loc)
	for _, f := range d.Frames {
		out += "\n  " + f
	}
	if d.Hint != "" {
		out += fmt.Sprintf("\n  %s %s", hintLabel("hint:"), d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
