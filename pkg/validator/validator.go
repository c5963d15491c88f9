// Package validator implements structural checks of APS programs that run
// after parsing and before execution. It does no type checking.
package validator

import (
	"fmt"

	"github.com/drumondpe/APS-LogComp/pkg/ast"
	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
)

type validator struct {
	diags []diagnostics.Diagnostic
}

// Validate checks program and returns every diagnostic found, in source order.
// PARA loops accept any declared type; the loop variable is always INT.
func Validate(program *ast.Block) []diagnostics.Diagnostic {
	v := &validator{}
	ast.Walk(program, func(n ast.Node) bool {
		if fn, ok := n.(*ast.FuncDecl); ok {
			v.validateParams(fn)
		}
		return true
	})
	return v.diags
}

func (v *validator) addDiag(code, msg string, span *ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, span, hint))
}

func (v *validator) validateParams(fn *ast.FuncDecl) {
	seen := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		if seen[p.Name] {
			span := p.Span
			v.addDiag(diagnostics.EDupParam,
				fmt.Sprintf("duplicate parameter '%s' in function '%s'", p.Name, fn.Name), &span, "")
			continue
		}
		seen[p.Name] = true
	}
}
