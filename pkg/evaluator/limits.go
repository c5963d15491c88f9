package evaluator

import (
	"fmt"

	"github.com/drumondpe/APS-LogComp/pkg/ast"
	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
)

// DefaultMaxCallDepth bounds recursion when no limit is configured.
const DefaultMaxCallDepth = 1000

// Limits holds the resource limits for a program execution.
// Zero means unlimited.
type Limits struct {
	MaxCallDepth  int
	MaxIterations int64
}

// Stats tracks resource consumption during execution.
type Stats struct {
	Statements int64 `json:"statements"`
	Calls      int64 `json:"calls"`
	Iterations int64 `json:"iterations"`
	MaxDepth   int   `json:"maxDepth"`
}

func (ev *evaluator) countIteration(span ast.Span) error {
	ev.stats.Iterations++
	if max := ev.opts.Limits.MaxIterations; max > 0 && ev.stats.Iterations > max {
		return &RuntimeError{
			Code:    diagnostics.EIterations,
			Message: fmt.Sprintf("iteration limit exceeded (max %d)", max),
			Span:    &span,
			Hint:    "raise Interpreter.MaxIterations or check the loop condition",
		}
	}
	return nil
}
