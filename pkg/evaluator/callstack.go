package evaluator

import (
	"fmt"

	"github.com/edwingeng/deque"

	"github.com/drumondpe/APS-LogComp/pkg/ast"
	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
)

// Frame is one active function call.
type Frame struct {
	Name string
	Call ast.Span
}

func (f Frame) String() string {
	return fmt.Sprintf("at %s (%s:%d:%d)", f.Name, f.Call.File, f.Call.StartLine, f.Call.StartCol)
}

type callStack struct {
	frames deque.Deque // <Frame>
	max    int
}

func newCallStack(max int) *callStack {
	return &callStack{frames: deque.NewDeque(), max: max}
}

func (cs *callStack) push(f Frame) error {
	if cs.max > 0 && cs.frames.Len() >= cs.max {
		span := f.Call
		return &RuntimeError{
			Code:    diagnostics.ECallDepth,
			Message: fmt.Sprintf("call depth limit exceeded (max %d) calling '%s'", cs.max, f.Name),
			Span:    &span,
			Hint:    "check for unbounded recursion",
		}
	}
	cs.frames.PushBack(f)
	return nil
}

func (cs *callStack) pop() {
	cs.frames.PopBack()
}

func (cs *callStack) depth() int {
	return cs.frames.Len()
}

// current returns the innermost frame's function name, or "main".
func (cs *callStack) current() string {
	if cs.frames.Empty() {
		return "main"
	}
	return cs.frames.Back().(Frame).Name
}
