package evaluator

import (
	"fmt"

	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
)

// TypeFunction is the declared type recorded for function bindings.
const TypeFunction = "FUNCTION"

// Binding is a value together with the type it was declared with.
type Binding struct {
	Value Value
	Type  string
}

// Env is a scoped environment for variable bindings.
// It supports parent-chained lookup for lexical scoping.
type Env struct {
	bindings map[string]*Binding
	parent   *Env
}

// NewEnv creates a new environment with an optional parent scope.
func NewEnv(parent *Env) *Env {
	return &Env{
		bindings: make(map[string]*Binding),
		parent:   parent,
	}
}

// Child creates a new child scope whose parent is this environment.
func (e *Env) Child() *Env {
	return NewEnv(e)
}

// Parent returns the enclosing scope, or nil for the root.
func (e *Env) Parent() *Env {
	return e.parent
}

// Root walks parent links to the outermost environment.
func (e *Env) Root() *Env {
	for e.parent != nil {
		e = e.parent
	}
	return e
}

// Declare binds name in this scope only, replacing any binding of the same
// name here. Outer bindings are shadowed, never modified.
func (e *Env) Declare(name string, val Value, typ string) {
	e.bindings[name] = &Binding{Value: val, Type: typ}
}

// Assign stores val in the nearest binding of name, keeping its declared
// type. It fails with E_UNDECLARED when no scope binds name.
func (e *Env) Assign(name string, val Value) error {
	b := e.find(name)
	if b == nil {
		return &RuntimeError{
			Code:    diagnostics.EUndeclared,
			Message: fmt.Sprintf("undeclared variable '%s'", name),
		}
	}
	b.Value = val
	return nil
}

// Lookup returns the nearest binding of name. It fails with E_UNDEFINED
// when no scope binds name.
func (e *Env) Lookup(name string) (Binding, error) {
	b := e.find(name)
	if b == nil {
		return Binding{}, &RuntimeError{
			Code:    diagnostics.EUndefined,
			Message: fmt.Sprintf("undefined variable '%s'", name),
		}
	}
	return *b, nil
}

// Has checks whether a variable is defined in this scope or any parent.
func (e *Env) Has(name string) bool {
	return e.find(name) != nil
}

// Names returns the names bound directly in this scope.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for n := range e.bindings {
		names = append(names, n)
	}
	return names
}

func (e *Env) find(name string) *Binding {
	for s := e; s != nil; s = s.parent {
		if b, ok := s.bindings[name]; ok {
			return b
		}
	}
	return nil
}
