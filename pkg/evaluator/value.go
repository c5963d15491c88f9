// Package evaluator implements the APS tree-walking evaluator.
package evaluator

import (
	"strconv"

	"github.com/drumondpe/APS-LogComp/pkg/ast"
)

// Value is the interface for all APS runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	apsValue() // sealed marker
	String() string
}

// Int is a 64-bit integer. Booleans are Ints holding 0 or 1.
type Int struct {
	Value int64
}

func (Int) apsValue() {}

func (v Int) String() string { return strconv.FormatInt(v.Value, 10) }

// Str is a text value.
type Str struct {
	Value string
}

func (Str) apsValue() {}

func (v Str) String() string { return strconv.Quote(v.Value) }

// Void is the result of a call whose body finished without RETORNA.
type Void struct{}

func (Void) apsValue() {}

func (Void) String() string { return "void" }

// Func is a function value: its declaration plus the environment that was
// active where the declaration was evaluated.
type Func struct {
	Decl    *ast.FuncDecl
	Closure *Env
}

func (*Func) apsValue() {}

func (f *Func) String() string { return "FUNCAO " + f.Decl.Name }

// NewInt creates an integer value.
func NewInt(n int64) Value {
	return Int{Value: n}
}

// NewBool creates the integer encoding of b.
func NewBool(b bool) Value {
	if b {
		return Int{Value: 1}
	}
	return Int{Value: 0}
}

// NewStr creates a text value.
func NewStr(s string) Value {
	return Str{Value: s}
}

// Truthy reports whether v counts as true. Only Ints have a truth value:
// zero is false and anything else is true.
func Truthy(v Value) (bool, bool) {
	i, ok := v.(Int)
	if !ok {
		return false, false
	}
	return i.Value != 0, true
}

// Display returns the text IMPRIME writes for v.
func Display(v Value) string {
	switch val := v.(type) {
	case Int:
		return val.String()
	case Str:
		return val.Value
	case Void:
		return ""
	case *Func:
		return val.String()
	}
	return ""
}

// KindName names the kind of v for error messages.
func KindName(v Value) string {
	switch v.(type) {
	case Int:
		return "integer"
	case Str:
		return "text"
	case Void:
		return "void"
	case *Func:
		return "function"
	}
	return "unknown"
}

// DefaultValue is the initial value of a declaration without RECEBE.
func DefaultValue(t ast.VarType) Value {
	if t == ast.TypeStr {
		return Str{}
	}
	return Int{}
}
