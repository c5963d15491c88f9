// Package ast defines the APS language AST node types.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// VarType is a declared variable, parameter or return type.
type VarType string

const (
	TypeInt  VarType = "INT"
	TypeStr  VarType = "STR"
	TypeBool VarType = "BOOL"
)

// IsVarType reports whether s names one of the declarable types.
func IsVarType(s string) bool {
	switch VarType(s) {
	case TypeInt, TypeStr, TypeBool:
		return true
	}
	return false
}

// BinaryOp represents an arithmetic operator.
type BinaryOp string

const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
)

// UnaryOp represents a prefix operator.
type UnaryOp string

const (
	OpPlus UnaryOp = "+"
	OpNeg  UnaryOp = "-"
	OpNot  UnaryOp = "!"
)

// RelOp represents a relational operator. Relational operators are not
// chainable and always produce 0 or 1.
type RelOp string

const (
	OpEq RelOp = "IGUAL"
	OpNe RelOp = "DIFERENTE"
	OpGt RelOp = "MAIOR"
	OpLt RelOp = "MENOR"
	OpGe RelOp = "MAIORIGUAL"
	OpLe RelOp = "MENORIGUAL"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Literal Expressions ---

type IntLiteral struct {
	Span  Span
	Value int64
}

func (n *IntLiteral) Kind() string   { return "IntLiteral" }
func (n *IntLiteral) NodeSpan() Span { return n.Span }
func (n *IntLiteral) exprNode()      {}

type StrLiteral struct {
	Span  Span
	Value string
}

func (n *StrLiteral) Kind() string   { return "StrLiteral" }
func (n *StrLiteral) NodeSpan() Span { return n.Span }
func (n *StrLiteral) exprNode()      {}

// BoolLiteral evaluates to the integer 1 or 0.
type BoolLiteral struct {
	Span  Span
	Value bool
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodeSpan() Span { return n.Span }
func (n *BoolLiteral) exprNode()      {}

// --- Identifiers and calls ---

type Ident struct {
	Span Span
	Name string
}

func (n *Ident) Kind() string   { return "Ident" }
func (n *Ident) NodeSpan() Span { return n.Span }
func (n *Ident) exprNode()      {}

type CallExpr struct {
	Span Span
	Name string
	Args []Expr
}

func (n *CallExpr) Kind() string   { return "CallExpr" }
func (n *CallExpr) NodeSpan() Span { return n.Span }
func (n *CallExpr) exprNode()      {}

// --- Operators ---

type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string   { return "BinaryExpr" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

type UnaryExpr struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Kind() string   { return "UnaryExpr" }
func (n *UnaryExpr) NodeSpan() Span { return n.Span }
func (n *UnaryExpr) exprNode()      {}

type RelationalExpr struct {
	Span  Span
	Op    RelOp
	Left  Expr
	Right Expr
}

func (n *RelationalExpr) Kind() string   { return "RelationalExpr" }
func (n *RelationalExpr) NodeSpan() Span { return n.Span }
func (n *RelationalExpr) exprNode()      {}

// --- Statements ---

// Block is an ordered statement list. It does not open a scope.
type Block struct {
	Span       Span
	Statements []Stmt
}

func (n *Block) Kind() string   { return "Block" }
func (n *Block) NodeSpan() Span { return n.Span }
func (n *Block) stmtNode()      {}

type VarDecl struct {
	Span Span
	Type VarType
	Name string
	Init Expr // nil when no initializer was given
}

func (n *VarDecl) Kind() string   { return "VarDecl" }
func (n *VarDecl) NodeSpan() Span { return n.Span }
func (n *VarDecl) stmtNode()      {}

type AssignStmt struct {
	Span  Span
	Name  string
	Value Expr
}

func (n *AssignStmt) Kind() string   { return "AssignStmt" }
func (n *AssignStmt) NodeSpan() Span { return n.Span }
func (n *AssignStmt) stmtNode()      {}

type PrintStmt struct {
	Span  Span
	Value Expr
}

func (n *PrintStmt) Kind() string   { return "PrintStmt" }
func (n *PrintStmt) NodeSpan() Span { return n.Span }
func (n *PrintStmt) stmtNode()      {}

type ReadStmt struct {
	Span Span
	Name string
}

func (n *ReadStmt) Kind() string   { return "ReadStmt" }
func (n *ReadStmt) NodeSpan() Span { return n.Span }
func (n *ReadStmt) stmtNode()      {}

type IfStmt struct {
	Span Span
	Cond Expr
	Then *Block
	Else *Block // nil when there is no SENAO branch
}

func (n *IfStmt) Kind() string   { return "IfStmt" }
func (n *IfStmt) NodeSpan() Span { return n.Span }
func (n *IfStmt) stmtNode()      {}

type WhileStmt struct {
	Span Span
	Cond Expr
	Body *Block
}

func (n *WhileStmt) Kind() string   { return "WhileStmt" }
func (n *WhileStmt) NodeSpan() Span { return n.Span }
func (n *WhileStmt) stmtNode()      {}

type ForStmt struct {
	Span    Span
	VarType VarType
	Var     string
	Start   Expr
	End     Expr
	Step    Expr // nil means +1
	Body    *Block
}

func (n *ForStmt) Kind() string   { return "ForStmt" }
func (n *ForStmt) NodeSpan() Span { return n.Span }
func (n *ForStmt) stmtNode()      {}

// Param is one typed entry of a function parameter list.
type Param struct {
	Span Span
	Type VarType
	Name string
}

type FuncDecl struct {
	Span       Span
	ReturnType VarType
	Name       string
	Params     []Param
	Body       *Block
}

func (n *FuncDecl) Kind() string   { return "FuncDecl" }
func (n *FuncDecl) NodeSpan() Span { return n.Span }
func (n *FuncDecl) stmtNode()      {}

// CallStmt is a function call used as a statement; its result is discarded.
type CallStmt struct {
	Span Span
	Call *CallExpr
}

func (n *CallStmt) Kind() string   { return "CallStmt" }
func (n *CallStmt) NodeSpan() Span { return n.Span }
func (n *CallStmt) stmtNode()      {}

type ReturnStmt struct {
	Span  Span
	Value Expr
}

func (n *ReturnStmt) Kind() string   { return "ReturnStmt" }
func (n *ReturnStmt) NodeSpan() Span { return n.Span }
func (n *ReturnStmt) stmtNode()      {}

// Walk calls fn for node and every descendant in source order. Returning
// false from fn skips the node's children.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *CallExpr:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *BinaryExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *UnaryExpr:
		Walk(n.Operand, fn)
	case *RelationalExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Block:
		for _, s := range n.Statements {
			Walk(s, fn)
		}
	case *VarDecl:
		if n.Init != nil {
			Walk(n.Init, fn)
		}
	case *AssignStmt:
		Walk(n.Value, fn)
	case *PrintStmt:
		Walk(n.Value, fn)
	case *IfStmt:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		if n.Else != nil {
			Walk(n.Else, fn)
		}
	case *WhileStmt:
		Walk(n.Cond, fn)
		Walk(n.Body, fn)
	case *ForStmt:
		Walk(n.Start, fn)
		Walk(n.End, fn)
		if n.Step != nil {
			Walk(n.Step, fn)
		}
		Walk(n.Body, fn)
	case *FuncDecl:
		Walk(n.Body, fn)
	case *CallStmt:
		Walk(n.Call, fn)
	case *ReturnStmt:
		Walk(n.Value, fn)
	}
}
