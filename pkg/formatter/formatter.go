// Package formatter implements the APS source code formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/drumondpe/APS-LogComp/pkg/ast"
)

const indent = "  "

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpAdd: 1, ast.OpSub: 1,
	ast.OpMul: 2, ast.OpDiv: 2,
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	bin, ok := child.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	childPrec := precedence[bin.Op]
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// Operators are left-associative, so an equal-precedence right operand keeps its parens.
	return childPrec == parentPrec && isRight
}

// Format pretty-prints an APS program back to canonical source: upper-case
// keywords, one statement per line, keyword-terminated bodies for SE,
// ENQUANTO and PARA, and braced function bodies.
func Format(program *ast.Block) string {
	var b strings.Builder
	for _, s := range program.Statements {
		writeStmt(&b, s, 0)
	}
	return b.String()
}

// HasComments checks if a source string contains APS comments (# prefix)
// outside string literals.
func HasComments(source string) bool {
	inString := false
	escaped := false
	for i := 0; i < len(source); i++ {
		ch := source[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case ch == '\n':
			inString = false
		case !inString && ch == '#':
			return true
		}
	}
	return false
}

func line(b *strings.Builder, depth int, text string) {
	b.WriteString(strings.Repeat(indent, depth))
	b.WriteString(text)
	b.WriteByte('\n')
}

func writeBody(b *strings.Builder, body *ast.Block, depth int) {
	for _, s := range body.Statements {
		writeStmt(b, s, depth+1)
	}
}

func writeStmt(b *strings.Builder, s ast.Stmt, depth int) {
	switch stmt := s.(type) {
	case *ast.Block:
		if decls, ok := multiDecl(stmt); ok {
			line(b, depth, decls+";")
			return
		}
		if len(stmt.Statements) == 0 {
			line(b, depth, "{ }")
			return
		}
		line(b, depth, "{")
		writeBody(b, stmt, depth)
		line(b, depth, "}")

	case *ast.VarDecl:
		line(b, depth, formatDecl(stmt)+";")

	case *ast.AssignStmt:
		line(b, depth, stmt.Name+" RECEBE "+formatExpr(stmt.Value)+";")

	case *ast.PrintStmt:
		line(b, depth, "IMPRIME "+formatExpr(stmt.Value)+";")

	case *ast.ReadStmt:
		line(b, depth, "LEIA "+stmt.Name+";")

	case *ast.IfStmt:
		line(b, depth, "SE "+formatExpr(stmt.Cond)+" ENTAO")
		writeBody(b, stmt.Then, depth)
		if stmt.Else != nil {
			line(b, depth, "SENAO")
			writeBody(b, stmt.Else, depth)
		}
		line(b, depth, "FIMSE")

	case *ast.WhileStmt:
		line(b, depth, "ENQUANTO "+formatExpr(stmt.Cond)+" FACA")
		writeBody(b, stmt.Body, depth)
		line(b, depth, "FIMENQUANTO")

	case *ast.ForStmt:
		head := "PARA " + string(stmt.VarType) + " " + stmt.Var +
			" DE " + formatExpr(stmt.Start) + " ATE " + formatExpr(stmt.End)
		if stmt.Step != nil {
			head += " PASSO " + formatExpr(stmt.Step)
		}
		line(b, depth, head+" FACA")
		writeBody(b, stmt.Body, depth)
		line(b, depth, "FIMPARA")

	case *ast.FuncDecl:
		params := make([]string, len(stmt.Params))
		for i, p := range stmt.Params {
			params[i] = string(p.Type) + " " + p.Name
		}
		head := "FUNCAO " + string(stmt.ReturnType) + " " + stmt.Name + "(" + strings.Join(params, ", ") + ")"
		if len(stmt.Body.Statements) == 0 {
			line(b, depth, head+" { }")
			return
		}
		line(b, depth, head+" {")
		writeBody(b, stmt.Body, depth)
		line(b, depth, "}")

	case *ast.CallStmt:
		line(b, depth, formatExpr(stmt.Call)+";")

	case *ast.ReturnStmt:
		line(b, depth, "RETORNA "+formatExpr(stmt.Value)+";")
	}
}

// multiDecl renders a block made only of declarations as one
// comma-separated declaration statement.
func multiDecl(blk *ast.Block) (string, bool) {
	if len(blk.Statements) < 2 {
		return "", false
	}
	parts := make([]string, len(blk.Statements))
	for i, s := range blk.Statements {
		d, ok := s.(*ast.VarDecl)
		if !ok {
			return "", false
		}
		parts[i] = formatDecl(d)
	}
	return strings.Join(parts, ", "), true
}

func formatDecl(d *ast.VarDecl) string {
	out := string(d.Type) + " " + d.Name
	if d.Init != nil {
		out += " RECEBE " + formatExpr(d.Init)
	}
	return out
}

func formatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(expr.Value, 10)
	case *ast.StrLiteral:
		return quote(expr.Value)
	case *ast.BoolLiteral:
		if expr.Value {
			return "VERDADEIRO"
		}
		return "FALSO"
	case *ast.Ident:
		return expr.Name
	case *ast.CallExpr:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = formatExpr(a)
		}
		return expr.Name + "(" + strings.Join(args, ", ") + ")"
	case *ast.BinaryExpr:
		left := formatExpr(expr.Left)
		if needsParens(expr.Left, expr.Op, false) {
			left = "(" + left + ")"
		}
		right := formatExpr(expr.Right)
		if needsParens(expr.Right, expr.Op, true) {
			right = "(" + right + ")"
		}
		return left + " " + string(expr.Op) + " " + right
	case *ast.UnaryExpr:
		operand := formatExpr(expr.Operand)
		switch expr.Operand.(type) {
		case *ast.BinaryExpr, *ast.UnaryExpr:
			operand = "(" + operand + ")"
		}
		return string(expr.Op) + operand
	case *ast.RelationalExpr:
		return formatExpr(expr.Left) + " " + string(expr.Op) + " " + formatExpr(expr.Right)
	}
	return ""
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
