// Package parser implements the APS recursive-descent parser.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/drumondpe/APS-LogComp/pkg/ast"
	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
	"github.com/drumondpe/APS-LogComp/pkg/lexer"
)

// parser holds the whole parse state: the token source, the current token
// and the last consumed token. Parsing stops at the first diagnostic.
type parser struct {
	lx    *lexer.Lexer
	tok   lexer.Token
	prev  lexer.Token
	diags []diagnostics.Diagnostic
}

// Parse tokenizes source lazily and parses it into the program's top-level
// Block. On failure it returns nil and exactly one diagnostic.
func Parse(source, filename string) (*ast.Block, []diagnostics.Diagnostic) {
	p := &parser{lx: lexer.New(source, filename)}
	p.advance()
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

// Incomplete reports whether diags describe input that ended too early,
// which is the REPL's cue to read another line. String literals cannot
// span lines, so an unterminated string is a plain error.
func Incomplete(diags []diagnostics.Diagnostic) bool {
	return len(diags) > 0 && diags[0].Code == diagnostics.EEOF
}

func (p *parser) failed() bool {
	return len(p.diags) > 0
}

func (p *parser) advance() lexer.Token {
	consumed := p.tok
	p.prev = consumed
	if p.failed() {
		return consumed
	}
	tok, err := p.lx.Next()
	if err != nil {
		var le *lexer.LexError
		if errors.As(err, &le) {
			p.diags = append(p.diags, le.Diag)
		} else {
			p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, ""))
		}
		tok = lexer.Token{Kind: lexer.EOF, Span: p.tok.Span}
	}
	p.tok = tok
	return consumed
}

func (p *parser) atSymbol(value string) bool {
	return p.tok.Is(lexer.Symbol, value)
}

func (p *parser) atKeyword(values ...string) bool {
	if p.tok.Kind != lexer.Reserved {
		return false
	}
	for _, v := range values {
		if p.tok.Value == v {
			return true
		}
	}
	return false
}

func (p *parser) atVarType() bool {
	return p.tok.Kind == lexer.Reserved && ast.IsVarType(p.tok.Value)
}

func (p *parser) addError(msg string, span ast.Span, hint string) {
	if p.failed() {
		return
	}
	code := diagnostics.EParse
	if p.tok.Kind == lexer.EOF {
		code = diagnostics.EEOF
	}
	p.diags = append(p.diags, diagnostics.MakeDiag(code, msg, &span, hint))
}

func (p *parser) errorExpected(what string) {
	p.addError(fmt.Sprintf("expected %s, got %s", what, p.tok), p.tok.Span, "")
}

func (p *parser) expectSymbol(value string) bool {
	if !p.atSymbol(value) {
		p.errorExpected("'" + value + "'")
		return false
	}
	p.advance()
	return true
}

func (p *parser) expectKeyword(value, after string) bool {
	if !p.atKeyword(value) {
		p.addError(fmt.Sprintf("expected '%s' %s, got %s", value, after, p.tok), p.tok.Span, "")
		return false
	}
	p.advance()
	return true
}

func (p *parser) expectIdent(after string) (lexer.Token, bool) {
	if p.tok.Kind != lexer.Identifier {
		hint := ""
		if p.tok.Kind == lexer.Reserved {
			hint = fmt.Sprintf("'%s' is a reserved word", p.tok.Value)
		}
		p.addError(fmt.Sprintf("expected identifier %s, got %s", after, p.tok), p.tok.Span, hint)
		return p.tok, false
	}
	return p.advance(), true
}

func (p *parser) expectVarType(after string) (ast.VarType, bool) {
	if !p.atVarType() {
		p.addError(fmt.Sprintf("expected type INT, STR or BOOL %s, got %s", after, p.tok), p.tok.Span, "")
		return "", false
	}
	return ast.VarType(p.advance().Value), true
}

// finish builds a span from start to the end of the last consumed token.
func (p *parser) finish(start ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   p.prev.Span.EndLine,
		EndCol:    p.prev.Span.EndCol,
	}
}

func spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// closers are the tokens that end a statement list.
func (p *parser) atCloser() bool {
	return p.atSymbol("}") || p.atKeyword("SENAO", "FIMSE", "FIMENQUANTO", "FIMPARA", "FIMFUNCAO")
}

func (p *parser) atStmtStart() bool {
	return p.tok.Kind == lexer.Identifier || p.atSymbol("{") ||
		p.atKeyword("IMPRIME", "LEIA", "SE", "ENQUANTO", "PARA", "FUNCAO", "RETORNA", "INT", "STR", "BOOL")
}

// --- Program ---

func (p *parser) parseProgram() *ast.Block {
	start := p.tok.Span
	var stmts []ast.Stmt
	for p.tok.Kind != lexer.EOF && !p.failed() {
		if !p.atStmtStart() {
			tok := p.tok
			hint := "expected a statement"
			if p.atCloser() {
				hint = "it does not close any open block"
			}
			p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.ETrailing,
				fmt.Sprintf("unexpected %s after the end of the program", tok), &tok.Span, hint))
			return nil
		}
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}
	if p.failed() {
		return nil
	}
	return &ast.Block{Span: p.finish(start), Statements: stmts}
}

// --- Statements ---

func (p *parser) parseStmt() ast.Stmt {
	if p.atSymbol("{") {
		if b := p.parseBracedBlock(); b != nil {
			return b
		}
		return nil
	}
	if p.tok.Kind == lexer.Identifier {
		return p.parseIdentStmt()
	}
	if p.tok.Kind != lexer.Reserved {
		p.errorExpected("a statement")
		return nil
	}

	switch p.tok.Value {
	case "IMPRIME":
		if s := p.parsePrint(); s != nil {
			return s
		}
	case "LEIA":
		if s := p.parseRead(); s != nil {
			return s
		}
	case "SE":
		if s := p.parseIf(); s != nil {
			return s
		}
	case "ENQUANTO":
		if s := p.parseWhile(); s != nil {
			return s
		}
	case "PARA":
		if s := p.parseFor(); s != nil {
			return s
		}
	case "FUNCAO":
		if s := p.parseFuncDecl(); s != nil {
			return s
		}
	case "RETORNA":
		if s := p.parseReturn(); s != nil {
			return s
		}
	case "INT", "STR", "BOOL":
		return p.parseVarDecls()
	default:
		p.addError(fmt.Sprintf("unexpected %s, expected a statement", p.tok), p.tok.Span, "")
	}
	return nil
}

func (p *parser) parsePrint() *ast.PrintStmt {
	start := p.advance() // IMPRIME
	value := p.parseExpr()
	if value == nil || !p.expectSymbol(";") {
		return nil
	}
	return &ast.PrintStmt{Span: p.finish(start.Span), Value: value}
}

func (p *parser) parseRead() *ast.ReadStmt {
	start := p.advance() // LEIA
	name, ok := p.expectIdent("after 'LEIA'")
	if !ok || !p.expectSymbol(";") {
		return nil
	}
	return &ast.ReadStmt{Span: p.finish(start.Span), Name: name.Value}
}

func (p *parser) parseReturn() *ast.ReturnStmt {
	start := p.advance() // RETORNA
	value := p.parseExpr()
	if value == nil || !p.expectSymbol(";") {
		return nil
	}
	return &ast.ReturnStmt{Span: p.finish(start.Span), Value: value}
}

func (p *parser) parseIf() *ast.IfStmt {
	start := p.advance() // SE
	cond := p.parseCondition()
	if cond == nil || !p.expectKeyword("ENTAO", "after condition") {
		return nil
	}
	then := p.parseBody("SENAO", "FIMSE")
	if then == nil {
		return nil
	}
	var els *ast.Block
	if p.atKeyword("SENAO") {
		p.advance()
		if els = p.parseBody("FIMSE"); els == nil {
			return nil
		}
	}
	if !p.expectKeyword("FIMSE", "to close 'SE'") {
		return nil
	}
	return &ast.IfStmt{Span: p.finish(start.Span), Cond: cond, Then: then, Else: els}
}

func (p *parser) parseWhile() *ast.WhileStmt {
	start := p.advance() // ENQUANTO
	cond := p.parseCondition()
	if cond == nil || !p.expectKeyword("FACA", "after condition") {
		return nil
	}
	body := p.parseBody("FIMENQUANTO")
	if body == nil || !p.expectKeyword("FIMENQUANTO", "to close 'ENQUANTO'") {
		return nil
	}
	return &ast.WhileStmt{Span: p.finish(start.Span), Cond: cond, Body: body}
}

func (p *parser) parseFor() *ast.ForStmt {
	start := p.advance() // PARA
	typ, ok := p.expectVarType("after 'PARA'")
	if !ok {
		return nil
	}
	name, ok := p.expectIdent("after loop variable type")
	if !ok || !p.expectKeyword("DE", "after loop variable") {
		return nil
	}
	from := p.parseExpr()
	if from == nil || !p.expectKeyword("ATE", "after start value") {
		return nil
	}
	to := p.parseExpr()
	if to == nil {
		return nil
	}
	var step ast.Expr
	if p.atKeyword("PASSO") {
		p.advance()
		if step = p.parseExpr(); step == nil {
			return nil
		}
	}
	if !p.expectKeyword("FACA", "to start the 'PARA' body") {
		return nil
	}
	body := p.parseBody("FIMPARA")
	if body == nil || !p.expectKeyword("FIMPARA", "to close 'PARA'") {
		return nil
	}
	return &ast.ForStmt{
		Span:    p.finish(start.Span),
		VarType: typ,
		Var:     name.Value,
		Start:   from,
		End:     to,
		Step:    step,
		Body:    body,
	}
}

func (p *parser) parseFuncDecl() *ast.FuncDecl {
	start := p.advance() // FUNCAO
	ret, ok := p.expectVarType("after 'FUNCAO'")
	if !ok {
		return nil
	}
	name, ok := p.expectIdent("for function name")
	if !ok || !p.expectSymbol("(") {
		return nil
	}

	var params []ast.Param
	if !p.atSymbol(")") {
		for {
			pstart := p.tok.Span
			ptype, ok := p.expectVarType("for parameter")
			if !ok {
				return nil
			}
			pname, ok := p.expectIdent("for parameter name")
			if !ok {
				return nil
			}
			params = append(params, ast.Param{Span: p.finish(pstart), Type: ptype, Name: pname.Value})
			if !p.atSymbol(",") {
				break
			}
			p.advance()
		}
	}
	if !p.expectSymbol(")") {
		return nil
	}

	var body *ast.Block
	if p.atSymbol("{") {
		body = p.parseBracedBlock()
		if body == nil {
			return nil
		}
		if p.atKeyword("FIMFUNCAO") {
			p.advance()
		}
	} else {
		body = p.parseStmtList("FIMFUNCAO")
		if body == nil || !p.expectKeyword("FIMFUNCAO", "to close 'FUNCAO'") {
			return nil
		}
	}
	return &ast.FuncDecl{
		Span:       p.finish(start.Span),
		ReturnType: ret,
		Name:       name.Value,
		Params:     params,
		Body:       body,
	}
}

// parseVarDecls parses one or more comma-separated declarations. A single
// declaration is returned as is; several are collapsed into a Block.
func (p *parser) parseVarDecls() ast.Stmt {
	start := p.tok.Span
	var decls []ast.Stmt
	for {
		dstart := p.tok.Span
		typ, ok := p.expectVarType("in declaration")
		if !ok {
			return nil
		}
		name, ok := p.expectIdent("after type")
		if !ok {
			return nil
		}
		var init ast.Expr
		if p.atKeyword("RECEBE") {
			p.advance()
			if init = p.parseExpr(); init == nil {
				return nil
			}
		}
		decls = append(decls, &ast.VarDecl{Span: p.finish(dstart), Type: typ, Name: name.Value, Init: init})

		if p.atSymbol(",") {
			p.advance()
			if !p.atVarType() {
				p.errorExpected("a type after ',' in declaration")
				return nil
			}
			continue
		}
		if p.atSymbol(";") {
			p.advance()
			break
		}
		p.errorExpected("',', 'RECEBE' or ';' after declaration")
		return nil
	}
	if len(decls) == 1 {
		d := decls[0].(*ast.VarDecl)
		d.Span = p.finish(start)
		return d
	}
	return &ast.Block{Span: p.finish(start), Statements: decls}
}

// parseIdentStmt parses an assignment or a call statement.
func (p *parser) parseIdentStmt() ast.Stmt {
	name := p.advance()
	switch {
	case p.atKeyword("RECEBE"):
		p.advance()
		value := p.parseExpr()
		if value == nil || !p.expectSymbol(";") {
			return nil
		}
		return &ast.AssignStmt{Span: p.finish(name.Span), Name: name.Value, Value: value}
	case p.atSymbol("("):
		call := p.parseCallArgs(name)
		if call == nil || !p.expectSymbol(";") {
			return nil
		}
		return &ast.CallStmt{Span: p.finish(name.Span), Call: call}
	}
	p.addError(fmt.Sprintf("expected 'RECEBE' or '(' after '%s', got %s", name.Value, p.tok), p.tok.Span, "")
	return nil
}

// --- Blocks ---

func (p *parser) parseBracedBlock() *ast.Block {
	start := p.advance() // {
	var stmts []ast.Stmt
	for !p.atSymbol("}") {
		if p.tok.Kind == lexer.EOF || p.failed() {
			p.errorExpected("'}'")
			return nil
		}
		if p.atCloser() {
			p.errorExpected("'}'")
			return nil
		}
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}
	p.advance() // }
	return &ast.Block{Span: p.finish(start.Span), Statements: stmts}
}

// parseBody parses a construct body: either a braced block or a bare
// statement list ending at one of terminators. The terminator itself is
// left for the caller.
func (p *parser) parseBody(terminators ...string) *ast.Block {
	if p.atSymbol("{") {
		return p.parseBracedBlock()
	}
	return p.parseStmtList(terminators...)
}

func (p *parser) parseStmtList(terminators ...string) *ast.Block {
	start := p.tok.Span
	var stmts []ast.Stmt
	for !p.atKeyword(terminators...) {
		if p.tok.Kind == lexer.EOF || p.failed() || p.atCloser() {
			p.errorExpected("'" + strings.Join(terminators, "' or '") + "'")
			return nil
		}
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}
	span := start
	if len(stmts) > 0 {
		span = p.finish(start)
	}
	return &ast.Block{Span: span, Statements: stmts}
}

// --- Expressions ---

var relOps = map[string]ast.RelOp{
	"IGUAL":      ast.OpEq,
	"DIFERENTE":  ast.OpNe,
	"MAIOR":      ast.OpGt,
	"MENOR":      ast.OpLt,
	"MAIORIGUAL": ast.OpGe,
	"MENORIGUAL": ast.OpLe,
	"==":         ast.OpEq,
	"!=":         ast.OpNe,
	">":          ast.OpGt,
	"<":          ast.OpLt,
	">=":         ast.OpGe,
	"<=":         ast.OpLe,
}

func (p *parser) relOp() (ast.RelOp, bool) {
	if p.tok.Kind != lexer.Reserved && p.tok.Kind != lexer.Symbol {
		return "", false
	}
	op, ok := relOps[p.tok.Value]
	return op, ok
}

// parseCondition parses exactly one `expr RELOP expr`.
func (p *parser) parseCondition() ast.Expr {
	left := p.parseExpr()
	if left == nil {
		return nil
	}
	op, ok := p.relOp()
	if !ok {
		p.addError(fmt.Sprintf("expected relational operator, got %s", p.tok), p.tok.Span,
			"use IGUAL, DIFERENTE, MAIOR, MENOR, MAIORIGUAL, MENORIGUAL or == != > < >= <=")
		return nil
	}
	p.advance()
	right := p.parseExpr()
	if right == nil {
		return nil
	}
	if _, chained := p.relOp(); chained {
		p.addError("relational operators cannot be chained", p.tok.Span, "")
		return nil
	}
	return &ast.RelationalExpr{Span: spanFromTo(left.NodeSpan(), right.NodeSpan()), Op: op, Left: left, Right: right}
}

func (p *parser) additiveOp() (ast.BinaryOp, bool) {
	switch {
	case p.atSymbol("+"), p.atKeyword("SOMA"):
		return ast.OpAdd, true
	case p.atSymbol("-"), p.atKeyword("SUBTRAI"):
		return ast.OpSub, true
	}
	return "", false
}

func (p *parser) multiplicativeOp() (ast.BinaryOp, bool) {
	switch {
	case p.atSymbol("*"), p.atKeyword("MULTIPLICA"):
		return ast.OpMul, true
	case p.atSymbol("/"), p.atKeyword("DIVIDE"):
		return ast.OpDiv, true
	}
	return "", false
}

// parseExpr parses `term (('+'|'-') term)*`.
func (p *parser) parseExpr() ast.Expr {
	left := p.parseTerm()
	if left == nil {
		return nil
	}
	for {
		op, ok := p.additiveOp()
		if !ok {
			return left
		}
		p.advance()
		right := p.parseTerm()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Span: spanFromTo(left.NodeSpan(), right.NodeSpan()), Op: op, Left: left, Right: right}
	}
}

// parseTerm parses `factor (('*'|'/') factor)*`.
func (p *parser) parseTerm() ast.Expr {
	left := p.parseFactor()
	if left == nil {
		return nil
	}
	for {
		op, ok := p.multiplicativeOp()
		if !ok {
			return left
		}
		p.advance()
		right := p.parseFactor()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Span: spanFromTo(left.NodeSpan(), right.NodeSpan()), Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseFactor() ast.Expr {
	tok := p.tok
	switch tok.Kind {
	case lexer.Number:
		p.advance()
		return &ast.IntLiteral{Span: tok.Span, Value: tok.Int}
	case lexer.String:
		p.advance()
		return &ast.StrLiteral{Span: tok.Span, Value: tok.Value}
	case lexer.Identifier:
		p.advance()
		if p.atSymbol("(") {
			if call := p.parseCallArgs(tok); call != nil {
				return call
			}
			return nil
		}
		return &ast.Ident{Span: tok.Span, Name: tok.Value}
	case lexer.Reserved:
		switch tok.Value {
		case "VERDADEIRO", "FALSO":
			p.advance()
			return &ast.BoolLiteral{Span: tok.Span, Value: tok.Value == "VERDADEIRO"}
		}
	case lexer.Symbol:
		switch tok.Value {
		case "(":
			p.advance()
			expr := p.parseExpr()
			if expr == nil || !p.expectSymbol(")") {
				return nil
			}
			return expr
		case "+", "-", "!":
			p.advance()
			operand := p.parseFactor()
			if operand == nil {
				return nil
			}
			return &ast.UnaryExpr{Span: spanFromTo(tok.Span, operand.NodeSpan()), Op: ast.UnaryOp(tok.Value), Operand: operand}
		}
	}
	p.errorExpected("an expression")
	return nil
}

// parseCallArgs parses `'(' [expr (',' expr)*] ')'` after a function name.
func (p *parser) parseCallArgs(name lexer.Token) *ast.CallExpr {
	p.advance() // (
	var args []ast.Expr
	if !p.atSymbol(")") {
		for {
			arg := p.parseExpr()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if !p.atSymbol(",") {
				break
			}
			p.advance()
		}
	}
	if !p.expectSymbol(")") {
		return nil
	}
	return &ast.CallExpr{Span: p.finish(name.Span), Name: name.Value, Args: args}
}
