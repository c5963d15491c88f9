// Package lexer implements the APS token stream.
package lexer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/drumondpe/APS-LogComp/pkg/ast"
	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
)

// TokenKind identifies the kind of a lexer token.
type TokenKind int

const (
	Number TokenKind = iota
	String
	Identifier
	Reserved
	Symbol
	EOF
)

func (k TokenKind) String() string {
	switch k {
	case Number:
		return "NUMBER"
	case String:
		return "STRING"
	case Identifier:
		return "IDENTIFIER"
	case Reserved:
		return "RESERVED"
	case Symbol:
		return "SYMBOL"
	case EOF:
		return "EOF"
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token represents a single lexer token. Reserved words carry their
// canonical upper-case unaccented spelling in Value; identifiers keep the
// spelling used in the source.
type Token struct {
	Kind  TokenKind
	Value string
	Int   int64 // value of a Number token
	Span  ast.Span
}

// Is reports whether the token has the given kind and value.
func (t Token) Is(kind TokenKind, value string) bool {
	return t.Kind == kind && t.Value == value
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "end of input"
	}
	if t.Kind == String {
		return strconv.Quote(t.Value)
	}
	return "'" + t.Value + "'"
}

var reserved = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`IMPRIME LEIA SE ENTAO SENAO FIMSE ENQUANTO FACA
		FIMENQUANTO PARA DE ATE PASSO FIMPARA FUNCAO FIMFUNCAO RETORNA RECEBE
		INT STR BOOL IGUAL DIFERENTE MAIOR MENOR MAIORIGUAL MENORIGUAL
		SOMA SUBTRAI MULTIPLICA DIVIDE VERDADEIRO FALSO`) {
		reserved[w] = true
	}
}

// ReservedWords returns the canonical reserved words in sorted order.
func ReservedWords() []string {
	out := make([]string, 0, len(reserved))
	for w := range reserved {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Normalize folds a word to its keyword form: diacritics are removed and
// the result is upper-cased, so "senão", "SENÃO" and "Senao" all become
// "SENAO".
func Normalize(word string) string {
	ascii := true
	for i := 0; i < len(word); i++ {
		if word[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if !ascii {
		t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
		if folded, _, err := transform.String(t, word); err == nil {
			word = folded
		}
	}
	return strings.ToUpper(word)
}

// IsReserved reports whether word, in any case or accent spelling, is a
// reserved word.
func IsReserved(word string) bool {
	return reserved[Normalize(word)]
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

// Lexer produces tokens lazily, one per call to Next.
type Lexer struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
	err      error
}

// New returns a Lexer positioned at the start of source.
func New(source, filename string) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		line:     1,
		col:      1,
	}
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekRune() (rune, int) {
	if l.atEnd() {
		return 0, 0
	}
	return utf8.DecodeRuneInString(l.source[l.pos:])
}

func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else if ch < utf8.RuneSelf || utf8.RuneStart(ch) {
		l.col++
	}
	return ch
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

func (l *Lexer) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      l.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   l.line,
		EndCol:    l.col,
	}
}

func (l *Lexer) lexError(line, col int, msg, hint string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: l.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		hint,
	)
	return &LexError{Diag: diag}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEnd() {
		r, size := l.peekRune()
		if unicode.IsSpace(r) {
			l.advanceN(size)
		} else if r == '#' {
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		} else {
			break
		}
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func (l *Lexer) scanNumber() (Token, error) {
	startLine, startCol := l.line, l.col
	startPos := l.pos
	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
	}
	text := l.source[startPos:l.pos]
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, l.lexError(startLine, startCol,
			fmt.Sprintf("integer literal %s is out of range", text), "integers are 64-bit signed")
	}
	return Token{Kind: Number, Value: text, Int: n, Span: l.span(startLine, startCol)}, nil
}

func (l *Lexer) scanString() (Token, error) {
	startLine, startCol := l.line, l.col
	l.advance() // opening "

	var buf strings.Builder
	for !l.atEnd() {
		ch := l.peek()
		switch {
		case ch == '"':
			l.advance()
			return Token{Kind: String, Value: buf.String(), Span: l.span(startLine, startCol)}, nil
		case ch == '\\':
			l.advance()
			if l.atEnd() {
				return Token{}, l.lexError(startLine, startCol, "unterminated string literal", "")
			}
			escLine, escCol := l.line, l.col
			switch esc := l.advance(); esc {
			case '"':
				buf.WriteByte('"')
			case '\\':
				buf.WriteByte('\\')
			case 'n':
				buf.WriteByte('\n')
			case 't':
				buf.WriteByte('\t')
			default:
				return Token{}, l.lexError(escLine, escCol-1,
					fmt.Sprintf("invalid escape character: \\%c", esc), `supported escapes are \" \\ \n \t`)
			}
		case ch == '\n':
			return Token{}, l.lexError(startLine, startCol, "unterminated string literal",
				"strings cannot span lines; use \\n")
		default:
			r, size := l.peekRune()
			if r == utf8.RuneError && size == 1 {
				return Token{}, l.lexError(l.line, l.col, "invalid UTF-8 character in string", "")
			}
			buf.WriteString(l.source[l.pos : l.pos+size])
			l.advanceN(size)
		}
	}
	return Token{}, l.lexError(startLine, startCol, "unterminated string literal", "")
}

func (l *Lexer) scanWord() Token {
	startLine, startCol := l.line, l.col
	startPos := l.pos
	for {
		r, size := l.peekRune()
		if size == 0 || !isIdentPart(r) {
			break
		}
		l.advanceN(size)
	}
	text := l.source[startPos:l.pos]
	if kw := Normalize(text); reserved[kw] {
		return Token{Kind: Reserved, Value: kw, Span: l.span(startLine, startCol)}
	}
	return Token{Kind: Identifier, Value: text, Span: l.span(startLine, startCol)}
}

func (l *Lexer) symbol(value string, startLine, startCol int) Token {
	l.advanceN(len(value))
	return Token{Kind: Symbol, Value: value, Span: l.span(startLine, startCol)}
}

// Next returns the next token. Once an error or EOF has been returned,
// every further call returns it again.
func (l *Lexer) Next() (Token, error) {
	if l.err != nil {
		return Token{}, l.err
	}
	tok, err := l.next()
	if err != nil {
		l.err = err
	}
	return tok, err
}

func (l *Lexer) next() (Token, error) {
	l.skipWhitespaceAndComments()

	if l.atEnd() {
		return Token{Kind: EOF, Span: l.span(l.line, l.col)}, nil
	}

	ch := l.peek()
	startLine, startCol := l.line, l.col

	switch ch {
	case '+', '-', '*', '/', '(', ')', ';', ',', '{', '}':
		return l.symbol(string(ch), startLine, startCol), nil
	case '!', '>', '<':
		if l.pos+1 < len(l.source) && l.source[l.pos+1] == '=' {
			return l.symbol(string(ch)+"=", startLine, startCol), nil
		}
		return l.symbol(string(ch), startLine, startCol), nil
	case '=':
		if l.pos+1 < len(l.source) && l.source[l.pos+1] == '=' {
			return l.symbol("==", startLine, startCol), nil
		}
		l.advance()
		return Token{}, l.lexError(startLine, startCol, "unexpected character '='",
			"use RECEBE to assign and == or IGUAL to compare")
	case '"':
		return l.scanString()
	}

	if isDigit(ch) {
		return l.scanNumber()
	}

	r, size := l.peekRune()
	if isIdentStart(r) {
		return l.scanWord(), nil
	}

	l.advanceN(size)
	if r == utf8.RuneError && size == 1 {
		return Token{}, l.lexError(startLine, startCol, "invalid UTF-8 byte in source", "")
	}
	return Token{}, l.lexError(startLine, startCol, fmt.Sprintf("unexpected character '%c'", r), "")
}

// Tokenize breaks source code into a slice of tokens ending with EOF.
func Tokenize(source, filename string) ([]Token, error) {
	l := New(source, filename)
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens, nil
		}
	}
}
