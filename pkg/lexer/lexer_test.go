package lexer

import (
	"errors"
	"strings"
	"testing"
)

// helper to tokenize and fail on error
func mustTokenize(t *testing.T, source string) []Token {
	t.Helper()
	tokens, err := Tokenize(source, "test.aps")
	if err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
	return tokens
}

// helper that strips the trailing EOF for easier assertions
func mustTokenizeNoEOF(t *testing.T, source string) []Token {
	t.Helper()
	tokens := mustTokenize(t, source)
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != EOF {
		t.Fatal("last token is not EOF")
	}
	return tokens[:len(tokens)-1]
}

func mustFail(t *testing.T, source string) *LexError {
	t.Helper()
	_, err := Tokenize(source, "test.aps")
	if err == nil {
		t.Fatalf("expected lex error for %q", source)
	}
	var le *LexError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LexError, got %T", err)
	}
	if le.Diag.Code != "E_LEX" {
		t.Errorf("expected E_LEX, got %s", le.Diag.Code)
	}
	return le
}

func TestEmptyInput(t *testing.T) {
	tokens := mustTokenize(t, "")
	if len(tokens) != 1 || tokens[0].Kind != EOF {
		t.Fatalf("expected only EOF, got %v", tokens)
	}
}

func TestKeywordSpellings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"IMPRIME", "IMPRIME"},
		{"imprime", "IMPRIME"},
		{"Leia", "LEIA"},
		{"SENAO", "SENAO"},
		{"SENÃO", "SENAO"},
		{"senão", "SENAO"},
		{"ENTÃO", "ENTAO"},
		{"ATÉ", "ATE"},
		{"FAÇA", "FACA"},
		{"FunÇão", "FUNCAO"},
		{"verdadeiro", "VERDADEIRO"},
		{"MaiorIgual", "MAIORIGUAL"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := mustTokenizeNoEOF(t, tt.input)
			if len(tokens) != 1 {
				t.Fatalf("expected 1 token, got %d", len(tokens))
			}
			if tokens[0].Kind != Reserved {
				t.Errorf("expected RESERVED, got %s", tokens[0].Kind)
			}
			if tokens[0].Value != tt.want {
				t.Errorf("expected %q, got %q", tt.want, tokens[0].Value)
			}
		})
	}
}

func TestIdentifiersKeepCase(t *testing.T) {
	tests := []string{"x", "Contador", "_tmp", "valor2", "não", "SEx", "FIMSEJA"}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			tokens := mustTokenizeNoEOF(t, in)
			if len(tokens) != 1 {
				t.Fatalf("expected 1 token, got %d: %v", len(tokens), tokens)
			}
			if tokens[0].Kind != Identifier {
				t.Errorf("expected IDENTIFIER, got %s", tokens[0].Kind)
			}
			if tokens[0].Value != in {
				t.Errorf("expected %q, got %q", in, tokens[0].Value)
			}
		})
	}
}

func TestNumbers(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, "0 42 9223372036854775807")
	want := []string{"0", "42", "9223372036854775807"}
	ints := []int64{0, 42, 9223372036854775807}
	for i, tok := range tokens {
		if tok.Kind != Number || tok.Value != want[i] {
			t.Errorf("token %d: got %s %q, want NUMBER %q", i, tok.Kind, tok.Value, want[i])
		}
		if tok.Int != ints[i] {
			t.Errorf("token %d: got Int %d, want %d", i, tok.Int, ints[i])
		}
	}

	le := mustFail(t, "9223372036854775808")
	if !strings.Contains(le.Diag.Message, "out of range") {
		t.Errorf("unexpected message: %s", le.Diag.Message)
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", `""`, ""},
		{"plain", `"olá mundo"`, "olá mundo"},
		{"escaped quote", `"diga \"oi\""`, `diga "oi"`},
		{"escaped backslash", `"a\\b"`, `a\b`},
		{"escaped newline", `"l1\nl2"`, "l1\nl2"},
		{"escaped tab", `"a\tb"`, "a\tb"},
		{"hash inside", `"# not a comment"`, "# not a comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := mustTokenizeNoEOF(t, tt.input)
			if len(tokens) != 1 || tokens[0].Kind != String {
				t.Fatalf("expected one STRING token, got %v", tokens)
			}
			if tokens[0].Value != tt.expected {
				t.Errorf("expected value %q, got %q", tt.expected, tokens[0].Value)
			}
		})
	}
}

func TestSymbols(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, "+ - * / ( ) ; , { } ! == != > < >= <=")
	want := strings.Fields("+ - * / ( ) ; , { } ! == != > < >= <=")
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for i, tok := range tokens {
		if tok.Kind != Symbol || tok.Value != want[i] {
			t.Errorf("token %d: got %s %q, want SYMBOL %q", i, tok.Kind, tok.Value, want[i])
		}
	}
}

func TestAdjacentSymbolsWithoutSpaces(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, "x>=-1;")
	got := make([]string, len(tokens))
	for i, tok := range tokens {
		got[i] = tok.Value
	}
	if strings.Join(got, " ") != "x >= - 1 ;" {
		t.Errorf("got %v", got)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, "# cabeçalho\nIMPRIME 1; # fim\n# ultima")
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d: %v", len(tokens), tokens)
	}
	if tokens[0].Span.StartLine != 2 {
		t.Errorf("expected IMPRIME on line 2, got %d", tokens[0].Span.StartLine)
	}
}

func TestUnicodeWhitespace(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, "IMPRIME\f1;\v\u00a0\u2003\nx")
	got := make([]string, len(tokens))
	for i, tok := range tokens {
		got[i] = tok.Value
	}
	if strings.Join(got, " ") != "IMPRIME 1 ; x" {
		t.Fatalf("got %v", got)
	}
	last := tokens[len(tokens)-1]
	if last.Span.StartLine != 2 || last.Span.StartCol != 1 {
		t.Errorf("x: got %d:%d, want 2:1", last.Span.StartLine, last.Span.StartCol)
	}
	if tokens[1].Span.StartCol != 9 {
		t.Errorf("1: got col %d, want 9", tokens[1].Span.StartCol)
	}
}

func TestSpansCountRunes(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, "STR é RECEBE \"ã\";\n  x")
	// STR(1) é(5) RECEBE(7) "ã"(14) ;(17) x(line 2, col 3)
	cols := []int{1, 5, 7, 14, 17}
	for i, c := range cols {
		if tokens[i].Span.StartCol != c {
			t.Errorf("token %d (%s): got col %d, want %d", i, tokens[i].Value, tokens[i].Span.StartCol, c)
		}
	}
	last := tokens[len(tokens)-1]
	if last.Span.StartLine != 2 || last.Span.StartCol != 3 {
		t.Errorf("x: got %d:%d, want 2:3", last.Span.StartLine, last.Span.StartCol)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"unterminated", `"abc`, "unterminated string literal"},
		{"newline in string", "\"abc\ndef\"", "unterminated string literal"},
		{"bad escape", `"\q"`, "invalid escape"},
		{"single equals", "x = 1", "unexpected character '='"},
		{"unknown char", "x @ 1", "unexpected character '@'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			le := mustFail(t, tt.input)
			if !strings.Contains(le.Diag.Message, tt.msg) {
				t.Errorf("expected message containing %q, got %q", tt.msg, le.Diag.Message)
			}
			if le.Diag.Span == nil || le.Diag.Span.File != "test.aps" {
				t.Errorf("expected span in test.aps, got %+v", le.Diag.Span)
			}
		})
	}
}

func TestNextIsLazyAndSticky(t *testing.T) {
	l := New("IMPRIME 1 @", "test.aps")
	tok, err := l.Next()
	if err != nil || !tok.Is(Reserved, "IMPRIME") {
		t.Fatalf("got %v, %v", tok, err)
	}
	tok, err = l.Next()
	if err != nil || !tok.Is(Number, "1") {
		t.Fatalf("got %v, %v", tok, err)
	}
	_, err1 := l.Next()
	_, err2 := l.Next()
	if err1 == nil || err1 != err2 {
		t.Errorf("expected the same error twice, got %v and %v", err1, err2)
	}
}

func TestReservedWords(t *testing.T) {
	words := ReservedWords()
	if len(words) != 33 {
		t.Errorf("expected 33 reserved words, got %d", len(words))
	}
	for _, w := range []string{"Até", "faça", "FIMPARA"} {
		if !IsReserved(w) {
			t.Errorf("IsReserved(%q) = false", w)
		}
	}
	if IsReserved("contador") {
		t.Error("IsReserved(contador) = true")
	}
}
