// Package help holds the built-in APS language reference shown by `aps help`.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/drumondpe/APS-LogComp/pkg/lexer"
)

// Version is the language reference version.
const Version = "v1.0"

// QUICKREF is the one-screen overview printed by `aps help`.
const QUICKREF = `APS ` + Version + ` quick reference

  INT x RECEBE 1, STR nome;        declarations (defaults: 0, "", 0)
  x RECEBE x + 1;                  assignment
  IMPRIME "x = " + x;              print one value per line
  LEIA x;                          read a line into a declared variable
  SE x MAIOR 0 ENTAO ... SENAO ... FIMSE
  ENQUANTO x MENOR 10 FACA ... FIMENQUANTO
  PARA INT i DE 1 ATE 10 PASSO 2 FACA ... FIMPARA
  FUNCAO INT dobro(INT n) { RETORNA n * 2; }
  # comment until end of line

Topics (aps help <topic>):
  syntax       statements, blocks and comments
  types        INT, STR, BOOL and runtime values
  operators    arithmetic, concatenation and comparison
  flow         SE, ENQUANTO and PARA
  functions    declaration, calls, scope and recursion
  io           IMPRIME and LEIA
  keywords     every reserved word
  diagnostics  error codes and exit codes
  config       aps.toml settings
  examples     complete programs
`

// TopicList is the display order of the help topics.
var TopicList = []string{
	"syntax", "types", "operators", "flow", "functions",
	"io", "keywords", "diagnostics", "config", "examples",
}

// Topics maps topic names to their text.
var Topics = map[string]string{
	"syntax": `SYNTAX

Statements end with ';' except compound statements, which end with their
closing keyword. Keywords are case-insensitive and may be written with or
without accents: SENÃO, senao and SENAO are the same word. Identifiers are
case-sensitive.

Bodies of SE, SENAO, ENQUANTO and PARA are a bare statement list or a
{ ... } block; the closing FIMSE, FIMENQUANTO or FIMPARA is always required.

A { ... } block on its own is a statement. It does not open a new scope.

'#' starts a comment that runs to the end of the line.
`,

	"types": `TYPES

  INT    64-bit signed integer, default 0
  STR    text, default ""
  BOOL   stored as an integer: VERDADEIRO is 1, FALSO is 0, default 0

Declared types are recorded but values are not converted on assignment.
A function without RETORNA yields void; printing void prints an empty line
and using it in an expression is E_TYPE.
`,

	"operators": `OPERATORS

  + - * /        integer arithmetic, division truncates toward zero
  SOMA SUBTRAI MULTIPLICA DIVIDE   word forms of + - * /
  + with text    concatenation: "n = " + 3 gives "n = 3"
  -x +x !x       unary minus, plus and logical not (integers only)

Comparisons appear only in SE and ENQUANTO conditions, exactly one per
condition:

  IGUAL ==   DIFERENTE !=   MAIOR >   MENOR <   MAIORIGUAL >=   MENORIGUAL <=

Integers compare numerically and text compares by bytes. Comparing text
with an integer is E_TYPE.
`,

	"flow": `FLOW

  SE cond ENTAO ... FIMSE
  SE cond ENTAO ... SENAO ... FIMSE
  ENQUANTO cond FACA ... FIMENQUANTO
  PARA INT i DE inicio ATE fim [PASSO p] FACA ... FIMPARA

A condition is true when it evaluates to a non-zero integer.
PARA evaluates inicio, fim and PASSO once. With a positive step it runs while
i <= fim, with a negative step while i >= fim. The loop variable is always an
INT, whatever type is written, declared in the enclosing scope and remains
visible after the loop.
`,

	"functions": `FUNCTIONS

  FUNCAO INT somar(INT a, INT b) { RETORNA a + b; }
  FUNCAO STR saudacao(STR n) RETORNA "ola " + n; FIMFUNCAO

A function exists once its declaration has executed and is stored in the
global scope. Arguments are evaluated
left to right in the caller's scope. Each call gets a fresh scope whose
parent is the scope where the function was declared, so callers' locals
are not visible. Recursion is limited by Interpreter.MaxCallDepth.
A RETORNA outside any function ends the program.
`,

	"io": `INPUT AND OUTPUT

  IMPRIME expr;   writes the value and a newline to stdout
  LEIA nome;      reads one line from stdin into an existing variable

LEIA converts the line to an integer when the variable was declared INT or
BOOL and keeps it as text for STR. End of input or a malformed integer is
E_INPUT. Logs and diagnostics go to stderr.
`,

	"diagnostics": `DIAGNOSTICS

  E_LEX E_PARSE E_EOF E_TRAILING          syntax             exit 2
  E_DUP_PARAM                             validation         exit 2
  E_UNDECLARED E_UNDEFINED E_NOT_FUNCTION
  E_ARITY E_UNKNOWN_OP E_TYPE E_DIV_ZERO
  E_INPUT E_CALL_DEPTH E_ITERATIONS       runtime            exit 4
  E_CONFIG                                configuration      exit 3
  E_IO                                    file access        exit 1

Runtime errors raised inside functions list the calls they unwound through.
Use --pretty=false for JSON output.
`,

	"config": `CONFIG

Looked up in order: --config <file>, ./aps.toml, ~/.aps/config.toml.

  [Interpreter]
  MaxCallDepth = 1000
  MaxIterations = 0       # 0 means unlimited

  [Output]
  Pretty = true
  Color = "auto"          # auto, always or never

  [Log]
  Level = "warn"          # crit, error, warn, info, debug
  Format = "terminal"     # terminal, logfmt or json

'aps dumpconfig' prints the effective configuration.
`,

	"examples": `EXAMPLES

  # factorial
  FUNCAO INT fatorial(INT n) {
    SE n MENORIGUAL 1 ENTAO RETORNA 1; FIMSE
    RETORNA n * fatorial(n - 1);
  }
  IMPRIME fatorial(5);

  # countdown
  PARA INT i DE 3 ATE 1 PASSO -1 FACA
    IMPRIME i;
  FIMPARA

  # echo input
  STR linha;
  LEIA linha;
  IMPRIME "voce digitou: " + linha;
`,
}

func init() {
	Topics["keywords"] = "KEYWORDS\n\n" + KeywordIndex()
}

// KeywordIndex lists the reserved words in columns.
func KeywordIndex() string {
	words := lexer.ReservedWords()
	var b strings.Builder
	for i, w := range words {
		fmt.Fprintf(&b, "  %-12s", w)
		if (i+1)%5 == 0 {
			b.WriteString("\n")
		}
	}
	if len(words)%5 != 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nTotal: %d keywords\n", len(words))
	return b.String()
}

// MatchTopic resolves name to a topic, accepting a unique prefix.
func MatchTopic(name string) (string, string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if content, ok := Topics[name]; ok {
		return name, content, nil
	}
	var matches []string
	if name != "" {
		for _, topic := range TopicList {
			if strings.HasPrefix(topic, name) {
				matches = append(matches, topic)
			}
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q (available: %s)", name, strings.Join(TopicList, ", "))
	default:
		sort.Strings(matches)
		return "", "", fmt.Errorf("ambiguous help topic %q (matches: %s)", name, strings.Join(matches, ", "))
	}
}
