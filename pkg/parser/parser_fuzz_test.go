package parser_test

import (
	"testing"

	"github.com/drumondpe/APS-LogComp/pkg/parser"
)

// FuzzParse feeds random inputs to the parser to catch panics.
// The parser should never panic; invalid input yields one diagnostic.
func FuzzParse(f *testing.F) {
	seeds := []string{
		`IMPRIME 42;`,
		`INT x RECEBE 2; INT y RECEBE 3; IMPRIME x + y * 2;`,
		`STR s RECEBE "a"; IMPRIME s + 1;`,
		`FUNCAO INT dobro(INT n) { RETORNA n * 2; } IMPRIME dobro(21);`,
		`SE 1 MAIOR 0 ENTAO IMPRIME 1; SENAO IMPRIME 0; FIMSE`,
		`ENQUANTO i < 10 FACA { i RECEBE i + 1; } FIMENQUANTO`,
		`PARA INT i DE 5 ATE 1 PASSO -1 FACA IMPRIME i; FIMPARA`,
		`INT a, STR b;`,
		`{ { { } } }`,
		`SE`,
		`FUNCAO`,
		`PARA INT`,
		`)(`,
		`}`,
		`IMPRIME ((((1`,
		`x RECEBE ;`,
		``,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Parse panicked on input %q: %v", input, r)
				}
			}()
			prog, diags := parser.Parse(input, "fuzz.aps")
			if (prog == nil) == (len(diags) == 0) {
				t.Fatalf("Parse(%q) returned prog=%v with %d diagnostics", input, prog != nil, len(diags))
			}
			if len(diags) > 1 {
				t.Fatalf("Parse(%q) returned %d diagnostics, want at most one", input, len(diags))
			}
		}()
	})
}
