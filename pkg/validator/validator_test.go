package validator_test

import (
	"strings"
	"testing"

	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
	"github.com/drumondpe/APS-LogComp/pkg/parser"
	"github.com/drumondpe/APS-LogComp/pkg/validator"
)

// helper parses source and validates, returning diagnostics from validation only.
// It fatals on parse errors so test cases focus on validator behavior.
func mustParseAndValidate(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	prog, parseErrs := parser.Parse(source, "test.aps")
	if len(parseErrs) > 0 {
		t.Fatalf("unexpected parse error: %s", parseErrs[0].Message)
	}
	return validator.Validate(prog)
}

// assertDiagCodes asserts the diagnostics carry exactly the given codes, in order.
func assertDiagCodes(t *testing.T, diags []diagnostics.Diagnostic, codes ...string) {
	t.Helper()
	var got []string
	for _, d := range diags {
		got = append(got, d.Code)
	}
	if strings.Join(got, ",") != strings.Join(codes, ",") {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Code+": "+d.Message)
		}
		t.Errorf("expected codes %v, got:\n  %s", codes, strings.Join(msgs, "\n  "))
	}
}

func TestValidProgram(t *testing.T) {
	src := `
FUNCAO INT somar(INT a, INT b) { RETORNA a + b; }
PARA INT i DE 1 ATE 3 FACA IMPRIME somar(i, i); FIMPARA
`
	assertDiagCodes(t, mustParseAndValidate(t, src))
}

func TestDuplicateParam(t *testing.T) {
	diags := mustParseAndValidate(t, `FUNCAO INT f(INT a, STR a, BOOL a) { RETORNA 1; }`)
	assertDiagCodes(t, diags, diagnostics.EDupParam, diagnostics.EDupParam)
	if diags[0].Span == nil || diags[0].Span.StartCol != 21 {
		t.Errorf("expected span on the second parameter, got %+v", diags[0].Span)
	}
}

func TestNestedDeclarationsAreChecked(t *testing.T) {
	src := `
FUNCAO INT fora() {
	FUNCAO INT dentro(INT x, INT x) { RETORNA x; }
	PARA STR s DE 1 ATE 2 FACA FIMPARA
	RETORNA 0;
}
`
	assertDiagCodes(t, mustParseAndValidate(t, src), diagnostics.EDupParam)
}

func TestForLoopAcceptsAnyDeclaredType(t *testing.T) {
	for _, typ := range []string{"INT", "BOOL", "STR"} {
		src := "PARA " + typ + " i DE 0 ATE 1 FACA IMPRIME i; FIMPARA"
		assertDiagCodes(t, mustParseAndValidate(t, src))
	}
}
