package help

import (
	"strings"
	"testing"

	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
	"github.com/drumondpe/APS-LogComp/pkg/parser"
)

func TestQUICKREFNonEmpty(t *testing.T) {
	if len(QUICKREF) == 0 {
		t.Fatal("QUICKREF is empty")
	}
}

func TestQUICKREFContainsVersion(t *testing.T) {
	if !strings.Contains(QUICKREF, Version) {
		t.Errorf("QUICKREF does not contain version string %s", Version)
	}
}

func TestQUICKREFListsTopics(t *testing.T) {
	for _, topic := range TopicList {
		if !strings.Contains(QUICKREF, topic) {
			t.Errorf("QUICKREF does not mention topic %q", topic)
		}
	}
}

func TestTopicListMatchesTopics(t *testing.T) {
	for _, name := range TopicList {
		if _, ok := Topics[name]; !ok {
			t.Errorf("TopicList entry %q not in Topics map", name)
		}
	}
	if len(Topics) != len(TopicList) {
		t.Errorf("expected %d topics, got %d", len(TopicList), len(Topics))
	}
}

func TestTopicsNonEmpty(t *testing.T) {
	for name, content := range Topics {
		if len(content) == 0 {
			t.Errorf("topic %q has empty content", name)
		}
	}
}

func TestMatchTopicExact(t *testing.T) {
	name, content, err := MatchTopic("syntax")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "syntax" {
		t.Errorf("expected name 'syntax', got %q", name)
	}
	if content == "" {
		t.Error("expected non-empty content")
	}
}

func TestMatchTopicPrefix(t *testing.T) {
	tests := map[string]string{
		"diag":   "diagnostics",
		"ex":     "examples",
		"KEY":    "keywords",
		" fl ":   "flow",
		"func":   "functions",
		"config": "config",
	}
	for in, want := range tests {
		name, _, err := MatchTopic(in)
		if err != nil {
			t.Errorf("MatchTopic(%q) error: %v", in, err)
			continue
		}
		if name != want {
			t.Errorf("MatchTopic(%q) = %q, want %q", in, name, want)
		}
	}
}

func TestMatchTopicAmbiguous(t *testing.T) {
	_, _, err := MatchTopic("f")
	if err == nil || !strings.Contains(err.Error(), "flow, functions") {
		t.Errorf("expected ambiguity error, got %v", err)
	}
}

func TestMatchTopicUnknown(t *testing.T) {
	for _, name := range []string{"nonexistent", ""} {
		if _, _, err := MatchTopic(name); err == nil {
			t.Errorf("expected error for %q", name)
		}
	}
}

func TestKeywordIndex(t *testing.T) {
	idx := KeywordIndex()
	if !strings.Contains(idx, "Total: 33 keywords") {
		t.Errorf("KeywordIndex should report 33 keywords, got:\n%s", idx)
	}
	for _, w := range []string{"FIMENQUANTO", "MAIORIGUAL", "VERDADEIRO"} {
		if !strings.Contains(idx, w) {
			t.Errorf("KeywordIndex missing %s", w)
		}
	}
	if Topics["keywords"] != "KEYWORDS\n\n"+idx {
		t.Error("keywords topic does not embed the index")
	}
}

func TestMatchTopicAllExact(t *testing.T) {
	for _, topic := range TopicList {
		name, content, err := MatchTopic(topic)
		if err != nil {
			t.Errorf("MatchTopic(%q) error: %v", topic, err)
			continue
		}
		if name != topic {
			t.Errorf("MatchTopic(%q) returned name %q", topic, name)
		}
		if content == "" {
			t.Errorf("MatchTopic(%q) returned empty content", topic)
		}
	}
}

func TestCodeExamplesParse(t *testing.T) {
	var sources []string
	for _, line := range strings.Split(Topics["functions"], "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "FUNCAO") {
			sources = append(sources, line)
		}
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 function examples, got %d", len(sources))
	}
	examples := strings.TrimPrefix(Topics["examples"], "EXAMPLES\n")
	sources = append(sources, examples, "FUNCAO INT dobro(INT n) { RETORNA n * 2; }")

	for _, src := range sources {
		if _, diags := parser.Parse(src, "help.aps"); len(diags) > 0 {
			t.Errorf("example does not parse:\n%s\n%s", src, diagnostics.FormatDiagnostics(diags, true))
		}
	}
}
