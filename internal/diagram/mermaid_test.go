package diagram

import (
	"strings"
	"testing"
)

func TestMermaid(t *testing.T) {
	spec := Spec{
		Nodes: []Node{
			{ID: "user", Label: "User Input"},
			{ID: "gen", Label: "Generator\nAgent", Shape: ShapeHexagon},
			{ID: "db", Label: "pgvector DB", Shape: ShapeEllipse},
		},
		Edges: []Edge{
			{From: "user", To: "gen", Label: "auto"},
			{From: "gen", To: "db", Decision: true},
			{From: "gen", To: "missing"},
		},
	}

	out := Mermaid(spec)
	for _, want := range []string{
		"graph LR",
		`user["User Input"]`,
		`gen{{"Generator<br/>Agent"}}`,
		`db(("pgvector DB"))`,
		"user -->|auto| gen",
		"gen -.-> db",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "missing") {
		t.Error("dangling edge should be dropped")
	}
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"main.go", "main_go"},
		{"qa-agent", "qa_agent"},
		{"tool node", "tool_node"},
	}
	for _, tt := range tests {
		got := sanitizeID(tt.input)
		if got != tt.want {
			t.Errorf("sanitizeID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEscapeMermaid(t *testing.T) {
	got := escapeMermaid("Q&A Agent (Template)")
	if strings.Contains(got, "(") || strings.Contains(got, ")") {
		t.Errorf("expected escaped parens, got: %s", got)
	}
	got = escapeMermaid(`say "hi" <b>`)
	if !strings.Contains(got, "#quot;") || !strings.Contains(got, "#lt;") {
		t.Errorf("expected escaped quotes and angle brackets, got: %s", got)
	}
}

func TestSpecHelpers(t *testing.T) {
	spec := Spec{Container: "flow", Nodes: []Node{{ID: "a"}}, Edges: []Edge{{From: "a", To: "b"}, {From: "a", To: "a"}}}
	if spec.Name() != "flow" {
		t.Errorf("Name = %q, want container fallback", spec.Name())
	}
	if d := spec.Dangling(); len(d) != 1 || d[0].To != "b" {
		t.Errorf("Dangling = %+v", d)
	}
	if !Shape("").Valid() || !ShapeBlob.Valid() || Shape("star").Valid() {
		t.Error("Shape.Valid mismatch")
	}
}
