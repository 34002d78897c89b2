package diagram

import (
	"fmt"
	"strings"
)

// Mermaid renders spec as a mermaid flowchart, for speaker notes and agent
// tooling that cannot display SVG. Dangling edges are dropped the same way
// Render drops them.
func Mermaid(spec Spec) string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	known := make(map[string]bool, len(spec.Nodes))
	for _, n := range spec.Nodes {
		if n.ID == "" || known[n.ID] {
			continue
		}
		known[n.ID] = true
		label := strings.ReplaceAll(escapeMermaid(n.Label), "\n", "<br/>")
		if label == "" {
			label = escapeMermaid(n.ID)
		}
		if n.Icon != "" {
			label = n.Icon + " " + label
		}
		lb, rb := mermaidBrackets(n.Shape)
		fmt.Fprintf(&b, "    %s%s\"%s\"%s\n", sanitizeID(n.ID), lb, label, rb)
	}

	for _, e := range spec.Edges {
		if !known[e.From] || !known[e.To] {
			continue
		}
		arrow := "-->"
		if e.Decision {
			arrow = "-.->"
		}
		if e.Label != "" {
			fmt.Fprintf(&b, "    %s %s|%s| %s\n", sanitizeID(e.From), arrow, escapeMermaid(e.Label), sanitizeID(e.To))
		} else {
			fmt.Fprintf(&b, "    %s %s %s\n", sanitizeID(e.From), arrow, sanitizeID(e.To))
		}
	}

	return b.String()
}

func mermaidBrackets(s Shape) (string, string) {
	switch s {
	case ShapeEllipse:
		return "((", "))"
	case ShapeHexagon:
		return "{{", "}}"
	case ShapeDiamond:
		return "{", "}"
	case ShapeBlob:
		return "([", "])"
	default:
		return "[", "]"
	}
}

// sanitizeID converts a string into a safe mermaid node ID.
func sanitizeID(s string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ".", "_", "-", "_", " ", "_",
		"(", "_", ")", "_", "[", "_", "]", "_", "{", "_", "}", "_", ":", "_",
	)
	return replacer.Replace(s)
}

// escapeMermaid escapes characters that have special meaning in mermaid labels.
func escapeMermaid(s string) string {
	replacer := strings.NewReplacer(
		"\"", "#quot;",
		"(", "#lpar;", ")", "#rpar;",
		"[", "#lsqb;", "]", "#rsqb;",
		"{", "#lbrace;", "}", "#rbrace;",
		"<", "#lt;", ">", "#gt;",
	)
	return replacer.Replace(s)
}
