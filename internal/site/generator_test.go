package site

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ziadkadry99/deckviz/internal/deck"
	"github.com/ziadkadry99/deckviz/internal/diagram"
	"github.com/ziadkadry99/deckviz/internal/dispatch"
	"github.com/ziadkadry99/deckviz/internal/dom"
	"github.com/ziadkadry99/deckviz/internal/gate"
)

func defaultDeck(t *testing.T) *deck.Deck {
	t.Helper()
	d, err := deck.Default()
	if err != nil {
		t.Fatalf("default deck: %v", err)
	}
	return d
}

func TestBuildPage(t *testing.T) {
	doc, err := BuildPage(defaultDeck(t), PageOptions{})
	if err != nil {
		t.Fatalf("BuildPage: %v", err)
	}

	for _, id := range []string{"title", "architecture", "agent-flow-diagram", "parallel-chart", "rag-flow", "sql-generator-flow"} {
		if !doc.Has(id) {
			t.Errorf("page has no #%s", id)
		}
	}

	svg := doc.ByID("agent-flow-diagram")
	if svg.Tag() != "svg" {
		t.Errorf("container tag = %q, want svg", svg.Tag())
	}
	if h, _ := svg.Attr("height"); h != "600" {
		t.Errorf("container height = %q, want 600", h)
	}
	if n := len(svg.Children()); n != 0 {
		t.Errorf("container should start empty, has %d children", n)
	}
	if doc.ByID("parallel-chart").Tag() != "canvas" {
		t.Error("chart target should be a canvas")
	}
}

func TestBuildPageClientConfig(t *testing.T) {
	doc, err := BuildPage(defaultDeck(t), PageOptions{Live: true})
	if err != nil {
		t.Fatalf("BuildPage: %v", err)
	}

	var cfg struct {
		Reveal  map[string]any `json:"reveal"`
		Plugins []string       `json:"plugins"`
		Live    bool           `json:"live"`
		Socket  string         `json:"socket"`
		GateMs  int            `json:"gateMs"`
	}
	if err := json.Unmarshal([]byte(doc.ByID(ConfigScriptID).Text()), &cfg); err != nil {
		t.Fatalf("decoding config: %v", err)
	}
	if !cfg.Live || cfg.Socket != DefaultSocketPath {
		t.Errorf("live = %v socket = %q", cfg.Live, cfg.Socket)
	}
	if cfg.GateMs != 100 {
		t.Errorf("gateMs = %d, want 100", cfg.GateMs)
	}
	if cfg.Reveal["width"] != float64(1920) || cfg.Reveal["transition"] != "slide" || cfg.Reveal["backgroundTransition"] != "fade" {
		t.Errorf("reveal options = %v", cfg.Reveal)
	}
	want := []string{"RevealHighlight", "RevealNotes", "RevealMath"}
	if strings.Join(cfg.Plugins, ",") != strings.Join(want, ",") {
		t.Errorf("plugins = %v, want %v", cfg.Plugins, want)
	}
}

func TestBuildPageFragments(t *testing.T) {
	doc, err := BuildPage(defaultDeck(t), PageOptions{})
	if err != nil {
		t.Fatalf("BuildPage: %v", err)
	}

	count := func(slide string) int {
		return len(doc.ByID(slide).ByClass("fragment"))
	}
	if got := count("lessons"); got != 3 {
		t.Errorf("lessons fragments = %d, want 3", got)
	}
	if got := count("problem-statement"); got != 2 {
		t.Errorf("problem-statement fragments = %d, want 2", got)
	}
	if got := count("future"); got != 0 {
		t.Errorf("future fragments = %d, want 0", got)
	}
}

func TestBuildPageFragmentsCappedByListItems(t *testing.T) {
	d := &deck.Deck{Slides: []deck.Slide{
		{ID: "points", Fragments: 4, Body: "- one\n- two\n"},
	}}
	doc, err := BuildPage(d, PageOptions{})
	if err != nil {
		t.Fatalf("BuildPage: %v", err)
	}
	if got := len(doc.ByID("points").ByClass("fragment")); got != 2 {
		t.Errorf("fragments = %d, want 2", got)
	}
}

func TestHeadingIDsAvoidDeclaredIDs(t *testing.T) {
	d := &deck.Deck{Slides: []deck.Slide{
		{
			ID:    "intro",
			Body:  "## Pipeline\n\n## Intro\n\n## Deck Config\n",
			Notes: "## Pipeline\n",
			Diagrams: []diagram.Spec{{
				Container: "pipeline",
				Nodes:     []diagram.Node{{ID: "a", X: 10, Y: 10}, {ID: "b", X: 200, Y: 10}},
				Edges:     []diagram.Edge{{From: "a", To: "b"}},
			}},
		},
		{ID: "later", Body: "# Results\n"},
		{ID: "results", Title: "Results"},
	}}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	doc, err := BuildPage(d, PageOptions{})
	if err != nil {
		t.Fatalf("BuildPage: %v", err)
	}

	for id, tag := range map[string]string{
		"pipeline":      "svg",
		"intro":         "section",
		"results":       "section",
		"deck-config":   "script",
		"pipeline-1":    "h2",
		"pipeline-2":    "h2",
		"intro-1":       "h2",
		"deck-config-1": "h2",
		"results-1":     "h1",
	} {
		el := doc.ByID(id)
		if el == nil {
			t.Errorf("no element #%s", id)
			continue
		}
		if el.Tag() != tag {
			t.Errorf("#%s is <%s>, want <%s>", id, el.Tag(), tag)
		}
	}

	disp := dispatch.New(d, doc, dispatch.WithGate(gate.New("test", gate.WithMaxAttempts(1))))
	rep, err := disp.Handle(context.Background(), dispatch.Event{Kind: dispatch.KindReady})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(rep.Fragments) != 1 {
		t.Fatalf("rendered %d diagrams, want 1", len(rep.Fragments))
	}
	svg := doc.ByID("pipeline")
	if len(svg.Children()) == 0 {
		t.Error("svg container left empty")
	}
	if heading := doc.ByID("pipeline-1"); len(heading.Children()) != 0 {
		t.Errorf("heading has %d child elements, want 0", len(heading.Children()))
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := newMarkdown()

	out, err := renderMarkdown(md, "| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "<table>") {
		t.Errorf("GFM table not rendered: %s", out)
	}

	out, err = renderMarkdown(md, "   ")
	if err != nil || out != "" {
		t.Errorf("blank markdown = %q, %v", out, err)
	}
}

func TestPostProcessMermaid(t *testing.T) {
	input := `<p>before</p><pre><code class="language-mermaid">graph TD
A --&gt; B</code></pre><p>after</p>`
	got := postProcessMermaid(input)
	if strings.Contains(got, "language-mermaid") {
		t.Error("code block should be replaced")
	}
	if !strings.Contains(got, `<div class="mermaid">graph TD`) {
		t.Errorf("unexpected output: %s", got)
	}
	if !strings.HasSuffix(got, "<p>after</p>") {
		t.Errorf("trailing content lost: %s", got)
	}
}

func TestGenerate(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "dist")
	writeFile(t, filepath.Join(root, "assets", "logo.png"), "png")
	writeFile(t, filepath.Join(root, "assets", "fonts", "inter.woff2"), "font")
	writeFile(t, filepath.Join(root, "assets", "scratch.tmp"), "tmp")

	g := NewGenerator(defaultDeck(t), out)
	g.AssetRoot = root
	g.Assets = []string{"assets/**"}
	g.Exclude = []string{"**/*.tmp"}

	stats, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if stats.Slides != 16 {
		t.Errorf("slides = %d, want 16", stats.Slides)
	}
	if stats.Diagrams != 9 {
		t.Errorf("diagrams = %d, want 9", stats.Diagrams)
	}
	if stats.Charts != 4 {
		t.Errorf("charts = %d, want 4", stats.Charts)
	}
	if stats.Assets != 2 {
		t.Errorf("assets = %d, want 2", stats.Assets)
	}
	if len(stats.Skipped) != 0 {
		t.Errorf("skipped = %v", stats.Skipped)
	}

	if _, err := os.Stat(filepath.Join(out, "assets", "fonts", "inter.woff2")); err != nil {
		t.Errorf("nested asset not copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "assets", "scratch.tmp")); !os.IsNotExist(err) {
		t.Error("excluded asset should not be copied")
	}

	data, err := os.ReadFile(filepath.Join(out, "index.html"))
	if err != nil {
		t.Fatalf("reading index.html: %v", err)
	}
	doc, err := dom.ParseString(string(data))
	if err != nil {
		t.Fatal(err)
	}

	// Containers ship empty; markup lives only in the fragment table.
	if n := len(doc.ByID("agent-flow-diagram").Children()); n != 0 {
		t.Errorf("exported container has %d children", n)
	}
	var table []struct {
		Slide     string `json:"slide"`
		Fragments []struct {
			Container string `json:"container"`
			ViewBox   string `json:"view_box"`
			HTML      string `json:"html"`
		} `json:"fragments"`
		Charts []struct {
			Canvas string `json:"canvas"`
		} `json:"charts"`
	}
	if err := json.Unmarshal([]byte(doc.ByID(FragmentsScriptID).Text()), &table); err != nil {
		t.Fatalf("decoding fragment table: %v", err)
	}
	if len(table) != 16 {
		t.Fatalf("table rows = %d, want 16", len(table))
	}
	arch := table[3]
	if arch.Slide != "architecture" || len(arch.Fragments) != 1 {
		t.Fatalf("architecture row = %+v", arch)
	}
	if arch.Fragments[0].ViewBox != "0 0 1400 600" {
		t.Errorf("viewBox = %q", arch.Fragments[0].ViewBox)
	}
	if !strings.Contains(arch.Fragments[0].HTML, `data-node="generator"`) {
		t.Error("architecture fragment missing generator node")
	}
	if table[4].Slide != "parallel-processing" || len(table[4].Charts) != 1 {
		t.Errorf("parallel row = %+v", table[4])
	}
}

func TestFreePort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}
	defer l.Close()
	taken := l.Addr().(*net.TCPAddr).Port

	port, err := FreePort("127.0.0.1", taken, 20)
	if err != nil {
		t.Fatalf("FreePort: %v", err)
	}
	if port == taken {
		t.Error("FreePort returned a bound port")
	}
	if port < taken || port >= taken+20 {
		t.Errorf("port %d outside scanned range", port)
	}

	if _, err := FreePort("127.0.0.1", taken, 1); err == nil {
		t.Error("expected error when the only candidate is taken")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
