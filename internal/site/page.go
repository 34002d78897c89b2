// Package site builds the presentation page and its static export.
package site

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ziadkadry99/deckviz/internal/deck"
	"github.com/ziadkadry99/deckviz/internal/diagram"
	"github.com/ziadkadry99/deckviz/internal/dom"
)

// Element ids of the data islands in the page.
const (
	ConfigScriptID    = deck.ConfigElementID
	FragmentsScriptID = deck.FragmentsElementID
)

// DefaultSocketPath is where live pages open their websocket.
const DefaultSocketPath = "/ws/deck"

const defaultDiagramHeight = 400

// PageOptions controls how BuildPage assembles the page.
type PageOptions struct {
	// Live pages request fragments over a websocket instead of reading the
	// embedded table.
	Live       bool
	SocketPath string
	// GateMs and ChartRetryMs are the client-side poll intervals.
	GateMs       int
	ChartRetryMs int
}

type vizData struct {
	Container string
	Height    string
}

type chartData struct {
	Canvas string
}

type slideData struct {
	ID       string
	Class    string
	Title    string
	Body     template.HTML
	Notes    template.HTML
	Diagrams []vizData
	Charts   []chartData
}

// pageData holds the data passed to the page template.
type pageData struct {
	Title         string
	Author        string
	RevealCDN     string
	ChartCDN      string
	PluginScripts []string
	Stylesheet    template.CSS
	ClientJS      template.JS
	Slides        []slideData
}

// plugins maps a deck plugin name to its script and global.
var plugins = map[string]struct {
	Script string
	Global string
}{
	"highlight": {Script: "/plugin/highlight/highlight.js", Global: "RevealHighlight"},
	"notes":     {Script: "/plugin/notes/notes.js", Global: "RevealNotes"},
	"math":      {Script: "/plugin/math/math.js", Global: "RevealMath"},
}

var pageTmpl = template.Must(template.New("page").Parse(pageTemplate))

// newMarkdown returns the goldmark converter used for slide bodies and notes.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
}

// renderMarkdown converts src and turns mermaid code blocks into mermaid divs.
func renderMarkdown(md goldmark.Markdown, src string, opts ...parser.ParseOption) (template.HTML, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf, opts...); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return template.HTML(postProcessMermaid(buf.String())), nil
}

// postProcessMermaid converts <pre><code class="language-mermaid">...</code></pre>
// blocks into <div class="mermaid">...</div> for Mermaid.js rendering.
func postProcessMermaid(html string) string {
	const openTag = `<pre><code class="language-mermaid">`
	const closeTag = `</code></pre>`

	for {
		idx := strings.Index(html, openTag)
		if idx == -1 {
			break
		}
		endIdx := strings.Index(html[idx:], closeTag)
		if endIdx == -1 {
			break
		}
		endIdx += idx

		mermaidContent := html[idx+len(openTag) : endIdx]
		replacement := `<div class="mermaid">` + mermaidContent + `</div>`
		html = html[:idx] + replacement + html[endIdx+len(closeTag):]
	}

	return html
}

// BuildPage renders the reveal.js page for d. Every diagram gets an empty
// <svg> container and every chart a <canvas>; nothing is drawn yet.
func BuildPage(d *deck.Deck, opts PageOptions) (*dom.Document, error) {
	if opts.SocketPath == "" {
		opts.SocketPath = DefaultSocketPath
	}
	md := newMarkdown()
	ids := newHeadingIDs(d)
	// Fresh context per conversion, shared id table across the page.
	withIDs := func() parser.ParseOption {
		return parser.WithContext(parser.NewContext(parser.WithIDs(ids)))
	}

	data := pageData{
		Title:      d.Title,
		Author:     d.Author,
		RevealCDN:  revealCDN,
		ChartCDN:   chartCDN,
		Stylesheet: template.CSS(diagram.Stylesheet + deckCSS),
		ClientJS:   template.JS(clientJS),
	}
	var globals []string
	for _, name := range d.Options.Plugins {
		p, ok := plugins[name]
		if !ok {
			continue
		}
		data.PluginScripts = append(data.PluginScripts, revealCDN+p.Script)
		globals = append(globals, p.Global)
	}

	for _, s := range d.Slides {
		body, err := renderMarkdown(md, s.Body, withIDs())
		if err != nil {
			return nil, fmt.Errorf("slide %s body: %w", s.ID, err)
		}
		notes, err := renderMarkdown(md, s.Notes, withIDs())
		if err != nil {
			return nil, fmt.Errorf("slide %s notes: %w", s.ID, err)
		}
		sd := slideData{ID: s.ID, Class: s.Class, Title: s.Title, Body: body, Notes: notes}
		for _, spec := range s.Diagrams {
			h := spec.Height
			if h <= 0 {
				h = defaultDiagramHeight
			}
			sd.Diagrams = append(sd.Diagrams, vizData{
				Container: spec.Container,
				Height:    strconv.FormatFloat(h, 'f', -1, 64),
			})
		}
		for _, c := range s.Charts {
			sd.Charts = append(sd.Charts, chartData{Canvas: c.Canvas})
		}
		data.Slides = append(data.Slides, sd)
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing page template: %w", err)
	}
	doc, err := dom.Parse(&buf)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	for _, s := range d.Slides {
		markFragments(doc, s.ID, s.Steps())
	}

	cfg, err := json.Marshal(clientConfig(d.Options, globals, opts))
	if err != nil {
		return nil, fmt.Errorf("encoding client config: %w", err)
	}
	doc.ByID(ConfigScriptID).AppendText(string(cfg))
	return doc, nil
}

// EmbedFragments stores the pre-rendered fragment table in the page.
func EmbedFragments(doc *dom.Document, table any) error {
	el := doc.ByID(FragmentsScriptID)
	if el == nil {
		return fmt.Errorf("page has no #%s element", FragmentsScriptID)
	}
	b, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encoding fragments: %w", err)
	}
	el.Clear()
	el.AppendText(string(b))
	return nil
}

// markFragments makes the first n list items of a slide step in one at a time.
func markFragments(doc *dom.Document, slideID string, n int) {
	if n <= 0 {
		return
	}
	section := doc.ByID(slideID)
	if section == nil {
		return
	}
	items := section.FindAll(func(e *dom.Element) bool { return e.Tag() == "li" })
	for i := 0; i < n && i < len(items); i++ {
		items[i].AddClass("fragment")
	}
}

func clientConfig(o deck.Options, globals []string, opts PageOptions) map[string]any {
	reveal := map[string]any{
		"hash":     o.Hash,
		"controls": o.Controls,
		"progress": o.Progress,
		"center":   o.Center,
	}
	if o.Transition != "" {
		reveal["transition"] = o.Transition
	}
	if o.BackgroundTransition != "" {
		reveal["backgroundTransition"] = o.BackgroundTransition
	}
	if o.Width > 0 {
		reveal["width"] = o.Width
	}
	if o.Height > 0 {
		reveal["height"] = o.Height
	}
	if o.Margin > 0 {
		reveal["margin"] = o.Margin
	}
	if o.MinScale > 0 {
		reveal["minScale"] = o.MinScale
	}
	if o.MaxScale > 0 {
		reveal["maxScale"] = o.MaxScale
	}

	gateMs := opts.GateMs
	if gateMs <= 0 {
		gateMs = 100
	}
	retryMs := opts.ChartRetryMs
	if retryMs <= 0 {
		retryMs = 500
	}
	if globals == nil {
		globals = []string{}
	}
	return map[string]any{
		"reveal":       reveal,
		"plugins":      globals,
		"live":         opts.Live,
		"socket":       opts.SocketPath,
		"gateMs":       gateMs,
		"chartRetryMs": retryMs,
	}
}
