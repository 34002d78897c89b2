package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/deckviz/internal/deck"
	"github.com/ziadkadry99/deckviz/internal/diagram"
	"github.com/ziadkadry99/deckviz/internal/dispatch"
	"github.com/ziadkadry99/deckviz/internal/gate"
	"github.com/ziadkadry99/deckviz/internal/site"
)

// handleListSlides returns one line per slide.
func (s *Server) handleListSlides(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d slide(s)\n\n", s.deck.Title, len(s.deck.Slides))
	for i, sl := range s.deck.Slides {
		fmt.Fprintf(&sb, "%d. %s", i+1, sl.ID)
		if sl.Title != "" {
			fmt.Fprintf(&sb, " (%s)", sl.Title)
		}
		var parts []string
		if n := len(sl.Diagrams); n > 0 {
			parts = append(parts, fmt.Sprintf("%d diagram(s)", n))
		}
		if n := len(sl.Charts); n > 0 {
			parts = append(parts, fmt.Sprintf("%d chart(s)", n))
		}
		if sl.Fragments > 0 {
			parts = append(parts, fmt.Sprintf("%d fragment(s)", sl.Fragments))
		}
		if len(parts) > 0 {
			sb.WriteString(" - " + strings.Join(parts, ", "))
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetSlide returns a slide as markdown.
func (s *Server) handleGetSlide(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sl, errResult := s.slide(request)
	if errResult != nil {
		return errResult, nil
	}
	return mcp.NewToolResultText(formatSlide(sl)), nil
}

// handleRenderSlide runs the slide through the dispatcher on a fresh page.
func (s *Server) handleRenderSlide(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sl, errResult := s.slide(request)
	if errResult != nil {
		return errResult, nil
	}

	page, err := site.BuildPage(s.deck, site.PageOptions{})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("building page: %v", err)), nil
	}
	disp := dispatch.New(s.deck, page,
		dispatch.WithLogger(s.logger),
		dispatch.WithRenderer(diagram.NewRenderer(diagram.WithDefaults(s.stagger), diagram.WithLogger(s.logger))),
		dispatch.WithGate(gate.New("mcp", gate.WithMaxAttempts(1), gate.WithLogger(s.logger))),
	)
	rep, err := disp.Handle(ctx, dispatch.Event{Kind: dispatch.KindSlideChanged, SlideID: sl.ID})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}

	if request.GetString("format", "summary") == "json" {
		b, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encoding report: %v", err)), nil
		}
		return mcp.NewToolResultText(string(b)), nil
	}
	return mcp.NewToolResultText(formatReport(rep)), nil
}

// slide resolves the slide_id argument. A non-nil result is the error to
// return to the caller.
func (s *Server) slide(request mcp.CallToolRequest) (*deck.Slide, *mcp.CallToolResult) {
	id, err := request.RequireString("slide_id")
	if err != nil {
		return nil, mcp.NewToolResultError("missing required parameter: slide_id")
	}
	sl, ok := s.deck.Slide(id)
	if !ok {
		return nil, mcp.NewToolResultError(fmt.Sprintf(
			"No slide %q. Use list_slides to see the available ids.", id))
	}
	return sl, nil
}

func formatSlide(sl *deck.Slide) string {
	var sb strings.Builder
	title := sl.Title
	if title == "" {
		title = sl.ID
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if body := strings.TrimSpace(sl.Body); body != "" {
		sb.WriteString(body + "\n\n")
	}
	for _, spec := range sl.Diagrams {
		fmt.Fprintf(&sb, "## Diagram %s\n\n```mermaid\n%s```\n\n", spec.Container, diagram.Mermaid(spec))
	}
	for _, c := range sl.Charts {
		fmt.Fprintf(&sb, "## Chart %s (%s)\n\n", c.Canvas, c.Config.Type)
		if len(c.Config.Labels) > 0 {
			fmt.Fprintf(&sb, "Labels: %s\n", strings.Join(c.Config.Labels, ", "))
		}
		for _, ds := range c.Config.Datasets {
			fmt.Fprintf(&sb, "- %s: %v\n", ds.Label, ds.Data)
		}
		sb.WriteString("\n")
	}
	if notes := strings.TrimSpace(sl.Notes); notes != "" {
		sb.WriteString("## Speaker notes\n\n" + notes + "\n")
	}
	return sb.String()
}

func formatReport(rep dispatch.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Slide %s: %d diagram(s), %d chart(s)\n", rep.SlideID, len(rep.Fragments), len(rep.Charts))
	for _, f := range rep.Fragments {
		fmt.Fprintf(&sb, "\n--- %s ---\n", f.Container)
		fmt.Fprintf(&sb, "Nodes: %d, Edges: %d, Steps: %d\n", f.Result.Nodes, f.Result.Edges, len(f.Result.Steps))
		fmt.Fprintf(&sb, "<svg viewBox=%q>%s</svg>\n", f.ViewBox, f.HTML)
	}
	for _, b := range rep.Charts {
		fmt.Fprintf(&sb, "\n--- %s ---\n%s\n", b.Canvas, b.Config)
	}
	if len(rep.Skipped) > 0 {
		fmt.Fprintf(&sb, "\nSkipped: %s\n", strings.Join(rep.Skipped, ", "))
	}
	return sb.String()
}
