package mcp

import "github.com/mark3labs/mcp-go/mcp"

// listSlidesTool defines the list_slides MCP tool.
var listSlidesTool = mcp.NewTool("list_slides",
	mcp.WithDescription("List every slide of the deck in order with its visualizations."),
)

// getSlideTool defines the get_slide MCP tool.
var getSlideTool = mcp.NewTool("get_slide",
	mcp.WithDescription("Get one slide as markdown: title, body, speaker notes and a Mermaid sketch of each diagram."),
	mcp.WithString("slide_id",
		mcp.Required(),
		mcp.Description("Slide id as listed by list_slides"),
	),
)

// renderSlideTool defines the render_slide MCP tool.
var renderSlideTool = mcp.NewTool("render_slide",
	mcp.WithDescription("Render a slide's diagrams to SVG and its charts to Chart.js configs."),
	mcp.WithString("slide_id",
		mcp.Required(),
		mcp.Description("Slide id as listed by list_slides"),
	),
	mcp.WithString("format",
		mcp.Description("Output format (default summary)"),
		mcp.Enum("summary", "json"),
	),
)
