package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ziadkadry99/deckviz/internal/deck"
	"github.com/ziadkadry99/deckviz/internal/diagram"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the deck to agents.
type Server struct {
	deck    *deck.Deck
	stagger diagram.Stagger
	logger  *zap.Logger
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server for d.
func NewServer(d *deck.Deck, stagger diagram.Stagger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		deck:    d,
		stagger: stagger,
		logger:  logger,
	}

	s.mcp = server.NewMCPServer(
		"deckviz",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(listSlidesTool, s.handleListSlides)
	s.mcp.AddTool(getSlideTool, s.handleGetSlide)
	s.mcp.AddTool(renderSlideTool, s.handleRenderSlide)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
