package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/sigplace/internal/pdfdoc"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes PDF signing tools.
type Server struct {
	density float64
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server. density is the raster pixels per PDF
// point used when embedding images; zero uses pdfdoc.DefaultDensity.
func NewServer(density float64) *Server {
	if density <= 0 {
		density = pdfdoc.DefaultDensity
	}
	s := &Server{density: density}

	s.mcp = server.NewMCPServer(
		"sigplace",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(pageInfoTool, s.handlePageInfo)
	s.mcp.AddTool(listFieldsTool, s.handleListFields)
	s.mcp.AddTool(stampSignatureTool, s.handleStampSignature)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
