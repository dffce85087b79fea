package mcp

import (
	"context"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/oldnordic/llmgrep/internal/backend"
	"github.com/oldnordic/llmgrep/internal/config"
)

const (
	// ServerName is the MCP server name
	ServerName = "llmgrep"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	backend backend.Backend
	config  *config.Config
}

// NewServer creates an MCP server answering queries from b. Search
// defaults come from cfg.
func NewServer(b backend.Backend, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		backend: b,
		config:  cfg,
	}
	s.mcp.AddTools(s.tools()...)
	return s
}

// Serve runs the protocol on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	return s.ServeIO(ctx, os.Stdin, os.Stdout)
}

// ServeIO runs the protocol over the given streams
func (s *Server) ServeIO(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// tools pairs every tool definition with its handler
func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: searchSymbolsTool(), Handler: s.handleSearchSymbols},
		{Tool: searchReferencesTool(), Handler: s.handleSearchReferences},
		{Tool: searchCallsTool(), Handler: s.handleSearchCalls},
		{Tool: completeTool(), Handler: s.handleComplete},
		{Tool: lookupTool(), Handler: s.handleLookup},
	}
}
