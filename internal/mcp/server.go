package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Answerer Answerer
	Searcher Searcher
	Status   StatusReader
	Version  string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "uwp-rag-server",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question about the University of Wisconsin-Parkside from its website, with numbered citations and source pages.",
	}, makeAskHandler(cfg.Answerer))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_context",
		Description: "Retrieve the UW-Parkside website passages most similar to a query, with similarity scores. No answer is generated.",
	}, makeSearchHandler(cfg.Searcher))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_ingest_status",
		Description: "Get the status of the latest website crawl and index build: state, page and chunk counts, timestamps and error.",
	}, makeStatusHandler(cfg.Status))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
