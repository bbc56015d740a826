package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/hse-assistant/internal/monitor"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies. Monitor may be nil.
type Config struct {
	Assistant Assistant
	Monitor   *monitor.Monitor
	Version   string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "hse-mining-assistant",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_hse_question",
		Description: "Answer a mining health, safety and environment question from the indexed HSE documents. Returns the answer and the documents it is based on.",
	}, makeAskHandler(cfg.Assistant, cfg.Monitor))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_hse_documents",
		Description: "Search the indexed HSE documents semantically and return the most relevant passages without generating an answer.",
	}, makeSearchHandler(cfg.Assistant))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the state of the assistant and its document index: chunk count, embedding model and build time.",
	}, makeStatusHandler(cfg.Assistant))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
