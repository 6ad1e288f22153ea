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
	Store    ImageStore
	Searcher Searcher
	Version  string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "imgindex-server",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_images",
		Description: "Search uploaded images by description. Returns image URLs ordered by relevance. Use get_image for titles and marketing copy.",
	}, makeSearchHandler(cfg.Searcher))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_image",
		Description: "Retrieve the indexed record of an image by pathname, including its title, marketing description and AI description.",
	}, makeGetImageHandler(cfg.Store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_images",
		Description: "List the pathnames of all indexed images, optionally filtered by visibility.",
	}, makeListHandler(cfg.Store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the current status of the image index including total, public and private image counts.",
	}, makeStatusHandler(cfg.Store))

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
