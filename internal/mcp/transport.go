package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewHTTPHandler serves the image tools over Streamable HTTP.
//
// With stateless set, session IDs are not validated and every request runs
// against a throwaway session, which suits load-balanced deployments where a
// follow-up request may land on another replica. The tools never call back
// into the client, so nothing is lost by dropping session state.
func NewHTTPHandler(server *Server, stateless bool) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server.MCPServer()
	}, &mcp.StreamableHTTPOptions{Stateless: stateless})
}
