package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
)

// Serve runs s over streamable HTTP when httpAddr is set, and over stdio
// otherwise.
func Serve(s *server.MCPServer, httpAddr, endpoint string) error {
	if httpAddr != "" {
		slog.Info("starting MCP server", "transport", "http", "addr", httpAddr, "endpoint", endpoint)
		var opts []server.StreamableHTTPOption
		if endpoint != "" {
			opts = append(opts, server.WithEndpointPath(endpoint))
		}
		return server.NewStreamableHTTPServer(s, opts...).Start(httpAddr)
	}
	slog.Info("starting MCP server", "transport", "stdio")
	return server.ServeStdio(s)
}
