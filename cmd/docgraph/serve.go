package main

import (
	"context"
	"fmt"
	"log/slog"

	"docgraph/internal/mcp"
	"docgraph/internal/server"
	"docgraph/internal/site"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	serveAddr string

	mcpHTTPAddr string
	mcpEndpoint string
)

// newHolder scans the corpus and returns a holder that rescans on reload.
func newHolder(ctx context.Context) (*site.Holder, error) {
	load := func(ctx context.Context) (*site.Site, error) {
		return site.Build(ctx, cfg)
	}
	initial, err := load(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("corpus loaded", "root", cfg.Project.Root, "documents", len(initial.Graph.Nodes))
	return site.NewHolder(initial, load), nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the corpus graph, search and checks over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gin.SetMode(cfg.Server.Mode)
		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		holder, err := newHolder(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("🌐 Serving %s on %s\n", cfg.Project.Root, addr)
		return server.New(holder).Run(addr)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server exposing document, search and check tools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		holder, err := newHolder(cmd.Context())
		if err != nil {
			return err
		}
		return mcp.Serve(mcp.NewServer(holder), mcpHTTPAddr, mcpEndpoint)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")

	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "Serve streamable HTTP on this address instead of stdio (e.g. ':8081')")
	mcpCmd.Flags().StringVar(&mcpEndpoint, "endpoint", "/mcp", "HTTP endpoint path")
}
