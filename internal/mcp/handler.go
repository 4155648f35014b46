package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"docgraph/internal/extractor"
	"docgraph/internal/graph"
	"docgraph/internal/knowledge"
	"docgraph/internal/site"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const Version = "0.1.0"

const defaultSearchLimit = 10

type GetDocumentRequest struct {
	Slug string `json:"slug"` // The slug of the document
}

type GetDocumentResponse struct {
	Document  *extractor.Document `json:"document"`
	Outbound  []string            `json:"outbound"`
	Backlinks []string            `json:"backlinks"`
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type SearchResponse struct {
	Hits []knowledge.Hit `json:"hits"`
}

type CheckLinksRequest struct{}

type BacklinksRequest struct {
	Slug string `json:"slug"`
}

type BacklinksResponse struct {
	Slug      string       `json:"slug"`
	Backlinks []graph.Edge `json:"backlinks"`
}

// NewServer creates an MCP server whose tools read the current site of
// holder.
func NewServer(holder *site.Holder) *server.MCPServer {
	s := server.NewMCPServer(
		"docgraph",
		Version,
		server.WithToolCapabilities(false),
	)

	getDocumentTool := mcp.NewTool("get_document",
		mcp.WithDescription("Get a help document with its body, headings and links"),
		mcp.WithString("slug",
			mcp.Required(),
			mcp.Description("Document slug, the path relative to the corpus root without extension (e.g. 'guides/install')"),
		),
	)
	s.AddTool(getDocumentTool, mcp.NewTypedToolHandler(getDocumentHandler(holder)))

	searchTool := mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search over titles, headings, body and code samples"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search terms"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of hits (default 10)"),
		),
	)
	s.AddTool(searchTool, mcp.NewTypedToolHandler(searchHandler(holder)))

	checkTool := mcp.NewTool("check_links",
		mcp.WithDescription("Run the link and content checks over the corpus and return the findings"),
	)
	s.AddTool(checkTool, mcp.NewTypedToolHandler(checkLinksHandler(holder)))

	backlinksTool := mcp.NewTool("backlinks",
		mcp.WithDescription("List the links pointing at a document"),
		mcp.WithString("slug",
			mcp.Required(),
			mcp.Description("Document slug"),
		),
	)
	s.AddTool(backlinksTool, mcp.NewTypedToolHandler(backlinksHandler(holder)))

	return s
}

func getDocumentHandler(holder *site.Holder) func(ctx context.Context, request mcp.CallToolRequest, args GetDocumentRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args GetDocumentRequest) (*mcp.CallToolResult, error) {
		slug := strings.Trim(args.Slug, "/")
		if slug == "" {
			return mcp.NewToolResultError("slug is required"), nil
		}
		g := holder.Current().Graph
		doc, err := g.Document(slug)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		response := GetDocumentResponse{
			Document:  doc,
			Outbound:  []string{},
			Backlinks: []string{},
		}
		for _, n := range g.GetDependencies(slug) {
			response.Outbound = append(response.Outbound, n.Doc.Slug)
		}
		for _, n := range g.GetDependents(slug) {
			response.Backlinks = append(response.Backlinks, n.Doc.Slug)
		}
		return jsonResult(response)
	}
}

func searchHandler(holder *site.Holder) func(ctx context.Context, request mcp.CallToolRequest, args SearchRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args SearchRequest) (*mcp.CallToolResult, error) {
		if strings.TrimSpace(args.Query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := args.Limit
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		hits := holder.Current().Engine.Search(args.Query, limit)
		if hits == nil {
			hits = []knowledge.Hit{}
		}
		return jsonResult(SearchResponse{Hits: hits})
	}
}

func checkLinksHandler(holder *site.Holder) func(ctx context.Context, request mcp.CallToolRequest, args CheckLinksRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args CheckLinksRequest) (*mcp.CallToolResult, error) {
		return jsonResult(holder.Current().Check(ctx))
	}
}

func backlinksHandler(holder *site.Holder) func(ctx context.Context, request mcp.CallToolRequest, args BacklinksRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args BacklinksRequest) (*mcp.CallToolResult, error) {
		slug := strings.Trim(args.Slug, "/")
		if slug == "" {
			return mcp.NewToolResultError("slug is required"), nil
		}
		edges, err := holder.Current().Graph.Backlinks(slug)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if edges == nil {
			edges = []graph.Edge{}
		}
		return jsonResult(BacklinksResponse{Slug: slug, Backlinks: edges})
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseBytes)), nil
}
