package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"docgraph/internal/config"
	"docgraph/internal/lint"
	"docgraph/internal/site"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHolder(t *testing.T) *site.Holder {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"index.md":   "# Home\n\nSee [logging](logging.md) and [gone](gone.md).\n",
		"logging.md": "# Logging\n\nConfigure the syslog forwarder.\n",
	}
	for rel, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644))
	}
	cfg := config.Default()
	cfg.Project.Root = root
	s, err := site.Build(context.Background(), cfg)
	require.NoError(t, err)
	return site.NewHolder(s, nil)
}

func request(name string, args interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Request: mcp.Request{
			Method: "tools/call",
		},
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestNewServer(t *testing.T) {
	assert.NotNil(t, NewServer(newHolder(t)))
}

func TestGetDocumentHandler(t *testing.T) {
	handler := getDocumentHandler(newHolder(t))
	ctx := context.Background()

	t.Run("Known document", func(t *testing.T) {
		args := GetDocumentRequest{Slug: "/logging"}
		result, err := handler(ctx, request("get_document", args), args)
		require.NoError(t, err)
		assert.False(t, result.IsError)

		var resp GetDocumentResponse
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
		assert.Equal(t, "Logging", resp.Document.Title)
		assert.Equal(t, []string{"index"}, resp.Backlinks)
		assert.Empty(t, resp.Outbound)
	})

	t.Run("Unknown document", func(t *testing.T) {
		args := GetDocumentRequest{Slug: "gone"}
		result, err := handler(ctx, request("get_document", args), args)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("Missing slug", func(t *testing.T) {
		args := GetDocumentRequest{}
		result, err := handler(ctx, request("get_document", args), args)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Equal(t, "slug is required", resultText(t, result))
	})
}

func TestSearchHandler(t *testing.T) {
	handler := searchHandler(newHolder(t))
	ctx := context.Background()

	args := SearchRequest{Query: "syslog"}
	result, err := handler(ctx, request("search_documents", args), args)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "logging", resp.Hits[0].Slug)

	args = SearchRequest{Query: "  "}
	result, err = handler(ctx, request("search_documents", args), args)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestCheckLinksHandler(t *testing.T) {
	handler := checkLinksHandler(newHolder(t))
	args := CheckLinksRequest{}
	result, err := handler(context.Background(), request("check_links", args), args)
	require.NoError(t, err)

	var report lint.Report
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &report))
	assert.True(t, report.HasErrors())

	var dangling []lint.Finding
	for _, f := range report.Findings {
		if f.Rule == "dangling-link" {
			dangling = append(dangling, f)
		}
	}
	require.Len(t, dangling, 1)
	assert.Equal(t, "index", dangling[0].Slug)
}

func TestBacklinksHandler(t *testing.T) {
	handler := backlinksHandler(newHolder(t))
	ctx := context.Background()

	args := BacklinksRequest{Slug: "logging"}
	result, err := handler(ctx, request("backlinks", args), args)
	require.NoError(t, err)

	var resp BacklinksResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	require.Len(t, resp.Backlinks, 1)
	assert.Equal(t, "index", resp.Backlinks[0].From)

	args = BacklinksRequest{Slug: "nope"}
	result, err = handler(ctx, request("backlinks", args), args)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
