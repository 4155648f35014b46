package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"docgraph/internal/config"
	"docgraph/internal/site"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	files := map[string]string{
		"index.md":          "# Home\n\nStart with the [install guide](guides/install.md).\n",
		"guides/install.md": "# Install\n\nRun the installer.\n\n```bash\nsudo snap install tool\n```\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	cfg := config.Default()
	cfg.Project.Root = root

	load := func(ctx context.Context) (*site.Site, error) { return site.Build(ctx, cfg) }
	initial, err := load(context.Background())
	require.NoError(t, err)
	return New(site.NewHolder(initial, load)), root
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestServer(t *testing.T) {
	s, root := newTestServer(t)

	t.Run("Health", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/healthz")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(2), decode(t, w)["documents"])
	})

	t.Run("List documents", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/api/documents")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Documents []DocumentSummary `json:"documents"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Documents, 2)
		assert.Equal(t, "guides/install", body.Documents[0].Slug)
		assert.Equal(t, 1, body.Documents[0].Backlinks)
		assert.Equal(t, "index", body.Documents[1].Slug)
		assert.Equal(t, 1, body.Documents[1].Outbound)
	})

	t.Run("Get nested document", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/api/documents/guides/install")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		doc := body["document"].(map[string]interface{})
		assert.Equal(t, "Install", doc["title"])
		assert.Len(t, body["backlinks"], 1)
	})

	t.Run("Unknown document", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/api/documents/nope")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "nope", decode(t, w)["slug"])
	})

	t.Run("Render HTML", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/api/render/index")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "<h1>Home</h1>")
		assert.Contains(t, w.Body.String(), `<a href="guides/install.md">install guide</a>`)
	})

	t.Run("Backlinks", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/api/backlinks/guides/install")
		require.Equal(t, http.StatusOK, w.Code)
		links := decode(t, w)["backlinks"].([]interface{})
		require.Len(t, links, 1)
		assert.Equal(t, "index", links[0].(map[string]interface{})["from"])

		w = do(t, s, http.MethodGet, "/api/backlinks/index")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decode(t, w)["backlinks"])
	})

	t.Run("Neighborhood", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/api/neighborhood/index?hops=1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.ElementsMatch(t, []interface{}{"index", "guides/install"}, decode(t, w)["slugs"])
	})

	t.Run("Search", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/api/search?q=installer&limit=1")
		require.Equal(t, http.StatusOK, w.Code)
		hits := decode(t, w)["hits"].([]interface{})
		require.Len(t, hits, 1)
		assert.Equal(t, "guides/install", hits[0].(map[string]interface{})["slug"])

		assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/search").Code)
		assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/search?q=x&limit=0").Code)
	})

	t.Run("Check", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/api/check")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, float64(2), body["documents"])
	})

	t.Run("Reload picks up new files", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(root, "faq.md"), []byte("# FAQ\n\nQuestions.\n"), 0o644))
		w := do(t, s, http.MethodPost, "/api/reload")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(3), decode(t, w)["documents"])
		assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/documents/faq").Code)
	})
}
