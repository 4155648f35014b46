package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html><head><title>Guide Page</title></head>
<body>
<nav>Menu</nav>
<div id="content">
<h1>Guide</h1>
<p>Some <strong>bold</strong> text.</p>
<ul><li><a href="/setup">Setup</a></li></ul>
</div>
</body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs/guide.html" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestImport(t *testing.T) {
	srv := newServer(t)
	root := t.TempDir()
	imp := New(root, srv.Client())
	ctx := context.Background()

	res, err := imp.Import(ctx, srv.URL+"/docs/guide.html", "#content", "")
	require.NoError(t, err)
	assert.Equal(t, "guide", res.Slug)
	assert.Equal(t, "Guide Page", res.Title)
	assert.Equal(t, filepath.Join(root, "guide.md"), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	md := string(data)
	assert.True(t, strings.HasPrefix(md, "---\ntitle: Guide Page\nsource: "+srv.URL+"/docs/guide.html\n---\n\n"), md)
	assert.Contains(t, md, "# Guide")
	assert.Contains(t, md, "**bold**")
	assert.Contains(t, md, "[Setup](")
	assert.NotContains(t, md, "Menu")

	t.Run("Refuses to overwrite", func(t *testing.T) {
		_, err := imp.Import(ctx, srv.URL+"/docs/guide.html", "#content", "guide")
		assert.True(t, errors.Is(err, ErrExists))
	})

	t.Run("Force overwrites", func(t *testing.T) {
		forced := New(root, srv.Client())
		forced.Force = true
		_, err := forced.Import(ctx, srv.URL+"/docs/guide.html", "#content", "guide")
		assert.NoError(t, err)
	})

	t.Run("Nested slug stays under root", func(t *testing.T) {
		res, err := imp.Import(ctx, srv.URL+"/docs/guide.html", "#content", "../outside/how-to")
		require.NoError(t, err)
		assert.Equal(t, "outside/how-to", res.Slug)
		assert.Equal(t, filepath.Join(root, "outside", "how-to.md"), res.Path)
	})

	t.Run("Selector without match", func(t *testing.T) {
		_, err := imp.Import(ctx, srv.URL+"/docs/guide.html", "#missing", "other")
		assert.True(t, errors.Is(err, ErrSelectorNotFound))
	})

	t.Run("HTTP errors", func(t *testing.T) {
		_, err := imp.Import(ctx, srv.URL+"/nope", "body", "nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}
