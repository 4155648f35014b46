package site

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docgraph/internal/config"
	"docgraph/internal/lint"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpus(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	cfg := config.Default()
	cfg.Project.Root = root
	return cfg
}

func TestBuild(t *testing.T) {
	cfg := writeCorpus(t, map[string]string{
		"index.md":          "# Home\n\nRead the [install guide](guides/install.md).\n",
		"guides/install.md": "# Install\n\nRun the installer and see [nowhere](missing.md).\n",
	})
	ctx := context.Background()

	s, err := Build(ctx, cfg)
	require.NoError(t, err)
	assert.Len(t, s.Graph.Nodes, 2)
	assert.Equal(t, 2, s.Engine.Len())

	hits := s.Engine.Search("installer", 5)
	require.NotEmpty(t, hits)
	assert.Equal(t, "guides/install", hits[0].Slug)

	report := s.Check(ctx)
	require.NotNil(t, report)
	assert.True(t, report.HasErrors())
	assert.Same(t, report, s.Check(ctx))
}

func TestHolder_Reload(t *testing.T) {
	cfg := writeCorpus(t, map[string]string{"index.md": "# Home\n"})
	ctx := context.Background()

	initial, err := Build(ctx, cfg)
	require.NoError(t, err)

	fail := false
	h := NewHolder(initial, func(ctx context.Context) (*Site, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return Build(ctx, cfg)
	})
	assert.Same(t, initial, h.Current())

	t.Run("Swaps in the new site", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.Project.Root, "faq.md"), []byte("# FAQ\n"), 0o644))
		next, err := h.Reload(ctx)
		require.NoError(t, err)
		assert.Same(t, next, h.Current())
		assert.Len(t, h.Current().Graph.Nodes, 2)
	})

	t.Run("Keeps the old site on failure", func(t *testing.T) {
		before := h.Current()
		fail = true
		_, err := h.Reload(ctx)
		assert.Error(t, err)
		assert.Same(t, before, h.Current())
	})

	t.Run("Without loader", func(t *testing.T) {
		static := NewHolder(initial, nil)
		got, err := static.Reload(ctx)
		require.NoError(t, err)
		assert.Same(t, initial, got)
	})
}

func TestSite_CheckInterrupted(t *testing.T) {
	cfg := writeCorpus(t, map[string]string{"index.md": "# Home\n\nText.\n"})
	s, err := Build(context.Background(), cfg)
	require.NoError(t, err)

	runs := 0
	s.Rules = []lint.Rule{{
		Name:     "counting",
		Severity: lint.SeverityInfo,
		Check: func(ctx context.Context, c *lint.Corpus) []lint.Finding {
			runs++
			return nil
		},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first := s.Check(ctx)
	require.NotNil(t, first)
	assert.Equal(t, 1, runs)

	second := s.Check(context.Background())
	assert.Equal(t, 2, runs, "an interrupted run is not reused")
	assert.NotSame(t, first, second)

	assert.Same(t, second, s.Check(context.Background()))
	assert.Equal(t, 2, runs)
}
