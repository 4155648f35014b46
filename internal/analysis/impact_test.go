package analysis

import (
	"context"
	"testing"

	"docgraph/internal/extractor"
	"docgraph/internal/git"
	"docgraph/internal/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T, files map[string]string) *graph.Graph {
	t.Helper()
	ext, err := extractor.NewExtractor("markdown", "maas")
	require.NoError(t, err)
	g := graph.NewGraph()
	for path, content := range files {
		doc, err := ext.Extract(context.Background(), path, []byte(content))
		require.NoError(t, err)
		g.AddDocument(doc)
	}
	g.LinkRelations()
	return g
}

func TestAnalyzeImpact(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"index.md": "# Home\n\n[setup](setup.md)\n",
		"setup.md": "# Setup\n\nIntro.\n\n## Install\n\nSteps.\n\n## Verify\n\nCheck.\n",
		"other.md": "# Other\n\n[old](old.md)\n",
	})

	report, err := NewAnalyzer(g).AnalyzeImpact([]git.ChangedFile{
		{Path: "setup.md", ChangedLines: []int{7}},
		{Path: "setup.md", ChangedLines: []int{11}},
		{Path: "old.md", Deleted: true},
		{Path: "README.txt", ChangedLines: []int{1}},
	}, []string{"old"})
	require.NoError(t, err)

	t.Run("Direct", func(t *testing.T) {
		require.Len(t, report.DirectlyAffected, 1)
		assert.Equal(t, AffectedDocument{Slug: "setup", Path: "setup.md", Sections: []string{"install"}}, report.DirectlyAffected[0])
	})

	t.Run("Indirect", func(t *testing.T) {
		assert.Equal(t, []string{"index", "other"}, report.IndirectlyAffected)
		assert.Equal(t, []string{"old"}, report.Removed)
		assert.Equal(t, []string{"other"}, report.BrokenLinks)
	})

	t.Run("Slugs", func(t *testing.T) {
		assert.Equal(t, map[string]bool{"setup": true, "index": true, "other": true}, report.Slugs())
	})
}

func TestAffectedSections(t *testing.T) {
	doc := &extractor.Document{Headings: []extractor.Heading{
		{Level: 1, Text: "A", Anchor: "a", Line: 3},
		{Level: 2, Text: "B", Anchor: "b", Line: 10},
	}}
	assert.Nil(t, affectedSections(doc, []int{1}))
	assert.Equal(t, []string{"a"}, affectedSections(doc, []int{9}))
	assert.Equal(t, []string{"a", "b"}, affectedSections(doc, []int{4, 200}))
}
