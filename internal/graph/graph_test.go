package graph

import (
	"errors"
	"testing"

	"docgraph/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(path string, links ...string) *extractor.Document {
	d := &extractor.Document{
		Slug:     extractor.SlugFromPath(path),
		Path:     path,
		Title:    path,
		Headings: []extractor.Heading{{Level: 1, Text: "Top", Anchor: "top", Line: 1}},
	}
	for i, l := range links {
		d.Links = append(d.Links, extractor.Link{Kind: extractor.LinkKindInline, Destination: l, Line: i + 3})
	}
	return d
}

func TestGraph_LinkRelations(t *testing.T) {
	g := NewGraph()
	g.EntryPoints = []string{"index"}

	g.AddDocument(doc("index.md", "how-to/add-users.md", "https://maas.io", "reference/cli.md#top"))
	g.AddDocument(doc("how-to/add-users.md", "../reference/cli.md", "../missing.md", "#top", "#nowhere"))
	g.AddDocument(doc("reference/cli.md", "/how-to/add-users", "images/cli.png"))
	g.AddDocument(doc("reference/orphaned.md"))
	g.LinkRelations()

	t.Run("Relative and absolute paths", func(t *testing.T) {
		deps := g.GetDependencies("how-to/add-users")
		require.Len(t, deps, 1)
		assert.Equal(t, "reference/cli", deps[0].Doc.Slug)

		deps = g.GetDependencies("reference/cli")
		require.Len(t, deps, 1)
		assert.Equal(t, "how-to/add-users", deps[0].Doc.Slug)
	})

	t.Run("External links and assets", func(t *testing.T) {
		require.Len(t, g.External, 1)
		assert.Equal(t, ExternalLink{From: "index", URL: "https://maas.io", Line: 4}, g.External[0])
		require.Len(t, g.Assets, 1)
		assert.Equal(t, "reference/images/cli.png", g.Assets[0].Path)
	})

	t.Run("Unresolved reasons", func(t *testing.T) {
		counts := g.UnresolvedReasonCounts()
		assert.Equal(t, 1, counts[ReasonNoCandidate])
		assert.Equal(t, 1, counts[ReasonMissingAnchor])

		dangling := g.Dangling()
		require.Len(t, dangling, 1)
		assert.Equal(t, "missing", dangling[0].Target)
		assert.Equal(t, "how-to/add-users", dangling[0].From)
		assert.Equal(t, 4, dangling[0].Line)
	})

	t.Run("Dependent lookup", func(t *testing.T) {
		dependents := g.GetDependents("reference/cli")
		require.Len(t, dependents, 2)

		edges, err := g.Backlinks("reference/cli")
		require.NoError(t, err)
		require.Len(t, edges, 2)
		assert.Equal(t, "how-to/add-users", edges[0].From)
		assert.Equal(t, "index", edges[1].From)
		assert.Equal(t, "top", edges[1].Anchor)

		_, err = g.Backlinks("nope")
		assert.True(t, errors.Is(err, ErrUnknownSlug))
	})

	t.Run("Orphans skip entry points", func(t *testing.T) {
		assert.Equal(t, []string{"reference/orphaned"}, g.Orphans())
	})
}

func TestGraph_ResolveDestination(t *testing.T) {
	g := NewGraph()
	g.AddDocument(doc("how-to-manage-users-5678.md"))
	g.AddDocument(doc("guides/index.md"))
	g.AddDocument(doc("a/networking.md"))
	g.AddDocument(doc("b/networking.md"))
	from := doc("about.md")

	cases := []struct {
		name       string
		dest       string
		kind       TargetKind
		slug       string
		resolver   string
		reason     UnresolvedReason
		candidates []string
	}{
		{name: "topic link by id", dest: "/t/how-to-manage-users/5678", kind: TargetDocument, slug: "how-to-manage-users-5678", resolver: "topic"},
		{name: "alias without topic number", dest: "how-to-manage-users.md", kind: TargetDocument, slug: "how-to-manage-users-5678", resolver: "alias"},
		{name: "directory index", dest: "guides/", kind: TargetDocument, slug: "guides/index", resolver: "slug"},
		{name: "html extension and query", dest: "guides/index.html?x=1", kind: TargetDocument, slug: "guides/index", resolver: "slug"},
		{name: "ambiguous alias", dest: "networking.md", kind: TargetMissing, reason: ReasonAmbiguous, candidates: []string{"a/networking", "b/networking"}},
		{name: "nothing matches", dest: "nope.md", kind: TargetMissing, reason: ReasonNoCandidate},
		{name: "protocol relative", dest: "//cdn.example.com/x.js", kind: TargetExternal},
		{name: "mailto", dest: "mailto:team@example.com", kind: TargetExternal},
		{name: "empty destination", dest: " ", kind: TargetMissing, reason: ReasonNoCandidate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := g.ResolveDestination(from, tc.dest)
			assert.Equal(t, tc.kind, res.Kind)
			assert.Equal(t, tc.slug, res.Slug)
			assert.Equal(t, tc.resolver, res.Resolver)
			assert.Equal(t, tc.reason, res.Reason)
			assert.Equal(t, tc.candidates, res.Candidates)
		})
	}
}

func TestGraph_RemoveByPath(t *testing.T) {
	g := NewGraph()
	g.AddDocument(doc("a.md", "b.md"))
	g.AddDocument(doc("b.md"))
	g.LinkRelations()
	require.Len(t, g.Edges, 1)

	removed := g.RemoveByPath("b.md")
	assert.Equal(t, []string{"b"}, removed)
	g.LinkRelations()

	assert.Empty(t, g.Edges)
	assert.Len(t, g.Dangling(), 1)
	_, ok := g.SlugForPath("b.md")
	assert.False(t, ok)
}

func TestGraph_FrontMatterSlugResolvesByPath(t *testing.T) {
	g := NewGraph()
	custom := doc("docs/setup.md")
	custom.Slug = "install"
	g.AddDocument(custom)

	res := g.ResolveDestination(doc("docs/other.md"), "setup.md")
	assert.Equal(t, TargetDocument, res.Kind)
	assert.Equal(t, "install", res.Slug)
	assert.Equal(t, "path", res.Resolver)

	slug, ok := g.SlugForPath("docs/setup.md")
	assert.True(t, ok)
	assert.Equal(t, "install", slug)
}
