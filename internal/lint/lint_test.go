package lint

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docgraph/internal/config"
	"docgraph/internal/extractor"
	"docgraph/internal/graph"
	"docgraph/internal/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCorpus(t *testing.T, files map[string]string) *Corpus {
	t.Helper()
	ext, err := extractor.NewExtractor("markdown", "maas")
	require.NoError(t, err)

	root := t.TempDir()
	g := graph.NewGraph()
	g.EntryPoints = []string{"index"}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		if !strings.HasSuffix(rel, ".md") {
			continue
		}
		doc, err := ext.Extract(context.Background(), rel, []byte(content))
		require.NoError(t, err)
		g.AddDocument(doc)
	}
	g.LinkRelations()
	return &Corpus{Root: root, Graph: g, Config: config.Default()}
}

func findingsFor(r *Report, rule string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

func TestRun_LinkResolution(t *testing.T) {
	c := buildCorpus(t, map[string]string{
		"index.md":       "# Home\n\nStart with [setup](setup.md) or [gone](gone.md).\n\n![logo](img/logo.png) ![missing](img/none.png)\n",
		"setup.md":       "# Setup\n\nRead [home](index.md#home) then [nowhere](index.md#nowhere).\n",
		"img/logo.png":   "png",
		"stray/notes.md": "# Notes\n\nNobody links here.\n",
	})
	report := Run(context.Background(), c, DefaultRules())

	t.Run("Dangling links are errors", func(t *testing.T) {
		dangling := findingsFor(report, "dangling-link")
		require.Len(t, dangling, 1)
		assert.Equal(t, SeverityError, dangling[0].Severity)
		assert.Equal(t, "index.md", dangling[0].Path)
		assert.Equal(t, 3, dangling[0].Line)
		assert.Contains(t, dangling[0].Message, `"gone.md"`)
		assert.True(t, report.HasErrors())
	})

	t.Run("Missing anchors are warnings", func(t *testing.T) {
		anchors := findingsFor(report, "missing-anchor")
		require.Len(t, anchors, 1)
		assert.Equal(t, "setup", anchors[0].Slug)
		assert.Contains(t, anchors[0].Message, "#nowhere")
	})

	t.Run("Missing assets", func(t *testing.T) {
		assets := findingsFor(report, "missing-asset")
		require.Len(t, assets, 1)
		assert.Contains(t, assets[0].Message, "img/none.png")
	})

	t.Run("Orphans", func(t *testing.T) {
		orphans := findingsFor(report, "orphan")
		require.Len(t, orphans, 1)
		assert.Equal(t, "stray/notes", orphans[0].Slug)
		assert.Equal(t, SeverityInfo, orphans[0].Severity)
	})

	t.Run("Counts", func(t *testing.T) {
		assert.Equal(t, 1, report.Counts[SeverityError])
		assert.Equal(t, 2, report.Counts[SeverityWarning])
		assert.Equal(t, 1, report.Counts[SeverityInfo])
		assert.Equal(t, 3, report.Documents)
	})

	t.Run("External check is opt-in", func(t *testing.T) {
		assert.Empty(t, findingsFor(report, "external-link"))
	})
}

func TestRun_ContentRules(t *testing.T) {
	c := buildCorpus(t, map[string]string{
		"index.md":  "# Home\n\n[a](a.md) [b](b.md) [c](c.md)\n",
		"a.md":      "Just text, no heading.\n",
		"b.md":      "# Only a heading\n",
		"c.md":      "---\ntitle: home\n---\n# C\n\nText.\n",
		"hidden.md": "```\ncode only\n```\n",
	})
	c.Config.Lint.Disabled = []string{"orphan"}
	report := Run(context.Background(), c, DefaultRules())

	empty := findingsFor(report, "empty-content")
	require.Len(t, empty, 4)
	var messages []string
	for _, f := range empty {
		messages = append(messages, f.Slug+": "+f.Message)
	}
	assert.ElementsMatch(t, []string{
		"a: document has no heading",
		"b: document has no paragraph text",
		"hidden: document has no heading",
		"hidden: document has no paragraph text",
	}, messages)

	titles := findingsFor(report, "missing-title")
	require.Len(t, titles, 2)
	assert.Equal(t, "a", titles[0].Slug)
	assert.Equal(t, "hidden", titles[1].Slug)

	dups := findingsFor(report, "duplicate-title")
	require.Len(t, dups, 2, "Home and home collide")

	assert.Empty(t, findingsFor(report, "orphan"), "disabled rule")
}

func TestRun_LinkListTargets(t *testing.T) {
	c := buildCorpus(t, map[string]string{
		"index.md": "# Logging\n\nLog types:\n\n" +
			"- [Event logs](events.md)\n" +
			"- [Audit logs](audit.md)\n" +
			"- [Audit again](audit.md)\n" +
			"- [Kernel logs](kernel.md)\n" +
			"- [Upstream](https://example.com/logs)\n",
		"events.md": "# Events\n\nText.\n",
		"audit.md":  "# Audit\n\nText.\n",
	})
	report := Run(context.Background(), c, DefaultRules())

	lists := findingsFor(report, "link-list-targets")
	require.Len(t, lists, 2)
	assert.Equal(t, 7, lists[0].Line)
	assert.Contains(t, lists[0].Message, `"Audit logs" and "Audit again"`)
	assert.Equal(t, 8, lists[1].Line)
	assert.Contains(t, lists[1].Message, `"kernel.md"`)
}

func TestRun_LinkListTargetsAfterResolvers(t *testing.T) {
	c := buildCorpus(t, map[string]string{
		"index.md": "# Logging\n\nLog types:\n\n" +
			"- [Event](Event_Logs.md)\n" +
			"- [Audit](audit-logs.md)\n",
		"event-logs.md": "# Events\n\nText.\n",
		"audit-logs.md": "# Audit\n\nText.\n",
	})
	resolver.NewDefaultChain().Run(c.Graph)
	report := Run(context.Background(), c, DefaultRules())

	assert.Empty(t, findingsFor(report, "dangling-link"))
	assert.Empty(t, findingsFor(report, "link-list-targets"), "case-folded items reach documents")

	t.Run("Duplicates through case folding", func(t *testing.T) {
		c := buildCorpus(t, map[string]string{
			"index.md": "# Logging\n\nLog types:\n\n" +
				"- [Event](Event_Logs.md)\n" +
				"- [Events](event-logs.md)\n",
			"event-logs.md": "# Events\n\nText.\n",
		})
		resolver.NewDefaultChain().Run(c.Graph)
		report := Run(context.Background(), c, DefaultRules())

		lists := findingsFor(report, "link-list-targets")
		require.Len(t, lists, 1)
		assert.Contains(t, lists[0].Message, `"Event" and "Events" both link to event-logs`)
	})
}

func TestRun_FieldConsistency(t *testing.T) {
	sample := func(params string) string {
		return "# Deploy\n\nRun:\n\n```bash\nmaas admin machine deploy abc " + params + "\n```\n"
	}
	c := buildCorpus(t, map[string]string{
		"index.md": "# Home\n\n[a](a.md) [b](b.md) [c](c.md) [d](d.md)\n",
		"a.md":     sample("distro_series=jammy"),
		"b.md":     sample("distro_series=jammy"),
		"c.md":     sample("distro_seires=jammy"),
		"d.md":     sample("Distro-Series=jammy user_data=x"),
	})
	c.Config.Lint.KnownFields = map[string][]string{
		"machine deploy": {"distro_series", "user_data", "hwe_kernel"},
	}
	report := Run(context.Background(), c, DefaultRules())

	fields := findingsFor(report, "cli-field-consistency")
	require.Len(t, fields, 2)

	bySlug := map[string]string{}
	for _, f := range fields {
		bySlug[f.Slug] = f.Message
	}
	assert.Contains(t, bySlug["c"], `"distro_seires" looks like a misspelling of "distro_series"`)
	assert.Contains(t, bySlug["d"], `"Distro-Series" differs only by case or separator from "distro_series"`)
}

func TestRun_OnlyFiltersBySlug(t *testing.T) {
	c := buildCorpus(t, map[string]string{
		"index.md": "# Home\n\n[x](x.md)\n",
		"other.md": "# Other\n\n[y](y.md)\n",
	})
	c.Only = map[string]bool{"other": true}
	report := Run(context.Background(), c, DefaultRules())

	for _, f := range report.Findings {
		assert.Equal(t, "other", f.Slug)
	}
	assert.Len(t, findingsFor(report, "dangling-link"), 1)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("name", "name"))
	assert.Equal(t, 1, levenshtein("hostnme", "hostname"))
	assert.Equal(t, 2, levenshtein("distro_seires", "distro_series"))
	assert.Equal(t, 4, levenshtein("", "zone"))
}
