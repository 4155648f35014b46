package analysis

import (
	"sort"

	"docgraph/internal/extractor"
	"docgraph/internal/git"
	"docgraph/internal/graph"
)

// AffectedDocument is a document whose own file changed.
type AffectedDocument struct {
	Slug string `json:"slug"`
	Path string `json:"path"`
	// Sections lists the anchors of headings whose section overlaps a
	// changed line.
	Sections []string `json:"sections,omitempty"`
}

// ImpactReport summarizes the documents affected by changes.
type ImpactReport struct {
	DirectlyAffected   []AffectedDocument `json:"directly_affected"`
	IndirectlyAffected []string           `json:"indirectly_affected"`
	Removed            []string           `json:"removed,omitempty"`

	// BrokenLinks lists the documents that still link to a removed one.
	BrokenLinks []string `json:"broken_links,omitempty"`
}

// Slugs returns every affected document still present in the graph.
func (r *ImpactReport) Slugs() map[string]bool {
	out := make(map[string]bool, len(r.DirectlyAffected)+len(r.IndirectlyAffected))
	for _, d := range r.DirectlyAffected {
		out[d.Slug] = true
	}
	for _, s := range r.IndirectlyAffected {
		out[s] = true
	}
	return out
}

// Analyzer performs impact analysis on the link graph.
type Analyzer struct {
	g *graph.Graph
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(g *graph.Graph) *Analyzer {
	return &Analyzer{g: g}
}

// AnalyzeImpact identifies which documents are affected by the given
// changes. removed names the slugs of documents deleted from the graph;
// documents that still link to them are indirectly affected.
func (a *Analyzer) AnalyzeImpact(changes []git.ChangedFile, removed []string) (*ImpactReport, error) {
	report := &ImpactReport{
		DirectlyAffected:   []AffectedDocument{},
		IndirectlyAffected: []string{},
	}

	seenDirect := make(map[string]bool)
	seenIndirect := make(map[string]bool)

	// 1. Direct impacts: the changed documents themselves.
	for _, change := range changes {
		slug, ok := a.g.SlugForPath(change.Path)
		if !ok || seenDirect[slug] {
			continue
		}
		doc := a.g.Nodes[slug].Doc
		report.DirectlyAffected = append(report.DirectlyAffected, AffectedDocument{
			Slug:     slug,
			Path:     doc.Path,
			Sections: affectedSections(doc, change.ChangedLines),
		})
		seenDirect[slug] = true
	}

	addIndirect := func(slug string) {
		if !seenDirect[slug] && !seenIndirect[slug] {
			report.IndirectlyAffected = append(report.IndirectlyAffected, slug)
			seenIndirect[slug] = true
		}
	}

	// 2. Indirect impacts: documents linking to a changed document.
	for _, d := range report.DirectlyAffected {
		for _, dep := range a.g.GetDependents(d.Slug) {
			addIndirect(dep.Doc.Slug)
		}
	}

	// 3. Documents left pointing at a removed document.
	if len(removed) > 0 {
		gone := make(map[string]bool, len(removed))
		for _, s := range removed {
			gone[s] = true
		}
		broken := make(map[string]bool)
		for _, u := range a.g.Unresolved {
			if gone[u.Target] {
				addIndirect(u.From)
				if !broken[u.From] {
					broken[u.From] = true
					report.BrokenLinks = append(report.BrokenLinks, u.From)
				}
			}
		}
		sort.Strings(report.BrokenLinks)
		report.Removed = append(report.Removed, removed...)
		sort.Strings(report.Removed)
	}

	sort.Slice(report.DirectlyAffected, func(i, j int) bool {
		return report.DirectlyAffected[i].Slug < report.DirectlyAffected[j].Slug
	})
	sort.Strings(report.IndirectlyAffected)
	return report, nil
}

// affectedSections maps changed lines to the headings whose sections contain
// them. A section runs from its heading to the line before the next heading.
// Lines before the first heading are not attributed to any section.
func affectedSections(doc *extractor.Document, lines []int) []string {
	if len(doc.Headings) == 0 || len(lines) == 0 {
		return nil
	}
	var out []string
	for i, h := range doc.Headings {
		end := int(^uint(0) >> 1)
		if i+1 < len(doc.Headings) {
			end = doc.Headings[i+1].Line - 1
		}
		if isAffected(h.Line, end, lines) {
			out = append(out, h.Anchor)
		}
	}
	return out
}

func isAffected(start, end int, lines []int) bool {
	for _, line := range lines {
		if line >= start && line <= end {
			return true
		}
	}
	return false
}
