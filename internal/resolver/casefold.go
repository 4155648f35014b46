package resolver

import (
	"path"
	"sort"
	"strings"

	"docgraph/internal/graph"
)

// ConfidenceCaseFold is the confidence of edges found by case folding.
const ConfidenceCaseFold = 0.5

// CaseInsensitiveResolver retries dangling links after folding case and
// treating "_" and "-" as equal. A folded key must match exactly one
// document, by slug or by basename.
type CaseInsensitiveResolver struct{}

func NewCaseInsensitiveResolver() *CaseInsensitiveResolver {
	return &CaseInsensitiveResolver{}
}

func (r *CaseInsensitiveResolver) Name() string {
	return "casefold"
}

func (r *CaseInsensitiveResolver) Resolve(g *graph.Graph) (ResolveStats, error) {
	stats := ResolveStats{}
	if g == nil || len(g.Unresolved) == 0 {
		return stats, nil
	}

	bySlug := make(map[string][]string)
	byBase := make(map[string][]string)
	for _, slug := range g.Slugs() {
		bySlug[fold(slug)] = append(bySlug[fold(slug)], slug)
		base := fold(path.Base(slug))
		byBase[base] = append(byBase[base], slug)
	}

	var still []graph.UnresolvedLink
	for _, u := range g.Unresolved {
		if u.Reason != graph.ReasonNoCandidate {
			still = append(still, u)
			continue
		}
		stats.Attempted++

		cands := bySlug[fold(u.Target)]
		if len(cands) == 0 {
			cands = byBase[fold(path.Base(u.Target))]
		}
		switch len(cands) {
		case 1:
		case 0:
			stats.Skipped++
			still = append(still, u)
			continue
		default:
			stats.Skipped++
			u.Reason = graph.ReasonAmbiguous
			u.Candidates = append([]string(nil), cands...)
			sort.Strings(u.Candidates)
			still = append(still, u)
			continue
		}

		target := cands[0]
		stats.Resolved++
		if target != u.From {
			g.Edges = append(g.Edges, graph.Edge{
				From:        u.From,
				To:          target,
				Kind:        u.Kind,
				Anchor:      u.Anchor,
				Line:        u.Line,
				Resolver:    r.Name(),
				Confidence:  ConfidenceCaseFold,
				Destination: u.Destination,
			})
		}
		if u.Anchor != "" {
			if doc, err := g.Document(target); err == nil && !doc.HasAnchor(u.Anchor) {
				u.Reason = graph.ReasonMissingAnchor
				u.Target = target
				still = append(still, u)
			}
		}
	}
	g.Unresolved = still
	return stats, nil
}

func fold(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "_", "-")
}
