package retrieval

import (
	"sort"

	"docgraph/internal/git"
	"docgraph/internal/graph"
)

// Config controls how link neighborhoods are extracted.
type Config struct {
	MaxHops       int
	MinConfidence float64
	AllowedKinds  map[graph.EdgeKind]bool
}

func DefaultConfig() Config {
	return Config{MaxHops: 2}
}

// Subgraph is the set of documents within MaxHops links of the seeds,
// following links in both directions.
type Subgraph struct {
	MaxHops      int                `json:"max_hops"`
	Seeds        []string           `json:"seeds"`
	UpdatedFiles []string           `json:"updated_files,omitempty"`
	Slugs        []string           `json:"slugs"`
	Scores       map[string]float64 `json:"scores"`
	Edges        []graph.Edge       `json:"edges"`
}

// Neighborhood returns the subgraph around a single document.
func Neighborhood(g *graph.Graph, slug string, cfg Config) (*Subgraph, error) {
	if _, err := g.Document(slug); err != nil {
		return nil, err
	}
	return walkLinks(g, []string{slug}, nil, cfg), nil
}

// ExtractFromChanges seeds the traversal with the documents stored at the
// changed paths.
func ExtractFromChanges(g *graph.Graph, changes []git.ChangedFile, cfg Config) *Subgraph {
	if g == nil {
		return &Subgraph{}
	}
	return walkLinks(g, changedDocuments(g, changes), changedPaths(changes), cfg)
}

// link is one edge seen from one of its ends.
type link struct {
	other string
	edge  graph.Edge
}

// walkLinks expands the seeds one hop at a time. A document's score is the
// best product of link confidences on any path from a seed; seeds score 1.
func walkLinks(g *graph.Graph, seeds []string, updated []string, cfg Config) *Subgraph {
	hops := max(cfg.MaxHops, 0)
	sub := &Subgraph{
		MaxHops:      hops,
		Seeds:        seeds,
		UpdatedFiles: updated,
		Scores:       make(map[string]float64, len(seeds)),
	}
	if len(seeds) == 0 {
		return sub
	}

	sub.Edges = []graph.Edge{}
	links := linksBySlug(g, cfg)
	reached := make(map[string]bool, len(seeds))
	for _, slug := range seeds {
		reached[slug] = true
		sub.Scores[slug] = 1
	}

	kept := make(map[graph.Edge]bool)
	frontier := seeds
	for hop := 0; hop < hops && len(frontier) > 0; hop++ {
		var next []string
		for _, slug := range frontier {
			for _, l := range links[slug] {
				if !kept[l.edge] {
					kept[l.edge] = true
					sub.Edges = append(sub.Edges, l.edge)
				}
				if score := sub.Scores[slug] * linkWeight(l.edge.Confidence); score > sub.Scores[l.other] {
					sub.Scores[l.other] = score
				}
				if !reached[l.other] {
					reached[l.other] = true
					next = append(next, l.other)
				}
			}
		}
		frontier = next
	}

	for slug := range reached {
		sub.Slugs = append(sub.Slugs, slug)
	}
	sort.Strings(sub.Slugs)
	sort.Slice(sub.Edges, func(i, j int) bool {
		a, b := sub.Edges[i], sub.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Line < b.Line
	})
	return sub
}

// linksBySlug indexes the followable edges under both of their ends, so
// backlinks are walked like outbound links.
func linksBySlug(g *graph.Graph, cfg Config) map[string][]link {
	out := make(map[string][]link)
	for _, e := range g.Edges {
		if cfg.MinConfidence > 0 && e.Confidence < cfg.MinConfidence {
			continue
		}
		if len(cfg.AllowedKinds) > 0 && !cfg.AllowedKinds[e.Kind] {
			continue
		}
		out[e.From] = append(out[e.From], link{other: e.To, edge: e})
		out[e.To] = append(out[e.To], link{other: e.From, edge: e})
	}
	return out
}

// linkWeight treats an unknown confidence as a coin flip.
func linkWeight(c float64) float64 {
	switch {
	case c <= 0:
		return 0.5
	case c > 1:
		return 1
	}
	return c
}

// changedDocuments returns the sorted slugs of the documents stored at the
// changed paths. Paths outside the corpus are ignored.
func changedDocuments(g *graph.Graph, changes []git.ChangedFile) []string {
	seen := make(map[string]bool)
	slugs := []string{}
	for _, ch := range changes {
		if slug, ok := g.SlugForPath(ch.Path); ok && !seen[slug] {
			seen[slug] = true
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)
	return slugs
}

func changedPaths(changes []git.ChangedFile) []string {
	seen := make(map[string]bool, len(changes))
	paths := make([]string, 0, len(changes))
	for _, ch := range changes {
		if ch.Path != "" && !seen[ch.Path] {
			seen[ch.Path] = true
			paths = append(paths, ch.Path)
		}
	}
	sort.Strings(paths)
	return paths
}
