package graph

import (
	"fmt"
	"path"
	"sort"

	"docgraph/internal/extractor"
)

// Node represents a document in the link graph.
type Node struct {
	Doc *extractor.Document `json:"doc"`
}

// Edge is a resolved link between two documents.
type Edge struct {
	From       string   `json:"from"` // source slug
	To         string   `json:"to"`   // target slug
	Kind       EdgeKind `json:"kind"`
	Anchor     string   `json:"anchor,omitempty"`
	Line       int      `json:"line"`
	Resolver   string   `json:"resolver,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`

	// Destination is the link as written. It is rebuilt on every link pass
	// and not stored.
	Destination string `json:"destination,omitempty"`
}

// Graph manages documents and the links between them.
type Graph struct {
	Nodes      map[string]*Node `json:"nodes"`
	Edges      []Edge           `json:"edges"`
	Unresolved []UnresolvedLink `json:"unresolved,omitempty"`
	External   []ExternalLink   `json:"external,omitempty"`
	Assets     []AssetLink      `json:"assets,omitempty"`

	// ParseErrors lists files skipped because they failed to parse.
	ParseErrors []ParseError `json:"parse_errors,omitempty"`

	// EntryPoints are slugs (or slug basenames) that are never orphans.
	EntryPoints []string `json:"entry_points,omitempty"`

	// Lookup indices rebuilt from Nodes; not serialized.
	pathIndex  map[string]string   // path without extension -> slug
	aliasIndex map[string][]string // basename and basename sans topic number -> slugs
	topicIndex map[string][]string // topic number -> slugs
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:      make(map[string]*Node),
		Edges:      []Edge{},
		pathIndex:  make(map[string]string),
		aliasIndex: make(map[string][]string),
		topicIndex: make(map[string][]string),
	}
}

// AddDocument adds a document as a node and indexes it. A document with
// an existing slug replaces the previous one.
func (g *Graph) AddDocument(doc *extractor.Document) {
	if doc == nil {
		return
	}
	_, replaced := g.Nodes[doc.Slug]
	g.Nodes[doc.Slug] = &Node{Doc: doc}
	if replaced {
		g.RebuildIndices()
		return
	}
	g.index(doc)
}

// RemoveByPath drops every document stored at the given relative path and
// returns the removed slugs.
func (g *Graph) RemoveByPath(relPath string) []string {
	var removed []string
	for slug, node := range g.Nodes {
		if node.Doc != nil && node.Doc.Path == relPath {
			delete(g.Nodes, slug)
			removed = append(removed, slug)
		}
	}
	if len(removed) > 0 {
		sort.Strings(removed)
		g.RebuildIndices()
	}
	return removed
}

// RebuildIndices recomputes the lookup indices from Nodes. It must be
// called after a graph is decoded.
func (g *Graph) RebuildIndices() {
	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}
	g.pathIndex = make(map[string]string)
	g.aliasIndex = make(map[string][]string)
	g.topicIndex = make(map[string][]string)
	for _, slug := range g.Slugs() {
		g.index(g.Nodes[slug].Doc)
	}
}

func (g *Graph) index(doc *extractor.Document) {
	if doc == nil {
		return
	}
	if doc.Path != "" {
		g.pathIndex[extractor.SlugFromPath(doc.Path)] = doc.Slug
	}

	base := path.Base(doc.Slug)
	g.aliasIndex[base] = appendUnique(g.aliasIndex[base], doc.Slug)
	if name, id, ok := splitTopicNumber(base); ok {
		g.aliasIndex[name] = appendUnique(g.aliasIndex[name], doc.Slug)
		g.topicIndex[id] = appendUnique(g.topicIndex[id], doc.Slug)
	}
}

// LinkRelations resolves every link of every document. It resets Edges,
// Unresolved, External and Assets.
func (g *Graph) LinkRelations() {
	g.Edges = []Edge{}
	g.Unresolved = nil
	g.External = nil
	g.Assets = nil

	for _, slug := range g.Slugs() {
		doc := g.Nodes[slug].Doc
		if doc == nil {
			continue
		}
		for _, link := range doc.Links {
			g.linkOne(doc, link)
		}
	}
}

func (g *Graph) linkOne(doc *extractor.Document, link extractor.Link) {
	kind := EdgeLink
	if link.Kind == extractor.LinkKindImage {
		kind = EdgeImage
	}

	res := g.ResolveDestination(doc, link.Destination)
	switch res.Kind {
	case TargetExternal:
		g.External = append(g.External, ExternalLink{From: doc.Slug, URL: res.URL, Line: link.Line})
	case TargetAsset:
		g.Assets = append(g.Assets, AssetLink{From: doc.Slug, Path: res.Path, Line: link.Line, Kind: kind})
	case TargetDocument:
		if res.Slug != doc.Slug {
			g.Edges = append(g.Edges, Edge{
				From:        doc.Slug,
				To:          res.Slug,
				Kind:        kind,
				Anchor:      res.Anchor,
				Line:        link.Line,
				Resolver:    res.Resolver,
				Confidence:  res.Confidence,
				Destination: link.Destination,
			})
		}
		if res.Reason == ReasonMissingAnchor {
			g.Unresolved = append(g.Unresolved, g.unresolved(doc, link, kind, res))
		}
	default:
		g.Unresolved = append(g.Unresolved, g.unresolved(doc, link, kind, res))
	}
}

func (g *Graph) unresolved(doc *extractor.Document, link extractor.Link, kind EdgeKind, res Resolution) UnresolvedLink {
	return UnresolvedLink{
		From:        doc.Slug,
		Destination: link.Destination,
		Target:      res.Target,
		Anchor:      res.Anchor,
		Line:        link.Line,
		Kind:        kind,
		Reason:      res.Reason,
		Candidates:  res.Candidates,
	}
}

// Slugs returns all document slugs in sorted order.
func (g *Graph) Slugs() []string {
	slugs := make([]string, 0, len(g.Nodes))
	for slug := range g.Nodes {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Document returns the document with the given slug.
func (g *Graph) Document(slug string) (*extractor.Document, error) {
	node, ok := g.Nodes[slug]
	if !ok || node.Doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlug, slug)
	}
	return node.Doc, nil
}

// SlugForPath returns the slug of the document stored at relPath.
func (g *Graph) SlugForPath(relPath string) (string, bool) {
	slug, ok := g.pathIndex[extractor.SlugFromPath(relPath)]
	return slug, ok
}

// GetDependencies returns the documents the given document links to.
func (g *Graph) GetDependencies(slug string) []*Node {
	var deps []*Node
	seen := make(map[string]bool)
	for _, edge := range g.Edges {
		if edge.From == slug && !seen[edge.To] {
			if node, ok := g.Nodes[edge.To]; ok {
				deps = append(deps, node)
				seen[edge.To] = true
			}
		}
	}
	return deps
}

// GetDependents returns the documents that link to the given document.
func (g *Graph) GetDependents(slug string) []*Node {
	var deps []*Node
	seen := make(map[string]bool)
	for _, edge := range g.Edges {
		if edge.To == slug && !seen[edge.From] {
			if node, ok := g.Nodes[edge.From]; ok {
				deps = append(deps, node)
				seen[edge.From] = true
			}
		}
	}
	return deps
}

// Backlinks returns every edge pointing at slug, ordered by source and line.
func (g *Graph) Backlinks(slug string) ([]Edge, error) {
	if _, ok := g.Nodes[slug]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlug, slug)
	}
	var out []Edge
	for _, e := range g.Edges {
		if e.To == slug {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From == out[j].From {
			return out[i].Line < out[j].Line
		}
		return out[i].From < out[j].From
	})
	return out, nil
}

// Orphans returns documents that no other document links to. Entry points
// are excluded.
func (g *Graph) Orphans() []string {
	inbound := make(map[string]bool)
	for _, e := range g.Edges {
		if e.From != e.To {
			inbound[e.To] = true
		}
	}
	var out []string
	for _, slug := range g.Slugs() {
		if !inbound[slug] && !g.IsEntryPoint(slug) {
			out = append(out, slug)
		}
	}
	return out
}

// IsEntryPoint reports whether slug matches a configured entry point, either
// exactly or by its last path element.
func (g *Graph) IsEntryPoint(slug string) bool {
	base := path.Base(slug)
	for _, ep := range g.EntryPoints {
		if slug == ep || base == ep {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
