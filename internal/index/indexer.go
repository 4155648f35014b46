package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"docgraph/internal/config"
	"docgraph/internal/crawler"
	"docgraph/internal/extractor"
	"docgraph/internal/graph"
	"docgraph/internal/resolver"
)

// Indexer orchestrates corpus scanning and graph construction.
type Indexer struct {
	crawler     *crawler.Crawler
	chain       *resolver.ResolverChain
	entryPoints []string
}

// NewIndexer creates a new indexer. A nil chain uses the default resolvers.
func NewIndexer(c *crawler.Crawler, chain *resolver.ResolverChain, entryPoints []string) *Indexer {
	if chain == nil {
		chain = resolver.NewDefaultChain()
	}
	return &Indexer{
		crawler:     c,
		chain:       chain,
		entryPoints: entryPoints,
	}
}

// NewFromConfig builds an indexer using the project and lint settings of cfg.
func NewFromConfig(cfg *config.Config) (*Indexer, error) {
	ext, err := extractor.NewExtractor("markdown", cfg.Lint.Tool)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	c := crawler.NewCrawler(ext,
		crawler.WithIgnored(cfg.Project.Ignore...),
		crawler.WithExtensions(cfg.Project.Extensions...),
		crawler.WithWorkers(cfg.Project.Workers),
	)
	return NewIndexer(c, nil, cfg.Project.EntryPoints), nil
}

// BuildGraph scans the corpus root and constructs the link graph. Files
// that fail to parse are recorded in the graph's ParseErrors.
func (i *Indexer) BuildGraph(ctx context.Context, root string) (*graph.Graph, []resolver.StageResult, error) {
	g := graph.NewGraph()
	g.EntryPoints = i.entryPoints

	err := i.crawler.ScanProject(ctx, root,
		func(doc *extractor.Document) {
			g.AddDocument(doc)
		},
		func(path string, err error) {
			g.ParseErrors = append(g.ParseErrors, graph.ParseError{Path: relPath(root, path), Message: err.Error()})
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("scan failed: %w", err)
	}
	sort.Slice(g.ParseErrors, func(a, b int) bool { return g.ParseErrors[a].Path < g.ParseErrors[b].Path })

	// Resolve links after all documents are loaded
	stages := i.Resolve(g)
	for _, st := range stages {
		if st.Err != nil {
			return g, stages, fmt.Errorf("resolver %s failed: %w", st.Resolver, st.Err)
		}
	}
	return g, stages, nil
}

// Resolve runs the resolver chain over g.
func (i *Indexer) Resolve(g *graph.Graph) []resolver.StageResult {
	return i.chain.Run(g)
}

// Crawler returns the crawler used for scanning.
func (i *Indexer) Crawler() *crawler.Crawler {
	return i.crawler
}

// SaveGraph persists the graph to a JSON file.
func (i *Indexer) SaveGraph(g *graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(g); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

// LoadGraph loads a graph from a JSON file.
func (i *Indexer) LoadGraph(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph file: %w", err)
	}
	defer f.Close()

	g := graph.NewGraph()
	decoder := json.NewDecoder(f)
	if err := decoder.Decode(g); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}

	// Important: Rebuild internal indices that aren't serialized
	g.RebuildIndices()

	return g, nil
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
