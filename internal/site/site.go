// Package site holds the in-memory view of a corpus that the HTTP and MCP
// servers read from.
package site

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docgraph/internal/config"
	"docgraph/internal/graph"
	"docgraph/internal/index"
	"docgraph/internal/knowledge"
	"docgraph/internal/lint"
)

// Site is an immutable snapshot of a scanned corpus.
type Site struct {
	Root     string
	Config   *config.Config
	Graph    *graph.Graph
	Engine   *knowledge.Engine
	Rules    []lint.Rule
	LoadedAt time.Time

	checkMu sync.Mutex
	report  *lint.Report
}

// New wraps an already built graph and indexes it for search.
func New(cfg *config.Config, g *graph.Graph) *Site {
	engine := knowledge.NewEngine()
	engine.IndexAll(g)
	return &Site{
		Root:     cfg.Project.Root,
		Config:   cfg,
		Graph:    g,
		Engine:   engine,
		Rules:    lint.DefaultRules(),
		LoadedAt: time.Now().UTC(),
	}
}

// Build scans the configured corpus root.
func Build(ctx context.Context, cfg *config.Config) (*Site, error) {
	idx, err := index.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	g, _, err := idx.BuildGraph(ctx, cfg.Project.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return New(cfg, g), nil
}

// Check returns the lint report for this snapshot, running the rules on
// first use. A run whose context ends early is returned but not kept.
func (s *Site) Check(ctx context.Context) *lint.Report {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()
	if s.report != nil {
		return s.report
	}
	report := lint.Run(ctx, &lint.Corpus{Root: s.Root, Graph: s.Graph, Config: s.Config}, s.Rules)
	if ctx.Err() != nil {
		slog.Warn("check interrupted, report not cached", "root", s.Root, "error", ctx.Err())
		return report
	}
	s.report = report
	return report
}

// Loader produces a fresh Site.
type Loader func(ctx context.Context) (*Site, error)

// Holder serves the current Site and swaps it on reload.
type Holder struct {
	mu      sync.RWMutex
	current *Site
	load    Loader
}

// NewHolder creates a holder around an initial site.
func NewHolder(initial *Site, load Loader) *Holder {
	return &Holder{current: initial, load: load}
}

// Current returns the active site.
func (h *Holder) Current() *Site {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload builds a new site and makes it current. On failure the previous
// site stays active.
func (h *Holder) Reload(ctx context.Context) (*Site, error) {
	if h.load == nil {
		return h.Current(), nil
	}
	next, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.current = next
	h.mu.Unlock()
	slog.Info("site reloaded", "documents", len(next.Graph.Nodes))
	return next, nil
}
