package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"docgraph/internal/analysis"
	"docgraph/internal/config"
	"docgraph/internal/extractor"
	"docgraph/internal/git"
	"docgraph/internal/graph"
	"docgraph/internal/index"
	"docgraph/internal/lint"
	"docgraph/internal/planner"
	"docgraph/internal/retrieval"
	"docgraph/internal/storage"
)

// ChangeDetector lists the files changed in the corpus since baseRef.
type ChangeDetector func(ctx context.Context, root, baseRef string) ([]git.ChangedFile, error)

// IncrementalSync brings the stored graph and lint results up to date with
// the files changed since a git ref.
type IncrementalSync struct {
	Config     *config.Config
	Root       string
	DBPath     string
	BaseRef    string
	ReportPath string
	Rules      []lint.Rule
	Detect     ChangeDetector
}

// Result describes one sync run.
type Result struct {
	Changes    []git.ChangedFile      `json:"changes"`
	FullResync bool                   `json:"full_resync"`
	Impact     *analysis.ImpactReport `json:"impact,omitempty"`
	Plan       *planner.ReviewPlan    `json:"plan,omitempty"`
	Lint       *lint.Report           `json:"lint,omitempty"`
	Report     *Report                `json:"report"`
	Graph      *graph.Graph           `json:"-"`
}

type updatePlan struct {
	Changes    []git.ChangedFile
	FullResync bool
}

type graphUpdateResult struct {
	Graph        *graph.Graph
	UpdatedFiles []string
	Removed      []string
}

func NewIncrementalSync(cfg *config.Config) *IncrementalSync {
	return &IncrementalSync{
		Config:  cfg,
		Root:    cfg.Project.Root,
		DBPath:  cfg.Storage.DB,
		BaseRef: "HEAD",
		Rules:   lint.DefaultRules(),
		Detect:  git.GetChangedFiles,
	}
}

func (s *IncrementalSync) Run(ctx context.Context, force bool) (result *Result, retErr error) {
	report := NewReport("update", s.Root)
	result = &Result{Report: report}
	defer func() {
		if retErr != nil {
			report.AddSignal("update_failed", "update", "critical", "Incremental sync failed.", 1)
		}
		if err := report.Save(s.ReportPath); err != nil {
			slog.Warn("failed to write sync report", "path", s.ReportPath, "err", err)
		}
	}()

	idx, err := index.NewFromConfig(s.Config)
	if err != nil {
		return result, err
	}

	store, err := s.initStoreStage(report)
	if err != nil {
		return result, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	plan, err := s.detectChangesStage(ctx, report, idx, store, force)
	if err != nil {
		return result, err
	}
	result.Changes = plan.Changes
	result.FullResync = plan.FullResync
	if len(plan.Changes) == 0 && !plan.FullResync {
		fmt.Println("✅ No changes detected.")
		return result, nil
	}

	graphResult, err := s.graphUpdateStage(ctx, report, idx, store, plan)
	if err != nil {
		return result, err
	}
	result.Graph = graphResult.Graph

	stage := report.BeginStage("save_graph")
	if err := store.SaveGraph(ctx, graphResult.Graph); err != nil {
		report.EndStage(stage, "error", nil, nil, err)
		return result, fmt.Errorf("failed to save updated graph: %w", err)
	}
	report.EndStage(stage, "ok", map[string]float64{"documents": float64(len(graphResult.Graph.Nodes))}, nil, nil)

	var only map[string]bool
	if !plan.FullResync {
		result.Impact = s.impactAnalysisStage(report, graphResult, plan.Changes)
		if result.Impact != nil {
			only = result.Impact.Slugs()
			sub := retrieval.ExtractFromChanges(graphResult.Graph, plan.Changes, retrieval.DefaultConfig())
			result.Plan = planner.BuildReviewPlan(result.Impact, sub)
		}
	}

	lintReport, err := s.lintStage(ctx, report, store, graphResult.Graph, only)
	if err != nil {
		return result, err
	}
	result.Lint = lintReport
	return result, nil
}

func (s *IncrementalSync) detectChangesStage(ctx context.Context, report *Report, idx *index.Indexer, store *storage.SQLiteStore, force bool) (*updatePlan, error) {
	stage := report.BeginStage("detect_changes")
	changes, err := s.Detect(ctx, s.Root, s.BaseRef)
	switch {
	case err != nil && force:
		slog.Warn("git diff unavailable, continuing with full sync", "err", err)
		report.AddSignal("git_unavailable", "detect_changes", "warning", "git diff failed; forced full sync.", 0)
	case err != nil:
		report.EndStage(stage, "error", nil, nil, err)
		return nil, fmt.Errorf("failed to get git changes: %w", err)
	}

	var relevant []git.ChangedFile
	for _, c := range changes {
		if idx.Crawler().Matches(c.Path) {
			relevant = append(relevant, c)
		}
	}

	fullResync := force
	if !fullResync {
		existing, err := store.LoadGraph(ctx)
		if err != nil {
			report.EndStage(stage, "error", nil, nil, err)
			return nil, fmt.Errorf("failed to load graph: %w", err)
		}
		if len(existing.Nodes) == 0 {
			fullResync = true
			report.AddSignal("empty_store", "detect_changes", "info", "No stored graph; running a full scan.", 0)
		}
	}

	if fullResync {
		fmt.Println("🧭 Running full sync from the current corpus.")
	} else if len(relevant) > 0 {
		fmt.Printf("📝 Detected %d changed documents.\n", len(relevant))
	}

	report.EndStage(stage, "ok", map[string]float64{
		"changed_files":     float64(len(changes)),
		"changed_documents": float64(len(relevant)),
	}, nil, nil)
	return &updatePlan{
		Changes:    relevant,
		FullResync: fullResync,
	}, nil
}

func (s *IncrementalSync) initStoreStage(report *Report) (*storage.SQLiteStore, error) {
	stage := report.BeginStage("init_store")
	store, err := storage.NewSQLiteStore(s.DBPath)
	report.EndStage(stage, "ok", nil, []string{s.DBPath}, err)
	return store, err
}

func (s *IncrementalSync) graphUpdateStage(ctx context.Context, report *Report, idx *index.Indexer, store *storage.SQLiteStore, plan *updatePlan) (*graphUpdateResult, error) {
	stage := report.BeginStage("graph_update")
	if plan.FullResync {
		g, stages, err := idx.BuildGraph(ctx, s.Root)
		if err != nil {
			report.EndStage(stage, "error", nil, nil, err)
			return nil, fmt.Errorf("full sync graph build failed: %w", err)
		}
		for _, st := range stages {
			fmt.Printf("  -> %s resolver: attempted=%d resolved=%d skipped=%d\n", st.Resolver, st.Stats.Attempted, st.Stats.Resolved, st.Stats.Skipped)
		}
		fmt.Printf("📊 Graph Update: full rebuild. Documents=%d\n", len(g.Nodes))
		fmt.Printf("  -> Linked edges: %d, unresolved links: %d\n", len(g.Edges), len(g.Unresolved))
		report.EndStage(stage, "ok", graphCounters(g), nil, nil)
		return &graphUpdateResult{Graph: g, UpdatedFiles: collectGraphFiles(g)}, nil
	}

	fmt.Println("🔄 Loading existing document graph...")
	g, err := store.LoadGraph(ctx)
	if err != nil {
		report.EndStage(stage, "error", nil, nil, err)
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}

	removed := make(map[string]bool)
	var toParse, updatedFiles []string
	for _, change := range plan.Changes {
		for _, slug := range g.RemoveByPath(change.Path) {
			removed[slug] = true
		}
		dropParseErrors(g, change.Path)

		abs := filepath.Join(s.Root, filepath.FromSlash(change.Path))
		if _, err := os.Stat(abs); err == nil && !change.Deleted {
			toParse = append(toParse, abs)
			updatedFiles = append(updatedFiles, change.Path)
		}
	}

	added := 0
	err = idx.Crawler().ScanFiles(ctx, s.Root, toParse,
		func(doc *extractor.Document) {
			g.AddDocument(doc)
			delete(removed, doc.Slug)
			added++
		},
		func(path string, err error) {
			rel, relErr := filepath.Rel(s.Root, path)
			if relErr != nil {
				rel = path
			}
			slog.Warn("failed to parse document", "path", path, "err", err)
			g.ParseErrors = append(g.ParseErrors, graph.ParseError{Path: filepath.ToSlash(rel), Message: err.Error()})
		},
	)
	if err != nil {
		report.EndStage(stage, "error", nil, nil, err)
		return nil, fmt.Errorf("failed to parse changed documents: %w", err)
	}
	sort.Slice(g.ParseErrors, func(a, b int) bool { return g.ParseErrors[a].Path < g.ParseErrors[b].Path })

	removedSlugs := make([]string, 0, len(removed))
	for slug := range removed {
		removedSlugs = append(removedSlugs, slug)
	}
	sort.Strings(removedSlugs)

	fmt.Printf("📊 Graph Update: %d documents removed, %d documents added/updated.\n", len(removedSlugs), added)
	if g.EntryPoints == nil {
		g.EntryPoints = s.Config.Project.EntryPoints
	}
	for _, st := range idx.Resolve(g) {
		if st.Err != nil {
			report.EndStage(stage, "error", nil, nil, st.Err)
			return nil, fmt.Errorf("resolver %s failed: %w", st.Resolver, st.Err)
		}
	}
	fmt.Printf("  -> Linked edges: %d, unresolved links: %d\n", len(g.Edges), len(g.Unresolved))

	counters := graphCounters(g)
	counters["documents_removed"] = float64(len(removedSlugs))
	counters["documents_parsed"] = float64(added)
	report.EndStage(stage, "ok", counters, nil, nil)
	return &graphUpdateResult{Graph: g, UpdatedFiles: updatedFiles, Removed: removedSlugs}, nil
}

func (s *IncrementalSync) impactAnalysisStage(report *Report, graphResult *graphUpdateResult, changes []git.ChangedFile) *analysis.ImpactReport {
	fmt.Println("🔍 Analyzing impact...")
	stage := report.BeginStage("impact_analysis")
	analyzer := analysis.NewAnalyzer(graphResult.Graph)
	impact, err := analyzer.AnalyzeImpact(changes, graphResult.Removed)
	if err != nil {
		slog.Warn("impact analysis failed", "err", err)
		report.EndStage(stage, "error", nil, nil, err)
		return nil
	}

	fmt.Printf("  -> %d documents directly affected\n", len(impact.DirectlyAffected))
	fmt.Printf("  -> %d documents indirectly affected (backlinks)\n", len(impact.IndirectlyAffected))
	report.EndStage(stage, "ok", map[string]float64{
		"direct":   float64(len(impact.DirectlyAffected)),
		"indirect": float64(len(impact.IndirectlyAffected)),
		"removed":  float64(len(impact.Removed)),
	}, nil, nil)
	return impact
}

func (s *IncrementalSync) lintStage(ctx context.Context, report *Report, store *storage.SQLiteStore, g *graph.Graph, only map[string]bool) (*lint.Report, error) {
	fmt.Println("🩺 Checking affected documents...")
	stage := report.BeginStage("lint")
	corpus := &lint.Corpus{Root: s.Root, Graph: g, Config: s.Config, Only: only}
	lr := lint.Run(ctx, corpus, s.Rules)
	if _, err := store.SaveReport(ctx, lr); err != nil {
		report.EndStage(stage, "error", nil, nil, err)
		return lr, fmt.Errorf("failed to save lint report: %w", err)
	}
	if lr.HasErrors() {
		report.AddSignal("lint_errors", "lint", "warning", "Affected documents have error findings.", float64(lr.Counts[lint.SeverityError]))
	}
	report.EndStage(stage, "ok", map[string]float64{
		"errors":   float64(lr.Counts[lint.SeverityError]),
		"warnings": float64(lr.Counts[lint.SeverityWarning]),
		"infos":    float64(lr.Counts[lint.SeverityInfo]),
	}, nil, nil)
	return lr, nil
}

func dropParseErrors(g *graph.Graph, relPath string) {
	kept := g.ParseErrors[:0]
	for _, pe := range g.ParseErrors {
		if pe.Path != relPath {
			kept = append(kept, pe)
		}
	}
	g.ParseErrors = kept
}

func graphCounters(g *graph.Graph) map[string]float64 {
	return map[string]float64{
		"documents":    float64(len(g.Nodes)),
		"edges":        float64(len(g.Edges)),
		"unresolved":   float64(len(g.Unresolved)),
		"parse_errors": float64(len(g.ParseErrors)),
	}
}

func collectGraphFiles(g *graph.Graph) []string {
	files := make([]string, 0, len(g.Nodes))
	for _, slug := range g.Slugs() {
		if doc := g.Nodes[slug].Doc; doc != nil && doc.Path != "" {
			files = append(files, doc.Path)
		}
	}
	return files
}
