package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"docgraph/internal/graph"
	"docgraph/internal/index"
	"docgraph/internal/lint"
	"docgraph/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	scanReportPath string

	checkFormat   string
	checkExternal bool
	checkNoStore  bool

	updateBase       string
	updateForce      bool
	updateReportPath string
)

var scanCmd = &cobra.Command{
	Use:   "scan [root]",
	Short: "Scan the corpus and store its link graph locally",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rootArg(args)
		root := cfg.Project.Root
		report := pipeline.NewReport("scan", root)
		defer func() {
			if err := report.Save(scanReportPath); err != nil {
				fmt.Printf("⚠️  Failed to write report: %v\n", err)
			}
		}()

		fmt.Printf("📂 Scanning directory: %s\n", root)

		// 1. Initialize Store
		stage := report.BeginStage("init_store")
		store, err := initStore()
		if err != nil {
			report.EndStage(stage, "error", nil, nil, err)
			return err
		}
		defer store.Close()
		report.EndStage(stage, "ok", nil, nil, nil)

		// 2. Build Graph
		idx, err := index.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		fmt.Println("🚀 Building link graph...")
		stage = report.BeginStage("graph_build")
		start := time.Now()
		g, stages, err := idx.BuildGraph(ctx, root)
		if err != nil {
			report.EndStage(stage, "error", nil, nil, err)
			return fmt.Errorf("build failed: %w", err)
		}
		var notes []string
		for _, st := range stages {
			notes = append(notes, fmt.Sprintf("%s: attempted=%d resolved=%d unresolved %d->%d",
				st.Resolver, st.Stats.Attempted, st.Stats.Resolved, st.UnresolvedBefore, st.UnresolvedAfter))
		}
		report.EndStage(stage, "ok", map[string]float64{
			"documents":    float64(len(g.Nodes)),
			"edges":        float64(len(g.Edges)),
			"unresolved":   float64(len(g.Unresolved)),
			"parse_errors": float64(len(g.ParseErrors)),
		}, notes, nil)
		fmt.Printf("✅ Graph built in %v. Found %d documents and %d links.\n", time.Since(start), len(g.Nodes), len(g.Edges))

		reasons := g.UnresolvedReasonCounts()
		keys := make([]graph.UnresolvedReason, 0, len(reasons))
		for reason := range reasons {
			keys = append(keys, reason)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			fmt.Printf("  -> %d unresolved (%s)\n", reasons[k], k)
		}
		for _, pe := range g.ParseErrors {
			fmt.Printf("⚠️  Failed to parse %s: %s\n", pe.Path, pe.Message)
			report.AddSignal("parse_error", "graph_build", "warning", pe.Path+": "+pe.Message, 1)
		}

		// 3. Save to DB
		fmt.Println("💾 Saving to local database...")
		stage = report.BeginStage("save_graph")
		if err := store.SaveGraph(ctx, g); err != nil {
			report.EndStage(stage, "error", nil, nil, err)
			return fmt.Errorf("failed to save graph: %w", err)
		}
		report.EndStage(stage, "ok", nil, nil, nil)

		fmt.Printf("🎉 Scan complete! Database: %s\n", cfg.Storage.DB)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [root]",
	Short: "Check links, anchors, assets and content of the corpus",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rootArg(args)
		if checkExternal {
			cfg.Lint.CheckExternal = true
		}
		if checkFormat != "text" && checkFormat != "json" {
			return fmt.Errorf("unknown format %q (want text or json)", checkFormat)
		}

		idx, err := index.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		g, _, err := idx.BuildGraph(ctx, cfg.Project.Root)
		if err != nil {
			return fmt.Errorf("build failed: %w", err)
		}

		report := lint.Run(ctx, &lint.Corpus{Root: cfg.Project.Root, Graph: g, Config: cfg}, lint.DefaultRules())

		if !checkNoStore {
			store, err := initStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if _, err := store.SaveReport(ctx, report); err != nil {
				return fmt.Errorf("failed to save report: %w", err)
			}
		}

		if checkFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			printFindings(report)
		}

		if report.HasErrors() {
			return &exitError{code: 1}
		}
		return nil
	},
}

func printFindings(r *lint.Report) {
	for _, f := range r.Findings {
		loc := f.Path
		if loc == "" {
			loc = f.Slug
		}
		if f.Line > 0 {
			loc = fmt.Sprintf("%s:%d", loc, f.Line)
		}
		fmt.Printf("%s: %s [%s] %s\n", loc, strings.ToUpper(string(f.Severity)), f.Rule, f.Message)
	}
	icon := "✅"
	if r.HasErrors() {
		icon = "❌"
	}
	fmt.Printf("%s %d documents checked: %d errors, %d warnings, %d info\n", icon, r.Documents,
		r.Counts[lint.SeverityError], r.Counts[lint.SeverityWarning], r.Counts[lint.SeverityInfo])
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Incrementally update the stored graph and re-check documents affected by git changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sync := pipeline.NewIncrementalSync(cfg)
		sync.BaseRef = updateBase
		sync.ReportPath = updateReportPath

		res, err := sync.Run(cmd.Context(), updateForce)
		if err != nil {
			return err
		}
		if res.Graph == nil {
			return nil
		}

		if res.Plan != nil && len(res.Plan.Documents) > 0 {
			fmt.Println("📋 Review plan:")
			for _, d := range res.Plan.Documents {
				line := fmt.Sprintf("  -> %s (%s)", d.Slug, strings.Join(d.Reasons, ", "))
				if len(d.Sections) > 0 {
					line += " sections: #" + strings.Join(d.Sections, ", #")
				}
				fmt.Println(line)
			}
		}
		if res.Lint != nil {
			printFindings(res.Lint)
			if res.Lint.HasErrors() {
				return &exitError{code: 1}
			}
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanReportPath, "report", "", "Write a JSON stage report to this path")

	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format: text or json")
	checkCmd.Flags().BoolVar(&checkExternal, "external", false, "Also probe external links over HTTP")
	checkCmd.Flags().BoolVar(&checkNoStore, "no-store", false, "Do not record the run in the database")

	updateCmd.Flags().StringVar(&updateBase, "base", "HEAD", "Git ref to diff against")
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "Rebuild the whole graph")
	updateCmd.Flags().StringVar(&updateReportPath, "report", "", "Write a JSON stage report to this path")
}
