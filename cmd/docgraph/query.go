package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"docgraph/internal/knowledge"
	"docgraph/internal/retrieval"

	"github.com/spf13/cobra"
)

var (
	searchLimit int

	showJSON bool
	showHops int

	historyLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over the corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(cmd.Context())
		if err != nil {
			return err
		}
		engine := knowledge.NewEngine()
		engine.IndexAll(g)

		query := strings.Join(args, " ")
		hits := engine.Search(query, searchLimit)
		if len(hits) == 0 {
			fmt.Printf("🔍 No results for %q.\n", query)
			return nil
		}
		for i, h := range hits {
			fmt.Printf("%d. %s (%s) score=%.3f\n", i+1, h.Title, h.Slug, h.Score)
			if h.Snippet != "" {
				fmt.Printf("   %s\n", h.Snippet)
			}
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Show a document with its links and backlinks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(cmd.Context())
		if err != nil {
			return err
		}
		slug := strings.Trim(args[0], "/")
		doc, err := g.Document(slug)
		if err != nil {
			return err
		}
		backlinks, _ := g.Backlinks(slug)

		hood := retrieval.DefaultConfig()
		hood.MaxHops = showHops
		sub, err := retrieval.Neighborhood(g, slug, hood)
		if err != nil {
			return err
		}

		if showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"document":     doc,
				"backlinks":    backlinks,
				"neighborhood": sub,
			})
		}

		fmt.Printf("📄 %s\n", doc.Title)
		fmt.Printf("   slug: %s\n   path: %s\n", doc.Slug, doc.Path)
		if len(doc.Headings) > 0 {
			fmt.Println("📑 Headings:")
			for _, h := range doc.Headings {
				fmt.Printf("   %s%s (#%s)\n", strings.Repeat("  ", h.Level-1), h.Text, h.Anchor)
			}
		}
		fmt.Printf("🔗 Outbound links: %d\n", len(g.GetDependencies(slug)))
		for _, n := range g.GetDependencies(slug) {
			fmt.Printf("   -> %s\n", n.Doc.Slug)
		}
		fmt.Printf("↩️  Backlinks: %d\n", len(backlinks))
		for _, e := range backlinks {
			fmt.Printf("   <- %s:%d\n", e.From, e.Line)
		}
		fmt.Printf("🕸️  Within %d hops: %s\n", sub.MaxHops, strings.Join(sub.Slugs, ", "))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded check runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := initStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No check runs recorded.")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("%s  %s  %d docs  %d errors  %d warnings  %d info\n",
				r.StartedAt.Format("2006-01-02 15:04:05"), r.ID, r.Documents, r.Errors, r.Warnings, r.Infos)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results")

	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print JSON")
	showCmd.Flags().IntVar(&showHops, "hops", 1, "Neighborhood depth")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs")
}
