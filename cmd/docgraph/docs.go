package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"docgraph/internal/generator"
	"docgraph/internal/importer"

	"github.com/spf13/cobra"
)

// exitDirty is returned by gen-cli --check-dirty when pages would change.
const exitDirty = 3

var (
	genSource     string
	genStdin      bool
	genOut        string
	genCheckDirty bool

	importSelector string
	importSlug     string
	importForce    bool
)

var genCLICmd = &cobra.Command{
	Use:   "gen-cli",
	Short: "Generate CLI reference pages from introspector JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		source := genSource
		if source == "" && !genStdin {
			source = cfg.CLIDoc.Source
		}
		var r io.Reader
		switch {
		case genStdin:
			r = os.Stdin
		case source != "":
			f, err := os.Open(source)
			if err != nil {
				return fmt.Errorf("failed to open source: %w", err)
			}
			defer f.Close()
			r = f
		default:
			return errors.New("either --source or --stdin is required")
		}

		cmds, err := generator.LoadCommands(r)
		if err != nil {
			return err
		}

		out := genOut
		if out == "" {
			out = cfg.CLIDoc.Out
		}
		if out == "" {
			out = cfg.Project.Root
		}

		gen := generator.New(out, cfg.CLIDoc.SkipGroups, genCheckDirty)
		stats, err := gen.Run(cmd.Context(), cmds)
		if err != nil {
			return err
		}

		if genCheckDirty {
			if stats.Dirty() {
				for _, p := range stats.WouldChange {
					fmt.Printf("✏️  %s would change\n", p)
				}
				return &exitError{code: exitDirty, msg: fmt.Sprintf("%d pages out of date", len(stats.WouldChange))}
			}
			fmt.Println("✅ CLI reference pages are up to date.")
			return nil
		}
		fmt.Printf("📝 %d commands: %d pages created, %d updated, %d unchanged in %s\n",
			stats.Commands, stats.Created, stats.Updated, stats.Skipped, out)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <url>",
	Short: "Import a published HTML page into the corpus as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		imp := importer.New(cfg.Project.Root, nil)
		imp.Force = importForce

		fmt.Printf("🌍 Fetching %s\n", args[0])
		res, err := imp.Import(cmd.Context(), args[0], importSelector, importSlug)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Imported %q as %s (%d bytes)\n", res.Title, res.Path, res.Bytes)
		return nil
	},
}

func init() {
	genCLICmd.Flags().StringVarP(&genSource, "source", "s", "", "Introspector JSON file (default from clidoc.source)")
	genCLICmd.Flags().BoolVar(&genStdin, "stdin", false, "Read introspector JSON from stdin")
	genCLICmd.Flags().StringVarP(&genOut, "out", "o", "", "Output directory (default from clidoc.out, then project.root)")
	genCLICmd.Flags().BoolVar(&genCheckDirty, "check-dirty", false, "Report pages that would change without writing them; exits 3 if any")
	genCLICmd.MarkFlagsMutuallyExclusive("source", "stdin")

	importCmd.Flags().StringVar(&importSelector, "selector", "body", "CSS selector of the content element")
	importCmd.Flags().StringVar(&importSlug, "slug", "", "Target slug (default from the URL)")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Overwrite an existing document")
}
