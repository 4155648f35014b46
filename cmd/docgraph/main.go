package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"docgraph/internal/config"
	"docgraph/internal/graph"
	"docgraph/internal/index"
	"docgraph/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:               "docgraph",
		Short:             "Link graph, checker and search for Markdown help corpora",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
	cfgFile string
	dbPath  string
	verbose bool

	cfg *config.Config
)

// exitError carries a process exit code other than 1.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(os.Stderr, ee.msg)
		}
		os.Exit(ee.code)
	}
	fmt.Fprintf(os.Stderr, "❌ %v\n", err)
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "docgraph.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the local graph database (SQLite); overrides storage.db")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(genCLICmd)
	rootCmd.AddCommand(importCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	loaded, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		loaded.Storage.DB = dbPath
	}
	cfg = loaded
	slog.Debug("configuration loaded", "file", cfgFile, "root", cfg.Project.Root, "db", cfg.Storage.DB)
	return nil
}

// rootArg overrides the configured corpus root with the first argument.
func rootArg(args []string) {
	if len(args) > 0 && args[0] != "" {
		cfg.Project.Root = args[0]
	}
}

// initStore opens the SQLite store.
func initStore() (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

// loadGraph returns the stored graph, scanning the corpus when the store
// is empty.
func loadGraph(ctx context.Context) (*graph.Graph, error) {
	store, err := initStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	g, err := store.LoadGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	if len(g.Nodes) > 0 {
		return g, nil
	}

	slog.Info("graph store is empty, scanning corpus", "root", cfg.Project.Root)
	idx, err := index.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	g, _, err = idx.BuildGraph(ctx, cfg.Project.Root)
	return g, err
}
