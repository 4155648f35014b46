package generator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Generator writes one CLI reference page per command group.
type Generator struct {
	OutDir     string
	SkipGroups map[string]bool
	// CheckDirty reports pages that would change without writing them.
	CheckDirty bool
}

// New creates a generator writing under outDir.
func New(outDir string, skipGroups []string, checkDirty bool) *Generator {
	skip := make(map[string]bool, len(skipGroups))
	for _, g := range skipGroups {
		skip[g] = true
	}
	return &Generator{OutDir: outDir, SkipGroups: skip, CheckDirty: checkDirty}
}

// Run renders every group and writes pages whose content changed.
func (g *Generator) Run(ctx context.Context, cmds []Command) (Stats, error) {
	var stats Stats
	if len(cmds) == 0 {
		return stats, ErrNoCommands
	}
	if !g.CheckDirty {
		if err := os.MkdirAll(g.OutDir, 0o755); err != nil {
			return stats, fmt.Errorf("create output dir: %w", err)
		}
	}

	groups, unique := groupCommands(cmds)
	stats.Commands = unique

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if g.SkipGroups[name] {
			continue
		}
		content, err := renderPage(groups[name])
		if err != nil {
			return stats, fmt.Errorf("render %s: %w", name, err)
		}
		path := pageFile(name, g.OutDir)
		if err := g.write(path, content, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (g *Generator) write(path, content string, stats *Stats) error {
	existing, exists, err := readIfExists(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	switch {
	case exists && existing == content:
		stats.Skipped++
		return nil
	case exists:
		stats.Updated++
	default:
		stats.Created++
	}

	rel, relErr := filepath.Rel(g.OutDir, path)
	if relErr != nil {
		rel = path
	}
	stats.WouldChange = append(stats.WouldChange, filepath.ToSlash(rel))
	if g.CheckDirty {
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Debug("wrote CLI page", "path", path)
	return nil
}

// renderPage renders all commands of one group into a single page.
func renderPage(cmds []groupedCommand) (string, error) {
	parts := make([]string, 0, len(cmds))
	for _, c := range cmds {
		md, err := RenderCommand(c.cmd, c.path)
		if err != nil {
			return "", err
		}
		parts = append(parts, strings.TrimRightFunc(md, isSpace))
	}
	return strings.Join(parts, "\n\n") + "\n", nil
}
