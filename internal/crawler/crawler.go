package crawler

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"docgraph/internal/extractor"

	"golang.org/x/sync/errgroup"
)

// Crawler scans a directory for document files.
type Crawler struct {
	extractor  *extractor.Extractor
	ignored    []string
	extensions []string
	workers    int
}

// Option customizes a Crawler.
type Option func(*Crawler)

// WithIgnored replaces the directory names skipped during the walk.
func WithIgnored(names ...string) Option {
	return func(c *Crawler) { c.ignored = names }
}

// WithExtensions sets the file extensions that are parsed.
func WithExtensions(exts ...string) Option {
	return func(c *Crawler) { c.extensions = exts }
}

// WithWorkers bounds the number of files parsed concurrently.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewCrawler creates a new crawler instance.
func NewCrawler(ext *extractor.Extractor, opts ...Option) *Crawler {
	c := &Crawler{
		extractor:  ext,
		ignored:    []string{".git", "node_modules", "vendor", "_build"},
		extensions: []string{".md"},
		workers:    8,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ScanProject walks the root directory and parses every matching file.
// Documents are delivered to onDoc in path order once parsing finishes.
// Files that fail to parse are reported to onErr and do not stop the scan.
func (c *Crawler) ScanProject(ctx context.Context, root string, onDoc func(*extractor.Document), onErr func(path string, err error)) error {
	paths, err := c.collect(root)
	if err != nil {
		return err
	}
	return c.parse(ctx, root, paths, onDoc, onErr)
}

// ScanFiles parses only the given paths, which must lie below root.
func (c *Crawler) ScanFiles(ctx context.Context, root string, paths []string, onDoc func(*extractor.Document), onErr func(path string, err error)) error {
	var wanted []string
	for _, p := range paths {
		if c.Matches(p) {
			wanted = append(wanted, p)
		}
	}
	return c.parse(ctx, root, wanted, onDoc, onErr)
}

// Matches reports whether path has one of the configured extensions and
// does not lie inside an ignored directory.
func (c *Crawler) Matches(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		if c.isIgnored(part) {
			return false
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (c *Crawler) collect(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path != root && c.isIgnored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if c.Matches(path) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func (c *Crawler) isIgnored(name string) bool {
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	return false
}

func (c *Crawler) parse(ctx context.Context, root string, paths []string, onDoc func(*extractor.Document), onErr func(path string, err error)) error {
	docs := make([]*extractor.Document, len(paths))

	var errMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := c.extractor.ExtractFromFile(gctx, root, path)
			if err != nil {
				// Log and continue instead of failing the whole scan
				if onErr != nil {
					errMu.Lock()
					onErr(path, err)
					errMu.Unlock()
				}
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.SliceStable(docs, func(a, b int) bool {
		if docs[a] == nil || docs[b] == nil {
			return docs[b] == nil && docs[a] != nil
		}
		return docs[a].Path < docs[b].Path
	})
	for _, doc := range docs {
		if doc != nil {
			onDoc(doc)
		}
	}
	return nil
}
