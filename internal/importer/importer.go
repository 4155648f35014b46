package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

var (
	// ErrExists is returned when the target document exists and Force is off.
	ErrExists = errors.New("document already exists")
	// ErrSelectorNotFound is returned when the selector matches nothing.
	ErrSelectorNotFound = errors.New("selector matched no element")
)

// Importer converts published HTML pages into Markdown documents.
type Importer struct {
	Client *http.Client
	Root   string
	Force  bool
}

// Result describes an imported document.
type Result struct {
	Slug  string `json:"slug"`
	Path  string `json:"path"`
	Title string `json:"title"`
	Bytes int    `json:"bytes"`
}

type frontMatter struct {
	Title  string `yaml:"title,omitempty"`
	Source string `yaml:"source"`
}

// New creates an importer writing below root.
func New(root string, client *http.Client) *Importer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Importer{Client: client, Root: root}
}

// Import fetches rawURL, converts the element matched by selector to
// Markdown and writes it as <root>/<slug>.md. An empty slug is derived
// from the last segment of the URL path.
func (i *Importer) Import(ctx context.Context, rawURL, selector, slug string) (*Result, error) {
	if selector == "" {
		selector = "body"
	}
	slug, err := cleanSlug(rawURL, slug)
	if err != nil {
		return nil, err
	}
	target := filepath.Join(i.Root, filepath.FromSlash(slug)+".md")
	if !i.Force {
		if _, err := os.Stat(target); err == nil {
			return nil, fmt.Errorf("%s: %w", target, ErrExists)
		}
	}

	doc, err := i.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	content := doc.Find(selector).First()
	if content.Length() == 0 {
		return nil, fmt.Errorf("%q: %w", selector, ErrSelectorNotFound)
	}
	body, err := htmltomarkdown.ConvertNode(content.Nodes[0])
	if err != nil {
		return nil, fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	fm, err := yaml.Marshal(frontMatter{Title: title, Source: rawURL})
	if err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}
	var out bytes.Buffer
	out.WriteString("---\n")
	out.Write(fm)
	out.WriteString("---\n\n")
	out.Write(bytes.TrimSpace(body))
	out.WriteString("\n")

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(target, out.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", target, err)
	}
	return &Result{Slug: slug, Path: target, Title: title, Bytes: out.Len()}, nil
}

func (i *Importer) fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := i.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download HTML: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP request failed with status: %d", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// cleanSlug validates slug, or derives one from the URL, and keeps it
// inside the corpus root.
func cleanSlug(rawURL, slug string) (string, error) {
	if slug == "" {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", fmt.Errorf("invalid url: %w", err)
		}
		base := path.Base(strings.TrimSuffix(u.Path, "/"))
		slug = strings.TrimSuffix(base, path.Ext(base))
		if slug == "" || slug == "." || slug == "/" {
			slug = "index"
		}
	}
	slug = strings.TrimSuffix(path.Clean("/"+filepath.ToSlash(slug)), ".md")
	slug = strings.TrimPrefix(slug, "/")
	if slug == "" {
		return "", fmt.Errorf("invalid slug %q", slug)
	}
	return slug, nil
}
