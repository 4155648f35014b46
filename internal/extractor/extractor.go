package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Extractor orchestrates the extraction process for a document format.
type Extractor struct {
	markdown *MarkdownExtractor
	shell    *ShellExtractor
	format   string
}

// NewExtractor creates a new extractor for a given document format. When
// tool is non-empty, shell samples are scanned for invocations of it.
func NewExtractor(format, tool string) (*Extractor, error) {
	switch format {
	case "markdown", "md":
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	e := &Extractor{markdown: NewMarkdownExtractor(), format: "markdown"}
	if tool != "" {
		e.shell = NewShellExtractor(tool)
	}
	return e, nil
}

// Markdown returns the underlying Markdown extractor.
func (e *Extractor) Markdown() *MarkdownExtractor {
	return e.markdown
}

// ExtractFromFile reads a single file below root and extracts its Document.
func (e *Extractor) ExtractFromFile(ctx context.Context, root, path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, fmt.Errorf("failed to relativize %s: %w", path, err)
	}
	return e.Extract(ctx, filepath.ToSlash(rel), content)
}

// Extract parses content as the document stored at relPath.
func (e *Extractor) Extract(ctx context.Context, relPath string, content []byte) (*Document, error) {
	doc, err := e.markdown.Parse(relPath, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", relPath, err)
	}

	if e.shell == nil {
		return doc, nil
	}
	for _, sample := range doc.CodeSamples {
		if !IsShellSample(sample) {
			continue
		}
		invs, err := e.shell.ExtractInvocations(ctx, sample)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", relPath, sample.Line, err)
		}
		doc.Invocations = append(doc.Invocations, invs...)
	}
	return doc, nil
}
