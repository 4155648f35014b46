package knowledge

import (
	"strings"
	"sync/atomic"

	"docgraph/internal/extractor"
	"docgraph/internal/graph"
)

// Engine serves full-text search over the documents of a graph. Rebuilds
// swap the index atomically, so searches never see a partial index.
type Engine struct {
	index atomic.Pointer[Index]
}

// NewEngine creates an engine with an empty index.
func NewEngine() *Engine {
	e := &Engine{}
	e.index.Store(NewIndex(nil))
	return e
}

// IndexAll rebuilds the index from every document in g.
func (e *Engine) IndexAll(g *graph.Graph) {
	var entries []Entry
	for _, slug := range g.Slugs() {
		if doc := g.Nodes[slug].Doc; doc != nil {
			entries = append(entries, EntryFromDocument(doc))
		}
	}
	e.index.Store(NewIndex(entries))
}

// Search returns up to limit hits for query.
func (e *Engine) Search(query string, limit int) []Hit {
	return e.index.Load().Search(query, limit)
}

// Len returns the number of indexed documents.
func (e *Engine) Len() int {
	return e.index.Load().Len()
}

// EntryFromDocument converts a document into weighted search fields.
func EntryFromDocument(doc *extractor.Document) Entry {
	headings := make([]string, 0, len(doc.Headings))
	for _, h := range doc.Headings {
		headings = append(headings, h.Text)
	}
	code := make([]string, 0, len(doc.CodeSamples))
	for _, c := range doc.CodeSamples {
		code = append(code, c.Content)
	}

	return Entry{
		Slug:  doc.Slug,
		Title: doc.Title,
		Body:  doc.Body,
		Fields: []Field{
			{Text: doc.Title, Weight: WeightTitle},
			{Text: strings.Join(headings, "\n"), Weight: WeightHeadings},
			{Text: stripCode(doc.Body), Weight: WeightBody},
			{Text: strings.Join(code, "\n"), Weight: WeightCode},
		},
	}
}

// stripCode removes fenced blocks so code is only counted once.
func stripCode(body string) string {
	var b strings.Builder
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if !inFence {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
