package extractor

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor turns Markdown source into a Document. The goldmark
// instance is configured once and is safe for concurrent Parse calls.
type MarkdownExtractor struct {
	md goldmark.Markdown
}

func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Markdown exposes the configured goldmark instance for HTML rendering.
func (m *MarkdownExtractor) Markdown() goldmark.Markdown {
	return m.md
}

// Parse builds a Document from the file at relPath (relative to the corpus
// root) with the given content.
func (m *MarkdownExtractor) Parse(relPath string, content []byte) (*Document, error) {
	fm, body, format, bodyLine, err := splitFrontMatter(content)
	if err != nil {
		return nil, err
	}

	relPath = path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	doc := &Document{
		Slug:        SlugFromPath(relPath),
		Path:        relPath,
		FrontMatter: fm,
		Format:      format,
		Body:        strings.TrimSpace(string(body)),
		ContentHash: hashContent(content),
	}
	if s := frontMatterString(fm, "slug"); s != "" {
		doc.Slug = strings.Trim(s, "/")
	}

	root := m.md.Parser().Parse(text.NewReader(body))
	w := &walker{
		source:     body,
		lineStarts: lineStarts(body),
		lineOffset: bodyLine,
		anchors:    make(map[string]int),
		doc:        doc,
	}
	if err := ast.Walk(root, w.visit); err != nil {
		return nil, fmt.Errorf("walk %s: %w", relPath, err)
	}

	doc.Title = frontMatterString(fm, "title")
	if doc.Title == "" {
		doc.Title = w.firstH1
	}
	if doc.Title == "" && len(doc.Headings) > 0 {
		doc.Title = doc.Headings[0].Text
	}
	return doc, nil
}

// SlugFromPath drops the extension from a corpus-relative path.
func SlugFromPath(relPath string) string {
	relPath = strings.TrimPrefix(path.Clean(strings.ReplaceAll(relPath, "\\", "/")), "./")
	return strings.TrimSuffix(relPath, path.Ext(relPath))
}

// Anchor converts heading text into a GitHub-style fragment identifier.
func Anchor(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(heading)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

type walker struct {
	source     []byte
	lineStarts []int
	lineOffset int
	anchors    map[string]int
	firstH1    string
	doc        *Document
}

func (w *walker) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	switch node := n.(type) {
	case *ast.Heading:
		txt := strings.TrimSpace(inlineText(node, w.source))
		w.doc.Headings = append(w.doc.Headings, Heading{
			Level:  node.Level,
			Text:   txt,
			Anchor: w.uniqueAnchor(txt),
			Line:   w.lineOf(node),
		})
		if node.Level == 1 && w.firstH1 == "" {
			w.firstH1 = txt
		}

	case *ast.Paragraph:
		if strings.TrimSpace(inlineText(node, w.source)) != "" {
			w.doc.Paragraphs++
		}

	case *ast.FencedCodeBlock:
		w.doc.CodeSamples = append(w.doc.CodeSamples, CodeSample{
			Language: strings.ToLower(string(node.Language(w.source))),
			Content:  blockContent(node, w.source),
			Line:     w.lineOf(node) - 1, // opening fence
		})
		return ast.WalkSkipChildren, nil

	case *ast.CodeBlock:
		w.doc.CodeSamples = append(w.doc.CodeSamples, CodeSample{
			Content: blockContent(node, w.source),
			Line:    w.lineOf(node),
		})
		return ast.WalkSkipChildren, nil

	case *ast.List:
		if list, ok := w.linkList(node); ok {
			w.doc.Lists = append(w.doc.Lists, list)
		}

	case *ast.Link, *ast.Image, *ast.AutoLink:
		if link, ok := w.link(node); ok {
			w.doc.Links = append(w.doc.Links, link)
		}
	}
	return ast.WalkContinue, nil
}

func (w *walker) uniqueAnchor(heading string) string {
	base := Anchor(heading)
	n := w.anchors[base]
	w.anchors[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}

func (w *walker) link(n ast.Node) (Link, bool) {
	switch node := n.(type) {
	case *ast.Link:
		return Link{
			Kind:        LinkKindInline,
			Destination: string(node.Destination),
			Text:        strings.TrimSpace(inlineText(node, w.source)),
			Line:        w.lineOf(node),
		}, true
	case *ast.Image:
		return Link{
			Kind:        LinkKindImage,
			Destination: string(node.Destination),
			Text:        strings.TrimSpace(inlineText(node, w.source)),
			Line:        w.lineOf(node),
		}, true
	case *ast.AutoLink:
		dest := string(node.URL(w.source))
		if node.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(dest, "mailto:") {
			dest = "mailto:" + dest
		}
		return Link{
			Kind:        LinkKindAuto,
			Destination: dest,
			Text:        string(node.Label(w.source)),
			Line:        w.lineOf(node),
		}, true
	}
	return Link{}, false
}

// linkList collects a list whose items all contain links. Links inside
// nested lists belong to the nested list, not to the enclosing item.
func (w *walker) linkList(list *ast.List) (LinkList, bool) {
	out := LinkList{Line: w.lineOf(list)}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		li := LinkListItem{}
		_ = ast.Walk(item, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			if _, nested := c.(*ast.List); nested {
				return ast.WalkSkipChildren, nil
			}
			if link, ok := w.link(c); ok {
				li.Links = append(li.Links, link)
			}
			if c.Type() == ast.TypeBlock && c.Kind() != ast.KindListItem && li.Text == "" {
				li.Text = strings.TrimSpace(inlineText(c, w.source))
			}
			return ast.WalkContinue, nil
		})
		if len(li.Links) == 0 {
			return LinkList{}, false
		}
		out.Items = append(out.Items, li)
	}
	return out, len(out.Items) > 1
}

// lineOf returns the 1-based source line of n. Inline nodes take the
// position of their first text segment, falling back to the enclosing block.
func (w *walker) lineOf(n ast.Node) int {
	pos := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if c.Type() == ast.TypeBlock {
			if lines := c.Lines(); lines != nil && lines.Len() > 0 {
				pos = lines.At(0).Start
				return ast.WalkStop, nil
			}
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			pos = t.Segment.Start
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if pos < 0 {
		for p := n.Parent(); p != nil; p = p.Parent() {
			if p.Type() != ast.TypeBlock {
				continue
			}
			if lines := p.Lines(); lines != nil && lines.Len() > 0 {
				pos = lines.At(0).Start
				break
			}
		}
	}
	if pos < 0 {
		return 0
	}
	line := sort.Search(len(w.lineStarts), func(i int) bool { return w.lineStarts[i] > pos })
	return line + w.lineOffset
}

func lineStarts(source []byte) []int {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func blockContent(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

func inlineText(n ast.Node, source []byte) string {
	var buf strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.Label(source))
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.List:
			if c != n {
				return ast.WalkSkipChildren, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
