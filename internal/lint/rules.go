package lint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"docgraph/internal/config"
	"docgraph/internal/graph"
)

// DefaultRules returns every built-in rule in reporting order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "parse-error", Severity: SeverityError, Check: checkParseErrors},
		{Name: "dangling-link", Severity: SeverityError, Check: checkDanglingLinks},
		{Name: "missing-anchor", Severity: SeverityWarning, Check: checkMissingAnchors},
		{Name: "missing-asset", Severity: SeverityWarning, Check: checkMissingAssets},
		{Name: "empty-content", Severity: SeverityError, Check: checkEmptyContent},
		{Name: "missing-title", Severity: SeverityWarning, Check: checkMissingTitle},
		{Name: "duplicate-title", Severity: SeverityWarning, Check: checkDuplicateTitles},
		{Name: "orphan", Severity: SeverityInfo, Check: checkOrphans},
		{Name: "cli-field-consistency", Severity: SeverityWarning, Check: checkFieldConsistency},
		{Name: "link-list-targets", Severity: SeverityWarning, Check: checkLinkLists},
		{
			Name:     "external-link",
			Severity: SeverityWarning,
			OptIn:    func(cfg *config.Config) bool { return cfg.Lint.CheckExternal },
			Check:    checkExternalLinks,
		},
	}
}

func checkParseErrors(_ context.Context, c *Corpus) []Finding {
	var out []Finding
	for _, pe := range c.Graph.ParseErrors {
		out = append(out, Finding{Path: pe.Path, Message: pe.Message})
	}
	return out
}

func checkDanglingLinks(_ context.Context, c *Corpus) []Finding {
	var out []Finding
	for _, u := range c.Graph.Dangling() {
		msg := fmt.Sprintf("link %q does not resolve to a document", u.Destination)
		if u.Reason == graph.ReasonAmbiguous {
			msg = fmt.Sprintf("link %q is ambiguous: %s", u.Destination, strings.Join(u.Candidates, ", "))
		}
		out = append(out, Finding{Slug: u.From, Line: u.Line, Message: msg})
	}
	return out
}

func checkMissingAnchors(_ context.Context, c *Corpus) []Finding {
	var out []Finding
	for _, u := range c.Graph.Unresolved {
		if u.Reason != graph.ReasonMissingAnchor {
			continue
		}
		out = append(out, Finding{
			Slug:    u.From,
			Line:    u.Line,
			Message: fmt.Sprintf("anchor #%s not found in %s", u.Anchor, u.Target),
		})
	}
	return out
}

func checkMissingAssets(_ context.Context, c *Corpus) []Finding {
	if c.Root == "" {
		return nil
	}
	var out []Finding
	for _, a := range c.Graph.Assets {
		if _, err := os.Stat(filepath.Join(c.Root, filepath.FromSlash(a.Path))); err != nil {
			out = append(out, Finding{Slug: a.From, Line: a.Line, Message: fmt.Sprintf("file %s does not exist", a.Path)})
		}
	}
	return out
}

func checkEmptyContent(_ context.Context, c *Corpus) []Finding {
	var out []Finding
	for _, slug := range c.Graph.Slugs() {
		doc := c.Graph.Nodes[slug].Doc
		if doc == nil {
			continue
		}
		if len(doc.Headings) == 0 {
			out = append(out, Finding{Slug: slug, Line: 1, Message: "document has no heading"})
		}
		if doc.Paragraphs == 0 {
			out = append(out, Finding{Slug: slug, Line: 1, Message: "document has no paragraph text"})
		}
	}
	return out
}

func checkMissingTitle(_ context.Context, c *Corpus) []Finding {
	var out []Finding
	for _, slug := range c.Graph.Slugs() {
		doc := c.Graph.Nodes[slug].Doc
		if doc != nil && strings.TrimSpace(doc.Title) == "" {
			out = append(out, Finding{Slug: slug, Line: 1, Message: "no title in front matter or headings"})
		}
	}
	return out
}

func checkDuplicateTitles(_ context.Context, c *Corpus) []Finding {
	byTitle := make(map[string][]string)
	for _, slug := range c.Graph.Slugs() {
		doc := c.Graph.Nodes[slug].Doc
		if doc == nil || strings.TrimSpace(doc.Title) == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(doc.Title))
		byTitle[key] = append(byTitle[key], slug)
	}

	var out []Finding
	for _, slugs := range byTitle {
		if len(slugs) < 2 {
			continue
		}
		for _, slug := range slugs {
			var others []string
			for _, o := range slugs {
				if o != slug {
					others = append(others, o)
				}
			}
			title := c.Graph.Nodes[slug].Doc.Title
			out = append(out, Finding{
				Slug:    slug,
				Line:    1,
				Message: fmt.Sprintf("title %q is also used by %s", title, strings.Join(others, ", ")),
			})
		}
	}
	return out
}

func checkOrphans(_ context.Context, c *Corpus) []Finding {
	var out []Finding
	for _, slug := range c.Graph.Orphans() {
		out = append(out, Finding{Slug: slug, Message: "no document links here"})
	}
	return out
}

// checkLinkLists verifies lists made only of links, such as the list of
// log types on an overview page: every item must reach a document and no
// two items may reach the same one.
func checkLinkLists(_ context.Context, c *Corpus) []Finding {
	var out []Finding
	for _, slug := range c.Graph.Slugs() {
		doc := c.Graph.Nodes[slug].Doc
		if doc == nil {
			continue
		}
		for _, list := range doc.Lists {
			seen := make(map[string]string) // target -> item text
			for _, item := range list.Items {
				for _, link := range item.Links {
					res := c.Graph.LinkTarget(doc, link)
					switch res.Kind {
					case graph.TargetExternal:
						continue
					case graph.TargetDocument:
					default:
						out = append(out, Finding{
							Slug:    slug,
							Line:    link.Line,
							Message: fmt.Sprintf("list item %q links to %q, which is not a document", item.Text, link.Destination),
						})
						continue
					}

					target := res.Slug
					if res.Anchor != "" {
						target += "#" + res.Anchor
					}
					if prev, dup := seen[target]; dup {
						out = append(out, Finding{
							Slug:    slug,
							Line:    link.Line,
							Message: fmt.Sprintf("list items %q and %q both link to %s", prev, item.Text, target),
						})
						continue
					}
					seen[target] = item.Text
				}
			}
		}
	}
	return out
}

func checkExternalLinks(ctx context.Context, c *Corpus) []Finding {
	checker := c.External
	if checker == nil {
		checker = NewExternalChecker(c.Config.Lint.ExternalTimeout, c.Config.Lint.ExternalRetries)
	}

	var urls []string
	seen := make(map[string]bool)
	for _, l := range c.Graph.External {
		if !seen[l.URL] {
			seen[l.URL] = true
			urls = append(urls, l.URL)
		}
	}
	sort.Strings(urls)

	failures := checker.Check(ctx, urls)
	var out []Finding
	for _, l := range c.Graph.External {
		if err, bad := failures[l.URL]; bad {
			out = append(out, Finding{Slug: l.From, Line: l.Line, Message: fmt.Sprintf("%s: %v", l.URL, err)})
		}
	}
	return out
}
