package graph

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"docgraph/internal/extractor"
)

type TargetKind string

const (
	TargetDocument TargetKind = "document"
	TargetExternal TargetKind = "external"
	TargetAsset    TargetKind = "asset"
	TargetMissing  TargetKind = "missing"
)

// Resolution is the outcome of resolving one link destination.
type Resolution struct {
	Kind       TargetKind       `json:"kind"`
	Slug       string           `json:"slug,omitempty"`
	Target     string           `json:"target,omitempty"`
	Anchor     string           `json:"anchor,omitempty"`
	URL        string           `json:"url,omitempty"`
	Path       string           `json:"path,omitempty"`
	Resolver   string           `json:"resolver,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
	Reason     UnresolvedReason `json:"reason,omitempty"`
	Candidates []string         `json:"candidates,omitempty"`
}

var (
	topicLink   = regexp.MustCompile(`(?:^|/)t/([^/]+)/(\d+)$`)
	topicNumber = regexp.MustCompile(`^(.+)-(\d+)$`)
	assetExt    = regexp.MustCompile(`^\.[A-Za-z][A-Za-z0-9]{0,4}$`)
)

var docExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
}

// IsExternal reports whether dest leaves the corpus: it carries a URL
// scheme or is protocol-relative.
func IsExternal(dest string) bool {
	if strings.HasPrefix(dest, "//") {
		return true
	}
	u, err := url.Parse(dest)
	if err != nil {
		return false
	}
	// A single letter is a Windows drive, not a scheme.
	return len(u.Scheme) > 1
}

// ResolveDestination resolves a link destination written in the document
// from. Relative paths are taken from the directory of from.Path; paths
// starting with "/" from the corpus root.
func (g *Graph) ResolveDestination(from *extractor.Document, dest string) Resolution {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return Resolution{Kind: TargetMissing, Reason: ReasonNoCandidate}
	}
	if IsExternal(dest) {
		return Resolution{Kind: TargetExternal, URL: dest}
	}

	rawPath, anchor, _ := strings.Cut(dest, "#")
	rawPath, _, _ = strings.Cut(rawPath, "?")
	if rawPath == "" {
		return g.withAnchor(Resolution{
			Kind:       TargetDocument,
			Slug:       from.Slug,
			Target:     from.Slug,
			Resolver:   "self",
			Confidence: ConfidenceExact,
		}, anchor)
	}

	joined := joinPath(from.Path, rawPath)
	target := joined
	ext := strings.ToLower(path.Ext(joined))
	if docExts[ext] {
		target = strings.TrimSuffix(joined, path.Ext(joined))
	}
	if target == "" || target == "." || target == "index" {
		target = "index"
	}

	res := g.lookup(target)
	res.Target = target
	if res.Kind == TargetDocument {
		return g.withAnchor(res, anchor)
	}
	res.Anchor = anchor
	if res.Reason == ReasonNoCandidate && !docExts[ext] && assetExt.MatchString(path.Ext(joined)) {
		return Resolution{Kind: TargetAsset, Path: joined, Target: target}
	}
	return res
}

// LinkTarget reports where a link of from ended up after the resolver
// chain ran, so that later resolver stages count. Links that were never
// linked fall back to ResolveDestination.
func (g *Graph) LinkTarget(from *extractor.Document, link extractor.Link) Resolution {
	for _, u := range g.Unresolved {
		if u.From == from.Slug && u.Line == link.Line && u.Destination == link.Destination && u.Reason != ReasonMissingAnchor {
			return Resolution{
				Kind:       TargetMissing,
				Target:     u.Target,
				Anchor:     u.Anchor,
				Reason:     u.Reason,
				Candidates: u.Candidates,
			}
		}
	}
	for _, e := range g.Edges {
		if e.From == from.Slug && e.Line == link.Line && e.Destination == link.Destination {
			return g.withAnchor(Resolution{
				Kind:       TargetDocument,
				Slug:       e.To,
				Target:     e.To,
				Resolver:   e.Resolver,
				Confidence: e.Confidence,
			}, e.Anchor)
		}
	}
	return g.ResolveDestination(from, link.Destination)
}

func (g *Graph) withAnchor(res Resolution, anchor string) Resolution {
	res.Anchor = anchor
	if anchor == "" {
		return res
	}
	if node, ok := g.Nodes[res.Slug]; ok && node.Doc != nil && !node.Doc.HasAnchor(anchor) {
		res.Reason = ReasonMissingAnchor
	}
	return res
}

// Lookup finds the document for a normalized target, trying the exact
// slug, the file path, the alias index and finally topic links.
func (g *Graph) Lookup(target string) Resolution {
	res := g.lookup(target)
	res.Target = target
	return res
}

func (g *Graph) lookup(target string) Resolution {
	found := func(slug, resolver string, conf float64) Resolution {
		return Resolution{Kind: TargetDocument, Slug: slug, Resolver: resolver, Confidence: conf}
	}

	// 1. Exact slug, with or without a trailing index
	for _, cand := range exactCandidates(target) {
		if _, ok := g.Nodes[cand]; ok {
			return found(cand, "slug", ConfidenceExact)
		}
		if slug, ok := g.pathIndex[cand]; ok {
			return found(slug, "path", ConfidenceExact)
		}
	}

	// 2. Topic links: /t/<name>/<id>
	if m := topicLink.FindStringSubmatch(target); m != nil {
		if slugs := g.topicIndex[m[2]]; len(slugs) == 1 {
			return found(slugs[0], "topic", ConfidenceTopic)
		}
		return g.fromAlias([]string{m[1]}, "topic", ConfidenceTopic)
	}

	// 3. Alias index on the basename
	base := path.Base(target)
	keys := []string{base}
	if name, _, ok := splitTopicNumber(base); ok {
		keys = append(keys, name)
	}
	return g.fromAlias(keys, "alias", ConfidenceAlias)
}

func (g *Graph) fromAlias(keys []string, resolver string, conf float64) Resolution {
	for _, key := range keys {
		slugs := g.aliasIndex[key]
		switch {
		case len(slugs) == 1:
			return Resolution{Kind: TargetDocument, Slug: slugs[0], Resolver: resolver, Confidence: conf}
		case len(slugs) > 1:
			cands := append([]string(nil), slugs...)
			sort.Strings(cands)
			return Resolution{Kind: TargetMissing, Reason: ReasonAmbiguous, Candidates: cands}
		}
	}
	return Resolution{Kind: TargetMissing, Reason: ReasonNoCandidate}
}

func exactCandidates(target string) []string {
	if trimmed, ok := strings.CutSuffix(target, "/index"); ok {
		return []string{target, trimmed}
	}
	return []string{target, target + "/index"}
}

func joinPath(fromPath, rawPath string) string {
	if unescaped, err := url.PathUnescape(rawPath); err == nil {
		rawPath = unescaped
	}
	if strings.HasPrefix(rawPath, "/") {
		return strings.TrimPrefix(path.Clean(rawPath), "/")
	}
	return path.Join(path.Dir(fromPath), rawPath)
}

func splitTopicNumber(base string) (name, id string, ok bool) {
	m := topicNumber.FindStringSubmatch(base)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
