package lint

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

type fieldUse struct {
	slug string
	line int
}

// checkFieldConsistency compares the key=value parameters passed to each
// "resource action" group across all CLI samples. A key is flagged when it
// is not a configured known field and sits close to one that is known or
// more common in the same group.
func checkFieldConsistency(_ context.Context, c *Corpus) []Finding {
	uses := make(map[string]map[string][]fieldUse) // group -> key -> uses
	for _, slug := range c.Graph.Slugs() {
		doc := c.Graph.Nodes[slug].Doc
		if doc == nil {
			continue
		}
		for _, inv := range doc.Invocations {
			if inv.Resource == "" || len(inv.ParamOrder) == 0 {
				continue
			}
			group := inv.Group()
			if uses[group] == nil {
				uses[group] = make(map[string][]fieldUse)
			}
			for _, key := range inv.ParamOrder {
				uses[group][key] = append(uses[group][key], fieldUse{slug: slug, line: inv.Line})
			}
		}
	}

	maxEdit := c.Config.Lint.MaxEdit
	var out []Finding
	groups := make([]string, 0, len(uses))
	for g := range uses {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, group := range groups {
		keys := uses[group]
		known := make(map[string]bool)
		for _, k := range c.Config.Lint.KnownFields[group] {
			known[k] = true
		}

		for _, key := range sortedFieldKeys(keys) {
			if known[key] {
				continue
			}
			var candidates []string
			for k := range known {
				candidates = append(candidates, k)
			}
			for k, u := range keys {
				if k != key && !known[k] && len(u) > len(keys[key]) {
					candidates = append(candidates, k)
				}
			}

			suggestion, reason := closestField(key, candidates, keys, maxEdit)
			if suggestion == "" {
				continue
			}
			for _, u := range keys[key] {
				out = append(out, Finding{
					Slug:    u.slug,
					Line:    u.line,
					Message: fmt.Sprintf("%s: field %q %s %q", group, key, reason, suggestion),
				})
			}
		}
	}
	return out
}

// closestField returns the candidate that key most likely misspells.
func closestField(key string, candidates []string, uses map[string][]fieldUse, maxEdit int) (string, string) {
	sort.Strings(candidates)
	for _, cand := range candidates {
		if normalizeField(cand) == normalizeField(key) {
			return cand, "differs only by case or separator from"
		}
	}

	best, bestDist := "", maxEdit+1
	for _, cand := range candidates {
		allowed := maxEdit
		if min(len(key), len(cand)) <= 4 {
			allowed = 1
		}
		d := levenshtein(key, cand)
		if d > allowed {
			continue
		}
		if d < bestDist || (d == bestDist && len(uses[cand]) > len(uses[best])) {
			best, bestDist = cand, d
		}
	}
	if best == "" {
		return "", ""
	}
	return best, "looks like a misspelling of"
}

func normalizeField(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "-", "_")
}

func sortedFieldKeys(m map[string][]fieldUse) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// levenshtein computes the Levenshtein edit distance between two strings.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Single row of the distance matrix, updated in place.
	if len(a) > len(b) {
		a, b = b, a
	}

	previous := make([]int, len(a)+1)
	for i := range previous {
		previous[i] = i
	}

	for j := 1; j <= len(b); j++ {
		current := make([]int, len(a)+1)
		current[0] = j

		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[i] = min(previous[i]+1, current[i-1]+1, previous[i-1]+cost)
		}
		previous = current
	}
	return previous[len(a)]
}
