package knowledge

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// BM25 parameters (Okapi variant).
const (
	paramK1 = 1.2
	paramB  = 0.75
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Index is an immutable BM25 index. It is safe for concurrent reads.
type Index struct {
	entries   []Entry
	termFreqs []map[string]int
	lengths   []int
	avgLength float64
	idf       map[string]float64
}

// NewIndex builds an index over entries.
func NewIndex(entries []Entry) *Index {
	idx := &Index{
		entries:   entries,
		termFreqs: make([]map[string]int, len(entries)),
		lengths:   make([]int, len(entries)),
		idf:       make(map[string]float64),
	}

	docFreq := make(map[string]int)
	var total int
	for i, e := range entries {
		tokens := compositeTokens(e)
		idx.lengths[i] = len(tokens)
		total += len(tokens)

		tf := make(map[string]int)
		for _, tok := range tokens {
			if tf[tok] == 0 {
				docFreq[tok]++
			}
			tf[tok]++
		}
		idx.termFreqs[i] = tf
	}
	if len(entries) > 0 {
		idx.avgLength = float64(total) / float64(len(entries))
	}

	// The +1 keeps IDF positive for terms present in most documents.
	n := float64(len(entries))
	for term, df := range docFreq {
		idx.idf[term] = math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
	}
	return idx
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Search ranks entries against query and returns up to limit hits with a
// positive score. Ties are broken by slug.
func (idx *Index) Search(query string, limit int) []Hit {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	type scored struct {
		i     int
		score float64
	}
	var hits []scored
	for i := range idx.entries {
		if s := idx.score(i, terms); s > 0 {
			hits = append(hits, scored{i: i, score: s})
		}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return idx.entries[hits[a].i].Slug < idx.entries[hits[b].i].Slug
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]Hit, len(hits))
	for n, h := range hits {
		e := idx.entries[h.i]
		out[n] = Hit{
			Slug:    e.Slug,
			Title:   e.Title,
			Score:   h.score,
			Snippet: snippet(e.Body, terms),
		}
	}
	return out
}

func (idx *Index) score(i int, terms []string) float64 {
	tf := idx.termFreqs[i]
	dl := float64(idx.lengths[i])

	var score float64
	for _, term := range terms {
		idf, ok := idx.idf[term]
		if !ok {
			continue
		}
		f := float64(tf[term])
		if f == 0 {
			continue
		}
		score += idf * (f * (paramK1 + 1)) / (f + paramK1*(1-paramB+paramB*dl/idx.avgLength))
	}
	return score
}

func compositeTokens(e Entry) []string {
	var tokens []string
	for _, f := range e.Fields {
		if f.Weight <= 0 {
			continue
		}
		ft := Tokenize(f.Text)
		for i := 0; i < f.Weight; i++ {
			tokens = append(tokens, ft...)
		}
	}
	return tokens
}

// Tokenize splits text into lowercase alphanumeric tokens of at least two
// characters. Underscores are kept so CLI parameter names stay whole.
func Tokenize(text string) []string {
	matches := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := matches[:0]
	for _, m := range matches {
		if utf8.RuneCountInString(m) >= 2 {
			tokens = append(tokens, m)
		}
	}
	return tokens
}

const snippetLen = 160

// snippet returns the first body line mentioning a query term, or the
// first prose line when none does.
func snippet(body string, terms []string) string {
	want := make(map[string]bool, len(terms))
	for _, t := range terms {
		want[t] = true
	}

	var fallback string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") {
			continue
		}
		if fallback == "" {
			fallback = line
		}
		for _, tok := range Tokenize(line) {
			if want[tok] {
				return truncate(line)
			}
		}
	}
	return truncate(fallback)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= snippetLen {
		return s
	}
	return strings.TrimSpace(string(r[:snippetLen])) + "…"
}
