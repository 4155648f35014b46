package planner

import (
	"sort"

	"docgraph/internal/analysis"
	"docgraph/internal/retrieval"
)

// ReviewPlan orders the documents a writer should look at after a change.
type ReviewPlan struct {
	TriggeredFiles []string         `json:"triggered_files,omitempty"`
	Documents      []DocumentReview `json:"documents"`

	// Nearby lists documents within the link neighborhood of the changes
	// that no impact rule selected.
	Nearby []string `json:"nearby,omitempty"`
}

// DocumentReview captures why a document should be reviewed.
type DocumentReview struct {
	Slug       string   `json:"slug"`
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
	Sections   []string `json:"sections,omitempty"`
}

const (
	ReasonEdited         = "edited"
	ReasonLinksToChanged = "links_to_changed"
	ReasonLinksToRemoved = "links_to_removed"
)

// BuildReviewPlan ranks the documents of an impact report, using the
// neighborhood scores of sg as confidence. Either argument may be nil.
func BuildReviewPlan(impact *analysis.ImpactReport, sg *retrieval.Subgraph) *ReviewPlan {
	plan := &ReviewPlan{Documents: []DocumentReview{}}
	var scores map[string]float64
	if sg != nil {
		plan.TriggeredFiles = append(plan.TriggeredFiles, sg.UpdatedFiles...)
		scores = sg.Scores
	}
	if impact == nil {
		if sg != nil {
			plan.Nearby = append(plan.Nearby, sg.Slugs...)
		}
		return plan
	}

	broken := toSet(impact.BrokenLinks)
	reviews := make(map[string]*DocumentReview)
	get := func(slug string) *DocumentReview {
		r, ok := reviews[slug]
		if !ok {
			r = &DocumentReview{Slug: slug}
			reviews[slug] = r
		}
		return r
	}

	for _, d := range impact.DirectlyAffected {
		r := get(d.Slug)
		conf := normalizeConfidence(scores[d.Slug], 1.0)
		r.Score += 1.0 + 0.2*conf + 0.1*float64(len(d.Sections))
		r.Confidence = maxFloat(r.Confidence, conf)
		r.Reasons = append(r.Reasons, ReasonEdited)
		r.Sections = append(r.Sections, d.Sections...)
	}

	for _, slug := range impact.IndirectlyAffected {
		r := get(slug)
		conf := normalizeConfidence(scores[slug], 0.45)
		r.Confidence = maxFloat(r.Confidence, conf)
		if broken[slug] {
			r.Score += 0.75
			r.Reasons = append(r.Reasons, ReasonLinksToRemoved)
			continue
		}
		r.Score += 0.35 + 0.2*conf
		r.Reasons = append(r.Reasons, ReasonLinksToChanged)
	}

	for _, r := range reviews {
		r.Reasons = sortedSetKeys(toSet(r.Reasons))
		plan.Documents = append(plan.Documents, *r)
	}
	sort.Slice(plan.Documents, func(i, j int) bool {
		a, b := plan.Documents[i], plan.Documents[j]
		if a.Score == b.Score {
			return a.Slug < b.Slug
		}
		return a.Score > b.Score
	})

	if sg != nil {
		nearby := make([]string, 0)
		for _, slug := range sg.Slugs {
			if _, ok := reviews[slug]; !ok {
				nearby = append(nearby, slug)
			}
		}
		sort.Strings(nearby)
		plan.Nearby = nearby
	}
	return plan
}

func normalizeConfidence(value float64, fallback float64) float64 {
	if value <= 0 {
		return fallback
	}
	if value > 1 {
		return 1
	}
	return value
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func toSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		out[v] = true
	}
	return out
}

func sortedSetKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
