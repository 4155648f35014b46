package planner

import (
	"testing"

	"docgraph/internal/analysis"
	"docgraph/internal/retrieval"

	"github.com/stretchr/testify/assert"
)

func TestBuildReviewPlan_ScoresAndSortsDocuments(t *testing.T) {
	impact := &analysis.ImpactReport{
		DirectlyAffected: []analysis.AffectedDocument{
			{Slug: "setup", Path: "setup.md", Sections: []string{"install"}},
		},
		IndirectlyAffected: []string{"index", "other"},
		Removed:            []string{"old"},
		BrokenLinks:        []string{"other"},
	}
	sg := &retrieval.Subgraph{
		Seeds:        []string{"setup"},
		UpdatedFiles: []string{"setup.md"},
		Slugs:        []string{"faq", "index", "setup"},
		Scores: map[string]float64{
			"setup": 1.0,
			"index": 0.9,
			"faq":   0.4,
		},
	}

	plan := BuildReviewPlan(impact, sg)

	if assert.Len(t, plan.Documents, 3) {
		assert.Equal(t, "setup", plan.Documents[0].Slug)
		assert.Equal(t, []string{ReasonEdited}, plan.Documents[0].Reasons)
		assert.Equal(t, []string{"install"}, plan.Documents[0].Sections)

		assert.Equal(t, "other", plan.Documents[1].Slug)
		assert.Equal(t, []string{ReasonLinksToRemoved}, plan.Documents[1].Reasons)

		assert.Equal(t, "index", plan.Documents[2].Slug)
		assert.Equal(t, []string{ReasonLinksToChanged}, plan.Documents[2].Reasons)
		assert.InDelta(t, 0.9, plan.Documents[2].Confidence, 1e-9)

		assert.Greater(t, plan.Documents[0].Score, plan.Documents[1].Score)
		assert.Greater(t, plan.Documents[1].Score, plan.Documents[2].Score)
	}
	assert.Equal(t, []string{"setup.md"}, plan.TriggeredFiles)
	assert.Equal(t, []string{"faq"}, plan.Nearby)
}

func TestBuildReviewPlan_NilInputs(t *testing.T) {
	plan := BuildReviewPlan(nil, nil)
	assert.Empty(t, plan.Documents)
	assert.Empty(t, plan.Nearby)

	plan = BuildReviewPlan(nil, &retrieval.Subgraph{Slugs: []string{"a"}})
	assert.Equal(t, []string{"a"}, plan.Nearby)

	plan = BuildReviewPlan(&analysis.ImpactReport{IndirectlyAffected: []string{"a"}}, nil)
	if assert.Len(t, plan.Documents, 1) {
		assert.InDelta(t, 0.45, plan.Documents[0].Confidence, 1e-9)
	}
}
