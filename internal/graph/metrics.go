package graph

func (g *Graph) UnresolvedReasonCounts() map[UnresolvedReason]int {
	counts := make(map[UnresolvedReason]int)
	if g == nil {
		return counts
	}
	for _, u := range g.Unresolved {
		reason := u.Reason
		if reason == "" {
			reason = ReasonNoCandidate
		}
		counts[reason]++
	}
	return counts
}

// Dangling returns the unresolved links whose target document is missing,
// leaving out links that only miss an anchor.
func (g *Graph) Dangling() []UnresolvedLink {
	var out []UnresolvedLink
	for _, u := range g.Unresolved {
		if u.Reason != ReasonMissingAnchor {
			out = append(out, u)
		}
	}
	return out
}
