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

// KindCounts tallies nodes by unit type.
func (g *Graph) KindCounts() map[string]int {
	counts := make(map[string]int)
	if g == nil {
		return counts
	}
	for _, n := range g.Nodes {
		counts[n.Unit.UnitType]++
	}
	return counts
}
