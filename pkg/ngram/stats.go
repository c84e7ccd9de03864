package ngram

// Stats summarises the shape of a Model.
type Stats struct {
	Order           Order   `json:"order"`
	Keys            int     `json:"keys"`
	Transitions     int     `json:"transitions"` // number of distinct key -> successor pairs
	TokenCount      int     `json:"token_count"`
	BranchingFactor float64 `json:"branching_factor"` // average successors per key, three decimals
}

// Stats computes summary statistics for m.
func (m *Model) Stats() Stats {
	var transitions int
	for _, d := range m.dists {
		transitions += len(d)
	}

	return Stats{
		Order:           m.order,
		Keys:            len(m.keys),
		Transitions:     transitions,
		TokenCount:      m.tokenCount,
		BranchingFactor: BranchingFactor(transitions, len(m.keys)),
	}
}

// BranchingFactor is the average number of successors per key, rounded
// half-up to three decimals. It is 0 for a model without keys.
func BranchingFactor(transitions, keys int) float64 {
	if keys <= 0 {
		return 0
	}
	return roundRatio(transitions, keys, 3)
}
