package store

import (
	"context"

	"github.com/CTAG07/Dissociated/pkg/ngram"
)

// DBStats holds aggregated statistics for every corpus in the database.
type DBStats struct {
	Corpora          []CorpusInfo           `json:"corpora"`
	Stats            map[string]CorpusStats `json:"stats"` // keyed by corpus name
	TotalKeys        int                    `json:"total_keys"`
	TotalTransitions int                    `json:"total_transitions"`
}

// CorpusStats is computed from the stored snapshot of one corpus.
type CorpusStats struct {
	Keys            int     `json:"keys"`
	Transitions     int     `json:"transitions"`
	BranchingFactor float64 `json:"branching_factor"`
}

// GetCorpusStats returns snapshot statistics for a single corpus.
func (s *Store) GetCorpusStats(ctx context.Context, info CorpusInfo) (CorpusStats, error) {
	var st CorpusStats
	if err := s.stmtSnapshotCounts.QueryRowContext(ctx, info.Id).Scan(&st.Keys, &st.Transitions); err != nil {
		return CorpusStats{}, err
	}
	st.BranchingFactor = ngram.BranchingFactor(st.Transitions, st.Keys)
	return st, nil
}

// GetStats returns statistics for every stored corpus.
func (s *Store) GetStats(ctx context.Context) (*DBStats, error) {
	corpora, err := s.GetCorpusInfos(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DBStats{
		Corpora: corpora,
		Stats:   make(map[string]CorpusStats, len(corpora)),
	}
	for _, info := range corpora {
		st, err := s.GetCorpusStats(ctx, info)
		if err != nil {
			return nil, err
		}
		stats.Stats[info.Name] = st
		stats.TotalKeys += st.Keys
		stats.TotalTransitions += st.Transitions
	}
	return stats, nil
}
