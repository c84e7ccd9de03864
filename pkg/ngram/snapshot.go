package ngram

import (
	"fmt"
	"slices"
)

// Snapshot is the flat, serializable form of a Model.
type Snapshot struct {
	Order Order           `json:"order"`
	Keys  []SnapshotEntry `json:"keys"`
}

// SnapshotEntry is one key and its ordered successors.
type SnapshotEntry struct {
	Key        string       `json:"key"`
	Successors Distribution `json:"successors"`
}

// Export returns a snapshot of m with keys and successors in canonical order.
func (m *Model) Export() Snapshot {
	entries := make([]SnapshotEntry, 0, len(m.keys))
	for _, key := range m.keys {
		entries = append(entries, SnapshotEntry{Key: key, Successors: slices.Clone(m.dists[key])})
	}
	return Snapshot{Order: m.order, Keys: entries}
}

// FromSnapshot rebuilds a Model from a snapshot. Every key must have the
// snapshot's arity, appear once, and carry at least one successor. The token
// count of the source text is not part of a snapshot and is reported as zero.
func FromSnapshot(s Snapshot) (*Model, error) {
	if !s.Order.Valid() {
		_, err := OrderOf(int(s.Order))
		return nil, err
	}

	m := &Model{
		order: s.Order,
		keys:  make([]string, 0, len(s.Keys)),
		dists: make(map[string]Distribution, len(s.Keys)),
	}
	for _, entry := range s.Keys {
		if n := len(KeyTokens(entry.Key)); n != int(s.Order) {
			return nil, fmt.Errorf("%w: key %q has %d tokens, want %d", ErrInvalidSnapshot, entry.Key, n, int(s.Order))
		}
		if _, dup := m.dists[entry.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidSnapshot, entry.Key)
		}
		if len(entry.Successors) == 0 {
			return nil, fmt.Errorf("%w: key %q has no successors", ErrInvalidSnapshot, entry.Key)
		}
		m.keys = append(m.keys, entry.Key)
		m.dists[entry.Key] = slices.Clone(entry.Successors)
	}
	return Sort(m), nil
}
