package ngram

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Comparator orders tokens and keys for display: strings containing a Latin
// letter come before those that don't, and within each group strings are
// compared with English collation rules.
//
// A Comparator is not safe for concurrent use.
type Comparator struct {
	col *collate.Collator
}

// NewComparator returns a Comparator using English collation.
func NewComparator() *Comparator {
	return &Comparator{col: collate.New(language.English)}
}

// Compare returns a negative number when a sorts before b, a positive number
// when it sorts after, and zero when they are equal.
func (c *Comparator) Compare(a, b string) int {
	alphaA, alphaB := hasLatinLetter(a), hasLatinLetter(b)
	if alphaA != alphaB {
		if alphaA {
			return -1
		}
		return 1
	}
	if r := c.col.CompareString(a, b); r != 0 {
		return r
	}
	// Collation can consider distinct strings equal; fall back to bytes so the
	// order stays total.
	return strings.Compare(a, b)
}

// Compare orders two strings with a fresh Comparator.
func Compare(a, b string) int {
	return NewComparator().Compare(a, b)
}

// Sort returns a copy of m with its keys and each key's successors in
// canonical order. Probabilities are left untouched.
func Sort(m *Model) *Model {
	cmp := NewComparator()

	sorted := &Model{
		order:      m.order,
		keys:       slices.Clone(m.keys),
		dists:      make(map[string]Distribution, len(m.dists)),
		tokenCount: m.tokenCount,
	}
	slices.SortStableFunc(sorted.keys, cmp.Compare)

	for key, dist := range m.dists {
		d := slices.Clone(dist)
		slices.SortStableFunc(d, func(a, b Successor) int {
			return cmp.Compare(a.Token, b.Token)
		})
		sorted.dists[key] = d
	}
	return sorted
}

func hasLatinLetter(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			return true
		}
	}
	return false
}
