package ngram

import (
	"fmt"
	"slices"
	"strings"
)

// Model maps n-gram keys to their successor distributions. A Model is never
// mutated after it is built and may be shared freely between goroutines.
type Model struct {
	order      Order
	keys       []string
	dists      map[string]Distribution
	tokenCount int
}

// Build tokenizes text and builds a model for the given order label
// ("Bi-gram", "Tri-gram" or "Tetra-gram").
func Build(text, label string) (*Model, error) {
	order, err := ParseOrder(label)
	if err != nil {
		return nil, err
	}
	return BuildOrder(text, order)
}

// BuildOrder is Build for an already parsed Order.
func BuildOrder(text string, order Order) (*Model, error) {
	if !order.Valid() {
		_, err := OrderOf(int(order))
		return nil, err
	}

	tokens, count := Tokenize(text)
	if count < 2 {
		return nil, fmt.Errorf("%w: got %d tokens, need at least 2", ErrInsufficientInput, count)
	}

	table, err := BuildFrequencies(tokens, order)
	if err != nil {
		return nil, err
	}

	m := Normalize(table, order)
	m.tokenCount = count
	return Sort(m), nil
}

// Order returns the key arity of the model. A nil model has order 0.
func (m *Model) Order() Order {
	if m == nil {
		return 0
	}
	return m.order
}

// Len returns the number of keys. A nil model has none.
func (m *Model) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// TokenCount returns the number of tokens in the source text.
func (m *Model) TokenCount() int {
	return m.tokenCount
}

// Keys returns the model's keys in canonical order.
func (m *Model) Keys() []string {
	return slices.Clone(m.keys)
}

// Contains reports whether key has recorded successors.
func (m *Model) Contains(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.dists[key]
	return ok
}

// Successors returns a copy of key's distribution.
func (m *Model) Successors(key string) (Distribution, bool) {
	d, ok := m.dists[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(d), true
}

// Options returns the successor tokens of key without probabilities.
func (m *Model) Options(key string) []string {
	d, ok := m.dists[key]
	if !ok {
		return nil
	}
	return d.Tokens()
}

// Range calls fn for every key in canonical order until fn returns false.
// The distribution passed to fn must not be modified.
func (m *Model) Range(fn func(key string, d Distribution) bool) {
	for _, key := range m.keys {
		if !fn(key, m.dists[key]) {
			return
		}
	}
}

// KeyTokens splits a key into its constituent tokens.
func KeyTokens(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, " ")
}
