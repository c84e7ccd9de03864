package ngram

import "slices"

// Successor is one possible next token and its rounded probability.
type Successor struct {
	Token       string  `json:"token"`
	Probability float64 `json:"probability"`
}

// Distribution is the ordered list of successors for a key.
type Distribution []Successor

// Tokens returns the successor tokens in order.
func (d Distribution) Tokens() []string {
	tokens := make([]string, len(d))
	for i, s := range d {
		tokens[i] = s.Token
	}
	return tokens
}

// Mass returns the sum of the rounded probabilities.
func (d Distribution) Mass() float64 {
	var sum float64
	for _, s := range d {
		sum += s.Probability
	}
	return sum
}

// Normalize turns raw counts into a Model whose distributions hold each
// successor's share of its key's total, rounded half-up to two decimals.
// Successors are visited in canonical order. The rounded values are not
// corrected to sum to 1.
func Normalize(table FrequencyTable, order Order) *Model {
	cmp := NewComparator()
	m := &Model{
		order: order,
		keys:  make([]string, 0, len(table)),
		dists: make(map[string]Distribution, len(table)),
	}

	for key, counts := range table {
		if len(counts) == 0 {
			continue
		}
		successors := make([]string, 0, len(counts))
		total := 0
		for tok, c := range counts {
			successors = append(successors, tok)
			total += c
		}
		slices.SortStableFunc(successors, cmp.Compare)

		dist := make(Distribution, len(successors))
		for i, tok := range successors {
			dist[i] = Successor{Token: tok, Probability: roundRatio(counts[tok], total, 2)}
		}
		m.keys = append(m.keys, key)
		m.dists[key] = dist
	}
	return m
}

// roundRatio returns num/den rounded half-up to the given number of decimal
// places. The rounding is done on integers so exact ties such as 29/200 go up.
func roundRatio(num, den, places int) float64 {
	scale := 1
	for range places {
		scale *= 10
	}
	return float64((2*num*scale+den)/(2*den)) / float64(scale)
}
