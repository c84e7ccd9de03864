package ngram

import "strings"

// FrequencyTable maps each key to the raw counts of the tokens that followed it.
type FrequencyTable map[string]map[string]int

// BuildFrequencies slides a window of order tokens over tokens and counts the
// token that follows each window. If there are no more tokens than the window
// size the table is empty.
func BuildFrequencies(tokens []string, order Order) (FrequencyTable, error) {
	if !order.Valid() {
		_, err := OrderOf(int(order))
		return nil, err
	}

	k := int(order)
	table := make(FrequencyTable)
	for i := 0; i+k < len(tokens); i++ {
		key := strings.Join(tokens[i:i+k], " ")
		successor := tokens[i+k]

		counts, ok := table[key]
		if !ok {
			counts = make(map[string]int)
			table[key] = counts
		}
		counts[successor]++
	}
	return table, nil
}

// Total returns the sum of all successor counts recorded for key.
func (t FrequencyTable) Total(key string) int {
	var total int
	for _, c := range t[key] {
		total += c
	}
	return total
}
