package ngram

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const catDogText = "the cat sat. the dog ran."

// fixedSource replays the given values, repeating the last one.
type fixedSource struct {
	values []uint64
	i      int
}

func (f *fixedSource) Uint64() uint64 {
	v := f.values[min(f.i, len(f.values)-1)]
	f.i++
	return v
}

var _ rand.Source = (*fixedSource)(nil)

// drawOf returns the raw source value that makes Rand.Float64 return roughly r.
func drawOf(r float64) uint64 {
	return uint64(r * (1 << 53))
}

func fixedSampler(draws ...float64) *Sampler {
	values := make([]uint64, len(draws))
	for i, r := range draws {
		values[i] = drawOf(r)
	}
	return NewSampler(&fixedSource{values: values})
}

func mustBuild(t testing.TB, text, label string) *Model {
	t.Helper()
	m, err := Build(text, label)
	require.NoError(t, err)
	return m
}

func longCorpus() string {
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		sb.WriteString("Dorothy lived in the midst of the great Kansas prairies, with Uncle Henry, who was a farmer, and Aunt Em, who was the farmer's wife. ")
		sb.WriteString("Their house was small, for the lumber to build it had to be carried by wagon many miles! Was it small? It was. ")
	}
	return sb.String()
}
