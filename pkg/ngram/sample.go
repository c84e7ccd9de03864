package ngram

import "math/rand/v2"

// Sampler draws successors and start keys. It wraps a *rand.Rand so callers
// can seed it for reproducible generation. A Sampler is not safe for
// concurrent use.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a Sampler reading from src. A nil src is replaced by a
// randomly seeded PCG source.
func NewSampler(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Sampler{rng: rand.New(src)}
}

// NewSeededSampler returns a Sampler whose sequence is fully determined by seed.
func NewSeededSampler(seed uint64) *Sampler {
	return NewSampler(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Sample draws one successor from d. It walks d in order accumulating
// probability and returns the first token whose cumulative probability
// exceeds a uniform draw in [0, 1). When rounding leaves the total below the
// draw, the last successor is returned. An empty distribution yields "".
func (s *Sampler) Sample(d Distribution) string {
	if len(d) == 0 {
		return ""
	}
	r := s.rng.Float64()
	var cumulative float64
	for _, succ := range d {
		cumulative += succ.Probability
		if r < cumulative {
			return succ.Token
		}
	}
	return d[len(d)-1].Token
}

// Pick returns a uniform index in [0, n). n must be positive.
func (s *Sampler) Pick(n int) int {
	return s.rng.IntN(n)
}

// Float64 returns a uniform float in [0, 1).
func (s *Sampler) Float64() float64 {
	return s.rng.Float64()
}
