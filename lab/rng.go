package lab

import "math/rand/v2"

// RNG is the simulation's single source of randomness: every scheduling
// tie-break, fault-injection coin flip, and race-winner pick a run makes
// must go through this one generator so two runs with the same seed make
// identical choices in identical order. No third-party PRNG in the
// retrieved pack improves on math/rand/v2's seeded PCG source for this, so
// it is used directly rather than wrapped behind an unneeded abstraction.
type RNG struct {
	r *rand.Rand
}

// NewRNG builds an RNG seeded deterministically from seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 returns a pseudo-random value in [0, 1).
func (g *RNG) Float64() float64 { return g.r.Float64() }

// IntN returns a pseudo-random value in [0, n).
func (g *RNG) IntN(n int) int { return g.r.IntN(n) }

// Pick chooses an index in [0, n) uniformly at random, for picking among n
// equally-ready candidates deterministically from the seed. It returns 0
// when n <= 0.
func (g *RNG) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	return g.IntN(n)
}
