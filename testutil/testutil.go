package testutil

import (
	"math/rand"
	"sync"
)

// RNG encapsulates a seeded random number generator.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed))
}

// Uniform returns n values drawn uniformly from [lo, hi).
func (r *RNG) Uniform(n int, lo, hi float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, n)
	for i := range out {
		out[i] = lo + r.rand.Float64()*(hi-lo)
	}
	return out
}

// Gaussian returns n values drawn from a normal distribution with the given
// mean and standard deviation.
func (r *RNG) Gaussian(n int, mean, stddev float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, n)
	for i := range out {
		out[i] = mean + r.rand.NormFloat64()*stddev
	}
	return out
}

// Categorical returns n category codes distributed according to weights.
// Weights need not sum to one.
func (r *RNG) Categorical(n int, weights []float64) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0.0
	for _, w := range weights {
		total += w
	}

	out := make([]uint32, n)
	for i := range out {
		v := r.rand.Float64() * total
		acc := 0.0
		for code, w := range weights {
			acc += w
			if v < acc {
				out[i] = uint32(code)
				break
			}
		}
	}
	return out
}

// CountRange returns the exact number of values with lo <= v < hi.
func CountRange(values []float64, lo, hi float64) int {
	count := 0
	for _, v := range values {
		if v >= lo && v < hi {
			count++
		}
	}
	return count
}

// CountCodes returns the exact number of codes contained in the included
// set.
func CountCodes(codes []uint32, included ...uint32) int {
	in := make(map[uint32]bool, len(included))
	for _, c := range included {
		in[c] = true
	}

	count := 0
	for _, c := range codes {
		if in[c] {
			count++
		}
	}
	return count
}
