// Package testutil provides testing utilities for crossfilter.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating seeded random datasets and for
// computing exact filtered counts as ground truth.
//
// # Random Dataset Generation
//
//	rng := testutil.NewRNG(seed)
//	floats := rng.Uniform(100_000, 0, 1)
//	angles := rng.Uniform(100_000, 0, 360)
//	codes := rng.Categorical(100_000, []float64{0.3, 0.4, 0.3})
//
// # Exact Filtered Counts (Ground Truth)
//
//	count := testutil.CountRange(floats, 0.2, 0.5)
package testutil
