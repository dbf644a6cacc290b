package util

import "math/rand"

// New returns a seeded generator. Seed 0 maps to 1.
func New(seed int64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	src := rand.NewSource(seed)
	return rand.New(src)
}

// RunSeed derives the seed of batch run i from the base seed, so every run of
// a batch is reproducible on its own.
func RunSeed(base int64, run int) int64 {
	return base + int64(run)*7919
}
