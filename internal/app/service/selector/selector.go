package selector

import (
	"errors"
	"math/rand/v2"
)

var ErrNoEligibleRewards = errors.New("no eligible rewards")

// Entry is one candidate and its relative weight.
type Entry struct {
	ID     uint64
	Weight int
}

// Rand is the subset of *rand.Rand the selector needs.
type Rand interface {
	IntN(n int) int
}

// Pick draws r uniformly from [1, total] and returns the first entry whose
// cumulative weight reaches r. Negative weights count as 0.
func Pick(entries []Entry, rng Rand) (uint64, error) {
	total := 0
	for _, e := range entries {
		total += weight(e)
	}
	if total <= 0 {
		return 0, ErrNoEligibleRewards
	}
	if rng == nil {
		rng = Default()
	}

	r := rng.IntN(total) + 1
	acc := 0
	for _, e := range entries {
		acc += weight(e)
		if acc >= r {
			return e.ID, nil
		}
	}
	return entries[len(entries)-1].ID, nil
}

func weight(e Entry) int {
	if e.Weight < 0 {
		return 0
	}
	return e.Weight
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Default returns the process wide source, safe for concurrent use.
func Default() Rand {
	return globalRand{}
}

// Seeded returns a deterministic source. Not safe for concurrent use.
func Seeded(seed1, seed2 uint64) Rand {
	return rand.New(rand.NewPCG(seed1, seed2))
}
