// Package dice wraps the random source used by combat resolution so tests
// can substitute a fixed sequence.
package dice

import (
	"math/rand/v2"
	"sync"
)

// Rand is the subset of *rand.Rand the engine needs.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// lockedRand makes a *rand.Rand safe for concurrent sessions.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// New returns a concurrency-safe Rand seeded with seed.
func New(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Default returns a Rand backed by the global source.
func Default() Rand {
	return globalRand{}
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// Chance reports whether a roll falls under p. p <= 0 never succeeds and
// p >= 1 always succeeds without consuming a roll.
func Chance(r Rand, p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	default:
		return r.Float64() < p
	}
}

// Uniform returns a value in [lo, hi).
func Uniform(r Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + r.Float64()*(hi-lo)
}

// Weighted picks an index with probability proportional to weights.
// Non-positive weights are never picked. Returns -1 if nothing can be picked.
func Weighted(r Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}

	roll := r.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if roll < w {
			return i
		}
		roll -= w
	}
	return last
}

// Sequence replays fixed values; after the last one it repeats it.
// Not safe for concurrent use.
type Sequence struct {
	Floats []float64
	Ints   []int

	fi, ii int
}

// Fixed returns a Sequence that always yields f for Float64 and 0 for IntN.
func Fixed(f float64) *Sequence {
	return &Sequence{Floats: []float64{f}}
}

// Float64 implements Rand.
func (s *Sequence) Float64() float64 {
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[min(s.fi, len(s.Floats)-1)]
	s.fi++
	return v
}

// IntN implements Rand.
func (s *Sequence) IntN(n int) int {
	if len(s.Ints) == 0 || n <= 0 {
		return 0
	}
	v := s.Ints[min(s.ii, len(s.Ints)-1)]
	s.ii++
	return v % n
}
