package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChance(t *testing.T) {
	s := &Sequence{Floats: []float64{0.3}}

	assert.False(t, Chance(s, 0))
	assert.True(t, Chance(s, 1.5))
	assert.True(t, Chance(s, 0.31))
	assert.False(t, Chance(s, 0.3))
}

func TestUniform(t *testing.T) {
	assert.InDelta(t, 0.95, Uniform(Fixed(0.25), 0.9, 1.1), 1e-9)
	assert.InDelta(t, 2, Uniform(Fixed(0.7), 2, 2), 1e-9)
}

func TestWeighted(t *testing.T) {
	weights := []float64{1, 0, 3}

	assert.Equal(t, 0, Weighted(Fixed(0.1), weights))
	assert.Equal(t, 2, Weighted(Fixed(0.3), weights))
	assert.Equal(t, 2, Weighted(Fixed(0.999), weights))
	assert.Equal(t, -1, Weighted(Fixed(0.5), []float64{0, -1}))
	assert.Equal(t, -1, Weighted(Fixed(0.5), nil))
}

func TestSequence_RepeatsLast(t *testing.T) {
	s := &Sequence{Floats: []float64{0.1, 0.2}, Ints: []int{5}}

	assert.InDelta(t, 0.1, s.Float64(), 1e-9)
	assert.InDelta(t, 0.2, s.Float64(), 1e-9)
	assert.InDelta(t, 0.2, s.Float64(), 1e-9)
	assert.Equal(t, 2, s.IntN(3))
}

func TestNew_Deterministic(t *testing.T) {
	a, b := New(42), New(42)
	for range 10 {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}
