package random

import "math"

const (
	multiplier uint32 = 1664525
	increment  uint32 = 1013904223
)

// Generator is a deterministic linear congruential generator. Two generators
// reset with the same seed always produce the same draw sequence, which is
// the reproducibility contract every chaos run and property iteration
// depends on. It is not safe for concurrent use.
type Generator struct {
	seed     int64
	state    uint32
	spare    float64
	hasSpare bool
}

// NewGenerator returns a generator initialised with the given seed.
func NewGenerator(seed int64) *Generator {
	g := &Generator{}
	g.Reset(seed)
	return g
}

// Reset reinitialises the state from the seed and discards any cached
// gaussian spare, so the next draw sequence is identical to a fresh generator.
func (g *Generator) Reset(seed int64) {
	g.seed = seed
	g.state = uint32(seed)
	g.spare = 0
	g.hasSpare = false
}

// Seed returns the seed the generator was last reset with.
func (g *Generator) Seed() int64 {
	return g.seed
}

// State returns the raw generator state, so tests can assert that two runs
// walked the identical draw sequence.
func (g *Generator) State() uint32 {
	return g.state
}

// Next advances the state once and returns a float in [0,1).
func (g *Generator) Next() float64 {
	g.state = g.state*multiplier + increment
	return float64(g.state) / (1 << 32)
}

// NextInt returns an integer in [0,max). It always consumes exactly one
// draw; max <= 0 yields 0.
func (g *Generator) NextInt(max int) int {
	draw := g.Next()
	if max <= 0 {
		return 0
	}
	return int(draw * float64(max))
}

// NextInRange returns a float in [min,max), consuming one draw.
func (g *Generator) NextInRange(min, max float64) float64 {
	return min + g.Next()*(max-min)
}

// NextBool returns true for draws below 0.5, consuming one draw.
func (g *Generator) NextBool() bool {
	return g.Next() < 0.5
}

// Choice returns a uniform index in [0,n), consuming one draw.
func (g *Generator) Choice(n int) int {
	return g.NextInt(n)
}

// NextGaussian returns a normally distributed float with mean 0 and
// stddev 1 via the Box-Muller transform. Each pair of uniform draws yields
// two gaussians; the second is cached and returned by the following call
// without consuming further draws.
func (g *Generator) NextGaussian() float64 {
	if g.hasSpare {
		g.hasSpare = false
		return g.spare
	}

	u1 := g.Next()
	u2 := g.Next()
	// log(0) is undefined, clamp to the smallest representable draw
	if u1 == 0 {
		u1 = 1.0 / (1 << 32)
	}

	magnitude := math.Sqrt(-2.0 * math.Log(u1))
	g.spare = magnitude * math.Sin(2.0*math.Pi*u2)
	g.hasSpare = true

	return magnitude * math.Cos(2.0*math.Pi*u2)
}
