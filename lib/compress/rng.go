package compress

import (
	"math"
)

var (
	xorshiftMaxUint = float64(math.MaxUint32)
)

// RNG is an xorshift random number generator. It is the same as gotetra's
// xorshiftGenerator. It is not thread safe, and two RNGs created with the same
// seed always generate the same sequence, on every platform.
type RNG struct {
	w, x, y, z uint32
}

// NewRNG creates an RNG with a given seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{uint32(seed), 123456789, 362436069, 521288629}
}

func (gen *RNG) next() uint32 {
	t := gen.x ^ (gen.x << 11)
	gen.x, gen.y, gen.z = gen.y, gen.z, gen.w
	gen.w = gen.w ^ (gen.w >> 19) ^ (t ^ (t >> 8))
	return gen.w
}

// Uniform generates a single random number in the range [0, 1)
func (gen *RNG) Uniform() float64 {
	res := float64(math.MaxUint32-gen.next()) / xorshiftMaxUint
	if res == 1.0 {
		return gen.Uniform()
	}
	return res
}

// UniformSequence generates one random number in the range [0, 1) for each
// element of the array target and writes them to that array.
func (gen *RNG) UniformSequence(target []float64) {
	for i := range target {
		target[i] = gen.Uniform()
	}
}

// UnitVector returns a direction drawn uniformly from the unit sphere.
func (gen *RNG) UnitVector() [3]float64 {
	cosTh := 2*gen.Uniform() - 1
	sinTh := math.Sqrt(1 - cosTh*cosTh)
	phi := 2 * math.Pi * gen.Uniform()
	return [3]float64{
		sinTh * math.Cos(phi), sinTh * math.Sin(phi), cosTh,
	}
}
