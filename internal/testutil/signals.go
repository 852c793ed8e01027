package testutil

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-cmb/sky/maps"
)

// ArcminToRad converts arcminutes to radians.
func ArcminToRad(arcmin float64) float64 {
	return arcmin * math.Pi / 180 / 60
}

// DeterministicNoise generates uniform noise in [-amplitude, amplitude) with a
// fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// RandomTQU returns a reproducible T/Q/U map filled with uniform noise.
func RandomTQU(pix maps.Pix, seed int64, amplitude float64) *maps.TQUMap {
	n := pix.Size()
	return &maps.TQUMap{
		Pix: pix,
		T:   DeterministicNoise(seed, amplitude, n),
		Q:   DeterministicNoise(seed+1, amplitude, n),
		U:   DeterministicNoise(seed+2, amplitude, n),
	}
}

// DC generates a constant-valued slice.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Ones returns a slice of length n filled with 1.0.
func Ones(n int) []float64 {
	return DC(1.0, n)
}
