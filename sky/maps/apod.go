package maps

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Apodize returns a separable Tukey taper over pix. alpha is the tapered
// fraction of each axis: 0 gives no taper (all ones), 1 a full Hann window.
func Apodize(pix Pix, alpha float64) (GridMask, error) {
	if err := pix.Validate(); err != nil {
		return GridMask{}, err
	}
	if err := validateTaper(alpha); err != nil {
		return GridMask{}, err
	}

	wx := taper(pix.Nx, alpha)
	wy := taper(pix.Ny, alpha)

	w := make([]float64, pix.Size())
	for iy, y := range wy {
		vecmath.ScaleBlock(w[iy*pix.Nx:(iy+1)*pix.Nx], wx, y)
	}

	return GridMask{Nx: pix.Nx, Ny: pix.Ny, W: w}, nil
}

func taper(n int, alpha float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = tukeyAt(samplePosition(i, n), alpha)
	}
	return out
}

func samplePosition(i, n int) float64 {
	if n <= 1 {
		return 0.5
	}
	return float64(i) / float64(n-1)
}

func tukeyAt(x, alpha float64) float64 {
	if alpha <= 0 {
		return 1
	}

	a := alpha / 2
	switch {
	case x < a:
		return 0.5 * (1 + math.Cos(math.Pi*(2*x/alpha-1)))
	case x <= 1-a:
		return 1
	default:
		return 0.5 * (1 + math.Cos(math.Pi*(2*x/alpha-2/alpha+1)))
	}
}
