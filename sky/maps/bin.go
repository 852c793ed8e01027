package maps

import (
	"fmt"
	"sort"

	"github.com/cwbudde/algo-vecmath"
)

// BinnedMean averages the real part of the modes falling in each multipole
// bin [edges[i], edges[i+1]). Empty bins report 0.
func (c *CFFT) BinnedMean(edges []float64) ([]float64, error) {
	re := make([]float64, len(c.F))
	for k, v := range c.F {
		re[k] = real(v)
	}
	return binMean(c.Pix, re, edges)
}

// BinnedPower averages |F|² over each multipole bin [edges[i], edges[i+1]).
// Empty bins report 0.
func (c *CFFT) BinnedPower(edges []float64) ([]float64, error) {
	re := make([]float64, len(c.F))
	im := make([]float64, len(c.F))
	for k, v := range c.F {
		re[k] = real(v)
		im[k] = imag(v)
	}
	pow := make([]float64, len(c.F))
	vecmath.Power(pow, re, im)
	return binMean(c.Pix, pow, edges)
}

func binMean(pix Pix, values, edges []float64) ([]float64, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 edges, got %d", ErrInvalidBins, len(edges))
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, fmt.Errorf("%w: at index %d", ErrInvalidBins, i)
		}
	}
	if err := validateLen("values", len(values), pix.Size()); err != nil {
		return nil, err
	}

	nb := len(edges) - 1
	sum := make([]float64, nb)
	count := make([]int, nb)
	for k, ell := range pix.Ell() {
		if ell < edges[0] || ell >= edges[nb] {
			continue
		}
		b := sort.SearchFloat64s(edges, ell)
		if b == len(edges) || edges[b] > ell {
			b--
		}
		sum[b] += values[k]
		count[b]++
	}

	for b := range sum {
		if count[b] > 0 {
			sum[b] /= float64(count[b])
		}
	}
	return sum, nil
}
