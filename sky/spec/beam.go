package spec

import (
	"fmt"
	"math"
)

// GaussianBeam returns the isotropic transfer function of a symmetric
// Gaussian beam with the given full width at half maximum (arcmin), equal in
// T, E and B.
func GaussianBeam(fwhmArcmin float64, lmax int) (*ClMatTEB, error) {
	if err := validateLMax(lmax); err != nil {
		return nil, err
	}
	if !(fwhmArcmin >= 0) {
		return nil, fmt.Errorf("%w: %f", ErrInvalidFWHM, fwhmArcmin)
	}

	sigma := fwhmArcmin * math.Pi / 180 / 60 / math.Sqrt(8*math.Log(2))
	bl := make([]float64, lmax+1)
	for l := range bl {
		fl := float64(l)
		bl[l] = math.Exp(-0.5 * fl * (fl + 1) * sigma * sigma)
	}
	return FromCls(lmax, Cls{TT: bl, EE: bl, BB: bl})
}
