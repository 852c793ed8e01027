package spec

import "math"

// NlevToCl converts a white-noise level in μK·arcmin to a flat angular
// power spectrum amplitude in μK²·sr.
func NlevToCl(nlev float64) float64 {
	r := nlev * math.Pi / 180 / 60
	return r * r
}

// WhiteNoise returns the flat noise spectrum for temperature level nlevT and
// polarization level nlevP (both μK·arcmin). EE and BB share nlevP.
func WhiteNoise(lmax int, nlevT, nlevP float64) (*ClMatTEB, error) {
	return Diagonal(lmax, NlevToCl(nlevT), NlevToCl(nlevP), NlevToCl(nlevP))
}
