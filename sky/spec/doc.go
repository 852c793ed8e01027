// Package spec provides TEB power-spectrum matrices indexed by multipole.
//
// A ClMatTEB stores, for every ℓ in [0, LMax], the 3×3 covariance block of
// (T, E, B). The same type represents theory spectra, white-noise spectra
// and isotropic transfer functions, and all of them can be projected onto a
// flat-sky Fourier grid with OnGrid.
package spec
