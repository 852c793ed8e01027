// Package ivf implements inverse-variance filters for CMB sky maps.
//
// A filter library rescales each Fourier mode of an observed map by the
// inverse of its total signal-plus-noise variance,
//
//	fl = (C_ℓ + T_ℓ⁻² N_ℓ)⁻¹,
//
// after masking the map in real space and deconvolving the instrument
// transfer function T_ℓ. The filtered modes obey, to the accuracy of the
// diagonal approximation,
//
//	SimTEB(i) ≈ FL() · s + n,
//
// where s is the sky signal and n the filtered noise.
//
// Variants:
//   - Diag filters an indexed observation library on a flat-sky grid.
//   - DiagEmp filters a single, fixed map.
//   - FullSky filters spherical-harmonic coefficients.
//   - LMask band-passes the output of any other Library.
//
// Filters are immutable after construction and safe for concurrent use.
package ivf
