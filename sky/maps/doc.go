// Package maps provides flat-sky map containers and their Fourier-space
// (T, E, B) representation.
//
// Real-space maps are stored row-major with Ny rows of Nx pixels. Fourier
// objects use the full complex grid of the same shape, with mode (iy, ix)
// at index iy*Nx+ix and wavenumbers following the numpy fftfreq convention
// scaled by 2π, so ℓ = sqrt(lx² + ly²).
//
// The package implements exactly the operator contracts inverse-variance
// filtering needs: masking, forward/inverse transform, elementwise
// arithmetic, inversion, component extraction and multipole masking.
package maps
