// Package alm stores spherical-harmonic coefficients a_ℓm for real fields.
//
// Coefficients use the healpy layout: m-major, only m >= 0, so a_ℓm lives at
// m*(2*LMax+1-m)/2 + ℓ.
package alm

import (
	"errors"
	"fmt"
)

// ErrInvalidSize is returned for inconsistent lmax/mmax/data combinations.
var ErrInvalidSize = errors.New("alm: invalid size")

// Alm is a set of a_ℓm coefficients with ℓ <= LMax and m <= MMax.
type Alm struct {
	LMax, MMax int
	C          []complex128
}

// Size returns the number of coefficients for lmax and mmax.
func Size(lmax, mmax int) int {
	return (mmax+1)*(lmax+1) - mmax*(mmax+1)/2
}

// New returns zero coefficients with MMax = LMax.
func New(lmax int) (*Alm, error) {
	if lmax < 0 {
		return nil, fmt.Errorf("%w: lmax %d", ErrInvalidSize, lmax)
	}
	return &Alm{LMax: lmax, MMax: lmax, C: make([]complex128, Size(lmax, lmax))}, nil
}

// Validate checks that the data length matches LMax and MMax.
func (a *Alm) Validate() error {
	if a.LMax < 0 || a.MMax < 0 || a.MMax > a.LMax {
		return fmt.Errorf("%w: lmax %d mmax %d", ErrInvalidSize, a.LMax, a.MMax)
	}
	if want := Size(a.LMax, a.MMax); len(a.C) != want {
		return fmt.Errorf("%w: %d coefficients, want %d", ErrInvalidSize, len(a.C), want)
	}
	return nil
}

// Index returns the position of a_ℓm in C.
func (a *Alm) Index(l, m int) int {
	return m*(2*a.LMax+1-m)/2 + l
}

// Clone returns a deep copy.
func (a *Alm) Clone() *Alm {
	return &Alm{LMax: a.LMax, MMax: a.MMax, C: append([]complex128(nil), a.C...)}
}

// Xfl returns a copy with every a_ℓm multiplied by fl[ℓ]. Multipoles at or
// beyond len(fl) are zeroed.
func (a *Alm) Xfl(fl []float64) (*Alm, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	out := &Alm{LMax: a.LMax, MMax: a.MMax, C: make([]complex128, len(a.C))}
	for m := 0; m <= a.MMax; m++ {
		for l := m; l <= a.LMax; l++ {
			if l >= len(fl) {
				break
			}
			i := a.Index(l, m)
			out.C[i] = a.C[i] * complex(fl[l], 0)
		}
	}
	return out, nil
}
