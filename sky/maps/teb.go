package maps

import (
	"fmt"

	"github.com/cwbudde/algo-cmb/internal/digest"
)

// Component indices of a TEB object.
const (
	IndexT = iota
	IndexE
	IndexB
)

// TEBFFT holds the Fourier modes of temperature and E/B polarization.
//
// Arithmetic methods never modify their receiver or argument; they return a
// new object.
type TEBFFT struct {
	Pix
	T, E, B []complex128
}

// NewTEBFFT returns a zero-valued object on pix.
func NewTEBFFT(pix Pix) *TEBFFT {
	n := pix.Size()
	return &TEBFFT{
		Pix: pix,
		T:   make([]complex128, n),
		E:   make([]complex128, n),
		B:   make([]complex128, n),
	}
}

// Validate checks the pixelization and data lengths.
func (f *TEBFFT) Validate() error {
	if err := f.Pix.Validate(); err != nil {
		return err
	}
	n := f.Size()
	if err := validateLen("T", len(f.T), n); err != nil {
		return err
	}
	if err := validateLen("E", len(f.E), n); err != nil {
		return err
	}
	return validateLen("B", len(f.B), n)
}

func (f *TEBFFT) fields() [3][]complex128 {
	return [3][]complex128{f.T, f.E, f.B}
}

// Clone returns a deep copy.
func (f *TEBFFT) Clone() *TEBFFT {
	return &TEBFFT{
		Pix: f.Pix,
		T:   append([]complex128(nil), f.T...),
		E:   append([]complex128(nil), f.E...),
		B:   append([]complex128(nil), f.B...),
	}
}

func (f *TEBFFT) combine(o *TEBFFT, op func(a, b complex128) complex128) (*TEBFFT, error) {
	if err := f.Pix.mustMatch(o.Pix); err != nil {
		return nil, err
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	out := NewTEBFFT(f.Pix)
	dst := out.fields()
	a, b := f.fields(), o.fields()
	for c := range dst {
		for k := range dst[c] {
			dst[c][k] = op(a[c][k], b[c][k])
		}
	}
	return out, nil
}

// Add returns f + o elementwise.
func (f *TEBFFT) Add(o *TEBFFT) (*TEBFFT, error) {
	return f.combine(o, func(a, b complex128) complex128 { return a + b })
}

// Mul returns f * o elementwise.
func (f *TEBFFT) Mul(o *TEBFFT) (*TEBFFT, error) {
	return f.combine(o, func(a, b complex128) complex128 { return a * b })
}

// Inverse returns 1/f elementwise. Zero modes stay zero.
func (f *TEBFFT) Inverse() *TEBFFT {
	out := NewTEBFFT(f.Pix)
	dst := out.fields()
	for c, src := range f.fields() {
		for k, v := range src {
			if v != 0 {
				dst[c][k] = 1 / v
			}
		}
	}
	return out
}

// Component returns a copy of component k (IndexT, IndexE or IndexB).
func (f *TEBFFT) Component(k int) (*CFFT, error) {
	if k < IndexT || k > IndexB {
		return nil, fmt.Errorf("maps: component index out of range: %d", k)
	}
	return &CFFT{Pix: f.Pix, F: append([]complex128(nil), f.fields()[k]...)}, nil
}

// Components returns copies of the T, E and B components.
func (f *TEBFFT) Components() [3]*CFFT {
	var out [3]*CFFT
	for k, src := range f.fields() {
		out[k] = &CFFT{Pix: f.Pix, F: append([]complex128(nil), src...)}
	}
	return out
}

// LMasked returns a copy with modes outside b set to zero.
func (f *TEBFFT) LMasked(b LBounds) *TEBFFT {
	keep := b.Selection(f.Pix)
	out := NewTEBFFT(f.Pix)
	dst := out.fields()
	for c, src := range f.fields() {
		for k, v := range src {
			if keep[k] {
				dst[c][k] = v
			}
		}
	}
	return out
}

// OnGrid returns a copy of f if it lives on pix. It lets a 2D Fourier
// array serve as a transfer function.
func (f *TEBFFT) OnGrid(pix Pix) (*TEBFFT, error) {
	if err := f.Pix.mustMatch(pix); err != nil {
		return nil, err
	}
	return f.Clone(), nil
}

// Hash returns a stable digest of geometry and modes.
func (f *TEBFFT) Hash() string {
	return f.Pix.digest(digest.New()).Complexes(f.T).Complexes(f.E).Complexes(f.B).Sum()
}

// CFFT holds the Fourier modes of a single component.
type CFFT struct {
	Pix
	F []complex128
}

// Clone returns a deep copy.
func (c *CFFT) Clone() *CFFT {
	return &CFFT{Pix: c.Pix, F: append([]complex128(nil), c.F...)}
}

// LMasked returns a copy with modes outside b set to zero.
func (c *CFFT) LMasked(b LBounds) *CFFT {
	keep := b.Selection(c.Pix)
	out := &CFFT{Pix: c.Pix, F: make([]complex128, len(c.F))}
	for k, v := range c.F {
		if keep[k] {
			out.F[k] = v
		}
	}
	return out
}
