package spec

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-cmb/internal/digest"
	"github.com/cwbudde/algo-cmb/sky/maps"
)

// Block is a 3×3 (T, E, B) covariance block.
type Block [3][3]float64

// ClMatTEB is an immutable sequence of TEB blocks for ℓ = 0..LMax.
type ClMatTEB struct {
	lmax   int
	blocks []Block
}

// Cls lists auto and cross spectra by multipole. Missing (nil) spectra are
// zero; TE fills the symmetric off-diagonal T-E entries.
type Cls struct {
	TT, EE, BB, TE []float64
}

// NewClMatTEB builds a matrix from explicit blocks. The slice is copied.
func NewClMatTEB(blocks []Block) (*ClMatTEB, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no blocks", ErrInvalidLMax)
	}
	return &ClMatTEB{lmax: len(blocks) - 1, blocks: append([]Block(nil), blocks...)}, nil
}

// FromCls builds a matrix for ℓ = 0..lmax from individual spectra.
func FromCls(lmax int, cls Cls) (*ClMatTEB, error) {
	if err := validateLMax(lmax); err != nil {
		return nil, err
	}
	for _, s := range []struct {
		name string
		v    []float64
	}{{"TT", cls.TT}, {"EE", cls.EE}, {"BB", cls.BB}, {"TE", cls.TE}} {
		if s.v != nil && len(s.v) < lmax+1 {
			return nil, fmt.Errorf("%w: %s has %d values, lmax %d", ErrShortSpectrum, s.name, len(s.v), lmax)
		}
	}

	at := func(v []float64, l int) float64 {
		if v == nil {
			return 0
		}
		return v[l]
	}

	c := &ClMatTEB{lmax: lmax, blocks: make([]Block, lmax+1)}
	for l := range c.blocks {
		b := &c.blocks[l]
		b[0][0] = at(cls.TT, l)
		b[1][1] = at(cls.EE, l)
		b[2][2] = at(cls.BB, l)
		b[0][1] = at(cls.TE, l)
		b[1][0] = b[0][1]
	}
	return c, nil
}

// Diagonal builds a matrix whose T, E and B entries at each ℓ are t, e and b.
func Diagonal(lmax int, t, e, b float64) (*ClMatTEB, error) {
	if err := validateLMax(lmax); err != nil {
		return nil, err
	}
	c := &ClMatTEB{lmax: lmax, blocks: make([]Block, lmax+1)}
	for l := range c.blocks {
		c.blocks[l][0][0] = t
		c.blocks[l][1][1] = e
		c.blocks[l][2][2] = b
	}
	return c, nil
}

// LMax returns the largest multipole.
func (c *ClMatTEB) LMax() int { return c.lmax }

// At returns the block at multipole l.
func (c *ClMatTEB) At(l int) Block { return c.blocks[l] }

// Diag returns entry (k, k) for every multipole. k is maps.IndexT,
// maps.IndexE or maps.IndexB.
func (c *ClMatTEB) Diag(k int) []float64 {
	out := make([]float64, c.lmax+1)
	for l := range out {
		out[l] = c.blocks[l][k][k]
	}
	return out
}

func (c *ClMatTEB) combine(o *ClMatTEB, op func(a, b float64) float64) (*ClMatTEB, error) {
	if c.lmax != o.lmax {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLMaxMismatch, c.lmax, o.lmax)
	}
	out := &ClMatTEB{lmax: c.lmax, blocks: make([]Block, c.lmax+1)}
	for l := range out.blocks {
		for i := range 3 {
			for j := range 3 {
				out.blocks[l][i][j] = op(c.blocks[l][i][j], o.blocks[l][i][j])
			}
		}
	}
	return out, nil
}

// Add returns c + o.
func (c *ClMatTEB) Add(o *ClMatTEB) (*ClMatTEB, error) {
	return c.combine(o, func(a, b float64) float64 { return a + b })
}

// Mul returns the elementwise product of c and o.
func (c *ClMatTEB) Mul(o *ClMatTEB) (*ClMatTEB, error) {
	return c.combine(o, func(a, b float64) float64 { return a * b })
}

// Scale returns s·c.
func (c *ClMatTEB) Scale(s float64) *ClMatTEB {
	out := &ClMatTEB{lmax: c.lmax, blocks: make([]Block, c.lmax+1)}
	for l, b := range c.blocks {
		for i := range 3 {
			for j := range 3 {
				out.blocks[l][i][j] = s * b[i][j]
			}
		}
	}
	return out
}

// Inverse returns the per-ℓ Moore-Penrose pseudo-inverse. Singular
// directions (including all-zero blocks) map to zero.
func (c *ClMatTEB) Inverse() *ClMatTEB {
	out := &ClMatTEB{lmax: c.lmax, blocks: make([]Block, c.lmax+1)}
	for l, b := range c.blocks {
		out.blocks[l] = pinv(b)
	}
	return out
}

// pinvRCond matches numpy.linalg.pinv's default cutoff.
const pinvRCond = 1e-15

func pinv(b Block) Block {
	var out Block
	if isDiagonal(b) {
		for k := range 3 {
			if b[k][k] != 0 {
				out[k][k] = 1 / b[k][k]
			}
		}
		return out
	}

	a := mat.NewDense(3, 3, []float64{
		b[0][0], b[0][1], b[0][2],
		b[1][0], b[1][1], b[1][2],
		b[2][0], b[2][1], b[2][2],
	})

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return out
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	cutoff := pinvRCond * s[0]
	for i := range 3 {
		for j := range 3 {
			sum := 0.0
			for k, sk := range s {
				if sk > cutoff {
					sum += v.At(i, k) * u.At(j, k) / sk
				}
			}
			out[i][j] = sum
		}
	}
	return out
}

func isDiagonal(b Block) bool {
	return b[0][1] == 0 && b[0][2] == 0 && b[1][0] == 0 &&
		b[1][2] == 0 && b[2][0] == 0 && b[2][1] == 0
}

// OnGrid projects the diagonal of c onto the Fourier modes of pix by linear
// interpolation in ℓ. Modes beyond LMax are zero. Off-diagonal terms are
// dropped.
func (c *ClMatTEB) OnGrid(pix maps.Pix) (*maps.TEBFFT, error) {
	if err := pix.Validate(); err != nil {
		return nil, err
	}
	out := maps.NewTEBFFT(pix)
	tt, ee, bb := c.Diag(maps.IndexT), c.Diag(maps.IndexE), c.Diag(maps.IndexB)
	for k, ell := range pix.Ell() {
		out.T[k] = complex(interp(ell, tt), 0)
		out.E[k] = complex(interp(ell, ee), 0)
		out.B[k] = complex(interp(ell, bb), 0)
	}
	return out, nil
}

// interp linearly interpolates y sampled at integer ℓ, returning zero past
// the last sample.
func interp(ell float64, y []float64) float64 {
	last := float64(len(y) - 1)
	switch {
	case ell <= 0:
		return y[0]
	case ell > last:
		return 0
	case ell == last:
		return y[len(y)-1]
	}
	l0 := math.Floor(ell)
	i := int(l0)
	t := ell - l0
	return y[i] + t*(y[i+1]-y[i])
}

// Hash returns a stable digest of every block.
func (c *ClMatTEB) Hash() string {
	h := digest.New().Int(c.lmax)
	for _, b := range c.blocks {
		for i := range 3 {
			for j := range 3 {
				h.Float(b[i][j])
			}
		}
	}
	return h.Sum()
}
