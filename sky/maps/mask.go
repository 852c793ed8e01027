package maps

import (
	"fmt"
	"slices"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-cmb/internal/digest"
)

// Mask is a real-space weighting applied before transforming a map.
//
// The set of implementations is closed: a raw weight grid (GridMask) or a
// structured map carrying its own pixelization (*RMap).
type Mask interface {
	// Apply returns m multiplied pixelwise by the mask.
	Apply(m *TQUMap) (*TQUMap, error)
	// Hash returns a stable digest of the mask contents.
	Hash() string

	sealed()
}

// GridMask is a raw Ny×Nx weight grid without pixel-size information.
type GridMask struct {
	Nx, Ny int
	W      []float64
}

// NewGridMask validates and copies a weight grid.
func NewGridMask(nx, ny int, w []float64) (GridMask, error) {
	if nx <= 0 || ny <= 0 {
		return GridMask{}, fmt.Errorf("%w: mask dimensions must be > 0: %dx%d", ErrInvalidPix, nx, ny)
	}
	if err := validateLen("mask", len(w), nx*ny); err != nil {
		return GridMask{}, err
	}
	return GridMask{Nx: nx, Ny: ny, W: slices.Clone(w)}, nil
}

// CloneMask returns a deep copy of m. A nil mask stays nil.
func CloneMask(m Mask) Mask {
	switch m := m.(type) {
	case GridMask:
		m.W = slices.Clone(m.W)
		return m
	case *RMap:
		if m == nil {
			return nil
		}
		return m.Clone()
	}
	return nil
}

// Ones returns the all-ones mask for pix, meaning no masking.
func Ones(pix Pix) GridMask {
	w := make([]float64, pix.Size())
	for i := range w {
		w[i] = 1
	}
	return GridMask{Nx: pix.Nx, Ny: pix.Ny, W: w}
}

// Apply multiplies every component of m by the weights.
func (g GridMask) Apply(m *TQUMap) (*TQUMap, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if g.Nx != m.Nx || g.Ny != m.Ny {
		return nil, fmt.Errorf("%w: mask %dx%d, map %dx%d", ErrPixMismatch, g.Nx, g.Ny, m.Nx, m.Ny)
	}
	if err := validateLen("mask", len(g.W), m.Size()); err != nil {
		return nil, err
	}
	return applyWeights(m, g.W), nil
}

// Hash returns a stable digest of the grid shape and weights.
func (g GridMask) Hash() string {
	return digest.New().Int(g.Nx).Int(g.Ny).Floats(g.W).Sum()
}

func (GridMask) sealed() {}

// Apply multiplies every component of m by the map values. The
// pixelizations must match.
func (r *RMap) Apply(m *TQUMap) (*TQUMap, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := r.Pix.mustMatch(m.Pix); err != nil {
		return nil, err
	}
	return applyWeights(m, r.Map), nil
}

func (*RMap) sealed() {}

func applyWeights(m *TQUMap, w []float64) *TQUMap {
	out := NewTQUMap(m.Pix)
	vecmath.MulBlock(out.T, m.T, w)
	vecmath.MulBlock(out.Q, m.Q, w)
	vecmath.MulBlock(out.U, m.U, w)
	return out
}
