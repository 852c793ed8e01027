package ivf

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-cmb/sims/hashdict"
	"github.com/cwbudde/algo-cmb/sky/alm"
	"github.com/cwbudde/algo-cmb/sky/maps"
	"github.com/cwbudde/algo-cmb/sky/spec"
)

// Component selectors accepted by FullSky.
const (
	ComponentTT = "cltt"
	ComponentEE = "clee"
	ComponentBB = "clbb"
)

func componentIndex(which string) (int, error) {
	switch which {
	case ComponentTT:
		return maps.IndexT, nil
	case ComponentEE:
		return maps.IndexE, nil
	case ComponentBB:
		return maps.IndexB, nil
	}
	return 0, fmt.Errorf("%w: %q (want %q, %q or %q)", ErrUnknownComponent, which, ComponentTT, ComponentEE, ComponentBB)
}

// FullSky is the curved-sky diagonal filter acting on spherical-harmonic
// coefficients. The spectrum and transfer function are per-ℓ blocks.
type FullSky struct {
	cl, transf   *spec.ClMatTEB
	nlevT, nlevP float64
	lcut         int
	tl, fl       *spec.ClMatTEB
}

// NewFullSky builds the filter. cl and transf must share LMax.
// WithLCut sets the default cut used by IVFAlm.
func NewFullSky(ctx context.Context, cl, transf *spec.ClMatTEB, opts ...Option) (*FullSky, error) {
	if cl == nil || transf == nil {
		return nil, fmt.Errorf("%w: spectrum and transfer function are required", ErrNilInput)
	}
	o := applyOptions(opts)
	if o.lcut < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLCut, o.lcut)
	}

	nl, err := spec.WhiteNoise(cl.LMax(), o.nlevT, o.nlevP)
	if err != nil {
		return nil, err
	}
	tl := transf.Inverse()
	tl2, err := tl.Mul(tl)
	if err != nil {
		return nil, fmt.Errorf("ivf: transfer function: %w", err)
	}
	noise, err := tl2.Mul(nl)
	if err != nil {
		return nil, fmt.Errorf("ivf: transfer function: %w", err)
	}
	total, err := cl.Add(noise)
	if err != nil {
		return nil, err
	}

	f := &FullSky{
		cl:     cl,
		transf: transf,
		nlevT:  o.nlevT,
		nlevP:  o.nlevP,
		lcut:   o.lcut,
		tl:     tl,
		fl:     total.Inverse(),
	}
	if err := checkIfConfigured(ctx, f, o); err != nil {
		return nil, err
	}
	return f, nil
}

// FLFullSky returns the per-ℓ filter blocks.
func (f *FullSky) FLFullSky() *spec.ClMatTEB { return f.fl }

// FLComponent returns the diagonal filter entry for one component at every
// multipole.
func (f *FullSky) FLComponent(which string) ([]float64, error) {
	k, err := componentIndex(which)
	if err != nil {
		return nil, err
	}
	return f.fl.Diag(k), nil
}

// IVFAlm filters a with the diagonal entry of the filter for component
// which, applying the filter's WithLCut default cut. See IVFAlmCut.
func (f *FullSky) IVFAlm(a *alm.Alm, which string) (*alm.Alm, error) {
	return f.IVFAlmCut(a, which, f.lcut)
}

// IVFAlmCut filters a with the diagonal entry of the filter for component
// which. Multipoles 0 and 1 are always zeroed; so is every ℓ < lcut, and an
// lcut of 0 adds no further cut regardless of the WithLCut default.
//
// Coefficients above the filter's LMax are zeroed.
func (f *FullSky) IVFAlmCut(a *alm.Alm, which string, lcut int) (*alm.Alm, error) {
	if lcut < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLCut, lcut)
	}
	fl, err := f.FLComponent(which)
	if err != nil {
		return nil, err
	}
	for l := 0; l < len(fl) && (l < 2 || l < lcut); l++ {
		fl[l] = 0
	}
	return a.Xfl(fl)
}

func (f *FullSky) HashDict() hashdict.Dict {
	return hashdict.Dict{
		"cl":     f.cl.Hash(),
		"transf": f.transf.Hash(),
		"nlev_t": f.nlevT,
		"nlev_p": f.nlevP,
		"lcut":   f.lcut,
	}
}
