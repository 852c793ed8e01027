package ivf

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-cmb/sims/hashdict"
	"github.com/cwbudde/algo-cmb/sims/obs"
	"github.com/cwbudde/algo-cmb/sky/maps"
	"github.com/cwbudde/algo-cmb/sky/spec"
)

// filterCoeffs returns the deconvolution factor tl = transf⁻¹ and the
// filter fl = (cl + tl·tl·nl)⁻¹ on pix, with nl the white-noise spectrum for
// the given levels.
func filterCoeffs(cl *spec.ClMatTEB, transf Transfer, pix maps.Pix, nlevT, nlevP float64) (tl, fl *maps.TEBFFT, err error) {
	nl, err := spec.WhiteNoise(cl.LMax(), nlevT, nlevP)
	if err != nil {
		return nil, nil, err
	}
	nlGrid, err := nl.OnGrid(pix)
	if err != nil {
		return nil, nil, err
	}
	clGrid, err := cl.OnGrid(pix)
	if err != nil {
		return nil, nil, err
	}
	tGrid, err := transf.OnGrid(pix)
	if err != nil {
		return nil, nil, fmt.Errorf("ivf: transfer function: %w", err)
	}

	tl = tGrid.Inverse()
	tl2, err := tl.Mul(tl)
	if err != nil {
		return nil, nil, err
	}
	noise, err := tl2.Mul(nlGrid)
	if err != nil {
		return nil, nil, err
	}
	total, err := clGrid.Add(noise)
	if err != nil {
		return nil, nil, err
	}
	return tl, total.Inverse(), nil
}

// diagCore holds the state shared by the flat-sky diagonal filters.
type diagCore struct {
	cl           *spec.ClMatTEB
	transfHash   string
	nlevT, nlevP float64
	mask         maps.Mask
	tl, fl       *maps.TEBFFT
}

func newDiagCore(cl *spec.ClMatTEB, transf Transfer, pix maps.Pix, o options) (diagCore, error) {
	if cl == nil || transf == nil {
		return diagCore{}, fmt.Errorf("%w: spectrum and transfer function are required", ErrNilInput)
	}
	mask := maps.CloneMask(o.mask)
	if mask == nil {
		mask = maps.Ones(pix)
	}
	// Shape check against an empty map of the filter grid.
	if _, err := mask.Apply(maps.NewTQUMap(pix)); err != nil {
		return diagCore{}, fmt.Errorf("ivf: mask: %w", err)
	}

	tl, fl, err := filterCoeffs(cl, transf, pix, o.nlevT, o.nlevP)
	if err != nil {
		return diagCore{}, err
	}
	return diagCore{
		cl:         cl,
		transfHash: transf.Hash(),
		nlevT:      o.nlevT,
		nlevP:      o.nlevP,
		mask:       mask,
		tl:         tl,
		fl:         fl,
	}, nil
}

func (c *diagCore) FMask() maps.Mask { return maps.CloneMask(c.mask) }

func (c *diagCore) FL() *maps.TEBFFT { return c.fl.Clone() }

// filter masks m, transforms it, deconvolves and rescales.
func (c *diagCore) filter(m *maps.TQUMap) (*maps.TEBFFT, error) {
	masked, err := c.mask.Apply(m)
	if err != nil {
		return nil, err
	}
	teb, err := masked.TEB()
	if err != nil {
		return nil, err
	}
	teb, err = teb.Mul(c.tl)
	if err != nil {
		return nil, err
	}
	return teb.Mul(c.fl)
}

func (c *diagCore) hashDict(obsDict hashdict.Dict) hashdict.Dict {
	return hashdict.Dict{
		"cl":     c.cl.Hash(),
		"transf": c.transfHash,
		"nlev_t": c.nlevT,
		"nlev_p": c.nlevP,
		"mask":   c.mask.Hash(),
		"super":  hashdict.Dict{"obs_lib": obsDict},
	}
}

// Diag is a flat-sky filter that is diagonal in Fourier space. For each
// simulation it masks the observed map, transforms to T/E/B modes,
// deconvolves the transfer function and divides by the signal-plus-noise
// power.
type Diag struct {
	diagCore
	obs obs.Library
}

// NewDiag builds the filter for maps produced by obsLib. cl is the theory
// spectrum and transf the beam, filtering and pixel transfer function.
//
// When WithLibDir is given, construction also runs the consistency check
// and fails on a mismatch.
func NewDiag(ctx context.Context, obsLib obs.Library, cl *spec.ClMatTEB, transf Transfer, opts ...Option) (*Diag, error) {
	if obsLib == nil {
		return nil, fmt.Errorf("%w: observation library is required", ErrNilInput)
	}
	o := applyOptions(opts)
	core, err := newDiagCore(cl, transf, obsLib.Pix(), o)
	if err != nil {
		return nil, err
	}
	d := &Diag{diagCore: core, obs: obsLib}
	if err := checkIfConfigured(ctx, d, o); err != nil {
		return nil, err
	}
	o.logger.Debug("diagonal filter ready", "pix", obsLib.Pix(), "nlev_t", o.nlevT, "nlev_p", o.nlevP)
	return d, nil
}

// SimTEB filters simulation i of the observation library.
func (d *Diag) SimTEB(i int) (*maps.TEBFFT, error) {
	m, err := d.obs.SimTQU(i)
	if err != nil {
		return nil, err
	}
	return d.filter(m)
}

func (d *Diag) HashDict() hashdict.Dict {
	return d.hashDict(d.obs.HashDict())
}

// ObsHashDict returns the record of the observation library.
func (d *Diag) ObsHashDict() hashdict.Dict { return d.obs.HashDict() }
