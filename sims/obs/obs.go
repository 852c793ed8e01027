// Package obs provides observation libraries: indexed sources of T/Q/U maps
// consumed by the inverse-variance filters.
package obs

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cwbudde/algo-cmb/sims/hashdict"
	"github.com/cwbudde/algo-cmb/sky/maps"
)

var (
	// ErrIndexOutOfRange is returned for a simulation index the library
	// cannot produce.
	ErrIndexOutOfRange = errors.New("obs: simulation index out of range")
	// ErrNoMaps is returned by NewStatic when given no maps.
	ErrNoMaps = errors.New("obs: no maps")
)

// Library produces the observed sky for simulation index i.
type Library interface {
	SimTQU(i int) (*maps.TQUMap, error)
	Pix() maps.Pix
	HashDict() hashdict.Dict
}

// Static serves a fixed list of maps.
type Static struct {
	pix  maps.Pix
	sims []*maps.TQUMap
}

// NewStatic returns a library over copies of sims, which must share one
// pixelization.
func NewStatic(sims ...*maps.TQUMap) (*Static, error) {
	if len(sims) == 0 {
		return nil, ErrNoMaps
	}
	held := make([]*maps.TQUMap, len(sims))
	for i, m := range sims {
		if m == nil {
			return nil, fmt.Errorf("obs: map %d is nil", i)
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("obs: map %d: %w", i, err)
		}
		if !sims[0].Pix.Compatible(m.Pix) {
			return nil, fmt.Errorf("obs: map %d: %w", i, maps.ErrPixMismatch)
		}
		held[i] = m.Clone()
	}
	return &Static{pix: sims[0].Pix, sims: held}, nil
}

func (s *Static) Pix() maps.Pix { return s.pix }

// Len reports the number of maps held.
func (s *Static) Len() int { return len(s.sims) }

// SimTQU returns a copy of map i.
func (s *Static) SimTQU(i int) (*maps.TQUMap, error) {
	if i < 0 || i >= len(s.sims) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(s.sims))
	}
	return s.sims[i].Clone(), nil
}

func (s *Static) HashDict() hashdict.Dict {
	hashes := make([]any, len(s.sims))
	for i, m := range s.sims {
		hashes[i] = m.Hash()
	}
	return hashdict.Dict{"pix": s.pix.Hash(), "sims": hashes}
}

// WhiteNoise draws Gaussian white noise in each pixel. Levels are in
// μK·arcmin; realization i is fully determined by the seed and i.
type WhiteNoise struct {
	pix          maps.Pix
	nlevT, nlevP float64
	seed         uint64
	// N bounds the index range when positive.
	N int
}

// NewWhiteNoise returns a noise library on pix.
func NewWhiteNoise(pix maps.Pix, nlevT, nlevP float64, seed uint64) (*WhiteNoise, error) {
	if err := pix.Validate(); err != nil {
		return nil, err
	}
	return &WhiteNoise{pix: pix, nlevT: nlevT, nlevP: nlevP, seed: seed}, nil
}

func (w *WhiteNoise) Pix() maps.Pix { return w.pix }

// PixelSigma returns the per-pixel standard deviations for T and for Q/U.
func (w *WhiteNoise) PixelSigma() (float64, float64) {
	area := math.Sqrt(w.pix.Dx*w.pix.Dy) * 180 * 60 / math.Pi
	return w.nlevT / area, w.nlevP / area
}

func (w *WhiteNoise) SimTQU(i int) (*maps.TQUMap, error) {
	if i < 0 || (w.N > 0 && i >= w.N) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	sigT, sigP := w.PixelSigma()
	src := rand.NewPCG(w.seed, uint64(i))

	m := maps.NewTQUMap(w.pix)
	fill(m.T, sigT, src)
	fill(m.Q, sigP, src)
	fill(m.U, sigP, src)
	return m, nil
}

func fill(dst []float64, sigma float64, src rand.Source) {
	if sigma == 0 {
		return
	}
	dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: src}
	for i := range dst {
		dst[i] = dist.Rand()
	}
}

func (w *WhiteNoise) HashDict() hashdict.Dict {
	return hashdict.Dict{
		"pix":    w.pix.Hash(),
		"nlev_t": w.nlevT,
		"nlev_p": w.nlevP,
		"seed":   int(w.seed),
		"n":      w.N,
	}
}
