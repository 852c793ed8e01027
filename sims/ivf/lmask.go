package ivf

import (
	"github.com/cwbudde/algo-cmb/sims/hashdict"
	"github.com/cwbudde/algo-cmb/sky/maps"
)

// obsSourced is implemented by filters that read an observation source.
type obsSourced interface {
	ObsHashDict() hashdict.Dict
}

// LMask wraps another Library and band-passes its outputs in multipole
// space. The wrapped filter is never modified.
type LMask struct {
	inner  Library
	bounds maps.LBounds
}

var _ Library = (*LMask)(nil)

// NewLMask wraps inner with bounds. Unset bounds are open.
func NewLMask(inner Library, bounds maps.LBounds) *LMask {
	return &LMask{inner: inner, bounds: bounds.Clone()}
}

// Inner returns the wrapped filter.
func (l *LMask) Inner() Library { return l.inner }

// Bounds returns the band-pass.
func (l *LMask) Bounds() maps.LBounds { return l.bounds.Clone() }

// FMask returns the wrapped filter's mask.
func (l *LMask) FMask() maps.Mask { return l.inner.FMask() }

// FL returns the wrapped filter's coefficients with out-of-band modes
// zeroed.
func (l *LMask) FL() *maps.TEBFFT { return l.inner.FL().LMasked(l.bounds) }

// SimTEB returns the wrapped filter's output with out-of-band modes zeroed.
func (l *LMask) SimTEB(i int) (*maps.TEBFFT, error) {
	teb, err := l.inner.SimTEB(i)
	if err != nil {
		return nil, err
	}
	return teb.LMasked(l.bounds), nil
}

// ObsHashDict forwards to the wrapped filter, when it has a source.
func (l *LMask) ObsHashDict() hashdict.Dict {
	if s, ok := l.inner.(obsSourced); ok {
		return s.ObsHashDict()
	}
	return nil
}

func (l *LMask) HashDict() hashdict.Dict {
	d := hashdict.Dict{
		"ivf_lib": l.inner.HashDict(),
		"super":   hashdict.Dict{"obs_lib": l.ObsHashDict()},
	}
	for k, v := range l.bounds.HashDict() {
		d[k] = v
	}
	return d
}
