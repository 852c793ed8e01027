package ivf

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-cmb/sims/hashdict"
	"github.com/cwbudde/algo-cmb/sky/maps"
)

// Library is the common contract of the flat-sky filters.
type Library interface {
	// SimTEB returns the filtered Fourier modes of simulation i. Errors
	// from the observation source are returned unchanged.
	SimTEB(i int) (*maps.TEBFFT, error)
	// FMask returns the real-space mask applied before filtering.
	FMask() maps.Mask
	// FL returns the diagonal filter coefficients. Every call returns a
	// fresh copy.
	FL() *maps.TEBFFT
	HashDicter
}

// HashDicter describes its configuration as a nested record.
type HashDicter interface {
	HashDict() hashdict.Dict
}

// Transfer is an instrument transfer function that can be evaluated on a
// flat-sky grid. *spec.ClMatTEB and *maps.TEBFFT both satisfy it.
type Transfer interface {
	OnGrid(pix maps.Pix) (*maps.TEBFFT, error)
	Hash() string
}

func simComponent(lib Library, i, k int) (*maps.CFFT, error) {
	teb, err := lib.SimTEB(i)
	if err != nil {
		return nil, err
	}
	return teb.Components()[k], nil
}

// SimT returns the temperature component of lib.SimTEB(i).
func SimT(lib Library, i int) (*maps.CFFT, error) { return simComponent(lib, i, maps.IndexT) }

// SimE returns the E-mode component of lib.SimTEB(i).
func SimE(lib Library, i int) (*maps.CFFT, error) { return simComponent(lib, i, maps.IndexE) }

// SimB returns the B-mode component of lib.SimTEB(i).
func SimB(lib Library, i int) (*maps.CFFT, error) { return simComponent(lib, i, maps.IndexB) }

// FLT returns the temperature component of lib.FL().
func FLT(lib Library) *maps.CFFT { return lib.FL().Components()[maps.IndexT] }

// FLE returns the E-mode component of lib.FL().
func FLE(lib Library) *maps.CFFT { return lib.FL().Components()[maps.IndexE] }

// FLB returns the B-mode component of lib.FL().
func FLB(lib Library) *maps.CFFT { return lib.FL().Components()[maps.IndexB] }

// CheckHash runs the collective consistency check of h against the record
// in dir. Every member of the coordinator group must call it. A mismatch
// wraps hashdict.ErrMismatch.
func CheckHash(ctx context.Context, dir string, h HashDicter, opts ...Option) error {
	o := applyOptions(opts)
	if err := hashdict.Sync(ctx, dir, o.coord, h.HashDict(), o.logger); err != nil {
		return fmt.Errorf("ivf: consistency check in %q: %w", dir, err)
	}
	return nil
}

func checkIfConfigured(ctx context.Context, h HashDicter, o options) error {
	if o.libDir == "" {
		return nil
	}
	return CheckHash(ctx, o.libDir, h, WithCoordinator(o.coord), WithLogger(o.logger))
}
