package ivf

import (
	"log/slog"

	"github.com/cwbudde/algo-cmb/sims/coord"
	"github.com/cwbudde/algo-cmb/sky/maps"
)

type options struct {
	nlevT, nlevP float64
	mask         maps.Mask
	libDir       string
	coord        coord.Coordinator
	logger       *slog.Logger
	lcut         int
}

// Option configures a filter constructor or CheckHash.
type Option func(*options)

func applyOptions(opts []Option) options {
	o := options{coord: coord.Solo()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.coord == nil {
		o.coord = coord.Solo()
	}
	return o
}

// WithNoiseLevels sets the white-noise levels in μK·arcmin for temperature
// and for Q/U polarization. Both default to zero.
func WithNoiseLevels(nlevT, nlevP float64) Option {
	return func(o *options) {
		o.nlevT = nlevT
		o.nlevP = nlevP
	}
}

// WithMask sets the real-space mask. The default is all ones.
func WithMask(m maps.Mask) Option {
	return func(o *options) { o.mask = m }
}

// WithLibDir enables the consistency check against the hash record in dir.
func WithLibDir(dir string) Option {
	return func(o *options) { o.libDir = dir }
}

// WithCoordinator sets the process group used by the consistency check.
// The default is a single process.
func WithCoordinator(c coord.Coordinator) Option {
	return func(o *options) { o.coord = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLCut sets the low-multipole cut FullSky.IVFAlm applies.
func WithLCut(lcut int) Option {
	return func(o *options) { o.lcut = lcut }
}
