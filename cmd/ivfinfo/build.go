package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-cmb/internal/config"
	"github.com/cwbudde/algo-cmb/sims/coord"
	"github.com/cwbudde/algo-cmb/sims/ivf"
	"github.com/cwbudde/algo-cmb/sims/obs"
	"github.com/cwbudde/algo-cmb/sky/maps"
	"github.com/cwbudde/algo-cmb/sky/spec"
)

const (
	// lmaskDir holds the band-pass record, separate from the inner filter's.
	lmaskDir = "l_mask"
	// fullSkyDir holds the full-sky filter's record.
	fullSkyDir = "full_sky"
)

// toyTheory is a power-law stand-in for a CAMB spectrum: D_ℓ flat in T,
// falling in E and B.
func toyTheory(lmax int) (*spec.ClMatTEB, error) {
	cls := spec.Cls{
		TT: make([]float64, lmax+1),
		EE: make([]float64, lmax+1),
		BB: make([]float64, lmax+1),
	}
	for l := 2; l <= lmax; l++ {
		x := float64(l) * float64(l+1) / (2 * math.Pi)
		cls.TT[l] = 1e3 / x
		cls.EE[l] = 2e1 / x
		cls.BB[l] = 1e-1 / x
	}
	return spec.FromCls(lmax, cls)
}

func loadTheory(cfg *config.Config) (*spec.ClMatTEB, error) {
	if cfg.Filter.TheoryFile == "" {
		return toyTheory(cfg.Filter.LMax)
	}
	f, err := os.Open(cfg.Filter.TheoryFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open theory spectrum: %w", err)
	}
	defer f.Close()
	return spec.ReadCAMB(f, cfg.Filter.LMax)
}

func coordinator(cfg *config.Config) (coord.Coordinator, error) {
	if cfg.Cluster.Size <= 1 {
		return coord.Solo(), nil
	}
	return coord.NewFileGroup(cfg.Cluster.BarrierDir, cfg.Cluster.RunID, cfg.Cluster.Rank, cfg.Cluster.Size)
}

type pipeline struct {
	pix    maps.Pix
	coord  coord.Coordinator
	filter ivf.Library
}

// buildPipeline constructs the observation library and the filter, running
// the consistency checks when lib_dir is set.
func (a *app) buildPipeline(ctx context.Context) (*pipeline, error) {
	cfg := a.cfg
	pix := cfg.PixGrid()

	cl, err := loadTheory(cfg)
	if err != nil {
		return nil, err
	}
	beam, err := spec.GaussianBeam(cfg.Filter.BeamFWHMArcmin, cfg.Filter.LMax)
	if err != nil {
		return nil, err
	}
	noise, err := obs.NewWhiteNoise(pix, cfg.Filter.NlevT, cfg.Filter.NlevP, cfg.Sims.Seed)
	if err != nil {
		return nil, err
	}
	c, err := coordinator(cfg)
	if err != nil {
		return nil, err
	}

	opts := []ivf.Option{
		ivf.WithNoiseLevels(cfg.Filter.NlevT, cfg.Filter.NlevP),
		ivf.WithCoordinator(c),
		ivf.WithLogger(a.logger),
	}
	if cfg.Filter.Apodization > 0 {
		mask, err := maps.Apodize(pix, cfg.Filter.Apodization)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ivf.WithMask(mask))
	}
	if cfg.LibDir != "" {
		opts = append(opts, ivf.WithLibDir(cfg.LibDir))
	}

	diag, err := ivf.NewDiag(ctx, noise, cl, beam, opts...)
	if err != nil {
		return nil, err
	}

	var lib ivf.Library = diag
	if bounds := cfg.Bounds(); !bounds.IsZero() {
		lm := ivf.NewLMask(diag, bounds)
		if cfg.LibDir != "" {
			dir := filepath.Join(cfg.LibDir, lmaskDir)
			if err := ivf.CheckHash(ctx, dir, lm, ivf.WithCoordinator(c), ivf.WithLogger(a.logger)); err != nil {
				return nil, err
			}
		}
		lib = lm
	}
	return &pipeline{pix: pix, coord: c, filter: lib}, nil
}

// buildFullSky constructs the full-sky filter from the same theory, beam and
// noise levels, with filter.lcut as its default low-multipole cut.
func (a *app) buildFullSky(ctx context.Context) (*ivf.FullSky, error) {
	cfg := a.cfg
	cl, err := loadTheory(cfg)
	if err != nil {
		return nil, err
	}
	beam, err := spec.GaussianBeam(cfg.Filter.BeamFWHMArcmin, cfg.Filter.LMax)
	if err != nil {
		return nil, err
	}
	c, err := coordinator(cfg)
	if err != nil {
		return nil, err
	}

	opts := []ivf.Option{
		ivf.WithNoiseLevels(cfg.Filter.NlevT, cfg.Filter.NlevP),
		ivf.WithLCut(cfg.Filter.LCut),
		ivf.WithCoordinator(c),
		ivf.WithLogger(a.logger),
	}
	if cfg.LibDir != "" {
		opts = append(opts, ivf.WithLibDir(filepath.Join(cfg.LibDir, fullSkyDir)))
	}
	return ivf.NewFullSky(ctx, cl, beam, opts...)
}

// linearEdges splits [0, lmax] into n equal bins.
func linearEdges(lmax, n int) []float64 {
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = float64(lmax) * float64(i) / float64(n)
	}
	return edges
}
