package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-cmb/sims/cache"
	"github.com/cwbudde/algo-cmb/sims/hashdict"
	"github.com/cwbudde/algo-cmb/sims/ivf"
	"github.com/cwbudde/algo-cmb/sky/alm"
	"github.com/cwbudde/algo-cmb/sky/maps"
)

func newFLCmd(a *app) *cobra.Command {
	var bins int
	cmd := &cobra.Command{
		Use:   "fl",
		Short: "Print binned filter coefficients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			return printFL(cmd.OutOrStdout(), p.filter, linearEdges(a.cfg.Filter.LMax, bins))
		},
	}
	cmd.Flags().IntVar(&bins, "bins", 10, "number of linear multipole bins")
	return cmd
}

func printFL(w io.Writer, lib ivf.Library, edges []float64) error {
	var cols [3][]float64
	for k, c := range lib.FL().Components() {
		mean, err := c.BinnedMean(edges)
		if err != nil {
			return err
		}
		cols[k] = mean
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ℓ min\tℓ max\tFL T\tFL E\tFL B\n")
	fmt.Fprintf(tw, "-----\t-----\t----\t----\t----\n")
	for b := range len(edges) - 1 {
		fmt.Fprintf(tw, "%.0f\t%.0f\t%.6g\t%.6g\t%.6g\n",
			edges[b], edges[b+1], cols[0][b], cols[1][b], cols[2][b])
	}
	return tw.Flush()
}

func newFullSkyCmd(a *app) *cobra.Command {
	var step int
	cmd := &cobra.Command{
		Use:   "fullsky",
		Short: "Print the full-sky filter response with the configured lcut",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if step < 1 {
				return fmt.Errorf("--step must be at least 1, got %d", step)
			}
			f, err := a.buildFullSky(cmd.Context())
			if err != nil {
				return err
			}
			return printFullSky(cmd.OutOrStdout(), f, a.cfg.Filter.LMax, step)
		},
	}
	cmd.Flags().IntVar(&step, "step", 500, "multipole spacing of the printed rows")
	return cmd
}

// printFullSky filters an axisymmetric unit field (a_ℓ0 = 1) and prints the
// surviving coefficients every step multipoles.
func printFullSky(w io.Writer, f *ivf.FullSky, lmax, step int) error {
	unit := &alm.Alm{LMax: lmax, MMax: 0, C: make([]complex128, lmax+1)}
	for i := range unit.C {
		unit.C[i] = 1
	}

	components := []string{ivf.ComponentTT, ivf.ComponentEE, ivf.ComponentBB}
	var cols [3]*alm.Alm
	for k, which := range components {
		out, err := f.IVFAlm(unit, which)
		if err != nil {
			return err
		}
		cols[k] = out
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ℓ\tTT\tEE\tBB\n")
	fmt.Fprintf(tw, "-\t--\t--\t--\n")
	for l := 0; l <= lmax; l += step {
		i := unit.Index(l, 0)
		fmt.Fprintf(tw, "%d\t%.6g\t%.6g\t%.6g\n", l,
			real(cols[0].C[i]), real(cols[1].C[i]), real(cols[2].C[i]))
	}
	return tw.Flush()
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the filter configuration against the record in lib_dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.LibDir == "" {
				return fmt.Errorf("check requires lib_dir")
			}
			p, err := a.buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			digest, err := hashdict.Digest(p.filter.HashDict())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "consistent: %s (rank %d of %d, digest %s)\n",
				filepath.Clean(a.cfg.LibDir), p.coord.Rank(), p.coord.Size(), digest)
			return nil
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	var (
		bins    int
		metrics bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Filter white-noise simulations and print binned power",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.buildPipeline(cmd.Context())
			if err != nil {
				return err
			}

			lib := p.filter
			if dir := a.cfg.CacheDir; dir != "" {
				store, err := cache.Open(filepath.Join(dir, "rank"+strconv.Itoa(p.coord.Rank())))
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				if lib, err = cache.Wrap(lib, store); err != nil {
					return err
				}
			}

			reg := prometheus.NewRegistry()
			m, err := ivf.NewMetrics(reg)
			if err != nil {
				return err
			}
			lib = ivf.Instrument(lib, "diag", m)

			indices := rankIndices(a.cfg.Sims.Count, p.coord.Rank(), p.coord.Size())
			rows, err := filterSims(cmd, lib, indices, linearEdges(a.cfg.Filter.LMax, bins), a.cfg.Sims.Workers)
			if err != nil {
				return err
			}
			if err := printRows(cmd.OutOrStdout(), rows); err != nil {
				return err
			}
			if metrics {
				return printMetrics(cmd.OutOrStdout(), reg)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&bins, "bins", 4, "number of linear multipole bins")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print filter counters after the run")
	return cmd
}

// rankIndices returns the simulation indices this rank processes.
func rankIndices(count, rank, size int) []int {
	var out []int
	for i := rank; i < count; i += size {
		out = append(out, i)
	}
	return out
}

type simRow struct {
	index int
	// power[k][b] is the binned power of component k in bin b.
	power [3][]float64
}

func filterSims(cmd *cobra.Command, lib ivf.Library, indices []int, edges []float64, workers int) ([]simRow, error) {
	rows := make([]simRow, len(indices))
	eg, ctx := errgroup.WithContext(cmd.Context())
	eg.SetLimit(workers)
	for n, i := range indices {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			teb, err := lib.SimTEB(i)
			if err != nil {
				return fmt.Errorf("sim %d: %w", i, err)
			}
			row := simRow{index: i}
			for k, c := range teb.Components() {
				if row.power[k], err = c.BinnedPower(edges); err != nil {
					return err
				}
			}
			rows[n] = row
			return nil
		})
	}
	return rows, eg.Wait()
}

func printRows(w io.Writer, rows []simRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Sim\tBin\tTT\tEE\tBB\n")
	fmt.Fprintf(tw, "---\t---\t--\t--\t--\n")
	for _, r := range rows {
		for b := range r.power[maps.IndexT] {
			fmt.Fprintf(tw, "%d\t%d\t%.4g\t%.4g\t%.4g\n", r.index, b,
				r.power[maps.IndexT][b], r.power[maps.IndexE][b], r.power[maps.IndexB][b])
		}
	}
	return tw.Flush()
}

func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				labels += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				fmt.Fprintf(w, "%s_count%s %d\n", mf.GetName(), labels, m.GetHistogram().GetSampleCount())
			}
		}
	}
	return nil
}
