package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-cmb/internal/config"
	"github.com/cwbudde/algo-cmb/internal/logging"
)

type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "ivfinfo",
		Short: "Inspect and run inverse-variance CMB filters",
		Long: `ivfinfo builds a diagonal inverse-variance filter from a theory spectrum,
a Gaussian beam and white-noise levels, optionally band-passed in multipole
space, and reports its coefficients or applies it to simulations. The same
inputs also build the full-sky filter for harmonic coefficients.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (YAML)")

	root.AddCommand(newFLCmd(a), newFullSkyCmd(a), newCheckCmd(a), newRunCmd(a))
	return root
}
