// Command ivfinfo builds inverse-variance filters for flat-sky CMB maps and
// reports on them.
//
// Usage:
//
//	ivfinfo [--config file] <command> [flags]
//
// Commands:
//
//	fl       print the filter coefficients averaged in multipole bins
//	fullsky  print the full-sky filter response, cut below filter.lcut
//	check    run the hash consistency check against lib_dir
//	run      filter white-noise simulations and print their binned power
//
// Settings come from a YAML file and IVF_* environment variables, e.g.
// IVF_FILTER_NLEV_T=5 or IVF_CLUSTER_RANK=1. A process group sharing a
// barrier directory sets cluster.run_id to a value unique to the run.
//
// Examples:
//
//	ivfinfo fl --bins 8
//	IVF_FILTER_LCUT=30 ivfinfo fullsky --step 100
//	ivfinfo --config ivf.yaml check
//	IVF_SIMS_COUNT=16 ivfinfo run --metrics
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
