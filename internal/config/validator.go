package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every invalid setting.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels lists the accepted log levels, lower case.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats lists the accepted handler formats.
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate reports every invalid setting.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if c.Pix.Nx <= 0 {
		add("pix.nx", c.Pix.Nx, "must be positive")
	}
	if c.Pix.Ny <= 0 {
		add("pix.ny", c.Pix.Ny, "must be positive")
	}
	if !(c.Pix.DxArcmin > 0) {
		add("pix.dx_arcmin", c.Pix.DxArcmin, "must be positive")
	}
	if c.Pix.DyArcmin < 0 {
		add("pix.dy_arcmin", c.Pix.DyArcmin, "must be non-negative (0 means dx_arcmin)")
	}

	if c.Filter.LMax < 1 {
		add("filter.lmax", c.Filter.LMax, "must be at least 1")
	}
	if c.Filter.NlevT < 0 {
		add("filter.nlev_t", c.Filter.NlevT, "must be non-negative")
	}
	if c.Filter.NlevP < 0 {
		add("filter.nlev_p", c.Filter.NlevP, "must be non-negative")
	}
	if c.Filter.BeamFWHMArcmin < 0 {
		add("filter.beam_fwhm_arcmin", c.Filter.BeamFWHMArcmin, "must be non-negative")
	}
	if c.Filter.Apodization < 0 || c.Filter.Apodization > 1 {
		add("filter.apodization", c.Filter.Apodization, "must be in [0, 1]")
	}
	if c.Filter.LCut < 0 {
		add("filter.lcut", c.Filter.LCut, "must be non-negative")
	}

	if c.Sims.Count < 0 {
		add("sims.count", c.Sims.Count, "must be non-negative")
	}
	if c.Sims.Workers < 1 {
		add("sims.workers", c.Sims.Workers, "must be at least 1")
	}

	if c.Cluster.Size < 1 {
		add("cluster.size", c.Cluster.Size, "must be at least 1")
	} else if c.Cluster.Rank < 0 || c.Cluster.Rank >= c.Cluster.Size {
		add("cluster.rank", c.Cluster.Rank, fmt.Sprintf("must be in [0, %d)", c.Cluster.Size))
	}
	if c.Cluster.Size > 1 && c.Cluster.BarrierDir == "" {
		add("cluster.barrier_dir", c.Cluster.BarrierDir, "required when cluster.size > 1")
	}
	if c.Cluster.Size > 1 && c.Cluster.RunID == "" {
		add("cluster.run_id", c.Cluster.RunID, "required when cluster.size > 1")
	} else if id := c.Cluster.RunID; id != "" && (id == "." || id == ".." || filepath.Base(id) != id) {
		add("cluster.run_id", id, "must be a single path element")
	}
	if c.Cluster.Size > 1 && c.LibDir == "" {
		add("lib_dir", c.LibDir, "required when cluster.size > 1")
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Log.Level)) {
		add("log.level", c.Log.Level, "must be one of "+strings.Join(ValidLogLevels(), ", "))
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Log.Format)) {
		add("log.format", c.Log.Format, "must be one of "+strings.Join(ValidLogFormats(), ", "))
	}
	return errs
}
