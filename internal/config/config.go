// Package config loads the settings of the ivfinfo tool from a YAML file and
// IVF_* environment variables.
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"

	"github.com/cwbudde/algo-cmb/internal/logging"
	"github.com/cwbudde/algo-cmb/sky/maps"
)

// EnvPrefix prefixes environment overrides, e.g. IVF_FILTER_NLEV_T.
const EnvPrefix = "IVF"

// Config is the full tool configuration.
type Config struct {
	Pix      PixConfig     `mapstructure:"pix"`
	Filter   FilterConfig  `mapstructure:"filter"`
	LMask    LMaskConfig   `mapstructure:"lmask"`
	Sims     SimsConfig    `mapstructure:"sims"`
	Cluster  ClusterConfig `mapstructure:"cluster"`
	Log      LogConfig     `mapstructure:"log"`
	LibDir   string        `mapstructure:"lib_dir"`
	CacheDir string        `mapstructure:"cache_dir"`
}

// PixConfig describes the flat-sky grid.
type PixConfig struct {
	Nx       int     `mapstructure:"nx"`
	Ny       int     `mapstructure:"ny"`
	DxArcmin float64 `mapstructure:"dx_arcmin"`
	DyArcmin float64 `mapstructure:"dy_arcmin"`
}

// FilterConfig holds the filter inputs. TheoryFile is a CAMB scalar
// spectrum; when empty a flat toy spectrum is used.
type FilterConfig struct {
	TheoryFile     string  `mapstructure:"theory_file"`
	LMax           int     `mapstructure:"lmax"`
	NlevT          float64 `mapstructure:"nlev_t"`
	NlevP          float64 `mapstructure:"nlev_p"`
	BeamFWHMArcmin float64 `mapstructure:"beam_fwhm_arcmin"`
	// Apodization is the Tukey taper fraction of the mask; 0 disables
	// masking.
	Apodization float64 `mapstructure:"apodization"`
	// LCut is the default low-multipole cut of the full-sky filter.
	LCut        int     `mapstructure:"lcut"`
}

// LMaskConfig holds the optional multipole band-pass. Unset bounds are open.
type LMaskConfig struct {
	LMin  *float64 `mapstructure:"lmin"`
	LMax  *float64 `mapstructure:"lmax"`
	LxMin *float64 `mapstructure:"lxmin"`
	LxMax *float64 `mapstructure:"lxmax"`
	LyMin *float64 `mapstructure:"lymin"`
	LyMax *float64 `mapstructure:"lymax"`
}

// SimsConfig controls the white-noise simulations filtered by "run".
type SimsConfig struct {
	Count   int    `mapstructure:"count"`
	Seed    uint64 `mapstructure:"seed"`
	Workers int    `mapstructure:"workers"`
}

// ClusterConfig places this process in a group sharing LibDir. RunID names
// the run inside BarrierDir and must differ between runs.
type ClusterConfig struct {
	Rank       int    `mapstructure:"rank"`
	Size       int    `mapstructure:"size"`
	BarrierDir string `mapstructure:"barrier_dir"`
	RunID      string `mapstructure:"run_id"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Pix: PixConfig{Nx: 64, Ny: 64, DxArcmin: 2, DyArcmin: 2},
		Filter: FilterConfig{
			LMax:           6000,
			NlevT:          10,
			NlevP:          14,
			BeamFWHMArcmin: 1.5,
		},
		Sims:    SimsConfig{Count: 4, Seed: 1, Workers: 4},
		Cluster: ClusterConfig{Rank: 0, Size: 1},
		Log:     LogConfig{Level: logging.LevelInfo, Format: logging.FormatText},
	}
}

// SetDefaults registers the defaults with v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("pix.nx", d.Pix.Nx)
	v.SetDefault("pix.ny", d.Pix.Ny)
	v.SetDefault("pix.dx_arcmin", d.Pix.DxArcmin)
	v.SetDefault("pix.dy_arcmin", d.Pix.DyArcmin)

	v.SetDefault("filter.theory_file", d.Filter.TheoryFile)
	v.SetDefault("filter.lmax", d.Filter.LMax)
	v.SetDefault("filter.nlev_t", d.Filter.NlevT)
	v.SetDefault("filter.nlev_p", d.Filter.NlevP)
	v.SetDefault("filter.beam_fwhm_arcmin", d.Filter.BeamFWHMArcmin)
	v.SetDefault("filter.apodization", d.Filter.Apodization)
	v.SetDefault("filter.lcut", d.Filter.LCut)

	v.SetDefault("sims.count", d.Sims.Count)
	v.SetDefault("sims.seed", d.Sims.Seed)
	v.SetDefault("sims.workers", d.Sims.Workers)

	v.SetDefault("cluster.rank", d.Cluster.Rank)
	v.SetDefault("cluster.size", d.Cluster.Size)
	v.SetDefault("cluster.barrier_dir", d.Cluster.BarrierDir)
	v.SetDefault("cluster.run_id", d.Cluster.RunID)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("lib_dir", d.LibDir)
	v.SetDefault("cache_dir", d.CacheDir)
}

// New returns a viper instance with defaults and environment overrides
// registered.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range []string{"lmin", "lmax", "lxmin", "lxmax", "lymin", "lymax"} {
		_ = v.BindEnv("lmask." + k)
	}
	return v
}

// Load reads path (if not empty) on top of the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read %q: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// PixGrid returns the configured pixelization.
func (c *Config) PixGrid() maps.Pix {
	dy := c.Pix.DyArcmin
	if dy == 0 {
		dy = c.Pix.DxArcmin
	}
	return maps.Pix{
		Nx: c.Pix.Nx,
		Ny: c.Pix.Ny,
		Dx: arcmin(c.Pix.DxArcmin),
		Dy: arcmin(dy),
	}
}

// Bounds returns the configured band-pass.
func (c *Config) Bounds() maps.LBounds {
	return maps.LBounds{
		LMin: c.LMask.LMin, LMax: c.LMask.LMax,
		LxMin: c.LMask.LxMin, LxMax: c.LMask.LxMax,
		LyMin: c.LMask.LyMin, LyMax: c.LMask.LyMax,
	}
}

func arcmin(v float64) float64 {
	return v * math.Pi / 180 / 60
}
