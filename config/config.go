// SPDX-License-Identifier: MIT

// Package config loads the yaml configuration of the lnpi tools and turns
// it into the functional options of phase, peaks and stability.
//
// What:
//
//	Default() mirrors every package default. Parse overlays a yaml
//	document on Default(), rejects unknown keys and validates the result;
//	Load does the same for a file. Converters (BuilderOptions,
//	SpinodalOptions, ...) never panic on a validated Config.
//
// Errors:
//
//   - ErrInvalid wraps errkind.ErrInvalidInput; Validate joins one wrapped
//     ErrInvalid per offending field.
//   - yaml syntax errors and unknown keys wrap ErrInvalid too.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/lnpi/errkind"
	"github.com/katalvlaran/lnpi/grid"
	"github.com/katalvlaran/lnpi/internal/logging"
	"github.com/katalvlaran/lnpi/peaks"
	"github.com/katalvlaran/lnpi/phase"
	"github.com/katalvlaran/lnpi/stability"
	"github.com/katalvlaran/lnpi/store"
)

// ErrInvalid indicates a configuration value out of range.
var ErrInvalid = fmt.Errorf("config: invalid: %w", errkind.ErrInvalidInput)

// Config is the whole configuration document.
type Config struct {
	Builder  BuilderConfig           `yaml:"builder"`
	Spinodal SpinodalConfig          `yaml:"spinodal"`
	Binodal  BinodalConfig           `yaml:"binodal"`
	Molfrac  MolfracConfig           `yaml:"molfrac"`
	Solver   stability.SolverOptions `yaml:"solver"`
	Sweep    SweepConfig             `yaml:"sweep"`
	Store    store.Config            `yaml:"store"`
	Log      logging.Config          `yaml:"log"`
}

// BuilderConfig configures segmentation and phase building.
type BuilderConfig struct {
	NMax         int         `yaml:"nmax"`
	NMaxPeak     int         `yaml:"nmax_peak"` // 0 means 2·nmax
	Efac         float64     `yaml:"efac"`
	Force        bool        `yaml:"force"`
	Connectivity string      `yaml:"connectivity"` // full or face
	MergeIDs     bool        `yaml:"merge_ids"`
	CacheSize    int         `yaml:"cache_size"` // 0 disables the cache
	Tag          TagConfig   `yaml:"tag"`
	State        grid.State  `yaml:"state"`
	Peaks        PeaksConfig `yaml:"peaks"`
}

// TagConfig selects the phase tagger.
type TagConfig struct {
	Kind      string  `yaml:"kind"` // order, axis, peak_cut or molfrac
	Axis      int     `yaml:"axis"`
	Component int     `yaml:"component"`
	Cut       float64 `yaml:"cut"`
}

// PeaksConfig configures the peak detector.
type PeaksConfig struct {
	MinDistances []int   `yaml:"min_distances"`
	ThresholdAbs float64 `yaml:"threshold_abs"`
	ThresholdRel float64 `yaml:"threshold_rel"`
	Smooth       string  `yaml:"smooth"` // fail, never or always
	Sigma        float64 `yaml:"sigma"`
	Truncate     float64 `yaml:"truncate"`
}

// SpinodalConfig configures the spinodal locator. A nil Solver uses the
// top-level solver section.
type SpinodalConfig struct {
	Efac          float64                  `yaml:"efac"`
	DMu           float64                  `yaml:"dmu"`
	VMin          float64                  `yaml:"vmin"`
	VMax          float64                  `yaml:"vmax"`
	NTry          int                      `yaml:"ntry"`
	NMax          int                      `yaml:"nmax"`
	Step          int                      `yaml:"step"`
	RTol          float64                  `yaml:"rtol"`
	ATol          float64                  `yaml:"atol"`
	AcceptBracket bool                     `yaml:"accept_bracket"`
	Solver        *stability.SolverOptions `yaml:"solver,omitempty"`
}

// BinodalConfig configures the binodal locator.
type BinodalConfig struct {
	Solver *stability.SolverOptions `yaml:"solver,omitempty"`
}

// MolfracConfig configures the molfrac locator.
type MolfracConfig struct {
	DMu    float64                  `yaml:"dmu"`
	DFac   float64                  `yaml:"dfac"`
	NTry   int                      `yaml:"ntry"`
	Tol    float64                  `yaml:"tol"`
	Solver *stability.SolverOptions `yaml:"solver,omitempty"`
}

// SweepConfig configures parallel builds along a mu range.
type SweepConfig struct {
	Workers int     `yaml:"workers"` // 0 means GOMAXPROCS
	Tol     float64 `yaml:"tol"`     // series tolerance, 0 means default
}

// Default returns the package defaults.
func Default() Config {
	po := peaks.DefaultOptions()
	bo := phase.DefaultOptions()
	so := stability.DefaultSpinodalOptions()
	mo := stability.DefaultMolfracOptions()

	return Config{
		Builder: BuilderConfig{
			NMax:         bo.NMax,
			NMaxPeak:     bo.NMaxPeak,
			Efac:         bo.Efac,
			Force:        bo.Force,
			Connectivity: "full",
			MergeIDs:     bo.MergeIDs,
			Tag:          TagConfig{Kind: "order"},
			State:        grid.DefaultState(),
			Peaks: PeaksConfig{
				MinDistances: po.MinDistances,
				ThresholdAbs: po.ThresholdAbs,
				ThresholdRel: po.ThresholdRel,
				Smooth:       po.Smooth.String(),
				Sigma:        po.Sigma,
				Truncate:     po.Truncate,
			},
		},
		Spinodal: SpinodalConfig{
			Efac: so.Efac, DMu: so.DMu, VMin: so.VMin, VMax: so.VMax,
			NTry: so.NTry, NMax: so.NMax, Step: so.Step,
			RTol: so.RTol, ATol: so.ATol,
		},
		Molfrac: MolfracConfig{DMu: mo.DMu, DFac: mo.DFac, NTry: mo.NTry, Tol: mo.Tol},
		Solver:  stability.DefaultSolverOptions(),
		Store:   store.Config{Path: "lnpi.db", SyncWrites: true},
		Log:     logging.Config{Level: "info", Format: "text"},
	}
}

// Load reads and parses the yaml file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	return Parse(data)
}

// Parse overlays data on Default() and validates the result. Empty input
// yields Default().
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports every out-of-range field.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	b := c.Builder
	if b.NMax < 1 {
		bad("builder.nmax = %d, want >= 1", b.NMax)
	}
	if b.NMaxPeak < 0 {
		bad("builder.nmax_peak = %d, want >= 0", b.NMaxPeak)
	}
	if _, err := parseConnectivity(b.Connectivity); err != nil {
		bad("builder.connectivity = %q, want full or face", b.Connectivity)
	}
	if b.CacheSize < 0 {
		bad("builder.cache_size = %d, want >= 0", b.CacheSize)
	}
	switch b.Tag.Kind {
	case "", "order", "axis", "peak_cut", "molfrac":
	default:
		bad("builder.tag.kind = %q, want order, axis, peak_cut or molfrac", b.Tag.Kind)
	}
	if b.Tag.Axis < 0 || b.Tag.Component < 0 {
		bad("builder.tag axis/component must be >= 0")
	}
	if !(b.State.Volume > 0) || !(b.State.Beta > 0) {
		bad("builder.state volume=%g beta=%g, want > 0", b.State.Volume, b.State.Beta)
	}
	p := b.Peaks
	if len(p.MinDistances) == 0 {
		bad("builder.peaks.min_distances is empty")
	}
	for _, r := range p.MinDistances {
		if r < 1 {
			bad("builder.peaks.min_distances has %d, want >= 1", r)
		}
	}
	if _, err := peaks.ParseSmoothMode(p.Smooth); err != nil {
		bad("builder.peaks.smooth = %q, want fail, never or always", p.Smooth)
	}
	if !(p.Sigma > 0) || !(p.Truncate > 0) {
		bad("builder.peaks sigma=%g truncate=%g, want > 0", p.Sigma, p.Truncate)
	}

	s := c.Spinodal
	if !(s.DMu > 0) {
		bad("spinodal.dmu = %g, want > 0", s.DMu)
	}
	if s.NTry < 0 || s.NMax < 0 {
		bad("spinodal ntry=%d nmax=%d, want >= 0", s.NTry, s.NMax)
	}
	if s.Step < -1 || s.Step > 1 {
		bad("spinodal.step = %d, want -1, 0 or 1", s.Step)
	}
	m := c.Molfrac
	if !(m.DMu > 0) || !(m.DFac > 0) {
		bad("molfrac dmu=%g dfac=%g, want > 0", m.DMu, m.DFac)
	}
	if m.NTry < 0 || m.Tol < 0 {
		bad("molfrac ntry=%d tol=%g, want >= 0", m.NTry, m.Tol)
	}

	solvers := []struct {
		name string
		o    *stability.SolverOptions
	}{{"solver", &c.Solver}, {"spinodal.solver", s.Solver}, {"binodal.solver", c.Binodal.Solver}, {"molfrac.solver", m.Solver}}
	for _, sv := range solvers {
		if o := sv.o; o != nil && (o.MaxIter < 1 || !(o.XTol >= 0) || !(o.RTol >= 0)) {
			bad("%s = %+v, want maxiter >= 1 and tolerances >= 0", sv.name, *o)
		}
	}

	if c.Sweep.Workers < 0 || c.Sweep.Tol < 0 {
		bad("sweep workers=%d tol=%g, want >= 0", c.Sweep.Workers, c.Sweep.Tol)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		bad("store.path is empty")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		bad("log.level = %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		bad("log.format = %q, want text or json", c.Log.Format)
	}

	return errors.Join(errs...)
}

func parseConnectivity(s string) (grid.Connectivity, error) {
	switch strings.ToLower(s) {
	case "", "full":
		return grid.ConnFull, nil
	case "face":
		return grid.ConnFace, nil
	}

	return 0, fmt.Errorf("%w: connectivity %q", ErrInvalid, s)
}

// Connectivity returns the configured neighbourhood.
func (c Config) Connectivity() grid.Connectivity {
	conn, _ := parseConnectivity(c.Builder.Connectivity)
	return conn
}

// PeakOptions returns the detector options.
func (c Config) PeakOptions() []peaks.Option {
	p := c.Builder.Peaks
	mode, _ := peaks.ParseSmoothMode(p.Smooth)

	return []peaks.Option{
		peaks.WithMinDistances(p.MinDistances...),
		peaks.WithThresholds(p.ThresholdAbs, p.ThresholdRel),
		peaks.WithSmooth(mode),
		peaks.WithSigma(p.Sigma, p.Truncate),
	}
}

// Tagger returns the configured phase tagger.
func (c Config) Tagger() phase.Tagger {
	t := c.Builder.Tag
	switch t.Kind {
	case "axis":
		return phase.TagByPeakAxis(t.Axis)
	case "peak_cut":
		return phase.TagByPeakCut(t.Axis, t.Cut)
	case "molfrac":
		return phase.TagByMolfrac(t.Component, t.Cut)
	default:
		return phase.TagByOrder
	}
}

// BuilderOptions returns the phase builder options, logging to l.
func (c Config) BuilderOptions(l *slog.Logger) []phase.Option {
	b := c.Builder
	opts := []phase.Option{
		phase.WithNMax(b.NMax),
		phase.WithNMaxPeak(b.NMaxPeak),
		phase.WithEfac(b.Efac),
		phase.WithForce(b.Force),
		phase.WithConnectivity(c.Connectivity()),
		phase.WithPeakOptions(c.PeakOptions()...),
		phase.WithTagger(c.Tagger()),
		phase.WithMergeIDs(b.MergeIDs),
		phase.WithLogger(l),
	}
	if b.CacheSize > 0 {
		opts = append(opts, phase.WithCache(phase.NewCache(b.CacheSize)))
	}

	return opts
}

func (c Config) solver(override *stability.SolverOptions) stability.SolverOptions {
	if override != nil {
		return *override
	}
	return c.Solver
}

// SpinodalOptions returns the spinodal locator options, logging to l.
func (c Config) SpinodalOptions(l *slog.Logger) []stability.SpinodalOption {
	s := c.Spinodal
	return []stability.SpinodalOption{
		stability.WithEfac(s.Efac),
		stability.WithDMu(s.DMu),
		stability.WithLimits(s.VMin, s.VMax),
		stability.WithBudget(s.NTry, s.NMax),
		stability.WithStep(s.Step),
		stability.WithCloseness(s.RTol, s.ATol),
		stability.WithAcceptBracket(s.AcceptBracket),
		stability.WithSolver(c.solver(s.Solver)),
		stability.WithSpinodalLogger(l),
	}
}

// BinodalOptions returns the binodal locator options, logging to l.
func (c Config) BinodalOptions(l *slog.Logger) []stability.BinodalOption {
	return []stability.BinodalOption{
		stability.WithBinodalSolver(c.solver(c.Binodal.Solver)),
		stability.WithBinodalLogger(l),
	}
}

// MolfracOptions returns the molfrac locator options, logging to l.
func (c Config) MolfracOptions(l *slog.Logger) []stability.MolfracOption {
	m := c.Molfrac
	return []stability.MolfracOption{
		stability.WithMolfracStep(m.DMu, m.DFac),
		stability.WithMolfracTries(m.NTry),
		stability.WithMolfracTol(m.Tol),
		stability.WithMolfracSolver(c.solver(m.Solver)),
		stability.WithMolfracLogger(l),
	}
}
