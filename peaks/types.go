// SPDX-License-Identifier: MIT

// Package peaks finds the local maxima of an lnΠ grid that seed candidate
// phase regions.
//
// The detector is adaptive: it walks a schedule of minimum separations,
// smallest first, and accepts the first radius whose marker count fits the
// bound. A marker is a connected group of accepted peak cells, so a flat
// plateau on top of a bump yields a single marker.
//
// Per radius r:
//
//  1. shift included values so their minimum is 0;
//  2. threshold t = max(ThresholdAbs, ThresholdRel·max(shifted));
//  3. candidates are included cells equal to the maximum over their
//     (2r+1)^d window (excluded cells never win) with shifted value > t;
//  4. candidates are visited strongest first and dropped when an accepted
//     peak lies at Chebyshev distance < r;
//  5. accepted cells are fused into markers by connectivity Conn.
//
// If the schedule is exhausted and Smooth is SmoothOnFail, the schedule is
// replayed on a padded, Gaussian-smoothed copy. Zero candidates degrade to
// the global maximum.
//
// Complexity: O(size·d·r) per radius for the separable window maximum plus
// O(P²·d) for the spacing pass over P candidates.
//
// Errors:
//
//   - ErrAllExcluded  (errkind.ErrInvalidInput) when no cell is included.
//   - ErrTooManyPeaks (errkind.ErrSearchExhausted), returned as
//     *TooManyPeaksError carrying the best count found.
package peaks

import (
	"fmt"
	"log/slog"

	"github.com/katalvlaran/lnpi/errkind"
	"github.com/katalvlaran/lnpi/grid"
	"github.com/katalvlaran/lnpi/internal/logging"
)

// Sentinel errors returned by Find.
var (
	// ErrAllExcluded indicates a grid with no included cell.
	ErrAllExcluded = fmt.Errorf("peaks: grid is fully excluded: %w", errkind.ErrInvalidInput)

	// ErrTooManyPeaks indicates that no radius (with or without smoothing)
	// brought the marker count within MaxPeaks.
	ErrTooManyPeaks = fmt.Errorf("peaks: too many maxima: %w", errkind.ErrSearchExhausted)

	// ErrBadRadius indicates an empty schedule or a radius < 1.
	ErrBadRadius = fmt.Errorf("peaks: min distances must be a non-empty list of radii >= 1: %w", errkind.ErrInvalidInput)

	// ErrBadMaxPeaks indicates a negative peak bound.
	ErrBadMaxPeaks = fmt.Errorf("peaks: max peaks must be >= 0: %w", errkind.ErrInvalidInput)
)

// TooManyPeaksError reports the best attempt of an unsatisfiable search.
type TooManyPeaksError struct {
	Count       int  // smallest marker count seen
	Max         int  // bound that could not be met
	MinDistance int  // radius that produced Count
	Smoothed    bool // whether Count came from the smoothed grid
}

// Error implements error.
func (e *TooManyPeaksError) Error() string {
	return fmt.Sprintf("peaks: %d maxima found greater than %d (min distance %d, smoothed %t)",
		e.Count, e.Max, e.MinDistance, e.Smoothed)
}

// Unwrap lets errors.Is match ErrTooManyPeaks and errkind.ErrSearchExhausted.
func (e *TooManyPeaksError) Unwrap() error { return ErrTooManyPeaks }

// SmoothMode selects when the Gaussian pre-pass runs.
type SmoothMode int

const (
	// SmoothOnFail smooths only after the raw schedule is exhausted.
	SmoothOnFail SmoothMode = iota
	// SmoothNever never smooths; an exhausted schedule fails immediately.
	SmoothNever
	// SmoothAlways runs the schedule on the smoothed grid only.
	SmoothAlways
)

// String implements fmt.Stringer.
func (m SmoothMode) String() string {
	switch m {
	case SmoothOnFail:
		return "fail"
	case SmoothNever:
		return "never"
	case SmoothAlways:
		return "always"
	default:
		return fmt.Sprintf("SmoothMode(%d)", int(m))
	}
}

// ParseSmoothMode maps "fail", "never" and "always" to a SmoothMode.
func ParseSmoothMode(s string) (SmoothMode, error) {
	switch s {
	case "", "fail":
		return SmoothOnFail, nil
	case "never":
		return SmoothNever, nil
	case "always":
		return SmoothAlways, nil
	}

	return 0, fmt.Errorf("peaks: unknown smooth mode %q: %w", s, errkind.ErrInvalidInput)
}

// Options configures Find.
type Options struct {
	MinDistances []int             // radius schedule, smallest first
	ThresholdAbs float64           // absolute floor on shifted values
	ThresholdRel float64           // fraction of the shifted maximum
	MaxPeaks     int               // marker bound; 0 = unbounded
	Smooth       SmoothMode        // smoothing pre-pass policy
	Sigma        float64           // Gaussian width in cells
	Truncate     float64           // kernel half-width in sigmas
	Conn         grid.Connectivity // marker fusion connectivity
	Logger       *slog.Logger
}

// Option configures Find.
type Option func(*Options)

// DefaultOptions returns the detector defaults:
//
//   - MinDistances: 1, 5, 10, 15, 20
//   - ThresholdAbs: 0.2, ThresholdRel: 0
//   - MaxPeaks: 0 (unbounded)
//   - Smooth: SmoothOnFail with Sigma 4, Truncate 4
//   - Conn: grid.ConnFull
//   - Logger: discards everything
func DefaultOptions() Options {
	return Options{
		MinDistances: []int{1, 5, 10, 15, 20},
		ThresholdAbs: 0.2,
		ThresholdRel: 0,
		Smooth:       SmoothOnFail,
		Sigma:        4,
		Truncate:     4,
		Conn:         grid.ConnFull,
		Logger:       logging.Discard(),
	}
}

// WithMinDistances sets the radius schedule. Panics on an empty schedule or
// a radius < 1.
func WithMinDistances(radii ...int) Option {
	if len(radii) == 0 {
		panic(ErrBadRadius.Error())
	}
	for _, r := range radii {
		if r < 1 {
			panic(ErrBadRadius.Error())
		}
	}
	cp := append([]int(nil), radii...)

	return func(o *Options) { o.MinDistances = cp }
}

// WithThresholds sets the absolute and relative magnitude thresholds.
func WithThresholds(abs, rel float64) Option {
	return func(o *Options) {
		o.ThresholdAbs = abs
		o.ThresholdRel = rel
	}
}

// WithMaxPeaks bounds the number of markers; 0 disables the bound.
// Panics on negative values.
func WithMaxPeaks(n int) Option {
	if n < 0 {
		panic(ErrBadMaxPeaks.Error())
	}

	return func(o *Options) { o.MaxPeaks = n }
}

// WithSmooth sets the smoothing policy.
func WithSmooth(mode SmoothMode) Option {
	return func(o *Options) { o.Smooth = mode }
}

// WithSigma sets the Gaussian width and truncation. Panics unless both > 0.
func WithSigma(sigma, truncate float64) Option {
	if !(sigma > 0) || !(truncate > 0) {
		panic(grid.ErrBadSigma.Error())
	}

	return func(o *Options) {
		o.Sigma = sigma
		o.Truncate = truncate
	}
}

// WithConnectivity sets the connectivity used to fuse adjacent peak cells.
func WithConnectivity(c grid.Connectivity) Option {
	return func(o *Options) { o.Conn = c }
}

// WithLogger routes debug output to l; nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// Result is the outcome of a successful search.
type Result struct {
	// Peaks holds one representative cell per marker (its strongest cell),
	// ordered strongest marker first.
	Peaks []int
	// Markers holds the cells of each marker, aligned with Peaks.
	Markers [][]int
	// MinDistance is the radius that satisfied the bound.
	MinDistance int
	// Smoothed reports whether the markers came from the smoothed grid.
	Smoothed bool
	// Fallback reports that no cell passed the threshold and the global
	// maximum was used as the only peak.
	Fallback bool
}

// Count returns the number of markers.
func (r Result) Count() int { return len(r.Peaks) }
