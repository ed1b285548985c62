// SPDX-License-Identifier: MIT

package phase

import (
	"fmt"
	"log/slog"

	"github.com/katalvlaran/lnpi/errkind"
	"github.com/katalvlaran/lnpi/grid"
	"github.com/katalvlaran/lnpi/internal/logging"
	"github.com/katalvlaran/lnpi/peaks"
)

// Sentinel errors.
var (
	// ErrPhaseAbsent indicates that the requested phase id is not present in
	// a collection. Locators treat it as a search signal.
	ErrPhaseAbsent = fmt.Errorf("phase: phase not present: %w", errkind.ErrNullResult)

	// ErrBadNMax indicates a target phase count < 1.
	ErrBadNMax = fmt.Errorf("phase: nmax must be >= 1: %w", errkind.ErrInvalidInput)

	// ErrDuplicateID indicates colliding tags while identity merging is off.
	ErrDuplicateID = fmt.Errorf("phase: duplicate phase id: %w", errkind.ErrInvalidInput)

	// ErrBadTags indicates a tagger returning the wrong count or negative ids.
	ErrBadTags = fmt.Errorf("phase: tagger must return one id >= 0 per phase: %w", errkind.ErrInvalidInput)

	// ErrMismatch indicates restore inputs that disagree with each other.
	ErrMismatch = fmt.Errorf("phase: inconsistent collection data: %w", errkind.ErrInvalidInput)

	// ErrBadComponent indicates a component index outside the grid axes.
	ErrBadComponent = fmt.Errorf("phase: component out of range: %w", errkind.ErrInvalidInput)

	// ErrBadTolerance indicates a negative series tolerance.
	ErrBadTolerance = fmt.Errorf("phase: tolerance must be >= 0: %w", errkind.ErrInvalidInput)
)

// Options configures a Builder.
type Options struct {
	// NMax is the target number of phases.
	NMax int
	// NMaxPeak bounds the peak search; 0 means 2·NMax.
	NMaxPeak int
	// Efac is the energy cutoff of the region merger.
	Efac float64
	// Force merges past Efac until NMax regions remain.
	Force bool
	// Conn is the connectivity of partitioning and barriers.
	Conn grid.Connectivity
	// Peaks are extra options for the peak detector.
	Peaks []peaks.Option
	// Tagger assigns phase ids; nil means TagByOrder.
	Tagger Tagger
	// MergeIDs unions phases that receive the same id.
	MergeIDs bool
	// Cache, when set, memoizes builds.
	Cache *Cache
	// Logger receives build diagnostics.
	Logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Options)

// DefaultOptions returns NMax 2, Efac 1, Force true, full connectivity,
// identity merging on, no cache and a discarding logger.
func DefaultOptions() Options {
	return Options{
		NMax:     2,
		Efac:     1,
		Force:    true,
		Conn:     grid.ConnFull,
		MergeIDs: true,
		Logger:   logging.Discard(),
	}
}

// WithNMax sets the target phase count. Panics when n < 1.
func WithNMax(n int) Option {
	if n < 1 {
		panic(ErrBadNMax.Error())
	}

	return func(o *Options) { o.NMax = n }
}

// WithNMaxPeak bounds the peak search; 0 restores the 2·NMax default.
// Panics when n < 0.
func WithNMaxPeak(n int) Option {
	if n < 0 {
		panic(peaks.ErrBadMaxPeaks.Error())
	}

	return func(o *Options) { o.NMaxPeak = n }
}

// WithEfac sets the merge cutoff.
func WithEfac(efac float64) Option {
	return func(o *Options) { o.Efac = efac }
}

// WithForce toggles forced merging down to NMax.
func WithForce(force bool) Option {
	return func(o *Options) { o.Force = force }
}

// WithConnectivity sets the partition connectivity.
func WithConnectivity(c grid.Connectivity) Option {
	return func(o *Options) { o.Conn = c }
}

// WithPeakOptions appends peak detector options.
func WithPeakOptions(opts ...peaks.Option) Option {
	return func(o *Options) { o.Peaks = append(o.Peaks, opts...) }
}

// WithTagger sets the phase identity tagger.
func WithTagger(t Tagger) Option {
	return func(o *Options) { o.Tagger = t }
}

// WithMergeIDs toggles the identity merge pass.
func WithMergeIDs(merge bool) Option {
	return func(o *Options) { o.MergeIDs = merge }
}

// WithCache memoizes builds in c.
func WithCache(c *Cache) Option {
	return func(o *Options) { o.Cache = c }
}

// WithLogger routes build diagnostics to l; nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}
