// SPDX-License-Identifier: MIT

// Package barrier computes free-energy barriers between the regions of a
// label partition and contracts the partition greedily.
//
// Region indices in this package are 0-based: region i is label id i+1 of
// the region.Labels the graph was built from.
//
// Barrier Graph:
//
//   - A cell is on the thick boundary of region i when it belongs to i and
//     touches a cell outside i, or lies outside i and touches a cell of i
//     (same connectivity as the partition).
//   - Regions i and j are connected when the thick boundaries of i and j
//     share an included cell. The barrier energy is −max(lnΠ) over those
//     shared cells and the arg-max cell is the saddle.
//   - RegionMin(i) = −max(lnΠ over region i).
//   - Delta(i, j) = Energy(i, j) − RegionMin(i), the height of the barrier
//     seen from region i. Absent barriers are +Inf with ok == false, never a
//     finite stand-in that could collide with a real value.
//
// Region Merger (Merge):
//
//	while more than one region remains:
//	    (i, j) ← argmin Delta over ordered pairs i ≠ j, ties to the lowest (i, j)
//	    if Delta(i, j) > Efac and !(Force && count > NMax): stop
//	    keep, kill ← min(i, j), max(i, j)
//	    energy[keep][k] ← min(energy[keep][k], energy[kill][k]) for all k
//	    regionMin[keep] ← min(regionMin[keep], regionMin[kill])
//	    drop row/column kill and its peak
//
// Every step removes exactly one region, so at most count−1 merges run.
//
// Complexity: New is O(size·k + size·k²) for k neighbours per cell; Merge is
// O(m·n²) for m merges over n regions.
package barrier

import (
	"fmt"
	"log/slog"

	"github.com/katalvlaran/lnpi/errkind"
	"github.com/katalvlaran/lnpi/internal/logging"
)

// Sentinel errors.
var (
	// ErrShapeMismatch indicates labels and grid of different shapes.
	ErrShapeMismatch = fmt.Errorf("barrier: labels and grid shapes differ: %w", errkind.ErrInvalidInput)
	// ErrNoRegions indicates a partition without regions.
	ErrNoRegions = fmt.Errorf("barrier: partition has no regions: %w", errkind.ErrInvalidInput)
	// ErrPeaksLength indicates a peak list that does not match the region count.
	ErrPeaksLength = fmt.Errorf("barrier: one peak per region required: %w", errkind.ErrInvalidInput)
	// ErrBadNMax indicates a negative merge target.
	ErrBadNMax = fmt.Errorf("barrier: nmax must be >= 0: %w", errkind.ErrInvalidInput)
)

// MergeOptions configures Merge.
type MergeOptions struct {
	// Efac is the merge cutoff: pairs with Delta ≤ Efac merge.
	Efac float64
	// Force keeps merging past Efac while more than NMax regions remain.
	Force bool
	// NMax is the target region count; 0 means no target.
	NMax int
	// Logger receives one debug record per merge.
	Logger *slog.Logger
}

// MergeOption configures Merge.
type MergeOption func(*MergeOptions)

// DefaultMergeOptions returns Efac = 1, Force = true, NMax = 0 and a
// discarding logger.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		Efac:   1,
		Force:  true,
		Logger: logging.Discard(),
	}
}

// WithEfac sets the merge cutoff.
func WithEfac(efac float64) MergeOption {
	return func(o *MergeOptions) { o.Efac = efac }
}

// WithForce toggles forced merging down to NMax.
func WithForce(force bool) MergeOption {
	return func(o *MergeOptions) { o.Force = force }
}

// WithNMax sets the target region count. Panics on negative values.
func WithNMax(n int) MergeOption {
	if n < 0 {
		panic(ErrBadNMax.Error())
	}

	return func(o *MergeOptions) { o.NMax = n }
}

// WithLogger routes merge records to l; nil keeps the discard logger.
func WithLogger(l *slog.Logger) MergeOption {
	return func(o *MergeOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}
