// SPDX-License-Identifier: MIT

// Package watershed grows labelled basins from peak markers over an lnΠ
// grid by priority flood-fill.
//
// Elevation is the negated grid value, so basins grow downhill in free
// energy (uphill in probability). Each marker k seeds region k+1. At every
// step the frontier entry with the lowest elevation is settled; ties go to
// the lower region id, then to the older entry. Excluded cells are never
// labelled.
//
// A single marker short-circuits to the whole included area. Included
// islands that no marker can reach get fresh ids after the flood, in order
// of their lowest cell, so the result always covers every included cell.
//
// Complexity:
//
//	– Time:  O(size·k·log(size·k)), k = neighbourhood size (lazy heap entries).
//	– Space: O(size·k) worst case for the heap.
//
// Errors (sentinel, all errkind.ErrInvalidInput):
//
//	– ErrNoMarkers       no marker given.
//	– ErrMarkerRange     a marker cell outside the grid.
//	– ErrMarkerExcluded  a marker cell on an excluded cell.
//	– ErrMarkerOverlap   a cell in two markers.
package watershed

import (
	"fmt"

	"github.com/katalvlaran/lnpi/errkind"
	"github.com/katalvlaran/lnpi/grid"
)

// Sentinel errors returned by Partition.
var (
	// ErrNoMarkers indicates an empty marker list or an empty marker.
	ErrNoMarkers = fmt.Errorf("watershed: at least one non-empty marker required: %w", errkind.ErrInvalidInput)
	// ErrMarkerRange indicates a marker cell index outside the grid.
	ErrMarkerRange = fmt.Errorf("watershed: marker cell out of range: %w", errkind.ErrInvalidInput)
	// ErrMarkerExcluded indicates a marker placed on an excluded cell.
	ErrMarkerExcluded = fmt.Errorf("watershed: marker on excluded cell: %w", errkind.ErrInvalidInput)
	// ErrMarkerOverlap indicates a cell shared by two markers.
	ErrMarkerOverlap = fmt.Errorf("watershed: markers overlap: %w", errkind.ErrInvalidInput)
)

// Options configures Partition.
type Options struct {
	// Conn is the flood connectivity; ConnFull by default.
	Conn grid.Connectivity
}

// Option configures Partition.
type Option func(*Options)

// DefaultOptions returns Conn = grid.ConnFull.
func DefaultOptions() Options {
	return Options{Conn: grid.ConnFull}
}

// WithConnectivity sets the flood connectivity.
func WithConnectivity(c grid.Connectivity) Option {
	return func(o *Options) { o.Conn = c }
}
