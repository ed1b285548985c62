// SPDX-License-Identifier: MIT

package grid

import (
	"fmt"

	"github.com/katalvlaran/lnpi/errkind"
)

// Sentinel errors for grid construction and transforms.
var (
	// ErrEmptyShape indicates a shape with no axes.
	ErrEmptyShape = fmt.Errorf("grid: shape must have at least one axis: %w", errkind.ErrInvalidInput)
	// ErrBadShape indicates a non-positive axis length.
	ErrBadShape = fmt.Errorf("grid: axis lengths must be positive: %w", errkind.ErrInvalidInput)
	// ErrShapeMismatch indicates values/mask lengths that disagree with the shape.
	ErrShapeMismatch = fmt.Errorf("grid: values and mask must match shape: %w", errkind.ErrInvalidInput)
	// ErrMuLength indicates a chemical-potential vector whose length is not NDim.
	ErrMuLength = fmt.Errorf("grid: mu length must equal number of axes: %w", errkind.ErrInvalidInput)
	// ErrBadState indicates a non-positive volume or inverse temperature.
	ErrBadState = fmt.Errorf("grid: volume and beta must be positive: %w", errkind.ErrInvalidInput)
	// ErrNonFinite indicates NaN or ±Inf at an included cell.
	ErrNonFinite = fmt.Errorf("grid: included values must be finite: %w", errkind.ErrInvalidInput)
	// ErrBadSigma indicates a non-positive smoothing width or truncation.
	ErrBadSigma = fmt.Errorf("grid: sigma and truncate must be positive: %w", errkind.ErrInvalidInput)
	// ErrBadTable indicates a malformed lnPi table.
	ErrBadTable = fmt.Errorf("grid: malformed table: %w", errkind.ErrInvalidInput)
)

// Connectivity selects which cells count as neighbours: a neighbour differs
// from the centre by ±1 along at most Connectivity axes. ConnFull (the zero
// value) means every axis may change, the default for segmentation.
type Connectivity int

const (
	// ConnFull allows all axes to change: 8 neighbours in 2-D, 26 in 3-D.
	ConnFull Connectivity = 0
	// ConnFace allows a single axis to change: 4 neighbours in 2-D, 6 in 3-D.
	ConnFace Connectivity = 1
)

// Rank resolves c against ndim axes. Values ≤ 0 or > ndim mean ndim.
func (c Connectivity) Rank(ndim int) int {
	if c <= 0 || int(c) > ndim {
		return ndim
	}

	return int(c)
}

// State carries the thermodynamic state parameters of a grid.
type State struct {
	// Volume of the simulation box; densities are Nave/Volume.
	Volume float64 `yaml:"volume" json:"volume"`
	// Beta is the inverse temperature 1/(kT); Ω = βΩ/β.
	Beta float64 `yaml:"beta" json:"beta"`
	// Extra holds any further state variables carried through untouched.
	Extra map[string]float64 `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// DefaultState returns Volume=1, Beta=1.
func DefaultState() State {
	return State{Volume: 1, Beta: 1}
}

func (s State) validate() error {
	if !(s.Volume > 0) || !(s.Beta > 0) {
		return fmt.Errorf("%w: volume=%g beta=%g", ErrBadState, s.Volume, s.Beta)
	}

	return nil
}

func (s State) clone() State {
	out := State{Volume: s.Volume, Beta: s.Beta}
	if len(s.Extra) > 0 {
		out.Extra = make(map[string]float64, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = v
		}
	}

	return out
}

// MaskConvention names the boolean sense of a mask at a module boundary.
// Conversions happen once at ingress/egress; internally the grid stores an
// exclusion mask and regions store inclusion masks.
type MaskConvention int

const (
	// Excluded masks are true where a cell is left out ("masked" sense).
	Excluded MaskConvention = iota
	// Included masks are true where a cell belongs ("image" sense).
	Included
)

// String implements fmt.Stringer.
func (c MaskConvention) String() string {
	switch c {
	case Excluded:
		return "excluded"
	case Included:
		return "included"
	default:
		return fmt.Sprintf("MaskConvention(%d)", int(c))
	}
}

// Convert returns a copy of mask expressed in convention to.
func Convert(mask []bool, from, to MaskConvention) []bool {
	out := make([]bool, len(mask))
	flip := from != to
	for i, m := range mask {
		out[i] = m != flip
	}

	return out
}
