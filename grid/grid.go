// SPDX-License-Identifier: MIT

package grid

import (
	"fmt"
	"math"
)

// Grid is an immutable lnΠ surface at chemical potential mu.
//
// Every Grid remembers the grid it was reweighted from (Origin) and the
// accumulated potential shift (DeltaMu). Reweight keeps the origin; every
// other transform starts a new lineage.
type Grid struct {
	shape    Shape
	values   []float64
	excluded []bool
	mu       []float64
	state    State
	origin   *Grid
	dmu      []float64
}

// New builds a Grid from flat row-major values.
//
// excluded may be nil (nothing excluded). values and excluded are copied.
// Included values must be finite.
func New(shape Shape, values []float64, excluded []bool, mu []float64, state State) (*Grid, error) {
	// 1) Validate shapes
	if shape.size == 0 {
		return nil, ErrEmptyShape
	}
	if len(values) != shape.size {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(values), shape)
	}
	if excluded != nil && len(excluded) != shape.size {
		return nil, fmt.Errorf("%w: %d mask cells for shape %v", ErrShapeMismatch, len(excluded), shape)
	}
	if len(mu) != shape.NDim() {
		return nil, fmt.Errorf("%w: got %d want %d", ErrMuLength, len(mu), shape.NDim())
	}
	if err := state.validate(); err != nil {
		return nil, err
	}

	// 2) Copy and check finiteness of included cells
	g := &Grid{
		shape:    shape,
		values:   append([]float64(nil), values...),
		excluded: make([]bool, shape.size),
		mu:       append([]float64(nil), mu...),
		state:    state.clone(),
		dmu:      make([]float64, len(mu)),
	}
	if excluded != nil {
		copy(g.excluded, excluded)
	}
	for i, v := range g.values {
		if !g.excluded[i] && (math.IsNaN(v) || math.IsInf(v, 0)) {
			return nil, fmt.Errorf("%w: cell %v = %g", ErrNonFinite, shape.Coord(i, nil), v)
		}
	}
	g.origin = g

	return g, nil
}

// From2D builds a two-axis Grid from rows; NaN entries become excluded.
func From2D(rows [][]float64, mu []float64, state State) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyShape
	}
	shape, err := NewShape(len(rows), len(rows[0]))
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, shape.size)
	excluded := make([]bool, 0, shape.size)
	for r, row := range rows {
		if len(row) != len(rows[0]) {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShapeMismatch, r, len(row), len(rows[0]))
		}
		for _, v := range row {
			values = append(values, v)
			excluded = append(excluded, math.IsNaN(v))
		}
	}

	return New(shape, values, excluded, mu, state)
}

// derive returns a shallow sibling sharing nothing mutable with g.
func (g *Grid) derive(values []float64, excluded []bool) *Grid {
	out := &Grid{
		shape:    g.shape,
		values:   values,
		excluded: excluded,
		mu:       append([]float64(nil), g.mu...),
		state:    g.state.clone(),
		dmu:      make([]float64, len(g.mu)),
	}
	out.origin = out

	return out
}

// Shape returns the grid shape.
func (g *Grid) Shape() Shape { return g.shape }

// NDim returns the number of species axes.
func (g *Grid) NDim() int { return g.shape.NDim() }

// Size returns the number of cells.
func (g *Grid) Size() int { return g.shape.size }

// Value returns lnΠ at flat index i (meaningless when excluded).
func (g *Grid) Value(i int) float64 { return g.values[i] }

// IsExcluded reports whether flat index i is excluded.
func (g *Grid) IsExcluded(i int) bool { return g.excluded[i] }

// Values returns a copy of all values.
func (g *Grid) Values() []float64 { return append([]float64(nil), g.values...) }

// Excluded returns a copy of the exclusion mask.
func (g *Grid) Excluded() []bool { return append([]bool(nil), g.excluded...) }

// Mask returns a copy of the exclusion mask in convention c.
func (g *Grid) Mask(c MaskConvention) []bool { return Convert(g.excluded, Excluded, c) }

// Mu returns a copy of the chemical-potential vector.
func (g *Grid) Mu() []float64 { return append([]float64(nil), g.mu...) }

// State returns a copy of the state parameters.
func (g *Grid) State() State { return g.state.clone() }

// Origin returns the grid this one was reweighted from (itself when built
// directly). Two grids with the same Origin differ only by a mu shift.
func (g *Grid) Origin() *Grid { return g.origin }

// DeltaMu returns Mu() − Origin().Mu().
func (g *Grid) DeltaMu() []float64 { return append([]float64(nil), g.dmu...) }

// NumIncluded counts cells that are not excluded.
func (g *Grid) NumIncluded() int {
	n := 0
	for _, e := range g.excluded {
		if !e {
			n++
		}
	}

	return n
}

// Max returns the largest included value and its flat index; ok is false
// when every cell is excluded. Ties resolve to the lowest index.
func (g *Grid) Max() (idx int, v float64, ok bool) {
	idx, v = -1, math.Inf(-1)
	for i, x := range g.values {
		if g.excluded[i] {
			continue
		}
		if idx < 0 || x > v {
			idx, v = i, x
		}
	}

	return idx, v, idx >= 0
}

// Min returns the smallest included value; ok is false when all excluded.
func (g *Grid) Min() (v float64, ok bool) {
	v = math.Inf(1)
	for i, x := range g.values {
		if !g.excluded[i] && x < v {
			v, ok = x, true
		}
	}

	return v, ok
}

// Reweight returns the grid at chemical potential mu:
//
//	lnΠ(n; mu) = lnΠ(n; mu_g) + Σ_k n_k·(mu_k − mu_g,k)
//
// The exclusion mask is unchanged; no renormalisation is applied.
// Reweight(mu).Reweight(g.Mu()) reproduces g up to rounding.
func (g *Grid) Reweight(mu []float64) (*Grid, error) {
	if len(mu) != g.NDim() {
		return nil, fmt.Errorf("%w: got %d want %d", ErrMuLength, len(mu), g.NDim())
	}
	shift := make([]float64, len(mu))
	for k := range mu {
		if math.IsNaN(mu[k]) || math.IsInf(mu[k], 0) {
			return nil, fmt.Errorf("%w: mu[%d] = %g", ErrNonFinite, k, mu[k])
		}
		shift[k] = mu[k] - g.mu[k]
	}

	out := &Grid{
		shape:    g.shape,
		values:   make([]float64, g.shape.size),
		excluded: append([]bool(nil), g.excluded...),
		mu:       append([]float64(nil), mu...),
		state:    g.state.clone(),
		origin:   g.origin,
		dmu:      make([]float64, len(mu)),
	}
	for k := range mu {
		out.dmu[k] = mu[k] - g.origin.mu[k]
	}

	coord := make([]int, g.NDim())
	for i, v := range g.values {
		g.shape.Coord(i, coord)
		s := 0.0
		for k, c := range coord {
			s += float64(c) * shift[k]
		}
		out.values[i] = v + s
	}

	return out, nil
}

// ZeroMax returns a copy shifted so the largest included value is 0.
func (g *Grid) ZeroMax() *Grid {
	values := append([]float64(nil), g.values...)
	if _, vmax, ok := g.Max(); ok {
		for i := range values {
			values[i] -= vmax
		}
	}

	return g.derive(values, append([]bool(nil), g.excluded...))
}

// WithExcluded returns a copy whose exclusion mask is g's OR'ed with mask
// (true = additionally excluded).
func (g *Grid) WithExcluded(mask []bool) (*Grid, error) {
	if len(mask) != g.shape.size {
		return nil, fmt.Errorf("%w: %d mask cells for shape %v", ErrShapeMismatch, len(mask), g.shape)
	}
	excluded := make([]bool, g.shape.size)
	for i := range excluded {
		excluded[i] = g.excluded[i] || mask[i]
	}

	return g.derive(append([]float64(nil), g.values...), excluded), nil
}
