// SPDX-License-Identifier: MIT

// Package synth builds synthetic lnΠ surfaces with known structure: Gaussian
// bumps for segmentation tests and piecewise-linear wells whose barriers move
// linearly under reweighting, which gives stability searches analytic roots.
package synth

import (
	"math"

	"github.com/katalvlaran/lnpi/grid"
)

// Bump is a Gaussian hill of the given Height and Width (standard deviation
// in cells) centred at Center.
type Bump struct {
	Center []float64
	Height float64
	Width  float64
}

// Bumps returns floor plus the sum of bumps evaluated on every cell of shape.
func Bumps(shape grid.Shape, floor float64, bumps ...Bump) []float64 {
	out := make([]float64, shape.Size())
	coord := make([]int, shape.NDim())
	for i := range out {
		shape.Coord(i, coord)
		v := floor
		for _, b := range bumps {
			d2 := 0.0
			for a, c := range coord {
				d := float64(c) - b.Center[a]
				d2 += d * d
			}
			v += b.Height * math.Exp(-0.5*d2/(b.Width*b.Width))
		}
		out[i] = v
	}

	return out
}

// BumpGrid wraps Bumps in a Grid at mu = 0 with default state. It panics on
// invalid input and is meant for tests and examples.
func BumpGrid(dims []int, floor float64, bumps ...Bump) *grid.Grid {
	shape := grid.MustShape(dims...)
	g, err := grid.New(shape, Bumps(shape, floor, bumps...), nil, make([]float64, len(dims)), grid.DefaultState())
	if err != nil {
		panic(err)
	}

	return g
}

// Tent is a 1-D piecewise-linear profile through the knots (N[k], V[k]),
// N strictly increasing and starting at 0; it is sampled at 0..N[last].
type Tent struct {
	N []int
	V []float64
}

// Values samples the tent on every integer in [0, N[last]].
func (t Tent) Values() []float64 {
	last := t.N[len(t.N)-1]
	out := make([]float64, last+1)
	k := 0
	for n := 0; n <= last; n++ {
		for k < len(t.N)-2 && n > t.N[k+1] {
			k++
		}
		n0, n1 := t.N[k], t.N[k+1]
		f := float64(n-n0) / float64(n1-n0)
		out[n] = t.V[k] + f*(t.V[k+1]-t.V[k])
	}

	return out
}

// Grid wraps the tent in a one-axis Grid at mu.
func (t Tent) Grid(mu float64) *grid.Grid {
	vals := t.Values()
	g, err := grid.New(grid.MustShape(len(vals)), vals, nil, []float64{mu}, grid.DefaultState())
	if err != nil {
		panic(err)
	}

	return g
}
