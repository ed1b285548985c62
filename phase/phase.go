// SPDX-License-Identifier: MIT

package phase

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/lnpi/grid"
)

// Phase is one region of a Collection.
type Phase struct {
	id    int
	index int
	peak  int
	cells []int // ascending flat indices
	c     *Collection

	once  sync.Once
	stats stats
}

// stats are the lazily computed observables of a phase.
type stats struct {
	lnSum    float64
	nave     []float64
	nvar     []float64
	localMax float64
	argMax   int
}

// ID returns the phase id.
func (p *Phase) ID() int { return p.id }

// Index returns the position of p in its collection.
func (p *Phase) Index() int { return p.index }

// Peak returns the flat index of the cell that seeded the phase.
func (p *Phase) Peak() int { return p.peak }

// Size returns the number of cells in the phase.
func (p *Phase) Size() int { return len(p.cells) }

// Cells returns a copy of the phase's flat indices, ascending.
func (p *Phase) Cells() []int { return append([]int(nil), p.cells...) }

// Mask returns the phase as a mask in convention conv.
func (p *Phase) Mask(conv grid.MaskConvention) []bool {
	in := make([]bool, p.c.grid.Size())
	for _, i := range p.cells {
		in[i] = true
	}

	return grid.Convert(in, grid.Included, conv)
}

func (p *Phase) compute() {
	p.once.Do(func() {
		g := p.c.grid
		nd := g.NDim()
		vals := make([]float64, len(p.cells))
		st := stats{
			localMax: math.Inf(-1),
			argMax:   -1,
			nave:     make([]float64, nd),
			nvar:     make([]float64, nd),
		}
		for k, i := range p.cells {
			v := g.Value(i)
			vals[k] = v
			if v > st.localMax {
				st.localMax, st.argMax = v, i
			}
		}
		st.lnSum = floats.LogSumExp(vals)

		// 1) Normalized probability of every cell
		prob := make([]float64, len(vals))
		for k, v := range vals {
			prob[k] = math.Exp(v - st.lnSum)
		}

		// 2) First and second moments per axis
		coord := make([]int, nd)
		counts := make([][]float64, nd)
		for a := range counts {
			counts[a] = make([]float64, len(p.cells))
		}
		for k, i := range p.cells {
			g.Shape().Coord(i, coord)
			for a, n := range coord {
				counts[a][k] = float64(n)
			}
		}
		for a := 0; a < nd; a++ {
			st.nave[a] = floats.Dot(prob, counts[a])
			floats.AddConst(-st.nave[a], counts[a])
			floats.Mul(counts[a], counts[a])
			st.nvar[a] = floats.Dot(prob, counts[a])
		}
		p.stats = st
	})
}

// LnPiSum returns ln Σ Π over the phase.
func (p *Phase) LnPiSum() float64 {
	p.compute()
	return p.stats.lnSum
}

// Nave returns the expected particle count of every component.
func (p *Phase) Nave() []float64 {
	p.compute()
	return append([]float64(nil), p.stats.nave...)
}

// Nvar returns the particle count variance of every component.
func (p *Phase) Nvar() []float64 {
	p.compute()
	return append([]float64(nil), p.stats.nvar...)
}

// MolFrac returns Nave normalized to sum 1. All zeros when Nave sums to 0.
func (p *Phase) MolFrac() []float64 {
	out := p.Nave()
	if s := floats.Sum(out); s != 0 {
		floats.Scale(1/s, out)
	}

	return out
}

// Density returns Nave / volume.
func (p *Phase) Density() []float64 {
	out := p.Nave()
	floats.Scale(1/p.c.grid.State().Volume, out)

	return out
}

// BetaOmega returns βΩ = lnΠ(0) − ln Σ Π over the phase. lnΠ(0) is the
// value of the origin cell whether or not that cell is excluded.
func (p *Phase) BetaOmega() float64 {
	return p.c.grid.Value(0) - p.LnPiSum()
}

// GrandPotential returns Ω = βΩ / β.
func (p *Phase) GrandPotential() float64 {
	return p.BetaOmega() / p.c.grid.State().Beta
}

// LocalMax returns the largest lnΠ in the phase.
func (p *Phase) LocalMax() float64 {
	p.compute()
	return p.stats.localMax
}

// LocalArgMax returns the flat index of LocalMax, lowest index on ties.
func (p *Phase) LocalArgMax() int {
	p.compute()
	return p.stats.argMax
}

// EdgeDistance returns the distance from the phase maximum to the nearest
// excluded cell or the upper end of the sampled window. Small values mean
// the reweighted phase is leaning on the edge of the data.
func (p *Phase) EdgeDistance() int {
	return p.c.edgeDistances()[p.LocalArgMax()]
}
