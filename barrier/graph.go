// SPDX-License-Identifier: MIT

package barrier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lnpi/grid"
	"github.com/katalvlaran/lnpi/region"
)

// Graph is the barrier graph of one partition. It is immutable.
type Graph struct {
	n         int
	energy    *mat.SymDense // +Inf where not connected
	connected []bool        // n×n, row-major
	saddle    []int         // n×n, -1 where not connected
	regionMin []float64
	argMax    []int
}

// New builds the barrier graph of labels over g's values using conn.
func New(labels *region.Labels, g *grid.Grid, conn grid.Connectivity) (*Graph, error) {
	if !labels.Shape().Equal(g.Shape()) {
		return nil, fmt.Errorf("%w: %v vs %v", ErrShapeMismatch, labels.Shape(), g.Shape())
	}
	n := labels.Count()
	if n == 0 {
		return nil, ErrNoRegions
	}

	gr := &Graph{
		n:         n,
		energy:    mat.NewSymDense(n, nil),
		connected: make([]bool, n*n),
		saddle:    make([]int, n*n),
		regionMin: make([]float64, n),
		argMax:    make([]int, n),
	}
	// running maxima; converted to energies at the end
	best := make([]float64, n*n)
	for k := range best {
		best[k] = math.Inf(-1)
		gr.saddle[k] = -1
	}
	rmax := make([]float64, n)
	for k := range rmax {
		rmax[k] = math.Inf(-1)
		gr.argMax[k] = -1
	}

	update := func(a, b, cell int, v float64) {
		if a > b {
			a, b = b, a
		}
		k := a*n + b
		if v > best[k] {
			best[k] = v
			gr.saddle[k] = cell
		}
	}

	nb := g.Shape().Neighborhood(conn)
	coord := make([]int, g.NDim())
	seen := make([]int, 0, nb.Len())
	for c := 0; c < g.Size(); c++ {
		own := labels.At(c)
		if own == 0 || g.IsExcluded(c) {
			continue
		}
		v := g.Value(c)
		r := own - 1
		if v > rmax[r] {
			rmax[r], gr.argMax[r] = v, c
		}

		// 1) distinct foreign labels touching c
		seen = seen[:0]
		nb.Each(c, coord, func(u int) {
			l := labels.At(u)
			if l == 0 || l == own {
				return
			}
			for _, s := range seen {
				if s == l {
					return
				}
			}
			seen = append(seen, l)
		})

		// 2) c is on the shared boundary of (own, l) for each foreign l,
		//    and of every foreign pair it touches at once
		for x, a := range seen {
			update(r, a-1, c, v)
			for _, b := range seen[x+1:] {
				update(a-1, b-1, c, v)
			}
		}
	}

	for i := 0; i < n; i++ {
		gr.regionMin[i] = -rmax[i]
		for j := i; j < n; j++ {
			e := math.Inf(1)
			if i != j && gr.saddle[i*n+j] >= 0 {
				e = -best[i*n+j]
				gr.connected[i*n+j], gr.connected[j*n+i] = true, true
				gr.saddle[j*n+i] = gr.saddle[i*n+j]
			}
			gr.energy.SetSym(i, j, e)
		}
	}

	return gr, nil
}

// Count returns the number of regions.
func (gr *Graph) Count() int { return gr.n }

// Connected reports whether regions i and j share a boundary.
func (gr *Graph) Connected(i, j int) bool { return gr.connected[i*gr.n+j] }

// Energy returns the barrier energy −max(lnΠ on the shared boundary);
// ok is false (and the energy +Inf) when the regions are not connected.
func (gr *Graph) Energy(i, j int) (float64, bool) {
	if !gr.Connected(i, j) {
		return math.Inf(1), false
	}

	return gr.energy.At(i, j), true
}

// Saddle returns the flat index of the highest shared-boundary cell.
func (gr *Graph) Saddle(i, j int) (int, bool) {
	s := gr.saddle[i*gr.n+j]

	return s, gr.Connected(i, j)
}

// RegionMin returns −max(lnΠ over region i).
func (gr *Graph) RegionMin(i int) float64 { return gr.regionMin[i] }

// RegionMins returns a copy of all region minima.
func (gr *Graph) RegionMins() []float64 { return append([]float64(nil), gr.regionMin...) }

// ArgMax returns the flat index of region i's maximum (lowest index on ties).
func (gr *Graph) ArgMax(i int) int { return gr.argMax[i] }

// ArgMaxes returns a copy of every region's arg-max.
func (gr *Graph) ArgMaxes() []int { return append([]int(nil), gr.argMax...) }

// Delta returns Energy(i, j) − RegionMin(i); +Inf, false when not connected.
func (gr *Graph) Delta(i, j int) (float64, bool) {
	e, ok := gr.Energy(i, j)
	if !ok {
		return e, false
	}

	return e - gr.regionMin[i], true
}

// EnergyMatrix returns a copy of the barrier energies (+Inf where absent,
// including the diagonal).
func (gr *Graph) EnergyMatrix() *mat.SymDense {
	out := mat.NewSymDense(gr.n, nil)
	out.CopySym(gr.energy)

	return out
}

// DeltaMatrix returns Delta for every ordered pair: NaN on the diagonal,
// +Inf for unconnected pairs.
func (gr *Graph) DeltaMatrix() *mat.Dense {
	out := mat.NewDense(gr.n, gr.n, nil)
	for i := 0; i < gr.n; i++ {
		for j := 0; j < gr.n; j++ {
			if i == j {
				out.Set(i, j, math.NaN())
				continue
			}
			d, _ := gr.Delta(i, j)
			out.Set(i, j, d)
		}
	}

	return out
}
