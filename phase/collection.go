// SPDX-License-Identifier: MIT

package phase

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/katalvlaran/lnpi/barrier"
	"github.com/katalvlaran/lnpi/grid"
	"github.com/katalvlaran/lnpi/region"
)

// Collection is the set of phases built at one chemical potential.
//
// Phases are sorted by id; phase k owns label k+1 of Labels and region k of
// Graph.
type Collection struct {
	grid   *grid.Grid
	labels *region.Labels
	graph  *barrier.Graph
	phases []*Phase
	byID   map[int]int

	edgeOnce sync.Once
	edge     []int
}

// FromLabels binds a partition of g to phase ids. ids[k] and peaks[k]
// belong to label k+1; peaks may be nil (each region's maximum is used).
// It is the inverse of (*Collection).Labels/IDs/Peaks and is how stored
// collections are restored.
func FromLabels(g *grid.Grid, labels *region.Labels, ids, peaks []int, conn grid.Connectivity) (*Collection, error) {
	if !labels.Shape().Equal(g.Shape()) {
		return nil, fmt.Errorf("%w: labels %v, grid %v", ErrMismatch, labels.Shape(), g.Shape())
	}
	if err := labels.Validate(g.Excluded()); err != nil {
		return nil, err
	}
	if len(ids) != labels.Count() {
		return nil, fmt.Errorf("%w: %d ids for %d regions", ErrMismatch, len(ids), labels.Count())
	}
	if peaks != nil && len(peaks) != labels.Count() {
		return nil, fmt.Errorf("%w: %d peaks for %d regions", ErrMismatch, len(peaks), labels.Count())
	}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if id < 0 {
			return nil, fmt.Errorf("%w: id %d", ErrBadTags, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
		seen[id] = true
	}

	// 1) Sort regions by id and renumber the partition to match
	order := make([]int, len(ids))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool { return ids[order[a]] < ids[order[b]] })
	groups := make([][]int, len(order))
	for k, r := range order {
		groups[k] = []int{r + 1}
	}
	sorted, err := labels.Regroup(groups)
	if err != nil {
		return nil, err
	}

	// 2) Barrier graph of the sorted partition
	gr, err := barrier.New(sorted, g, conn)
	if err != nil {
		return nil, err
	}

	// 3) Phases
	c := &Collection{
		grid:   g,
		labels: sorted,
		graph:  gr,
		phases: make([]*Phase, len(order)),
		byID:   make(map[int]int, len(order)),
	}
	cells := sorted.Cells()
	for k, r := range order {
		peak := gr.ArgMax(k)
		if peaks != nil {
			peak = peaks[r]
		}
		c.phases[k] = &Phase{id: ids[r], index: k, peak: peak, cells: cells[k], c: c}
		c.byID[ids[r]] = k
	}

	return c, nil
}

// Grid returns the reweighted grid the phases live on.
func (c *Collection) Grid() *grid.Grid { return c.grid }

// Mu returns the chemical potential of the collection.
func (c *Collection) Mu() []float64 { return c.grid.Mu() }

// Len returns the number of phases.
func (c *Collection) Len() int { return len(c.phases) }

// Phase returns the phase at position i.
func (c *Collection) Phase(i int) *Phase { return c.phases[i] }

// Phases returns the phases in id order.
func (c *Collection) Phases() []*Phase { return append([]*Phase(nil), c.phases...) }

// Labels returns the partition; label k+1 is phase k.
func (c *Collection) Labels() *region.Labels { return c.labels }

// Graph returns the barrier graph between the phases.
func (c *Collection) Graph() *barrier.Graph { return c.graph }

// IDs returns the phase ids, ascending.
func (c *Collection) IDs() []int {
	out := make([]int, len(c.phases))
	for k, p := range c.phases {
		out[k] = p.id
	}

	return out
}

// Peaks returns the seed cell of every phase.
func (c *Collection) Peaks() []int {
	out := make([]int, len(c.phases))
	for k, p := range c.phases {
		out[k] = p.peak
	}

	return out
}

// Has reports whether phase id is present.
func (c *Collection) Has(id int) bool {
	_, ok := c.byID[id]
	return ok
}

// Index returns the position of phase id.
func (c *Collection) Index(id int) (int, bool) {
	k, ok := c.byID[id]
	return k, ok
}

// ByID returns phase id or ErrPhaseAbsent.
func (c *Collection) ByID(id int) (*Phase, error) {
	k, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d at mu %v", ErrPhaseAbsent, id, c.grid.Mu())
	}

	return c.phases[k], nil
}

// BetaOmega returns βΩ of phase id or ErrPhaseAbsent.
func (c *Collection) BetaOmega(id int) (float64, error) {
	p, err := c.ByID(id)
	if err != nil {
		return 0, err
	}

	return p.BetaOmega(), nil
}

// DeltaW returns the smallest barrier, seen from phase id, to the phases
// nebrs (all other phases when nebrs is empty):
//
//   - 0 when id is absent;
//   - +Inf when none of the neighbours is present;
//   - +Inf for neighbours without a shared boundary.
func (c *Collection) DeltaW(id int, nebrs ...int) float64 {
	i, ok := c.byID[id]
	if !ok {
		return 0
	}
	var cand []int
	if len(nebrs) == 0 {
		for j := range c.phases {
			if j != i {
				cand = append(cand, j)
			}
		}
	} else {
		for _, nid := range nebrs {
			if j, ok := c.byID[nid]; ok && j != i {
				cand = append(cand, j)
			}
		}
	}

	out := math.Inf(1)
	for _, j := range cand {
		if d, ok := c.graph.Delta(i, j); ok && d < out {
			out = d
		}
	}

	return out
}

func (c *Collection) edgeDistances() []int {
	c.edgeOnce.Do(func() {
		c.edge = c.grid.EdgeDistances()
	})

	return c.edge
}
