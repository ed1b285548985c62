// SPDX-License-Identifier: MIT

package watershed

import (
	"container/heap"
	"fmt"

	"github.com/katalvlaran/lnpi/grid"
	"github.com/katalvlaran/lnpi/region"
)

// Partition labels every included cell of g starting from markers.
func Partition(g *grid.Grid, markers [][]int, opts ...Option) (*region.Labels, error) {
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	// 1) Validate markers
	if len(markers) == 0 {
		return nil, ErrNoMarkers
	}
	labels := make([]int, g.Size())
	for k, cells := range markers {
		if len(cells) == 0 {
			return nil, fmt.Errorf("%w: marker %d is empty", ErrNoMarkers, k)
		}
		for _, c := range cells {
			switch {
			case c < 0 || c >= g.Size():
				return nil, fmt.Errorf("%w: marker %d cell %d", ErrMarkerRange, k, c)
			case g.IsExcluded(c):
				return nil, fmt.Errorf("%w: marker %d cell %v", ErrMarkerExcluded, k, g.Shape().Coord(c, nil))
			case labels[c] != 0:
				return nil, fmt.Errorf("%w: cell %v in markers %d and %d", ErrMarkerOverlap, g.Shape().Coord(c, nil), labels[c]-1, k)
			}
			labels[c] = k + 1
		}
	}

	// 2) Single basin: the whole included area
	if len(markers) == 1 {
		for i := range labels {
			if !g.IsExcluded(i) {
				labels[i] = 1
			}
		}
		return region.NewLabels(g.Shape(), labels)
	}

	// 3) Priority flood
	r := &runner{
		g:      g,
		nb:     g.Shape().Neighborhood(cfg.Conn),
		labels: labels,
		coord:  make([]int, g.NDim()),
	}
	r.init(markers)
	r.process()

	// 4) Unreached islands
	r.labelOrphans(len(markers))

	return region.NewLabels(g.Shape(), r.labels)
}

// runner holds the mutable state of one flood.
type runner struct {
	g      *grid.Grid
	nb     grid.Neighborhood
	labels []int // 0 = unassigned
	pq     floodPQ
	seq    int
	coord  []int
}

// init pushes the unassigned neighbours of every marker cell.
func (r *runner) init(markers [][]int) {
	heap.Init(&r.pq)
	for _, cells := range markers {
		for _, c := range cells {
			r.frontier(c)
		}
	}
}

// process settles frontier entries in elevation order until none remain.
func (r *runner) process() {
	for r.pq.Len() > 0 {
		it := heap.Pop(&r.pq).(floodItem)
		if r.labels[it.cell] != 0 {
			continue // settled by a lower or earlier entry
		}
		r.labels[it.cell] = it.label
		r.frontier(it.cell)
	}
}

// frontier queues the unassigned included neighbours of a settled cell.
func (r *runner) frontier(c int) {
	label := r.labels[c]
	r.nb.Each(c, r.coord, func(v int) {
		if r.labels[v] != 0 || r.g.IsExcluded(v) {
			return
		}
		heap.Push(&r.pq, floodItem{
			elevation: -r.g.Value(v),
			label:     label,
			seq:       r.seq,
			cell:      v,
		})
		r.seq++
	})
}

// labelOrphans gives each unreached included island its own id.
func (r *runner) labelOrphans(next int) {
	member := make([]bool, len(r.labels))
	found := false
	for i, l := range r.labels {
		if l == 0 && !r.g.IsExcluded(i) {
			member[i] = true
			found = true
		}
	}
	if !found {
		return
	}
	for _, comp := range grid.Components(r.nb, member) {
		next++
		for _, c := range comp {
			r.labels[c] = next
		}
	}
}

// floodItem is one frontier entry: cell reached from a region.
type floodItem struct {
	elevation float64
	label     int
	seq       int
	cell      int
}

// floodPQ is a min-heap on (elevation, label, seq).
type floodPQ []floodItem

func (pq floodPQ) Len() int { return len(pq) }

func (pq floodPQ) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.elevation != b.elevation {
		return a.elevation < b.elevation
	}
	if a.label != b.label {
		return a.label < b.label
	}

	return a.seq < b.seq
}

func (pq floodPQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

// Push implements heap.Interface.
func (pq *floodPQ) Push(x interface{}) { *pq = append(*pq, x.(floodItem)) }

// Pop implements heap.Interface.
func (pq *floodPQ) Pop() interface{} {
	old := *pq
	n := len(old)
	it := old[n-1]
	*pq = old[:n-1]

	return it
}
