// SPDX-License-Identifier: MIT

package barrier

import (
	"fmt"
	"log/slog"
	"math"
)

// MergeResult is the outcome of Merge.
type MergeResult struct {
	// Groups lists, per surviving region, the 1-based label ids of the
	// input partition it absorbed, in ascending order. Pass it to
	// region.Labels.Regroup to obtain the reduced partition.
	Groups [][]int
	// Peaks holds the surviving regions' peak cells, aligned with Groups.
	Peaks []int
	// RegionMin holds the surviving regions' free-energy floors.
	RegionMin []float64
	// Merges counts contractions performed (initial count − len(Groups)).
	Merges int
}

// Count returns the number of surviving regions.
func (r MergeResult) Count() int { return len(r.Groups) }

// Merge greedily contracts the regions of gr. peaks holds one peak cell per
// region (nil uses gr.ArgMaxes()).
func Merge(gr *Graph, peaks []int, opts ...MergeOption) (MergeResult, error) {
	cfg := DefaultMergeOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.NMax < 0 {
		return MergeResult{}, ErrBadNMax
	}
	if peaks == nil {
		peaks = gr.ArgMaxes()
	}
	if len(peaks) != gr.n {
		return MergeResult{}, fmt.Errorf("%w: %d peaks for %d regions", ErrPeaksLength, len(peaks), gr.n)
	}

	m := newMerger(gr, peaks)
	for m.count() > 1 {
		i, j, d := m.argmin()
		if d > cfg.Efac && !(cfg.Force && cfg.NMax > 0 && m.count() > cfg.NMax) {
			break
		}
		keep, kill := i, j
		if kill < keep {
			keep, kill = kill, keep
		}
		cfg.Logger.Debug("barrier: merge",
			slog.Int("keep", keep),
			slog.Int("kill", kill),
			slog.Float64("delta", d),
			slog.Bool("forced", d > cfg.Efac),
			slog.Int("remaining", m.count()-1))
		m.contract(keep, kill)
	}

	return MergeResult{
		Groups:    m.groups,
		Peaks:     m.peaks,
		RegionMin: m.regionMin,
		Merges:    gr.n - m.count(),
	}, nil
}

// merger is the mutable working copy of one contraction run.
type merger struct {
	energy    [][]float64 // +Inf where absent
	regionMin []float64
	peaks     []int
	groups    [][]int
}

func newMerger(gr *Graph, peaks []int) *merger {
	m := &merger{
		energy:    make([][]float64, gr.n),
		regionMin: gr.RegionMins(),
		peaks:     append([]int(nil), peaks...),
		groups:    make([][]int, gr.n),
	}
	for i := 0; i < gr.n; i++ {
		m.energy[i] = make([]float64, gr.n)
		for j := 0; j < gr.n; j++ {
			m.energy[i][j], _ = gr.Energy(i, j)
		}
		m.groups[i] = []int{i + 1}
	}

	return m
}

func (m *merger) count() int { return len(m.groups) }

// argmin returns the ordered pair with the smallest delta, scanning rows
// then columns so the first minimum is the lowest (i, j). Unconnected pairs
// count as +Inf and are only chosen when nothing else is left.
func (m *merger) argmin() (int, int, float64) {
	bi, bj, best := -1, -1, math.Inf(1)
	for i := range m.energy {
		for j, e := range m.energy[i] {
			if i == j {
				continue
			}
			d := e - m.regionMin[i]
			if bi < 0 || d < best {
				bi, bj, best = i, j, d
			}
		}
	}

	return bi, bj, best
}

// contract folds region kill into keep (keep < kill).
func (m *merger) contract(keep, kill int) {
	for k := range m.energy {
		if k == keep || k == kill {
			continue
		}
		e := math.Min(m.energy[keep][k], m.energy[kill][k])
		m.energy[keep][k], m.energy[k][keep] = e, e
	}
	if m.regionMin[kill] < m.regionMin[keep] {
		m.regionMin[keep] = m.regionMin[kill]
	}
	m.groups[keep] = mergeSorted(m.groups[keep], m.groups[kill])

	// drop row and column kill
	m.energy = append(m.energy[:kill], m.energy[kill+1:]...)
	for k := range m.energy {
		m.energy[k] = append(m.energy[k][:kill], m.energy[k][kill+1:]...)
	}
	m.regionMin = append(m.regionMin[:kill], m.regionMin[kill+1:]...)
	m.peaks = append(m.peaks[:kill], m.peaks[kill+1:]...)
	m.groups = append(m.groups[:kill], m.groups[kill+1:]...)
}

func mergeSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] < b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)

	return append(out, b[j:]...)
}
