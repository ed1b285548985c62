// SPDX-License-Identifier: MIT

package phase

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// DefaultTolerance is the mu distance under which two points are the same.
const DefaultTolerance = 0.5e-8

// StabilityKind names a marked stability point.
type StabilityKind string

// Stability kinds.
const (
	Spinodal StabilityKind = "spinodal"
	Binodal  StabilityKind = "binodal"
)

// Stability marks a collection as a stability point of Phases.
type Stability struct {
	Kind   StabilityKind `json:"kind" yaml:"kind"`
	Phases []int         `json:"phases" yaml:"phases"`
}

// Series is an ordered set of collections, unique in mu within a
// tolerance. Appends are idempotent; nothing is ever removed. Safe for
// concurrent use.
type Series struct {
	mu    sync.RWMutex
	tol   float64
	items []*Collection
	marks map[*Collection]Stability
}

// NewSeries returns an empty series; tol < 0 is an error and tol == 0
// means DefaultTolerance.
func NewSeries(tol float64) (*Series, error) {
	if tol < 0 {
		return nil, fmt.Errorf("%w: %g", ErrBadTolerance, tol)
	}
	if tol == 0 {
		tol = DefaultTolerance
	}

	return &Series{tol: tol, marks: make(map[*Collection]Stability)}, nil
}

// Tolerance returns the uniqueness tolerance.
func (s *Series) Tolerance() float64 { return s.tol }

// Append adds every collection whose mu is farther than the tolerance from
// all entries already present, and reports how many were added.
func (s *Series) Append(cs ...*Collection) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, c := range cs {
		if c == nil || s.nearestLocked(c.Mu(), s.tol) >= 0 {
			continue
		}
		s.items = append(s.items, c)
		added++
	}

	return added
}

// Len returns the number of collections.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// At returns collection i.
func (s *Series) At(i int) *Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[i]
}

// Collections returns a snapshot of the series.
func (s *Series) Collections() []*Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Collection(nil), s.items...)
}

// Mus returns the chemical potential of every entry.
func (s *Series) Mus() [][]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]float64, len(s.items))
	for i, c := range s.items {
		out[i] = c.Mu()
	}

	return out
}

// Sort orders the series by mu[component], ascending and stable.
func (s *Series) Sort(component int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.items {
		if component < 0 || component >= c.Grid().NDim() {
			return fmt.Errorf("%w: component %d", ErrBadComponent, component)
		}
	}
	sort.SliceStable(s.items, func(a, b int) bool {
		return s.items[a].Grid().Mu()[component] < s.items[b].Grid().Mu()[component]
	})

	return nil
}

// Nearest returns the position of the entry closest to mu if its Euclidean
// distance is within tol, or -1.
func (s *Series) Nearest(mu []float64, tol float64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nearestLocked(mu, tol)
}

func (s *Series) nearestLocked(mu []float64, tol float64) int {
	best, bestD := -1, 0.0
	for i, c := range s.items {
		m := c.Mu()
		if len(m) != len(mu) {
			continue
		}
		d := floats.Distance(m, mu, 2)
		if d <= tol && (best < 0 || d < bestD) {
			best, bestD = i, d
		}
	}

	return best
}

// WithPhase returns the collections that contain phase id, in series order.
func (s *Series) WithPhase(id int) []*Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Collection
	for _, c := range s.items {
		if c.Has(id) {
			out = append(out, c)
		}
	}

	return out
}

// MarkStability appends c if needed and records it as a stability point.
// It returns the position of c's mu in the series.
func (s *Series) MarkStability(c *Collection, st Stability) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.nearestLocked(c.Mu(), s.tol)
	if i < 0 {
		s.items = append(s.items, c)
		i = len(s.items) - 1
	}
	st.Phases = append([]int(nil), st.Phases...)
	s.marks[s.items[i]] = st

	return i
}

// Stability returns the mark of entry i.
func (s *Series) Stability(i int) (Stability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.marks[s.items[i]]
	return st, ok
}

// StabilityIndex returns every marked position, ascending.
func (s *Series) StabilityIndex() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int
	for i, c := range s.items {
		if _, ok := s.marks[c]; ok {
			out = append(out, i)
		}
	}

	return out
}
