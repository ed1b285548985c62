package stability_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lnpi/grid"
	"github.com/katalvlaran/lnpi/internal/synth"
	"github.com/katalvlaran/lnpi/phase"
)

// tent has wells at 10 and 30 over a valley at 20. Under reweighting the
// barrier out of the left well is 5.4 − 9mu for mu ≥ 0 and the one out of
// the right well 5.4 + 9mu for mu ≤ 0.
var tent = synth.Tent{N: []int{0, 10, 20, 30}, V: []float64{0, 10, 4, 10}}

// leftSpinodal is where the left barrier drops to 1.
const leftSpinodal = 4.4 / 9

// byWell names a phase after the well holding its peak.
var byWell = phase.TaggerFunc(func(c *phase.Collection) ([]int, error) {
	out := make([]int, c.Len())
	for i, p := range c.Phases() {
		if p.LocalArgMax() >= 20 {
			out[i] = 1
		}
	}
	return out, nil
})

// tentBuilder never merges on energy, so a well disappears only with its
// peak (near |mu| = 0.6).
func tentBuilder() *phase.Builder {
	return phase.NewBuilder(tent.Grid(0), phase.WithTagger(byWell), phase.WithEfac(math.Inf(-1)))
}

func series(t *testing.T, b *phase.Builder, xs ...float64) *phase.Series {
	t.Helper()
	s, err := phase.NewSeries(0)
	require.NoError(t, err)
	for _, x := range xs {
		c, err := b.Build(context.Background(), []float64{x})
		require.NoError(t, err)
		s.Append(c)
	}
	return s
}

// fixed ignores mu and always returns c.
type fixed struct{ c *phase.Collection }

func (f fixed) Build(context.Context, []float64) (*phase.Collection, error) { return f.c, nil }

// islands has three disconnected cells: lnΠ = 2 at N = 0, 1 + 2mu at N = 2
// and a floor at N = 4 that is never a peak and ends up as phase 2. Phases 0
// and 1 have grand potentials that cross at mu = 0.5.
func islands(t *testing.T) *phase.Builder {
	t.Helper()
	g, err := grid.New(grid.MustShape(5),
		[]float64{2, 0, 1, 0, -10},
		[]bool{false, true, false, true, false},
		[]float64{0}, grid.DefaultState())
	require.NoError(t, err)
	return phase.NewBuilder(g, phase.WithNMax(3), phase.WithTagger(phase.TagByPeakAxis(0)))
}
