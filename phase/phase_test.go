package phase_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lnpi/errkind"
	"github.com/katalvlaran/lnpi/grid"
	"github.com/katalvlaran/lnpi/internal/synth"
	"github.com/katalvlaran/lnpi/peaks"
	"github.com/katalvlaran/lnpi/phase"
)

// twoBumps is symmetric about cell 19: equal wells at 8 and 30.
func twoBumps() *grid.Grid {
	return synth.BumpGrid([]int{39}, 0,
		synth.Bump{Center: []float64{8}, Height: 10, Width: 2},
		synth.Bump{Center: []float64{30}, Height: 10, Width: 2},
	)
}

func TestBuild_TwoBumps(t *testing.T) {
	b := phase.NewBuilder(twoBumps())
	c, err := b.Build(context.Background(), []float64{0})
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	require.Equal(t, []int{0, 1}, c.IDs())
	require.Equal(t, []int{8, 30}, c.Peaks())
	require.NoError(t, c.Labels().Validate(c.Grid().Excluded()))

	p0, p1 := c.Phase(0), c.Phase(1)
	require.Equal(t, 20, p0.Size())
	require.Equal(t, 19, p1.Size())
	require.InDelta(t, 8, p0.Nave()[0], 0.01)
	require.InDelta(t, 30, p1.Nave()[0], 0.01)
	require.InDelta(t, p0.BetaOmega(), p1.BetaOmega(), 1e-3)
	require.InDelta(t, 10, c.DeltaW(0), 1e-3)
	require.InDelta(t, 10, c.DeltaW(1, 0), 1e-3)
}

func TestBuild_SinglePhase(t *testing.T) {
	b := phase.NewBuilder(twoBumps(), phase.WithNMax(1))
	c, err := b.Build(context.Background(), []float64{0})
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	require.Equal(t, 39, c.Phase(0).Size())
	require.Equal(t, 8, c.Phase(0).Peak())
	require.True(t, math.IsInf(c.DeltaW(0), 1))
}

func TestBuild_SingleBumpStaysOnePhase(t *testing.T) {
	g := synth.BumpGrid([]int{20, 20}, 0, synth.Bump{Center: []float64{10, 10}, Height: 10, Width: 3})
	for _, nmax := range []int{1, 2, 3, 5} {
		for _, efac := range []float64{math.Inf(-1), 0, 1, 100} {
			for _, mode := range []peaks.SmoothMode{peaks.SmoothOnFail, peaks.SmoothNever, peaks.SmoothAlways} {
				b := phase.NewBuilder(g,
					phase.WithNMax(nmax),
					phase.WithEfac(efac),
					phase.WithPeakOptions(peaks.WithSmooth(mode)),
				)
				c, err := b.Build(context.Background(), []float64{0, 0})
				require.NoError(t, err, "nmax=%d efac=%g smooth=%v", nmax, efac, mode)
				require.Equal(t, 1, c.Len(), "nmax=%d efac=%g smooth=%v", nmax, efac, mode)
				require.Equal(t, 400, c.Phase(0).Size())
			}
		}
	}
}

func TestPhase_BetaOmegaUsesExcludedOrigin(t *testing.T) {
	g, err := grid.New(grid.MustShape(3), []float64{5, 1, 2}, []bool{true, false, false}, []float64{0}, grid.DefaultState())
	require.NoError(t, err)
	c, err := phase.NewBuilder(g, phase.WithNMax(1)).Build(context.Background(), []float64{0})
	require.NoError(t, err)
	p := c.Phase(0)
	require.Equal(t, 2, p.Size())
	require.InDelta(t, math.Log(math.Exp(1)+math.Exp(2)), p.LnPiSum(), 1e-12)
	require.InDelta(t, 5-p.LnPiSum(), p.BetaOmega(), 1e-12)
}

func TestBuild_ForcedMergeReachesNMax(t *testing.T) {
	g := synth.BumpGrid([]int{61}, 0,
		synth.Bump{Center: []float64{10}, Height: 10, Width: 2},
		synth.Bump{Center: []float64{26}, Height: 10, Width: 2},
		synth.Bump{Center: []float64{50}, Height: 10, Width: 2},
	)
	c, err := phase.NewBuilder(g).Build(context.Background(), []float64{0})
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	require.Equal(t, []int{10, 50}, c.Peaks())
	in := c.Phase(0).Mask(grid.Included)
	require.True(t, in[10])
	require.True(t, in[26])
	require.False(t, in[50])

	// Without forcing the three wells stay apart.
	c, err = phase.NewBuilder(g, phase.WithForce(false)).Build(context.Background(), []float64{0})
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
}

func TestBuild_LargeEfacCollapses(t *testing.T) {
	c, err := phase.NewBuilder(twoBumps(), phase.WithEfac(20)).Build(context.Background(), []float64{0})
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
}

func TestBuild_Errors(t *testing.T) {
	b := phase.NewBuilder(twoBumps())
	ctx := context.Background()

	_, err := b.BuildN(ctx, []float64{0}, 0)
	require.ErrorIs(t, err, phase.ErrBadNMax)

	_, err = b.Build(ctx, []float64{0, 1})
	require.ErrorIs(t, err, grid.ErrMuLength)
	require.ErrorIs(t, err, errkind.ErrInvalidInput)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = b.Build(cctx, []float64{0})
	require.ErrorIs(t, err, context.Canceled)

	require.Panics(t, func() { phase.WithNMax(0) })
	require.Panics(t, func() { phase.WithNMaxPeak(-1) })
}

func TestPhase_Observables(t *testing.T) {
	g, err := grid.New(grid.MustShape(3), []float64{0, math.Ln2, 0}, nil, []float64{0},
		grid.State{Volume: 2, Beta: 0.5})
	require.NoError(t, err)
	c, err := phase.NewBuilder(g, phase.WithNMax(1)).Build(context.Background(), []float64{0})
	require.NoError(t, err)

	p := c.Phase(0)
	require.InDelta(t, math.Log(4), p.LnPiSum(), 1e-12)
	require.InDelta(t, 1, p.Nave()[0], 1e-12)
	require.InDelta(t, 0.5, p.Nvar()[0], 1e-12)
	require.InDelta(t, 1, p.MolFrac()[0], 1e-12)
	require.InDelta(t, 0.5, p.Density()[0], 1e-12)
	require.InDelta(t, -math.Log(4), p.BetaOmega(), 1e-12)
	require.InDelta(t, -2*math.Log(4), p.GrandPotential(), 1e-12)
	require.InDelta(t, math.Ln2, p.LocalMax(), 1e-12)
	require.Equal(t, 1, p.LocalArgMax())
	require.Equal(t, 2, p.EdgeDistance())
	require.Equal(t, []bool{false, false, false}, p.Mask(grid.Excluded))

	bo, err := c.BetaOmega(0)
	require.NoError(t, err)
	require.Equal(t, p.BetaOmega(), bo)
}

func TestPhase_MolFracTwoComponents(t *testing.T) {
	g, err := grid.New(grid.MustShape(2, 2), []float64{0, 0, 0, 0}, nil, []float64{0, 0}, grid.DefaultState())
	require.NoError(t, err)
	c, err := phase.NewBuilder(g, phase.WithNMax(1)).Build(context.Background(), []float64{0, 0})
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{0.5, 0.5}, c.Phase(0).Nave(), 1e-12)
	require.InDeltaSlice(t, []float64{0.5, 0.5}, c.Phase(0).MolFrac(), 1e-12)
	require.InDeltaSlice(t, []float64{0.25, 0.25}, c.Phase(0).Nvar(), 1e-12)
}

func TestCollection_Lookups(t *testing.T) {
	c, err := phase.NewBuilder(twoBumps()).Build(context.Background(), []float64{0})
	require.NoError(t, err)

	require.True(t, c.Has(1))
	require.False(t, c.Has(5))
	k, ok := c.Index(1)
	require.True(t, ok)
	require.Equal(t, 1, k)

	_, err = c.ByID(5)
	require.ErrorIs(t, err, phase.ErrPhaseAbsent)
	require.ErrorIs(t, err, errkind.ErrNullResult)
	_, err = c.BetaOmega(5)
	require.True(t, errors.Is(err, phase.ErrPhaseAbsent))

	require.Equal(t, 0.0, c.DeltaW(5))
	require.True(t, math.IsInf(c.DeltaW(0, 7), 1))
	require.Equal(t, c.DeltaW(0), c.DeltaW(0, 1, 7))
	require.Equal(t, []float64{0}, c.Mu())
	require.Len(t, c.Phases(), 2)
	require.Equal(t, 2, c.Graph().Count())
}

func TestTaggers(t *testing.T) {
	ctx := context.Background()

	// Reversed ids reorder the phases.
	rev := phase.TaggerFunc(func(c *phase.Collection) ([]int, error) { return []int{5, 2}, nil })
	c, err := phase.NewBuilder(twoBumps(), phase.WithTagger(rev)).Build(ctx, []float64{0})
	require.NoError(t, err)
	require.Equal(t, []int{2, 5}, c.IDs())
	p, err := c.ByID(2)
	require.NoError(t, err)
	require.Equal(t, 30, p.Peak())

	// Equal ids merge.
	same := phase.TaggerFunc(func(c *phase.Collection) ([]int, error) { return []int{3, 3}, nil })
	c, err = phase.NewBuilder(twoBumps(), phase.WithTagger(same)).Build(ctx, []float64{0})
	require.NoError(t, err)
	require.Equal(t, []int{3}, c.IDs())
	require.Equal(t, 39, c.Phase(0).Size())
	require.Equal(t, 8, c.Phase(0).Peak())

	_, err = phase.NewBuilder(twoBumps(), phase.WithTagger(same), phase.WithMergeIDs(false)).Build(ctx, []float64{0})
	require.ErrorIs(t, err, phase.ErrDuplicateID)

	bad := phase.TaggerFunc(func(c *phase.Collection) ([]int, error) { return []int{0}, nil })
	_, err = phase.NewBuilder(twoBumps(), phase.WithTagger(bad)).Build(ctx, []float64{0})
	require.ErrorIs(t, err, phase.ErrBadTags)

	// Peak axis ranks build order here.
	c, err = phase.NewBuilder(twoBumps(), phase.WithTagger(phase.TagByPeakAxis(0))).Build(ctx, []float64{0})
	require.NoError(t, err)
	require.Equal(t, []int{8, 30}, c.Peaks())

	_, err = phase.NewBuilder(twoBumps(), phase.WithTagger(phase.TagByPeakAxis(1))).Build(ctx, []float64{0})
	require.ErrorIs(t, err, phase.ErrBadComponent)
}

func TestTagByMolfrac(t *testing.T) {
	g := synth.BumpGrid([]int{13, 13}, 0,
		synth.Bump{Center: []float64{2, 10}, Height: 10, Width: 1.5},
		synth.Bump{Center: []float64{10, 2}, Height: 10, Width: 1.5},
	)
	c, err := phase.NewBuilder(g, phase.WithTagger(phase.TagByMolfrac(1, 0.5))).Build(context.Background(), []float64{0, 0})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, c.IDs())

	lean, err := c.ByID(0)
	require.NoError(t, err)
	require.Equal(t, 10*13+2, lean.Peak())
	require.Less(t, lean.MolFrac()[1], 0.5)

	rich, err := c.ByID(1)
	require.NoError(t, err)
	require.Equal(t, 2*13+10, rich.Peak())
}

func TestTagByPeakCut(t *testing.T) {
	ctx := context.Background()
	cut := phase.WithTagger(phase.TagByPeakCut(0, 20))

	c, err := phase.NewBuilder(twoBumps(), cut).Build(ctx, []float64{0})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, c.IDs())
	require.Equal(t, []int{8, 30}, c.Peaks())

	// A lone right well keeps id 1.
	right := synth.BumpGrid([]int{39}, 0, synth.Bump{Center: []float64{30}, Height: 10, Width: 2})
	c, err = phase.NewBuilder(right, cut).Build(ctx, []float64{0})
	require.NoError(t, err)
	require.Equal(t, []int{1}, c.IDs())
	require.False(t, c.Has(0))

	_, err = phase.NewBuilder(twoBumps(), phase.WithTagger(phase.TagByPeakCut(1, 20))).Build(ctx, []float64{0})
	require.ErrorIs(t, err, phase.ErrBadComponent)
}

func TestFromLabels_RoundTrip(t *testing.T) {
	c, err := phase.NewBuilder(twoBumps()).Build(context.Background(), []float64{0})
	require.NoError(t, err)

	back, err := phase.FromLabels(c.Grid(), c.Labels(), c.IDs(), c.Peaks(), grid.ConnFull)
	require.NoError(t, err)
	require.Equal(t, c.IDs(), back.IDs())
	require.Equal(t, c.Peaks(), back.Peaks())
	require.Equal(t, c.Labels().IDs(), back.Labels().IDs())
	require.Equal(t, c.Phase(1).BetaOmega(), back.Phase(1).BetaOmega())

	_, err = phase.FromLabels(c.Grid(), c.Labels(), []int{0}, nil, grid.ConnFull)
	require.ErrorIs(t, err, phase.ErrMismatch)
	_, err = phase.FromLabels(c.Grid(), c.Labels(), []int{4, 4}, nil, grid.ConnFull)
	require.ErrorIs(t, err, phase.ErrDuplicateID)
	_, err = phase.FromLabels(c.Grid(), c.Labels(), []int{0, 1}, []int{8}, grid.ConnFull)
	require.ErrorIs(t, err, phase.ErrMismatch)
}

func TestCache(t *testing.T) {
	cache := phase.NewCache(2)
	b := phase.NewBuilder(twoBumps(), phase.WithCache(cache))
	ctx := context.Background()

	c1, err := b.Build(ctx, []float64{0.1})
	require.NoError(t, err)
	c2, err := b.Build(ctx, []float64{0.1})
	require.NoError(t, err)
	require.Same(t, c1, c2)
	require.Equal(t, 1, cache.Len())

	// nmax is part of the key.
	c3, err := b.BuildN(ctx, []float64{0.1}, 1)
	require.NoError(t, err)
	require.NotSame(t, c1, c3)
	require.Equal(t, 2, cache.Len())

	_, err = b.Build(ctx, []float64{0.2})
	require.NoError(t, err)
	require.Equal(t, 2, cache.Len())

	cache.Purge()
	require.Equal(t, 0, cache.Len())
}
