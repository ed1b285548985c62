package peaks_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lnpi/errkind"
	"github.com/katalvlaran/lnpi/grid"
	"github.com/katalvlaran/lnpi/internal/synth"
	"github.com/katalvlaran/lnpi/peaks"
)

// twoBumps is a 30×30 floor with two unit bumps far apart.
func twoBumps() *grid.Grid {
	return synth.BumpGrid([]int{30, 30}, 0,
		synth.Bump{Center: []float64{7, 7}, Height: 1, Width: 2},
		synth.Bump{Center: []float64{22, 22}, Height: 1, Width: 2},
	)
}

// noisyHill is a broad 1-D hill with +0.3 added on every even cell, so the
// raw surface has many narrow maxima around the top.
func noisyHill() *grid.Grid {
	const n = 61
	vals := synth.Bumps(grid.MustShape(n), 0, synth.Bump{Center: []float64{30}, Height: 5, Width: 10})
	for i := 0; i < n; i += 2 {
		vals[i] += 0.3
	}
	g, err := grid.New(grid.MustShape(n), vals, nil, []float64{0}, grid.DefaultState())
	if err != nil {
		panic(err)
	}

	return g
}

func TestFind_TwoBumps(t *testing.T) {
	res, err := peaks.Find(twoBumps(), peaks.WithMinDistances(1))
	require.NoError(t, err)
	require.Equal(t, 2, res.Count())
	require.Equal(t, 1, res.MinDistance)
	require.False(t, res.Smoothed)
	require.False(t, res.Fallback)
	// equal heights: lower flat index first
	require.Equal(t, []int{7*30 + 7, 22*30 + 22}, res.Peaks)
}

func TestFind_FlatFallsBackToGlobalMax(t *testing.T) {
	g, err := grid.From2D([][]float64{
		{0, 0.1, 0},
		{0, 0.05, 0},
	}, []float64{0, 0}, grid.DefaultState())
	require.NoError(t, err)

	res, err := peaks.Find(g)
	require.NoError(t, err)
	require.True(t, res.Fallback)
	require.Equal(t, []int{1}, res.Peaks)
}

func TestFind_PlateauIsOneMarker(t *testing.T) {
	g, err := grid.New(grid.MustShape(6), []float64{0, 1, 1, 0, 0, 0}, nil, []float64{0}, grid.DefaultState())
	require.NoError(t, err)

	res, err := peaks.Find(g, peaks.WithMinDistances(1))
	require.NoError(t, err)
	require.Equal(t, 1, res.Count())
	require.Equal(t, [][]int{{1, 2}}, res.Markers)
	require.Equal(t, 1, res.Peaks[0])
}

func TestFind_ExcludedCellsNeverPeak(t *testing.T) {
	g, err := grid.New(grid.MustShape(5),
		[]float64{0, 1, 9, 1, 0},
		[]bool{false, false, true, false, false},
		[]float64{0}, grid.DefaultState())
	require.NoError(t, err)

	res, err := peaks.Find(g, peaks.WithMinDistances(1))
	require.NoError(t, err)
	require.Equal(t, []int{1, 3}, res.Peaks)
}

func TestFind_AllExcluded(t *testing.T) {
	g, err := grid.New(grid.MustShape(2), []float64{0, 0}, []bool{true, true}, []float64{0}, grid.DefaultState())
	require.NoError(t, err)

	_, err = peaks.Find(g)
	require.ErrorIs(t, err, peaks.ErrAllExcluded)
	require.ErrorIs(t, err, errkind.ErrInvalidInput)
}

func TestFind_AdaptiveRadius(t *testing.T) {
	res, err := peaks.Find(noisyHill(),
		peaks.WithMinDistances(1, 5),
		peaks.WithMaxPeaks(1),
		peaks.WithSmooth(peaks.SmoothNever))
	require.NoError(t, err)
	require.Equal(t, 5, res.MinDistance)
	require.Equal(t, []int{30}, res.Peaks)
}

func TestFind_SmoothingFallback(t *testing.T) {
	res, err := peaks.Find(noisyHill(),
		peaks.WithMinDistances(1),
		peaks.WithMaxPeaks(1))
	require.NoError(t, err)
	require.True(t, res.Smoothed)
	require.Equal(t, 1, res.Count())
	require.InDelta(t, 30, float64(res.Peaks[0]), 1)
}

func TestFind_TooManyPeaks(t *testing.T) {
	_, err := peaks.Find(noisyHill(),
		peaks.WithMinDistances(1),
		peaks.WithMaxPeaks(1),
		peaks.WithSmooth(peaks.SmoothNever))
	require.ErrorIs(t, err, peaks.ErrTooManyPeaks)
	require.ErrorIs(t, err, errkind.ErrSearchExhausted)

	var tm *peaks.TooManyPeaksError
	require.True(t, errors.As(err, &tm))
	require.Greater(t, tm.Count, 1)
	require.Equal(t, 1, tm.Max)
	require.Equal(t, 1, tm.MinDistance)
	require.False(t, tm.Smoothed)
}

func TestFind_ThresholdRel(t *testing.T) {
	g, err := grid.New(grid.MustShape(7), []float64{0, 10, 0, 0, 1, 0, 0}, nil, []float64{0}, grid.DefaultState())
	require.NoError(t, err)

	res, err := peaks.Find(g, peaks.WithMinDistances(1))
	require.NoError(t, err)
	require.Equal(t, []int{1, 4}, res.Peaks)

	res, err = peaks.Find(g, peaks.WithMinDistances(1), peaks.WithThresholds(0, 0.5))
	require.NoError(t, err)
	require.Equal(t, []int{1}, res.Peaks)
}

func TestOptions_Panics(t *testing.T) {
	require.Panics(t, func() { peaks.WithMinDistances() })
	require.Panics(t, func() { peaks.WithMinDistances(0) })
	require.Panics(t, func() { peaks.WithMaxPeaks(-1) })
	require.Panics(t, func() { peaks.WithSigma(0, 4) })
	require.Panics(t, func() { peaks.WithSigma(1, math.NaN()) })
}

func TestParseSmoothMode(t *testing.T) {
	for _, m := range []peaks.SmoothMode{peaks.SmoothOnFail, peaks.SmoothNever, peaks.SmoothAlways} {
		got, err := peaks.ParseSmoothMode(m.String())
		require.NoError(t, err)
		require.Equal(t, m, got)
	}
	_, err := peaks.ParseSmoothMode("sometimes")
	require.ErrorIs(t, err, errkind.ErrInvalidInput)
}
