package stability_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lnpi/stability"
)

func square(x float64) (float64, string, error) { return x*x - 2, "sq", nil }

func TestSolve_Sqrt2(t *testing.T) {
	root, err := stability.Solve(square, 0, 2, stability.DefaultSolverOptions())
	require.NoError(t, err)
	require.InDelta(t, math.Sqrt2, root.X, 1e-10)
	require.InDelta(t, 0, root.F, 1e-9)
	require.Equal(t, "sq", root.Value)
	require.Positive(t, root.Iterations)
	require.Equal(t, root.Calls, root.Iterations+1)
}

func TestSolve_ReversedInterval(t *testing.T) {
	root, err := stability.Solve(square, 2, 0, stability.DefaultSolverOptions())
	require.NoError(t, err)
	require.InDelta(t, math.Sqrt2, root.X, 1e-10)
}

func TestSolve_RootAtEndpoint(t *testing.T) {
	root, err := stability.Solve(func(x float64) (float64, int, error) { return x, 7, nil },
		0, 1, stability.DefaultSolverOptions())
	require.NoError(t, err)
	require.Equal(t, 0.0, root.X)
	require.Equal(t, 7, root.Value)
	require.Equal(t, 2, root.Calls)
	require.Zero(t, root.Iterations)
}

func TestSolve_Errors(t *testing.T) {
	opts := stability.DefaultSolverOptions()

	_, err := stability.Solve(func(x float64) (float64, int, error) { return x*x + 1, 0, nil }, -1, 1, opts)
	require.ErrorIs(t, err, stability.ErrNotBracketed)

	short := opts
	short.MaxIter = 1
	root, err := stability.Solve(square, 0, 2, short)
	require.ErrorIs(t, err, stability.ErrNotConverged)
	require.Equal(t, 1, root.Iterations)

	boom := errors.New("boom")
	_, err = stability.Solve(func(x float64) (float64, int, error) { return 0, 0, boom }, 0, 1, opts)
	require.ErrorIs(t, err, boom)

	bad := opts
	bad.MaxIter = 0
	_, err = stability.Solve(square, 0, 2, bad)
	require.ErrorIs(t, err, stability.ErrBadOption)
}
