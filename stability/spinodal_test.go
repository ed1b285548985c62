package stability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/lnpi/errkind"
	"github.com/katalvlaran/lnpi/phase"
	"github.com/katalvlaran/lnpi/stability"
)

// SpinodalSuite drives the locator over the tent surface.
type SpinodalSuite struct {
	suite.Suite
	ctx context.Context
	b   *phase.Builder
}

func (s *SpinodalSuite) SetupTest() {
	s.ctx = context.Background()
	s.b = tentBuilder()
}

// TestSolvedForward brackets by stepping past the last point and solves.
func (s *SpinodalSuite) TestSolvedForward() {
	ser := series(s.T(), s.b, 0, 0.1, 0.2)
	res, err := stability.NewSpinodalLocator(s.b).Find(s.ctx, ser, 0)
	require.NoError(s.T(), err)
	require.True(s.T(), res.Found())
	require.Equal(s.T(), stability.Solved, res.Outcome)
	require.Equal(s.T(), 1, res.Step)
	require.Equal(s.T(), 0, res.Component)
	require.InDelta(s.T(), leftSpinodal, res.Collection.Mu()[0], 1e-8)
	require.InDelta(s.T(), 1, res.Collection.DeltaW(0), 1e-8)
	require.Positive(s.T(), res.Builds)
}

// TestSolvedBackward infers a negative step for the right well.
func (s *SpinodalSuite) TestSolvedBackward() {
	ser := series(s.T(), s.b, 0, 0.1, 0.2)
	res, err := stability.NewSpinodalLocator(s.b).Find(s.ctx, ser, 1, 0)
	require.NoError(s.T(), err)
	require.Equal(s.T(), -1, res.Step)
	require.InDelta(s.T(), -leftSpinodal, res.Collection.Mu()[0], 1e-8)
}

// TestNoSpinodal collapses the bracket when the builder merges the phase
// away before its barrier reaches the cutoff.
func (s *SpinodalSuite) TestNoSpinodal() {
	merging := phase.NewBuilder(tent.Grid(0), phase.WithTagger(byWell))
	ser := series(s.T(), merging, 0, 0.1, 0.2)

	res, err := stability.NewSpinodalLocator(merging, stability.WithEfac(0.5)).Find(s.ctx, ser, 0)
	require.ErrorIs(s.T(), err, stability.ErrNoSpinodal)
	require.ErrorIs(s.T(), err, errkind.ErrNullResult)
	require.Equal(s.T(), stability.NoSpinodal, res.Outcome)
	require.False(s.T(), res.Found())

	res, err = stability.NewSpinodalLocator(merging,
		stability.WithEfac(0.5), stability.WithAcceptBracket(true)).Find(s.ctx, ser, 0)
	require.NoError(s.T(), err)
	require.Equal(s.T(), stability.DoneAtBracket, res.Outcome)
	require.InDelta(s.T(), leftSpinodal, res.Collection.Mu()[0], 1e-5)
}

// TestBracketNotFound stops after NTry steps when the builder never moves.
func (s *SpinodalSuite) TestBracketNotFound() {
	ser := series(s.T(), s.b, 0, 0.1)
	stuck := fixed{c: ser.At(1)}
	_, err := stability.NewSpinodalLocator(stuck,
		stability.WithEfac(100), stability.WithBudget(3, 20)).Find(s.ctx, ser, 0)

	var be *stability.BracketError
	require.True(s.T(), errors.As(err, &be))
	require.Equal(s.T(), stability.Left, be.Side)
	require.Equal(s.T(), 3, be.Tries)
	require.ErrorIs(s.T(), err, stability.ErrBracketNotFound)
	require.ErrorIs(s.T(), err, errkind.ErrSearchExhausted)
}

// TestRefineExhausted runs out of bisection before both sides are classified.
func (s *SpinodalSuite) TestRefineExhausted() {
	ser := series(s.T(), s.b, 0, 0.1, 0.2)
	_, err := stability.NewSpinodalLocator(s.b, stability.WithBudget(20, 1)).Find(s.ctx, ser, 0)
	require.ErrorIs(s.T(), err, stability.ErrRefineExhausted)
}

// TestInvalidSeries covers the input checks.
func (s *SpinodalSuite) TestInvalidSeries() {
	l := stability.NewSpinodalLocator(s.b)

	_, err := l.Find(s.ctx, series(s.T(), s.b, 0), 0)
	require.ErrorIs(s.T(), err, stability.ErrSeriesTooShort)

	// The left well is gone at both points, so ΔW is 0 at both ends.
	gone := series(s.T(), s.b, 0.7, 0.8)
	_, err = l.Find(s.ctx, gone, 0)
	require.ErrorIs(s.T(), err, stability.ErrNoStep)

	_, err = stability.NewSpinodalLocator(s.b, stability.WithStep(1)).Find(s.ctx, gone, 0)
	require.ErrorIs(s.T(), err, stability.ErrPhaseMissing)
	require.ErrorIs(s.T(), err, errkind.ErrInvalidInput)
}

// TestFindAllMarksSeries locates both spinodals and records them.
func (s *SpinodalSuite) TestFindAllMarksSeries() {
	ser := series(s.T(), s.b, 0, 0.1, 0.2)
	out, err := stability.NewSpinodalLocator(s.b).FindAll(s.ctx, ser, []int{0, 1})
	require.NoError(s.T(), err)
	require.Len(s.T(), out, 2)
	require.InDelta(s.T(), leftSpinodal, out[0].Collection.Mu()[0], 1e-8)
	require.InDelta(s.T(), -leftSpinodal, out[1].Collection.Mu()[0], 1e-8)

	marked := ser.StabilityIndex()
	require.Len(s.T(), marked, 2)
	st, ok := ser.Stability(marked[0])
	require.True(s.T(), ok)
	require.Equal(s.T(), phase.Spinodal, st.Kind)
}

func TestSpinodalSuite(t *testing.T) {
	suite.Run(t, new(SpinodalSuite))
}

func TestSpinodalOptionsPanic(t *testing.T) {
	require.Panics(t, func() { stability.WithDMu(0) })
	require.Panics(t, func() { stability.WithBudget(-1, 1) })
	require.Panics(t, func() { stability.WithStep(2) })
}

func TestOutcomeString(t *testing.T) {
	require.Equal(t, "solved", stability.Solved.String())
	require.Equal(t, "done_at_bracket", stability.DoneAtBracket.String())
	require.Equal(t, "no_spinodal", stability.NoSpinodal.String())
	require.Equal(t, "no_binodal", stability.NoBinodal.String())
	require.Equal(t, "failed", stability.Failed.String())
}
