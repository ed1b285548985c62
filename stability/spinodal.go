// SPDX-License-Identifier: MIT

package stability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/lnpi/internal/logging"
	"github.com/katalvlaran/lnpi/internal/telemetry"
	"github.com/katalvlaran/lnpi/phase"
)

// SpinodalOptions configures a SpinodalLocator.
type SpinodalOptions struct {
	Efac          float64       // barrier cutoff
	DMu           float64       // step used to extend the series
	VMin          float64       // right endpoints need ΔW > VMin
	VMax          float64       // left endpoints need ΔW < VMax
	NTry          int           // extension steps per side
	NMax          int           // refinement iterations
	Step          int           // +1, −1, or 0 to infer from the series
	RTol          float64       // relative closeness of collapsed endpoints
	ATol          float64       // absolute closeness of collapsed endpoints
	AcceptBracket bool          // collapsed bracket on a good left point is DoneAtBracket
	Solver        SolverOptions // root solver bounds
	Logger        *slog.Logger
}

// SpinodalOption configures a SpinodalLocator.
type SpinodalOption func(*SpinodalOptions)

// DefaultSpinodalOptions returns efac 1, dmu 0.5, vmin 0, vmax 1e5, ntry 20,
// nmax 20, inferred step, rtol 1e-5, atol 1e-8 and the default solver.
func DefaultSpinodalOptions() SpinodalOptions {
	return SpinodalOptions{
		Efac:   1,
		DMu:    0.5,
		VMin:   0,
		VMax:   1e5,
		NTry:   20,
		NMax:   20,
		RTol:   1e-5,
		ATol:   1e-8,
		Solver: DefaultSolverOptions(),
		Logger: logging.Discard(),
	}
}

// WithEfac sets the barrier cutoff.
func WithEfac(efac float64) SpinodalOption {
	return func(o *SpinodalOptions) { o.Efac = efac }
}

// WithDMu sets the extension step. Panics unless dmu > 0.
func WithDMu(dmu float64) SpinodalOption {
	if !(dmu > 0) {
		panic(ErrBadOption.Error())
	}
	return func(o *SpinodalOptions) { o.DMu = dmu }
}

// WithLimits sets the classification window (vmin, vmax).
func WithLimits(vmin, vmax float64) SpinodalOption {
	return func(o *SpinodalOptions) {
		o.VMin = vmin
		o.VMax = vmax
	}
}

// WithBudget sets the extension tries per side and the refinement
// iterations. Panics on negative values.
func WithBudget(ntry, nmax int) SpinodalOption {
	if ntry < 0 || nmax < 0 {
		panic(ErrBadOption.Error())
	}
	return func(o *SpinodalOptions) {
		o.NTry = ntry
		o.NMax = nmax
	}
}

// WithStep fixes the search direction (+1 or −1; 0 infers it).
func WithStep(step int) SpinodalOption {
	if step < -1 || step > 1 {
		panic(ErrBadOption.Error())
	}
	return func(o *SpinodalOptions) { o.Step = step }
}

// WithCloseness sets the tolerances under which endpoints have collapsed.
func WithCloseness(rtol, atol float64) SpinodalOption {
	return func(o *SpinodalOptions) {
		o.RTol = rtol
		o.ATol = atol
	}
}

// WithAcceptBracket toggles DoneAtBracket for collapsed brackets.
func WithAcceptBracket(accept bool) SpinodalOption {
	return func(o *SpinodalOptions) { o.AcceptBracket = accept }
}

// WithSolver sets the root solver bounds.
func WithSolver(s SolverOptions) SpinodalOption {
	return func(o *SpinodalOptions) { o.Solver = s }
}

// WithSpinodalLogger routes search records to l; nil keeps the discard logger.
func WithSpinodalLogger(l *slog.Logger) SpinodalOption {
	return func(o *SpinodalOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

// SpinodalLocator finds the mu at which the barrier out of a phase drops to
// Efac.
type SpinodalLocator struct {
	b    Builder
	opts SpinodalOptions
}

// NewSpinodalLocator returns a locator rebuilding collections through b.
func NewSpinodalLocator(b Builder, opts ...SpinodalOption) *SpinodalLocator {
	cfg := DefaultSpinodalOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &SpinodalLocator{b: b, opts: cfg}
}

// spinodalSearch is the mutable state of one Find.
type spinodalSearch struct {
	*SpinodalLocator
	ctx   context.Context
	idx   int
	nebrs []int
	at    func(x float64) []float64
	comp  int
	diag  Diagnostics
}

// Find locates the spinodal of phase idx against nebrs (all other phases
// when empty), starting from the collections of s. s must hold at least
// two points differing only in one mu component.
func (l *SpinodalLocator) Find(ctx context.Context, s *phase.Series, idx int, nebrs ...int) (Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "stability.Spinodal",
		trace.WithAttributes(attribute.Int("stability.phase", idx)))
	defer span.End()

	res, err := l.find(ctx, s, idx, nebrs)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoSpinodal):
		res.Outcome = NoSpinodal
	default:
		res.Outcome = Failed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	telemetry.SearchOutcomes.WithLabelValues("spinodal", res.Outcome.String()).Inc()
	if res.Iterations > 0 {
		telemetry.SolverIterations.WithLabelValues("spinodal").Observe(float64(res.Iterations))
	}
	span.SetAttributes(attribute.String("stability.outcome", res.Outcome.String()))
	logOutcome(l.opts.Logger.With(slog.Int("phase", idx)), "spinodal", res.Diagnostics, err)

	return res, err
}

func (l *SpinodalLocator) find(ctx context.Context, s *phase.Series, idx int, nebrs []int) (Result, error) {
	// 1) Series geometry
	cols := s.Collections()
	if len(cols) < 2 {
		return Result{}, fmt.Errorf("%w: %d points", ErrSeriesTooShort, len(cols))
	}
	comp, err := seriesComponent(cols)
	if err != nil {
		return Result{}, err
	}
	sort.SliceStable(cols, func(a, b int) bool { return cols[a].Mu()[comp] < cols[b].Mu()[comp] })
	at, err := phase.Varying(cols[0].Mu(), comp)
	if err != nil {
		return Result{}, err
	}
	sr := &spinodalSearch{SpinodalLocator: l, ctx: ctx, idx: idx, nebrs: nebrs, at: at, comp: comp}
	sr.diag.Component = comp

	// 2) Direction
	step := l.opts.Step
	if step == 0 {
		d := sr.dw(cols[len(cols)-1]) - sr.dw(cols[0])
		switch {
		case d < 0:
			step = +1
		case d > 0:
			step = -1
		default:
			return Result{Diagnostics: sr.diag}, fmt.Errorf("%w: ΔW change %g", ErrNoStep, d)
		}
	}
	sr.diag.Step = step
	if step < 0 {
		for i, j := 0, len(cols)-1; i < j; i, j = i+1, j-1 {
			cols[i], cols[j] = cols[j], cols[i]
		}
	}

	// 3) Bracket
	left, right, err := sr.bracket(cols, float64(step))
	if err != nil {
		return Result{Diagnostics: sr.diag}, err
	}

	// 4) Refine
	left, right, done, err := sr.refine(left, right)
	if err != nil {
		return Result{Diagnostics: sr.diag}, err
	}
	if done {
		sr.diag.Outcome = DoneAtBracket
		sr.diag.Residual = sr.dw(left) - l.opts.Efac
		return Result{Collection: left, Diagnostics: sr.diag}, nil
	}

	// 5) Root
	root, err := Solve(func(x float64) (float64, *phase.Collection, error) {
		c, err := sr.build(x)
		if err != nil {
			return 0, nil, err
		}
		return sr.dw(c) - l.opts.Efac, c, nil
	}, left.Mu()[comp], right.Mu()[comp], l.opts.Solver)
	sr.diag.Iterations, sr.diag.Calls = root.Iterations, root.Calls
	if err != nil {
		return Result{Diagnostics: sr.diag}, err
	}
	sr.diag.Outcome = Solved
	sr.diag.Residual = root.F
	sr.diag.Lo, sr.diag.Hi = root.X, root.X

	return Result{Collection: root.Value, Diagnostics: sr.diag}, nil
}

func (sr *spinodalSearch) dw(c *phase.Collection) float64 {
	return c.DeltaW(sr.idx, sr.nebrs...)
}

func (sr *spinodalSearch) build(x float64) (*phase.Collection, error) {
	sr.diag.Builds++
	return sr.b.Build(sr.ctx, sr.at(x))
}

// bracket returns the starting left (ΔW > efac) and right (ΔW < efac or
// phase absent) collections, ordered along the search direction.
func (sr *spinodalSearch) bracket(cols []*phase.Collection, step float64) (*phase.Collection, *phase.Collection, error) {
	efac := sr.opts.Efac
	var present []int
	for i, c := range cols {
		if c.Has(sr.idx) {
			present = append(present, i)
		}
	}
	if len(present) == 0 {
		return nil, nil, fmt.Errorf("%w: phase %d", ErrPhaseMissing, sr.idx)
	}
	first, last := present[0], present[len(present)-1]

	// 1) Left: last present point above the cutoff, else step backwards
	var left *phase.Collection
	for k := len(present) - 1; k >= 0; k-- {
		if c := cols[present[k]]; sr.dw(c) > efac {
			left = c
			break
		}
	}
	if left == nil {
		x := cols[first].Mu()[sr.comp]
		for try := 1; try <= sr.opts.NTry; try++ {
			x -= step * sr.opts.DMu
			c, err := sr.build(x)
			if err != nil {
				return nil, nil, err
			}
			if c.Has(sr.idx) && sr.dw(c) > efac {
				left = c
				break
			}
		}
		if left == nil {
			return nil, nil, &BracketError{Side: Left, Tries: sr.opts.NTry, Mu: sr.at(x)}
		}
	}

	// 2) Right: first present point below the cutoff, else the point after
	// the phase vanished, else step forwards until it vanishes
	var right *phase.Collection
	for _, i := range present {
		if c := cols[i]; sr.dw(c) < efac {
			right = c
			break
		}
	}
	if right == nil && last+1 < len(cols) {
		right = cols[last+1]
	}
	if right == nil {
		x := cols[last].Mu()[sr.comp]
		for try := 1; try <= sr.opts.NTry; try++ {
			x += step * sr.opts.DMu
			c, err := sr.build(x)
			if err != nil {
				return nil, nil, err
			}
			if !c.Has(sr.idx) {
				right = c
				break
			}
		}
		if right == nil {
			return nil, nil, &BracketError{Side: Right, Tries: sr.opts.NTry, Mu: sr.at(x)}
		}
	}
	sr.opts.Logger.Debug("stability: bracket",
		slog.Float64("left", left.Mu()[sr.comp]),
		slog.Float64("right", right.Mu()[sr.comp]),
		slog.Int("builds", sr.diag.Builds))

	return left, right, nil
}

// refine bisects until both endpoints are classified. done reports a
// collapsed bracket accepted as DoneAtBracket.
func (sr *spinodalSearch) refine(left, right *phase.Collection) (*phase.Collection, *phase.Collection, bool, error) {
	o := sr.opts
	for i := 0; i < o.NMax; i++ {
		sr.diag.BracketIterations = i + 1
		sr.diag.Lo, sr.diag.Hi = left.Mu()[sr.comp], right.Mu()[sr.comp]
		dl, dr := sr.dw(left), sr.dw(right)
		doneLeft := dl > o.Efac && dl < o.VMax
		doneRight := dr > o.VMin && dr < o.Efac
		if doneLeft && doneRight {
			return left, right, false, nil
		}

		if allClose(left.Mu(), right.Mu(), o.RTol, o.ATol) {
			if doneLeft && o.AcceptBracket {
				return left, right, true, nil
			}
			return nil, nil, false, fmt.Errorf("%w: phase %d, bracket collapsed at %g (left ΔW %g, right ΔW %g)",
				ErrNoSpinodal, sr.idx, sr.diag.Lo, dl, dr)
		}

		xm := 0.5 * (sr.diag.Lo + sr.diag.Hi)
		mid, err := sr.build(xm)
		if err != nil {
			return nil, nil, false, err
		}
		if mid.Has(sr.idx) && sr.dw(mid) >= o.Efac {
			left = mid
		} else {
			right = mid
		}
		sr.opts.Logger.Debug("stability: refine",
			slog.Int("iteration", i),
			slog.Float64("mid", xm),
			slog.Float64("dw", sr.dw(mid)))
	}

	return nil, nil, false, fmt.Errorf("%w: %d iterations, interval [%g, %g]",
		ErrRefineExhausted, o.NMax, left.Mu()[sr.comp], right.Mu()[sr.comp])
}

// FindAll runs Find for every id concurrently against the other ids and
// marks each spinodal found in s. Results are aligned with ids; a missing
// spinodal is a result with Outcome NoSpinodal, not an error.
func (l *SpinodalLocator) FindAll(ctx context.Context, s *phase.Series, ids []int) ([]Result, error) {
	out := make([]Result, len(ids))
	eg, ctx := errgroup.WithContext(ctx)
	for k, id := range ids {
		k, id := k, id
		nebrs := make([]int, 0, len(ids)-1)
		for _, other := range ids {
			if other != id {
				nebrs = append(nebrs, other)
			}
		}
		eg.Go(func() error {
			res, err := l.Find(ctx, s, id, nebrs...)
			if err != nil && !errors.Is(err, ErrNoSpinodal) {
				return fmt.Errorf("stability: spinodal of phase %d: %w", id, err)
			}
			out[k] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for k, res := range out {
		if res.Found() {
			s.MarkStability(res.Collection, phase.Stability{Kind: phase.Spinodal, Phases: []int{ids[k]}})
		}
	}

	return out, nil
}

// seriesComponent returns the single mu component along which the series
// varies.
func seriesComponent(cols []*phase.Collection) (int, error) {
	comp, err := phase.VaryingComponent(cols[0].Mu(), cols[1].Mu())
	if err != nil {
		return 0, err
	}
	base := cols[0].Mu()
	for _, c := range cols[2:] {
		mu := c.Mu()
		for k := range mu {
			if k != comp && mu[k] != base[k] {
				return 0, fmt.Errorf("%w: point %v", phase.ErrMultipleVarying, mu)
			}
		}
	}

	return comp, nil
}

// allClose reports |a−b| ≤ atol + rtol·|b| elementwise.
func allClose(a, b []float64, rtol, atol float64) bool {
	for k := range a {
		if math.Abs(a[k]-b[k]) > atol+rtol*math.Abs(b[k]) {
			return false
		}
	}

	return true
}
