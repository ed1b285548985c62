// SPDX-License-Identifier: MIT

package phase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/katalvlaran/lnpi/barrier"
	"github.com/katalvlaran/lnpi/grid"
	"github.com/katalvlaran/lnpi/internal/telemetry"
	"github.com/katalvlaran/lnpi/peaks"
	"github.com/katalvlaran/lnpi/region"
	"github.com/katalvlaran/lnpi/watershed"
)

// Builder builds phase collections from a reference grid.
type Builder struct {
	ref  *grid.Grid
	opts Options
}

// NewBuilder returns a Builder over ref.
func NewBuilder(ref *grid.Grid, opts ...Option) *Builder {
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Tagger == nil {
		cfg.Tagger = TagByOrder
	}

	return &Builder{ref: ref, opts: cfg}
}

// Ref returns the reference grid.
func (b *Builder) Ref() *grid.Grid { return b.ref }

// NMax returns the default target phase count.
func (b *Builder) NMax() int { return b.opts.NMax }

// Build returns the collection at mu with the configured NMax.
func (b *Builder) Build(ctx context.Context, mu []float64) (*Collection, error) {
	return b.BuildN(ctx, mu, b.opts.NMax)
}

// BuildN returns the collection at mu with at most nmax phases after
// forced merging.
func (b *Builder) BuildN(ctx context.Context, mu []float64, nmax int) (*Collection, error) {
	if nmax < 1 {
		return nil, ErrBadNMax
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.Tracer().Start(ctx, "phase.Build",
		trace.WithAttributes(
			attribute.Int("phase.nmax", nmax),
			attribute.Float64Slice("phase.mu", mu),
		),
	)
	defer span.End()

	// 1) Reweight
	g, err := b.ref.Reweight(mu)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		telemetry.BuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	// 2) Cache
	if b.opts.Cache != nil {
		if c, ok := b.opts.Cache.Get(g, nmax); ok {
			telemetry.CacheLookups.WithLabelValues("hit").Inc()
			telemetry.BuildsTotal.WithLabelValues("cached").Inc()
			span.SetAttributes(attribute.Bool("phase.cached", true))
			return c, nil
		}
		telemetry.CacheLookups.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	c, err := b.build(ctx, g, nmax)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		telemetry.BuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	telemetry.BuildDuration.Observe(time.Since(start).Seconds())
	telemetry.BuildsTotal.WithLabelValues("ok").Inc()
	telemetry.PhasesBuilt.Observe(float64(c.Len()))
	span.SetAttributes(attribute.Int("phase.count", c.Len()))

	if b.opts.Cache != nil {
		b.opts.Cache.Add(g, nmax, c)
	}

	return c, nil
}

// build runs segmentation, merging and tagging on the reweighted grid g.
func (b *Builder) build(_ context.Context, g *grid.Grid, nmax int) (*Collection, error) {
	log := b.opts.Logger
	conn := b.opts.Conn

	// 1) Single phase: the whole included area
	if nmax == 1 {
		peak, _, ok := g.Max()
		if !ok {
			return nil, peaks.ErrAllExcluded
		}
		ids := make([]int, g.Size())
		for i := range ids {
			if !g.IsExcluded(i) {
				ids[i] = 1
			}
		}
		labels, err := region.NewLabels(g.Shape(), ids)
		if err != nil {
			return nil, err
		}
		return b.finish(g, labels, []int{peak})
	}

	// 2) Peaks
	npeak := b.opts.NMaxPeak
	if npeak == 0 {
		npeak = 2 * nmax
	}
	popts := append([]peaks.Option{peaks.WithConnectivity(conn), peaks.WithLogger(log)}, b.opts.Peaks...)
	popts = append(popts, peaks.WithMaxPeaks(npeak))
	found, err := peaks.Find(g, popts...)
	if err != nil {
		return nil, err
	}
	if found.Smoothed {
		telemetry.SmoothedTotal.Inc()
	}

	// 3) Basins
	labels, err := watershed.Partition(g, found.Markers, watershed.WithConnectivity(conn))
	if err != nil {
		return nil, err
	}

	// 4) Barriers and energy merge
	gr, err := barrier.New(labels, g, conn)
	if err != nil {
		return nil, err
	}
	seeds := gr.ArgMaxes()
	copy(seeds, found.Peaks)
	merged, err := barrier.Merge(gr, seeds,
		barrier.WithEfac(b.opts.Efac),
		barrier.WithForce(b.opts.Force),
		barrier.WithNMax(nmax),
		barrier.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	if merged.Merges > 0 {
		telemetry.MergesTotal.WithLabelValues("energy").Add(float64(merged.Merges))
	}
	labels, err = labels.Regroup(merged.Groups)
	if err != nil {
		return nil, err
	}
	log.Debug("phase: segmented",
		slog.Any("mu", g.Mu()),
		slog.Int("peaks", found.Count()),
		slog.Int("min_distance", found.MinDistance),
		slog.Int("regions", gr.Count()),
		slog.Int("phases", merged.Count()))

	return b.finish(g, labels, merged.Peaks)
}

// finish tags the regions and applies the identity merge.
func (b *Builder) finish(g *grid.Grid, labels *region.Labels, seeds []int) (*Collection, error) {
	// 1) Provisional collection in build order
	order := make([]int, labels.Count())
	for k := range order {
		order[k] = k
	}
	c, err := FromLabels(g, labels, order, seeds, b.opts.Conn)
	if err != nil {
		return nil, err
	}

	// 2) Tags
	tags, err := b.opts.Tagger.Tag(c)
	if err != nil {
		return nil, err
	}
	if len(tags) != c.Len() {
		return nil, fmt.Errorf("%w: %d ids for %d phases", ErrBadTags, len(tags), c.Len())
	}
	if isOrder(tags) {
		return c, nil
	}

	// 3) Identity merge
	groups := make(map[int][]int)
	for k, id := range tags {
		if id < 0 {
			return nil, fmt.Errorf("%w: id %d", ErrBadTags, id)
		}
		groups[id] = append(groups[id], k)
	}
	if len(groups) == len(tags) {
		return FromLabels(g, labels, tags, seeds, b.opts.Conn)
	}
	if !b.opts.MergeIDs {
		return nil, fmt.Errorf("%w: tags %v", ErrDuplicateID, tags)
	}

	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	regroup := make([][]int, len(ids))
	peaksOut := make([]int, len(ids))
	for k, id := range ids {
		best := -1
		for _, m := range groups[id] {
			regroup[k] = append(regroup[k], m+1)
			if best < 0 || g.Value(seeds[m]) > g.Value(seeds[best]) {
				best = m
			}
		}
		peaksOut[k] = seeds[best]
	}
	telemetry.MergesTotal.WithLabelValues("identity").Add(float64(len(tags) - len(ids)))
	b.opts.Logger.Debug("phase: identity merge",
		slog.Any("tags", tags),
		slog.Any("ids", ids))
	merged, err := labels.Regroup(regroup)
	if err != nil {
		return nil, err
	}

	return FromLabels(g, merged, ids, peaksOut, b.opts.Conn)
}

func isOrder(ids []int) bool {
	for k, id := range ids {
		if id != k {
			return false
		}
	}

	return true
}
