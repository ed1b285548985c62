// SPDX-License-Identifier: MIT

// Package telemetry owns the Prometheus metrics and the OpenTelemetry tracer
// of lnpi.
//
// Metrics live in a private Registry rather than the global default so that
// embedding programs decide whether to expose them (register Registry with
// their own handler, or call WriteText). Spans go through the global otel
// provider and are no-ops unless the embedder installs one.
package telemetry

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every lnpi span.
const TracerName = "github.com/katalvlaran/lnpi"

// Registry holds every lnpi metric.
var Registry = prometheus.NewRegistry()

var (
	// BuildsTotal counts phase builds by result (ok, error, cached).
	BuildsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "lnpi",
		Name:      "builds_total",
		Help:      "Phase collection builds by result",
	}, []string{"result"})

	// BuildDuration tracks the latency of uncached builds.
	BuildDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: "lnpi",
		Name:      "build_duration_seconds",
		Help:      "Phase collection build duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
	})

	// PhasesBuilt tracks the number of phases per collection.
	PhasesBuilt = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: "lnpi",
		Name:      "phases_per_build",
		Help:      "Number of phases in each built collection",
		Buckets:   []float64{1, 2, 3, 4, 6, 8},
	})

	// MergesTotal counts region contractions by kind (energy, identity).
	MergesTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "lnpi",
		Name:      "merges_total",
		Help:      "Region merges by kind",
	}, []string{"kind"})

	// SmoothedTotal counts peak searches that needed the smoothed grid.
	SmoothedTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: "lnpi",
		Name:      "peaks_smoothed_total",
		Help:      "Peak searches satisfied only after smoothing",
	})

	// CacheLookups counts build cache lookups by result (hit, miss).
	CacheLookups = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "lnpi",
		Name:      "cache_lookups_total",
		Help:      "Build cache lookups by result",
	}, []string{"result"})

	// SearchOutcomes counts stability searches by kind and outcome.
	SearchOutcomes = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "lnpi",
		Name:      "search_outcomes_total",
		Help:      "Stability searches by kind (spinodal, binodal, molfrac) and outcome",
	}, []string{"kind", "outcome"})

	// SolverIterations tracks root-solver iterations per search.
	SolverIterations = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lnpi",
		Name:      "solver_iterations",
		Help:      "Root solver iterations per search",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
	}, []string{"kind"})

	// StoreOps counts store operations by op (save, load, list, delete) and
	// result (ok, error).
	StoreOps = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "lnpi",
		Name:      "store_ops_total",
		Help:      "Run store operations by op and result",
	}, []string{"op", "result"})
)

// Result maps err to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Tracer returns the lnpi tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// WriteText writes every metric in Registry in the Prometheus text
// exposition format.
func WriteText(w io.Writer) error {
	families, err := Registry.Gather()
	if err != nil {
		return fmt.Errorf("telemetry: gather: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("telemetry: encode %s: %w", mf.GetName(), err)
		}
	}

	return nil
}
