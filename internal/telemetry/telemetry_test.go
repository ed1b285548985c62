package telemetry_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lnpi/internal/telemetry"
)

func TestCountersAndWriteText(t *testing.T) {
	before := testutil.ToFloat64(telemetry.SearchOutcomes.WithLabelValues("spinodal", "test"))
	telemetry.SearchOutcomes.WithLabelValues("spinodal", "test").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(telemetry.SearchOutcomes.WithLabelValues("spinodal", "test")))

	telemetry.SolverIterations.WithLabelValues("test").Observe(7)

	var sb strings.Builder
	require.NoError(t, telemetry.WriteText(&sb))
	out := sb.String()
	require.Contains(t, out, `lnpi_search_outcomes_total{kind="spinodal",outcome="test"}`)
	require.Contains(t, out, `lnpi_solver_iterations_count{kind="test"} 1`)
	require.Contains(t, out, "# TYPE lnpi_search_outcomes_total counter")
	require.Contains(t, out, "# TYPE lnpi_solver_iterations histogram")
}

func TestTracer(t *testing.T) {
	require.NotNil(t, telemetry.Tracer())
}

func TestResult(t *testing.T) {
	require.Equal(t, "ok", telemetry.Result(nil))
	require.Equal(t, "error", telemetry.Result(errors.New("x")))
}
