package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/waste-radar/internal/metrics"
)

func TestObserveCounters(t *testing.T) {
	m := metrics.New()
	m.ObserveClassified("lexical", "A", "supply")
	m.ObserveClassified("lexical", "A", "supply")
	m.ObserveClassified("semantic", "H", "")
	m.ObserveFailure("semantic")
	m.ObserveIndexed()
	m.ObserveDuplicate()

	require.Equal(t, 2.0, testutil.ToFloat64(m.Classified.WithLabelValues("lexical", "A", "supply")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Classified.WithLabelValues("semantic", "H", "none")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("semantic")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Indexed))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Duplicates))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveClassified("lexical", "A", "supply")
	m.ObserveFailure("lexical")
	m.ObserveIndexed()
	m.ObserveDuplicate()
	require.NotNil(t, m.Handler())
}

func TestHandlerExposesCounters(t *testing.T) {
	m := metrics.New()
	m.ObserveIndexed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "posts_indexed_total 1")
}
