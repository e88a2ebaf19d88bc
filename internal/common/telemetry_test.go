package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObservations(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.ObserveFetch("feed", 10*time.Millisecond, 5*time.Millisecond, 2048)
	metrics.CountError("feed")
	metrics.CountError("feed")
	metrics.CountCycle("published")

	assert.Equal(t, 2048.0, testutil.ToFloat64(metrics.HttpBytesTotal.WithLabelValues("feed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HttpErrorsTotal.WithLabelValues("feed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CyclesTotal.WithLabelValues("published")))
}

func TestNilMetricsDropObservations(t *testing.T) {
	var metrics *Metrics
	assert.NotPanics(t, func() {
		metrics.ObserveFetch("feed", time.Second, time.Second, 1)
		metrics.CountError("feed")
		metrics.CountCycle("discarded")
	})
}

func TestTelemetryServerExposesBuildInfo(t *testing.T) {
	telemetry := NewTelemetryServer("127.0.0.1:0", nil)

	recorder := httptest.NewRecorder()
	telemetry.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "gtfs_build_info")
}
