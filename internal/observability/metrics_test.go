package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveOracle("google", "ok", 20*time.Millisecond)
	c.ObserveOracle("google", "error", time.Millisecond)
	c.ObserveBuild("fallback")
	c.ObserveCache(true)
	c.ObserveCache(false)
	c.ObserveCache(false)

	require.Equal(t, 1.0, testutil.ToFloat64(c.OracleRequests.WithLabelValues("google", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.Builds.WithLabelValues("fallback")))
	require.Equal(t, 2.0, testutil.ToFloat64(c.CacheLookups.WithLabelValues("miss")))
	require.Equal(t, 1, testutil.CollectAndCount(c.OracleDurations))
}

func TestCollectorReusesRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewCollector(reg)
	require.NoError(t, err)
	b, err := NewCollector(reg)
	require.NoError(t, err)
	require.Same(t, a.Builds, b.Builds)
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveBuild("ok")
	c.ObserveCache(true)
	c.ObserveOracle("constant", "ok", 0)
	require.NotNil(t, c.Handler())
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.ObserveBuild("ok")

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	require.True(t, strings.Contains(string(body), `geocurtain_curtain_builds_total{outcome="ok"} 1`))
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = exporterFromConfig(context.Background(), TracingConfig{Exporter: "zipkin"})
	require.Error(t, err)
}
