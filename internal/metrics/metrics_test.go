package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
)

func TestPrometheusCollectorCounts(t *testing.T) {
	c := NewPrometheusCollector()

	c.RecordLaunch("demo", ports.OutcomeSuccess)
	c.RecordLaunch("demo", ports.OutcomeSuccess)
	c.RecordLaunch("demo", ports.OutcomeFailure)
	c.RecordExport("demo", ports.OutcomeSuccess)
	c.RecordProvision("demo", 3*time.Second, ports.OutcomeSuccess)
	c.RecordImport("http", 250*time.Millisecond, ports.OutcomeCancelled)
	c.SetPlugins(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.launches.WithLabelValues("demo", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.launches.WithLabelValues("demo", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.exports.WithLabelValues("demo", "success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.plugins))
	assert.Equal(t, 1, testutil.CollectAndCount(c.provisions))
	assert.Equal(t, 1, testutil.CollectAndCount(c.imports))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewPrometheusCollector()
	c.RecordLaunch("demo", ports.OutcomeSuccess)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `plugdeck_launches_total{outcome="success",plugin="demo"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestServeStopsWithContext(t *testing.T) {
	c := NewPrometheusCollector()
	ctx, cancel := context.WithCancel(context.Background())

	addr, done, err := c.Serve(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "plugdeck_plugins")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestNoOpCollector(t *testing.T) {
	var c ports.MetricsCollector = NewNoOpCollector()
	c.RecordLaunch("demo", ports.OutcomeSuccess)
	c.SetPlugins(1)
	assert.IsType(t, NoOpCollector{}, OrNoOp(nil))
	collector := NewPrometheusCollector()
	assert.Same(t, collector, OrNoOp(collector))
}
