// Package metrics implements ports.MetricsCollector.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
)

const namespace = "plugdeck"

// NoOpCollector discards every measurement.
type NoOpCollector struct{}

// NewNoOpCollector returns a collector that records nothing.
func NewNoOpCollector() ports.MetricsCollector { return NoOpCollector{} }

func (NoOpCollector) RecordLaunch(string, ports.Outcome)                   {}
func (NoOpCollector) RecordProvision(string, time.Duration, ports.Outcome) {}
func (NoOpCollector) RecordImport(string, time.Duration, ports.Outcome)    {}
func (NoOpCollector) RecordExport(string, ports.Outcome)                   {}
func (NoOpCollector) SetPlugins(int)                                       {}

// OrNoOp returns c, or a NoOpCollector when c is nil.
func OrNoOp(c ports.MetricsCollector) ports.MetricsCollector {
	if c == nil {
		return NoOpCollector{}
	}
	return c
}

// PrometheusCollector exports lifecycle metrics on its own registry.
type PrometheusCollector struct {
	registry *prometheus.Registry

	launches   *prometheus.CounterVec
	provisions *prometheus.HistogramVec
	imports    *prometheus.HistogramVec
	exports    *prometheus.CounterVec
	plugins    prometheus.Gauge
}

// NewPrometheusCollector registers the plugdeck metrics plus the Go runtime
// and process collectors on a fresh registry.
func NewPrometheusCollector() *PrometheusCollector {
	c := &PrometheusCollector{
		registry: prometheus.NewRegistry(),
		launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launches_total",
			Help:      "Plugin launches and snippet executions.",
		}, []string{"plugin", "outcome"}),
		provisions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provision_duration_seconds",
			Help:      "Duration of plugin environment syncs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"plugin", "outcome"}),
		imports: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Duration of plugin import sessions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "outcome"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Plugin exports.",
		}, []string{"plugin", "outcome"}),
		plugins: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plugins",
			Help:      "Plugins registered by the last scan.",
		}),
	}
	c.registry.MustRegister(
		c.launches,
		c.provisions,
		c.imports,
		c.exports,
		c.plugins,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *PrometheusCollector) RecordLaunch(plugin string, outcome ports.Outcome) {
	c.launches.WithLabelValues(plugin, string(outcome)).Inc()
}

func (c *PrometheusCollector) RecordProvision(plugin string, d time.Duration, outcome ports.Outcome) {
	c.provisions.WithLabelValues(plugin, string(outcome)).Observe(d.Seconds())
}

func (c *PrometheusCollector) RecordImport(source string, d time.Duration, outcome ports.Outcome) {
	c.imports.WithLabelValues(source, string(outcome)).Observe(d.Seconds())
}

func (c *PrometheusCollector) RecordExport(plugin string, outcome ports.Outcome) {
	c.exports.WithLabelValues(plugin, string(outcome)).Inc()
}

func (c *PrometheusCollector) SetPlugins(count int) {
	c.plugins.Set(float64(count))
}

// Registry exposes the underlying registry, mainly for tests.
func (c *PrometheusCollector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled. It returns once the
// listener is bound; the returned channel reports the server's exit error.
func (c *PrometheusCollector) Serve(ctx context.Context, addr string) (net.Addr, <-chan error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
		close(done)
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return ln.Addr(), done, nil
}
