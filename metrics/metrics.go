// Package metrics provides Prometheus metrics for the composition core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for a host application. Each
// application owns its own registry so independent hosts (and tests) never
// collide on metric registration.
type Collector struct {
	registry *prometheus.Registry

	// Boot metrics
	BootDuration      prometheus.Histogram
	InitializersTotal *prometheus.CounterVec
	EnginesRegistered prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a collector with all metrics registered on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		BootDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "enginekit",
				Name:      "boot_duration_seconds",
				Help:      "Time spent running the flattened initializer sequence",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		InitializersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "enginekit",
				Name:      "initializers_total",
				Help:      "Initializers executed, by owning unit and outcome",
			},
			[]string{"unit", "status"},
		),
		EnginesRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "enginekit",
				Name:      "engines_registered",
				Help:      "Number of engine units registered with the host",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "enginekit",
				Name:      "config_reloads_total",
				Help:      "Successful host configuration reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "enginekit",
				Name:      "config_reload_errors_total",
				Help:      "Failed host configuration reloads",
			},
		),
	}
}

// Registry exposes the underlying registry for /metrics handlers.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }
