// ABOUTME: Prometheus collector for operation executions and wrapped calls
// ABOUTME: Registers on a private registry served by Handler

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the gateway's metrics.
type Collector struct {
	registry *prometheus.Registry

	// OperationExecutions counts registry executions.
	// Labels: path, outcome (success/failure/denied/invalid)
	OperationExecutions *prometheus.CounterVec

	// OperationDuration observes handler latency in seconds.
	// Labels: path
	OperationDuration *prometheus.HistogramVec

	// WrappedCalls counts controller and service calls through the wrapper.
	// Labels: component, method, outcome (ok/error/panic)
	WrappedCalls *prometheus.CounterVec

	// EventsPublished counts events accepted by the bus.
	// Labels: path
	EventsPublished *prometheus.CounterVec

	// EventsDropped counts deliveries skipped because a subscriber was full.
	EventsDropped prometheus.Counter
}

// NewCollector creates a collector with its own registry. Go runtime and
// process collectors are included.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		OperationExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sml",
				Name:      "operation_executions_total",
				Help:      "Total number of SML operation executions",
			},
			[]string{"path", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sml",
				Name:      "operation_duration_seconds",
				Help:      "SML operation execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		WrappedCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrapped_calls_total",
				Help: "Total number of wrapped controller and service calls",
			},
			[]string{"component", "method", "outcome"},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sml",
				Name:      "events_published_total",
				Help:      "Total number of events published on the bus",
			},
			[]string{"path"},
		),
		EventsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sml",
				Name:      "events_dropped_total",
				Help:      "Event deliveries dropped for slow subscribers",
			},
		),
	}
}

// ObserveExecution records one operation execution.
func (c *Collector) ObserveExecution(path, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.OperationExecutions.WithLabelValues(path, outcome).Inc()
	c.OperationDuration.WithLabelValues(path).Observe(d.Seconds())
}

// ObserveCall records one wrapped call.
func (c *Collector) ObserveCall(component, method, outcome string) {
	if c == nil {
		return
	}
	c.WrappedCalls.WithLabelValues(component, method, outcome).Inc()
}

// ObservePublish records one published event and how many deliveries were dropped.
func (c *Collector) ObservePublish(path string, dropped int) {
	if c == nil {
		return
	}
	c.EventsPublished.WithLabelValues(path).Inc()
	if dropped > 0 {
		c.EventsDropped.Add(float64(dropped))
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
