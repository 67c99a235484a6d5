// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the Prometheus instruments for the bridge and the
// routing engine. All instruments are registered on the default registerer
// under the given namespace.
type Collector struct {
	// Bridge command metrics
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec

	// Transport endpoint metrics
	connectionsTotal    *prometheus.CounterVec
	framesTotal         *prometheus.CounterVec
	lateResponsesTotal  prometheus.Counter
	pendingCallsCurrent prometheus.Gauge

	// Routing engine metrics
	routeDecisionsTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a metrics collector. Namespace must be unique per
// process; registering the same namespace twice panics (Prometheus duplicate
// registration).
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_commands_total",
			Help:      "Total number of bridge commands by action and outcome status",
		},
		[]string{"action", "status"},
	)

	c.commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bridge_command_duration_seconds",
			Help:      "Bridge command round-trip duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"action"},
	)

	c.connectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_connections_total",
			Help:      "Total number of peer connection events",
		},
		[]string{"event"}, // event: connected, disconnected, replaced
	)

	c.framesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_frames_total",
			Help:      "Total number of inbound frames by kind",
		},
		[]string{"kind"}, // kind: handshake, response, malformed
	)

	c.lateResponsesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_late_responses_total",
			Help:      "Total number of responses that arrived after their call was abandoned",
		},
	)

	c.pendingCallsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_pending_calls",
			Help:      "Number of commands currently awaiting a response",
		},
	)

	c.routeDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Total number of routing decisions by action and chosen route",
		},
		[]string{"action", "route"}, // route: dom, visual, launcher, unavailable
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordCommand records one completed bridge command.
func (c *Collector) RecordCommand(action, status string, duration time.Duration) {
	c.commandsTotal.WithLabelValues(action, status).Inc()
	c.commandDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordConnection records a peer connection lifecycle event.
func (c *Collector) RecordConnection(event string) {
	c.connectionsTotal.WithLabelValues(event).Inc()
}

// RecordFrame records one inbound frame.
func (c *Collector) RecordFrame(kind string) {
	c.framesTotal.WithLabelValues(kind).Inc()
}

// RecordLateResponse records a response matched to an abandoned call.
func (c *Collector) RecordLateResponse() {
	c.lateResponsesTotal.Inc()
}

// SetPendingCalls records the current number of in-flight commands.
func (c *Collector) SetPendingCalls(n int) {
	c.pendingCallsCurrent.Set(float64(n))
}

// RecordRouteDecision records the route chosen for one action invocation.
func (c *Collector) RecordRouteDecision(action, route string) {
	c.routeDecisionsTotal.WithLabelValues(action, route).Inc()
}
