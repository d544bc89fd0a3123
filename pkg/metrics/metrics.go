// Package metrics exposes the orrery's Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orrery"

// Collector holds the simulation and telemetry metrics on its own registry.
// It implements engine.Recorder.
type Collector struct {
	registry *prometheus.Registry

	frames           prometheus.Counter
	stepDuration     prometheus.Histogram
	solverIterations *prometheus.HistogramVec
	notConverged     *prometheus.CounterVec
	clients          prometheus.Gauge
	messagesSent     *prometheus.CounterVec
	bytesSent        prometheus.Counter
	droppedFrames    prometheus.Counter
	rejectedMessages *prometheus.CounterVec
}

// NewCollector creates and registers all metrics. Go runtime and process
// collectors are included.
func NewCollector() *Collector {
	m := &Collector{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Simulation frames advanced",
		}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Time spent advancing one frame",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		solverIterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solver_iterations",
			Help:      "Newton-Raphson iterations per Kepler solve",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}, []string{"body"}),
		notConverged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solver_not_converged_total",
			Help:      "Kepler solves that hit the iteration cap",
		}, []string{"body"}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "telemetry_clients",
			Help:      "Connected telemetry clients",
		}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_messages_sent_total",
			Help:      "Telemetry messages written to clients",
		}, []string{"type"}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_bytes_sent_total",
			Help:      "Telemetry payload bytes written to clients",
		}),
		droppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_frames_dropped_total",
			Help:      "Frames skipped because a client's send buffer was full",
		}),
		rejectedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_messages_rejected_total",
			Help:      "Inbound client messages rejected by validation",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		m.frames,
		m.stepDuration,
		m.solverIterations,
		m.notConverged,
		m.clients,
		m.messagesSent,
		m.bytesSent,
		m.droppedFrames,
		m.rejectedMessages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordFrame counts a frame and observes how long it took
func (m *Collector) RecordFrame(d time.Duration) {
	m.frames.Inc()
	m.stepDuration.Observe(d.Seconds())
}

// RecordSolve observes one Kepler solve for body
func (m *Collector) RecordSolve(body string, iterations int, converged bool) {
	m.solverIterations.WithLabelValues(body).Observe(float64(iterations))
	if !converged {
		m.notConverged.WithLabelValues(body).Inc()
	}
}

// ClientConnected increments the client gauge
func (m *Collector) ClientConnected() {
	m.clients.Inc()
}

// ClientDisconnected decrements the client gauge
func (m *Collector) ClientDisconnected() {
	m.clients.Dec()
}

// MessageSent counts one outbound message of msgType and its size
func (m *Collector) MessageSent(msgType string, bytes int) {
	m.messagesSent.WithLabelValues(msgType).Inc()
	if bytes > 0 {
		m.bytesSent.Add(float64(bytes))
	}
}

// FrameDropped counts a frame a slow client did not receive
func (m *Collector) FrameDropped() {
	m.droppedFrames.Inc()
}

// MessageRejected counts an inbound message rejected for reason
func (m *Collector) MessageRejected(reason string) {
	m.rejectedMessages.WithLabelValues(reason).Inc()
}

// Registry returns the underlying registry
func (m *Collector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
