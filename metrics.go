package mosaic

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts bridge traffic and step cost. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	coalesced     prometheus.Counter
	stepDuration  prometheus.Histogram
	bodies        prometheus.Gauge
	frames        prometheus.Counter
	appliedFrames prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mosaic",
			Subsystem: "bridge",
			Name:      "requests_total",
			Help:      "Requests sent to the physics worker.",
		}, []string{"op"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mosaic",
			Subsystem: "bridge",
			Name:      "rejections_total",
			Help:      "Requests the physics worker failed.",
		}, []string{"op"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mosaic",
			Subsystem: "bridge",
			Name:      "ticks_coalesced_total",
			Help:      "Tick calls answered with the outstanding tick.",
		}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mosaic",
			Subsystem: "physics",
			Name:      "step_seconds",
			Help:      "Time spent advancing the world by one step.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		bodies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mosaic",
			Subsystem: "physics",
			Name:      "bodies",
			Help:      "Bodies in the world after the last step.",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mosaic",
			Subsystem: "app",
			Name:      "frames_total",
			Help:      "Frames run by the app loop.",
		}),
		appliedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mosaic",
			Subsystem: "app",
			Name:      "snapshots_applied_total",
			Help:      "Physics snapshots applied to the scene.",
		}),
	}
	m.registry.MustRegister(m.requests, m.rejections, m.coalesced, m.stepDuration, m.bodies, m.frames, m.appliedFrames)
	return m
}

// Registry exposes the collectors, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) request(op string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op).Inc()
}

func (m *Metrics) rejected(op string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(op).Inc()
}

func (m *Metrics) tickCoalesced() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}

func (m *Metrics) step(d time.Duration, bodies int) {
	if m == nil {
		return
	}
	m.stepDuration.Observe(d.Seconds())
	m.bodies.Set(float64(bodies))
}

func (m *Metrics) frame() {
	if m == nil {
		return
	}
	m.frames.Inc()
}

func (m *Metrics) snapshotApplied() {
	if m == nil {
		return
	}
	m.appliedFrames.Inc()
}
