// Package metrics counts utterances, matches and session lifecycle events.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rbright/hark/internal/event"
)

// Recorder owns one registry of hark metrics.
type Recorder struct {
	registry *prometheus.Registry

	utterances       prometheus.Counter
	matches          *prometheus.CounterVec
	misses           prometheus.Counter
	listenerFailures *prometheus.CounterVec
	dispatchLatency  prometheus.Histogram
	sessionStarts    prometheus.Counter
	captureErrors    *prometheus.CounterVec
	listening        prometheus.Gauge
}

// New registers every hark metric on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		utterances: f.NewCounter(prometheus.CounterOpts{
			Name: "hark_utterances_total",
			Help: "Utterances dispatched against the command table.",
		}),
		matches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hark_matches_total",
			Help: "Utterances that matched a command.",
		}, []string{"command"}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Name: "hark_misses_total",
			Help: "Utterances that matched no command.",
		}),
		listenerFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hark_listener_failures_total",
			Help: "Dispatch passes where at least one listener failed.",
		}, []string{"command"}),
		dispatchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hark_dispatch_seconds",
			Help:    "Time spent matching candidates and running listeners.",
			Buckets: prometheus.DefBuckets,
		}),
		sessionStarts: f.NewCounter(prometheus.CounterOpts{
			Name: "hark_session_starts_total",
			Help: "Capture sessions started, including automatic restarts.",
		}),
		captureErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hark_capture_errors_total",
			Help: "Capture errors by cause.",
		}, []string{"cause"}),
		listening: f.NewGauge(prometheus.GaugeOpts{
			Name: "hark_listening",
			Help: "1 while a capture session is listening.",
		}),
	}
}

// Attach subscribes the recorder to hub.
func (r *Recorder) Attach(hub *event.Hub) {
	event.On(hub, event.Start, "metrics", func(event.Signal) {
		r.sessionStarts.Inc()
		r.listening.Set(1)
	})
	event.On(hub, event.End, "metrics", func(event.Signal) { r.listening.Set(0) })
	event.On(hub, event.Error, "metrics", func(c event.Cause) { r.captureErrors.WithLabelValues(c.Code).Inc() })
	event.On(hub, event.Hear, "metrics", func(event.Candidates) { r.utterances.Inc() })
	event.On(hub, event.HearWords, "metrics", func(m event.Match) { r.matches.WithLabelValues(m.Command).Inc() })
	event.On(hub, event.HearNoWords, "metrics", func(event.Candidates) { r.misses.Inc() })
}

// ObserveDispatch records one dispatch pass.
func (r *Recorder) ObserveDispatch(command string, elapsed time.Duration, failed bool) {
	r.dispatchLatency.Observe(elapsed.Seconds())
	if failed {
		r.listenerFailures.WithLabelValues(command).Inc()
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current values in text exposition format for a node_exporter
// textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
