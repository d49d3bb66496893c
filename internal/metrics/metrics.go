// Package metrics exposes prometheus collectors for content generation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors recorded per generation.
type Metrics struct {
	registry *prometheus.Registry

	Generations   *prometheus.CounterVec
	Deltas        prometheus.Counter
	SkippedFrames prometheus.Counter
	Slides        prometheus.Histogram
	Duration      *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_creator_generations_total",
			Help: "Content generation requests by content kind and outcome.",
		}, []string{"kind", "outcome"}),
		Deltas: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_creator_stream_deltas_total",
			Help: "Non-empty content deltas decoded from model streams.",
		}),
		SkippedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_creator_stream_skipped_frames_total",
			Help: "Stream frames dropped because they did not deserialize.",
		}),
		Slides: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "content_creator_deck_slides",
			Help:    "Slides parsed per slide deck.",
			Buckets: prometheus.LinearBuckets(0, 2, 10),
		}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "content_creator_generation_duration_seconds",
			Help:    "Time spent generating content.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	reg.MustRegister(m.Generations, m.Deltas, m.SkippedFrames, m.Slides, m.Duration)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
