package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments extractions. A nil *Metrics records nothing.
type Metrics struct {
	Extractions         *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	PreprocessFallbacks *prometheus.CounterVec
}

// NewMetrics registers the pipeline metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Extractions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idcard_extractions_total",
			Help: "Extractions by outcome: done or the error kind",
		}, []string{"outcome"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idcard_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"stage"}),
		PreprocessFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idcard_preprocess_fallbacks_total",
			Help: "Images recognized unprocessed because enhancement failed",
		}, []string{"side"}),
	}
}

// ObserveOutcome counts one finished extraction.
func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(outcome).Inc()
}

// ObserveStage records the time spent in stage since start.
func (m *Metrics) ObserveStage(stage State, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
}

// IncPreprocessFallback counts one enhancement fallback.
func (m *Metrics) IncPreprocessFallback(side Side) {
	if m == nil {
		return
	}
	m.PreprocessFallbacks.WithLabelValues(string(side)).Inc()
}
