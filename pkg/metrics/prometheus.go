package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver turns speech events into prometheus series.
type PrometheusObserver struct {
	transitions *prometheus.CounterVec
	transcripts *prometheus.CounterVec
	failures    *prometheus.CounterVec
	synthesis   *prometheus.HistogramVec
}

// NewPrometheusObserver registers its collectors on reg.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	p := &PrometheusObserver{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "speechgate_recognition_transitions_total",
				Help: "Recognition session state transitions by target state.",
			},
			[]string{"to"},
		),
		transcripts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "speechgate_transcripts_total",
				Help: "Transcript updates emitted, split by interim/final.",
			},
			[]string{"final"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "speechgate_failures_total",
				Help: "Failures surfaced to the user by kind.",
			},
			[]string{"kind"},
		),
		synthesis: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "speechgate_synthesis_latency_ms",
				Help:    "Synthesis call latency in milliseconds.",
				Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
			[]string{"outcome"},
		),
	}
	for _, c := range []prometheus.Collector{p.transitions, p.transcripts, p.failures, p.synthesis} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *PrometheusObserver) RecordEvent(ev MetricsEvent) {
	switch ev.Name {
	case EventRecognitionState:
		p.transitions.WithLabelValues(label(ev.Tags["to"])).Inc()
	case EventTranscript:
		p.transcripts.WithLabelValues(label(ev.Tags["final"])).Inc()
	case EventFailure:
		p.failures.WithLabelValues(label(ev.Tags["kind"])).Inc()
	case EventSynthesis:
		p.synthesis.WithLabelValues(label(ev.Tags["outcome"])).Observe(ev.Value)
	}
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
