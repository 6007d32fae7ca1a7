package metrics

import "time"

// Event names recorded by the speech components.
const (
	EventRecognitionState = "recognition_state"
	EventTranscript       = "transcript"
	EventFailure          = "failure"
	EventSynthesis        = "synthesis"
)

type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}

// MultiObserver forwards every event to each inner observer.
type MultiObserver []Observer

func (m MultiObserver) RecordEvent(ev MetricsEvent) {
	for _, o := range m {
		if o != nil {
			o.RecordEvent(ev)
		}
	}
}
