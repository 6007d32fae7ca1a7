package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheusObserver(reg)
	require.NoError(t, err)

	p.RecordEvent(MetricsEvent{Name: EventTranscript, Tags: map[string]string{"final": "false"}})
	p.RecordEvent(MetricsEvent{Name: EventTranscript, Tags: map[string]string{"final": "true"}})
	p.RecordEvent(MetricsEvent{Name: EventTranscript, Tags: map[string]string{"final": "true"}})
	p.RecordEvent(MetricsEvent{Name: EventFailure, Tags: map[string]string{"kind": "invalid_credentials"}})
	p.RecordEvent(MetricsEvent{Name: EventRecognitionState, Tags: map[string]string{"to": "LISTENING"}})
	p.RecordEvent(MetricsEvent{Name: EventSynthesis, Value: 120, Tags: map[string]string{"outcome": "ok"}})
	p.RecordEvent(MetricsEvent{Name: "ignored"})

	assert.Equal(t, 2.0, testutil.ToFloat64(p.transcripts.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.transcripts.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.failures.WithLabelValues("invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.transitions.WithLabelValues("LISTENING")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.synthesis))

	_, err = NewPrometheusObserver(reg)
	assert.Error(t, err, "duplicate registration must fail")
}

func TestAsyncObserverDeliversBeforeClose(t *testing.T) {
	mem := NewMemoryObserver()
	a := NewAsyncObserver(mem, 8, nil)
	for i := 0; i < 5; i++ {
		a.RecordEvent(MetricsEvent{Name: EventTranscript, Time: time.Now()})
	}
	a.Close()
	a.RecordEvent(MetricsEvent{Name: EventTranscript})
	assert.Len(t, mem.Named(EventTranscript), 5)
	assert.Zero(t, a.Dropped())
}

func TestAsyncObserverCountsDrops(t *testing.T) {
	release := make(chan struct{})
	slow := observerFunc(func(MetricsEvent) { <-release })
	a := NewAsyncObserver(slow, 1, nil)

	// The first event may be picked up by the forwarder, so overfill by two.
	for i := 0; i < 4; i++ {
		a.RecordEvent(MetricsEvent{Name: EventTranscript})
	}
	close(release)
	a.Close()
	assert.GreaterOrEqual(t, a.Dropped(), int64(2))
}

type observerFunc func(MetricsEvent)

func (f observerFunc) RecordEvent(ev MetricsEvent) { f(ev) }

func TestMultiObserverSkipsNil(t *testing.T) {
	mem := NewMemoryObserver()
	MultiObserver{nil, mem, NoopObserver{}}.RecordEvent(MetricsEvent{Name: EventFailure})
	assert.Len(t, mem.Named(EventFailure), 1)
}
