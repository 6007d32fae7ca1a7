package metrics

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/harunnryd/speechgate/pkg/logging"
)

// AsyncObserver moves recording off the session loop. When the buffer is
// full the event is dropped and counted per event name.
type AsyncObserver struct {
	inner  Observer
	logger *slog.Logger
	queue  chan MetricsEvent
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
	once   sync.Once

	dropped   atomic.Int64
	dropMu    sync.Mutex
	dropNames map[string]int64
}

func NewAsyncObserver(inner Observer, buffer int, logger *slog.Logger) *AsyncObserver {
	if buffer <= 0 {
		buffer = 256
	}
	if inner == nil {
		inner = NoopObserver{}
	}
	a := &AsyncObserver{
		inner:     inner,
		logger:    logging.NewComponentLogger(logger, "metrics"),
		queue:     make(chan MetricsEvent, buffer),
		dropNames: make(map[string]int64),
	}
	a.wg.Add(1)
	go a.forward()
	return a
}

func (a *AsyncObserver) RecordEvent(ev MetricsEvent) {
	if a == nil {
		return
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- ev:
	default:
		a.dropped.Add(1)
		a.dropMu.Lock()
		a.dropNames[ev.Name]++
		a.dropMu.Unlock()
	}
}

func (a *AsyncObserver) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops accepting events, flushes the queue and logs any drops.
func (a *AsyncObserver) Close() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
	})
	a.wg.Wait()

	if n := a.dropped.Load(); n > 0 {
		a.dropMu.Lock()
		attrs := []any{slog.Int64("total", n)}
		for name, count := range a.dropNames {
			attrs = append(attrs, slog.Int64(name, count))
		}
		a.dropMu.Unlock()
		a.logger.Warn("metrics_events_dropped", attrs...)
	}
}

func (a *AsyncObserver) forward() {
	defer a.wg.Done()
	for ev := range a.queue {
		a.inner.RecordEvent(ev)
	}
}
