package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harunnryd/speechgate/pkg/adapters/stt"
)

type STTConfig struct {
	// Script is emitted in order once Start succeeds.
	Script []stt.Event
	// StopAfterScript appends a server-initiated session stop.
	StopAfterScript bool
	StartErr        error
	StopErr         error
	StartDelay      time.Duration
	// StopGate, when set, holds Stop until it is closed.
	StopGate <-chan struct{}
}

// Recognizer is a scripted stt.Recognizer that also accepts events pushed by tests.
type Recognizer struct {
	cfg STTConfig
	buf *stt.Buffer

	mu      sync.Mutex
	started bool
	calls   []string
	active  int
	overlap bool

	starts atomic.Int32
	stops  atomic.Int32
	closes atomic.Int32
}

func NewSTT(cfg STTConfig) *Recognizer {
	return &Recognizer{cfg: cfg, buf: stt.NewBuffer()}
}

// ScriptFromText builds interim-then-final events for each phrase.
func ScriptFromText(phrases ...string) []stt.Event {
	var out []stt.Event
	for _, p := range phrases {
		out = append(out,
			stt.Event{Kind: stt.EventRecognizing, Result: &stt.Result{Text: p}},
			stt.Event{Kind: stt.EventRecognized, Result: &stt.Result{Text: p}},
		)
	}
	return out
}

// NewSTTFactory returns a factory producing a fresh scripted recognizer per session.
func NewSTTFactory(cfg STTConfig) stt.Factory {
	return func(stt.Config) (stt.Recognizer, error) {
		return NewSTT(cfg), nil
	}
}

func (r *Recognizer) Name() string { return "mock_stt" }

func (r *Recognizer) Start(ctx context.Context) error {
	r.starts.Add(1)
	r.enter("start")
	defer r.leave("start_done")
	if r.cfg.StartDelay > 0 {
		select {
		case <-time.After(r.cfg.StartDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.cfg.StartErr != nil {
		return r.cfg.StartErr
	}
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	for _, ev := range r.cfg.Script {
		r.Emit(ev)
	}
	if r.cfg.StopAfterScript {
		r.Emit(stt.Event{Kind: stt.EventSessionStopped})
	}
	return nil
}

func (r *Recognizer) Stop(ctx context.Context) error {
	r.stops.Add(1)
	r.enter("stop")
	defer r.leave("stop_done")
	if r.cfg.StopGate != nil {
		<-r.cfg.StopGate
	}
	r.mu.Lock()
	r.started = false
	r.mu.Unlock()
	return r.cfg.StopErr
}

func (r *Recognizer) Close() error {
	r.closes.Add(1)
	r.enter("close")
	defer r.leave("close_done")
	r.buf.Close()
	return nil
}

func (r *Recognizer) Events() <-chan stt.Event { return r.buf.Events() }

// Emit pushes ev to the session. It reports false once the handle is closed.
func (r *Recognizer) Emit(ev stt.Event) bool {
	return r.buf.Push(ev)
}

// Calls returns the handle calls in order, each paired with its "_done" return.
func (r *Recognizer) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Overlapped reports whether two of Start, Stop and Close ever ran at once.
func (r *Recognizer) Overlapped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlap
}

func (r *Recognizer) enter(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active++
	if r.active > 1 {
		r.overlap = true
	}
	r.calls = append(r.calls, call)
}

func (r *Recognizer) leave(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active--
	r.calls = append(r.calls, call)
}

func (r *Recognizer) Starts() int { return int(r.starts.Load()) }
func (r *Recognizer) Stops() int  { return int(r.stops.Load()) }
func (r *Recognizer) Closes() int { return int(r.closes.Load()) }

var _ stt.Recognizer = (*Recognizer)(nil)
