// Package recognition owns the continuous speech-to-text session lifecycle.
//
// A Session runs at most one attempt at a time. Each attempt is driven by a
// single goroutine that is the only writer of the attempt's state and
// recognizer handle; asynchronous work (media acquisition, remote start and
// stop) reports back to it as events.
package recognition

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/harunnryd/speechgate/pkg/adapters/stt"
	"github.com/harunnryd/speechgate/pkg/capture"
	"github.com/harunnryd/speechgate/pkg/credentials"
	"github.com/harunnryd/speechgate/pkg/errorsx"
	"github.com/harunnryd/speechgate/pkg/logging"
	"github.com/harunnryd/speechgate/pkg/metrics"
	"github.com/harunnryd/speechgate/pkg/notify"
	"github.com/harunnryd/speechgate/pkg/redact"
)

var nowFunc = time.Now

// ErrSessionActive is returned by Start while a previous attempt is still running.
var ErrSessionActive = errors.New("recognition session already active")

// Acquirer is the microphone capture contract.
type Acquirer interface {
	Acquire(ctx context.Context) (capture.Encoding, error)
}

// Config wires a Session to its collaborators.
type Config struct {
	Gate        *credentials.Gate
	Capture     Acquirer
	Recognizers stt.Factory
	Sink        notify.Sink
	Observer    metrics.Observer
	Logger      *slog.Logger
}

type Session struct {
	gate     *credentials.Gate
	capture  Acquirer
	factory  stt.Factory
	sink     notify.Sink
	obs      metrics.Observer
	logger   *slog.Logger
	listener Listener

	state atomic.Int32

	mu      sync.Mutex
	current *attempt
}

// attempt is one start-to-idle run. Every field below logger is touched only
// by the loop goroutine. startDone and stopDone close when the remote call
// they track returns; no other handle call may begin before that.
type attempt struct {
	id          string
	ctx         context.Context
	cancel      context.CancelFunc
	creds       credentials.Credentials
	language    string
	queue       chan event
	done        chan struct{}
	logger      *slog.Logger
	state       State
	encoding    capture.Encoding
	handle      stt.Recognizer
	events      <-chan stt.Event
	starting    bool
	stopPending bool
	startDone   chan struct{}
	stopDone    chan struct{}
}

func NewSession(cfg Config, listener Listener) *Session {
	if cfg.Gate == nil {
		cfg.Gate = credentials.NewGate(nil)
	}
	if cfg.Sink == nil {
		cfg.Sink = notify.Noop{}
	}
	if cfg.Observer == nil {
		cfg.Observer = metrics.NoopObserver{}
	}
	if listener == nil {
		listener = ListenerFuncs{}
	}
	return &Session{
		gate:     cfg.Gate,
		capture:  cfg.Capture,
		factory:  cfg.Recognizers,
		sink:     cfg.Sink,
		obs:      cfg.Observer,
		logger:   logging.NewComponentLogger(cfg.Logger, "recognition"),
		listener: listener,
	}
}

// State returns the current state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Start begins a recognition attempt and returns once it is under way.
// The access code is checked synchronously: a mismatch notifies the sink,
// clears both flags and returns the error without touching the microphone.
// Credentials are checked after media acquisition. Cancelling ctx acts as Stop.
func (s *Session) Start(ctx context.Context, creds credentials.Credentials, language, accessCode string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return ErrSessionActive
	}
	if err := s.gate.CheckAccessCode(accessCode); err != nil {
		s.mu.Unlock()
		s.logger.Warn("recognition_access_denied")
		s.report(s.logger, errorsx.NewFailure(errorsx.ReasonInvalidAccessCode, err))
		s.listener.OnListeningChanged(false)
		s.listener.OnWaitingChanged(false)
		return err
	}

	id := uuid.NewString()
	actx, cancel := context.WithCancel(ctx)
	a := &attempt{
		id:       id,
		ctx:      actx,
		cancel:   cancel,
		creds:    creds,
		language: language,
		queue:    make(chan event, 16),
		done:     make(chan struct{}),
		logger:   s.logger.With(slog.String("session_id", id)),
		state:    StateIdle,
	}
	s.current = a
	s.mu.Unlock()

	a.logger.Info("recognition_start_requested",
		slog.String("language", language),
		slog.String("region", creds.Region),
		slog.String("subscription_key", redact.Key(creds.SubscriptionKey)))

	s.listener.OnListeningChanged(true)
	s.setState(a, StateAcquiringMedia, "start requested")
	go s.run(a)
	return nil
}

// Stop requests termination of the active attempt. It is a no-op while Idle
// and returns before the remote stop completes; use Wait to block.
func (s *Session) Stop() {
	s.mu.Lock()
	a := s.current
	s.mu.Unlock()
	if a == nil {
		return
	}
	a.post(event{kind: evStopRequested})
}

// Done returns a channel closed once the current attempt is back to Idle.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	a := s.current
	s.mu.Unlock()
	if a == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return a.done
}

// Wait blocks until the current attempt is back to Idle.
func (s *Session) Wait() {
	<-s.Done()
}

func (a *attempt) post(ev event) {
	select {
	case a.queue <- ev:
	case <-a.done:
	}
}

func (s *Session) run(a *attempt) {
	defer s.finish(a)

	go s.acquire(a)

	ctxDone := a.ctx.Done()
	for {
		var ev event
		select {
		case ev = <-a.queue:
		case rev, ok := <-a.events:
			if !ok {
				a.events = nil
				if a.handle == nil {
					continue
				}
				ev = event{kind: evSessionStopped}
			} else {
				ev = fromRecognizer(rev)
			}
		case <-ctxDone:
			ctxDone = nil
			ev = event{kind: evStopRequested}
		}
		if s.dispatch(a, ev) {
			return
		}
	}
}

func (s *Session) acquire(a *attempt) {
	if s.capture == nil {
		a.post(event{kind: evMediaFailed, err: errorsx.Wrap(capture.ErrPermissionDenied, errorsx.ReasonPermissionDenied)})
		return
	}
	enc, err := s.capture.Acquire(a.ctx)
	if err != nil {
		if a.ctx.Err() != nil {
			return
		}
		a.post(event{kind: evMediaFailed, err: err})
		return
	}
	a.post(event{kind: evMediaGranted, encoding: enc})
}

// dispatch applies ev and every event produced synchronously by its effects.
// It returns true once the attempt is back to Idle.
func (s *Session) dispatch(a *attempt, first event) bool {
	pending := []event{first}
	for len(pending) > 0 {
		ev := pending[0]
		pending = pending[1:]

		switch ev.kind {
		case evMediaGranted:
			a.encoding = ev.encoding
		case evStartSucceeded, evStartFailed:
			a.starting = false
		}
		next, effects, reason := transition(a.state, ev)
		if next == a.state && len(effects) == 0 {
			a.logger.Debug("recognition_event_ignored",
				slog.String("event", ev.kind.String()),
				slog.String("state", a.state.String()))
			continue
		}
		if next != a.state {
			s.setState(a, next, reason)
		}
		for _, eff := range effects {
			if follow, ok := s.execute(a, eff); ok {
				pending = append(pending, follow)
			}
		}
		if a.state == StateFailed {
			s.setState(a, StateIdle, reason)
		}
		if a.state == StateIdle {
			return true
		}
	}
	return false
}

func (s *Session) execute(a *attempt, eff effect) (event, bool) {
	switch eff.kind {
	case effEmitWaiting:
		s.listener.OnWaitingChanged(eff.on)
	case effEmitListening:
		s.listener.OnListeningChanged(eff.on)
	case effEmitTranscript:
		a.logger.Debug("transcript_received",
			slog.String("text", redact.Text(eff.update.Text)),
			slog.Bool("is_final", eff.update.IsFinal))
		s.obs.RecordEvent(metrics.MetricsEvent{
			Name:  metrics.EventTranscript,
			Time:  nowFunc(),
			Value: 1,
			Tags:  map[string]string{"final": strconv.FormatBool(eff.update.IsFinal), "session_id": a.id},
		})
		s.listener.OnTranscript(eff.update)
	case effFail:
		s.report(a.logger, eff.failure)
	case effValidate:
		if err := s.gate.CheckCredentials(a.creds); err != nil {
			return event{kind: evValidationFailed, err: err}, true
		}
		return event{kind: evValidated}, true
	case effOpen:
		return s.open(a)
	case effStopHandle:
		s.stopHandle(a)
	case effRelease:
		s.release(a, eff.on)
	case effCancelPending:
		a.cancel()
	}
	return event{}, false
}

// open constructs the recognizer and issues the asynchronous start.
func (s *Session) open(a *attempt) (event, bool) {
	if a.handle != nil {
		s.release(a, true)
	}
	if s.factory == nil {
		return event{kind: evStartFailed, err: errors.New("no recognizer configured")}, true
	}
	h, err := s.factory(stt.Config{
		SessionID:       a.id,
		SubscriptionKey: a.creds.SubscriptionKey,
		Region:          a.creds.Region,
		Language:        a.language,
		Encoding:        string(a.encoding),
	})
	if err == nil && h == nil {
		err = errors.New("recognizer factory returned no handle")
	}
	if err != nil {
		return event{kind: evStartFailed, err: err}, true
	}
	a.handle = h
	a.events = h.Events()
	a.logger.Info("recognition_handle_opened", slog.String("adapter", h.Name()))

	remote := context.WithoutCancel(a.ctx)
	done := make(chan struct{})
	a.starting = true
	a.startDone = done
	go func() {
		err := h.Start(remote)
		close(done)
		if err != nil {
			a.post(event{kind: evStartFailed, err: err})
			return
		}
		a.post(event{kind: evStartSucceeded})
	}()
	return event{}, false
}

// stopHandle issues the asynchronous remote stop. While the start is still in
// flight it does nothing; the start result reissues it.
func (s *Session) stopHandle(a *attempt) {
	h := a.handle
	if h == nil || a.stopPending || a.starting {
		return
	}
	a.stopPending = true
	remote := context.WithoutCancel(a.ctx)
	done := make(chan struct{})
	a.stopDone = done
	go func() {
		err := h.Stop(remote)
		close(done)
		a.post(event{kind: evStopCompleted, err: err})
	}()
}

// awaitRemote blocks until in-flight Start and Stop calls have returned.
func (a *attempt) awaitRemote() {
	if a.startDone != nil {
		<-a.startDone
	}
	if a.stopDone != nil {
		<-a.stopDone
	}
}

// release is the single point where the handle is dropped: it clears the
// field, optionally issues a remote stop, then closes the handle.
func (s *Session) release(a *attempt, stop bool) {
	h := a.handle
	if h == nil {
		return
	}
	a.handle = nil
	a.events = nil
	a.awaitRemote()
	a.starting = false

	if stop && !a.stopPending {
		if err := h.Stop(context.WithoutCancel(a.ctx)); err != nil {
			a.logger.Warn("recognition_stop_failed", slog.String("error", err.Error()))
		}
	}
	if err := h.Close(); err != nil {
		a.logger.Warn("recognition_close_failed", slog.String("error", err.Error()))
	}
	a.logger.Info("recognition_handle_released", slog.String("adapter", h.Name()))
}

func (s *Session) finish(a *attempt) {
	s.release(a, true)
	a.cancel()

	s.mu.Lock()
	if s.current == a {
		s.current = nil
	}
	s.mu.Unlock()
	close(a.done)
	a.logger.Info("recognition_attempt_finished")
}

func (s *Session) setState(a *attempt, next State, reason string) {
	prev := a.state
	a.state = next
	s.state.Store(int32(next))

	change := StateChange{FromState: prev, ToState: next, Timestamp: nowFunc(), Reason: reason}
	a.logger.Debug("recognition_state_changed",
		slog.String("from", prev.String()),
		slog.String("to", next.String()),
		slog.String("reason", reason))
	s.obs.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventRecognitionState,
		Time:  change.Timestamp,
		Value: 1,
		Tags:  map[string]string{"from": prev.String(), "to": next.String(), "session_id": a.id},
	})
	if sl, ok := s.listener.(StateListener); ok {
		sl.OnStateChange(change)
	}
}

// report surfaces a failure to the sink, the metrics observer and the listener.
func (s *Session) report(logger *slog.Logger, f errorsx.Failure) {
	logger.Warn("recognition_failure",
		slog.String("kind", string(f.Kind)),
		slog.String("detail", f.Detail))
	s.obs.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventFailure,
		Time:  f.Time,
		Value: 1,
		Tags:  map[string]string{"kind": string(f.Kind)},
	})
	notify.Dispatch(s.sink, f)
	s.listener.OnFailure(f)
}
