package recognition

import (
	"github.com/harunnryd/speechgate/pkg/adapters/stt"
	"github.com/harunnryd/speechgate/pkg/capture"
	"github.com/harunnryd/speechgate/pkg/errorsx"
)

type eventKind int

const (
	evMediaGranted eventKind = iota
	evMediaFailed
	evValidated
	evValidationFailed
	evStartSucceeded
	evStartFailed
	evInterim
	evFinal
	evCanceled
	evSessionStopped
	evStopRequested
	evStopCompleted
)

func (k eventKind) String() string {
	switch k {
	case evMediaGranted:
		return "media_granted"
	case evMediaFailed:
		return "media_failed"
	case evValidated:
		return "validated"
	case evValidationFailed:
		return "validation_failed"
	case evStartSucceeded:
		return "start_succeeded"
	case evStartFailed:
		return "start_failed"
	case evInterim:
		return "interim_result"
	case evFinal:
		return "final_result"
	case evCanceled:
		return "canceled"
	case evSessionStopped:
		return "session_stopped"
	case evStopRequested:
		return "stop_requested"
	case evStopCompleted:
		return "stop_completed"
	default:
		return "unknown"
	}
}

type event struct {
	kind     eventKind
	text     string
	result   bool
	code     stt.CancellationCode
	details  string
	encoding capture.Encoding
	err      error
}

type effectKind int

const (
	effEmitWaiting effectKind = iota
	effEmitListening
	effEmitTranscript
	effFail
	effValidate
	effOpen
	effStopHandle
	effRelease
	effCancelPending
)

type effect struct {
	kind    effectKind
	on      bool
	update  TranscriptUpdate
	failure errorsx.Failure
}

func waiting(v bool) effect   { return effect{kind: effEmitWaiting, on: v} }
func listening(v bool) effect { return effect{kind: effEmitListening, on: v} }

// fail reports kind, or the reason carried by err when fallback is set.
func fail(kind errorsx.ReasonCode, err error, fallback bool) effect {
	if fallback {
		if r := errorsx.Reason(err); r != errorsx.ReasonUnknown {
			kind = r
		}
	}
	f := errorsx.Failure{Kind: kind, Time: nowFunc()}
	if err != nil {
		f.Detail = err.Error()
	}
	return effect{kind: effFail, failure: f}
}

// release is the only effect that drops the handle. stop issues a remote stop first.
func release(stop bool) effect { return effect{kind: effRelease, on: stop} }

// settle clears both UI flags after the handle is gone.
func settle(prefix ...effect) []effect {
	return append(prefix, waiting(false), listening(false))
}

// transition is the whole session lifecycle. It is pure: the session applies
// the returned effects in order.
func transition(st State, ev event) (State, []effect, string) {
	switch st {
	case StateAcquiringMedia:
		switch ev.kind {
		case evMediaGranted:
			return StateConfiguring, []effect{waiting(true), {kind: effValidate}}, "media granted"
		case evMediaFailed:
			return StateFailed, settle(fail(errorsx.ReasonPermissionDenied, ev.err, true)), "media acquisition failed"
		case evStopRequested:
			return StateIdle, settle(effect{kind: effCancelPending}), "stopped before media"
		}

	case StateConfiguring:
		switch ev.kind {
		case evValidated:
			return StateListening, []effect{{kind: effOpen}}, "credentials validated"
		case evValidationFailed:
			return StateFailed, settle(fail(errorsx.ReasonMissingCredentials, ev.err, true)), "credentials rejected"
		case evStopRequested:
			return StateIdle, settle(), "stopped before recognizer"
		}

	case StateListening:
		switch ev.kind {
		case evStartSucceeded:
			return StateListening, []effect{waiting(false)}, "recognition started"
		case evStartFailed:
			return StateFailed, settle(fail(errorsx.ReasonRecognitionStartFailed, ev.err, false), release(true)), "recognition start failed"
		case evInterim:
			return StateListening, transcript(ev, false), ""
		case evFinal:
			return StateListening, transcript(ev, true), ""
		case evCanceled:
			return StateFailed, settle(cancellation(ev), release(false)), "canceled by service"
		case evSessionStopped:
			return StateIdle, settle(release(true)), "session stopped by service"
		case evStopRequested:
			return StateStopping, []effect{{kind: effStopHandle}}, "stop requested"
		}

	case StateStopping:
		switch ev.kind {
		case evInterim:
			return StateStopping, transcript(ev, false), ""
		case evFinal:
			return StateStopping, transcript(ev, true), ""
		case evStartSucceeded:
			return StateStopping, []effect{{kind: effStopHandle}}, "stop after start"
		case evStopCompleted, evSessionStopped:
			return StateIdle, settle(release(false)), "stopped"
		case evStartFailed:
			return StateIdle, settle(release(false)), "stopped during start"
		case evCanceled:
			return StateFailed, settle(cancellation(ev), release(false)), "canceled while stopping"
		}
	}
	return st, nil, ""
}

func transcript(ev event, final bool) []effect {
	if final && !ev.result {
		return nil
	}
	return []effect{{kind: effEmitTranscript, update: TranscriptUpdate{Text: ev.text, IsFinal: final}}}
}

// cancellation separates authentication failures from generic cancellation.
func cancellation(ev event) effect {
	detail := ev.details
	if detail == "" {
		detail = string(ev.code)
	}
	kind := errorsx.ReasonRecognitionCanceled
	if ev.code == stt.CancelAuthentication {
		kind = errorsx.ReasonInvalidCredentials
	}
	return effect{kind: effFail, failure: errorsx.Failure{Kind: kind, Detail: detail, Time: nowFunc()}}
}

func fromRecognizer(rev stt.Event) event {
	switch rev.Kind {
	case stt.EventRecognizing:
		ev := event{kind: evInterim, result: rev.Result != nil}
		if rev.Result != nil {
			ev.text = rev.Result.Text
		}
		return ev
	case stt.EventRecognized:
		ev := event{kind: evFinal, result: rev.Result != nil}
		if rev.Result != nil {
			ev.text = rev.Result.Text
		}
		return ev
	case stt.EventCanceled:
		return event{kind: evCanceled, code: rev.Code, details: rev.Details}
	default:
		return event{kind: evSessionStopped}
	}
}
