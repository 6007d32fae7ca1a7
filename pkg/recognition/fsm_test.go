package recognition

import (
	"errors"
	"testing"

	"github.com/harunnryd/speechgate/pkg/adapters/stt"
	"github.com/harunnryd/speechgate/pkg/capture"
	"github.com/harunnryd/speechgate/pkg/errorsx"
)

func kinds(effects []effect) []effectKind {
	out := make([]effectKind, 0, len(effects))
	for _, e := range effects {
		out = append(out, e.kind)
	}
	return out
}

func failureOf(t *testing.T, effects []effect) errorsx.Failure {
	t.Helper()
	for _, e := range effects {
		if e.kind == effFail {
			return e.failure
		}
	}
	t.Fatalf("expected a failure effect in %v", kinds(effects))
	return errorsx.Failure{}
}

func countKind(effects []effect, k effectKind) int {
	n := 0
	for _, e := range effects {
		if e.kind == k {
			n++
		}
	}
	return n
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		name string
		from State
		ev   event
		to   State
	}{
		{"media granted", StateAcquiringMedia, event{kind: evMediaGranted}, StateConfiguring},
		{"media denied", StateAcquiringMedia, event{kind: evMediaFailed}, StateFailed},
		{"stop before media", StateAcquiringMedia, event{kind: evStopRequested}, StateIdle},
		{"validated", StateConfiguring, event{kind: evValidated}, StateListening},
		{"validation failed", StateConfiguring, event{kind: evValidationFailed}, StateFailed},
		{"stop while configuring", StateConfiguring, event{kind: evStopRequested}, StateIdle},
		{"start ok", StateListening, event{kind: evStartSucceeded}, StateListening},
		{"start failed", StateListening, event{kind: evStartFailed}, StateFailed},
		{"interim", StateListening, event{kind: evInterim, result: true}, StateListening},
		{"canceled", StateListening, event{kind: evCanceled}, StateFailed},
		{"server stop", StateListening, event{kind: evSessionStopped}, StateIdle},
		{"user stop", StateListening, event{kind: evStopRequested}, StateStopping},
		{"stop completed", StateStopping, event{kind: evStopCompleted}, StateIdle},
		{"server stop while stopping", StateStopping, event{kind: evSessionStopped}, StateIdle},
		{"late start failure", StateStopping, event{kind: evStartFailed}, StateIdle},
		{"late start success", StateStopping, event{kind: evStartSucceeded}, StateStopping},
		{"cancel while stopping", StateStopping, event{kind: evCanceled}, StateFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, _, _ := transition(tc.from, tc.ev)
			if next != tc.to {
				t.Fatalf("expected %s, got %s", tc.to, next)
			}
		})
	}
}

func TestTransitionIgnoresUnexpectedEvents(t *testing.T) {
	cases := []struct {
		from State
		ev   eventKind
	}{
		{StateIdle, evStopRequested},
		{StateIdle, evFinal},
		{StateAcquiringMedia, evFinal},
		{StateListening, evMediaGranted},
		{StateStopping, evStopRequested},
	}
	for _, tc := range cases {
		next, effects, _ := transition(tc.from, event{kind: tc.ev, result: true})
		if next != tc.from || len(effects) != 0 {
			t.Fatalf("%s/%s: expected no-op, got %s %v", tc.from, tc.ev, next, kinds(effects))
		}
	}
}

func TestTerminalTransitionsReleaseOnceAndClearFlags(t *testing.T) {
	terminal := []struct {
		from State
		ev   event
	}{
		{StateListening, event{kind: evStartFailed, err: errors.New("boom")}},
		{StateListening, event{kind: evCanceled}},
		{StateListening, event{kind: evSessionStopped}},
		{StateStopping, event{kind: evStopCompleted}},
		{StateStopping, event{kind: evCanceled}},
	}
	for _, tc := range terminal {
		_, effects, _ := transition(tc.from, tc.ev)
		if got := countKind(effects, effRelease); got != 1 {
			t.Fatalf("%s/%s: expected one release, got %d", tc.from, tc.ev.kind, got)
		}
		n := len(effects)
		if effects[n-2].kind != effEmitWaiting || effects[n-2].on {
			t.Fatalf("%s/%s: expected waiting=false before last", tc.from, tc.ev.kind)
		}
		if effects[n-1].kind != effEmitListening || effects[n-1].on {
			t.Fatalf("%s/%s: expected listening=false last", tc.from, tc.ev.kind)
		}
	}
}

func TestStopWaitsForPendingStart(t *testing.T) {
	_, effects, _ := transition(StateStopping, event{kind: evStartSucceeded})
	if len(effects) != 1 || effects[0].kind != effStopHandle {
		t.Fatalf("expected the deferred stop to be issued, got %v", kinds(effects))
	}

	_, effects, _ = transition(StateStopping, event{kind: evStartFailed, err: errors.New("dial")})
	for _, e := range effects {
		if e.kind == effFail {
			t.Fatalf("a start failure after stop must not be reported: %v", kinds(effects))
		}
		if e.kind == effRelease && e.on {
			t.Fatalf("a handle that never started must not be stopped")
		}
	}
}

func TestReleaseComesBeforeFlagsClear(t *testing.T) {
	_, effects, _ := transition(StateListening, event{kind: evCanceled})
	release := -1
	for i, e := range effects {
		if e.kind == effRelease {
			release = i
		}
		if e.kind == effEmitListening && release < 0 {
			t.Fatalf("listening cleared before release: %v", kinds(effects))
		}
	}
}

func TestMediaFailureKeepsCaptureReason(t *testing.T) {
	err := errorsx.Wrap(capture.ErrNoSupportedFormat, errorsx.ReasonUnsupportedAudioFormat)
	_, effects, _ := transition(StateAcquiringMedia, event{kind: evMediaFailed, err: err})
	if f := failureOf(t, effects); f.Kind != errorsx.ReasonUnsupportedAudioFormat {
		t.Fatalf("expected unsupported_audio_format, got %s", f.Kind)
	}

	_, effects, _ = transition(StateAcquiringMedia, event{kind: evMediaFailed, err: errors.New("denied")})
	if f := failureOf(t, effects); f.Kind != errorsx.ReasonPermissionDenied {
		t.Fatalf("expected permission_denied, got %s", f.Kind)
	}
}

func TestStartFailureKindIsFixed(t *testing.T) {
	err := errorsx.Wrap(errors.New("dial"), errorsx.ReasonInvalidCredentials)
	_, effects, _ := transition(StateListening, event{kind: evStartFailed, err: err})
	if f := failureOf(t, effects); f.Kind != errorsx.ReasonRecognitionStartFailed {
		t.Fatalf("expected recognition_start_failed, got %s", f.Kind)
	}
}

func TestCancellationClassification(t *testing.T) {
	_, effects, _ := transition(StateListening, event{kind: evCanceled, code: stt.CancelAuthentication, details: "401"})
	f := failureOf(t, effects)
	if f.Kind != errorsx.ReasonInvalidCredentials || f.Detail != "401" {
		t.Fatalf("unexpected auth failure: %+v", f)
	}

	_, effects, _ = transition(StateListening, event{kind: evCanceled, code: stt.CancelConnection})
	f = failureOf(t, effects)
	if f.Kind != errorsx.ReasonRecognitionCanceled {
		t.Fatalf("expected recognition_canceled, got %s", f.Kind)
	}
	if f.Detail != string(stt.CancelConnection) {
		t.Fatalf("expected code as detail, got %q", f.Detail)
	}
}

func TestFinalWithoutResultIsDropped(t *testing.T) {
	_, effects, _ := transition(StateListening, event{kind: evFinal})
	if len(effects) != 0 {
		t.Fatalf("expected no effects, got %v", kinds(effects))
	}
	_, effects, _ = transition(StateListening, event{kind: evFinal, result: true, text: "hi"})
	if len(effects) != 1 || !effects[0].update.IsFinal || effects[0].update.Text != "hi" {
		t.Fatalf("unexpected final effects: %+v", effects)
	}
}

func TestFromRecognizer(t *testing.T) {
	ev := fromRecognizer(stt.Event{Kind: stt.EventRecognizing, Result: &stt.Result{Text: "he"}})
	if ev.kind != evInterim || ev.text != "he" || !ev.result {
		t.Fatalf("unexpected interim: %+v", ev)
	}
	ev = fromRecognizer(stt.Event{Kind: stt.EventRecognized})
	if ev.kind != evFinal || ev.result {
		t.Fatalf("unexpected empty final: %+v", ev)
	}
	ev = fromRecognizer(stt.Event{Kind: stt.EventCanceled, Code: stt.CancelAuthentication})
	if ev.kind != evCanceled || ev.code != stt.CancelAuthentication {
		t.Fatalf("unexpected cancel: %+v", ev)
	}
	if fromRecognizer(stt.Event{Kind: stt.EventSessionStopped}).kind != evSessionStopped {
		t.Fatalf("expected session stopped")
	}
}
