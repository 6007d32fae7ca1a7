package recognition

import (
	"time"

	"github.com/harunnryd/speechgate/pkg/errorsx"
)

type State int32

const (
	StateIdle State = iota
	StateAcquiringMedia
	StateConfiguring
	StateListening
	StateStopping
	// StateFailed is transient: the session passes through it on the way back to Idle.
	StateFailed
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAcquiringMedia:
		return "ACQUIRING_MEDIA"
	case StateConfiguring:
		return "CONFIGURING"
	case StateListening:
		return "LISTENING"
	case StateStopping:
		return "STOPPING"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// TranscriptUpdate is one interim or final transcript fragment.
type TranscriptUpdate struct {
	Text    string
	IsFinal bool
}

// StateChange represents a state transition event.
type StateChange struct {
	FromState State
	ToState   State
	Timestamp time.Time
	Reason    string
}

// Listener receives session output. Calls for one session are never concurrent.
type Listener interface {
	OnTranscript(update TranscriptUpdate)
	OnWaitingChanged(waiting bool)
	OnListeningChanged(listening bool)
	OnFailure(f errorsx.Failure)
}

// StateListener is implemented by listeners that also want transitions.
type StateListener interface {
	OnStateChange(event StateChange)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Transcript func(TranscriptUpdate)
	Waiting    func(bool)
	Listening  func(bool)
	Failure    func(errorsx.Failure)
	State      func(StateChange)
}

func (l ListenerFuncs) OnTranscript(u TranscriptUpdate) {
	if l.Transcript != nil {
		l.Transcript(u)
	}
}

func (l ListenerFuncs) OnWaitingChanged(v bool) {
	if l.Waiting != nil {
		l.Waiting(v)
	}
}

func (l ListenerFuncs) OnListeningChanged(v bool) {
	if l.Listening != nil {
		l.Listening(v)
	}
}

func (l ListenerFuncs) OnFailure(f errorsx.Failure) {
	if l.Failure != nil {
		l.Failure(f)
	}
}

func (l ListenerFuncs) OnStateChange(ev StateChange) {
	if l.State != nil {
		l.State(ev)
	}
}
