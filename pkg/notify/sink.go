// Package notify delivers user-facing failure notifications. Every method is
// fire-and-forget: the caller never inspects a result.
package notify

import (
	"github.com/harunnryd/speechgate/pkg/errorsx"
)

// Sink receives categorized failures for display.
type Sink interface {
	InvalidAccessCode(f errorsx.Failure)
	EmptyCredentials(f errorsx.Failure)
	RecognitionError(f errorsx.Failure)
	SynthesisError(f errorsx.Failure)
}

// Method names used in published payloads.
const (
	MethodInvalidAccessCode = "invalid_access_code"
	MethodEmptyCredentials  = "empty_credentials"
	MethodRecognitionError  = "recognition_error"
	MethodSynthesisError    = "synthesis_error"
)

// MethodFor returns the sink method that surfaces kind.
func MethodFor(kind errorsx.ReasonCode) string {
	switch kind {
	case errorsx.ReasonInvalidAccessCode:
		return MethodInvalidAccessCode
	case errorsx.ReasonMissingCredentials:
		return MethodEmptyCredentials
	case errorsx.ReasonSynthesisFailure:
		return MethodSynthesisError
	default:
		return MethodRecognitionError
	}
}

// Dispatch routes f to the sink method for its kind. A nil sink drops it.
func Dispatch(s Sink, f errorsx.Failure) {
	if s == nil {
		return
	}
	switch MethodFor(f.Kind) {
	case MethodInvalidAccessCode:
		s.InvalidAccessCode(f)
	case MethodEmptyCredentials:
		s.EmptyCredentials(f)
	case MethodSynthesisError:
		s.SynthesisError(f)
	default:
		s.RecognitionError(f)
	}
}

// Multi fans a notification out to every sink.
type Multi []Sink

func (m Multi) InvalidAccessCode(f errorsx.Failure) {
	for _, s := range m {
		s.InvalidAccessCode(f)
	}
}

func (m Multi) EmptyCredentials(f errorsx.Failure) {
	for _, s := range m {
		s.EmptyCredentials(f)
	}
}

func (m Multi) RecognitionError(f errorsx.Failure) {
	for _, s := range m {
		s.RecognitionError(f)
	}
}

func (m Multi) SynthesisError(f errorsx.Failure) {
	for _, s := range m {
		s.SynthesisError(f)
	}
}

// Noop discards notifications.
type Noop struct{}

func (Noop) InvalidAccessCode(errorsx.Failure) {}
func (Noop) EmptyCredentials(errorsx.Failure)  {}
func (Noop) RecognitionError(errorsx.Failure)  {}
func (Noop) SynthesisError(errorsx.Failure)    {}
