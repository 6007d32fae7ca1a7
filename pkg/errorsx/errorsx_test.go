package errorsx

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonSynthesisFailure)
	if Reason(err) != ReasonSynthesisFailure {
		t.Fatalf("expected reason %s, got %s", ReasonSynthesisFailure, Reason(err))
	}
	if !HasReason(err, ReasonSynthesisFailure) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonInvalidCredentials)
	second := Wrap(first, ReasonRecognitionCanceled)
	if Reason(second) != ReasonInvalidCredentials {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestForceReplacesReason(t *testing.T) {
	inner := Wrap(assertErr{}, ReasonInvalidCredentials)
	forced := Force(fmt.Errorf("speak: %w", inner), ReasonSynthesisFailure)
	if Reason(forced) != ReasonSynthesisFailure {
		t.Fatalf("expected forced reason, got %s", Reason(forced))
	}
	if !errors.Is(forced, assertErr{}) {
		t.Fatalf("expected cause to stay reachable")
	}
	if Force(nil, ReasonSynthesisFailure) != nil {
		t.Fatalf("expected nil force to stay nil")
	}
}

func TestReasonSurvivesFmtWrapping(t *testing.T) {
	inner := New(ReasonMissingCredentials, "region is empty")
	outer := fmt.Errorf("configure: %w", inner)
	if Reason(outer) != ReasonMissingCredentials {
		t.Fatalf("expected reason through %%w, got %s", Reason(outer))
	}
	if Reason(nil) != ReasonUnknown {
		t.Fatalf("expected unknown for nil")
	}
	if Wrap(nil, ReasonSynthesisFailure) != nil {
		t.Fatalf("expected nil wrap to stay nil")
	}
}

func TestNewFailure(t *testing.T) {
	f := NewFailure(ReasonRecognitionCanceled, Wrap(assertErr{}, ReasonInvalidCredentials))
	if f.Kind != ReasonInvalidCredentials {
		t.Fatalf("expected error reason to win, got %s", f.Kind)
	}
	if f.Detail != "boom" {
		t.Fatalf("unexpected detail %q", f.Detail)
	}

	f = NewFailure(ReasonPermissionDenied, errors.New("denied"))
	if f.Kind != ReasonPermissionDenied || f.Error() != "permission_denied: denied" {
		t.Fatalf("unexpected failure %+v", f)
	}
	if NewFailure(ReasonInvalidAccessCode, nil).Error() != "invalid_access_code" {
		t.Fatalf("expected bare kind without detail")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
