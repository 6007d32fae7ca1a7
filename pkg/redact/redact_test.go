package redact

import (
	"strings"
	"testing"
)

func TestRedactDisabled(t *testing.T) {
	SetEnabled(false)
	in := "email a@b.com and phone +62 812 3456 7890"
	if got := Text(in); got != in {
		t.Fatalf("expected no redaction, got %q", got)
	}
}

func TestRedactEnabled(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	in := "call me at +1 415 555 0199 or mail a@b.com"
	got := Text(in)
	if got == in {
		t.Fatalf("expected redaction")
	}
	if want := "[REDACTED_EMAIL]"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in output", want)
	}
	if want := "[REDACTED_PHONE]"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in output", want)
	}
}

func TestRedactCardNumber(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	got := Text("my card is 4111 1111 1111 1111 thanks")
	if got != "my card is [REDACTED_CARD] thanks" {
		t.Fatalf("unexpected redaction %q", got)
	}
	if !Enabled() {
		t.Fatalf("expected redaction enabled")
	}
}

func TestKeyMasksAllButTail(t *testing.T) {
	if got := Key("0123456789abcdef"); got != "************cdef" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := Key("abc"); got != "****" {
		t.Fatalf("short keys must be fully masked, got %q", got)
	}
	if got := Key("  "); got != "" {
		t.Fatalf("empty key should stay empty, got %q", got)
	}
}
