package main

import (
	"bytes"
	"testing"

	"github.com/harunnryd/speechgate/pkg/recognition"
)

func TestTranscriptPrinterMarksFinals(t *testing.T) {
	var buf bytes.Buffer
	p := newTranscriptPrinter(&buf)
	p.OnTranscript(recognition.TranscriptUpdate{Text: "turn on"})
	p.OnTranscript(recognition.TranscriptUpdate{Text: "turn on the lights", IsFinal: true})

	want := "~ turn on\n> turn on the lights\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}
