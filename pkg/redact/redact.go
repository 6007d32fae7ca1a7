// Package redact masks personal data in transcripts and secrets in logs.
package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

type rule struct {
	re   *regexp.Regexp
	mask string
}

// Order matters: card numbers are longer digit runs than phone numbers.
var transcriptRules = []rule{
	{regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b(?:\d[ \-]?){12,18}\d\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\+?\b\d[\d\s\-]{7,}\d\b`), "[REDACTED_PHONE]"},
}

// SetEnabled toggles redaction of transcript text.
func SetEnabled(v bool) {
	enabled.Store(v)
}

func Enabled() bool {
	return enabled.Load()
}

// Text masks emails, card numbers and phone numbers when enabled.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	for _, r := range transcriptRules {
		in = r.re.ReplaceAllString(in, r.mask)
	}
	return in
}

// Key masks a subscription key or access code, keeping the last four characters.
// Secrets are always masked, regardless of SetEnabled.
func Key(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	if len(in) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(in)-4) + in[len(in)-4:]
}
