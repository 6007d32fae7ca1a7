package tts

import (
	"context"
)

// Synthesizer is an ephemeral remote synthesis handle scoped to a single call.
type Synthesizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Speak synthesizes text and returns the encoded audio.
	Speak(ctx context.Context, text string) ([]byte, error)
	// Close releases the handle.
	Close() error
}

// Config contains vendor-agnostic synthesis configuration.
type Config struct {
	SubscriptionKey string
	Region          string
	VoiceName       string
	Language        string
}

// Factory constructs a handle for one call.
type Factory func(cfg Config) (Synthesizer, error)
