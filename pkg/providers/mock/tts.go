package mock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/harunnryd/speechgate/pkg/adapters/tts"
)

type TTSConfig struct {
	// Audio is returned by Speak. Empty means 320 bytes of silence.
	Audio []byte
	Err   error
	Delay time.Duration
}

// Synthesizer is a deterministic tts.Synthesizer.
type Synthesizer struct {
	cfg    TTSConfig
	speaks atomic.Int32
	closes atomic.Int32
	last   atomic.Value
}

func NewTTS(cfg TTSConfig) *Synthesizer {
	if len(cfg.Audio) == 0 && cfg.Err == nil {
		cfg.Audio = make([]byte, 320)
	}
	return &Synthesizer{cfg: cfg}
}

// NewTTSFactory returns a factory producing a fresh synthesizer per call.
func NewTTSFactory(cfg TTSConfig) tts.Factory {
	return func(tts.Config) (tts.Synthesizer, error) {
		return NewTTS(cfg), nil
	}
}

func (s *Synthesizer) Name() string { return "mock_tts" }

func (s *Synthesizer) Speak(ctx context.Context, text string) ([]byte, error) {
	s.speaks.Add(1)
	s.last.Store(text)
	if s.cfg.Delay > 0 {
		select {
		case <-time.After(s.cfg.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.cfg.Err != nil {
		return nil, s.cfg.Err
	}
	out := make([]byte, len(s.cfg.Audio))
	copy(out, s.cfg.Audio)
	return out, nil
}

func (s *Synthesizer) Close() error {
	s.closes.Add(1)
	return nil
}

func (s *Synthesizer) Speaks() int { return int(s.speaks.Load()) }
func (s *Synthesizer) Closes() int { return int(s.closes.Load()) }

// LastText returns the text of the most recent Speak call.
func (s *Synthesizer) LastText() string {
	v, _ := s.last.Load().(string)
	return v
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
