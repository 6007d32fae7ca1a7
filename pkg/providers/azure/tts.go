//go:build azure

package azure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"

	"github.com/harunnryd/speechgate/pkg/adapters/tts"
	"github.com/harunnryd/speechgate/pkg/logging"
	"github.com/harunnryd/speechgate/pkg/resilience"
)

// Synthesizer renders text to WAV audio. One instance serves one call.
type Synthesizer struct {
	cfg         tts.Config
	speechConf  *speech.SpeechConfig
	synthesizer *speech.SpeechSynthesizer
	logger      *slog.Logger
	closeOnce   sync.Once
}

func NewSynthesizer(cfg tts.Config) (*Synthesizer, error) {
	if cfg.SubscriptionKey == "" || cfg.Region == "" {
		return nil, fmt.Errorf("azure synthesizer requires subscription key and region")
	}
	conf, err := speech.NewSpeechConfigFromSubscription(cfg.SubscriptionKey, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("azure speech config: %w", err)
	}
	if cfg.Language != "" {
		if err := conf.SetSpeechSynthesisLanguage(cfg.Language); err != nil {
			conf.Close()
			return nil, fmt.Errorf("azure synthesis language: %w", err)
		}
	}
	if cfg.VoiceName != "" {
		if err := conf.SetSpeechSynthesisVoiceName(cfg.VoiceName); err != nil {
			conf.Close()
			return nil, fmt.Errorf("azure synthesis voice: %w", err)
		}
	}
	// nil audio config keeps the audio in the result instead of a speaker.
	synth, err := speech.NewSpeechSynthesizerFromConfig(conf, nil)
	if err != nil {
		conf.Close()
		return nil, fmt.Errorf("azure synthesizer: %w", err)
	}
	return &Synthesizer{
		cfg:         cfg,
		speechConf:  conf,
		synthesizer: synth,
		logger:      logging.NewComponentLogger(slog.Default(), "azure_tts"),
	}, nil
}

// SynthesizerFactory adapts NewSynthesizer to tts.Factory.
func SynthesizerFactory(cfg tts.Config) (tts.Synthesizer, error) {
	return NewSynthesizer(cfg)
}

func (s *Synthesizer) Name() string { return "azure_tts" }

func (s *Synthesizer) Speak(ctx context.Context, text string) ([]byte, error) {
	var outcome speech.SpeechSynthesisOutcome
	select {
	case outcome = <-s.synthesizer.SpeakTextAsync(text):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer outcome.Close()

	if outcome.Error != nil {
		return nil, fmt.Errorf("azure synthesis: %w", outcome.Error)
	}
	if outcome.Result.Reason != common.SynthesizingAudioCompleted {
		details, err := speech.NewCancellationDetailsFromSpeechSynthesisResult(outcome.Result)
		if err != nil {
			return nil, fmt.Errorf("azure synthesis: reason=%s", outcome.Result.Reason.String())
		}
		if details.ErrorCode == common.TooManyRequests {
			return nil, resilience.RateLimitError{Provider: s.Name(), Message: details.ErrorDetails}
		}
		return nil, fmt.Errorf("azure synthesis: reason=%s details=%s", outcome.Result.Reason.String(), details.ErrorDetails)
	}

	audio := make([]byte, len(outcome.Result.AudioData))
	copy(audio, outcome.Result.AudioData)
	s.logger.Debug("azure_synthesis_completed",
		slog.Int("bytes", len(audio)),
		slog.String("voice", s.cfg.VoiceName))
	return audio, nil
}

func (s *Synthesizer) Close() error {
	s.closeOnce.Do(func() {
		s.synthesizer.Close()
		s.speechConf.Close()
	})
	return nil
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
