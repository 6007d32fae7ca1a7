package speechgate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harunnryd/speechgate/pkg/adapters/stt"
	"github.com/harunnryd/speechgate/pkg/adapters/tts"
	"github.com/harunnryd/speechgate/pkg/configutil"
	"github.com/harunnryd/speechgate/pkg/providers/deepgram"
	"github.com/harunnryd/speechgate/pkg/providers/elevenlabs"
	"github.com/harunnryd/speechgate/pkg/providers/mock"
)

type RecognizerBuilder func(cfg Config) (stt.Factory, error)
type SynthesizerBuilder func(cfg Config) (tts.Factory, error)

type ProviderRegistry struct {
	stt map[string]RecognizerBuilder
	tts map[string]SynthesizerBuilder
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		stt: make(map[string]RecognizerBuilder),
		tts: make(map[string]SynthesizerBuilder),
	}
}

func (r *ProviderRegistry) RegisterSTT(name string, builder RecognizerBuilder) {
	r.stt[strings.ToLower(strings.TrimSpace(name))] = builder
}

func (r *ProviderRegistry) RegisterTTS(name string, builder SynthesizerBuilder) {
	r.tts[strings.ToLower(strings.TrimSpace(name))] = builder
}

func (r *ProviderRegistry) BuildSTT(provider string, cfg Config) (stt.Factory, error) {
	fn := r.stt[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("stt provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildTTS(provider string, cfg Config) (tts.Factory, error) {
	fn := r.tts[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("tts provider not registered: %s", provider)
	}
	return fn(cfg)
}

// DefaultProviders registers every built-in vendor. The azure vendor is
// compiled in only with the azure build tag.
func DefaultProviders() *ProviderRegistry {
	reg := NewProviderRegistry()
	registerAzure(reg)
	reg.RegisterSTT("deepgram", buildDeepgramSTT)
	reg.RegisterSTT("mock", buildMockSTT)
	reg.RegisterTTS("elevenlabs", buildElevenLabsTTS)
	reg.RegisterTTS("mock", buildMockTTS)
	return reg
}

type deepgramSettings struct {
	Model          string `mapstructure:"model"`
	SampleRate     int    `mapstructure:"sample_rate"`
	UtteranceEndMS *int   `mapstructure:"utterance_end_ms"`
	VADEvents      *bool  `mapstructure:"vad_events"`
	AudioFile      string `mapstructure:"audio_file"`
}

type elevenlabsSettings struct {
	VoiceID      string `mapstructure:"voice_id"`
	ModelID      string `mapstructure:"model_id"`
	OutputFormat string `mapstructure:"output_format"`
	BaseURL      string `mapstructure:"base_url"`
}

type mockSTTSettings struct {
	Transcripts []string `mapstructure:"transcripts"`
	StopAfter   *bool    `mapstructure:"stop_after"`
	StartError  string   `mapstructure:"start_error"`
	CancelCode  string   `mapstructure:"cancel_code"`
}

type mockTTSSettings struct {
	AudioBytes int    `mapstructure:"audio_bytes"`
	Error      string `mapstructure:"error"`
}

func buildDeepgramSTT(cfg Config) (stt.Factory, error) {
	if err := configutil.Validate("vendors.stt.settings", cfg.Vendors.STT.Settings, configutil.Schema{
		Optional: []string{"model", "sample_rate", "utterance_end_ms", "vad_events", "audio_file"},
	}); err != nil {
		return nil, err
	}
	var settings deepgramSettings
	if err := configutil.Decode(cfg.Vendors.STT.Settings, &settings); err != nil {
		return nil, err
	}
	utteranceEnd := configutil.IntValue(settings.UtteranceEndMS, 1000)
	if utteranceEnd < 0 || utteranceEnd > 5000 {
		return nil, fmt.Errorf("vendors.stt.settings.utterance_end_ms must be between 0 and 5000, got %d", utteranceEnd)
	}
	return deepgram.NewFactory(deepgram.Options{
		Model:          settings.Model,
		SampleRate:     settings.SampleRate,
		UtteranceEndMS: utteranceEnd,
		VADEvents:      configutil.BoolValue(settings.VADEvents, false),
	}, audioSource(settings.AudioFile)), nil
}

// audioSource opens path per session. "-" or an empty path reads stdin.
func audioSource(path string) deepgram.AudioSource {
	path = strings.TrimSpace(path)
	return func() (io.ReadCloser, error) {
		if path == "" || path == "-" {
			return io.NopCloser(os.Stdin), nil
		}
		return os.Open(path)
	}
}

func buildMockSTT(cfg Config) (stt.Factory, error) {
	if err := configutil.Validate("vendors.stt.settings", cfg.Vendors.STT.Settings, configutil.Schema{
		Optional: []string{"transcripts", "stop_after", "start_error", "cancel_code"},
	}); err != nil {
		return nil, err
	}
	var settings mockSTTSettings
	if err := configutil.Decode(cfg.Vendors.STT.Settings, &settings); err != nil {
		return nil, err
	}
	sttCfg := mock.STTConfig{
		Script:          mock.ScriptFromText(settings.Transcripts...),
		StopAfterScript: configutil.BoolValue(settings.StopAfter, true),
	}
	if settings.StartError != "" {
		sttCfg.StartErr = errors.New(settings.StartError)
	}
	if settings.CancelCode != "" {
		sttCfg.Script = append(sttCfg.Script, stt.Event{
			Kind:    stt.EventCanceled,
			Code:    stt.CancellationCode(settings.CancelCode),
			Details: "scripted cancellation",
		})
		sttCfg.StopAfterScript = false
	}
	return mock.NewSTTFactory(sttCfg), nil
}

func buildElevenLabsTTS(cfg Config) (tts.Factory, error) {
	if err := configutil.Validate("vendors.tts.settings", cfg.Vendors.TTS.Settings, configutil.Schema{
		Optional: []string{"voice_id", "model_id", "output_format", "base_url"},
	}); err != nil {
		return nil, err
	}
	var settings elevenlabsSettings
	if err := configutil.Decode(cfg.Vendors.TTS.Settings, &settings); err != nil {
		return nil, err
	}
	return elevenlabs.NewFactory(elevenlabs.Config{
		VoiceID:      settings.VoiceID,
		ModelID:      settings.ModelID,
		OutputFormat: settings.OutputFormat,
		BaseURL:      settings.BaseURL,
	}), nil
}

func buildMockTTS(cfg Config) (tts.Factory, error) {
	if err := configutil.Validate("vendors.tts.settings", cfg.Vendors.TTS.Settings, configutil.Schema{
		Optional: []string{"audio_bytes", "error"},
	}); err != nil {
		return nil, err
	}
	var settings mockTTSSettings
	if err := configutil.Decode(cfg.Vendors.TTS.Settings, &settings); err != nil {
		return nil, err
	}
	ttsCfg := mock.TTSConfig{}
	if settings.AudioBytes > 0 {
		ttsCfg.Audio = make([]byte, settings.AudioBytes)
	}
	if settings.Error != "" {
		ttsCfg.Err = errors.New(settings.Error)
	}
	return mock.NewTTSFactory(ttsCfg), nil
}
