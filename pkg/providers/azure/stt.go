//go:build azure

package azure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"

	"github.com/harunnryd/speechgate/pkg/adapters/stt"
	"github.com/harunnryd/speechgate/pkg/logging"
)

// Recognizer streams the default microphone to Azure continuous recognition.
type Recognizer struct {
	cfg        stt.Config
	speechConf *speech.SpeechConfig
	audioConf  *audio.AudioConfig
	recognizer *speech.SpeechRecognizer
	buf        *stt.Buffer
	logger     *slog.Logger
	closeOnce  sync.Once
}

// NewRecognizer builds the SDK objects for cfg. No network call is made until Start.
func NewRecognizer(cfg stt.Config) (*Recognizer, error) {
	if cfg.SubscriptionKey == "" || cfg.Region == "" {
		return nil, fmt.Errorf("azure recognizer requires subscription key and region")
	}
	speechConf, err := speech.NewSpeechConfigFromSubscription(cfg.SubscriptionKey, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("azure speech config: %w", err)
	}
	if cfg.Language != "" {
		if err := speechConf.SetSpeechRecognitionLanguage(cfg.Language); err != nil {
			speechConf.Close()
			return nil, fmt.Errorf("azure recognition language: %w", err)
		}
	}
	audioConf, err := audio.NewAudioConfigFromDefaultMicrophoneInput()
	if err != nil {
		speechConf.Close()
		return nil, fmt.Errorf("azure microphone input: %w", err)
	}
	recognizer, err := speech.NewSpeechRecognizerFromConfig(speechConf, audioConf)
	if err != nil {
		audioConf.Close()
		speechConf.Close()
		return nil, fmt.Errorf("azure recognizer: %w", err)
	}

	r := &Recognizer{
		cfg:        cfg,
		speechConf: speechConf,
		audioConf:  audioConf,
		recognizer: recognizer,
		buf:        stt.NewBuffer(),
		logger: logging.NewComponentLogger(slog.Default(), "azure_stt").
			With(slog.String("session_id", cfg.SessionID)),
	}
	recognizer.Recognizing(r.onRecognizing)
	recognizer.Recognized(r.onRecognized)
	recognizer.Canceled(r.onCanceled)
	recognizer.SessionStopped(r.onSessionStopped)
	return r, nil
}

// RecognizerFactory adapts NewRecognizer to stt.Factory.
func RecognizerFactory(cfg stt.Config) (stt.Recognizer, error) {
	return NewRecognizer(cfg)
}

func (r *Recognizer) Name() string { return "azure_stt" }

func (r *Recognizer) Start(ctx context.Context) error {
	r.logger.Info("azure_recognition_starting",
		slog.String("language", r.cfg.Language),
		slog.String("region", r.cfg.Region),
		slog.String("encoding", r.cfg.Encoding))
	select {
	case err := <-r.recognizer.StartContinuousRecognitionAsync():
		if err != nil {
			r.logger.Error("azure_recognition_start_error", slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recognizer) Stop(ctx context.Context) error {
	select {
	case err := <-r.recognizer.StopContinuousRecognitionAsync():
		if err != nil {
			r.logger.Warn("azure_recognition_stop_error", slog.String("error", err.Error()))
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recognizer) Close() error {
	r.closeOnce.Do(func() {
		r.recognizer.Close()
		r.audioConf.Close()
		r.speechConf.Close()
		r.buf.Close()
		r.logger.Info("azure_recognizer_closed")
	})
	return nil
}

func (r *Recognizer) Events() <-chan stt.Event { return r.buf.Events() }

func (r *Recognizer) push(ev stt.Event) {
	if !r.buf.Push(ev) {
		r.logger.Debug("azure_event_after_close", slog.String("kind", ev.Kind.String()))
	}
}

func (r *Recognizer) onRecognizing(e speech.SpeechRecognitionEventArgs) {
	defer e.Close()
	r.push(stt.Event{Kind: stt.EventRecognizing, Result: &stt.Result{Text: e.Result.Text}})
}

func (r *Recognizer) onRecognized(e speech.SpeechRecognitionEventArgs) {
	defer e.Close()
	ev := stt.Event{Kind: stt.EventRecognized}
	if e.Result.Reason != common.NoMatch {
		ev.Result = &stt.Result{Text: e.Result.Text}
	}
	r.push(ev)
}

func (r *Recognizer) onCanceled(e speech.SpeechRecognitionCanceledEventArgs) {
	defer e.Close()
	if e.Reason == common.EndOfStream {
		r.push(stt.Event{Kind: stt.EventSessionStopped})
		return
	}
	r.logger.Warn("azure_recognition_canceled",
		slog.Int("error_code", int(e.ErrorCode)),
		slog.String("details", e.ErrorDetails))
	r.push(stt.Event{Kind: stt.EventCanceled, Code: cancellationCode(e.ErrorCode), Details: e.ErrorDetails})
}

func (r *Recognizer) onSessionStopped(e speech.SessionEventArgs) {
	defer e.Close()
	r.push(stt.Event{Kind: stt.EventSessionStopped})
}

func cancellationCode(code common.CancellationErrorCode) stt.CancellationCode {
	switch code {
	case common.NoError:
		return stt.CancelNone
	case common.AuthenticationFailure:
		return stt.CancelAuthentication
	case common.BadRequest:
		return stt.CancelBadRequest
	case common.TooManyRequests:
		return stt.CancelTooManyRequests
	case common.Forbidden:
		return stt.CancelForbidden
	case common.ConnectionFailure:
		return stt.CancelConnection
	case common.ServiceTimeout:
		return stt.CancelTimeout
	case common.ServiceError:
		return stt.CancelServiceError
	default:
		return stt.CancelRuntime
	}
}

var _ stt.Recognizer = (*Recognizer)(nil)
