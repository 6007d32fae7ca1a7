// Package deepgram adapts the Deepgram live transcription websocket to the stt
// contract. Audio comes from an AudioSource opened at Start.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/harunnryd/speechgate/pkg/adapters/stt"
	"github.com/harunnryd/speechgate/pkg/capture"
	"github.com/harunnryd/speechgate/pkg/logging"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

// AudioSource opens the captured audio stream for one session.
type AudioSource func() (io.ReadCloser, error)

type Options struct {
	Model          string
	SampleRate     int
	UtteranceEndMS int
	VADEvents      bool
}

type StreamingSTT struct {
	cfg    stt.Config
	opts   Options
	source AudioSource

	dgClient *client.WSCallback
	audio    io.ReadCloser
	buf      *stt.Buffer
	cancel   context.CancelFunc
	logger   *slog.Logger

	mu         sync.Mutex
	stopOnce   sync.Once
	closeOnce  sync.Once
	metaLogged bool
}

func New(cfg stt.Config, opts Options, source AudioSource) *StreamingSTT {
	if opts.Model == "" {
		opts.Model = "nova-2"
	}
	return &StreamingSTT{
		cfg:    cfg,
		opts:   opts,
		source: source,
		buf:    stt.NewBuffer(),
		logger: logging.NewComponentLogger(slog.Default(), "deepgram_stt").
			With(slog.String("session_id", cfg.SessionID)),
	}
}

// NewFactory returns an stt.Factory. The subscription key is the Deepgram API key.
func NewFactory(opts Options, source AudioSource) stt.Factory {
	return func(cfg stt.Config) (stt.Recognizer, error) {
		if source == nil {
			return nil, errors.New("deepgram recognizer requires an audio source")
		}
		return New(cfg, opts, source), nil
	}
}

func (s *StreamingSTT) Name() string { return "deepgram_streaming" }

// encoding returns the raw encoding Deepgram expects. Container formats are
// detected by the service, so they map to the empty string.
func encoding(enc string) string {
	switch capture.Encoding(strings.ToLower(enc)) {
	case capture.EncodingWebM, capture.EncodingOgg, capture.EncodingMPEG, capture.EncodingMP4, "":
		return ""
	default:
		return strings.TrimPrefix(strings.ToLower(enc), "audio/")
	}
}

func (s *StreamingSTT) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	audio, err := s.source()
	if err != nil {
		return fmt.Errorf("open audio source: %w", err)
	}

	transcriptOptions := &interfaces.LiveTranscriptionOptions{
		Model:          s.opts.Model,
		Language:       s.cfg.Language,
		InterimResults: true,
		VadEvents:      s.opts.VADEvents,
		SmartFormat:    true,
	}
	if enc := encoding(s.cfg.Encoding); enc != "" {
		transcriptOptions.Encoding = enc
		transcriptOptions.SampleRate = s.opts.SampleRate
		if transcriptOptions.SampleRate == 0 {
			transcriptOptions.SampleRate = 16000
		}
	}
	if s.opts.UtteranceEndMS > 0 {
		transcriptOptions.UtteranceEndMs = fmt.Sprintf("%d", s.opts.UtteranceEndMS)
	}

	s.logger.Info("initializing deepgram connection",
		slog.String("model", s.opts.Model),
		slog.String("language", s.cfg.Language),
		slog.String("encoding", s.cfg.Encoding))

	dctx, cancel := context.WithCancel(ctx)
	dgClient, err := client.NewWSUsingCallback(dctx, s.cfg.SubscriptionKey,
		&interfaces.ClientOptions{EnableKeepAlive: true}, transcriptOptions, &callback{parent: s})
	if err != nil {
		cancel()
		_ = audio.Close()
		s.logger.Error("deepgram_client_create_error", slog.String("error", err.Error()))
		return err
	}
	if connected := dgClient.Connect(); !connected {
		cancel()
		_ = audio.Close()
		s.logger.Error("deepgram_connect_failed")
		return fmt.Errorf("deepgram connection failed")
	}

	s.mu.Lock()
	s.dgClient = dgClient
	s.audio = audio
	s.cancel = cancel
	s.mu.Unlock()
	s.logger.Info("deepgram_connected")

	go func() {
		if err := dgClient.Stream(audio); err != nil && dctx.Err() == nil && !errors.Is(err, io.EOF) {
			s.logger.Error("deepgram_stream_error", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Stop closes the audio source and the websocket. The service reports the
// session end through the Close callback.
func (s *StreamingSTT) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		audio, dg := s.audio, s.dgClient
		s.mu.Unlock()
		if audio != nil {
			_ = audio.Close()
		}
		if dg != nil {
			dg.Stop()
		}
		s.logger.Info("deepgram_stopped")
	})
	return ctx.Err()
}

func (s *StreamingSTT) Close() error {
	s.closeOnce.Do(func() {
		_ = s.Stop(context.Background())
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
		s.buf.Close()
		s.logger.Info("closing deepgram connection")
	})
	return nil
}

func (s *StreamingSTT) Events() <-chan stt.Event { return s.buf.Events() }

func (s *StreamingSTT) push(ev stt.Event) {
	if !s.buf.Push(ev) {
		s.logger.Debug("deepgram_event_after_close", slog.String("kind", ev.Kind.String()))
	}
}

// --- Callback Implementation ---

type callback struct {
	parent *StreamingSTT
}

func (c *callback) Open(or *msginterfaces.OpenResponse) error {
	c.parent.logger.Info("deepgram_connection_opened")
	return nil
}

func (c *callback) Message(mr *msginterfaces.MessageResponse) error {
	transcript := ""
	if len(mr.Channel.Alternatives) > 0 {
		transcript = mr.Channel.Alternatives[0].Transcript
	}
	isFinal := mr.IsFinal || mr.SpeechFinal

	if !isFinal {
		if transcript == "" {
			return nil
		}
		c.parent.push(stt.Event{Kind: stt.EventRecognizing, Result: &stt.Result{Text: transcript}})
		return nil
	}
	ev := stt.Event{Kind: stt.EventRecognized}
	if transcript != "" {
		ev.Result = &stt.Result{Text: transcript}
	}
	c.parent.logger.Debug("transcript_received", slog.Bool("is_final", true), slog.Bool("matched", ev.Result != nil))
	c.parent.push(ev)
	return nil
}

func (c *callback) Metadata(md *msginterfaces.MetadataResponse) error {
	c.parent.mu.Lock()
	first := !c.parent.metaLogged
	c.parent.metaLogged = true
	c.parent.mu.Unlock()
	if first {
		c.parent.logger.Info("deepgram_metadata_received", slog.String("request_id", md.RequestID))
	}
	return nil
}

func (c *callback) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	c.parent.logger.Debug("speech_started_event")
	return nil
}

func (c *callback) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	c.parent.logger.Debug("utterance_end_event", slog.Int("utterance_end_ms", c.parent.opts.UtteranceEndMS))
	return nil
}

func (c *callback) Close(cr *msginterfaces.CloseResponse) error {
	c.parent.logger.Info("deepgram_connection_closed")
	c.parent.push(stt.Event{Kind: stt.EventSessionStopped})
	return nil
}

func (c *callback) Error(er *msginterfaces.ErrorResponse) error {
	c.parent.logger.Error("deepgram_error",
		slog.String("error_code", er.ErrCode),
		slog.String("error_message", er.ErrMsg))
	c.parent.push(stt.Event{Kind: stt.EventCanceled, Code: errorCode(er.ErrCode, er.ErrMsg), Details: er.ErrMsg})
	return nil
}

func (c *callback) UnhandledEvent(byData []byte) error {
	c.parent.logger.Debug("deepgram_unhandled_event", slog.String("data", string(byData)))
	return nil
}

func errorCode(code, msg string) stt.CancellationCode {
	haystack := strings.ToUpper(code + " " + msg)
	switch {
	case strings.Contains(haystack, "AUTH"), strings.Contains(haystack, "401"):
		return stt.CancelAuthentication
	case strings.Contains(haystack, "403"), strings.Contains(haystack, "PERMISSION"):
		return stt.CancelForbidden
	case strings.Contains(haystack, "429"):
		return stt.CancelTooManyRequests
	case strings.Contains(haystack, "400"):
		return stt.CancelBadRequest
	case strings.Contains(haystack, "TIMEOUT"):
		return stt.CancelTimeout
	default:
		return stt.CancelServiceError
	}
}

var _ stt.Recognizer = (*StreamingSTT)(nil)
var _ msginterfaces.LiveMessageCallback = (*callback)(nil)
