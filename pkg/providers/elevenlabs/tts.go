// Package elevenlabs synthesizes speech over the ElevenLabs stream-input websocket.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/harunnryd/speechgate/pkg/adapters/tts"
	"github.com/harunnryd/speechgate/pkg/logging"
	"github.com/harunnryd/speechgate/pkg/resilience"
)

const defaultBaseURL = "wss://api.elevenlabs.io/v1/text-to-speech/"

type Config struct {
	APIKey       string
	VoiceID      string
	ModelID      string
	OutputFormat string
	// BaseURL overrides the websocket endpoint prefix.
	BaseURL string
}

type ElevenLabsTTS struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	closeOnce sync.Once
}

func New(cfg Config) *ElevenLabsTTS {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &ElevenLabsTTS{
		cfg:    cfg,
		logger: logging.NewComponentLogger(slog.Default(), "elevenlabs_tts"),
	}
}

// NewFactory maps the generic synthesis config onto ElevenLabs: the
// subscription key is the API key and the voice name is the voice ID.
func NewFactory(defaults Config) tts.Factory {
	return func(cfg tts.Config) (tts.Synthesizer, error) {
		c := defaults
		if cfg.SubscriptionKey != "" {
			c.APIKey = cfg.SubscriptionKey
		}
		if cfg.VoiceName != "" {
			c.VoiceID = cfg.VoiceName
		}
		if c.APIKey == "" || c.VoiceID == "" {
			return nil, errors.New("missing elevenlabs config")
		}
		return New(c), nil
	}
}

func (s *ElevenLabsTTS) Name() string { return "elevenlabs_tts" }

func (s *ElevenLabsTTS) Speak(ctx context.Context, text string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	u, err := s.buildURL()
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{Proxy: http.ProxyFromEnvironment}
	conn, resp, err := dialer.DialContext(ctx, u, http.Header{
		"xi-api-key": []string{s.cfg.APIKey},
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			s.logger.Error("elevenlabs rate limit exceeded", slog.String("status", resp.Status))
			return nil, resilience.RateLimitError{Provider: "elevenlabs", Message: resp.Status}
		}
		s.logger.Error("failed to connect to ElevenLabs", slog.String("error", err.Error()))
		return nil, err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	text = strings.TrimSpace(text)
	messages := []map[string]any{
		{
			"text": " ",
			"voice_settings": map[string]any{
				"stability":        0.5,
				"similarity_boost": 0.8,
			},
		},
		{"text": text + " ", "try_trigger_generation": true},
		// An empty text closes the input stream.
		{"text": ""},
	}
	for _, m := range messages {
		if err := s.send(m); err != nil {
			return nil, s.ctxErr(ctx, fmt.Errorf("elevenlabs send: %w", err))
		}
	}

	var audio bytes.Buffer
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && audio.Len() > 0 {
				break
			}
			return nil, s.ctxErr(ctx, fmt.Errorf("elevenlabs read: %w", err))
		}
		chunk, final, err := decodeMessage(data)
		if err != nil {
			return nil, err
		}
		audio.Write(chunk)
		if final {
			break
		}
	}
	s.logger.Debug("elevenlabs synthesis completed", slog.Int("size_bytes", audio.Len()))
	return audio.Bytes(), nil
}

func (s *ElevenLabsTTS) ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *ElevenLabsTTS) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.conn != nil {
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			err = s.conn.Close()
		}
	})
	return err
}

func (s *ElevenLabsTTS) buildURL() (string, error) {
	if s.cfg.VoiceID == "" {
		return "", errors.New("missing elevenlabs voice")
	}
	base := strings.TrimSuffix(s.cfg.BaseURL, "/") + "/" + url.PathEscape(s.cfg.VoiceID) + "/stream-input"
	q := url.Values{}
	if s.cfg.ModelID != "" {
		q.Set("model_id", s.cfg.ModelID)
	}
	if s.cfg.OutputFormat != "" {
		q.Set("output_format", s.cfg.OutputFormat)
	}
	return base + "?" + q.Encode(), nil
}

type serverMessage struct {
	Audio       string `json:"audio"`
	AudioBase64 string `json:"audio_base_64"`
	IsFinal     bool   `json:"isFinal"`
	Error       string `json:"error"`
	Message     string `json:"message"`
}

// decodeMessage returns the audio carried by one server message and whether
// the stream is finished.
func decodeMessage(data []byte) ([]byte, bool, error) {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false, fmt.Errorf("elevenlabs message: %w", err)
	}
	if msg.Error != "" {
		if strings.Contains(strings.ToLower(msg.Error), "rate") {
			return nil, false, resilience.RateLimitError{Provider: "elevenlabs", Message: msg.Message}
		}
		return nil, false, fmt.Errorf("elevenlabs %s: %s", msg.Error, msg.Message)
	}
	audio := msg.Audio
	if audio == "" {
		audio = msg.AudioBase64
	}
	if audio == "" {
		return nil, msg.IsFinal, nil
	}
	raw, err := base64.StdEncoding.DecodeString(audio)
	if err != nil {
		return nil, false, fmt.Errorf("elevenlabs audio decode: %w", err)
	}
	return raw, msg.IsFinal, nil
}

func (s *ElevenLabsTTS) send(payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, b)
}

var _ tts.Synthesizer = (*ElevenLabsTTS)(nil)
