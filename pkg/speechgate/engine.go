package speechgate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/harunnryd/speechgate/pkg/accesscode"
	"github.com/harunnryd/speechgate/pkg/capture"
	"github.com/harunnryd/speechgate/pkg/configutil"
	"github.com/harunnryd/speechgate/pkg/credentials"
	"github.com/harunnryd/speechgate/pkg/logging"
	"github.com/harunnryd/speechgate/pkg/metrics"
	"github.com/harunnryd/speechgate/pkg/notify"
	"github.com/harunnryd/speechgate/pkg/recognition"
	"github.com/harunnryd/speechgate/pkg/redact"
	"github.com/harunnryd/speechgate/pkg/resilience"
	"github.com/harunnryd/speechgate/pkg/synthesis"
)

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	// Platform overrides the capture settings from Config.
	Platform capture.Platform
	// AccessCodes overrides the env-backed access code store.
	AccessCodes accesscode.Store
	// Sink overrides notify.provider.
	Sink notify.Sink
	// Registerer enables prometheus metrics when set.
	Registerer prometheus.Registerer
	Observer   metrics.Observer
	Logger     *slog.Logger
}

// Engine owns one recognition session and one synthesis requester.
type Engine struct {
	cfg       Config
	session   *recognition.Session
	requester *synthesis.Requester
	observer  *metrics.AsyncObserver
	redis     *notify.RedisSink
	logger    *slog.Logger
	closeOnce sync.Once
}

type redisSettings struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Channel   string `mapstructure:"channel"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
	Retries   int    `mapstructure:"retries"`
}

func NewEngine(opts EngineOptions, listener recognition.Listener) (*Engine, error) {
	cfg := opts.Config
	if opts.Providers == nil {
		opts.Providers = DefaultProviders()
	}
	logger := logging.NewComponentLogger(opts.Logger, "engine")
	redact.SetEnabled(cfg.Privacy.RedactPII)

	recognizers, err := opts.Providers.BuildSTT(cfg.Vendors.STT.Provider, cfg)
	if err != nil {
		return nil, err
	}
	synthesizers, err := opts.Providers.BuildTTS(cfg.Vendors.TTS.Provider, cfg)
	if err != nil {
		return nil, err
	}

	store := opts.AccessCodes
	if store == nil {
		envStore, err := accesscode.NewEnvStore(cfg.Access.EnvKey, cfg.Access.EnvFiles...)
		if err != nil {
			return nil, fmt.Errorf("access code store: %w", err)
		}
		store = envStore
	}

	platform := opts.Platform
	if platform == nil {
		platform = capture.StaticPlatform{
			Denied:    strings.EqualFold(strings.TrimSpace(cfg.Capture.Permission), "denied"),
			Supported: capture.ParseEncodings(cfg.Capture.SupportedEncodings),
		}
	}

	e := &Engine{cfg: cfg, logger: logger}

	sink := opts.Sink
	if sink == nil {
		sink, err = e.buildSink(opts.Logger)
		if err != nil {
			return nil, err
		}
	}

	observers := metrics.MultiObserver{}
	if opts.Observer != nil {
		observers = append(observers, opts.Observer)
	}
	if opts.Registerer != nil {
		prom, err := metrics.NewPrometheusObserver(opts.Registerer)
		if err != nil {
			e.closeSink()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		observers = append(observers, prom)
	}
	e.observer = metrics.NewAsyncObserver(observers, cfg.Metrics.Buffer, opts.Logger)

	var breaker *resilience.CircuitBreaker
	if cfg.Synthesis.CircuitThreshold > 0 {
		breaker = resilience.NewCircuitBreaker(cfg.Synthesis.CircuitThreshold,
			configutil.Millis(cfg.Synthesis.CircuitCooldownMS, 30*time.Second))
	}

	e.session = recognition.NewSession(recognition.Config{
		Gate:        credentials.NewGate(store),
		Capture:     capture.New(platform, nil),
		Recognizers: recognizers,
		Sink:        sink,
		Observer:    e.observer,
		Logger:      opts.Logger,
	}, listener)
	e.requester = synthesis.NewRequester(synthesis.Config{
		Synthesizers: synthesizers,
		Sink:         sink,
		Observer:     e.observer,
		Breaker:      breaker,
		Logger:       opts.Logger,
	})

	logger.Info("engine_ready",
		slog.String("stt_provider", cfg.Vendors.STT.Provider),
		slog.String("tts_provider", cfg.Vendors.TTS.Provider),
		slog.String("notify_provider", cfg.Notify.Provider),
		slog.String("language", cfg.Language))
	return e, nil
}

func (e *Engine) buildSink(base *slog.Logger) (notify.Sink, error) {
	logSink := notify.NewLogSink(base)
	switch strings.ToLower(strings.TrimSpace(e.cfg.Notify.Provider)) {
	case "none":
		return notify.Noop{}, nil
	case "redis":
		if err := configutil.Validate("notify.settings", e.cfg.Notify.Settings, configutil.Schema{
			Required: []string{"addr"},
			Optional: []string{"password", "db", "channel", "timeout_ms", "retries"},
		}); err != nil {
			return nil, err
		}
		var settings redisSettings
		if err := configutil.Decode(e.cfg.Notify.Settings, &settings); err != nil {
			return nil, err
		}
		e.redis = notify.NewRedisSink(notify.RedisConfig{
			Addr:     settings.Addr,
			Password: settings.Password,
			DB:       settings.DB,
			Channel:  settings.Channel,
			Timeout:  configutil.Millis(settings.TimeoutMS, 2*time.Second),
			Retries:  settings.Retries,
		})
		return notify.Multi{logSink, e.redis}, nil
	default:
		return logSink, nil
	}
}

// Credentials returns the configured service credentials.
func (e *Engine) Credentials() credentials.Credentials {
	return credentials.Credentials{
		SubscriptionKey: e.cfg.Credentials.SubscriptionKey,
		Region:          e.cfg.Credentials.Region,
	}
}

func (e *Engine) Session() *recognition.Session { return e.session }

// StartListening starts a recognition attempt with the configured credentials and language.
func (e *Engine) StartListening(ctx context.Context, accessCode string) error {
	return e.session.Start(ctx, e.Credentials(), e.cfg.Language, accessCode)
}

func (e *Engine) StopListening() { e.session.Stop() }

// Synthesize renders text with the configured credentials, voice and language.
func (e *Engine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	c := e.Credentials()
	return e.requester.Synthesize(ctx, c.SubscriptionKey, c.Region, text, e.cfg.Voice, e.cfg.Language)
}

// Drain stops any active session, waits for it to settle and releases the engine.
func (e *Engine) Drain() error {
	e.session.Stop()
	e.session.Wait()
	return e.Close()
}

// Close flushes metrics and closes the notification transport.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.observer.Close()
		err = e.closeSink()
		e.logger.Info("engine_closed")
	})
	return err
}

func (e *Engine) closeSink() error {
	if e.redis == nil {
		return nil
	}
	return e.redis.Close()
}
