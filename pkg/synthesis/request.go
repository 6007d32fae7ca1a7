// Package synthesis issues one-shot text-to-speech calls. Every call owns its
// own handle and releases it before returning.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/speechgate/pkg/adapters/tts"
	"github.com/harunnryd/speechgate/pkg/errorsx"
	"github.com/harunnryd/speechgate/pkg/logging"
	"github.com/harunnryd/speechgate/pkg/metrics"
	"github.com/harunnryd/speechgate/pkg/notify"
	"github.com/harunnryd/speechgate/pkg/redact"
	"github.com/harunnryd/speechgate/pkg/resilience"
)

var nowFunc = time.Now

// ErrNoHandle is returned when a factory yields neither a handle nor an error.
var ErrNoHandle = errors.New("synthesizer factory returned no handle")

// ErrEmptyAudio is returned when the service reports success without audio.
var ErrEmptyAudio = errors.New("synthesis returned no audio")

type Config struct {
	Synthesizers tts.Factory
	Sink         notify.Sink
	Observer     metrics.Observer
	// Breaker is optional. When open, calls fail without creating a handle.
	Breaker *resilience.CircuitBreaker
	Logger  *slog.Logger
}

type Requester struct {
	factory tts.Factory
	sink    notify.Sink
	obs     metrics.Observer
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewRequester(cfg Config) *Requester {
	if cfg.Sink == nil {
		cfg.Sink = notify.Noop{}
	}
	if cfg.Observer == nil {
		cfg.Observer = metrics.NoopObserver{}
	}
	return &Requester{
		factory: cfg.Synthesizers,
		sink:    cfg.Sink,
		obs:     cfg.Observer,
		breaker: cfg.Breaker,
		logger:  logging.NewComponentLogger(cfg.Logger, "synthesis"),
	}
}

// NormalizeLanguage maps script-tagged Chinese locales to the region tags
// synthesis voices are published under.
func NormalizeLanguage(language string) string {
	switch language {
	case "zh-Hans":
		return "zh-CN"
	case "zh-Hant":
		return "zh-TW"
	default:
		return language
	}
}

// Synthesize renders text and returns the audio. A failure is reported to the
// sink once and returned wrapped with errorsx.ReasonSynthesisFailure.
// There are no retries.
func (r *Requester) Synthesize(ctx context.Context, subscriptionKey, region, text, voiceName, language string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := nowFunc()
	language = NormalizeLanguage(language)
	logger := r.logger.With(
		slog.String("voice", voiceName),
		slog.String("language", language),
		slog.String("subscription_key", redact.Key(subscriptionKey)))

	if r.factory == nil {
		return nil, r.failed(logger, start, errors.New("no synthesizer configured"))
	}
	if !r.breaker.Allow() {
		return nil, r.failed(logger, start, resilience.ErrCircuitOpen)
	}

	handle, err := r.factory(tts.Config{
		SubscriptionKey: subscriptionKey,
		Region:          region,
		VoiceName:       voiceName,
		Language:        language,
	})
	if err == nil && handle == nil {
		err = ErrNoHandle
	}
	if err != nil {
		r.breaker.OnError(err)
		return nil, r.failed(logger, start, fmt.Errorf("create synthesizer: %w", err))
	}
	audio, err := r.speak(ctx, handle, text)
	if err != nil {
		r.breaker.OnError(err)
		return nil, r.failed(logger, start, err)
	}
	r.breaker.OnSuccess()

	elapsed := nowFunc().Sub(start)
	logger.Info("synthesis_completed",
		slog.String("adapter", handle.Name()),
		slog.Int("bytes", len(audio)),
		slog.Duration("latency", elapsed))
	r.record("success", elapsed)
	return audio, nil
}

// speak runs the call and closes the handle on every path.
func (r *Requester) speak(ctx context.Context, handle tts.Synthesizer, text string) (audio []byte, err error) {
	defer func() {
		if cerr := handle.Close(); cerr != nil {
			r.logger.Warn("synthesis_close_failed", slog.String("error", cerr.Error()))
		}
	}()
	audio, err = handle.Speak(ctx, text)
	if err == nil && len(audio) == 0 {
		err = ErrEmptyAudio
	}
	return audio, err
}

func (r *Requester) failed(logger *slog.Logger, start time.Time, err error) error {
	f := errorsx.Failure{Kind: errorsx.ReasonSynthesisFailure, Detail: err.Error(), Time: nowFunc()}
	logger.Warn("synthesis_failed", slog.String("error", err.Error()))
	r.obs.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventFailure,
		Time:  f.Time,
		Value: 1,
		Tags:  map[string]string{"kind": string(f.Kind)},
	})
	r.record("failure", nowFunc().Sub(start))
	r.sink.SynthesisError(f)
	return errorsx.Force(err, errorsx.ReasonSynthesisFailure)
}

func (r *Requester) record(outcome string, elapsed time.Duration) {
	r.obs.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventSynthesis,
		Time:  nowFunc(),
		Value: float64(elapsed.Milliseconds()),
		Tags:  map[string]string{"outcome": outcome},
	})
}
