package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/harunnryd/speechgate/pkg/errorsx"
	"github.com/harunnryd/speechgate/pkg/logging"
	"github.com/harunnryd/speechgate/pkg/resilience"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "speechgate:notifications"

// Message is the JSON payload published for every notification.
type Message struct {
	Method    string    `json:"method"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Time      time.Time `json:"time"`
}

// RedisConfig configures RedisSink.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Channel   string
	Timeout   time.Duration
	SessionID string
	// Retries is the number of extra publish attempts after a failure.
	Retries int
}

// RedisSink publishes notifications to a pub/sub channel a UI subscribes to.
// Publish errors are logged, never returned.
type RedisSink struct {
	client  redis.UniversalClient
	channel string
	timeout time.Duration
	session string
	retry   resilience.RetryPolicy
	logger  *slog.Logger
}

// NewRedisSink connects a new client from cfg.
func NewRedisSink(cfg RedisConfig) *RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisSinkWithClient(client, cfg)
}

// NewRedisSinkWithClient publishes through an existing client.
func NewRedisSinkWithClient(client redis.UniversalClient, cfg RedisConfig) *RedisSink {
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &RedisSink{
		client:  client,
		channel: cfg.Channel,
		timeout: cfg.Timeout,
		session: cfg.SessionID,
		retry:   resilience.NewRetryPolicy(cfg.Retries, 100*time.Millisecond),
		logger:  logging.NewComponentLogger(slog.Default(), "notify_redis"),
	}
}

func (s *RedisSink) InvalidAccessCode(f errorsx.Failure) { s.publish(MethodInvalidAccessCode, f) }
func (s *RedisSink) EmptyCredentials(f errorsx.Failure)  { s.publish(MethodEmptyCredentials, f) }
func (s *RedisSink) RecognitionError(f errorsx.Failure)  { s.publish(MethodRecognitionError, f) }
func (s *RedisSink) SynthesisError(f errorsx.Failure)    { s.publish(MethodSynthesisError, f) }

// Close closes the underlying client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

func (s *RedisSink) publish(method string, f errorsx.Failure) {
	ts := f.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b, err := json.Marshal(Message{
		Method:    method,
		Kind:      string(f.Kind),
		Detail:    f.Detail,
		SessionID: s.session,
		Time:      ts.UTC(),
	})
	if err != nil {
		s.logger.Error("notification_encode_failed", slog.String("error", err.Error()))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		return s.client.Publish(ctx, s.channel, b).Err()
	})
	if err != nil {
		s.logger.Error("notification_publish_failed",
			slog.String("channel", s.channel),
			slog.String("method", method),
			slog.String("error", err.Error()))
	}
}
