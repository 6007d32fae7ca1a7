package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/harunnryd/speechgate/pkg/errorsx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingSink) add(m string) {
	r.mu.Lock()
	r.calls = append(r.calls, m)
	r.mu.Unlock()
}

func (r *recordingSink) InvalidAccessCode(errorsx.Failure) { r.add(MethodInvalidAccessCode) }
func (r *recordingSink) EmptyCredentials(errorsx.Failure)  { r.add(MethodEmptyCredentials) }
func (r *recordingSink) RecognitionError(errorsx.Failure)  { r.add(MethodRecognitionError) }
func (r *recordingSink) SynthesisError(errorsx.Failure)    { r.add(MethodSynthesisError) }

func TestDispatchRoutesEveryKind(t *testing.T) {
	want := map[errorsx.ReasonCode]string{
		errorsx.ReasonPermissionDenied:       MethodRecognitionError,
		errorsx.ReasonUnsupportedAudioFormat: MethodRecognitionError,
		errorsx.ReasonInvalidAccessCode:      MethodInvalidAccessCode,
		errorsx.ReasonMissingCredentials:     MethodEmptyCredentials,
		errorsx.ReasonRecognitionStartFailed: MethodRecognitionError,
		errorsx.ReasonInvalidCredentials:     MethodRecognitionError,
		errorsx.ReasonRecognitionCanceled:    MethodRecognitionError,
		errorsx.ReasonSynthesisFailure:       MethodSynthesisError,
	}
	require.Len(t, want, len(errorsx.Kinds))
	for _, kind := range errorsx.Kinds {
		rec := &recordingSink{}
		Dispatch(rec, errorsx.Failure{Kind: kind})
		assert.Equal(t, []string{want[kind]}, rec.calls, "kind %s", kind)
	}
	Dispatch(nil, errorsx.Failure{Kind: errorsx.ReasonSynthesisFailure})
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := Multi{a, b, Noop{}}
	m.SynthesisError(errorsx.Failure{})
	m.InvalidAccessCode(errorsx.Failure{})
	assert.Equal(t, []string{MethodSynthesisError, MethodInvalidAccessCode}, a.calls)
	assert.Equal(t, a.calls, b.calls)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))
	sink.RecognitionError(errorsx.Failure{Kind: errorsx.ReasonRecognitionCanceled, Detail: "network"})
	assert.Contains(t, buf.String(), "method=recognition_error")
	assert.Contains(t, buf.String(), "kind=recognition_canceled")
}

func TestRedisSinkPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := client.Subscribe(ctx, "ui")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	sink := NewRedisSinkWithClient(client, RedisConfig{Channel: "ui", SessionID: "s-1"})
	sink.SynthesisError(errorsx.Failure{Kind: errorsx.ReasonSynthesisFailure, Detail: "quota"})

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var got Message
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, MethodSynthesisError, got.Method)
	assert.Equal(t, "synthesis_failure", got.Kind)
	assert.Equal(t, "quota", got.Detail)
	assert.Equal(t, "s-1", got.SessionID)
	assert.False(t, got.Time.IsZero())
}

func TestRedisSinkSwallowsPublishErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	sink := NewRedisSink(RedisConfig{Addr: mr.Addr(), Timeout: 200 * time.Millisecond})
	mr.Close()
	assert.NotPanics(t, func() {
		sink.RecognitionError(errorsx.Failure{Kind: errorsx.ReasonRecognitionCanceled})
	})
	_ = sink.Close()
}
