package runner

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDrainsOnContextCancel(t *testing.T) {
	var drains atomic.Int32
	r := NewLifecycleRunner(Options{
		Drainer: DrainFunc(func() error { drains.Add(1); return nil }),
		Quiet:   true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx, nil) }()
	cancel()

	require.NoError(t, <-errCh)
	assert.EqualValues(t, 1, drains.Load())
	assert.Equal(t, StateStopped, r.State())
}

func TestRunEndsWhenUntilCloses(t *testing.T) {
	var drains atomic.Int32
	r := NewLifecycleRunner(Options{
		Drainer: DrainFunc(func() error { drains.Add(1); return nil }),
		Quiet:   true,
	})
	finished := make(chan struct{})
	close(finished)

	require.NoError(t, r.Run(context.Background(), finished))
	assert.EqualValues(t, 1, drains.Load())

	// Stop after a finished run does not drain again.
	require.NoError(t, r.Stop())
	assert.EqualValues(t, 1, drains.Load())
}

func TestStopUnblocksRun(t *testing.T) {
	r := NewLifecycleRunner(Options{Quiet: true})
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(context.Background(), nil) }()

	require.Eventually(t, func() bool { return r.State() == StateRunning }, time.Second, time.Millisecond)
	require.NoError(t, r.Stop())
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not return after stop")
	}
}

func TestStopReportsDrainTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	r := NewLifecycleRunner(Options{
		Drainer:      DrainFunc(func() error { <-block; return nil }),
		DrainTimeout: 20 * time.Millisecond,
	})

	assert.ErrorIs(t, r.Stop(), ErrDrainTimeout)
	assert.ErrorIs(t, r.Stop(), ErrDrainTimeout)
}

func TestStopReturnsDrainError(t *testing.T) {
	want := errors.New("stop failed")
	r := NewLifecycleRunner(Options{Drainer: DrainFunc(func() error { return want })})
	assert.ErrorIs(t, r.Stop(), want)
}

func TestRunTwiceFails(t *testing.T) {
	r := NewLifecycleRunner(Options{Quiet: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx, nil))
	assert.ErrorIs(t, r.Run(ctx, nil), ErrAlreadyRun)
}

func TestBannerWritesTitle(t *testing.T) {
	var buf bytes.Buffer
	r := NewLifecycleRunner(Options{Banner: &buf})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx, nil))
	assert.Contains(t, buf.String(), "Version: "+Version)
	assert.Equal(t, "DRAINING", StateDraining.String())
}
