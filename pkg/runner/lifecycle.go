package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harunnryd/speechgate/pkg/logging"
)

var (
	// ErrDrainTimeout is returned when the drainer outlives the drain timeout.
	ErrDrainTimeout = errors.New("drain timeout")
	// ErrAlreadyRun is returned by a second call to Run.
	ErrAlreadyRun = errors.New("runner already started")
)

type Options struct {
	Drainer      Drainer
	DrainTimeout time.Duration
	Logger       *slog.Logger
	// Banner receives the startup banner; nil means stderr.
	Banner io.Writer
	Quiet  bool
}

// LifecycleRunner keeps a command alive until it is told to stop, then
// drains it exactly once.
type LifecycleRunner struct {
	state   atomic.Int32
	opts    Options
	logger  *slog.Logger
	stopCh  chan struct{}
	stopReq sync.Once
	drained sync.Once
	stopErr error
}

func NewLifecycleRunner(opts Options) *LifecycleRunner {
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 10 * time.Second
	}
	return &LifecycleRunner{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "runner"),
		stopCh: make(chan struct{}),
	}
}

// Run blocks until ctx is done, Stop is called or until closes, then drains.
// A nil until never fires.
func (r *LifecycleRunner) Run(ctx context.Context, until <-chan struct{}) error {
	if !r.state.CompareAndSwap(int32(StateNew), int32(StateRunning)) {
		return ErrAlreadyRun
	}
	if !r.opts.Quiet {
		PrintBanner(r.opts.Banner)
	}
	r.logger.Debug("runner_started")

	cause := "stop"
	select {
	case <-ctx.Done():
		cause = "context"
	case <-until:
		cause = "finished"
	case <-r.stopCh:
	}
	return r.drain(cause)
}

// Stop ends Run, or drains directly when Run was never called.
func (r *LifecycleRunner) Stop() error {
	r.stopReq.Do(func() { close(r.stopCh) })
	return r.drain("stop")
}

func (r *LifecycleRunner) State() State {
	return State(r.state.Load())
}

func (r *LifecycleRunner) drain(cause string) error {
	r.drained.Do(func() {
		r.state.Store(int32(StateDraining))
		start := time.Now()
		if r.opts.Drainer != nil {
			r.stopErr = r.runDrainer()
		}
		r.state.Store(int32(StateStopped))

		attrs := []any{slog.String("cause", cause), slog.Duration("took", time.Since(start))}
		if r.stopErr != nil {
			r.logger.Warn("runner_drain_failed", append(attrs, slog.String("error", r.stopErr.Error()))...)
			return
		}
		r.logger.Info("runner_stopped", attrs...)
	})
	return r.stopErr
}

func (r *LifecycleRunner) runDrainer() error {
	done := make(chan error, 1)
	go func() { done <- r.opts.Drainer.Drain() }()

	timer := time.NewTimer(r.opts.DrainTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrDrainTimeout
	}
}
