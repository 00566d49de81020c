package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RobMeades/urtpstream/internal/config"
	"github.com/RobMeades/urtpstream/internal/eventlog"
	"github.com/RobMeades/urtpstream/internal/indicator"
)

type fakePipeline struct {
	runFunc func(ctx context.Context) error
	closed  atomic.Bool
}

func (f *fakePipeline) Run(ctx context.Context) error { return f.runFunc(ctx) }

func (f *fakePipeline) Close() error {
	f.closed.Store(true)
	return nil
}

func TestRunExitsPromptlyWhenContextAlreadyCancelled(t *testing.T) {
	s := New(config.Config{RetryWaitSeconds: 5}, slog.Default(), eventlog.New(10), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not exit promptly for an already-cancelled context")
	}
}

func TestRunRetriesAfterPipelineRunReturns(t *testing.T) {
	var constructCount atomic.Int32
	orig := newPipeline
	newPipeline = func(config.Config, *slog.Logger, *eventlog.Log, indicator.Indicator) (runnablePipeline, error) {
		constructCount.Add(1)
		return &fakePipeline{runFunc: func(ctx context.Context) error { return nil }}, nil
	}
	t.Cleanup(func() { newPipeline = orig })

	s := New(config.Config{RetryWaitSeconds: 0}, slog.Default(), eventlog.New(10), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after context cancellation")
	}

	if constructCount.Load() < 2 {
		t.Errorf("pipeline constructed %d times, want at least 2 retries", constructCount.Load())
	}
}

func TestRunRetriesAfterConstructionFailure(t *testing.T) {
	var constructCount atomic.Int32
	orig := newPipeline
	newPipeline = func(config.Config, *slog.Logger, *eventlog.Log, indicator.Indicator) (runnablePipeline, error) {
		constructCount.Add(1)
		return nil, errors.New("dial failed")
	}
	t.Cleanup(func() { newPipeline = orig })

	s := New(config.Config{RetryWaitSeconds: 0}, slog.Default(), eventlog.New(10), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after context cancellation")
	}

	if constructCount.Load() < 2 {
		t.Errorf("pipeline constructed %d times, want at least 2 retries", constructCount.Load())
	}
}

func TestRunHonorsStreamDuration(t *testing.T) {
	orig := newPipeline
	newPipeline = func(config.Config, *slog.Logger, *eventlog.Log, indicator.Indicator) (runnablePipeline, error) {
		return &fakePipeline{runFunc: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}}, nil
	}
	t.Cleanup(func() { newPipeline = orig })

	s := New(config.Config{RetryWaitSeconds: 1, StreamDurationMs: 100}, slog.Default(), eventlog.New(10), nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after StreamDurationMs elapsed")
	}
}
