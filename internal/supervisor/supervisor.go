// Package supervisor owns the outer retry loop spec.md §5/§7 describes:
// bring up a Pipeline, run it until the link drops or the caller's context
// is cancelled, wait, and retry. Grounded on zsiec-prism's
// ingest/srt/caller.go Caller.Pull — dial with a timeout via a buffered
// result channel, select against ctx.Done() — adapted from "dial a remote
// SRT source" to "construct a Pipeline, which dials its own transport".
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/RobMeades/urtpstream/internal/config"
	"github.com/RobMeades/urtpstream/internal/eventlog"
	"github.com/RobMeades/urtpstream/internal/indicator"
	"github.com/RobMeades/urtpstream/internal/pipeline"
)

// runnablePipeline is the subset of *pipeline.Pipeline the supervisor
// drives, declared here (consumer-owned, per this codebase's convention in
// internal/sender.Indicator) so retry logic can be tested against a fake
// without a real network dial or capture device.
type runnablePipeline interface {
	Run(ctx context.Context) error
	Close() error
}

// newPipeline is a seam for tests: it wraps pipeline.New by default and is
// overridden to construct a fake in unit tests.
var newPipeline = func(cfg config.Config, logger *slog.Logger, log *eventlog.Log, ind indicator.Indicator) (runnablePipeline, error) {
	return pipeline.New(cfg, logger, log, ind)
}

// Supervisor runs and re-establishes a Pipeline for as long as the caller's
// context stays alive (or, if configured, until StreamDurationMs elapses).
type Supervisor struct {
	cfg       config.Config
	logger    *slog.Logger
	log       *eventlog.Log
	indicator indicator.Indicator
}

// New creates a Supervisor for cfg.
func New(cfg config.Config, logger *slog.Logger, log *eventlog.Log, ind indicator.Indicator) *Supervisor {
	return &Supervisor{cfg: cfg, logger: logger, log: log, indicator: ind}
}

// Run brings up a Pipeline and retries it until ctx is cancelled or the
// configured stream duration elapses. It always returns nil: every
// construction failure, including one that would fail on every attempt, is
// logged and retried, matching spec.md §5's "the supervisor retries link
// bring-up" framing.
func (s *Supervisor) Run(ctx context.Context) error {
	runCtx := ctx
	if s.cfg.StreamDurationMs > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.StreamDurationMs)*time.Millisecond)
		defer cancel()
	}

	for {
		if runCtx.Err() != nil {
			return nil
		}

		p, err := s.dial(runCtx)
		if err != nil {
			if runCtx.Err() != nil {
				return nil
			}
			s.logger.Error("pipeline construction failed", "err", err)
			s.log.Add(eventlog.EventNetworkStartFailure, 0)
			if !s.wait(runCtx) {
				return nil
			}
			continue
		}

		s.log.Add(eventlog.EventNetworkStart, 0)
		if err := p.Run(runCtx); err != nil {
			s.logger.Error("pipeline run failed", "err", err)
		}
		p.Close()
		s.log.Add(eventlog.EventNetworkStop, 0)

		if runCtx.Err() != nil {
			return nil
		}

		s.logger.Warn("link down, retrying", "wait_seconds", s.cfg.RetryWaitSeconds)
		if s.indicator != nil {
			s.indicator.Red()
		}
		if !s.wait(runCtx) {
			return nil
		}
	}
}

// dialResult carries a pipeline construction outcome back from the
// goroutine dial starts, so a hung dial can be abandoned without losing
// track of the pipeline it eventually produces.
type dialResult struct {
	p   runnablePipeline
	err error
}

// dial constructs a Pipeline with a bounded timeout, mirroring
// Caller.Pull's "dial in a goroutine, select against ctx.Done()" shape so a
// hung DNS lookup or connect can't wedge the supervisor forever.
func (s *Supervisor) dial(ctx context.Context) (runnablePipeline, error) {
	ch := make(chan dialResult, 1)
	go func() {
		p, err := newPipeline(s.cfg, s.logger, s.log, s.indicator)
		ch <- dialResult{p, err}
	}()

	dialTimeout := 10 * time.Second
	timer := time.NewTimer(dialTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.p, res.err
	case <-timer.C:
		go drainDial(ch)
		return nil, context.DeadlineExceeded
	case <-ctx.Done():
		go drainDial(ch)
		return nil, ctx.Err()
	}
}

func drainDial(ch chan dialResult) {
	if res := <-ch; res.p != nil {
		res.p.Close()
	}
}

// wait blocks for RetryWaitSeconds or until ctx is done, returning false if
// ctx ended the wait early.
func (s *Supervisor) wait(ctx context.Context) bool {
	timer := time.NewTimer(time.Duration(s.cfg.RetryWaitSeconds) * time.Second)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
