package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/RobMeades/urtpstream/internal/eventlog"
	"github.com/RobMeades/urtpstream/internal/ring"
	"github.com/RobMeades/urtpstream/internal/urtp"
)

// keepAliveInterval stands in for spec.md §4.6's SEND_RUN_ANYWAY wakeup: the
// sender drains the ring at least this often even with no ready-signal, so
// a stuck ring doesn't wedge the send loop.
const keepAliveInterval = time.Second

// maxDurationSocketErrors bounds how long a run of consecutive send
// failures is tolerated before the link is declared dead, per spec.md §4.6.
const maxDurationSocketErrors = time.Second

// FileTap receives each sent datagram's body (never its header) for an
// optional local recording, per spec.md §4.6/§9. Implementations must be
// best-effort: a Write failure is logged and counted but never stops the
// sender.
type FileTap interface {
	Write(body []byte) error
	Close() error
}

// Indicator is the sender's half of spec.md §6.3's observable side effects:
// Green toggles once per successful send, Red lights on a send failure. The
// interface is declared here, owned by the consumer, rather than imported
// from internal/indicator, so this package stays testable without it.
type Indicator interface {
	Green()
	Red()
}

// Sender is the consumer side of the datagram ring: it drains published
// slots and ships each one over a Transport, per spec.md §4.6.
type Sender struct {
	logger    *slog.Logger
	ring      *ring.Ring
	transport Transport
	tap       FileTap
	stats     *Stats
	log       *eventlog.Log
	indicator Indicator

	connected atomic.Bool
}

// New creates a Sender. tap may be nil to disable the local file tap.
func New(logger *slog.Logger, r *ring.Ring, transport Transport, tap FileTap, log *eventlog.Log) *Sender {
	s := &Sender{
		logger:    logger,
		ring:      r,
		transport: transport,
		tap:       tap,
		stats:     &Stats{},
		log:       log,
	}
	s.connected.Store(true)
	return s
}

// Stats returns the sender's running statistics.
func (s *Sender) Stats() *Stats { return s.stats }

// SetIndicator wires an Indicator into the sender's drain loop; ind may be
// nil to disable indicator side effects (the default before this is called).
func (s *Sender) SetIndicator(ind Indicator) { s.indicator = ind }

// Connected reports whether the sender still considers the link usable. It
// goes false once an ErrLinkDown send error or a sustained bad-send window
// trips the link-down condition spec.md §4.6 describes (a single transient
// failure leaves it true); the supervisor polls this to
// decide when to re-establish the connection.
func (s *Sender) Connected() bool { return s.connected.Load() }

// Run drains the ring until ctx is cancelled or the link is declared down,
// waking on the ring's ready signal or the keep-alive ticker, per spec.md
// §4.6's "wait for DATAGRAM_READY or SEND_RUN_ANYWAY, whichever first".
func (s *Sender) Run(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	var badSince time.Time
	for s.connected.Load() {
		select {
		case <-ctx.Done():
			return
		case <-s.ring.Ready():
		case <-ticker.C:
		}
		s.drain(&badSince)
	}
}

// drain sends every currently in-use slot in order, stopping early (without
// releasing the failed slot) the moment a send fails, per spec.md §4.5's
// "on send failure the slot is retained".
func (s *Sender) drain(badSince *time.Time) {
	for {
		idx, buf, inUse := s.ring.Peek()
		if !inUse {
			return
		}

		hdr, err := urtp.ParseHeader(buf)
		if err != nil {
			s.logger.Error("corrupt slot in ring, dropping", "err", err)
			s.ring.Release(idx)
			continue
		}
		if skipped := s.stats.CheckSequence(hdr.Seq); skipped {
			s.log.Add(eventlog.EventSendSeqSkip, int(hdr.Seq))
		}

		start := time.Now()
		sendErr := s.transport.Send(buf)
		duration := time.Since(start)
		ok := sendErr == nil
		s.stats.RecordSend(ok, duration, len(buf))

		if !ok {
			s.logger.Warn("datagram send failed", "seq", hdr.Seq, "err", sendErr)
			s.log.Add(eventlog.EventSendFailure, int(hdr.Seq))
			if s.indicator != nil {
				s.indicator.Red()
			}
			if badSince.IsZero() {
				*badSince = time.Now()
			}
			if errors.Is(sendErr, ErrLinkDown) || time.Since(*badSince) > maxDurationSocketErrors {
				s.connected.Store(false)
				s.log.Add(eventlog.EventSocketBad, 0)
			}
			return
		}

		*badSince = time.Time{}
		if s.indicator != nil {
			s.indicator.Green()
		}
		if duration > overBudgetThreshold {
			s.log.Add(eventlog.EventSendDurationOverBudget, int(duration.Microseconds()))
		}
		s.log.Add(eventlog.EventSendDuration, int(duration.Microseconds()))

		if s.tap != nil {
			body := buf[urtp.HeaderSize:]
			if terr := s.tap.Write(body); terr != nil {
				s.stats.RecordFileTapFailure()
				s.logger.Warn("file tap write failed", "err", terr)
			}
		}

		s.ring.Release(idx)
	}
}

// Close closes the transport and, if present, the file tap.
func (s *Sender) Close() error {
	var tapErr error
	if s.tap != nil {
		tapErr = s.tap.Close()
	}
	if err := s.transport.Close(); err != nil {
		return err
	}
	return tapErr
}
