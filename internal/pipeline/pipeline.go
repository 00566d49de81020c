// Package pipeline wires the capture, extraction, gain, codec, ring, and
// sender modules into the single running instance the supervisor brings up
// and tears down: the three state machines spec.md's overview describes
// (DMA half/full interrupt -> codec -> datagram ring -> sender) joined end
// to end, grounded on the teacher's cmd/application/application.go for the
// "one struct owns every stage, wired together in a constructor" shape.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/RobMeades/urtpstream/internal/capture"
	"github.com/RobMeades/urtpstream/internal/codec"
	"github.com/RobMeades/urtpstream/internal/config"
	"github.com/RobMeades/urtpstream/internal/eventlog"
	"github.com/RobMeades/urtpstream/internal/filetap"
	"github.com/RobMeades/urtpstream/internal/gain"
	"github.com/RobMeades/urtpstream/internal/indicator"
	"github.com/RobMeades/urtpstream/internal/ring"
	"github.com/RobMeades/urtpstream/internal/sender"
	"github.com/RobMeades/urtpstream/internal/urtp"
)

// drainWindow is the fixed period the sender is given to flush in-flight
// ring slots after capture stops, per spec.md §5 Cancellation.
const drainWindow = 2 * time.Second

// Pipeline is one running instance of the capture -> encode -> ring ->
// sender chain, bound to a single network connection.
type Pipeline struct {
	logger *slog.Logger
	log    *eventlog.Log

	device  capture.Device
	rcb     *capture.RCB
	gain    *gain.Controller
	encoder codec.Encoder
	ring    *ring.Ring
	sender  *sender.Sender

	seq atomic.Uint32
}

// New constructs a Pipeline for cfg: it dials the configured transport,
// opens the optional file tap, and wires the capture device through to the
// sender. Dialing the transport is the only step that can block on network
// I/O; New itself does not run anything.
func New(cfg config.Config, logger *slog.Logger, log *eventlog.Log, ind indicator.Indicator) (*Pipeline, error) {
	coding, err := urtp.ParseCoding(cfg.Coding)
	if err != nil {
		return nil, err
	}
	encoder, err := codec.NewEncoder(coding)
	if err != nil {
		return nil, err
	}
	datagramSize, err := coding.DatagramSize()
	if err != nil {
		return nil, err
	}

	transport, err := dialTransport(cfg)
	if err != nil {
		return nil, err
	}

	var tap sender.FileTap
	if cfg.LocalFile != "" {
		if coding == urtp.CodingPCM16 {
			tap, err = filetap.New(cfg.LocalFile)
			if err != nil {
				transport.Close()
				return nil, err
			}
		} else {
			logger.Info("local file tap disabled for this coding: only pcm16 bodies are decodable as WAV", "coding", cfg.Coding)
		}
	}

	r := ring.New(cfg.RingSize, datagramSize, ring.Options{
		OnOverflowBegin: func() {
			log.Add(eventlog.EventDatagramOverflowBegins, 0)
			if ind != nil {
				ind.Blue(true)
			}
		},
		OnOverflowEnd: func(count int) {
			log.Add(eventlog.EventDatagramNumOverflows, count)
			if ind != nil {
				ind.Blue(false)
			}
		},
	})

	snd := sender.New(logger, r, transport, tap, log)
	if ind != nil {
		snd.SetIndicator(ind)
	}

	var device capture.Device
	if cfg.FixedTone {
		device = capture.NewToneDevice(logger)
	} else {
		device = capture.NewPortAudioDevice(logger)
	}

	p := &Pipeline{
		logger:  logger,
		log:     log,
		device:  device,
		gain:    gain.New(cfg.GainShift),
		encoder: encoder,
		ring:    r,
		sender:  snd,
	}
	p.rcb = capture.NewRCB(p.onHalfComplete)
	return p, nil
}

// dialTransport opens the UDP or TCP transport cfg names. A localFile-only
// configuration with no server has no transport to dial and uses a discard
// sink instead, so the sender still runs and the file tap still records.
func dialTransport(cfg config.Config) (sender.Transport, error) {
	if cfg.ServerHost == "" {
		return discardTransport{}, nil
	}
	addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
	switch cfg.Transport {
	case "tcp":
		return sender.DialTCP(addr)
	default:
		return sender.DialUDP(addr)
	}
}

// discardTransport backs a localFile-only configuration where there is no
// network peer to send to; every send trivially succeeds.
type discardTransport struct{}

func (discardTransport) Send([]byte) error { return nil }
func (discardTransport) Close() error      { return nil }

// onHalfComplete is the RCB's completion callback: extract, gain-adjust,
// encode, and publish one block, per spec.md §4.1-§4.5.
func (p *Pipeline) onHalfComplete(event capture.Event, half capture.Half) {
	frames := p.rcb.Half(half)
	samples, badAudioCount := capture.ExtractBlock(frames)
	if badAudioCount > 0 {
		p.log.Add(eventlog.EventPossibleBadAudio, badAudioCount)
	}

	for i, s := range samples {
		samples[i] = p.gain.Process(s)
	}
	p.log.Add(eventlog.EventUnusedBitsMin, int(p.gain.LastMinUnused()))
	p.log.Add(eventlog.EventAudioShift, p.gain.Shift())

	idx, buf := p.ring.Acquire()
	body := buf[urtp.HeaderSize:]
	if err := p.encoder.Encode(samples, body); err != nil {
		p.logger.Error("encode failed, dropping block", "err", err)
		return
	}

	seq := uint16(p.seq.Add(1) - 1)
	hdr := urtp.Header{
		Coding:      p.encoder.Coding(),
		Seq:         seq,
		TimestampUs: uint64(time.Now().UnixMicro()),
		BodyLen:     uint16(len(body)),
	}
	if err := hdr.Marshal(buf); err != nil {
		p.logger.Error("header marshal failed, dropping block", "err", err)
		return
	}

	p.ring.Publish(idx)
	p.log.Add(eventlog.EventDatagramReadyToSend, int(seq))
}

// Run starts capture and drives the sender until ctx is cancelled or the
// link is declared down. On cancellation, capture stops immediately but the
// sender is given drainWindow to flush the ring before Run returns, per
// spec.md §5 Cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.device.Start(ctx, p.rcb.Push); err != nil {
		return fmt.Errorf("pipeline: start capture: %w", err)
	}
	p.log.Add(eventlog.EventCaptureStart, 0)

	drainCtx, cancelDrain := context.WithCancel(context.Background())
	defer cancelDrain()

	go func() {
		select {
		case <-ctx.Done():
			timer := time.NewTimer(drainWindow)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-drainCtx.Done():
			}
			cancelDrain()
		case <-drainCtx.Done():
		}
	}()

	p.sender.Run(drainCtx)
	p.log.Add(eventlog.EventCaptureStop, 0)
	return nil
}

// Connected reports whether the sender still considers the link usable.
func (p *Pipeline) Connected() bool { return p.sender.Connected() }

// Stats returns the sender's running statistics.
func (p *Pipeline) Stats() *sender.Stats { return p.sender.Stats() }

// Close releases the capture device and the sender's transport/file tap.
func (p *Pipeline) Close() error {
	deviceErr := p.device.Close()
	senderErr := p.sender.Close()
	if deviceErr != nil {
		return deviceErr
	}
	return senderErr
}
