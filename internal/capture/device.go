package capture

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"

	"github.com/RobMeades/urtpstream/internal/urtp"
)

// Device is the capture backend contract the pipeline depends on, following
// the shape of the teacher's device.RtAudioInputDevice: construct, Start
// with a push callback, Close.
type Device interface {
	// Start begins capture, calling push once per captured stereo frame
	// until ctx is cancelled or Close is called. push must not block.
	Start(ctx context.Context, push func(StereoFrame)) error
	Close() error
}

// PortAudioDevice captures real microphone audio via gordonklaus/portaudio,
// opened at urtp.SamplingFrequencyHz, 2 channels, int32 samples — the
// closest portaudio format to the firmware's 24-in-32 I2S layout.
type PortAudioDevice struct {
	logger *slog.Logger
	runID  uuid.UUID
	stream *portaudio.Stream
}

// NewPortAudioDevice creates a PortAudioDevice. Initialize/Start do the
// actual portaudio library setup; construction only assigns a run identity.
func NewPortAudioDevice(logger *slog.Logger) *PortAudioDevice {
	id := uuid.New()
	return &PortAudioDevice{
		logger: logger.With("run_id", id),
		runID:  id,
	}
}

// Start opens and starts the default input stream and spawns a goroutine
// that reads it until ctx is done, pushing one StereoFrame per captured
// sample pair. The real captured left-channel sample is embedded into the
// frame format Extract expects, with a valid filler byte — there is no
// hardware bit-slip to detect on a portaudio-backed capture, so
// possible_bad_audio stays at zero on this path by construction.
func (d *PortAudioDevice) Start(ctx context.Context, push func(StereoFrame)) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("capture: portaudio initialize: %w", err)
	}

	in := make([]int32, urtp.SamplesPerBlock*2)
	stream, err := portaudio.OpenDefaultStream(2, 0, float64(urtp.SamplingFrequencyHz), urtp.SamplesPerBlock, in)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("capture: open default stream: %w", err)
	}
	d.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("capture: start stream: %w", err)
	}

	d.logger.Info("portaudio capture started", "sample_rate", urtp.SamplingFrequencyHz)

	go func() {
		defer d.logger.Info("portaudio capture goroutine exiting")
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if err := stream.Read(); err != nil {
				d.logger.Warn("portaudio read error", "err", err)
				continue
			}
			for i := 0; i < urtp.SamplesPerBlock; i++ {
				mono := portaudioSampleToMono(in[2*i])
				push(Embed(mono, fillerByte))
			}
		}
	}()

	return nil
}

// Close stops and closes the stream and terminates the portaudio library.
func (d *PortAudioDevice) Close() error {
	if d.stream == nil {
		return nil
	}
	err := d.stream.Close()
	portaudio.Terminate()
	return err
}

// toneAmplitude keeps the synthesized tone comfortably inside the 24-bit
// signed sample range, away from the clipping boundary exercised by the
// codec's own tests.
const toneAmplitude = 1 << 22

// toneFrequencyHz matches original_source/main.cpp's canned 400 Hz debug
// tone (gPcm400HzSigned24Bit), generated here rather than tabulated.
const toneFrequencyHz = 400.0

// ToneDevice is the STREAM_FIXED_TONE debug mode from original_source,
// promoted to a first-class Device so it can stand in for a microphone on
// hosts with none, or drive deterministic tests.
type ToneDevice struct {
	logger *slog.Logger
	phase  float64
}

// NewToneDevice creates a ToneDevice.
func NewToneDevice(logger *slog.Logger) *ToneDevice {
	return &ToneDevice{logger: logger}
}

// Start synthesizes one block's worth of tone samples every
// urtp.BlockDurationMs, matching the cadence a real capture device delivers
// whole blocks at.
func (d *ToneDevice) Start(ctx context.Context, push func(StereoFrame)) error {
	d.logger.Info("tone debug capture started", "frequency_hz", toneFrequencyHz)
	step := 2 * math.Pi * toneFrequencyHz / urtp.SamplingFrequencyHz

	go func() {
		ticker := time.NewTicker(urtp.BlockDurationMs * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for i := 0; i < urtp.SamplesPerBlock; i++ {
					sample := int32(toneAmplitude * math.Sin(d.phase))
					d.phase += step
					push(Embed(sample, fillerByte))
				}
			}
		}
	}()

	return nil
}

// Close is a no-op: ToneDevice owns no external resources.
func (d *ToneDevice) Close() error { return nil }
