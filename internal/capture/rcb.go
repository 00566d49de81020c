package capture

import (
	"sync"

	"github.com/RobMeades/urtpstream/internal/urtp"
)

// Half identifies one of the RCB's two ping-pong buffers.
type Half int

const (
	HalfA Half = iota
	HalfB
)

// Event is the completion signal a capture device raises after filling one
// half of the RCB, mirroring the mbed i2sEventCallback's event argument.
type Event int

const (
	// EventHalfComplete fires when HalfA finishes filling.
	EventHalfComplete Event = iota + 1
	// EventFullComplete fires when HalfB finishes filling (the DMA has now
	// wrapped all the way round the double buffer).
	EventFullComplete
)

// RCB is the ping-pong raw capture buffer between the capture device and the
// sample extractor: two halves, each urtp.SamplesPerBlock stereo frames,
// filled one half at a time. Safe for concurrent use by one producer (the
// capture device's callback) and readers of a completed half.
type RCB struct {
	mu        sync.Mutex
	halves    [2][urtp.SamplesPerBlock]StereoFrame
	writeHalf Half
	writeIdx  int

	onEvent func(Event, Half)
}

// NewRCB creates an RCB. onEvent is called synchronously from Push whenever
// a half completes; it must not block.
func NewRCB(onEvent func(Event, Half)) *RCB {
	return &RCB{onEvent: onEvent}
}

// Push appends one captured frame to the half currently being written,
// raising EventHalfComplete or EventFullComplete when that half fills.
func (r *RCB) Push(f StereoFrame) {
	r.mu.Lock()
	half := r.writeHalf
	idx := r.writeIdx
	r.halves[half][idx] = f
	r.writeIdx++

	var event Event
	if r.writeIdx == urtp.SamplesPerBlock {
		if half == HalfA {
			event = EventHalfComplete
			r.writeHalf = HalfB
		} else {
			event = EventFullComplete
			r.writeHalf = HalfA
		}
		r.writeIdx = 0
	}
	r.mu.Unlock()

	if event != 0 && r.onEvent != nil {
		r.onEvent(event, half)
	}
}

// Half returns a copy of the given half's frames, for the extractor to
// consume once that half's completion event has fired.
func (r *RCB) Half(h Half) []StereoFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StereoFrame, urtp.SamplesPerBlock)
	copy(out, r.halves[h][:])
	return out
}

// ExtractBlock runs the sample extractor over one completed half, returning
// one gain-input sample per frame and the count of frames whose filler byte
// failed to validate (spec.md §4.2's possible_bad_audio diagnostic).
func ExtractBlock(frames []StereoFrame) (samples []int32, badAudioCount int) {
	samples = make([]int32, len(frames))
	for i, f := range frames {
		s, ok := f.Extract()
		samples[i] = s
		if !ok {
			badAudioCount++
		}
	}
	return samples, badAudioCount
}
