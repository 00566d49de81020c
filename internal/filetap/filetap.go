// Package filetap implements the sender's optional local recording: a
// best-effort WAV writer for the pcm16-coded body bytes flowing through
// internal/sender, grounded on the teacher's own go-audio/wav usage in
// internal/audiodevice/device/filedevice.go (there a decoder; here an
// encoder) and on spec.md §4.6/§9's "accumulate into a scratch buffer, flush
// as one write" batching.
package filetap

import (
	"encoding/binary"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/RobMeades/urtpstream/internal/urtp"
)

// scratchBlocks is the number of 20ms blocks batched into one encoder.Write
// call, matching spec.md §4.6's "accumulate, flush as one write" behavior
// rather than writing every block individually.
const scratchBlocks = 25 // ~500 ms

// Writer accumulates PCM-16 body bytes and flushes them to a mono 16 kHz WAV
// file once its scratch buffer fills, or on Close.
type Writer struct {
	file    *os.File
	encoder *wav.Encoder
	scratch []int
}

// New creates a Writer backed by a new or truncated file at path.
func New(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("filetap: create %s: %w", path, err)
	}
	enc := wav.NewEncoder(f, urtp.SamplingFrequencyHz, 16, 1, 1)
	return &Writer{
		file:    f,
		encoder: enc,
		scratch: make([]int, 0, urtp.SamplesPerBlock*scratchBlocks),
	}, nil
}

// Write appends one pcm16 datagram body (big-endian 16-bit samples) to the
// scratch buffer, flushing it once it reaches scratchBlocks worth of audio.
func (w *Writer) Write(body []byte) error {
	if len(body)%2 != 0 {
		return fmt.Errorf("filetap: odd-length pcm16 body: %d bytes", len(body))
	}
	for i := 0; i+1 < len(body); i += 2 {
		w.scratch = append(w.scratch, int(int16(binary.BigEndian.Uint16(body[i:i+2]))))
	}
	if len(w.scratch) >= cap(w.scratch) {
		return w.flush()
	}
	return nil
}

func (w *Writer) flush() error {
	if len(w.scratch) == 0 {
		return nil
	}
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{SampleRate: urtp.SamplingFrequencyHz, NumChannels: 1},
		Data:   w.scratch,
	}
	if err := w.encoder.Write(buf); err != nil {
		return fmt.Errorf("filetap: write: %w", err)
	}
	w.scratch = w.scratch[:0]
	return nil
}

// Close flushes any remaining buffered samples, finalizes the WAV header,
// and closes the underlying file.
func (w *Writer) Close() error {
	flushErr := w.flush()
	closeErr := w.encoder.Close()
	fileErr := w.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return closeErr
	}
	return fileErr
}
