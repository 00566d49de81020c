// Package codec implements the two wire encodings a datagram body can carry:
// plain big-endian PCM-16, and NICAM-style UNICAM block companding at 8 or 10
// bits per sample. Both are grounded on spec.md §4.4; UNICAM's bit-packer is
// a generic rewrite of the original firmware's offset-specific packer (see
// bitWriter), shaped like a companding codec (sub-block side information plus
// packed sample fields) the way other_examples' G.711 and TTA codecs lay out
// their own per-block metadata.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/RobMeades/urtpstream/internal/urtp"
)

// Encoder turns one 20 ms block of gain-adjusted mono samples into a
// datagram body. Implementations are stateless and safe for concurrent use
// only if each call is given its own out buffer.
type Encoder interface {
	// Coding identifies the wire coding this Encoder produces.
	Coding() urtp.Coding
	// BodySize is the fixed number of bytes Encode writes to out.
	BodySize() int
	// Encode packs len(samples) == urtp.SamplesPerBlock gain-adjusted
	// samples into out, which must be at least BodySize() bytes long.
	Encode(samples []int32, out []byte) error
}

// CheckArithmeticShift verifies the runtime's right-shift on a negative
// signed integer is arithmetic (sign-preserving), which UNICAM decoding at
// the far end depends on. Go's spec guarantees this for all platforms, but
// spec.md §4.4 calls for an explicit startup check before UNICAM modes run,
// mirroring the firmware's own platform precondition checks; this keeps that
// contract visible rather than silently relying on the language spec.
func CheckArithmeticShift() error {
	const negative int32 = -8
	if negative>>1 != -4 {
		return fmt.Errorf("codec: platform does not provide arithmetic right shift, UNICAM modes unavailable")
	}
	return nil
}

// NewEncoder returns the Encoder for the given coding.
func NewEncoder(c urtp.Coding) (Encoder, error) {
	switch c {
	case urtp.CodingPCM16:
		return pcm16Encoder{}, nil
	case urtp.CodingUnicam8:
		return unicamEncoder{width: 8}, nil
	case urtp.CodingUnicam10:
		return unicamEncoder{width: 10}, nil
	default:
		return nil, fmt.Errorf("codec: unknown coding %v", c)
	}
}

type pcm16Encoder struct{}

func (pcm16Encoder) Coding() urtp.Coding { return urtp.CodingPCM16 }

func (pcm16Encoder) BodySize() int { return 2 * urtp.SamplesPerBlock }

// Encode writes the top two bytes of each gain-adjusted sample, big-endian,
// per spec.md §4.4.
func (pcm16Encoder) Encode(samples []int32, out []byte) error {
	if len(samples) != urtp.SamplesPerBlock {
		return fmt.Errorf("codec: pcm16 expects %d samples, got %d", urtp.SamplesPerBlock, len(samples))
	}
	if len(out) < 2*urtp.SamplesPerBlock {
		return fmt.Errorf("codec: pcm16 output buffer too small: %d", len(out))
	}
	for i, s := range samples {
		binary.BigEndian.PutUint16(out[2*i:2*i+2], uint16(int16(s>>16)))
	}
	return nil
}

// unicamEncoder implements the NICAM-style block companding scheme at a
// fixed sample width (8 or 10 bits).
type unicamEncoder struct {
	width int
}

func (e unicamEncoder) Coding() urtp.Coding {
	if e.width == 8 {
		return urtp.CodingUnicam8
	}
	return urtp.CodingUnicam10
}

func (e unicamEncoder) BodySize() int {
	size, _ := e.Coding().BodySize()
	return size
}

// Encode partitions samples into urtp.UnicamSubBlocksPerBlock sub-blocks of
// urtp.SamplesPerUnicamBlock samples, computes a per-sub-block shift code
// from the sub-block's peak magnitude, and packs the shifted-down, W-bit
// truncated samples with their shift codes per spec.md §4.4's wire order:
// {sub-block N samples}, {shift code of N | shift code of N+1}, {sub-block
// N+1 samples}, for each consecutive even/odd pair.
func (e unicamEncoder) Encode(samples []int32, out []byte) error {
	if len(samples) != urtp.SamplesPerBlock {
		return fmt.Errorf("codec: unicam expects %d samples, got %d", urtp.SamplesPerBlock, len(samples))
	}
	bodySize := e.BodySize()
	if len(out) < bodySize {
		return fmt.Errorf("codec: unicam output buffer too small: %d < %d", len(out), bodySize)
	}
	for i := range out[:bodySize] {
		out[i] = 0
	}

	w := newBitWriter(out)
	for pair := 0; pair < urtp.UnicamSubBlocksPerBlock; pair += 2 {
		evenShift := e.writeSubBlock(w, samples, pair)
		// The shift-code byte sits between the two sub-blocks but depends on
		// the odd one, so reserve it and fill it in once both are packed.
		codePos := w.bitPos
		w.bitPos += 8
		oddShift := e.writeSubBlock(w, samples, pair+1)
		end := w.bitPos
		w.bitPos = codePos
		w.writeBits(uint32(evenShift|oddShift<<4), 8)
		w.bitPos = end
	}
	return nil
}

// writeSubBlock packs one 16-sample sub-block's compressed samples and
// returns its 4-bit shift code; the caller is responsible for emitting the
// code byte shared with its paired sub-block.
func (e unicamEncoder) writeSubBlock(w *bitWriter, samples []int32, subBlock int) int {
	start := subBlock * urtp.SamplesPerUnicamBlock
	sub := samples[start : start+urtp.SamplesPerUnicamBlock]

	var maxAbs int32
	for _, s := range sub {
		a := s
		if a < 0 {
			a = -a
		}
		if a > maxAbs {
			maxAbs = a
		}
	}

	usedBits := highestSetBit(maxAbs)
	shift32 := usedBits - e.width
	if shift32 < 0 {
		shift32 = 0
	}
	shiftCode := shift32 - 16
	if shiftCode < 0 {
		shiftCode = 0
	}

	mask := uint32(1)<<uint(e.width) - 1
	for _, s := range sub {
		compressed := uint32(s>>uint(shift32)) & mask
		w.writeBits(compressed, e.width)
	}
	return shiftCode
}

// highestSetBit returns the 1-based position of v's highest set bit (1..31),
// or 0 if v is zero.
func highestSetBit(v int32) int {
	n := 0
	for v != 0 {
		v >>= 1
		n++
	}
	return n
}

// bitWriter packs MSB-first bit fields into a byte slice, as UNICAM-10's
// straddling of byte boundaries requires (spec.md's REDESIGN FLAGS note on
// the original packer's {0,2,4,6}-only offset coverage). It is written
// generically over an arbitrary running bit position instead, so no offset
// is ever "uncovered".
type bitWriter struct {
	buf    []byte
	bitPos int
}

func newBitWriter(buf []byte) *bitWriter {
	return &bitWriter{buf: buf}
}

// writeBits writes the low n bits of v, MSB first, starting at the writer's
// current bit position, and advances the position by n.
func (w *bitWriter) writeBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		bit := (v >> uint(i)) & 1
		byteIdx := w.bitPos / 8
		bitIdx := 7 - (w.bitPos % 8)
		if bit != 0 {
			w.buf[byteIdx] |= 1 << uint(bitIdx)
		}
		w.bitPos++
	}
}
