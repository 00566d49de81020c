// Package urtp defines the wire format and block-level constants for the
// "U-blox RTP-like" datagram this module streams: a 14-byte header followed
// by a coding-specific body, sent once per 20 ms audio block.
package urtp

import (
	"encoding/binary"
	"fmt"
)

const (
	// SamplingFrequencyHz is the only supported capture rate.
	SamplingFrequencyHz = 16000
	// BlockDurationMs is the cadence of one audio block and one datagram.
	BlockDurationMs = 20
	// SamplesPerBlock is the number of mono samples in one 20 ms block.
	SamplesPerBlock = SamplingFrequencyHz * BlockDurationMs / 1000
	// SamplesPerUnicamBlock is the companding unit: 16 samples (1 ms).
	SamplesPerUnicamBlock = 16
	// UnicamSubBlocksPerBlock is the number of companding sub-blocks per audio block.
	UnicamSubBlocksPerBlock = SamplesPerBlock / SamplesPerUnicamBlock

	// DesiredUnusedBits is the gain controller's headroom target.
	DesiredUnusedBits = 4
	// MaxShift bounds the gain controller's left-shift.
	MaxShift = 12

	// MonoInputSampleBytes is the number of valid bytes per mono sample pulled
	// off the capture interface (24 bits sign-extended into an int32).
	MonoInputSampleBytes = 3

	// HeaderSize is the fixed size, in bytes, of every URTP header.
	HeaderSize = 14
	// SyncByte opens every URTP datagram.
	SyncByte = 0x5A
)

// Coding identifies the body encoding of a datagram.
type Coding uint8

const (
	CodingPCM16    Coding = 0
	CodingUnicam8  Coding = 1
	CodingUnicam10 Coding = 2
)

func (c Coding) String() string {
	switch c {
	case CodingPCM16:
		return "pcm16"
	case CodingUnicam8:
		return "unicam8"
	case CodingUnicam10:
		return "unicam10"
	default:
		return fmt.Sprintf("coding(%d)", uint8(c))
	}
}

// ParseCoding maps a viper config value onto a Coding, the inverse of
// Coding.String.
func ParseCoding(s string) (Coding, error) {
	switch s {
	case "pcm16":
		return CodingPCM16, nil
	case "unicam8":
		return CodingUnicam8, nil
	case "unicam10":
		return CodingUnicam10, nil
	default:
		return 0, fmt.Errorf("urtp: unknown coding %q", s)
	}
}

// BodySize returns the number of payload bytes following the header for the
// given coding, per spec: PCM-16 = 640B, UNICAM-8 = 330B, UNICAM-10 = 410B.
func (c Coding) BodySize() (int, error) {
	switch c {
	case CodingPCM16:
		return 2 * SamplesPerBlock, nil
	case CodingUnicam8:
		return unicamBodySize(8), nil
	case CodingUnicam10:
		return unicamBodySize(10), nil
	default:
		return 0, fmt.Errorf("urtp: unknown coding %v", c)
	}
}

// DatagramSize returns HeaderSize+BodySize(c): 654B, 344B, or 424B.
func (c Coding) DatagramSize() (int, error) {
	body, err := c.BodySize()
	if err != nil {
		return 0, err
	}
	return HeaderSize + body, nil
}

// unicamBodySize computes the packed size of UnicamSubBlocksPerBlock
// sub-blocks of SamplesPerUnicamBlock W-bit samples, each sub-block pair
// sharing one shift-code byte (plus a trailing byte for an unpaired final
// sub-block, which doesn't occur for the even UnicamSubBlocksPerBlock=20).
func unicamBodySize(w int) int {
	bitsPerSubBlock := SamplesPerUnicamBlock * w
	pairs := UnicamSubBlocksPerBlock / 2
	bits := pairs * (2*bitsPerSubBlock + 8)
	if UnicamSubBlocksPerBlock%2 == 1 {
		bits += bitsPerSubBlock + 4
	}
	return (bits + 7) / 8
}

// Header is the 14-byte URTP datagram header, all fields big-endian on the wire.
type Header struct {
	Coding      Coding
	Seq         uint16
	TimestampUs uint64
	BodyLen     uint16
}

// Marshal writes the header into the first HeaderSize bytes of dst, which
// must be at least HeaderSize bytes long.
func (h Header) Marshal(dst []byte) error {
	if len(dst) < HeaderSize {
		return fmt.Errorf("urtp: header buffer too small: %d < %d", len(dst), HeaderSize)
	}
	dst[0] = SyncByte
	dst[1] = byte(h.Coding)
	binary.BigEndian.PutUint16(dst[2:4], h.Seq)
	binary.BigEndian.PutUint64(dst[4:12], h.TimestampUs)
	binary.BigEndian.PutUint16(dst[12:14], h.BodyLen)
	return nil
}

// ParseHeader reads a Header from the first HeaderSize bytes of src, validating
// the sync byte and the coding value.
func ParseHeader(src []byte) (Header, error) {
	var h Header
	if len(src) < HeaderSize {
		return h, fmt.Errorf("urtp: datagram too short: %d < %d", len(src), HeaderSize)
	}
	if src[0] != SyncByte {
		return h, fmt.Errorf("urtp: bad sync byte 0x%02x", src[0])
	}
	c := Coding(src[1])
	switch c {
	case CodingPCM16, CodingUnicam8, CodingUnicam10:
	default:
		return h, fmt.Errorf("urtp: bad coding byte %d", src[1])
	}
	h.Coding = c
	h.Seq = binary.BigEndian.Uint16(src[2:4])
	h.TimestampUs = binary.BigEndian.Uint64(src[4:12])
	h.BodyLen = binary.BigEndian.Uint16(src[12:14])
	return h, nil
}
