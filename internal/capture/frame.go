// Package capture implements the raw capture path: the ping-pong capture
// buffer, the sample extractor that pulls a signed mono sample out of a raw
// stereo frame, and the capture devices that feed it (a real microphone via
// gordonklaus/portaudio, or a canned debug tone). Grounded on the teacher's
// internal/device/rtaudioinputdevice.go for the device/callback shape, and
// on original_source/main.cpp's getMonoSample for the byte layout.
package capture

// fillerByte is the value the byte at StereoFrame.Left's low position is
// expected to carry; a mismatch indicates I2S bit-slip on real hardware
// (spec.md §4.2). original_source/main.cpp's comment on getMonoSample shows
// two genuinely hardware-constant 0xFF bytes flanking the wanted channel's
// data (the low two bytes of the first word, the high two bytes of the
// second); the byte between the two words that comment calls "xx" is
// documented there as discarded/undefined and is not checked.
const fillerByte = 0xFF

// StereoFrame is one raw captured stereo sample pair, laid out the way
// original_source/main.cpp's getMonoSample expects: the wanted (left)
// channel's most significant byte and middle byte occupy Left's top two
// bytes, its least significant byte occupies Right's second byte. Left's low
// byte carries the filler checked against fillerByte; Right's low byte is
// the undocumented "xx" byte and is ignored.
type StereoFrame struct {
	Left  uint32
	Right uint32
}

// Extract pulls the sign-extended 24-bit mono sample out of f and reports
// whether the filler byte matched fillerByte.
func (f StereoFrame) Extract() (sample int32, fillerOK bool) {
	msb := byte(f.Left >> 24)
	mid := byte(f.Left >> 16)
	lsb := byte(f.Right >> 8)
	filler := byte(f.Left)

	sample24 := uint32(msb)<<16 | uint32(mid)<<8 | uint32(lsb)
	sample = int32(sample24<<8) >> 8 // sign-extend 24 -> 32 bits

	return sample, filler == fillerByte
}

// Embed constructs the StereoFrame that Extract would recover sample and
// filler from; only sample's low 24 bits are used. It is the inverse of
// Extract, used by ToneDevice to synthesize frames and by tests to construct
// both well-formed and deliberately corrupt frames.
func Embed(sample int32, filler byte) StereoFrame {
	s := uint32(sample) & 0x00FFFFFF
	msb := byte(s >> 16)
	mid := byte(s >> 8)
	lsb := byte(s)
	return StereoFrame{
		Left:  uint32(msb)<<24 | uint32(mid)<<16 | uint32(filler),
		Right: uint32(lsb) << 8,
	}
}

// portaudioSampleToMono reduces a native full-range int32 capture sample
// (portaudio's paInt32 format, top-justified) to the urtp.MonoInputSampleBytes
// magnitude this module's frames carry.
func portaudioSampleToMono(s int32) int32 {
	return s >> 8
}
