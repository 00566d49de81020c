package pipeline

import (
	"log/slog"
	"testing"

	"github.com/RobMeades/urtpstream/internal/capture"
	"github.com/RobMeades/urtpstream/internal/codec"
	"github.com/RobMeades/urtpstream/internal/config"
	"github.com/RobMeades/urtpstream/internal/eventlog"
	"github.com/RobMeades/urtpstream/internal/gain"
	"github.com/RobMeades/urtpstream/internal/ring"
	"github.com/RobMeades/urtpstream/internal/urtp"
)

// newTestPipeline builds a Pipeline without touching the network or any
// capture hardware, exercising the same fields New would assemble, so
// onHalfComplete's encode/publish logic can be tested directly.
func newTestPipeline(t *testing.T) (*Pipeline, *ring.Ring) {
	t.Helper()
	size, _ := urtp.CodingPCM16.DatagramSize()
	r := ring.New(4, size, ring.Options{})
	encoder, err := codec.NewEncoder(urtp.CodingPCM16)
	if err != nil {
		t.Fatal(err)
	}
	p := &Pipeline{
		logger:  slog.Default(),
		log:     eventlog.New(100),
		device:  capture.NewToneDevice(slog.Default()),
		gain:    gain.New(gain.AutoShift),
		encoder: encoder,
		ring:    r,
		sender:  nil,
	}
	p.rcb = capture.NewRCB(p.onHalfComplete)
	return p, r
}

func TestDialTransportWithNoServerHostUsesDiscardTransport(t *testing.T) {
	tr, err := dialTransport(config.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(discardTransport); !ok {
		t.Fatalf("dialTransport with no server host = %T, want discardTransport", tr)
	}
	if err := tr.Send([]byte("anything")); err != nil {
		t.Errorf("discardTransport.Send returned %v, want nil", err)
	}
}

func TestOnHalfCompletePublishesOneDatagramPerBlock(t *testing.T) {
	p, r := newTestPipeline(t)

	for i := 0; i < urtp.SamplesPerBlock; i++ {
		p.rcb.Push(capture.Embed(int32(i), 0xFF))
	}

	_, buf, inUse := r.Peek()
	if !inUse {
		t.Fatal("expected a published datagram after one full block")
	}
	hdr, err := urtp.ParseHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Coding != urtp.CodingPCM16 {
		t.Errorf("Coding = %v, want pcm16", hdr.Coding)
	}
	if hdr.Seq != 0 {
		t.Errorf("Seq = %d, want 0", hdr.Seq)
	}
	wantBodyLen, _ := urtp.CodingPCM16.BodySize()
	if int(hdr.BodyLen) != wantBodyLen {
		t.Errorf("BodyLen = %d, want %d", hdr.BodyLen, wantBodyLen)
	}
}

func TestOnHalfCompleteAdvancesSequenceAcrossBlocks(t *testing.T) {
	p, r := newTestPipeline(t)

	pushBlock := func(base int32) {
		for i := 0; i < urtp.SamplesPerBlock; i++ {
			p.rcb.Push(capture.Embed(base+int32(i), 0xFF))
		}
	}

	pushBlock(0)
	idx, _, _ := r.Peek()
	r.Release(idx)

	pushBlock(100)
	_, buf2, inUse := r.Peek()
	if !inUse {
		t.Fatal("expected second datagram published")
	}
	hdr, err := urtp.ParseHeader(buf2)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Seq != 1 {
		t.Errorf("Seq = %d, want 1", hdr.Seq)
	}
}

func TestOnHalfCompleteRecordsBadAudioCount(t *testing.T) {
	p, r := newTestPipeline(t)

	for i := 0; i < urtp.SamplesPerBlock; i++ {
		filler := byte(0xFF)
		if i == 5 {
			filler = 0x00
		}
		p.rcb.Push(capture.Embed(int32(i), filler))
	}

	entries := p.log.Entries()
	found := false
	for _, e := range entries {
		if e.Event == eventlog.EventPossibleBadAudio && e.Parameter == 1 {
			found = true
		}
	}
	if !found {
		t.Error("expected an EventPossibleBadAudio entry with parameter 1")
	}
	if _, _, inUse := r.Peek(); !inUse {
		t.Error("a bad-audio frame should not prevent the block from being published")
	}
}
