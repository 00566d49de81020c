package ring

import "testing"

func TestAcquirePublishRelease(t *testing.T) {
	r := New(4, 8, Options{})

	idx, buf := r.Acquire()
	copy(buf, []byte("abcdefgh"))
	r.Publish(idx)

	select {
	case <-r.Ready():
	default:
		t.Fatal("expected ready signal after Publish")
	}

	pidx, pbuf, inUse := r.Peek()
	if pidx != idx || !inUse {
		t.Fatalf("Peek() = (%d, _, %v), want (%d, _, true)", pidx, inUse, idx)
	}
	if string(pbuf) != "abcdefgh" {
		t.Errorf("Peek buf = %q, want %q", pbuf, "abcdefgh")
	}
	r.Release(pidx)

	if _, _, inUse := r.Peek(); inUse {
		t.Error("slot still in-use after Release")
	}
}

func TestFreeCountTracksPublishAndRelease(t *testing.T) {
	r := New(4, 8, Options{})
	if got := r.FreeCount(); got != 4 {
		t.Fatalf("FreeCount() = %d, want 4", got)
	}

	idx, _ := r.Acquire()
	r.Publish(idx)
	if got := r.FreeCount(); got != 3 {
		t.Fatalf("FreeCount() after Publish = %d, want 3", got)
	}
	if got := r.FreeCountMin(); got != 3 {
		t.Fatalf("FreeCountMin() = %d, want 3", got)
	}

	pidx, _, _ := r.Peek()
	r.Release(pidx)
	if got := r.FreeCount(); got != 4 {
		t.Fatalf("FreeCount() after Release = %d, want 4", got)
	}
}

func TestOverflowCallbacksFireOnWrapWithoutDrain(t *testing.T) {
	var begins, ends int
	var lastRunLen int
	r := New(2, 8, Options{
		OnOverflowBegin: func() { begins++ },
		OnOverflowEnd:   func(n int) { ends++; lastRunLen = n },
	})

	// Fill both slots without draining.
	for i := 0; i < 2; i++ {
		idx, _ := r.Acquire()
		r.Publish(idx)
	}
	if begins != 0 {
		t.Fatalf("begins = %d before any overflow, want 0", begins)
	}

	// Two more encodes: both slots are still in-use, so both overflow.
	for i := 0; i < 2; i++ {
		idx, _ := r.Acquire()
		r.Publish(idx)
	}
	if begins != 1 {
		t.Errorf("begins = %d, want 1 (only the first overflowed encode reports begin)", begins)
	}

	// Drain one slot, then acquire again: the run ends.
	pidx, _, _ := r.Peek()
	r.Release(pidx)
	idx, _ := r.Acquire()
	r.Publish(idx)

	if ends != 1 {
		t.Fatalf("ends = %d, want 1", ends)
	}
	if lastRunLen != 2 {
		t.Errorf("overflow run length = %d, want 2", lastRunLen)
	}
}

func TestReadySignalIsLevelTriggeredNotCounted(t *testing.T) {
	r := New(4, 8, Options{})
	idx, _ := r.Acquire()
	r.Publish(idx)
	idx, _ = r.Acquire()
	r.Publish(idx)

	// Two publishes, but the ready channel only ever holds one pending signal.
	select {
	case <-r.Ready():
	default:
		t.Fatal("expected a pending ready signal")
	}
	select {
	case <-r.Ready():
		t.Fatal("did not expect a second pending ready signal")
	default:
	}
}
