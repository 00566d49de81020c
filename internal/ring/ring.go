// Package ring implements the fixed-capacity, lock-free datagram ring
// between the encode step (producer) and the sender (consumer): spec.md
// §4.5. It is grounded on the single-producer/single-consumer pattern in
// other_examples' drgolem-go-portaudio spsc.go — separate monotonic cursors,
// no mutex, atomic publish/release on the one field the two sides share —
// adapted from a byte stream to a ring of fixed-size datagram slots, one
// slot in flight per 20 ms audio block instead of an arbitrary byte count.
package ring

import (
	"sync/atomic"
)

// Slot owns one datagram's backing buffer. InUse is the single field shared
// between producer and consumer: written last by the producer to publish a
// slot, and last by the consumer to release it.
type Slot struct {
	Buf   []byte
	InUse atomic.Bool
}

// Ring is a fixed logical circular list of N slots. NextEmpty (producer) and
// NextTx (consumer) each advance monotonically and independently; wrap is
// index modulo N, not counter overflow, since Go slice indices are int-sized
// and this ring is not expected to run for the 2^64 datagrams a wrapping
// counter would need to matter.
type Ring struct {
	slots []Slot

	nextEmpty int
	nextTx    int

	freeCount    atomic.Int32
	freeCountMin atomic.Int32

	overflowRun   bool
	overflowCount int

	ready chan struct{}

	onOverflowBegin func()
	onOverflowEnd   func(count int)
}

// Options configures diagnostic callbacks invoked from the producer's
// goroutine; both may be nil.
type Options struct {
	// OnOverflowBegin is called once when the producer first finds the slot
	// it is about to reuse still marked in-use.
	OnOverflowBegin func()
	// OnOverflowEnd is called when a run of overflows ends, with the number
	// of consecutive overflowed encodes in that run.
	OnOverflowEnd func(count int)
}

// New creates a Ring of n slots, each with a datagramSize-byte buffer.
func New(n, datagramSize int, opts Options) *Ring {
	if n <= 0 {
		n = 150
	}
	r := &Ring{
		slots:           make([]Slot, n),
		ready:           make(chan struct{}, 1),
		onOverflowBegin: opts.OnOverflowBegin,
		onOverflowEnd:   opts.OnOverflowEnd,
	}
	for i := range r.slots {
		r.slots[i].Buf = make([]byte, datagramSize)
	}
	r.freeCount.Store(int32(n))
	r.freeCountMin.Store(int32(n))
	return r
}

// Len returns the number of slots in the ring.
func (r *Ring) Len() int { return len(r.slots) }

// FreeCount returns the current number of slots not marked in-use.
func (r *Ring) FreeCount() int { return int(r.freeCount.Load()) }

// FreeCountMin returns the lowest FreeCount observed since the ring was created.
func (r *Ring) FreeCountMin() int { return int(r.freeCountMin.Load()) }

// Ready returns the sender's ready-signal channel: a receive from it wakes
// as soon as at least one Publish has happened since the last receive. It is
// level-triggered, not a counted queue — Publish's send is non-blocking and
// drops if a signal is already pending, matching spec.md §4.5's "one-bit
// level-triggered flag".
func (r *Ring) Ready() <-chan struct{} {
	return r.ready
}

// Acquire returns the next slot for the producer to fill, per spec.md §4.5's
// producer algorithm: if the slot is still in-use this is an overflow, and
// the producer proceeds anyway, overwriting the oldest unsent datagram. The
// caller writes body then header into the returned buffer, then calls
// Publish with the same index.
func (r *Ring) Acquire() (idx int, buf []byte) {
	idx = r.nextEmpty
	slot := &r.slots[idx]

	if slot.InUse.Load() {
		if !r.overflowRun {
			r.overflowRun = true
			r.overflowCount = 0
			if r.onOverflowBegin != nil {
				r.onOverflowBegin()
			}
		}
		r.overflowCount++
	} else if r.overflowRun {
		r.overflowRun = false
		if r.onOverflowEnd != nil {
			r.onOverflowEnd(r.overflowCount)
		}
	}

	return idx, slot.Buf
}

// Publish marks the slot at idx in-use, advances the producer cursor, and
// wakes the sender. Call it only after the buffer returned by Acquire has
// been fully written.
func (r *Ring) Publish(idx int) {
	slot := &r.slots[idx]
	wasFree := !slot.InUse.Load()
	slot.InUse.Store(true)

	if wasFree {
		if n := r.freeCount.Add(-1); n < r.freeCountMin.Load() {
			r.freeCountMin.Store(n)
		}
	}

	r.nextEmpty = (idx + 1) % len(r.slots)

	select {
	case r.ready <- struct{}{}:
	default:
	}
}

// Peek returns the slot at the consumer's current position and whether it is
// in-use, without advancing the cursor. Use it to read the slot before
// deciding whether Release should be called.
func (r *Ring) Peek() (idx int, buf []byte, inUse bool) {
	idx = r.nextTx
	slot := &r.slots[idx]
	return idx, slot.Buf, slot.InUse.Load()
}

// Release marks the slot at the consumer's current position free and
// advances the consumer cursor, per spec.md §4.5's "on successful send,
// clear in_use ... advance next_tx". idx must equal the index most recently
// returned by Peek; passing anything else is a caller error.
func (r *Ring) Release(idx int) {
	slot := &r.slots[idx]
	slot.InUse.Store(false)
	r.freeCount.Add(1)
	r.nextTx = (idx + 1) % len(r.slots)
}
