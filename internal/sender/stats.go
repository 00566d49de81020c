package sender

import (
	"sync/atomic"
	"time"

	"github.com/RobMeades/urtpstream/internal/urtp"
)

// overBudgetThreshold is the send duration above which a send counts as
// over-budget, per spec.md §4.6 (duration > BLOCK_DURATION x 1000 us).
const overBudgetThreshold = urtp.BlockDurationMs * time.Millisecond

// Stats accumulates the sender's running counters using atomic fields,
// following zsiec-prism's distribution.DemuxStats convention of lock-free
// counters plus a Snapshot method for periodic publication.
type Stats struct {
	sendCount       atomic.Int64
	sendFailures    atomic.Int64
	seqSkipCount    atomic.Int64
	overBudgetCount atomic.Int64

	totalDurationUs atomic.Int64
	peakDurationUs  atomic.Int64

	bytesSent atomic.Int64

	expectedSeq atomic.Int32
	seqInit     atomic.Bool

	fileTapFailures atomic.Int64
}

// Snapshot is a point-in-time view of Stats, for the 1 Hz throughput
// publisher (spec.md §5).
type Snapshot struct {
	SendCount          int64
	SendFailures       int64
	SeqSkipCount       int64
	OverBudgetCount    int64
	AverageDurationUs  int64
	PeakDurationUs     int64
	BytesSent          int64
	ThroughputBitsPerS float64
	FileTapFailures    int64
}

// RecordSend updates send-duration statistics after one successful or
// failed send attempt.
func (s *Stats) RecordSend(ok bool, duration time.Duration, bytes int) {
	s.sendCount.Add(1)
	if !ok {
		s.sendFailures.Add(1)
		return
	}

	us := duration.Microseconds()
	s.totalDurationUs.Add(us)
	s.bytesSent.Add(int64(bytes))

	for {
		peak := s.peakDurationUs.Load()
		if us <= peak {
			break
		}
		if s.peakDurationUs.CompareAndSwap(peak, us) {
			break
		}
	}

	if duration > overBudgetThreshold {
		s.overBudgetCount.Add(1)
	}
}

// CheckSequence compares seq against the running expected sequence number
// and counts a skip if it doesn't match, per spec.md §4.6's diagnostic-only
// sequence check. It always advances the expectation to seq+1.
func (s *Stats) CheckSequence(seq uint16) (skipped bool) {
	if !s.seqInit.Load() {
		s.seqInit.Store(true)
		s.expectedSeq.Store(int32(seq))
	}
	if int32(seq) != s.expectedSeq.Load() {
		s.seqSkipCount.Add(1)
		skipped = true
	}
	s.expectedSeq.Store(int32(uint16(seq + 1)))
	return skipped
}

// RecordFileTapFailure counts a best-effort file-tap write failure
// (spec.md §9: never aborts the sender).
func (s *Stats) RecordFileTapFailure() {
	s.fileTapFailures.Add(1)
}

// Snapshot returns a consistent point-in-time view of the counters.
func (s *Stats) Snapshot(window time.Duration) Snapshot {
	count := s.sendCount.Load() - s.sendFailures.Load()
	var avg int64
	if count > 0 {
		avg = s.totalDurationUs.Load() / count
	}

	var throughput float64
	if window > 0 {
		throughput = float64(s.bytesSent.Load()) * 8 / window.Seconds()
	}

	return Snapshot{
		SendCount:          s.sendCount.Load(),
		SendFailures:       s.sendFailures.Load(),
		SeqSkipCount:       s.seqSkipCount.Load(),
		OverBudgetCount:    s.overBudgetCount.Load(),
		AverageDurationUs:  avg,
		PeakDurationUs:     s.peakDurationUs.Load(),
		BytesSent:          s.bytesSent.Load(),
		ThroughputBitsPerS: throughput,
		FileTapFailures:    s.fileTapFailures.Load(),
	}
}
