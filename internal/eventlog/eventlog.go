// Package eventlog implements the fixed-capacity RAM event log the pipeline
// prints on shutdown: a circular buffer of timestamped events, mirroring the
// firmware's gLog/LOG() macro from the original implementation this module's
// pipeline descends from.
package eventlog

import (
	"fmt"
	"sync"
	"time"
)

// Event identifies one kind of logged occurrence. The set is deliberately
// broad (DMA/capture lifecycle, datagram lifecycle, send timing, transport
// diagnostics) because the log exists to answer "what did the pipeline do"
// after the fact, not just to record errors.
type Event int

const (
	EventNone Event = iota
	EventLogStart
	EventLogStop
	EventFileOpen
	EventFileOpenFailure
	EventFileClose
	EventNetworkStart
	EventNetworkStartFailure
	EventNetworkStop
	EventCaptureStart
	EventCaptureStop
	EventButtonPressed
	EventRxHalfComplete
	EventRxComplete
	EventRxUnknownEvent
	EventDatagramAlloc
	EventDatagramNumSamples
	EventDatagramSize
	EventDatagramReadyToSend
	EventDatagramFree
	EventDatagramOverflowBegins
	EventDatagramNumOverflows
	EventPossibleBadAudio
	EventUnusedBitsMin
	EventAudioShift
	EventSendStart
	EventSendStop
	EventSendFailure
	EventSocketBad
	EventSocketErrorsForTooLong
	EventTCPSendTimeout
	EventSendSeqSkip
	EventFileWriteStart
	EventFileWriteStop
	EventFileWriteFailure
	EventSendDurationOverBudget
	EventSendDuration
	EventNewPeakSendDuration
	EventNumDatagramsFree
	EventThroughputBitsPerSecond
	eventCount
)

var eventNames = [eventCount]string{
	EventNone:                    "NONE",
	EventLogStart:                "LOG_START",
	EventLogStop:                 "LOG_STOP",
	EventFileOpen:                "FILE_OPEN",
	EventFileOpenFailure:         "FILE_OPEN_FAILURE",
	EventFileClose:               "FILE_CLOSE",
	EventNetworkStart:            "NETWORK_START",
	EventNetworkStartFailure:     "NETWORK_START_FAILURE",
	EventNetworkStop:             "NETWORK_STOP",
	EventCaptureStart:            "CAPTURE_START",
	EventCaptureStop:             "CAPTURE_STOP",
	EventButtonPressed:           "BUTTON_PRESSED",
	EventRxHalfComplete:          "RX_HALF_COMPLETE",
	EventRxComplete:              "RX_COMPLETE",
	EventRxUnknownEvent:          "RX_UNKNOWN_EVENT",
	EventDatagramAlloc:           "DATAGRAM_ALLOC",
	EventDatagramNumSamples:      "DATAGRAM_NUM_SAMPLES",
	EventDatagramSize:            "DATAGRAM_SIZE",
	EventDatagramReadyToSend:     "DATAGRAM_READY_TO_SEND",
	EventDatagramFree:            "DATAGRAM_FREE",
	EventDatagramOverflowBegins:  "DATAGRAM_OVERFLOW_BEGINS",
	EventDatagramNumOverflows:    "DATAGRAM_NUM_OVERFLOWS",
	EventPossibleBadAudio:        "POSSIBLE_BAD_AUDIO",
	EventUnusedBitsMin:           "UNUSED_BITS_MIN",
	EventAudioShift:              "AUDIO_SHIFT",
	EventSendStart:               "SEND_START",
	EventSendStop:                "SEND_STOP",
	EventSendFailure:             "SEND_FAILURE",
	EventSocketBad:               "SOCKET_BAD",
	EventSocketErrorsForTooLong:  "SOCKET_ERRORS_FOR_TOO_LONG",
	EventTCPSendTimeout:          "TCP_SEND_TIMEOUT",
	EventSendSeqSkip:             "SEND_SEQ_SKIP",
	EventFileWriteStart:          "FILE_WRITE_START",
	EventFileWriteStop:           "FILE_WRITE_STOP",
	EventFileWriteFailure:        "FILE_WRITE_FAILURE",
	EventSendDurationOverBudget:  "SEND_DURATION_OVER_BUDGET",
	EventSendDuration:            "SEND_DURATION",
	EventNewPeakSendDuration:     "NEW_PEAK_SEND_DURATION",
	EventNumDatagramsFree:        "NUM_DATAGRAMS_FREE",
	EventThroughputBitsPerSecond: "THROUGHPUT_BITS_S",
}

func (e Event) String() string {
	if e >= 0 && int(e) < len(eventNames) && eventNames[e] != "" {
		return eventNames[e]
	}
	return fmt.Sprintf("EVENT(%d)", int(e))
}

// Entry is one recorded occurrence: when it happened, what happened, and an
// event-specific integer parameter (a slot pointer's index, a byte count, a
// duration in microseconds, whatever the event calls for).
type Entry struct {
	At        time.Time
	Event     Event
	Parameter int
}

// Log is a fixed-capacity circular buffer of Entry, safe for concurrent use
// by any number of producers. Once full, each Add overwrites the oldest entry.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	count   int
}

// New creates a Log that holds at most capacity entries.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = 5000
	}
	return &Log{entries: make([]Entry, capacity)}
}

// Add records one event with its parameter, stamped with the current time.
func (l *Log) Add(event Event, parameter int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = Entry{At: time.Now(), Event: event, Parameter: parameter}
	l.next = (l.next + 1) % len(l.entries)
	if l.count < len(l.entries) {
		l.count++
	}
}

// Entries returns a copy of the logged entries in chronological order,
// oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, l.count)
	start := l.next
	if l.count < len(l.entries) {
		start = 0
	}
	for i := 0; i < l.count; i++ {
		out[i] = l.entries[(start+i)%len(l.entries)]
	}
	return out
}

// Print writes every entry to w-style output via the given sink function,
// one line per entry, oldest first. Intended to be called once at shutdown.
func (l *Log) Print(println func(string)) {
	println("------------- Log starts -------------")
	for _, e := range l.Entries() {
		println(fmt.Sprintf("%s: %-28s %d (0x%x)", e.At.Format("15:04:05.000"), e.Event, e.Parameter, e.Parameter))
	}
	println("-------------- Log ends --------------")
}
