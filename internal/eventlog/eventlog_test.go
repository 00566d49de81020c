package eventlog

import "testing"

func TestAddAndEntriesOrder(t *testing.T) {
	l := New(3)
	l.Add(EventLogStart, 0)
	l.Add(EventCaptureStart, 1)
	l.Add(EventSendStart, 2)

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].Event != EventLogStart || entries[2].Event != EventSendStart {
		t.Errorf("unexpected order: %+v", entries)
	}
}

func TestAddWrapsAtCapacity(t *testing.T) {
	l := New(2)
	l.Add(EventLogStart, 0)
	l.Add(EventCaptureStart, 1)
	l.Add(EventSendStart, 2) // overwrites EventLogStart

	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Event != EventCaptureStart || entries[1].Event != EventSendStart {
		t.Errorf("unexpected entries after wrap: %+v", entries)
	}
}

func TestPrintDoesNotPanicOnEmptyLog(t *testing.T) {
	l := New(5)
	var lines []string
	l.Print(func(s string) { lines = append(lines, s) })
	if len(lines) != 2 {
		t.Errorf("len(lines) = %d, want 2 (start/end markers only)", len(lines))
	}
}
