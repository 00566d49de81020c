package filetap

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestWriterProducesValidWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tap.wav")
	w, err := New(path)
	if err != nil {
		t.Fatal(err)
	}

	body := make([]byte, 8)
	binary.BigEndian.PutUint16(body[0:2], 0x0001)
	binary.BigEndian.PutUint16(body[2:4], 0xFFFF)
	binary.BigEndian.PutUint16(body[4:6], 0x7FFF)
	binary.BigEndian.PutUint16(body[6:8], 0x8000)

	if err := w.Write(body); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("filetap did not produce a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, -1, 32767, -32768}
	if len(buf.Data) != len(want) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(want))
	}
	for i, w := range want {
		if buf.Data[i] != w {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], w)
		}
	}
}

func TestWriteRejectsOddLengthBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tap.wav")
	w, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Write([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Fatal("expected error for odd-length body")
	}
}
