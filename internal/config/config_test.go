package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

// resetViper isolates each test's viper state; the package under test uses
// the global viper instance the same way the teacher's config.go does.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaultsWithMinimalFile(t *testing.T) {
	resetViper(t)
	path := writeConfigFile(t, "server:\n  host: 192.168.1.10\n  port: 5000\n")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Transport != "udp" {
		t.Errorf("Transport = %q, want udp", c.Transport)
	}
	if c.Coding != "pcm16" {
		t.Errorf("Coding = %q, want pcm16", c.Coding)
	}
	if c.GainShift != -1 {
		t.Errorf("GainShift = %d, want -1", c.GainShift)
	}
	if c.RingSize != 150 {
		t.Errorf("RingSize = %d, want 150", c.RingSize)
	}
	if c.ServerHost != "192.168.1.10" || c.ServerPort != 5000 {
		t.Errorf("server = %s:%d, want 192.168.1.10:5000", c.ServerHost, c.ServerPort)
	}
}

func TestLoadSucceedsWithoutServerWhenLocalFileSet(t *testing.T) {
	resetViper(t)
	path := writeConfigFile(t, "localFile: /tmp/tap.wav\n")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.LocalFile != "/tmp/tap.wav" {
		t.Errorf("LocalFile = %q", c.LocalFile)
	}
}

func TestLoadRejectsMissingServerAndLocalFile(t *testing.T) {
	resetViper(t)
	path := writeConfigFile(t, "coding: pcm16\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error when neither server.host nor localFile is set")
	}
}

func TestLoadRejectsUnknownCoding(t *testing.T) {
	resetViper(t)
	path := writeConfigFile(t, "server:\n  host: 10.0.0.1\n  port: 5000\ncoding: mulaw\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown coding")
	}
}

func TestLoadRejectsOutOfRangeGainShift(t *testing.T) {
	resetViper(t)
	path := writeConfigFile(t, "server:\n  host: 10.0.0.1\n  port: 5000\ngainShift: 13\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for gainShift out of range")
	}
}

func TestLoadToleratesMissingFile(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "does-not-exist.yaml")

	// server.host is still required, so this should fail validation, not
	// fail on the missing file itself.
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
}
