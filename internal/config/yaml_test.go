package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeTempConfig(t, `
log_level: debug
audio:
  sample_rate: 44100
  window: 1024
  fft_window: hamming
equalizer:
  bands: 16
  adjust_damp: 0.2
midi:
  channel: 3
  sensitivity: 1.5
transport:
  websocket_addr: "127.0.0.1:8080"
`)

	cfg := New()
	level, err := LoadFile(cfg, path)
	if err != nil {
		t.Fatal(err)
	}

	if level != "debug" {
		t.Errorf("log level = %q, want debug", level)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("sample rate = %v, want 44100", cfg.SampleRate)
	}
	if cfg.Window != 1024 {
		t.Errorf("window = %d, want 1024", cfg.Window)
	}
	if cfg.WindowFunc != "hamming" {
		t.Errorf("window func = %q, want hamming", cfg.WindowFunc)
	}
	if cfg.Bands != 16 {
		t.Errorf("bands = %d, want 16", cfg.Bands)
	}
	if cfg.AdjustDamp != 0.2 {
		t.Errorf("adjust damp = %v, want 0.2", cfg.AdjustDamp)
	}
	if cfg.MIDIChannel != 3 {
		t.Errorf("MIDI channel = %d, want 3", cfg.MIDIChannel)
	}
	if cfg.Sensitivity != 1.5 {
		t.Errorf("sensitivity = %v, want 1.5", cfg.Sensitivity)
	}
	if cfg.WebSocketAddr != "127.0.0.1:8080" {
		t.Errorf("websocket addr = %q", cfg.WebSocketAddr)
	}

	// Untouched fields keep their defaults.
	if cfg.HistoryLen != DefaultHistoryLen {
		t.Errorf("history length = %d, want default %d", cfg.HistoryLen, DefaultHistoryLen)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoadFileMissingExplicitPath(t *testing.T) {
	cfg := New()
	if _, err := LoadFile(cfg, filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("explicitly named missing file should be an error")
	}
}

func TestLoadFileBadYAML(t *testing.T) {
	path := writeTempConfig(t, "audio: [not a mapping")
	cfg := New()
	if _, err := LoadFile(cfg, path); err == nil {
		t.Error("malformed YAML should be an error")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, "audio:\n  sample_rate: 44100\n")
	t.Setenv("AUDIOMIDI_SAMPLE_RATE", "96000")
	t.Setenv("AUDIOMIDI_MIDI_PORT", "Synth Out")

	cfg := New()
	if _, err := LoadFile(cfg, path); err != nil {
		t.Fatal(err)
	}
	if cfg.SampleRate != 96000 {
		t.Errorf("env override lost: sample rate = %v, want 96000", cfg.SampleRate)
	}
	if cfg.MIDIPort != "Synth Out" {
		t.Errorf("env override lost: MIDI port = %q", cfg.MIDIPort)
	}
}
