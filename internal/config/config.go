// Package config defines the runtime configuration for the audio-to-MIDI
// pipeline and validates it eagerly at startup, so malformed band or
// window settings are rejected before any audio is captured.
package config

import (
	"fmt"

	"audiomidi/pkg/bitint"
)

// Defaults mirror the analysis parameters the pipeline was tuned with.
const (
	DefaultDeviceID   = MinDeviceID // System default input device
	DefaultSampleRate = 48000.0     // Hz
	DefaultWindow     = 2048        // Samples per analysis frame
	DefaultHopSize    = 512         // Samples between pipeline cycles
	DefaultLowLatency = false

	DefaultBands       = 31    // Equalizer band count
	DefaultHistoryLen  = 100   // Dominant-note history bound
	DefaultAdjustDamp  = 0.1   // Gain for the busiest band
	DefaultAdjustMin   = 0.1   // Adjustment clamp floor
	DefaultAdjustMax   = 3.0   // Adjustment clamp ceiling
	DefaultNormLow     = 0.0   // Equalized spectrum range low
	DefaultNormHigh    = 1.0   // Equalized spectrum range high
	DefaultSilenceRMS  = 0.0005
	DefaultSensitivity = 1.0
	DefaultWindowFunc  = "hann"

	DefaultMIDIPort     = ""    // Empty selects every available port
	DefaultMIDIChannel  = 0
	DefaultAutoGain     = false
	DefaultVelocitySpan = 10 // Recent velocities kept for auto-gain

	DefaultWebSocketAddr = "" // Empty disables the broadcast transport
	DefaultRecordFile    = "" // Empty disables input recording

	// Hardware and processing limits.
	MinDeviceID   = -1
	MinSampleRate = 8000.0
	MaxSampleRate = 192000.0
	MaxWindow     = 16384
)

// Config holds every runtime option, built from defaults, an optional
// YAML file and command-line flags, in that order.
type Config struct {
	// Capture settings.
	DeviceID   int
	SampleRate float64
	Window     int // Analysis frame size, power of 2
	HopSize    int // Samples consumed per cycle
	LowLatency bool

	// Pipeline settings.
	Bands       int
	Profile     []float64 // Static per-band gains; nil means flat 1.0
	HistoryLen  int
	AdjustDamp  float64
	AdjustMin   float64
	AdjustMax   float64
	NormLow     float64
	NormHigh    float64
	SilenceRMS  float64
	Sensitivity float64
	WindowFunc  string
	AutoGain    bool

	// MIDI output settings.
	MIDIPort    string
	MIDIChannel int

	// Side channels.
	WebSocketAddr string // host:port of the level broadcaster, "" = off
	RecordFile    string // WAV dump of raw input, "" = off
	ShowStatus    bool   // Per-cycle status line on the terminal

	// Debug options.
	Verbose bool
	Command string // One-off command ("list", "ports") instead of running
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		DeviceID:      DefaultDeviceID,
		SampleRate:    DefaultSampleRate,
		Window:        DefaultWindow,
		HopSize:       DefaultHopSize,
		LowLatency:    DefaultLowLatency,
		Bands:         DefaultBands,
		HistoryLen:    DefaultHistoryLen,
		AdjustDamp:    DefaultAdjustDamp,
		AdjustMin:     DefaultAdjustMin,
		AdjustMax:     DefaultAdjustMax,
		NormLow:       DefaultNormLow,
		NormHigh:      DefaultNormHigh,
		SilenceRMS:    DefaultSilenceRMS,
		Sensitivity:   DefaultSensitivity,
		WindowFunc:    DefaultWindowFunc,
		AutoGain:      DefaultAutoGain,
		MIDIPort:      DefaultMIDIPort,
		MIDIChannel:   DefaultMIDIChannel,
		WebSocketAddr: DefaultWebSocketAddr,
		RecordFile:    DefaultRecordFile,
		ShowStatus:    true,
	}
}

// Validate rejects malformed configuration before the pipeline starts.
// Every failure here would otherwise surface mid-stream as a panic or a
// silent misbehavior, so nothing is coerced silently.
func (c *Config) Validate() error {
	if !bitint.IsPowerOfTwo(c.Window) || c.Window > MaxWindow {
		return fmt.Errorf("config: window must be a power of 2 up to %d, got %d", MaxWindow, c.Window)
	}
	if c.SampleRate < MinSampleRate || c.SampleRate > MaxSampleRate {
		return fmt.Errorf("config: sample rate %g outside [%g, %g]", c.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.HopSize <= 0 || c.HopSize > c.Window {
		return fmt.Errorf("config: hop size %d outside (0, %d]", c.HopSize, c.Window)
	}
	if c.Bands <= 0 || c.Bands > c.Window/2 {
		return fmt.Errorf("config: band count %d outside (0, %d]", c.Bands, c.Window/2)
	}
	if c.Profile != nil && len(c.Profile) != c.Bands {
		return fmt.Errorf("config: profile has %d gains for %d bands", len(c.Profile), c.Bands)
	}
	for i, g := range c.Profile {
		if g <= 0 {
			return fmt.Errorf("config: profile gain %d must be positive, got %g", i, g)
		}
	}
	if c.HistoryLen <= 0 {
		return fmt.Errorf("config: history length must be positive, got %d", c.HistoryLen)
	}
	if c.AdjustMin <= 0 || c.AdjustMax < c.AdjustMin {
		return fmt.Errorf("config: adjustment clamp [%g, %g] is invalid", c.AdjustMin, c.AdjustMax)
	}
	if c.AdjustDamp < c.AdjustMin || c.AdjustDamp > c.AdjustMax {
		return fmt.Errorf("config: adjustment damp %g outside clamp [%g, %g]", c.AdjustDamp, c.AdjustMin, c.AdjustMax)
	}
	if c.NormHigh <= c.NormLow {
		return fmt.Errorf("config: normalization range [%g, %g] is empty", c.NormLow, c.NormHigh)
	}
	if c.SilenceRMS < 0 {
		return fmt.Errorf("config: silence threshold must be non-negative, got %g", c.SilenceRMS)
	}
	if c.Sensitivity <= 0 {
		return fmt.Errorf("config: sensitivity must be positive, got %g", c.Sensitivity)
	}
	if c.MIDIChannel < 0 || c.MIDIChannel > 15 {
		return fmt.Errorf("config: MIDI channel %d outside [0, 15]", c.MIDIChannel)
	}
	return nil
}

// BaseProfile returns the static equalizer profile, expanding nil to a
// flat all-1.0 profile of the configured band count.
func (c *Config) BaseProfile() []float64 {
	if c.Profile != nil {
		return c.Profile
	}
	p := make([]float64, c.Bands)
	for i := range p {
		p[i] = 1.0
	}
	return p
}
