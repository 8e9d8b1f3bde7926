package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of the on-disk configuration. Only fields
// present in the file override the defaults; zero values are treated as
// "not set" for the scalar knobs where zero is not a legal value.
type fileConfig struct {
	LogLevel string `yaml:"log_level"`

	Audio struct {
		InputDevice *int     `yaml:"input_device"`
		SampleRate  *float64 `yaml:"sample_rate"`
		Window      *int     `yaml:"window"`
		HopSize     *int     `yaml:"hop_size"`
		LowLatency  *bool    `yaml:"low_latency"`
		WindowFunc  string   `yaml:"fft_window"`
	} `yaml:"audio"`

	Equalizer struct {
		Bands      *int      `yaml:"bands"`
		Profile    []float64 `yaml:"profile"`
		HistoryLen *int      `yaml:"history_len"`
		AdjustDamp *float64  `yaml:"adjust_damp"`
		AdjustMin  *float64  `yaml:"adjust_min"`
		AdjustMax  *float64  `yaml:"adjust_max"`
		NormLow    *float64  `yaml:"norm_low"`
		NormHigh   *float64  `yaml:"norm_high"`
	} `yaml:"equalizer"`

	MIDI struct {
		Port        string   `yaml:"port"`
		Channel     *int     `yaml:"channel"`
		Sensitivity *float64 `yaml:"sensitivity"`
		AutoGain    *bool    `yaml:"auto_gain"`
		SilenceRMS  *float64 `yaml:"silence_rms"`
	} `yaml:"midi"`

	Transport struct {
		WebSocketAddr string `yaml:"websocket_addr"`
	} `yaml:"transport"`

	Recording struct {
		File string `yaml:"file"`
	} `yaml:"recording"`
}

// LoadFile merges the YAML file at path into cfg. A missing file is only
// an error when the path was given explicitly; the default search path
// ("config.yaml") is allowed to be absent.
func LoadFile(cfg *Config, path string) (string, error) {
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return "", fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyFile(cfg, &fc)
	applyEnv(cfg)
	return fc.LogLevel, nil
}

func applyFile(cfg *Config, fc *fileConfig) {
	setInt(&cfg.DeviceID, fc.Audio.InputDevice)
	setFloat(&cfg.SampleRate, fc.Audio.SampleRate)
	setInt(&cfg.Window, fc.Audio.Window)
	setInt(&cfg.HopSize, fc.Audio.HopSize)
	setBool(&cfg.LowLatency, fc.Audio.LowLatency)
	if fc.Audio.WindowFunc != "" {
		cfg.WindowFunc = fc.Audio.WindowFunc
	}

	setInt(&cfg.Bands, fc.Equalizer.Bands)
	if fc.Equalizer.Profile != nil {
		cfg.Profile = fc.Equalizer.Profile
	}
	setInt(&cfg.HistoryLen, fc.Equalizer.HistoryLen)
	setFloat(&cfg.AdjustDamp, fc.Equalizer.AdjustDamp)
	setFloat(&cfg.AdjustMin, fc.Equalizer.AdjustMin)
	setFloat(&cfg.AdjustMax, fc.Equalizer.AdjustMax)
	setFloat(&cfg.NormLow, fc.Equalizer.NormLow)
	setFloat(&cfg.NormHigh, fc.Equalizer.NormHigh)

	if fc.MIDI.Port != "" {
		cfg.MIDIPort = fc.MIDI.Port
	}
	setInt(&cfg.MIDIChannel, fc.MIDI.Channel)
	setFloat(&cfg.Sensitivity, fc.MIDI.Sensitivity)
	setBool(&cfg.AutoGain, fc.MIDI.AutoGain)
	setFloat(&cfg.SilenceRMS, fc.MIDI.SilenceRMS)

	if fc.Transport.WebSocketAddr != "" {
		cfg.WebSocketAddr = fc.Transport.WebSocketAddr
	}
	if fc.Recording.File != "" {
		cfg.RecordFile = fc.Recording.File
	}
}

// applyEnv applies environment overrides on top of file values. Only the
// knobs that are useful to flip per-invocation without editing the file
// are exposed this way.
func applyEnv(cfg *Config) {
	if v := os.Getenv("AUDIOMIDI_DEVICE"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			cfg.DeviceID = id
		}
	}
	if v := os.Getenv("AUDIOMIDI_SAMPLE_RATE"); v != "" {
		if sr, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.SampleRate = sr
		}
	}
	if v := os.Getenv("AUDIOMIDI_MIDI_PORT"); v != "" {
		cfg.MIDIPort = v
	}
	if v := os.Getenv("AUDIOMIDI_WS_ADDR"); v != "" {
		cfg.WebSocketAddr = v
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
