// SPDX-License-Identifier: MIT
/*
Package audio is the capture collaborator: it owns the PortAudio
lifecycle, input device selection and the callback that converts raw
int32 buffers into float64 sample blocks for the pipeline. Optionally it
mirrors the raw input to a WAV file.
*/
package audio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"audiomidi/internal/config"
)

// ErrDeviceUnavailable marks a missing or disconnected capture device.
// Fatal for the current run.
var ErrDeviceUnavailable = errors.New("audio: capture device unavailable")

// Initialize sets up the PortAudio subsystem. Must be called before any
// other function in this package and paired with Terminate.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio: initializing PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts down the PortAudio subsystem. Defer right after
// Initialize.
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("audio: terminating PortAudio: %w", err)
	}
	return nil
}

// InputDevice resolves a device ID to a PortAudio input device.
// config.MinDeviceID selects the system default.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.MinDeviceID {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: no default input: %v", ErrDeviceUnavailable, err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: enumerating devices: %v", ErrDeviceUnavailable, err)
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("%w: no device with ID %d", ErrDeviceUnavailable, deviceID)
	}
	if devices[deviceID].MaxInputChannels < 1 {
		return nil, fmt.Errorf("%w: device %d has no input channels", ErrDeviceUnavailable, deviceID)
	}
	return devices[deviceID], nil
}

// ListDevices prints every available audio device with its ID, direction
// and default sample rate.
func ListDevices() error {
	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("audio: enumerating devices: %w", err)
	}

	for i, d := range devices {
		direction := "output"
		switch {
		case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
			direction = "input+output"
		case d.MaxInputChannels > 0:
			direction = "input"
		}
		fmt.Printf("[%d] %s (%s, %d in / %d out, %.0f Hz)\n",
			i, d.Name, direction, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
	}
	return nil
}
