// SPDX-License-Identifier: MIT
/*
Package midi is the MIDI-output collaborator. It binds one named output
port, or fans out to every real output port on the system when no name
is given, and exposes plain note-on/note-off calls to the pipeline.
*/
package midi

import (
	"errors"
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	applog "audiomidi/internal/log"
)

// ErrNoOutputs marks a run with no usable MIDI output port. Fatal, like
// a missing capture device.
var ErrNoOutputs = errors.New("midi: no output ports available")

// Virtual pass-through ports that should never be auto-connected.
var excludedPatterns = []string{"Midi Through", "Through Port", "Dummy"}

func excluded(name string) bool {
	for _, p := range excludedPatterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// matchPort returns the index of the first port whose name contains want
// (case-insensitive), or -1.
func matchPort(names []string, want string) int {
	want = strings.ToLower(want)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), want) {
			return i
		}
	}
	return -1
}

// Output sends note events to one or more open MIDI output ports.
type Output struct {
	drv     *rtmididrv.Driver
	ports   []drivers.Out
	sends   []func(gomidi.Message) error
	channel uint8
}

// Open connects to MIDI output ports. With a non-empty portName, the
// first port whose name contains it (case-insensitive) is used; with an
// empty name, every non-pass-through port gets the event stream, so a
// visualizer and a synth can listen at once.
func Open(portName string, channel int) (*Output, error) {
	if channel < 0 || channel > 15 {
		return nil, fmt.Errorf("midi: channel %d outside [0, 15]", channel)
	}

	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("midi: initializing driver: %w", err)
	}

	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("midi: listing output ports: %w", err)
	}

	var selected []drivers.Out
	if portName != "" {
		names := make([]string, len(outs))
		for i, o := range outs {
			names[i] = o.String()
		}
		idx := matchPort(names, portName)
		if idx < 0 {
			drv.Close()
			return nil, fmt.Errorf("%w: no port matching %q", ErrNoOutputs, portName)
		}
		selected = outs[idx : idx+1]
	} else {
		for _, o := range outs {
			if !excluded(o.String()) {
				selected = append(selected, o)
			}
		}
	}
	if len(selected) == 0 {
		drv.Close()
		return nil, ErrNoOutputs
	}

	out := &Output{drv: drv, channel: uint8(channel)}
	for _, port := range selected {
		if err := port.Open(); err != nil {
			out.Close()
			return nil, fmt.Errorf("midi: opening port %q: %w", port.String(), err)
		}
		send, err := gomidi.SendTo(port)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("midi: binding port %q: %w", port.String(), err)
		}
		out.ports = append(out.ports, port)
		out.sends = append(out.sends, send)
		applog.Infof("midi: connected to output %q", port.String())
	}
	return out, nil
}

// NoteOn emits a note-on to every connected port.
func (o *Output) NoteOn(note, velocity uint8) error {
	return o.broadcast(gomidi.NoteOn(o.channel, note, velocity))
}

// NoteOff emits a note-off to every connected port.
func (o *Output) NoteOff(note uint8) error {
	return o.broadcast(gomidi.NoteOff(o.channel, note))
}

func (o *Output) broadcast(msg gomidi.Message) error {
	for i, send := range o.sends {
		if err := send(msg); err != nil {
			return fmt.Errorf("midi: sending to %q: %w", o.ports[i].String(), err)
		}
	}
	return nil
}

// Close releases every port and the driver. All notes are silenced
// first so nothing keeps ringing after shutdown.
func (o *Output) Close() error {
	for note := 0; note < 128; note++ {
		for _, send := range o.sends {
			_ = send(gomidi.NoteOff(o.channel, uint8(note)))
		}
	}
	var firstErr error
	for _, port := range o.ports {
		if err := port.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	o.ports = nil
	o.sends = nil
	if err := o.drv.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// ListPorts prints every MIDI output port visible to the driver.
func ListPorts() error {
	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("midi: initializing driver: %w", err)
	}
	defer drv.Close()

	outs, err := drv.Outs()
	if err != nil {
		return fmt.Errorf("midi: listing output ports: %w", err)
	}
	if len(outs) == 0 {
		fmt.Println("no MIDI output ports found")
		return nil
	}
	for i, o := range outs {
		note := ""
		if excluded(o.String()) {
			note = " (pass-through, skipped by auto-connect)"
		}
		fmt.Printf("[%d] %s%s\n", i, o.String(), note)
	}
	return nil
}
