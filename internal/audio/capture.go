// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"audiomidi/internal/config"
	applog "audiomidi/internal/log"
)

// blockRing must exceed the channel capacity so a block is never
// overwritten while a consumer still holds it.
const (
	sampleChanCap = 8
	blockRingSize = sampleChanCap * 2

	// int32 samples normalize into [-1.0, 1.0).
	normFactor = 1.0 / float64(1<<31)
)

// Engine captures mono audio from one input device and publishes
// float64 sample blocks on a channel, one block per hop. The PortAudio
// callback never blocks: when the consumer falls behind, blocks are
// dropped and counted instead.
type Engine struct {
	cfg     *config.Config
	device  *portaudio.DeviceInfo
	latency time.Duration
	stream  *portaudio.Stream

	samples chan []float64
	blocks  [][]float64 // pre-allocated block ring, reused round-robin
	next    int
	dropped atomic.Uint64

	// Recording state (see recording.go).
	isRecording atomic.Int32
	recording   *wavWriter
}

// NewEngine resolves the input device and pre-allocates all capture
// buffers. The stream is not started yet.
func NewEngine(cfg *config.Config) (*Engine, error) {
	device, err := InputDevice(cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	blocks := make([][]float64, blockRingSize)
	for i := range blocks {
		blocks[i] = make([]float64, cfg.HopSize)
	}

	e := &Engine{
		cfg:     cfg,
		device:  device,
		samples: make(chan []float64, sampleChanCap),
		blocks:  blocks,
	}
	if cfg.LowLatency {
		e.latency = device.DefaultLowInputLatency
	} else {
		e.latency = device.DefaultHighInputLatency
	}
	return e, nil
}

// Samples returns the channel the capture callback publishes on. Closed
// by Close.
func (e *Engine) Samples() <-chan []float64 {
	return e.samples
}

// Dropped returns the number of blocks discarded because the consumer
// fell behind.
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

// Start opens the input stream and begins capture. The first callback
// marks the start of the hot path.
func (e *Engine) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   e.device,
			Latency:  e.latency,
		},
		FramesPerBuffer: e.cfg.HopSize,
		SampleRate:      e.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInput)
	if err != nil {
		return fmt.Errorf("%w: opening stream: %v", ErrDeviceUnavailable, err)
	}
	e.stream = stream

	if err := e.stream.Start(); err != nil {
		e.stream.Close()
		e.stream = nil
		return fmt.Errorf("%w: starting stream: %v", ErrDeviceUnavailable, err)
	}
	applog.Infof("audio: capturing from %q at %.0f Hz, hop %d", e.device.Name, e.cfg.SampleRate, e.cfg.HopSize)
	return nil
}

// processInput is the PortAudio callback. It converts the int32 buffer
// into a pre-allocated float64 block and hands it to the consumer
// without blocking. No allocations on this path.
func (e *Engine) processInput(in []int32) {
	block := e.blocks[e.next]
	e.next = (e.next + 1) % len(e.blocks)

	n := len(in)
	if n > len(block) {
		n = len(block)
	}
	for i := 0; i < n; i++ {
		block[i] = float64(in[i]) * normFactor
	}
	for i := n; i < len(block); i++ {
		block[i] = 0
	}

	select {
	case e.samples <- block:
	default:
		e.dropped.Add(1)
	}

	if e.isRecording.Load() == 1 {
		e.recording.write(in)
	}
}

// Close stops recording if active, stops the stream and closes the
// sample channel. Safe to call after a failed Start.
func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		return err
	}

	if e.stream != nil {
		if err := e.stream.Stop(); err != nil {
			return fmt.Errorf("audio: stopping stream: %w", err)
		}
		if err := e.stream.Close(); err != nil {
			return fmt.Errorf("audio: closing stream: %w", err)
		}
		e.stream = nil
	}

	close(e.samples)
	if n := e.Dropped(); n > 0 {
		applog.Warnf("audio: dropped %d blocks during capture", n)
	}
	return nil
}
