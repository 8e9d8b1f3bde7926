// SPDX-License-Identifier: MIT
/*
Package pipeline runs the per-frame analysis cycle that turns captured
audio into MIDI note events:

	wait for window → analyze → equalize → map pitch →
	estimate loudness → emit → update adjustment → (loop)

The loop is single-goroutine. The capture collaborator feeds it sample
blocks over a channel; the MIDI collaborator receives note on/off calls;
observers get a read-only status snapshot per cycle. The adjustment
tracker is the only state that crosses cycles, and it is read at the top
of a cycle and written at the bottom, giving the equalizer feedback a
one-cycle delay.
*/
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"audiomidi/internal/config"
	"audiomidi/internal/dsp"
	applog "audiomidi/internal/log"
)

// ErrCaptureStalled is returned by Run when the capture collaborator
// stops delivering samples for longer than the stall timeout. It is
// fatal for the run; the loop never keeps emitting stale notes.
var ErrCaptureStalled = errors.New("pipeline: capture source stalled")

// stallTimeout bounds the wait on frame availability. Well above any
// sane buffer interval, so it only fires for a genuinely dead device.
const stallTimeout = 5 * time.Second

// NoteEvent is one emitted MIDI note with its velocity, both already
// clamped into [0, 127].
type NoteEvent struct {
	Note     int
	Velocity int
}

// NoteSink is the MIDI-output collaborator boundary. The pipeline only
// emits values; transport, timing and device binding live behind this
// interface.
type NoteSink interface {
	NoteOn(note, velocity uint8) error
	NoteOff(note uint8) error
}

// Status is the per-cycle report for display and transports: the emitted
// event plus the measurements behind it. Levels is reused between
// cycles; observers must not retain it.
type Status struct {
	Event      NoteEvent
	Freq       float64   // dominant frequency, Hz
	RMS        float64   // raw frame loudness
	Gain       float64   // current velocity auto-gain
	BandLevels []float64 // equalized per-band levels in [NormLow, NormHigh]
}

// Observer consumes per-cycle status. Output only; nothing an observer
// does feeds back into the pipeline.
type Observer interface {
	Observe(Status)
}

// Command mutates pipeline parameters. Commands are queued and applied
// at the top of a cycle, never while a frame is in flight.
type Command interface {
	apply(p *Pipeline) error
}

// SetSensitivity rescales the loudness-to-velocity mapping.
type SetSensitivity struct{ Value float64 }

func (c SetSensitivity) apply(p *Pipeline) error {
	if c.Value <= 0 {
		return fmt.Errorf("pipeline: sensitivity must be positive, got %g", c.Value)
	}
	p.velocity.SetSensitivity(c.Value)
	return nil
}

// SetProfile replaces the static equalizer profile.
type SetProfile struct{ Gains []float64 }

func (c SetProfile) apply(p *Pipeline) error {
	for i, g := range c.Gains {
		if g <= 0 {
			return fmt.Errorf("pipeline: profile gain %d must be positive, got %g", i, g)
		}
	}
	return p.eq.SetProfile(c.Gains)
}

// SetSilenceThreshold changes the RMS level below which cycles skip.
type SetSilenceThreshold struct{ Value float64 }

func (c SetSilenceThreshold) apply(p *Pipeline) error {
	if c.Value < 0 {
		return fmt.Errorf("pipeline: silence threshold must be non-negative, got %g", c.Value)
	}
	p.silence = c.Value
	return nil
}

// Pipeline owns the analysis chain for one run.
type Pipeline struct {
	windower *dsp.Windower
	analyzer *dsp.Analyzer
	eq       *dsp.Equalizer
	tracker  *dsp.AdjustmentTracker
	velocity *VelocityEstimator

	sink      NoteSink
	observers []Observer

	hop     int
	silence float64

	frame   []float64 // per-cycle scratch, owned by the running cycle
	levels  []float64
	pending int // samples accumulated since the last cycle

	commands   chan Command
	activeNote int // currently sounding note, -1 when none
	cycles     uint64
}

// New wires the analysis chain from a validated configuration. The sink
// must be non-nil; observers are optional.
func New(cfg *config.Config, sink NoteSink, observers ...Observer) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.New("pipeline: nil note sink")
	}

	windowFunc, err := dsp.ParseWindowFunc(cfg.WindowFunc)
	if err != nil {
		return nil, err
	}
	windower, err := dsp.NewWindower(cfg.Window)
	if err != nil {
		return nil, err
	}
	analyzer, err := dsp.NewAnalyzer(cfg.Window, cfg.SampleRate, windowFunc)
	if err != nil {
		return nil, err
	}
	bands, err := dsp.SplitBands(analyzer.Bins(), cfg.Bands)
	if err != nil {
		return nil, err
	}
	eq, err := dsp.NewEqualizer(bands, cfg.BaseProfile(), cfg.NormLow, cfg.NormHigh)
	if err != nil {
		return nil, err
	}
	binHz := cfg.SampleRate / float64(cfg.Window)
	tracker, err := dsp.NewAdjustmentTracker(bands, binHz, cfg.HistoryLen,
		cfg.AdjustDamp, cfg.AdjustMin, cfg.AdjustMax)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		windower:   windower,
		analyzer:   analyzer,
		eq:         eq,
		tracker:    tracker,
		velocity:   NewVelocityEstimator(cfg.Sensitivity, cfg.AutoGain, config.DefaultVelocitySpan),
		sink:       sink,
		observers:  observers,
		hop:        cfg.HopSize,
		silence:    cfg.SilenceRMS,
		frame:      make([]float64, cfg.Window),
		levels:     make([]float64, cfg.Bands),
		commands:   make(chan Command, 16),
		activeNote: -1,
	}, nil
}

// Apply queues a command for the next cycle boundary. Returns false when
// the queue is full and the command was dropped.
func (p *Pipeline) Apply(cmd Command) bool {
	select {
	case p.commands <- cmd:
		return true
	default:
		return false
	}
}

// Run consumes sample blocks until the context is cancelled, the source
// channel closes, or the source stalls past the timeout. The active note
// is released on every exit path.
func (p *Pipeline) Run(ctx context.Context, samples <-chan []float64) error {
	defer p.release()

	stall := time.NewTimer(stallTimeout)
	defer stall.Stop()

	for {
		stall.Reset(stallTimeout)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case block, ok := <-samples:
			if !ok {
				applog.Infof("pipeline: capture source closed after %d cycles", p.cycles)
				return nil
			}
			if err := p.ProcessSamples(block); err != nil {
				return err
			}
		case <-stall.C:
			return ErrCaptureStalled
		}
	}
}

// ProcessSamples pushes a block into the sliding window and runs one
// cycle once a hop's worth of new samples has arrived.
func (p *Pipeline) ProcessSamples(samples []float64) error {
	p.windower.PushAll(samples)
	p.pending += len(samples)

	if !p.windower.Ready() || p.pending < p.hop {
		return nil // WAIT_FOR_WINDOW: recovered locally, never surfaced
	}
	p.pending = 0
	return p.cycle()
}

// cycle runs one full analysis pass over the current window.
func (p *Pipeline) cycle() error {
	p.drainCommands()

	if err := p.windower.Frame(p.frame); err != nil {
		if errors.Is(err, dsp.ErrInsufficientData) {
			return nil
		}
		return err
	}

	rms := dsp.RMS(p.frame)
	if rms < p.silence {
		// Silence: release the sounding note instead of letting it
		// ring, and skip analysis entirely.
		return p.release()
	}

	adjust := p.tracker.Levels()

	spec, err := p.analyzer.Levels(p.frame)
	if err != nil {
		return err
	}
	if err := p.eq.Apply(spec, adjust); err != nil {
		return err
	}

	bin := dsp.DominantBin(spec)
	freq := p.analyzer.BinFrequency(bin)
	note, ok := dsp.FreqToNote(freq)
	if !ok {
		// Degenerate spectrum (DC-dominant or empty): no pitch this
		// cycle, nothing emitted, history untouched.
		return nil
	}

	velocity := p.velocity.Estimate(rms)

	if p.activeNote >= 0 {
		if err := p.sink.NoteOff(uint8(p.activeNote)); err != nil {
			return fmt.Errorf("pipeline: note off: %w", err)
		}
	}
	if err := p.sink.NoteOn(uint8(note), uint8(velocity)); err != nil {
		return fmt.Errorf("pipeline: note on: %w", err)
	}
	p.activeNote = note
	p.cycles++

	p.tracker.Observe(freq)

	if len(p.observers) > 0 {
		p.eq.BandLevels(spec, p.levels)
		status := Status{
			Event:      NoteEvent{Note: note, Velocity: velocity},
			Freq:       freq,
			RMS:        rms,
			Gain:       p.velocity.Gain(),
			BandLevels: p.levels,
		}
		for _, o := range p.observers {
			o.Observe(status)
		}
	}
	return nil
}

// Cycles returns the number of completed emit cycles.
func (p *Pipeline) Cycles() uint64 { return p.cycles }

func (p *Pipeline) drainCommands() {
	for {
		select {
		case cmd := <-p.commands:
			if err := cmd.apply(p); err != nil {
				applog.Warnf("pipeline: command rejected: %v", err)
			}
		default:
			return
		}
	}
}

// release sends a note-off for the sounding note, if any.
func (p *Pipeline) release() error {
	if p.activeNote < 0 {
		return nil
	}
	note := p.activeNote
	p.activeNote = -1
	if err := p.sink.NoteOff(uint8(note)); err != nil {
		return fmt.Errorf("pipeline: release note %d: %w", note, err)
	}
	return nil
}
