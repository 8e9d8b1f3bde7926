// SPDX-License-Identifier: MIT
package pipeline

import (
	"context"
	"errors"
	"testing"

	"audiomidi/internal/config"
	"audiomidi/pkg/utils"
)

// fakeSink records emitted events in order.
type fakeSink struct {
	ons  []NoteEvent
	offs []int
	err  error // returned from every call when set
}

func (s *fakeSink) NoteOn(note, velocity uint8) error {
	if s.err != nil {
		return s.err
	}
	s.ons = append(s.ons, NoteEvent{Note: int(note), Velocity: int(velocity)})
	return nil
}

func (s *fakeSink) NoteOff(note uint8) error {
	if s.err != nil {
		return s.err
	}
	s.offs = append(s.offs, int(note))
	return nil
}

type captureObserver struct {
	statuses []Status
}

func (o *captureObserver) Observe(s Status) {
	cp := s
	cp.BandLevels = append([]float64(nil), s.BandLevels...)
	o.statuses = append(o.statuses, cp)
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Window = 1024
	cfg.HopSize = 512
	cfg.SampleRate = 44100
	return cfg
}

// feedSine pushes n windows of a sine at the given frequency and
// amplitude through the pipeline.
func feedSine(t *testing.T, p *Pipeline, freq, amp float64, windows int) {
	t.Helper()
	block := utils.GenerateSineWaveAmp(1024*windows, 44100, freq, amp)
	for off := 0; off < len(block); off += 512 {
		if err := p.ProcessSamples(block[off : off+512]); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEndToEndSine(t *testing.T) {
	sink := &fakeSink{}
	obs := &captureObserver{}
	p, err := New(testConfig(), sink, obs)
	if err != nil {
		t.Fatal(err)
	}

	feedSine(t, p, 440, 0.5, 8)

	if len(sink.ons) == 0 {
		t.Fatal("no notes emitted for a sustained 440 Hz sine")
	}
	for _, ev := range sink.ons {
		if ev.Note < 68 || ev.Note > 70 {
			t.Errorf("note = %d, want 69 within one semitone", ev.Note)
		}
		if ev.Velocity < 58 || ev.Velocity > 70 {
			t.Errorf("velocity = %d, want ~64 for half amplitude", ev.Velocity)
		}
	}

	// Per-cycle status reports stay inside the normalization range.
	if len(obs.statuses) != len(sink.ons) {
		t.Fatalf("observer saw %d cycles, sink saw %d", len(obs.statuses), len(sink.ons))
	}
	for _, st := range obs.statuses {
		for b, lv := range st.BandLevels {
			if lv < 0 || lv > 1 {
				t.Fatalf("band %d level %v outside [0, 1]", b, lv)
			}
		}
	}
}

func TestNoEmissionBeforeWindowFull(t *testing.T) {
	sink := &fakeSink{}
	p, err := New(testConfig(), sink)
	if err != nil {
		t.Fatal(err)
	}

	// Three hops of 256 samples: window (1024) never fills.
	block := utils.GenerateSineWave(256, 44100, 440)
	for i := 0; i < 3; i++ {
		if err := p.ProcessSamples(block); err != nil {
			t.Fatalf("partial window should be recovered locally, got %v", err)
		}
	}
	if len(sink.ons) != 0 {
		t.Errorf("%d notes emitted before the window was full", len(sink.ons))
	}
}

func TestVelocityIncreasesWithAmplitude(t *testing.T) {
	velocityFor := func(amp float64) int {
		sink := &fakeSink{}
		p, err := New(testConfig(), sink)
		if err != nil {
			t.Fatal(err)
		}
		feedSine(t, p, 440, amp, 4)
		if len(sink.ons) == 0 {
			t.Fatalf("no notes emitted at amplitude %v", amp)
		}
		return sink.ons[len(sink.ons)-1].Velocity
	}

	prev := -1
	for _, amp := range []float64{0.1, 0.3, 0.5, 0.8, 1.0} {
		vel := velocityFor(amp)
		if vel < prev {
			t.Fatalf("velocity %d at amplitude dropped below %d", vel, prev)
		}
		prev = vel
	}
}

func TestPreviousNoteReleasedBeforeNext(t *testing.T) {
	sink := &fakeSink{}
	p, err := New(testConfig(), sink)
	if err != nil {
		t.Fatal(err)
	}

	feedSine(t, p, 440, 0.5, 4)
	feedSine(t, p, 880, 0.5, 4)

	if len(sink.ons) < 2 {
		t.Fatal("expected notes from both signals")
	}
	// Every note-on after the first must be preceded by a note-off of
	// the previous note.
	if len(sink.offs) != len(sink.ons)-1 {
		t.Fatalf("%d note-offs for %d note-ons", len(sink.offs), len(sink.ons))
	}
	for i, off := range sink.offs {
		if off != sink.ons[i].Note {
			t.Errorf("note-off %d released %d, previous note-on was %d", i, off, sink.ons[i].Note)
		}
	}

	last := sink.ons[len(sink.ons)-1]
	if last.Note < 80 || last.Note > 82 {
		t.Errorf("after octave jump, note = %d, want 81 within one semitone", last.Note)
	}
}

func TestSilenceReleasesActiveNote(t *testing.T) {
	sink := &fakeSink{}
	p, err := New(testConfig(), sink)
	if err != nil {
		t.Fatal(err)
	}

	feedSine(t, p, 440, 0.5, 4)
	if len(sink.ons) == 0 {
		t.Fatal("no notes before silence")
	}

	// Enough silent hops for the window to empty out completely.
	silent := make([]float64, 512)
	for i := 0; i < 8; i++ {
		if err := p.ProcessSamples(silent); err != nil {
			t.Fatal(err)
		}
	}

	// Steady-state silence: nothing sounding, nothing new emitted.
	settled := len(sink.ons)
	if len(sink.offs) != settled {
		t.Errorf("active note not released on silence: %d offs for %d ons", len(sink.offs), settled)
	}
	for i := 0; i < 8; i++ {
		if err := p.ProcessSamples(silent); err != nil {
			t.Fatal(err)
		}
	}
	if len(sink.ons) != settled {
		t.Errorf("sustained silence emitted %d extra notes", len(sink.ons)-settled)
	}
}

func TestAdjustmentDampsDominantBand(t *testing.T) {
	sink := &fakeSink{}
	p, err := New(testConfig(), sink)
	if err != nil {
		t.Fatal(err)
	}

	initial := append([]float64(nil), p.tracker.Levels()...)
	feedSine(t, p, 440, 0.5, 20)
	gains := p.tracker.Levels()

	band := p.eq.Bands().Index(10) // 440 Hz lands near bin 10 at 44100/1024
	if gains[band] >= initial[band] {
		t.Errorf("dominant band gain = %v, want below initial %v", gains[band], initial[band])
	}
	for b, g := range gains {
		if g < 0.1 || g > 3.0 {
			t.Errorf("gain[%d] = %v outside configured clamp", b, g)
		}
	}
}

func TestCommandsApplyBetweenCycles(t *testing.T) {
	sink := &fakeSink{}
	p, err := New(testConfig(), sink)
	if err != nil {
		t.Fatal(err)
	}

	feedSine(t, p, 440, 0.3, 4)
	before := sink.ons[len(sink.ons)-1].Velocity

	if !p.Apply(SetSensitivity{Value: 3.0}) {
		t.Fatal("command queue rejected SetSensitivity")
	}
	feedSine(t, p, 440, 0.3, 4)
	after := sink.ons[len(sink.ons)-1].Velocity

	if after <= before {
		t.Errorf("velocity %d after sensitivity raise, want above %d", after, before)
	}

	// Invalid commands are rejected at the boundary, not applied.
	p.Apply(SetSensitivity{Value: -1})
	feedSine(t, p, 440, 0.3, 2)
	if got := sink.ons[len(sink.ons)-1].Velocity; got < after-2 {
		t.Errorf("rejected command changed behavior: velocity %d", got)
	}
}

func TestSetProfileCommand(t *testing.T) {
	sink := &fakeSink{}
	p, err := New(testConfig(), sink)
	if err != nil {
		t.Fatal(err)
	}

	gains := make([]float64, 31)
	for i := range gains {
		gains[i] = 1.0
	}
	if !p.Apply(SetProfile{Gains: gains}) {
		t.Fatal("command queue rejected SetProfile")
	}
	feedSine(t, p, 440, 0.5, 2)

	// Wrong length is rejected without breaking the run.
	p.Apply(SetProfile{Gains: []float64{1, 2}})
	feedSine(t, p, 440, 0.5, 2)
	if len(sink.ons) == 0 {
		t.Error("pipeline stopped emitting after rejected profile")
	}
}

func TestSinkErrorIsFatal(t *testing.T) {
	sinkErr := errors.New("port gone")
	sink := &fakeSink{err: sinkErr}
	p, err := New(testConfig(), sink)
	if err != nil {
		t.Fatal(err)
	}

	block := utils.GenerateSineWaveAmp(1024, 44100, 440, 0.5)
	err = p.ProcessSamples(block)
	if !errors.Is(err, sinkErr) {
		t.Errorf("sink failure not propagated: %v", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	sink := &fakeSink{}
	p, err := New(testConfig(), sink)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	samples := make(chan []float64)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, samples) }()

	samples <- utils.GenerateSineWaveAmp(1024, 44100, 440, 0.5)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
	if len(sink.offs) != len(sink.ons) {
		t.Errorf("active note not released on shutdown: %d offs, %d ons", len(sink.offs), len(sink.ons))
	}
}

func TestRunStopsWhenSourceCloses(t *testing.T) {
	sink := &fakeSink{}
	p, err := New(testConfig(), sink)
	if err != nil {
		t.Fatal(err)
	}

	samples := make(chan []float64, 4)
	samples <- utils.GenerateSineWaveAmp(1024, 44100, 440, 0.5)
	close(samples)

	if err := p.Run(context.Background(), samples); err != nil {
		t.Errorf("Run after source close = %v, want nil", err)
	}
}
