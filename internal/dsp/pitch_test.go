// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"testing"

	"audiomidi/pkg/utils"
)

func TestFreqToNoteReferencePitches(t *testing.T) {
	tests := []struct {
		freq float64
		note int
	}{
		{440, 69},   // A4
		{880, 81},   // A5, one octave = +12 semitones
		{220, 57},   // A3
		{261.63, 60}, // middle C
		{27.5, 21},  // A0
		{4186, 108}, // C8
	}

	for _, tt := range tests {
		note, ok := FreqToNote(tt.freq)
		if !ok {
			t.Errorf("FreqToNote(%v) reported no pitch", tt.freq)
			continue
		}
		if note != tt.note {
			t.Errorf("FreqToNote(%v) = %d, want %d", tt.freq, note, tt.note)
		}
	}
}

func TestFreqToNoteNoPitch(t *testing.T) {
	for _, freq := range []float64{0, -1, -440} {
		if _, ok := FreqToNote(freq); ok {
			t.Errorf("FreqToNote(%v) should report no pitch", freq)
		}
	}
}

func TestFreqToNoteClamps(t *testing.T) {
	if note, _ := FreqToNote(0.001); note != MinNote {
		t.Errorf("near-zero frequency note = %d, want %d", note, MinNote)
	}
	if note, _ := FreqToNote(1e6); note != MaxNote {
		t.Errorf("ultrasonic frequency note = %d, want %d", note, MaxNote)
	}
}

func TestFreqToNoteMonotonic(t *testing.T) {
	prev := MinNote
	for freq := 10.0; freq < 20000; freq *= 1.03 {
		note, ok := FreqToNote(freq)
		if !ok {
			t.Fatalf("FreqToNote(%v) reported no pitch", freq)
		}
		if note < prev {
			t.Fatalf("FreqToNote not monotonic: %v Hz -> %d after %d", freq, note, prev)
		}
		prev = note
	}
}

func TestDominantBinTieBreaksLow(t *testing.T) {
	mags := []float64{0.2, 0.9, 0.5, 0.9, 0.1}
	if got := DominantBin(mags); got != 1 {
		t.Errorf("DominantBin = %d, want lowest tied bin 1", got)
	}
	if got := DominantBin(nil); got != -1 {
		t.Errorf("DominantBin(nil) = %d, want -1", got)
	}
}

func TestRMSZeroInput(t *testing.T) {
	if got := RMS(make([]float64, 256)); got != 0 {
		t.Errorf("RMS(zeros) = %v, want 0", got)
	}
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v, want 0", got)
	}
}

func TestRMSScalesLinearly(t *testing.T) {
	base := utils.GenerateSineWave(1024, 44100, 440)
	doubled := make([]float64, len(base))
	for i, s := range base {
		doubled[i] = 2 * s
	}

	r1 := RMS(base)
	r2 := RMS(doubled)
	if math.Abs(r2-2*r1) > 1e-9 {
		t.Errorf("RMS(2x) = %v, want %v", r2, 2*r1)
	}
}

func TestRMSFullScaleSine(t *testing.T) {
	// A unit-amplitude sine has RMS 1/sqrt(2).
	frame := make([]float64, 4096)
	for i := range frame {
		frame[i] = math.Sin(2 * math.Pi * 32 * float64(i) / 4096)
	}
	want := 1 / math.Sqrt2
	if got := RMS(frame); math.Abs(got-want) > 1e-3 {
		t.Errorf("RMS(unit sine) = %v, want %v", got, want)
	}
}
