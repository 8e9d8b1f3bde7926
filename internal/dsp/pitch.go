// SPDX-License-Identifier: MIT
package dsp

import "math"

// MIDI note numbers are clamped into the legal [0, 127] range.
const (
	MinNote = 0
	MaxNote = 127
)

// FreqToNote maps a frequency in Hz to the nearest MIDI note number using
// the standard logarithmic mapping (A4 = 440 Hz = note 69), clamped into
// [0, 127]. For frequencies at or below zero there is no pitch; ok is
// false and the note must not be emitted.
func FreqToNote(freq float64) (note int, ok bool) {
	if freq <= 0 {
		return 0, false
	}
	n := int(math.Round(69 + 12*math.Log2(freq/440)))
	if n < MinNote {
		n = MinNote
	}
	if n > MaxNote {
		n = MaxNote
	}
	return n, true
}

// DominantBin returns the index of the bin with maximum magnitude. Ties
// resolve to the lowest-frequency bin so pitch selection stays
// deterministic. Returns -1 for an empty spectrum.
func DominantBin(mags []float64) int {
	if len(mags) == 0 {
		return -1
	}
	peak := 0
	for i := 1; i < len(mags); i++ {
		if mags[i] > mags[peak] {
			peak = i
		}
	}
	return peak
}

// RMS computes the root-mean-square amplitude of a time-domain frame.
// All-zero input yields exactly 0; scaling every sample by a factor
// scales the result by the same factor.
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range data {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(data)))
}
