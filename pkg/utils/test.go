// Package utils holds shared test signal helpers used across package tests.
package utils

import "math"

// GenerateSineWave produces a pure sine frame at the given frequency with
// amplitude 1.0, as float64 samples in [-1, 1].
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = math.Sin(2 * math.Pi * frequency * tm)
	}
	return buffer
}

// GenerateSineWaveAmp produces a sine frame with the given amplitude.
func GenerateSineWaveAmp(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := GenerateSineWave(size, sampleRate, frequency)
	for i := range buffer {
		buffer[i] *= amplitude
	}
	return buffer
}

// GenerateComplexWave produces a 440Hz fundamental plus two harmonics,
// useful when a test needs a spectrum with more than one active bin.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in
// magnitudes[startBin..endBin], clamping the range to valid indices.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > magnitudes[peakBin] {
			peakBin = bin
		}
	}
	return peakBin
}
