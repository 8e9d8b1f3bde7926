// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"audiomidi/pkg/bitint"
)

// WindowFunc selects the taper applied to a frame before the FFT.
type WindowFunc int

const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc.
// Returns Hann and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("dsp: unknown window function %q", name)
	}
}

// Analyzer turns a time-domain frame into a normalized magnitude
// spectrum. It owns pre-allocated FFT buffers and must not be shared
// across goroutines.
type Analyzer struct {
	size       int
	sampleRate float64
	fft        *fourier.FFT
	win        []float64
	input      []float64
	coeffs     []complex128
	mags       []float64
}

// NewAnalyzer creates a spectral analyzer for frames of the given size.
func NewAnalyzer(size int, sampleRate float64, windowType WindowFunc) (*Analyzer, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("dsp: fft size must be a power of 2, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("dsp: sample rate must be positive, got %f", sampleRate)
	}

	win := make([]float64, size)
	for i := range win {
		win[i] = 1.0
	}
	applyWindow(win, windowType)

	return &Analyzer{
		size:       size,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(size),
		win:        win,
		input:      make([]float64, size),
		coeffs:     make([]complex128, size/2+1),
		// Only the non-negative-frequency half below Nyquist is kept.
		mags: make([]float64, size/2),
	}, nil
}

// Levels computes the normalized magnitude spectrum of frame. The result
// has exactly size/2 bins, rescaled so the minimum magnitude is 0 and the
// maximum is 1 (all zeros for a constant frame). The returned slice is
// reused by the next call.
func (a *Analyzer) Levels(frame []float64) ([]float64, error) {
	if len(frame) != a.size {
		return nil, fmt.Errorf("dsp: frame length %d, want %d", len(frame), a.size)
	}

	for i, s := range frame {
		a.input[i] = s * a.win[i]
	}

	a.fft.Coefficients(a.coeffs, a.input)
	for i := range a.mags {
		a.mags[i] = cmplx.Abs(a.coeffs[i])
	}

	Normalize(a.mags)
	return a.mags, nil
}

// BinFrequency returns the center frequency in Hz of spectrum bin i.
func (a *Analyzer) BinFrequency(i int) float64 {
	if i < 0 || i >= len(a.mags) {
		return 0
	}
	return float64(i) * a.sampleRate / float64(a.size)
}

// Bins returns the number of spectrum bins produced per frame.
func (a *Analyzer) Bins() int { return a.size / 2 }

// SampleRate returns the configured sample rate in Hz.
func (a *Analyzer) SampleRate() float64 { return a.sampleRate }

// Normalize rescales x in place so its minimum maps to 0 and its maximum
// to 1. A constant input maps to all zeros, never NaN.
func Normalize(x []float64) {
	Norm(0, 1, x)
}

// Norm rescales x in place with an affine map taking its current range
// onto [a, b] (a may exceed b for an inverted mapping). A constant input
// maps to all a.
func Norm(a, b float64, x []float64) {
	if len(x) == 0 {
		return
	}
	lo, hi := x[0], x[0]
	for _, v := range x[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		for i := range x {
			x[i] = a
		}
		return
	}
	scale := (b - a) / (hi - lo)
	for i := range x {
		x[i] = (x[i]-lo)*scale + a
	}
}

func applyWindow(coeffs []float64, windowType WindowFunc) {
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		window.Hann(coeffs)
	}
}
