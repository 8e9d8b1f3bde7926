// SPDX-License-Identifier: MIT
/*
Package dsp implements the per-frame signal processing pipeline:
sliding-window capture buffering, normalized spectral analysis, a
band equalizer with history-driven adaptive gains, dominant-pitch
extraction and RMS loudness estimation.

All functions operate on plain float64 slices. Buffers are
pre-allocated by their owners; nothing in this package allocates on
the per-frame path after construction.
*/
package dsp

import (
	"errors"
	"fmt"

	"audiomidi/pkg/bitint"
)

// ErrInsufficientData is returned when a full analysis frame is requested
// before the window has seen enough samples. Callers recover by waiting
// for more input; it is never a fatal condition.
var ErrInsufficientData = errors.New("dsp: window not yet full")

// Windower keeps the most recent `size` samples in a ring buffer and
// exposes them as analysis frames. Frames overlap: taking a frame does
// not consume the buffer, each new sample just slides the window by one.
type Windower struct {
	buf   []float64
	size  int
	head  int // next write position
	count int // samples seen, saturates at size
}

// NewWindower creates a sliding window of the given size. The size must be
// a power of two so the downstream FFT stays efficient.
func NewWindower(size int) (*Windower, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("dsp: window size must be a power of 2, got %d", size)
	}
	return &Windower{
		buf:  make([]float64, size),
		size: size,
	}, nil
}

// Size returns the frame length in samples.
func (w *Windower) Size() int { return w.size }

// Push appends one sample, evicting the oldest once the window is full.
func (w *Windower) Push(sample float64) {
	w.buf[w.head] = sample
	w.head = (w.head + 1) & (w.size - 1)
	if w.count < w.size {
		w.count++
	}
}

// PushAll appends a block of samples.
func (w *Windower) PushAll(samples []float64) {
	for _, s := range samples {
		w.Push(s)
	}
}

// Ready reports whether a full frame is available.
func (w *Windower) Ready() bool {
	return w.count == w.size
}

// Frame copies the current window, oldest sample first, into dst. The
// destination must be exactly one frame long. The buffer is not cleared;
// consecutive frames overlap unless the caller pushes a full window of
// new samples in between.
func (w *Windower) Frame(dst []float64) error {
	if !w.Ready() {
		return ErrInsufficientData
	}
	if len(dst) != w.size {
		return fmt.Errorf("dsp: frame destination length %d, want %d", len(dst), w.size)
	}
	n := copy(dst, w.buf[w.head:])
	copy(dst[n:], w.buf[:w.head])
	return nil
}
