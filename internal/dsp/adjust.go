// SPDX-License-Identifier: MIT
package dsp

import "fmt"

// AdjustmentTracker damps equalizer bands that have dominated pitch
// selection recently and leaves under-represented bands alone, breaking
// the feedback loop where one strong partial captures every frame.
//
// It keeps a bounded, oldest-evicted history of the dominant frequencies
// the pipeline emitted. Each cycle the history is binned by band and the
// busiest band is mapped toward the damp gain while empty bands stay at
// 1.0. The gains computed from cycle k feed the equalizer at cycle k+1,
// so the loop has a one-cycle delay.
type AdjustmentTracker struct {
	bands *Bands
	binHz float64 // spectrum bin width, converts frequency to bin index

	history []float64 // ring of recent dominant frequencies
	head    int
	count   int

	damp     float64 // gain assigned to the busiest band
	min, max float64 // clamp bounds for all gains

	counts []float64 // per-band histogram scratch
	gains  []float64 // per-band output, reused between cycles
}

// NewAdjustmentTracker creates a tracker over the given band split.
// historyLen bounds the note history; damp is the gain the busiest band
// receives (typically 0.1); min/max clamp all resulting gains.
func NewAdjustmentTracker(bands *Bands, binHz float64, historyLen int, damp, min, max float64) (*AdjustmentTracker, error) {
	if historyLen <= 0 {
		return nil, fmt.Errorf("dsp: history length must be positive, got %d", historyLen)
	}
	if binHz <= 0 {
		return nil, fmt.Errorf("dsp: bin width must be positive, got %f", binHz)
	}
	if min <= 0 || max < min {
		return nil, fmt.Errorf("dsp: adjustment clamp [%f, %f] is invalid", min, max)
	}
	if damp < min || damp > max {
		return nil, fmt.Errorf("dsp: damp gain %f outside clamp [%f, %f]", damp, min, max)
	}

	t := &AdjustmentTracker{
		bands:   bands,
		binHz:   binHz,
		history: make([]float64, historyLen),
		damp:    damp,
		min:     min,
		max:     max,
		counts:  make([]float64, bands.Count()),
		gains:   make([]float64, bands.Count()),
	}
	for i := range t.gains {
		t.gains[i] = 1.0
	}
	return t, nil
}

// Observe records the dominant frequency emitted this cycle, evicting the
// oldest entry once the history is full.
func (t *AdjustmentTracker) Observe(freq float64) {
	t.history[t.head] = freq
	t.head = (t.head + 1) % len(t.history)
	if t.count < len(t.history) {
		t.count++
	}
}

// Len returns the number of frequencies currently held.
func (t *AdjustmentTracker) Len() int { return t.count }

// Levels derives the dynamic per-band gains for the next cycle. With no
// history, or with notes spread evenly, every band stays at 1.0. The
// returned slice is reused by the next call.
func (t *AdjustmentTracker) Levels() []float64 {
	for i := range t.counts {
		t.counts[i] = 0
	}
	for i := 0; i < t.count; i++ {
		bin := int(t.history[i] / t.binHz)
		if bin < 0 {
			continue
		}
		last := t.bands.bounds[len(t.bands.bounds)-1]
		if bin >= last {
			bin = last - 1
		}
		t.counts[t.bands.Index(bin)]++
	}

	copy(t.gains, t.counts)
	// Inverted rescale: the least-selected band maps to 1.0, the
	// most-selected to the damp gain. Equal counts collapse to 1.0.
	Norm(1.0, t.damp, t.gains)
	for i, g := range t.gains {
		if g < t.min {
			t.gains[i] = t.min
		}
		if g > t.max {
			t.gains[i] = t.max
		}
	}
	return t.gains
}
