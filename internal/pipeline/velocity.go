// SPDX-License-Identifier: MIT
package pipeline

import "math"

// Auto-gain drifts by 1% per cycle and stays inside fixed bounds so a
// quiet room can never push the gain into runaway territory.
const (
	autoGainStep = 0.01
	autoGainMin  = 0.25
	autoGainMax  = 4.0
)

// VelocityEstimator maps frame loudness to MIDI velocity. The base
// mapping is linear in signal amplitude: a full-scale sine (RMS 1/sqrt2)
// reaches velocity 127, a half-scale sine lands near 64. Sensitivity
// scales that mapping and is adjustable between cycles.
//
// With auto-gain enabled, a bounded window of recent unclamped
// velocities nudges an extra gain factor: while the window sits strictly
// inside (0, 127) the gain creeps up, and as soon as it rails outside the
// MIDI range the gain backs off. Within any single cycle the mapping is
// monotonic in loudness.
type VelocityEstimator struct {
	sensitivity float64
	autoGain    bool
	gain        float64

	recent []float64 // unclamped velocities, ring
	head   int
	count  int
}

// NewVelocityEstimator creates an estimator. span bounds the recent
// velocity window used by auto-gain.
func NewVelocityEstimator(sensitivity float64, autoGain bool, span int) *VelocityEstimator {
	if span <= 0 {
		span = 1
	}
	return &VelocityEstimator{
		sensitivity: sensitivity,
		autoGain:    autoGain,
		gain:        1.0,
		recent:      make([]float64, span),
	}
}

// SetSensitivity replaces the sensitivity factor. Called between
// pipeline cycles only.
func (v *VelocityEstimator) SetSensitivity(s float64) {
	v.sensitivity = s
}

// Gain returns the current auto-gain factor (1.0 when disabled).
func (v *VelocityEstimator) Gain() float64 { return v.gain }

// Estimate converts a frame RMS to a velocity in [0, 127].
func (v *VelocityEstimator) Estimate(rms float64) int {
	raw := rms * math.Sqrt2 * 127 * v.sensitivity * v.gain

	if v.autoGain {
		v.recent[v.head] = raw
		v.head = (v.head + 1) % len(v.recent)
		if v.count < len(v.recent) {
			v.count++
		}
		v.adapt()
	}

	vel := int(math.Round(raw))
	if vel < 0 {
		vel = 0
	}
	if vel > 127 {
		vel = 127
	}
	return vel
}

func (v *VelocityEstimator) adapt() {
	if v.count < len(v.recent) {
		return // wait for a full window before drifting
	}
	lo, hi := v.recent[0], v.recent[0]
	for _, r := range v.recent[1:] {
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	switch {
	case hi > 127 || lo <= 0:
		v.gain *= 1 - autoGainStep
	case hi < 127 && lo > 0:
		v.gain *= 1 + autoGainStep
	}
	if v.gain < autoGainMin {
		v.gain = autoGainMin
	}
	if v.gain > autoGainMax {
		v.gain = autoGainMax
	}
}
