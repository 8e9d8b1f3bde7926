// SPDX-License-Identifier: MIT
package dsp

import "fmt"

// Bands describes a contiguous split of the spectrum into equalizer
// bands. Bin ranges cover every bin exactly once, so each spectral bin
// is adjusted by exactly one gain.
type Bands struct {
	bounds []int // len = count+1; band b covers bins [bounds[b], bounds[b+1])
}

// SplitBands divides nbins spectrum bins into count contiguous bands.
// When nbins does not divide evenly, the first nbins%count bands receive
// one extra bin, keeping the split stable for a fixed configuration.
func SplitBands(nbins, count int) (*Bands, error) {
	if count <= 0 {
		return nil, fmt.Errorf("dsp: band count must be positive, got %d", count)
	}
	if nbins < count {
		return nil, fmt.Errorf("dsp: cannot split %d bins into %d bands", nbins, count)
	}

	bounds := make([]int, count+1)
	base, extra := nbins/count, nbins%count
	pos := 0
	for b := 0; b < count; b++ {
		bounds[b] = pos
		pos += base
		if b < extra {
			pos++
		}
	}
	bounds[count] = nbins
	return &Bands{bounds: bounds}, nil
}

// Count returns the number of bands.
func (b *Bands) Count() int { return len(b.bounds) - 1 }

// Range returns the half-open bin range [start, end) of band i.
func (b *Bands) Range(i int) (start, end int) {
	return b.bounds[i], b.bounds[i+1]
}

// Index returns the band containing spectrum bin `bin`.
func (b *Bands) Index(bin int) int {
	// Bands are near-uniform, a linear scan over ~31 entries is cheap
	// and branch-predictable.
	for i := 1; i < len(b.bounds); i++ {
		if bin < b.bounds[i] {
			return i - 1
		}
	}
	return len(b.bounds) - 2
}

// Equalizer reshapes a magnitude spectrum: each band's bins are scaled by
// the product of a static profile gain and a dynamic adjustment gain,
// then the whole spectrum is renormalized into the target [lo, hi] range.
type Equalizer struct {
	bands   *Bands
	profile []float64 // static base gain per band, read-only during a run
	lo, hi  float64
}

// NewEqualizer builds an equalizer over the given band split. The profile
// must supply one positive base gain per band; lo/hi set the output
// normalization range.
func NewEqualizer(bands *Bands, profile []float64, lo, hi float64) (*Equalizer, error) {
	if len(profile) != bands.Count() {
		return nil, fmt.Errorf("dsp: profile has %d gains for %d bands", len(profile), bands.Count())
	}
	for i, g := range profile {
		if g <= 0 {
			return nil, fmt.Errorf("dsp: profile gain %d must be positive, got %f", i, g)
		}
	}
	if hi <= lo {
		return nil, fmt.Errorf("dsp: normalization range [%f, %f] is empty", lo, hi)
	}

	p := make([]float64, len(profile))
	copy(p, profile)
	return &Equalizer{bands: bands, profile: p, lo: lo, hi: hi}, nil
}

// Bands returns the band split this equalizer operates on.
func (e *Equalizer) Bands() *Bands { return e.bands }

// SetProfile replaces the static gain profile. Intended for interactive
// reconfiguration between pipeline cycles, never mid-frame.
func (e *Equalizer) SetProfile(profile []float64) error {
	if len(profile) != e.bands.Count() {
		return fmt.Errorf("dsp: profile has %d gains for %d bands", len(profile), e.bands.Count())
	}
	copy(e.profile, profile)
	return nil
}

// Apply scales spec in place by the combined per-band gains and
// renormalizes the result into [lo, hi]. adjust supplies the dynamic gain
// per band from the adjustment tracker; every output magnitude is
// guaranteed to lie within the target range.
func (e *Equalizer) Apply(spec, adjust []float64) error {
	if len(adjust) != e.bands.Count() {
		return fmt.Errorf("dsp: adjustment has %d gains for %d bands", len(adjust), e.bands.Count())
	}

	for b := 0; b < e.bands.Count(); b++ {
		gain := e.profile[b] * adjust[b]
		start, end := e.bands.Range(b)
		for i := start; i < end; i++ {
			spec[i] *= gain
		}
	}

	Norm(e.lo, e.hi, spec)
	return nil
}

// BandLevels reduces an equalized spectrum to one mean level per band,
// used by the status display and transports.
func (e *Equalizer) BandLevels(spec, dst []float64) {
	for b := 0; b < e.bands.Count() && b < len(dst); b++ {
		start, end := e.bands.Range(b)
		sum := 0.0
		for i := start; i < end; i++ {
			sum += spec[i]
		}
		dst[b] = sum / float64(end-start)
	}
}
