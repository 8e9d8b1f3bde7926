// Package display renders the per-cycle status line for a human watching
// the terminal: emitted note, velocity, loudness and a sparkline of the
// equalized band levels. Output only; a headless build simply omits the
// reporter.
package display

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"audiomidi/internal/pipeline"
)

var sparkGlyphs = []rune("▁▂▃▄▅▆▇█")

var (
	labelStyle = lipgloss.NewStyle().Faint(true)
	noteStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// noteNames give the octave-relative pitch class for the status line.
var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName formats a MIDI note number like "A4" (note 69).
func NoteName(note int) string {
	if note < 0 || note > 127 {
		return "--"
	}
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}

// Reporter writes one status line per pipeline cycle, overwriting the
// previous one in place.
type Reporter struct {
	out    io.Writer
	lo, hi float64
}

// NewReporter creates a status reporter. lo/hi are the equalizer's
// normalization range, used to scale the band sparkline.
func NewReporter(out io.Writer, lo, hi float64) *Reporter {
	return &Reporter{out: out, lo: lo, hi: hi}
}

// Observe renders the cycle status. Implements the pipeline observer
// interface.
func (r *Reporter) Observe(s pipeline.Status) {
	fmt.Fprintf(r.out, "\r%s %s(%3d)  %s %3d  %s %.5f  %s %.2f  %s",
		labelStyle.Render("note"), noteStyle.Render(NoteName(s.Event.Note)), s.Event.Note,
		labelStyle.Render("vel"), s.Event.Velocity,
		labelStyle.Render("rms"), s.RMS,
		labelStyle.Render("gain"), s.Gain,
		barStyle.Render(sparkline(s.BandLevels, r.lo, r.hi)))
}

// Done terminates the status line so the shell prompt starts clean.
func (r *Reporter) Done() {
	fmt.Fprintln(r.out)
}

// sparkline maps each band level within [lo, hi] to one of eight block
// glyphs.
func sparkline(levels []float64, lo, hi float64) string {
	if hi <= lo {
		return ""
	}
	runes := make([]rune, len(levels))
	for i, lv := range levels {
		frac := (lv - lo) / (hi - lo)
		idx := int(frac * float64(len(sparkGlyphs)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkGlyphs) {
			idx = len(sparkGlyphs) - 1
		}
		runes[i] = sparkGlyphs[idx]
	}
	return string(runes)
}
