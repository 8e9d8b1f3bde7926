// Package transport carries per-cycle status out to visualizer clients.
// Strictly output-only: nothing received from a client feeds back into
// the pipeline.
package transport

import "audiomidi/internal/pipeline"

// Transport is a generic sink for per-cycle status payloads.
// Implementations must be safe for calls from the pipeline goroutine and
// must never block it.
type Transport interface {
	Send(data any) error
	Close() error
}

// statusPayload is the wire shape of one pipeline cycle.
type statusPayload struct {
	Note     int       `json:"note"`
	Velocity int       `json:"velocity"`
	Freq     float64   `json:"freq"`
	RMS      float64   `json:"rms"`
	Gain     float64   `json:"gain"`
	Levels   []float64 `json:"levels"`
}

// Broadcaster adapts a Transport to the pipeline observer interface,
// snapshotting the band levels because the pipeline reuses that slice
// across cycles while transports deliver asynchronously.
type Broadcaster struct {
	transport Transport
}

// NewBroadcaster wraps a transport as a pipeline observer.
func NewBroadcaster(t Transport) *Broadcaster {
	return &Broadcaster{transport: t}
}

func (b *Broadcaster) Observe(s pipeline.Status) {
	payload := statusPayload{
		Note:     s.Event.Note,
		Velocity: s.Event.Velocity,
		Freq:     s.Freq,
		RMS:      s.RMS,
		Gain:     s.Gain,
		Levels:   append([]float64(nil), s.BandLevels...),
	}
	_ = b.transport.Send(payload)
}
