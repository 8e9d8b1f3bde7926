package transport

import (
	"testing"

	"audiomidi/internal/pipeline"
)

// recordingTransport captures payloads for inspection.
type recordingTransport struct {
	sent []any
}

func (r *recordingTransport) Send(data any) error {
	r.sent = append(r.sent, data)
	return nil
}

func (r *recordingTransport) Close() error { return nil }

func TestBroadcasterSnapshotsLevels(t *testing.T) {
	rec := &recordingTransport{}
	b := NewBroadcaster(rec)

	levels := []float64{0.1, 0.5, 0.9}
	b.Observe(pipeline.Status{
		Event:      pipeline.NoteEvent{Note: 69, Velocity: 64},
		Freq:       440,
		RMS:        0.35,
		Gain:       1.0,
		BandLevels: levels,
	})

	// The pipeline reuses its levels slice; mutating it after Observe
	// must not corrupt the queued payload.
	levels[0] = -100

	if len(rec.sent) != 1 {
		t.Fatalf("sent %d payloads, want 1", len(rec.sent))
	}
	payload, ok := rec.sent[0].(statusPayload)
	if !ok {
		t.Fatalf("payload type %T", rec.sent[0])
	}
	if payload.Note != 69 || payload.Velocity != 64 {
		t.Errorf("payload event = %d/%d, want 69/64", payload.Note, payload.Velocity)
	}
	if payload.Levels[0] != 0.1 {
		t.Errorf("payload levels aliased pipeline buffer: %v", payload.Levels[0])
	}
}

func TestLoggingTransportPassesThrough(t *testing.T) {
	rec := &recordingTransport{}
	lt := NewLoggingTransport(rec)

	if err := lt.Send("status"); err != nil {
		t.Fatal(err)
	}
	if len(rec.sent) != 1 || rec.sent[0] != "status" {
		t.Errorf("decorated transport did not forward payload: %v", rec.sent)
	}
	if err := lt.Close(); err != nil {
		t.Fatal(err)
	}
}
