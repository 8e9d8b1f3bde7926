// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "audiomidi/internal/log"
)

// wavWriter bundles the open file, encoder and the reusable conversion
// buffer for one recording session.
type wavWriter struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *goaudio.IntBuffer
}

func (w *wavWriter) write(in []int32) {
	w.buf.Data = w.buf.Data[:len(in)]
	for i, sample := range in {
		w.buf.Data[i] = int(sample)
	}
	if err := w.encoder.Write(w.buf); err != nil {
		applog.Errorf("audio: writing WAV data: %v", err)
	}
}

// StartRecording mirrors the raw capture input to a 32-bit mono WAV
// file until StopRecording or Close.
func (e *Engine) StartRecording(filename string) error {
	if e.isRecording.Load() == 1 {
		return fmt.Errorf("audio: already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("audio: creating recording file: %w", err)
	}

	e.recording = &wavWriter{
		file:    file,
		encoder: wav.NewEncoder(file, int(e.cfg.SampleRate), 32, 1, 1),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: 1,
				SampleRate:  int(e.cfg.SampleRate),
			},
			Data: make([]int, e.cfg.HopSize),
		},
	}

	e.isRecording.Store(1)
	applog.Infof("audio: recording input to %s", filename)
	return nil
}

// StopRecording finalizes the WAV file. A no-op when not recording.
func (e *Engine) StopRecording() error {
	if e.isRecording.Load() == 0 {
		return nil
	}
	e.isRecording.Store(0)

	w := e.recording
	e.recording = nil
	if err := w.encoder.Close(); err != nil {
		return fmt.Errorf("audio: finalizing WAV file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("audio: closing recording file: %w", err)
	}
	return nil
}
