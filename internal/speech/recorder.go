// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"fmt"
	"sync"
)

// =============================================================================
// RECORDER
// =============================================================================

// Recorder captures microphone audio between Start and Stop. Hardware access
// lives behind this interface; the core only ever sees the captured bytes.
type Recorder interface {
	// Start begins capturing. Fails if already recording.
	Start() error

	// Stop ends capturing and returns the raw 16-bit mono PCM together with
	// its sample rate. Fails if not recording.
	Stop() (pcm []byte, sampleRate int, err error)

	// Recording reports whether a capture is in progress.
	Recording() bool
}

// =============================================================================
// BUFFER RECORDER
// =============================================================================

// BufferRecorder is an in-memory Recorder fed by an external capture source
// (or by tests). The TUI build pushes chunks from its audio callback; Stop
// hands the accumulated PCM to the transcription task.
type BufferRecorder struct {
	mu         sync.Mutex
	recording  bool
	sampleRate int
	buf        []byte
}

// NewBufferRecorder creates a recorder that accumulates pushed PCM chunks at
// the given sample rate.
func NewBufferRecorder(sampleRate int) *BufferRecorder {
	return &BufferRecorder{sampleRate: sampleRate}
}

// Start begins a capture.
func (r *BufferRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return fmt.Errorf("already recording")
	}
	r.recording = true
	r.buf = r.buf[:0]
	return nil
}

// Push appends a chunk of captured PCM. Chunks arriving while not recording
// are dropped.
func (r *BufferRecorder) Push(chunk []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	r.buf = append(r.buf, chunk...)
}

// Stop ends the capture and returns the accumulated PCM.
func (r *BufferRecorder) Stop() ([]byte, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil, 0, fmt.Errorf("not recording")
	}
	r.recording = false
	pcm := make([]byte, len(r.buf))
	copy(pcm, r.buf)
	return pcm, r.sampleRate, nil
}

// Recording reports whether a capture is in progress.
func (r *BufferRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}
