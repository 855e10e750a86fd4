// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

// =============================================================================
// TASK KIND
// =============================================================================

// Kind identifies a background task slot. Each kind has exactly one slot:
// a second start request for a Running kind is rejected, never queued.
type Kind string

const (
	// KindInference is the language-model reply generation slot.
	KindInference Kind = "inference"

	// KindTranscription is the speech-to-text slot.
	KindTranscription Kind = "transcription"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// =============================================================================
// TASK STATUS
// =============================================================================

// Status represents the state of a task slot.
type Status string

const (
	// StatusIdle indicates the slot has never run a task.
	StatusIdle Status = "Idle"

	// StatusRunning indicates a task is executing; the slot is occupied.
	StatusRunning Status = "Running"

	// StatusCompleted indicates the last task finished successfully.
	StatusCompleted Status = "Completed"

	// StatusFailed indicates the last task finished with an error.
	StatusFailed Status = "Failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Occupied reports whether the slot can accept a new task. Only Running
// occupies the slot; Idle, Completed and Failed are all free.
func (s Status) Occupied() bool {
	return s == StatusRunning
}

// =============================================================================
// OUTCOME
// =============================================================================

// Outcome is the single terminal notification for a started task. Exactly
// one Outcome is delivered per task: Err is nil on success, non-nil on
// failure, never both missing, never duplicated.
type Outcome struct {
	// TaskID identifies the task this outcome belongs to.
	TaskID string

	// Kind is the slot the task ran in.
	Kind Kind

	// Label is the caller-supplied tag carried through unchanged. Sessions
	// use it to pin results to the conversation and mode the task was
	// started against.
	Label string

	// Text is the task result on success.
	Text string

	// Err is the task error on failure, already caught at the task boundary.
	Err error
}

// Failed reports whether the task ended in failure.
func (o Outcome) Failed() bool {
	return o.Err != nil
}
