// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// =============================================================================
// ERRORS
// =============================================================================

// Sentinel errors for Start. Compare with errors.Is.
var (
	// ErrBusy is returned when the slot for the requested kind is already
	// Running. The caller must not duplicate the work.
	ErrBusy = &OrchestratorError{Message: "a task of this kind is already running"}

	// ErrStopped is returned once CancelAll has begun; no new tasks start
	// during teardown.
	ErrStopped = &OrchestratorError{Message: "orchestrator is shutting down"}
)

// OrchestratorError represents an orchestrator-level error.
type OrchestratorError struct {
	Message string
}

// Error implements the error interface.
func (e *OrchestratorError) Error() string {
	return e.Message
}

// Is implements errors.Is support.
func (e *OrchestratorError) Is(target error) bool {
	t, ok := target.(*OrchestratorError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Func is a task body: a single blocking call producing text. It must honor
// ctx cancellation where it can; bodies that cannot be interrupted run to
// completion and their outcome is discarded after shutdown begins.
type Func func(ctx context.Context) (string, error)

// Orchestrator owns the lifecycle of at most one inference task and one
// transcription task at a time. Each started task produces exactly one
// terminal Outcome through the notify callback; errors and panics inside a
// task body never cross the task boundary.
type Orchestrator struct {
	mu sync.Mutex

	notify  func(Outcome)
	slots   map[Kind]*slotState
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped atomic.Bool
}

type slotState struct {
	status Status
	taskID string
}

// New creates an orchestrator. notify is invoked exactly once per started
// task with its terminal outcome; it must be safe to call from a background
// goroutine (the TUI wires it to tea.Program.Send, tests to a channel).
func New(notify func(Outcome)) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		notify: notify,
		slots: map[Kind]*slotState{
			KindInference:     {status: StatusIdle},
			KindTranscription: {status: StatusIdle},
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// =============================================================================
// SLOT STATE
// =============================================================================

// Status returns the current status of the slot for kind.
func (o *Orchestrator) Status(kind Kind) Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	if slot, ok := o.slots[kind]; ok {
		return slot.status
	}
	return StatusIdle
}

// Busy reports whether the slot for kind is occupied by a running task.
func (o *Orchestrator) Busy(kind Kind) bool {
	return o.Status(kind).Occupied()
}

// AnyBusy reports whether any slot is occupied.
func (o *Orchestrator) AnyBusy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, slot := range o.slots {
		if slot.status.Occupied() {
			return true
		}
	}
	return false
}

// =============================================================================
// STARTING TASKS
// =============================================================================

// Start launches run on a background goroutine in the slot for kind and
// returns immediately with the task id. If the slot is already Running the
// request is rejected with ErrBusy and nothing is launched. label travels
// unchanged into the task's Outcome.
func (o *Orchestrator) Start(kind Kind, label string, run Func) (string, error) {
	if o.stopped.Load() {
		return "", ErrStopped
	}

	o.mu.Lock()
	slot, ok := o.slots[kind]
	if !ok {
		o.mu.Unlock()
		return "", &OrchestratorError{Message: "unknown task kind: " + kind.String()}
	}
	if slot.status.Occupied() {
		o.mu.Unlock()
		return "", ErrBusy
	}

	taskID := uuid.New().String()
	slot.status = StatusRunning
	slot.taskID = taskID
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		text, err := runSafely(o.ctx, run)
		o.finish(kind, taskID, label, text, err)
	}()

	return taskID, nil
}

// runSafely executes the task body, converting a panic into a plain error so
// the orchestrator never raises across the task boundary.
func runSafely(ctx context.Context, run Func) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return run(ctx)
}

// finish records the terminal state and delivers the single outcome. Once
// shutdown has begun the outcome is discarded: the caller has already torn
// down and must not observe late notifications.
func (o *Orchestrator) finish(kind Kind, taskID, label, text string, err error) {
	o.mu.Lock()
	slot := o.slots[kind]
	// Only the task that occupies the slot may release it.
	if slot.taskID == taskID {
		if err != nil {
			slot.status = StatusFailed
		} else {
			slot.status = StatusCompleted
		}
		slot.taskID = ""
	}
	notify := o.notify
	o.mu.Unlock()

	if o.stopped.Load() || notify == nil {
		return
	}
	notify(Outcome{TaskID: taskID, Kind: kind, Label: label, Text: text, Err: err})
}

// =============================================================================
// SHUTDOWN
// =============================================================================

// CancelAll requests termination of every running task and blocks until all
// task goroutines have fully stopped. No outcome is delivered after
// CancelAll returns. Used only at shutdown.
func (o *Orchestrator) CancelAll() {
	o.stopped.Store(true)
	o.cancel()
	o.wg.Wait()
}
