// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkondo/mindchat-tui/internal/config"
	"github.com/mkondo/mindchat-tui/internal/model"
	"github.com/mkondo/mindchat-tui/internal/tasks"
)

// =============================================================================
// MESSAGES
// =============================================================================

// Controller notifications and task outcomes enter the update loop as
// messages. Nothing in this package touches application state outside
// Update.

// ListChangedMsg carries a fresh snapshot of the conversation list.
type ListChangedMsg struct {
	Summaries []model.Summary
}

// ConversationMsg carries the conversation snapshot the view renders from.
type ConversationMsg struct {
	Conv *model.Conversation
}

// BusyMsg reports background task activity with a status line.
type BusyMsg struct {
	Busy   bool
	Status string
}

// RecordingMsg reports microphone capture state.
type RecordingMsg struct {
	Recording bool
	Status    string
}

// InputSuggestedMsg carries the pending input buffer after a transcription.
type InputSuggestedMsg struct {
	Text string
}

// WarnMsg surfaces a failure as a dismissable warning box.
type WarnMsg struct {
	Title   string
	Message string
}

// OutcomeMsg delivers a task's terminal outcome into the update loop, where
// it is handed to the controller.
type OutcomeMsg struct {
	Outcome tasks.Outcome
}

// ConfigReloadedMsg carries a hot-reloaded configuration. Only its
// presentation fields are applied at runtime.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher bridges the controller to the bubbletea program: it implements
// session.Notifier by converting each notification into a message. The send
// function is tea.Program.Send, so notifications are safe from any
// goroutine.
type Dispatcher struct {
	send func(tea.Msg)
}

// NewDispatcher creates a dispatcher that forwards through send.
func NewDispatcher(send func(tea.Msg)) *Dispatcher {
	return &Dispatcher{send: send}
}

func (d *Dispatcher) ListChanged(summaries []model.Summary) {
	d.send(ListChangedMsg{Summaries: summaries})
}

func (d *Dispatcher) ConversationDisplayed(conv *model.Conversation) {
	d.send(ConversationMsg{Conv: conv})
}

func (d *Dispatcher) BusyChanged(busy bool, status string) {
	d.send(BusyMsg{Busy: busy, Status: status})
}

func (d *Dispatcher) RecordingChanged(recording bool, status string) {
	d.send(RecordingMsg{Recording: recording, Status: status})
}

func (d *Dispatcher) InputSuggested(text string) {
	d.send(InputSuggestedMsg{Text: text})
}

func (d *Dispatcher) Warn(title, message string) {
	d.send(WarnMsg{Title: title, Message: message})
}

// NotifyOutcome forwards a task outcome; wire it as the orchestrator's
// notification callback.
func (d *Dispatcher) NotifyOutcome(out tasks.Outcome) {
	d.send(OutcomeMsg{Outcome: out})
}

// ConfigReloaded forwards a hot-reloaded configuration; wire it as the
// config watcher's reload callback.
func (d *Dispatcher) ConfigReloaded(cfg *config.Config) {
	d.send(ConfigReloadedMsg{Config: cfg})
}
