// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/mkondo/mindchat-tui/internal/config"
	"github.com/mkondo/mindchat-tui/internal/history"
)

// =============================================================================
// MODE SESSION
// =============================================================================

// ModeSession binds one conversation mode to its own history store, its
// currently open conversation, and the pending input buffer that voice
// transcriptions land in. Sessions are owned by the Controller and only ever
// touched from the interactive goroutine.
type ModeSession struct {
	// Mode is the persona definition this session runs under.
	Mode config.ModeConfig

	// Store is this mode's private conversation history.
	Store *history.Store

	// currentID is the open conversation, empty if none.
	currentID string

	// pendingInput accumulates transcribed text until the user sends or
	// clears it. Transcription never auto-sends.
	pendingInput string
}

// NewModeSession creates a session for mode backed by store.
func NewModeSession(mode config.ModeConfig, store *history.Store) *ModeSession {
	return &ModeSession{Mode: mode, Store: store}
}

// CurrentID returns the open conversation id, empty if none.
func (s *ModeSession) CurrentID() string {
	return s.currentID
}

// SetCurrent switches the open conversation pointer.
func (s *ModeSession) SetCurrent(id string) {
	s.currentID = id
}

// PendingInput returns the accumulated, not-yet-sent input text.
func (s *ModeSession) PendingInput() string {
	return s.pendingInput
}

// AppendPendingInput adds recognized text to the pending input buffer,
// separated from earlier text by a newline.
func (s *ModeSession) AppendPendingInput(text string) string {
	if text == "" {
		return s.pendingInput
	}
	if s.pendingInput != "" {
		s.pendingInput += "\n"
	}
	s.pendingInput += text
	return s.pendingInput
}

// ClearPendingInput empties the pending input buffer. Called when the user
// sends or discards the composed message.
func (s *ModeSession) ClearPendingInput() {
	s.pendingInput = ""
}
