// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "github.com/mkondo/mindchat-tui/internal/model"

// =============================================================================
// NOTIFIER
// =============================================================================

// Notifier is the UI-facing notification surface. The Controller calls it
// on the interactive goroutine; implementations translate the calls into
// whatever the front end renders from (the TUI turns them into tea messages).
type Notifier interface {
	// ListChanged reports that the active mode's conversation list changed.
	// summaries is a copy-on-read snapshot in recency order.
	ListChanged(summaries []model.Summary)

	// ConversationDisplayed carries the fresh snapshot the view should
	// re-render from. The view must not render from cached state.
	ConversationDisplayed(conv *model.Conversation)

	// BusyChanged reports whether a background task is occupying the UI,
	// with a short status line ("AIが考え中です..." etc.).
	BusyChanged(busy bool, status string)

	// RecordingChanged reports microphone capture state.
	RecordingChanged(recording bool, status string)

	// InputSuggested carries the full pending input buffer after a
	// transcription landed in it. The composer should show this text; it is
	// never sent automatically.
	InputSuggested(text string)

	// Warn surfaces a failure as a modal-style warning.
	Warn(title, message string)
}
