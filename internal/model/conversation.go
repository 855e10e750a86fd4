// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/mkondo/mindchat-tui/internal/util"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds one chat thread: an ordered, append-only message list
// plus favorite and recency metadata. The message sequence is chronological
// by construction; the only removal ever performed is the rollback of a
// trailing user message after a failed generation.
type Conversation struct {
	ID           string    `json:"id"`
	Messages     []Message `json:"messages"`
	IsFavorite   bool      `json:"is_favorite"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// NewConversation creates an empty conversation with a generated ID.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:           generateConversationID(),
		Messages:     make([]Message, 0),
		CreatedAt:    now,
		LastModified: now,
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message to the end of the conversation and bumps
// LastModified.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.LastModified = time.Now()
}

// RemoveTrailingUserMessage removes the last message if and only if its role
// is user. Returns true when a message was removed. Used to undo an
// optimistic append after a failed background task.
func (c *Conversation) RemoveTrailingUserMessage() bool {
	n := len(c.Messages)
	if n == 0 || c.Messages[n-1].Role != RoleUser {
		return false
	}
	c.Messages = c.Messages[:n-1]
	c.LastModified = time.Now()
	return true
}

// LastMessage returns the final message, or false for an empty conversation.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// MessageCount returns the number of messages in the conversation.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty reports whether the conversation has no messages yet.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// SNAPSHOTS & PREVIEWS
// =============================================================================

// Clone returns a deep copy. Store reads hand out clones so background work
// and the UI never alias store-owned state.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}

// Preview returns the first user message truncated for list display, or a
// placeholder for a conversation with no user messages yet.
func (c *Conversation) Preview() string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return util.Truncate(util.CollapseLine(msg.Content), 50)
		}
	}
	return "新しい相談"
}

// =============================================================================
// SUMMARY TYPE
// =============================================================================

// Summary is the listing view of a conversation: enough to render one row
// of the history sidebar without exposing store-owned message state.
type Summary struct {
	ID           string    `json:"id"`
	Preview      string    `json:"preview"`
	IsFavorite   bool      `json:"is_favorite"`
	MessageCount int       `json:"message_count"`
	LastModified time.Time `json:"last_modified"`
}

// Summarize builds the listing view of the conversation.
func (c *Conversation) Summarize() Summary {
	return Summary{
		ID:           c.ID,
		Preview:      c.Preview(),
		IsFavorite:   c.IsFavorite,
		MessageCount: len(c.Messages),
		LastModified: c.LastModified,
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "conv_" + hex.EncodeToString(bytes)
}
