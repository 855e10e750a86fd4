// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/mkondo/mindchat-tui/internal/model"
	"github.com/mkondo/mindchat-tui/internal/util"
)

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// Store is the durable conversation history for one mode. It keeps every
// conversation in memory in recency order (head = most recently touched) and
// writes the whole list to a single JSON document after each mutation.
//
// All mutations come from the interactive goroutine (single writer);
// background tasks only ever see snapshots. The mutex makes reads from tests
// and late completion handlers safe regardless.
type Store struct {
	mu sync.Mutex

	path             string
	maxConversations int
	maxFavorites     int

	// order is the recency order, head first. index maps id -> same pointer.
	order []*model.Conversation
	index map[string]*model.Conversation
}

// Options configures a Store.
type Options struct {
	// MaxConversations is the retention ceiling (0 = unlimited). When
	// exceeded, the oldest non-favorite conversation is evicted.
	MaxConversations int

	// MaxFavorites caps simultaneously favorited conversations (0 = unlimited).
	MaxFavorites int
}

// Open loads (or initializes) the history file at path. A missing file is
// created as an empty JSON array, matching what the UI expects on first run.
func Open(path string, opts Options) (*Store, error) {
	s := &Store{
		path:             path,
		maxConversations: opts.MaxConversations,
		maxFavorites:     opts.MaxFavorites,
		index:            make(map[string]*model.Conversation),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, &PersistenceError{Path: path, Cause: err}
		}
		if err := util.AtomicWriteFile(path, []byte("[]"), 0644); err != nil {
			return nil, &PersistenceError{Path: path, Cause: err}
		}
		data = []byte("[]")
	}

	var convs []*model.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return nil, fmt.Errorf("history file %s is corrupt: %w", path, err)
	}

	// File order is recency order; trust it on load so a round trip is exact.
	for _, conv := range convs {
		s.order = append(s.order, conv)
		s.index[conv.ID] = conv
	}

	return s, nil
}

// Path returns the backing file path for this store.
func (s *Store) Path() string {
	return s.path
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Get returns a deep-copy snapshot of the conversation with the given id.
func (s *Store) Get(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	return conv.Clone(), nil
}

// List returns recency-ordered conversation summaries. The result is a
// fresh slice of value types: copy-on-read, safe to hold across mutations.
func (s *Store) List() []model.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]model.Summary, 0, len(s.order))
	for _, conv := range s.order {
		summaries = append(summaries, conv.Summarize())
	}
	return summaries
}

// Len returns the number of stored conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// FavoriteCount returns the number of favorited conversations.
func (s *Store) FavoriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favoriteCountLocked()
}

func (s *Store) favoriteCountLocked() int {
	n := 0
	for _, conv := range s.order {
		if conv.IsFavorite {
			n++
		}
	}
	return n
}

// =============================================================================
// MUTATING OPERATIONS
// =============================================================================

// Create inserts a new empty conversation at the head of the recency order,
// evicting the oldest non-favorite conversations if the retention ceiling is
// exceeded. Creation itself never fails; a failed persistence write is
// reported via *PersistenceError while the in-memory state stands.
func (s *Store) Create() (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := model.NewConversation()
	s.order = append([]*model.Conversation{conv}, s.order...)
	s.index[conv.ID] = conv

	s.evictLocked(conv.ID)

	return conv.Clone(), s.saveLocked()
}

// AppendMessage appends msg to the conversation and moves it to the head of
// the recency order. Returns the fresh snapshot the UI should re-render from.
func (s *Store) AppendMessage(id string, msg model.Message) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}

	conv.Append(msg)
	s.moveToHeadLocked(conv)

	// Appends never grow the set, but the retention invariant is re-checked
	// after every operation that could violate it.
	s.evictLocked(conv.ID)

	return conv.Clone(), s.saveLocked()
}

// RemoveTrailingUserMessage undoes an optimistic user append after a failed
// background task. A conversation whose last message is not a user message
// is left untouched. Returns the resulting snapshot either way.
func (s *Store) RemoveTrailingUserMessage(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}

	if !conv.RemoveTrailingUserMessage() {
		return conv.Clone(), nil
	}

	return conv.Clone(), s.saveLocked()
}

// ToggleFavorite flips the favorite flag. Favoriting past MaxFavorites fails
// with ErrFavoriteLimit and leaves the conversation unchanged; unfavoriting
// always succeeds.
func (s *Store) ToggleFavorite(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}

	if !conv.IsFavorite && s.maxFavorites > 0 && s.favoriteCountLocked() >= s.maxFavorites {
		return nil, ErrFavoriteLimit
	}

	conv.IsFavorite = !conv.IsFavorite

	return conv.Clone(), s.saveLocked()
}

// =============================================================================
// EVICTION
// =============================================================================

// evictLocked enforces the retention ceiling: scan from the tail (least
// recently touched) and drop the first non-favorite found, repeating until
// within bound or nothing is evictable. Favorites are never evicted, and
// neither is keepID (the conversation being created or touched); if that
// leaves the store over the ceiling the overflow is accepted.
func (s *Store) evictLocked(keepID string) {
	if s.maxConversations <= 0 {
		return
	}

	for len(s.order) > s.maxConversations {
		evicted := false
		for i := len(s.order) - 1; i >= 0; i-- {
			conv := s.order[i]
			if conv.IsFavorite || conv.ID == keepID {
				continue
			}
			s.order = append(s.order[:i], s.order[i+1:]...)
			delete(s.index, conv.ID)
			evicted = true
			break
		}
		if !evicted {
			return
		}
	}
}

// moveToHeadLocked moves conv to the front of the recency order.
func (s *Store) moveToHeadLocked(conv *model.Conversation) {
	for i, c := range s.order {
		if c.ID == conv.ID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.order = append([]*model.Conversation{conv}, s.order...)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// saveLocked writes the full conversation list (recency order) to disk
// atomically. On failure the in-memory state is kept and a typed error is
// returned so the caller can warn without losing the user's message.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.order, "", "  ")
	if err != nil {
		return &PersistenceError{Path: s.path, Cause: err}
	}

	if err := util.AtomicWriteFile(s.path, data, 0644); err != nil {
		return &PersistenceError{Path: s.path, Cause: err}
	}

	return nil
}

// Save forces a write of the current state. Used at shutdown.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}
