// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// Messages are immutable value objects. Conversations are mutated only
// through the history store, which hands out deep-copy snapshots to readers.
package model
