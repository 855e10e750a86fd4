// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides the per-mode conversation store: a recency-ordered
// list of conversations with bounded retention, favorite pinning, and
// crash-safe JSON persistence.
//
// Retention never evicts a favorited conversation. When every stored
// conversation is a favorite the ceiling is treated as best effort and the
// newest conversation is accepted anyway.
package history
