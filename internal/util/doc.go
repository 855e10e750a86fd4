// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers: atomic file writes for crash-safe
// persistence and rune-aware string truncation for list previews.
package util
