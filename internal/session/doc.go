// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the application core: one ModeSession per
// conversation mode, and the Controller that routes user commands through
// the stores and the background task slots.
//
// All controller methods run on the interactive goroutine. Background tasks
// only ever receive immutable snapshots; their results re-enter application
// state through HandleOutcome, resolved against the mode and conversation
// the task was started for.
package session
