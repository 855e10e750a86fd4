// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks coordinates the two background task slots of the
// application: one for language-model inference and one for speech
// transcription. A slot runs at most one task at a time, every started task
// yields exactly one terminal outcome, and shutdown waits for the background
// goroutines to stop before returning.
package tasks
