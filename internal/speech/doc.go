// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package speech provides voice input: a Recorder interface over audio
// capture and an HTTP client for a local whisper.cpp server that turns the
// captured PCM into text.
package speech
