// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides the HTTP client for generating counselor replies
// through a locally hosted Ollama server.
package llm
