// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements argument parsing and the non-TUI subcommands:
// one-shot questions, server status checks, and config management.
package cli
