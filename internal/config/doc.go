// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading (TOML or JSON, with
// environment overrides), the built-in conversation mode definitions, and a
// file watcher for live reloads.
package config
