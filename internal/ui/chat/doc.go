// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the bubbletea front end for Mind-Chat: the message
// transcript, the history sidebar, the composer, and the status bar.
//
// The package holds no application state of its own. Key presses become
// controller commands; controller notifications and task outcomes come back
// into Update as messages via the Dispatcher, so everything the view renders
// is a snapshot the controller pushed.
package chat
