// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings for the chat interface.
type KeyMap struct {
	Submit       key.Binding
	NewConv      key.Binding
	PrevConv     key.Binding
	NextConv     key.Binding
	Favorite     key.Binding
	Record       key.Binding
	CycleMode    key.Binding
	DismissWarn  key.Binding
	Quit         key.Binding
	ScrollUp     key.Binding
	ScrollDown   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "送信"),
		),
		NewConv: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "新しい会話"),
		),
		PrevConv: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "前の会話"),
		),
		NextConv: key.NewBinding(
			key.WithKeys("ctrl+j"),
			key.WithHelp("C-j", "次の会話"),
		),
		Favorite: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("C-f", "お気に入り"),
		),
		Record: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "録音"),
		),
		CycleMode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "モード切替"),
		),
		DismissWarn: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "閉じる"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "終了"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "上へ"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "下へ"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NewConv, k.Favorite, k.Record, k.CycleMode, k.Quit}
}
