// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkondo/mindchat-tui/internal/model"
	"github.com/mkondo/mindchat-tui/internal/session"
	"github.com/mkondo/mindchat-tui/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// warning is a pending modal warning box, nil when none.
type warning struct {
	title   string
	message string
}

// Model is the bubbletea model for the Mind-Chat interface. All controller
// commands are issued from Update; controller notifications come back in as
// messages through the Dispatcher.
type Model struct {
	ctrl  *session.Controller
	theme *styles.Theme
	keys  KeyMap

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	// View state pushed by the controller.
	summaries []model.Summary
	conv      *model.Conversation
	busy      bool
	status    string
	recording bool
	recStatus string
	warn      *warning

	width  int
	height int
	ready  bool
}

// New creates the chat model around an already-bootstrapped controller.
func New(ctrl *session.Controller) *Model {
	input := textarea.New()
	input.Placeholder = "相談したいことを入力してください..."
	input.CharLimit = 4000
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctrl:    ctrl,
		keys:    DefaultKeyMap(),
		input:   input,
		spinner: sp,
	}
	m.applyModeTheme()
	m.seedFromController()
	return m
}

// seedFromController snapshots the bootstrapped controller state so the
// first frame renders without waiting for notifications. The controller is
// only ever touched from the event loop after this.
func (m *Model) seedFromController() {
	sess := m.ctrl.Active()
	m.summaries = sess.Store.List()
	if id := sess.CurrentID(); id != "" {
		if conv, err := sess.Store.Get(id); err == nil {
			m.conv = conv
		}
	}
}

// applyModeTheme rebuilds the theme from the active mode's accent color.
func (m *Model) applyModeTheme() {
	m.theme = styles.NewTheme(m.ctrl.Active().Mode.Accent)
	m.spinner.Style = m.theme.Spinner
}

// Init implements tea.Model. The controller is bootstrapped before the
// program starts; commands returned here must not touch it, since Bubble
// Tea runs them on background goroutines.
func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// selectedIndex returns the index of the open conversation in the sidebar
// list, -1 if not present.
func (m *Model) selectedIndex() int {
	current := m.ctrl.Active().CurrentID()
	for i, s := range m.summaries {
		if s.ID == current {
			return i
		}
	}
	return -1
}
