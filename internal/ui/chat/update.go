// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkondo/mindchat-tui/internal/session"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case OutcomeMsg:
		m.ctrl.HandleOutcome(msg.Outcome)
		return m, nil

	case ListChangedMsg:
		m.summaries = msg.Summaries
		return m, nil

	case ConversationMsg:
		m.conv = msg.Conv
		m.refreshViewport()
		return m, nil

	case BusyMsg:
		m.busy = msg.Busy
		m.status = msg.Status
		if m.busy {
			return m, m.spinner.Tick
		}
		return m, nil

	case RecordingMsg:
		m.recording = msg.Recording
		m.recStatus = msg.Status
		return m, nil

	case InputSuggestedMsg:
		m.input.SetValue(msg.Text)
		m.input.CursorEnd()
		return m, nil

	case WarnMsg:
		m.warn = &warning{title: msg.Title, message: msg.Message}
		return m, nil

	case ConfigReloadedMsg:
		m.ctrl.ApplyStyling(msg.Config)
		m.applyModeTheme()
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes command keys. Returns handled=false for keys that
// should fall through to the textarea.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	// A warning box swallows everything until dismissed.
	if m.warn != nil {
		if key.Matches(msg, m.keys.DismissWarn) || key.Matches(msg, m.keys.Quit) {
			m.warn = nil
		}
		return nil, true
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.Submit):
		// Shift+enter style continuation is not supported by every
		// terminal; alt+enter inserts a newline instead.
		if msg.Alt {
			return nil, false
		}
		m.submit()
		return nil, true

	case key.Matches(msg, m.keys.NewConv):
		m.ctrl.CreateConversation()
		return nil, true

	case key.Matches(msg, m.keys.PrevConv):
		m.selectAdjacent(-1)
		return nil, true

	case key.Matches(msg, m.keys.NextConv):
		m.selectAdjacent(1)
		return nil, true

	case key.Matches(msg, m.keys.Favorite):
		if m.conv != nil {
			m.ctrl.ToggleFavorite(m.conv.ID)
		}
		return nil, true

	case key.Matches(msg, m.keys.Record):
		m.toggleRecording()
		return nil, true

	case key.Matches(msg, m.keys.CycleMode):
		m.cycleMode()
		return nil, true

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return nil, true

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return nil, true
	}

	return nil, false
}

// submit sends the composed message. Refusals that are part of normal flow
// (empty input, busy slot) leave the composer untouched.
func (m *Model) submit() {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return
	}

	err := m.ctrl.SubmitMessage(text)
	switch {
	case err == nil:
		m.input.Reset()
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrRecording):
		// Keep the draft; the status bar already shows why.
	}
}

// selectAdjacent moves the open conversation up or down the sidebar list.
func (m *Model) selectAdjacent(delta int) {
	if len(m.summaries) == 0 {
		return
	}
	idx := m.selectedIndex() + delta
	if idx < 0 || idx >= len(m.summaries) {
		return
	}
	m.ctrl.SelectConversation(m.summaries[idx].ID)
}

// toggleRecording starts or stops voice capture.
func (m *Model) toggleRecording() {
	if m.recording {
		m.ctrl.StopRecording()
		return
	}
	m.ctrl.StartRecording()
}

// cycleMode switches to the next configured mode, wrapping around.
func (m *Model) cycleMode() {
	keys := m.ctrl.ModeKeys()
	if len(keys) < 2 {
		return
	}
	active := m.ctrl.ActiveKey()
	for i, k := range keys {
		if k == active {
			next := keys[(i+1)%len(keys)]
			if err := m.ctrl.SwitchMode(next); err == nil {
				m.applyModeTheme()
				m.input.Placeholder = "相談したいことを入力してください..."
			}
			return
		}
	}
}

// resize lays the widgets out for a new terminal size.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	sidebarWidth := sidebarWidthFor(width)
	contentWidth := width - sidebarWidth - 1

	// Header, input box and status bar take fixed rows.
	bodyHeight := height - headerHeight - inputHeight - statusHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, bodyHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = bodyHeight
	}

	m.input.SetWidth(width - 4)
	m.refreshViewport()
}

// refreshViewport re-renders the transcript into the viewport and follows
// the tail.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

var _ tea.Model = (*Model)(nil)
