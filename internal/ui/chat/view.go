// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/mkondo/mindchat-tui/internal/model"
)

// Fixed row budgets for the non-scrolling chrome.
const (
	headerHeight = 2
	inputHeight  = 5
	statusHeight = 1
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "起動中..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.warn != nil {
		b.WriteString(m.renderWarning())
	} else {
		b.WriteString(m.renderBody())
	}
	b.WriteString("\n")

	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	return m.theme.App.Render(b.String())
}

// renderHeader draws the title line with the active mode name.
func (m *Model) renderHeader() string {
	mode := m.ctrl.Active().Mode
	title := m.theme.HeaderTitle.Render("Mind-Chat")
	modeTag := m.theme.HeaderMode.Render("  " + mode.Title)
	return m.theme.Header.Width(m.width - 2).Render(title + modeTag)
}

// renderBody joins the sidebar and the transcript viewport.
func (m *Model) renderBody() string {
	sidebar := m.theme.Sidebar.
		Width(sidebarWidthFor(m.width)).
		Height(m.viewport.Height).
		Render(m.renderSidebar())
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, m.viewport.View())
}

// renderSidebar draws one row per conversation, newest first.
func (m *Model) renderSidebar() string {
	if len(m.summaries) == 0 {
		return m.theme.ListMeta.Render("履歴なし")
	}

	width := sidebarWidthFor(m.width) - 4
	selected := m.selectedIndex()

	var rows []string
	for i, s := range m.summaries {
		marker := "  "
		if s.IsFavorite {
			marker = m.theme.ListFavorite.Render("★ ")
		}

		label := runewidth.Truncate(s.Preview, width, "…")
		style := m.theme.ListItem
		if i == selected {
			style = m.theme.ListSelected
		}
		rows = append(rows, marker+style.Render(label))
	}
	return strings.Join(rows, "\n")
}

// renderTranscript renders the open conversation for the viewport.
func (m *Model) renderTranscript() string {
	if m.conv == nil || len(m.conv.Messages) == 0 {
		return m.theme.ListMeta.Render("メッセージを入力して相談を始めてください。")
	}

	mode := m.ctrl.Active().Mode
	width := m.viewport.Width - 2

	var blocks []string
	for _, msg := range m.conv.Messages {
		label := msg.Role.DisplayName()
		style := m.theme.UserLabel
		if msg.Role == model.RoleAssistant {
			style = m.theme.AssistantLabel
			if mode.AssistantLabel != "" {
				label = mode.AssistantLabel
			}
		}

		header := style.Render(label) + " " +
			m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
		body := m.theme.MessageBody.Width(width).Render(msg.Content)
		blocks = append(blocks, header+"\n"+body)
	}
	return strings.Join(blocks, "\n\n")
}

// renderStatusBar shows task status on the left and shortcuts on the right.
func (m *Model) renderStatusBar() string {
	var left string
	switch {
	case m.recording:
		left = m.theme.StatusRecord.Render("● " + m.recStatus)
	case m.busy:
		left = m.spinner.View() + m.theme.StatusBusy.Render(m.status)
	default:
		left = m.theme.StatusBar.Render("準備完了")
	}

	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts,
			m.theme.ShortcutKey.Render(h.Key)+m.theme.ShortcutDesc.Render(" "+h.Desc))
	}
	right := strings.Join(parts, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderWarning draws the modal warning box centered in the body area.
func (m *Model) renderWarning() string {
	box := m.theme.WarningBox.Render(
		m.theme.WarningTitle.Render(m.warn.title) + "\n\n" +
			m.warn.message + "\n\n" +
			m.theme.ShortcutDesc.Render("Esc で閉じる"))
	return lipgloss.Place(m.width, m.viewport.Height, lipgloss.Center, lipgloss.Center, box)
}

// sidebarWidthFor sizes the history sidebar for the terminal width.
func sidebarWidthFor(total int) int {
	w := total / 4
	if w < 20 {
		w = 20
	}
	if w > 36 {
		w = 36
	}
	return w
}
