// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkondo/mindchat-tui/internal/config"
	"github.com/mkondo/mindchat-tui/internal/model"
	"github.com/mkondo/mindchat-tui/internal/session"
	"github.com/mkondo/mindchat-tui/internal/tasks"
)

type nopGenerator struct{}

func (nopGenerator) GenerateReply(ctx context.Context, history []model.Message, systemPrompt string) (string, error) {
	return "ok", nil
}

func testModel(t *testing.T) (*Model, *[]tea.Msg) {
	t.Helper()

	var sent []tea.Msg
	dispatcher := NewDispatcher(func(msg tea.Msg) {
		sent = append(sent, msg)
	})

	cfg := &config.Config{
		DataDir: t.TempDir(),
		History: config.HistoryConfig{MaxConversations: 10, MaxFavorites: 5},
		Modes: []config.ModeConfig{
			{Key: "counsel", Title: "相談", AssistantLabel: "Mind-Chat", SystemPrompt: "p", Accent: "#7D56F4"},
			{Key: "listen", Title: "傾聴", AssistantLabel: "Mind-Chat", SystemPrompt: "p", Accent: "#27AE60"},
		},
	}
	ctrl, err := session.NewController(cfg, session.Deps{
		Generator:     nopGenerator{},
		Notifier:      dispatcher,
		NotifyOutcome: dispatcher.NotifyOutcome,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctrl.Bootstrap()
	return New(ctrl), &sent
}

// drain feeds every queued dispatcher message through Update, the way the
// running program's event loop would.
func drain(m *Model, sent *[]tea.Msg) {
	for len(*sent) > 0 {
		msg := (*sent)[0]
		*sent = (*sent)[1:]
		m.Update(msg)
	}
}

func TestNew_SeedsBootstrappedState(t *testing.T) {
	m, _ := testModel(t)

	// The first frame must render from state snapshotted at construction,
	// before any notification reaches Update.
	if m.conv == nil {
		t.Fatal("model should hold the bootstrapped conversation")
	}
	if len(m.summaries) != 1 {
		t.Errorf("summaries = %d, want 1", len(m.summaries))
	}
	if m.conv.ID != m.ctrl.Active().CurrentID() {
		t.Error("seeded conversation should be the open one")
	}
}

func TestInit_DoesNotTouchController(t *testing.T) {
	m, _ := testModel(t)

	before := m.ctrl.Active().Store.Len()
	currentID := m.ctrl.Active().CurrentID()

	// Init's commands run on background goroutines; the single-writer
	// controller must stay out of them entirely.
	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init should return the blink command")
	}
	cmd()

	if m.ctrl.Active().Store.Len() != before {
		t.Error("Init command mutated the store")
	}
	if m.ctrl.Active().CurrentID() != currentID {
		t.Error("Init command moved the conversation pointer")
	}
}

func TestUpdate_ConfigReloadRestyles(t *testing.T) {
	m, sent := testModel(t)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 32})
	drain(m, sent)

	reloaded := &config.Config{
		Modes: []config.ModeConfig{
			{Key: "counsel", Title: "心の相談", AssistantLabel: "こころ", SystemPrompt: "changed", Accent: "#FF00FF"},
		},
	}
	m.Update(ConfigReloadedMsg{Config: reloaded})

	if string(m.theme.Accent) != "#FF00FF" {
		t.Errorf("theme accent = %v, want the reloaded accent", m.theme.Accent)
	}
	mode := m.ctrl.Active().Mode
	if mode.Title != "心の相談" || mode.AssistantLabel != "こころ" {
		t.Errorf("mode presentation not applied: %+v", mode)
	}
	// Prompts are not hot-swapped.
	if mode.SystemPrompt != "p" {
		t.Errorf("system prompt changed across reload: %q", mode.SystemPrompt)
	}
}

func TestView_RendersAfterResize(t *testing.T) {
	m, sent := testModel(t)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 32})
	drain(m, sent)

	out := m.View()
	if !strings.Contains(out, "Mind-Chat") {
		t.Error("view should show the app title")
	}
	if !strings.Contains(out, "相談") {
		t.Error("view should show the active mode title")
	}
}

func TestUpdate_WarnOverlayBlocksKeys(t *testing.T) {
	m, sent := testModel(t)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 32})
	drain(m, sent)

	m.Update(WarnMsg{Title: "お気に入り制限", Message: "上限です"})
	if !strings.Contains(m.View(), "お気に入り制限") {
		t.Fatal("warning box not rendered")
	}

	before := m.ctrl.Active().Store.Len()
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	if m.ctrl.Active().Store.Len() != before {
		t.Error("keys must be swallowed while the warning is shown")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.warn != nil {
		t.Error("esc should dismiss the warning")
	}
}

func TestUpdate_CycleModeRetints(t *testing.T) {
	m, sent := testModel(t)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 32})
	drain(m, sent)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	drain(m, sent)

	if m.ctrl.ActiveKey() != "listen" {
		t.Fatalf("active mode = %q", m.ctrl.ActiveKey())
	}
	if string(m.theme.Accent) != "#27AE60" {
		t.Errorf("theme accent = %v, want the listen mode accent", m.theme.Accent)
	}
}

func TestDispatcher_ForwardsOutcome(t *testing.T) {
	var got tea.Msg
	d := NewDispatcher(func(msg tea.Msg) { got = msg })

	d.NotifyOutcome(tasks.Outcome{TaskID: "t1", Kind: tasks.KindInference, Text: "done"})

	out, ok := got.(OutcomeMsg)
	if !ok {
		t.Fatalf("message type = %T", got)
	}
	if out.Outcome.TaskID != "t1" || out.Outcome.Text != "done" {
		t.Errorf("outcome = %+v", out.Outcome)
	}
}

func TestSidebarWidthFor(t *testing.T) {
	if w := sidebarWidthFor(60); w != 20 {
		t.Errorf("narrow terminal sidebar = %d, want 20", w)
	}
	if w := sidebarWidthFor(200); w != 36 {
		t.Errorf("wide terminal sidebar = %d, want 36", w)
	}
	if w := sidebarWidthFor(120); w != 30 {
		t.Errorf("sidebar = %d, want 30", w)
	}
}
