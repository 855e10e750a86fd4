// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the Mind-Chat TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. The accent color
// comes from the active conversation mode, so switching modes re-tints the
// whole interface.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Accent is the active mode's highlight color.
	Accent lipgloss.Color

	// ==========================================================================
	// LAYOUT STYLES
	// ==========================================================================

	App     lipgloss.Style
	Header  lipgloss.Style
	Sidebar lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	HeaderTitle lipgloss.Style
	HeaderMode  lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	MessageBody    lipgloss.Style
	Timestamp      lipgloss.Style

	// ==========================================================================
	// SIDEBAR (CONVERSATION LIST) STYLES
	// ==========================================================================

	ListItem     lipgloss.Style
	ListSelected lipgloss.Style
	ListFavorite lipgloss.Style
	ListMeta     lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	StatusBar      lipgloss.Style
	StatusBusy     lipgloss.Style
	StatusRecord   lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style

	// ==========================================================================
	// OVERLAY STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	WarningBox   lipgloss.Style
	WarningTitle lipgloss.Style
}

// NewTheme builds a theme tinted with the given accent color. An empty
// accent falls back to the default violet.
func NewTheme(accent string) *Theme {
	if accent == "" {
		accent = "#7D56F4"
	}

	output := termenv.DefaultOutput()
	t := &Theme{
		IsDark:       lipgloss.HasDarkBackground(),
		ColorProfile: output.Profile,
		Accent:       lipgloss.Color(accent),
	}

	subtle := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	text := lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#DDDDDD"}
	warn := lipgloss.Color("#E25822")

	t.App = lipgloss.NewStyle()
	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(t.Accent).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.HeaderMode = lipgloss.NewStyle().Foreground(subtle)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(subtle).
		Padding(0, 1)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2D9CDB"))
	t.MessageBody = lipgloss.NewStyle().Foreground(text)
	t.Timestamp = lipgloss.NewStyle().Foreground(subtle)

	t.ListItem = lipgloss.NewStyle().Foreground(text)
	t.ListSelected = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.ListFavorite = lipgloss.NewStyle().Foreground(lipgloss.Color("#F2C94C"))
	t.ListMeta = lipgloss.NewStyle().Foreground(subtle)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent).
		Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().Foreground(subtle)
	t.StatusBusy = lipgloss.NewStyle().Foreground(t.Accent)
	t.StatusRecord = lipgloss.NewStyle().Bold(true).Foreground(warn)
	t.ShortcutKey = lipgloss.NewStyle().Bold(true).Foreground(text)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(subtle)

	t.Spinner = lipgloss.NewStyle().Foreground(t.Accent)
	t.WarningBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(warn).
		Padding(1, 2)
	t.WarningTitle = lipgloss.NewStyle().Bold(true).Foreground(warn)

	return t
}
