// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	// Messages
	UserLabel      lipgloss.Style
	UserText       lipgloss.Style
	AssistantLabel lipgloss.Style
	AssistantText  lipgloss.Style
	SystemText     lipgloss.Style
	ErrorText      lipgloss.Style
	StreamCursor   lipgloss.Style
	Citation       lipgloss.Style

	// Upload cards
	UploadCard     lipgloss.Style
	UploadPending  lipgloss.Style
	UploadDone     lipgloss.Style
	UploadFailed   lipgloss.Style

	// Conversation sidebar
	Sidebar         lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarPreview  lipgloss.Style

	// Input area
	InputPrompt lipgloss.Style
	InputBorder lipgloss.Style

	// Status bar
	StatusBar     lipgloss.Style
	StatusKey     lipgloss.Style
	StatusValue   lipgloss.Style
	HealthUp      lipgloss.Style
	HealthDown    lipgloss.Style
	StatusMessage lipgloss.Style

	// Loading
	Spinner lipgloss.Style

	// Help overlay
	HelpBox   lipgloss.Style
	HelpKey   lipgloss.Style
	HelpDesc  lipgloss.Style
	HelpTitle lipgloss.Style
}

// NewTheme creates a theme for the given mode: "dark", "light" or "auto".
// Anything other than dark/light leaves terminal detection in charge.
func NewTheme(mode string) *Theme {
	switch mode {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}

	t := &Theme{
		IsDark:       lipgloss.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.HeaderMeta = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(UserBorder).
		Bold(true)
	t.UserText = lipgloss.NewStyle().
		Foreground(UserFg)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(AssistantBorder).
		Bold(true)
	t.AssistantText = lipgloss.NewStyle().
		Foreground(AssistantFg)
	t.SystemText = lipgloss.NewStyle().
		Foreground(SystemFg).
		Italic(true)
	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose)
	t.StreamCursor = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.Citation = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.UploadCard = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.UploadPending = lipgloss.NewStyle().
		Foreground(Amber)
	t.UploadDone = lipgloss.NewStyle().
		Foreground(Emerald)
	t.UploadFailed = lipgloss.NewStyle().
		Foreground(Rose)

	t.Sidebar = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.SidebarSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true)
	t.SidebarPreview = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.InputBorder = lipgloss.NewStyle().
		Foreground(Overlay)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.StatusValue = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.HealthUp = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)
	t.HealthDown = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)
	t.StatusMessage = lipgloss.NewStyle().
		Foreground(Amber)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	t.HelpBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)
	t.HelpKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.HelpDesc = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.HelpTitle = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	return t
}

// SetSize records the current terminal dimensions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}
