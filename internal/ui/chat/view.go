// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file contains the rendering logic: the transcript, the conversation
// sidebar, the input line and the status bar.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/chattaio/chattai-tui/internal/model"
	"github.com/chattaio/chattai-tui/internal/util"
)

const sidebarWidth = 28

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer renders assistant answers with formatting and syntax
// highlighting. Falls back to plain text when initialization fails.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		markdownRenderer = nil
	}
}

func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// =============================================================================
// MAIN RENDER
// =============================================================================

// renderChat renders the complete chat view.
// Layout: header (1 line) + sidebar|transcript + input (2 lines) + status (1 line).
func (m Model) renderChat() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	header := m.renderHeader()
	input := m.renderInput()
	status := m.renderStatusBar()

	body := m.viewport.View()
	if m.showSidebar {
		sidebar := m.renderSidebar(m.viewport.Height)
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, body)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, input, status)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("chattai")
	meta := ""
	if m.hasActive {
		meta = m.theme.HeaderMeta.Render("  " + util.TruncateRunes(m.conversation.Title, 48))
	}

	health := m.theme.HealthDown.Render("● offline")
	if m.healthy {
		health = m.theme.HealthUp.Render("● online")
	}

	left := title + meta
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(health) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + health)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar(height int) string {
	itemWidth := sidebarWidth - 3

	var lines []string
	if m.searchFilter != "" {
		lines = append(lines, m.theme.SidebarPreview.Render("filter: "+util.TruncateRunes(m.searchFilter, itemWidth-8)))
	}
	for _, meta := range m.metas {
		title := util.TruncateRunes(meta.Title, itemWidth)
		if meta.Active {
			lines = append(lines, m.theme.SidebarSelected.Width(itemWidth).Render(title))
		} else {
			lines = append(lines, m.theme.SidebarItem.Render(title))
		}
		if meta.Preview != "" {
			lines = append(lines, m.theme.SidebarPreview.Render("  "+util.TruncateRunes(meta.Preview, itemWidth-2)))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, m.theme.SidebarPreview.Render("No conversations"))
	}

	content := strings.Join(lines, "\n")
	return m.theme.Sidebar.Width(sidebarWidth).Height(height).Render(content)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderMessages renders the active conversation for the viewport.
func (m Model) renderMessages() string {
	if !m.hasActive || len(m.conversation.Messages) == 0 {
		return m.renderWelcome()
	}

	parts := make([]string, 0, len(m.conversation.Messages))
	for _, msg := range m.conversation.Messages {
		parts = append(parts, m.renderMessage(msg))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg model.Message) string {
	if msg.UploadCard != nil {
		return m.renderUploadCard(*msg.UploadCard)
	}

	switch msg.Role {
	case model.RoleUser:
		label := m.theme.UserLabel.Render(msg.Role.DisplayName())
		return label + "\n" + m.theme.UserText.Render(msg.Content)

	case model.RoleAssistant:
		label := m.theme.AssistantLabel.Render(msg.Role.DisplayName())
		switch msg.Feedback {
		case model.FeedbackLiked:
			label += m.theme.Citation.Render(" ▲")
		case model.FeedbackDisliked:
			label += m.theme.Citation.Render(" ▼")
		}
		if msg.Error {
			return label + "\n" + m.theme.ErrorText.Render(msg.Content)
		}

		content := msg.Content
		if msg.IsStreaming {
			if content == "" {
				return label + "\n" + m.theme.Spinner.Render(m.spinner.View()+" thinking...")
			}
			return label + "\n" + m.theme.AssistantText.Render(content) + m.theme.StreamCursor.Render("▌")
		}

		if m.cfg != nil && m.cfg.UI.RenderMarkdown {
			content = renderMarkdown(content)
		} else {
			content = m.theme.AssistantText.Render(content)
		}
		return label + "\n" + content + m.renderCitations(msg)

	default:
		return m.theme.SystemText.Render(msg.Content)
	}
}

// renderCitations appends retrieved sources below an answer when enabled.
func (m Model) renderCitations(msg model.Message) string {
	if m.cfg == nil || len(msg.Citations) == 0 {
		return ""
	}
	if !m.store.State().Settings.Citations {
		return ""
	}

	var b strings.Builder
	for _, c := range msg.Citations {
		fmt.Fprintf(&b, "\n  [%d] %s", c.Index, c.Source)
	}
	return m.theme.Citation.Render(b.String())
}

func (m Model) renderUploadCard(card model.UploadCard) string {
	icon, label := uploadStatusLabel(card.Status)

	var style lipgloss.Style
	switch card.Status {
	case model.UploadDone:
		style = m.theme.UploadDone
	case model.UploadFailed:
		style = m.theme.UploadFailed
	default:
		style = m.theme.UploadPending
	}

	line := style.Render(icon+" "+label) + "  " + card.Filename
	if card.Status == model.UploadFailed && card.Error != "" {
		line += "\n" + m.theme.ErrorText.Render(card.Error)
	}
	return m.theme.UploadCard.Render(line)
}

func (m Model) renderWelcome() string {
	lines := []string{
		"",
		m.theme.HeaderTitle.Render("  chattai"),
		m.theme.SidebarPreview.Render("  Chat with your documents."),
		"",
		m.theme.SidebarPreview.Render("  Type a question to get started,"),
		m.theme.SidebarPreview.Render("  /upload <path> to index a document,"),
		m.theme.SidebarPreview.Render("  or /help for all commands."),
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m Model) renderInput() string {
	separator := m.theme.InputBorder.Render(strings.Repeat("─", max(m.width, 1)))
	return separator + "\n" + m.input.View()
}

func (m Model) renderStatusBar() string {
	settings := m.store.State().Settings

	var parts []string
	parts = append(parts, m.theme.StatusKey.Render("mode ")+m.theme.StatusValue.Render(string(settings.Mode)))
	parts = append(parts, m.theme.StatusKey.Render("top-k ")+m.theme.StatusValue.Render(fmt.Sprintf("%d", settings.TopK)))
	if settings.Citations {
		parts = append(parts, m.theme.StatusValue.Render("citations"))
	}
	if m.streaming {
		parts = append(parts, m.theme.Spinner.Render(m.spinner.View()+" streaming"))
	}
	if m.statusMsg != "" {
		parts = append(parts, m.theme.StatusMessage.Render(m.statusMsg))
	}

	left := strings.Join(parts, m.theme.StatusKey.Render(" │ "))
	hint := m.theme.StatusKey.Render("C-h help")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(hint) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + hint)
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func (m Model) renderHelpOverlay() string {
	var b strings.Builder
	b.WriteString(m.theme.HelpTitle.Render("Keyboard shortcuts"))
	b.WriteString("\n\n")
	for _, group := range m.keyMap.FullHelp() {
		for _, binding := range group {
			help := binding.Help()
			fmt.Fprintf(&b, "%s  %s\n",
				m.theme.HelpKey.Render(fmt.Sprintf("%-10s", help.Key)),
				m.theme.HelpDesc.Render(help.Desc))
		}
		b.WriteByte('\n')
	}
	b.WriteString(m.theme.HelpDesc.Render("Press any key to close."))

	box := m.theme.HelpBox.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
