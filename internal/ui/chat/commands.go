// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chattaio/chattai-tui/internal/export"
	"github.com/chattaio/chattai-tui/internal/model"
	"github.com/chattaio/chattai-tui/internal/store"
)

// helpText lists every slash command.
const helpText = `Commands:
  /new              start a new conversation
  /clear            clear messages in the current conversation
  /delete           delete the current conversation
  /mode <m>         set query mode (hybrid, local, global, naive)
  /topk <n>         set number of retrieved chunks
  /citations        toggle citation display
  /like             rate the last answer up (again to clear)
  /dislike          rate the last answer down (again to clear)
  /prompt <text>    set the system prompt (empty to clear)
  /upload <path>    upload a document for indexing
  /search <text>    filter the conversation list (empty to reset)
  /export [format]  save the transcript (markdown, json, text)
  /stats            show backend workspace statistics
  /docs             list indexed documents
  /rm <id>          delete an indexed document
  /help             show this help
  /quit             exit`

// parseCommand splits a slash command into its name and argument remainder.
func parseCommand(value string) (name, args string) {
	value = strings.TrimPrefix(value, "/")
	name, args, _ = strings.Cut(value, " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

// handleCommand executes a slash command typed into the input.
func (m Model) handleCommand(value string) (tea.Model, tea.Cmd) {
	name, args := parseCommand(value)

	switch name {
	case "new":
		m.store.Dispatch(store.NewConversation{})
		m.refresh()
		return m, nil

	case "clear":
		if m.hasActive {
			m.store.Dispatch(store.ClearActive{})
			m.refresh()
		}
		return m, nil

	case "delete":
		if m.hasActive {
			m.store.Dispatch(store.DeleteConversation{ID: m.conversation.ID})
			m.refresh()
			return m.setStatus("Conversation deleted")
		}
		return m, nil

	case "mode":
		mode := model.QueryMode(args)
		if !mode.Valid() {
			return m.setStatus("Usage: /mode hybrid|local|global|naive")
		}
		m.store.Dispatch(store.UpdateSettings{
			Patch: model.SettingsPatch{Mode: model.Ptr(mode)},
		})
		return m.setStatus("Query mode: " + args)

	case "topk":
		n, err := strconv.Atoi(args)
		if err != nil || n < 1 {
			return m.setStatus("Usage: /topk <positive number>")
		}
		m.store.Dispatch(store.UpdateSettings{
			Patch: model.SettingsPatch{TopK: model.Ptr(n)},
		})
		return m.setStatus("Top-K: " + args)

	case "citations":
		current := m.store.State().Settings.Citations
		m.store.Dispatch(store.UpdateSettings{
			Patch: model.SettingsPatch{Citations: model.Ptr(!current)},
		})
		if current {
			return m.setStatus("Citations off")
		}
		return m.setStatus("Citations on")

	case "like":
		return m.rateLastAnswer(model.FeedbackLiked)

	case "dislike":
		return m.rateLastAnswer(model.FeedbackDisliked)

	case "prompt":
		m.store.Dispatch(store.UpdateSettings{
			Patch: model.SettingsPatch{SystemPrompt: model.Ptr(args)},
		})
		if args == "" {
			return m.setStatus("System prompt cleared")
		}
		return m.setStatus("System prompt set")

	case "upload":
		if args == "" {
			return m.setStatus("Usage: /upload <path>")
		}
		if !m.hasActive {
			m.store.Dispatch(store.NewConversation{})
			m.refresh()
		}
		m.tracker.Upload(args)
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case "search":
		m.searchFilter = args
		m.refresh()
		if args == "" {
			return m.setStatus("Search cleared")
		}
		return m.setStatus("Filter: " + args)

	case "export":
		if !m.hasActive || len(m.conversation.Messages) == 0 {
			return m.setStatus("Nothing to export")
		}
		format := args
		if format == "" {
			format = "markdown"
		}
		exporter, err := export.ForFormat(format, nil)
		if err != nil {
			return m.setStatus("Usage: /export markdown|json|text")
		}
		path, err := export.ExportToFile(m.conversation, exporter, nil)
		if err != nil {
			return m.setStatus("Export failed: " + err.Error())
		}
		return m.setStatus("Exported to " + path)

	case "stats":
		return m, fetchStatsCmd(m.client)

	case "docs":
		return m, fetchDocsCmd(m.client)

	case "rm":
		if args == "" {
			return m.setStatus("Usage: /rm <doc id>")
		}
		return m, deleteDocCmd(m.client, args)

	case "help":
		m.appendInfoMessage(helpText)
		m.viewport.GotoBottom()
		return m, nil

	case "quit", "exit":
		m.controller.Stop()
		return m, tea.Quit

	default:
		return m.setStatus("Unknown command: /" + name)
	}
}
