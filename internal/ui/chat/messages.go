// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea message types used by the chat
// interface. Session and ingest events originate in background goroutines
// and are injected into the program with Program.Send.
package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chattaio/chattai-tui/internal/backend"
	"github.com/chattaio/chattai-tui/internal/ingest"
	"github.com/chattaio/chattai-tui/internal/session"
)

// =============================================================================
// SESSION AND INGEST MESSAGES
// =============================================================================

// SessionEventMsg wraps a streaming session event.
type SessionEventMsg struct {
	Event session.Event
}

// IngestEventMsg wraps an upload tracker event.
type IngestEventMsg struct {
	Event ingest.Event
}

// =============================================================================
// BACKEND MESSAGES
// =============================================================================

// HealthMsg reports whether the backend answered its health probe.
type HealthMsg struct {
	Healthy bool
}

// StatsMsg delivers workspace statistics from the backend.
type StatsMsg struct {
	Stats *backend.StatsResponse
	Err   error
}

// DocsMsg delivers the indexed document listing.
type DocsMsg struct {
	Docs map[string]string
	Err  error
}

// DocDeletedMsg confirms a document deletion.
type DocDeletedMsg struct {
	DocID string
	Err   error
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// StatusExpireMsg clears a transient status bar message.
type StatusExpireMsg struct {
	ID int
}

// healthInterval is how often the backend is probed while the UI runs.
const healthInterval = 15 * time.Second

// =============================================================================
// COMMANDS
// =============================================================================

// checkHealthCmd probes the backend once.
func checkHealthCmd(client *backend.Client) tea.Cmd {
	return func() tea.Msg {
		return HealthMsg{Healthy: client.CheckHealth(context.Background())}
	}
}

// healthTickCmd schedules the next periodic health probe.
func healthTickCmd(client *backend.Client) tea.Cmd {
	return tea.Tick(healthInterval, func(time.Time) tea.Msg {
		return HealthMsg{Healthy: client.CheckHealth(context.Background())}
	})
}

// fetchStatsCmd fetches workspace statistics.
func fetchStatsCmd(client *backend.Client) tea.Cmd {
	return func() tea.Msg {
		stats, err := client.Stats(context.Background())
		return StatsMsg{Stats: stats, Err: err}
	}
}

// fetchDocsCmd fetches the indexed document listing.
func fetchDocsCmd(client *backend.Client) tea.Cmd {
	return func() tea.Msg {
		docs, err := client.ListDocuments(context.Background())
		return DocsMsg{Docs: docs, Err: err}
	}
}

// deleteDocCmd deletes an indexed document by ID.
func deleteDocCmd(client *backend.Client, docID string) tea.Cmd {
	return func() tea.Msg {
		_, err := client.DeleteDocument(context.Background(), docID)
		return DocDeletedMsg{DocID: docID, Err: err}
	}
}

// expireStatusCmd clears the status message after a short delay.
func expireStatusCmd(id int) tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return StatusExpireMsg{ID: id}
	})
}
