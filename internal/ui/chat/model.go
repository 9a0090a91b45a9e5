// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chattaio/chattai-tui/internal/backend"
	"github.com/chattaio/chattai-tui/internal/config"
	"github.com/chattaio/chattai-tui/internal/ingest"
	"github.com/chattaio/chattai-tui/internal/model"
	"github.com/chattaio/chattai-tui/internal/session"
	"github.com/chattaio/chattai-tui/internal/store"
	"github.com/chattaio/chattai-tui/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	cfg   *config.Config
	theme *styles.Theme

	store      *store.Store
	controller *session.Controller
	tracker    *ingest.Tracker
	client     *backend.Client

	width  int
	height int

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keyMap   KeyMap

	// Cached view of the store, refreshed on every store change
	conversation model.Conversation
	hasActive    bool
	metas        []store.ConversationMeta

	streaming   bool
	healthy     bool
	showSidebar bool
	showHelp    bool

	statusMsg    string
	statusID     int
	searchFilter string
}

// New creates the chat model. The controller and tracker must share the
// given store.
func New(cfg *config.Config, theme *styles.Theme, st *store.Store, ctrl *session.Controller, tracker *ingest.Tracker, client *backend.Client) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /help for commands..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	m := Model{
		cfg:         cfg,
		theme:       theme,
		store:       st,
		controller:  ctrl,
		tracker:     tracker,
		client:      client,
		viewport:    vp,
		input:       ti,
		spinner:     sp,
		keyMap:      DefaultKeyMap(),
		showSidebar: true,
	}
	m.refresh()
	return m
}

// Init starts the cursor blink and the first backend health probe.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, checkHealthCmd(m.client))
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionEventMsg:
		return m.handleSessionEvent(msg.Event)

	case IngestEventMsg:
		return m.handleIngestEvent(msg.Event)

	case HealthMsg:
		m.healthy = msg.Healthy
		return m, healthTickCmd(m.client)

	case StatsMsg:
		return m.handleStats(msg)

	case DocsMsg:
		return m.handleDocs(msg)

	case DocDeletedMsg:
		if msg.Err != nil {
			return m.setStatus("Delete failed: " + msg.Err.Error())
		}
		return m.setStatus("Deleted document " + msg.DocID)

	case StatusExpireMsg:
		if msg.ID == m.statusID {
			m.statusMsg = ""
		}
		return m, nil

	case spinner.TickMsg:
		if m.streaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	default:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
}

// View renders the chat view.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// header + input area + status bar
	const reservedHeight = 4
	vpHeight := m.height - reservedHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.contentWidth()
	m.viewport.Height = vpHeight

	inputWidth := m.width - 6
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	if m.theme != nil {
		m.theme.SetSize(m.width, m.height)
	}
	m.refresh()
	return m, nil
}

// handleSessionEvent refreshes the transcript as the answer streams in.
func (m Model) handleSessionEvent(event session.Event) (tea.Model, tea.Cmd) {
	switch event.Kind {
	case session.EventToken:
		m.streaming = true
		m.refresh()
		m.viewport.GotoBottom()
		return m, m.spinner.Tick

	case session.EventCompleted:
		m.streaming = false
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case session.EventAborted:
		m.streaming = false
		m.refresh()
		return m.setStatus("Stopped")

	case session.EventFailed:
		m.streaming = false
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil
	}
	return m, nil
}

// handleIngestEvent refreshes upload cards as the tracker advances them.
func (m Model) handleIngestEvent(event ingest.Event) (tea.Model, tea.Cmd) {
	m.refresh()
	m.viewport.GotoBottom()
	switch event.Kind {
	case ingest.EventQueued:
		return m.setStatus("Uploading " + event.Filename + "...")
	case ingest.EventProcessing:
		return m.setStatus("Indexing " + event.Filename + "...")
	case ingest.EventIndexed:
		return m.setStatus("Indexed " + event.Filename)
	case ingest.EventFailed:
		return m.setStatus("Upload failed: " + event.Filename)
	}
	return m, nil
}

func (m Model) handleStats(msg StatsMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m.setStatus("Stats failed: " + msg.Err.Error())
	}
	m.appendInfoMessage(formatStats(msg.Stats))
	m.refresh()
	m.viewport.GotoBottom()
	return m, nil
}

func (m Model) handleDocs(msg DocsMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m.setStatus("Docs failed: " + msg.Err.Error())
	}
	m.appendInfoMessage(formatDocs(msg.Docs))
	m.refresh()
	m.viewport.GotoBottom()
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()

	// Emergency exit always works
	if keyStr == "ctrl+q" {
		m.controller.Stop()
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.streaming {
		switch keyStr {
		case "esc", "ctrl+c":
			m.controller.Stop()
			return m, nil
		}
		return m.handleNavigationKeys(msg)
	}

	switch keyStr {
	case "ctrl+h":
		m.showHelp = true
		return m, nil

	case "ctrl+n":
		m.store.Dispatch(store.NewConversation{})
		m.refresh()
		return m, nil

	case "alt+down":
		return m.selectAdjacent(1)

	case "alt+up":
		return m.selectAdjacent(-1)

	case "ctrl+x":
		if m.hasActive {
			m.store.Dispatch(store.DeleteConversation{ID: m.conversation.ID})
			m.refresh()
			return m.setStatus("Conversation deleted")
		}
		return m, nil

	case "ctrl+b":
		m.showSidebar = !m.showSidebar
		m.viewport.Width = m.contentWidth()
		m.refresh()
		return m, nil

	case "ctrl+l":
		if m.hasActive {
			m.store.Dispatch(store.ClearActive{})
			m.refresh()
		}
		return m, nil

	case "ctrl+r":
		return m.cycleQueryMode()

	case "up", "down", "pgup", "pgdown", "home", "end":
		return m.handleNavigationKeys(msg)

	case "enter":
		if strings.TrimSpace(m.input.Value()) != "" {
			return m.submitInput()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleNavigationKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "pgup":
		m.viewport.HalfViewUp()
	case "pgdown":
		m.viewport.HalfViewDown()
	case "up":
		m.viewport.LineUp(1)
	case "down":
		m.viewport.LineDown(1)
	case "home":
		m.viewport.GotoTop()
	case "end":
		m.viewport.GotoBottom()
	}
	return m, nil
}

// submitInput sends the typed question or runs a slash command.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	if strings.HasPrefix(value, "/") {
		return m.handleCommand(value)
	}

	if err := m.controller.Send(value); err != nil {
		return m.setStatus(err.Error())
	}
	m.streaming = true
	m.refresh()
	m.viewport.GotoBottom()
	return m, m.spinner.Tick
}

// selectAdjacent moves the active conversation up or down the sidebar list.
func (m Model) selectAdjacent(delta int) (tea.Model, tea.Cmd) {
	if len(m.metas) == 0 {
		return m, nil
	}
	current := 0
	for i, meta := range m.metas {
		if meta.Active {
			current = i
			break
		}
	}
	next := current + delta
	if next < 0 || next >= len(m.metas) {
		return m, nil
	}
	m.store.Dispatch(store.SelectConversation{ID: m.metas[next].ID})
	m.refresh()
	m.viewport.GotoBottom()
	return m, nil
}

// rateLastAnswer toggles feedback on the most recent completed answer.
// Rating with the feedback it already carries clears it.
func (m Model) rateLastAnswer(fb model.Feedback) (tea.Model, tea.Cmd) {
	if !m.hasActive {
		return m.setStatus("No answer to rate")
	}
	for i := len(m.conversation.Messages) - 1; i >= 0; i-- {
		msg := m.conversation.Messages[i]
		if msg.Role != model.RoleAssistant || msg.IsStreaming || msg.Error || msg.UploadCard != nil {
			continue
		}
		next := fb
		if msg.Feedback == fb {
			next = model.FeedbackNone
		}
		m.store.Dispatch(store.UpdateMessage{
			ID:    msg.ID,
			Patch: model.MessagePatch{Feedback: model.Ptr(next)},
		})
		m.refresh()
		if next == model.FeedbackNone {
			return m.setStatus("Feedback cleared")
		}
		return m.setStatus("Feedback: " + string(next))
	}
	return m.setStatus("No answer to rate")
}

// cycleQueryMode advances mode through hybrid -> local -> global -> naive.
func (m Model) cycleQueryMode() (tea.Model, tea.Cmd) {
	modes := model.QueryModes()
	current := m.store.State().Settings.Mode
	next := modes[0]
	for i, mode := range modes {
		if mode == current {
			next = modes[(i+1)%len(modes)]
			break
		}
	}
	m.store.Dispatch(store.UpdateSettings{
		Patch: model.SettingsPatch{Mode: model.Ptr(next)},
	})
	return m.setStatus("Query mode: " + string(next))
}

// =============================================================================
// STORE SYNC
// =============================================================================

// refresh reloads the cached store view and re-renders the transcript.
func (m *Model) refresh() {
	m.conversation, m.hasActive = m.store.ActiveConversation()
	if m.searchFilter != "" {
		m.metas = m.store.Search(m.searchFilter)
	} else {
		m.metas = m.store.Metas()
	}
	m.viewport.SetContent(m.renderMessages())
}

// appendInfoMessage adds a system message to the active conversation so
// command output becomes part of the transcript.
func (m *Model) appendInfoMessage(content string) {
	if !m.hasActive {
		m.store.Dispatch(store.NewConversation{})
	}
	m.store.Dispatch(store.AppendMessage{Message: model.NewSystemMessage(content)})
	m.refresh()
}

// setStatus shows a transient message in the status bar.
func (m Model) setStatus(text string) (tea.Model, tea.Cmd) {
	m.statusMsg = text
	m.statusID++
	return m, expireStatusCmd(m.statusID)
}

// contentWidth is the transcript width after the sidebar is accounted for.
func (m Model) contentWidth() int {
	w := m.width
	if m.showSidebar {
		w -= sidebarWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}
