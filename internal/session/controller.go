// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives a streaming question/answer exchange against the
// backend and records its progress in the conversation store.
//
// The controller owns the lifecycle of one in-flight query at a time:
// appending the user message and assistant placeholder, patching the
// placeholder as answer fragments arrive, and finalizing it on completion,
// abort, or failure. UI layers observe progress through a notify callback
// that is invoked from the streaming goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/chattaio/chattai-tui/internal/backend"
	"github.com/chattaio/chattai-tui/internal/model"
	"github.com/chattaio/chattai-tui/internal/store"
)

// User-facing notices for failed queries.
const (
	// RateLimitNotice replaces the assistant answer when the backend
	// rejects a query with 429.
	RateLimitNotice = "⏱ Rate limit hit. Please wait and try again."
)

// ErrBusy indicates a query is already in flight.
var ErrBusy = errors.New("a query is already in flight")

// =============================================================================
// PHASES AND EVENTS
// =============================================================================

// Phase is the controller's lifecycle state. Terminal outcomes return the
// controller to PhaseIdle.
type Phase int

const (
	// PhaseIdle means no query is in flight.
	PhaseIdle Phase = iota
	// PhaseSending means the request has been issued but no fragment has
	// arrived yet.
	PhaseSending
	// PhaseStreaming means answer fragments are arriving.
	PhaseStreaming
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// EventKind classifies controller events.
type EventKind int

const (
	// EventToken signals that the assistant message grew by a fragment.
	EventToken EventKind = iota
	// EventCompleted signals that the answer finished normally.
	EventCompleted
	// EventAborted signals that the user stopped the stream; partial
	// content is preserved.
	EventAborted
	// EventFailed signals that the query failed; the assistant message
	// carries the error notice.
	EventFailed
)

// Event describes a change to the in-flight exchange. MessageID is the
// assistant message being updated; Notice is set for failures.
type Event struct {
	Kind      EventKind
	MessageID string
	Notice    string
	Err       error
}

// NotifyFunc receives controller events. It is called from the streaming
// goroutine; implementations must hand off to their own event loop.
type NotifyFunc func(Event)

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller coordinates streaming queries between the store and backend.
type Controller struct {
	store  *store.Store
	client *backend.Client
	notify NotifyFunc

	mu     sync.Mutex
	phase  Phase
	cancel context.CancelFunc
}

// NewController creates a controller. notify may be nil when no observer
// is interested in progress events.
func NewController(st *store.Store, client *backend.Client, notify NotifyFunc) *Controller {
	if notify == nil {
		notify = func(Event) {}
	}
	return &Controller{
		store:  st,
		client: client,
		notify: notify,
	}
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Busy reports whether a query is in flight.
func (c *Controller) Busy() bool {
	return c.Phase() != PhaseIdle
}

// Send starts a streaming exchange for the given question. It appends the
// user message and an assistant placeholder, then streams the answer into
// the placeholder from a background goroutine.
//
// Returns ErrBusy when a query is already in flight; blank questions are
// ignored. When no conversation is active, one is created.
func (c *Controller) Send(question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}

	c.mu.Lock()
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.phase = PhaseSending
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	state := c.store.State()
	if _, ok := state.ActiveConversation(); !ok {
		if _, err := c.store.Dispatch(store.NewConversation{}); err != nil {
			log.Printf("failed to persist new conversation: %v", err)
		}
	}

	userMsg := model.NewUserMessage(question)
	if _, err := c.store.Dispatch(store.AppendMessage{Message: userMsg}); err != nil {
		log.Printf("failed to persist user message: %v", err)
	}

	placeholder := model.NewAssistantPlaceholder()
	if _, err := c.store.Dispatch(store.AppendMessage{Message: placeholder}); err != nil {
		log.Printf("failed to persist assistant placeholder: %v", err)
	}

	settings := c.store.State().Settings
	go c.stream(ctx, cancel, placeholder.ID, question, settings)
	return nil
}

// Stop aborts the in-flight stream, preserving any partial answer. It is a
// no-op when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// stream runs the exchange to completion on a background goroutine.
func (c *Controller) stream(ctx context.Context, cancel context.CancelFunc, messageID, question string, settings model.ChatSettings) {
	defer cancel()
	defer c.setIdle()

	query := backend.QueryRequest{
		Question: composeQuestion(settings.SystemPrompt, question),
		Mode:     string(settings.Mode),
		TopK:     settings.TopK,
	}

	fragments, err := c.client.StreamQuery(ctx, query)
	if err != nil {
		c.fail(messageID, err)
		return
	}

	var buffer strings.Builder
	for fragment := range fragments {
		if fragment.Err != nil {
			c.finish(messageID, fragment.Err)
			return
		}

		c.setPhase(PhaseStreaming)
		buffer.WriteString(fragment.Token)
		c.patch(messageID, model.MessagePatch{Content: model.Ptr(buffer.String())})
		c.notify(Event{Kind: EventToken, MessageID: messageID})
	}

	c.finish(messageID, nil)
}

// finish finalizes the assistant message after the stream ended. An abort
// keeps the partial answer; any other error replaces it with a notice.
func (c *Controller) finish(messageID string, err error) {
	if err == nil {
		c.patch(messageID, model.MessagePatch{IsStreaming: model.Ptr(false)})
		c.notify(Event{Kind: EventCompleted, MessageID: messageID})
		return
	}
	c.fail(messageID, err)
}

// fail replaces the assistant message content with an error notice.
func (c *Controller) fail(messageID string, err error) {
	if errors.Is(err, context.Canceled) {
		c.patch(messageID, model.MessagePatch{IsStreaming: model.Ptr(false)})
		c.notify(Event{Kind: EventAborted, MessageID: messageID})
		return
	}

	notice := noticeFor(err)
	c.patch(messageID, model.MessagePatch{
		Content:     model.Ptr(notice),
		IsStreaming: model.Ptr(false),
		Error:       model.Ptr(true),
	})
	c.notify(Event{Kind: EventFailed, MessageID: messageID, Notice: notice, Err: err})
}

// patch applies a message patch through the store, logging persist failures.
func (c *Controller) patch(messageID string, p model.MessagePatch) {
	if _, err := c.store.Dispatch(store.UpdateMessage{ID: messageID, Patch: p}); err != nil {
		log.Printf("failed to persist message update: %v", err)
	}
}

// setPhase transitions to the given phase.
func (c *Controller) setPhase(phase Phase) {
	c.mu.Lock()
	c.phase = phase
	c.mu.Unlock()
}

// setIdle returns the controller to idle and clears the cancel handle.
func (c *Controller) setIdle() {
	c.mu.Lock()
	c.phase = PhaseIdle
	c.cancel = nil
	c.mu.Unlock()
}

// noticeFor maps a query error to its user-facing notice.
func noticeFor(err error) string {
	if errors.Is(err, backend.ErrRateLimited) {
		return RateLimitNotice
	}

	var backendErr *backend.BackendError
	if errors.As(err, &backendErr) {
		return fmt.Sprintf("❌ %s", backendErr.UserDetail())
	}

	return fmt.Sprintf("❌ %s", err.Error())
}

// composeQuestion prepends the system prompt to the question when set.
func composeQuestion(systemPrompt, question string) string {
	systemPrompt = strings.TrimSpace(systemPrompt)
	if systemPrompt == "" {
		return question
	}
	return systemPrompt + "\n\n" + question
}
