// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/chattaio/chattai-tui/internal/backend"
	"github.com/chattaio/chattai-tui/internal/model"
	"github.com/chattaio/chattai-tui/internal/store"
)

// harness bundles a controller with its store and event stream.
type harness struct {
	store      *store.Store
	controller *Controller
	events     chan Event
}

func newHarness(t *testing.T, serverURL string) *harness {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	events := make(chan Event, 64)
	h := &harness{store: st, events: events}
	h.controller = NewController(st, backend.NewClient(serverURL), func(e Event) {
		events <- e
	})
	return h
}

// waitTerminal waits for a completed/aborted/failed event.
func (h *harness) waitTerminal(t *testing.T) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-h.events:
			if e.Kind != EventToken {
				return e
			}
		case <-deadline:
			t.Fatal("no terminal event received")
		}
	}
}

// assistantMessage returns the last assistant message of the active conversation.
func (h *harness) assistantMessage(t *testing.T) model.Message {
	t.Helper()
	conv, ok := h.store.ActiveConversation()
	if !ok {
		t.Fatal("expected active conversation")
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Role == model.RoleAssistant {
			return conv.Messages[i]
		}
	}
	t.Fatal("no assistant message found")
	return model.Message{}
}

func tokenServer(t *testing.T, tokens ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, tok := range tokens {
			fmt.Fprintf(w, "data: {\"token\": %q}\n\n", tok)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

// =============================================================================
// STREAMING EXCHANGE TESTS
// =============================================================================

func TestSendStreamsAnswer(t *testing.T) {
	server := tokenServer(t, "Hel", "lo")
	defer server.Close()

	h := newHarness(t, server.URL)
	h.store.Dispatch(store.NewConversation{})

	if err := h.controller.Send("what is up?"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	event := h.waitTerminal(t)
	if event.Kind != EventCompleted {
		t.Fatalf("expected EventCompleted, got %v (err=%v)", event.Kind, event.Err)
	}

	msg := h.assistantMessage(t)
	if msg.Content != "Hello" {
		t.Errorf("expected 'Hello', got %q", msg.Content)
	}
	if msg.IsStreaming {
		t.Error("expected streaming flag cleared")
	}
	if msg.Error {
		t.Error("expected no error flag")
	}

	// User message appended and conversation titled
	conv, _ := h.store.ActiveConversation()
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Content != "what is up?" {
		t.Errorf("unexpected user message: %q", conv.Messages[0].Content)
	}
	if conv.Title != "what is up?" {
		t.Errorf("unexpected title: %q", conv.Title)
	}
}

func TestSendCreatesConversationWhenNoneActive(t *testing.T) {
	server := tokenServer(t, "ok")
	defer server.Close()

	h := newHarness(t, server.URL)
	if err := h.controller.Send("first contact"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	h.waitTerminal(t)

	if _, ok := h.store.ActiveConversation(); !ok {
		t.Error("expected a conversation to be created")
	}
}

func TestSendBlankQuestionIgnored(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1")
	if err := h.controller.Send("   "); err != nil {
		t.Fatalf("blank question should be ignored, got %v", err)
	}
	if h.controller.Busy() {
		t.Error("controller should stay idle for blank question")
	}
	if _, ok := h.store.ActiveConversation(); ok {
		t.Error("blank question should not create a conversation")
	}
}

func TestSendWhileBusy(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	h := newHarness(t, server.URL)
	if err := h.controller.Send("slow question"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Wait until the controller reports busy
	deadline := time.Now().Add(2 * time.Second)
	for !h.controller.Busy() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := h.controller.Send("second question"); err != ErrBusy {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	h.controller.Stop()
}

func TestSendRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Too many requests"})
	}))
	defer server.Close()

	h := newHarness(t, server.URL)
	h.store.Dispatch(store.NewConversation{})

	if err := h.controller.Send("rapid fire"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	event := h.waitTerminal(t)
	if event.Kind != EventFailed {
		t.Fatalf("expected EventFailed, got %v", event.Kind)
	}
	if event.Notice != RateLimitNotice {
		t.Errorf("unexpected notice: %q", event.Notice)
	}

	msg := h.assistantMessage(t)
	if msg.Content != RateLimitNotice {
		t.Errorf("expected rate limit notice, got %q", msg.Content)
	}
	if !msg.Error {
		t.Error("expected error flag set")
	}
	if msg.IsStreaming {
		t.Error("expected streaming flag cleared")
	}
}

func TestSendServerErrorNotice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "engine exploded"})
	}))
	defer server.Close()

	h := newHarness(t, server.URL)
	h.store.Dispatch(store.NewConversation{})

	if err := h.controller.Send("boom"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	event := h.waitTerminal(t)
	if event.Kind != EventFailed {
		t.Fatalf("expected EventFailed, got %v", event.Kind)
	}

	msg := h.assistantMessage(t)
	if msg.Content != "❌ engine exploded" {
		t.Errorf("unexpected notice: %q", msg.Content)
	}
}

func TestStopPreservesPartialAnswer(t *testing.T) {
	firstSent := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"token\": \"partial answer\"}\n\n")
		flusher.Flush()
		close(firstSent)
		<-release
	}))
	defer server.Close()
	defer close(release)

	h := newHarness(t, server.URL)
	h.store.Dispatch(store.NewConversation{})

	if err := h.controller.Send("long question"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	<-firstSent
	// Let the token make it through the store before stopping
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msg := h.assistantMessage(t); msg.Content == "partial answer" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.controller.Stop()

	event := h.waitTerminal(t)
	if event.Kind != EventAborted {
		t.Fatalf("expected EventAborted, got %v (err=%v)", event.Kind, event.Err)
	}

	msg := h.assistantMessage(t)
	if msg.Content != "partial answer" {
		t.Errorf("abort should preserve partial content, got %q", msg.Content)
	}
	if msg.IsStreaming {
		t.Error("expected streaming flag cleared")
	}
	if msg.Error {
		t.Error("abort is not an error")
	}
	if h.controller.Busy() {
		t.Error("controller should return to idle after abort")
	}
}

func TestSendAppliesSystemPrompt(t *testing.T) {
	var gotQuestion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req backend.QueryRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotQuestion = req.Question
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	h := newHarness(t, server.URL)
	h.store.Dispatch(store.NewConversation{})
	h.store.Dispatch(store.UpdateSettings{
		Patch: model.SettingsPatch{SystemPrompt: model.Ptr("Answer briefly.")},
	})

	if err := h.controller.Send("what is RAG?"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	h.waitTerminal(t)

	want := "Answer briefly.\n\nwhat is RAG?"
	if gotQuestion != want {
		t.Errorf("expected composed question %q, got %q", want, gotQuestion)
	}

	// The stored user message keeps the raw question
	conv, _ := h.store.ActiveConversation()
	if conv.Messages[0].Content != "what is RAG?" {
		t.Errorf("stored question should be raw, got %q", conv.Messages[0].Content)
	}
}

func TestSendUsesSettings(t *testing.T) {
	var got backend.QueryRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	h := newHarness(t, server.URL)
	h.store.Dispatch(store.NewConversation{})
	h.store.Dispatch(store.UpdateSettings{
		Patch: model.SettingsPatch{
			Mode: model.Ptr(model.ModeNaive),
			TopK: model.Ptr(3),
		},
	})

	h.controller.Send("q")
	h.waitTerminal(t)

	if got.Mode != "naive" || got.TopK != 3 {
		t.Errorf("expected settings applied, got mode=%s top_k=%d", got.Mode, got.TopK)
	}
}
