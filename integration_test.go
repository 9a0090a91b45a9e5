// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chattaio/chattai-tui/internal/backend"
	"github.com/chattaio/chattai-tui/internal/ingest"
	"github.com/chattaio/chattai-tui/internal/model"
	"github.com/chattaio/chattai-tui/internal/session"
	"github.com/chattaio/chattai-tui/internal/store"
)

// fakeBackend serves the query and ingestion endpoints the way the real
// engine does: token frames over SSE, then job polling for uploads.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/query", func(w http.ResponseWriter, r *http.Request) {
		var req backend.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, token := range []string{"The answer ", "is 42."} {
			fmt.Fprintf(w, "data: {\"token\": %q}\n\n", token)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	})

	mux.HandleFunc("POST /api/v1/ingest/file", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(backend.IngestResponse{
			JobID:  "job-42",
			Status: "queued",
		})
	})

	mux.HandleFunc("GET /api/v1/ingest/jobs/job-42", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(backend.JobStatusResponse{
			JobID:  "job-42",
			Status: "completed",
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestQueryEndToEnd(t *testing.T) {
	srv := fakeBackend(t)

	statePath := filepath.Join(t.TempDir(), "state.json")
	st, err := store.Open(statePath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	events := make(chan session.Event, 64)
	ctrl := session.NewController(st, backend.NewClient(srv.URL), func(ev session.Event) {
		events <- ev
	})

	if err := ctrl.Send("what is the answer?"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		var ev session.Event
		select {
		case ev = <-events:
		case <-deadline:
			t.Fatal("timed out waiting for completion")
		}
		if ev.Kind == session.EventToken {
			continue
		}
		if ev.Kind != session.EventCompleted {
			t.Fatalf("event kind = %v, want EventCompleted", ev.Kind)
		}
		break
	}

	conv, ok := st.ActiveConversation()
	if !ok {
		t.Fatal("no active conversation")
	}
	if conv.Title != "what is the answer?" {
		t.Errorf("Title = %q", conv.Title)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(conv.Messages))
	}
	answer := conv.Messages[1]
	if answer.Role != model.RoleAssistant || answer.Content != "The answer is 42." {
		t.Errorf("assistant message = %+v", answer)
	}
	if answer.IsStreaming {
		t.Error("assistant message still marked streaming")
	}

	// The transcript must survive a restart.
	reopened, err := store.Open(statePath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	conv2, ok := reopened.ActiveConversation()
	if !ok || len(conv2.Messages) != 2 {
		t.Fatalf("reopened conversation = %+v", conv2)
	}
}

func TestUploadEndToEnd(t *testing.T) {
	srv := fakeBackend(t)

	st, err := store.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := st.Dispatch(store.NewConversation{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	docPath := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(docPath, []byte("contents"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	events := make(chan ingest.Event, 16)
	tracker := ingest.NewTracker(st, backend.NewClient(srv.URL), func(ev ingest.Event) {
		events <- ev
	}).WithPollInterval(10 * time.Millisecond)
	t.Cleanup(tracker.Close)

	tracker.Upload(docPath)

	deadline := time.After(5 * time.Second)
	for {
		var ev ingest.Event
		select {
		case ev = <-events:
		case <-deadline:
			t.Fatal("timed out waiting for indexing")
		}
		if ev.Kind == ingest.EventIndexed {
			break
		}
		if ev.Kind == ingest.EventFailed {
			t.Fatalf("upload failed: %v", ev.Err)
		}
	}

	conv, _ := st.ActiveConversation()
	var sawCard, sawNotice bool
	for _, msg := range conv.Messages {
		if msg.UploadCard != nil && msg.UploadCard.Status == model.UploadDone {
			sawCard = true
		}
		if msg.Role == model.RoleSystem && msg.Content == "✅ Indexed: report.pdf" {
			sawNotice = true
		}
	}
	if !sawCard {
		t.Error("no completed upload card in transcript")
	}
	if !sawNotice {
		t.Error("no indexed notice in transcript")
	}
}
