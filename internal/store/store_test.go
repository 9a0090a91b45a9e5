// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chattaio/chattai-tui/internal/model"
)

func tempStatePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "chattaio_state.json")
}

func TestOpenMissingFile(t *testing.T) {
	s, err := Open(tempStatePath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	state := s.State()
	if len(state.Conversations) != 0 {
		t.Errorf("expected empty state, got %d conversations", len(state.Conversations))
	}
	if state.Settings.Mode != model.ModeHybrid {
		t.Errorf("expected default settings, got mode %s", state.Settings.Mode)
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := tempStatePath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("corrupt state should not fail Open: %v", err)
	}
	if len(s.State().Conversations) != 0 {
		t.Error("corrupt state should start fresh")
	}
}

func TestOpenDropsDanglingActiveID(t *testing.T) {
	path := tempStatePath(t)
	blob := `{"conversations": [], "active_id": "ghost", "settings": {"mode": "hybrid", "top_k": 10, "citations": true}}`
	if err := os.WriteFile(path, []byte(blob), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.State().ActiveID != "" {
		t.Errorf("expected dangling active ID dropped, got %q", s.State().ActiveID)
	}
}

func TestOpenNormalizesSettings(t *testing.T) {
	path := tempStatePath(t)
	blob := `{"conversations": [], "active_id": "", "settings": {"mode": "bogus", "top_k": 0}}`
	if err := os.WriteFile(path, []byte(blob), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	settings := s.State().Settings
	if settings.Mode != model.ModeHybrid || settings.TopK != 1 {
		t.Errorf("expected normalized settings, got %+v", settings)
	}
}

func TestDispatchPersists(t *testing.T) {
	path := tempStatePath(t)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := s.Dispatch(NewConversation{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if _, err := s.Dispatch(AppendMessage{Message: model.NewUserMessage("persist me")}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	// Reopen and verify the state survived
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	state := reopened.State()
	if len(state.Conversations) != 1 {
		t.Fatalf("expected 1 conversation after reopen, got %d", len(state.Conversations))
	}
	conv := state.Conversations[0]
	if len(conv.Messages) != 1 || conv.Messages[0].Content != "persist me" {
		t.Errorf("message lost in round trip: %+v", conv.Messages)
	}
	if state.ActiveID != conv.ID {
		t.Error("active selection lost in round trip")
	}
}

func TestStateRoundTripPreservesUploadCards(t *testing.T) {
	path := tempStatePath(t)
	s, _ := Open(path)

	s.Dispatch(NewConversation{})
	msg := model.NewUploadCardMessage("report.pdf")
	s.Dispatch(AppendMessage{Message: msg})
	s.Dispatch(UpdateMessage{
		ID: msg.ID,
		Patch: model.MessagePatch{
			UploadCard: &model.UploadCard{
				Filename: "report.pdf",
				Status:   model.UploadProcessing,
				JobID:    "job-9",
			},
		},
	})

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	conv, ok := reopened.ActiveConversation()
	if !ok {
		t.Fatal("expected active conversation")
	}
	card := conv.Messages[0].UploadCard
	if card == nil {
		t.Fatal("upload card lost in round trip")
	}
	if card.Status != model.UploadProcessing || card.JobID != "job-9" {
		t.Errorf("unexpected card: %+v", card)
	}
}

func TestStateSnapshotIsIsolated(t *testing.T) {
	s, _ := Open(tempStatePath(t))
	s.Dispatch(NewConversation{})
	s.Dispatch(AppendMessage{Message: model.NewUserMessage("original")})

	snapshot := s.State()
	snapshot.Conversations[0].Messages[0].Content = "tampered"

	if conv, _ := s.ActiveConversation(); conv.Messages[0].Content != "original" {
		t.Error("snapshot mutation leaked into the store")
	}
}

func TestActiveConversationNone(t *testing.T) {
	s, _ := Open(tempStatePath(t))
	if _, ok := s.ActiveConversation(); ok {
		t.Error("expected no active conversation in fresh state")
	}
}

// =============================================================================
// LISTING AND SEARCH
// =============================================================================

func TestMetas(t *testing.T) {
	s, _ := Open(tempStatePath(t))
	s.Dispatch(NewConversation{})
	s.Dispatch(AppendMessage{Message: model.NewUserMessage("indexing question")})
	s.Dispatch(NewConversation{})

	metas := s.Metas()
	if len(metas) != 2 {
		t.Fatalf("expected 2 metas, got %d", len(metas))
	}
	// Newest first
	if !metas[0].Active {
		t.Error("first meta should be the active conversation")
	}
	if metas[1].Title != "indexing question" {
		t.Errorf("unexpected title: %q", metas[1].Title)
	}
	if metas[1].Preview != "indexing question" {
		t.Errorf("unexpected preview: %q", metas[1].Preview)
	}
	if metas[1].MessageCount != 1 {
		t.Errorf("unexpected message count: %d", metas[1].MessageCount)
	}
}

func TestSearch(t *testing.T) {
	s, _ := Open(tempStatePath(t))
	s.Dispatch(NewConversation{})
	s.Dispatch(AppendMessage{Message: model.NewUserMessage("tell me about kubernetes")})
	s.Dispatch(NewConversation{})
	s.Dispatch(AppendMessage{Message: model.NewUserMessage("weather forecast")})

	results := s.Search("KUBERNETES")
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Title != "tell me about kubernetes" {
		t.Errorf("unexpected result: %+v", results[0])
	}

	all := s.Search("")
	if len(all) != 2 {
		t.Errorf("empty query should match everything, got %d", len(all))
	}

	none := s.Search("nonexistent topic")
	if len(none) != 0 {
		t.Errorf("expected no results, got %d", len(none))
	}
}
