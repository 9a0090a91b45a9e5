// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chattaio/chattai-tui/internal/model"
	"github.com/chattaio/chattai-tui/internal/util"
)

// =============================================================================
// STORE
// =============================================================================

// Store is the mutable owner of the conversation state. Dispatches are
// serialized behind a mutex, so the pure reducer can stay oblivious to
// concurrency, and every accepted action is persisted before Dispatch
// returns.
type Store struct {
	mu    sync.Mutex
	state State
	path  string
}

// Open loads the store from the given state file. A missing file starts a
// fresh state; a corrupt file is logged and replaced with a fresh state
// rather than failing startup.
func Open(path string) (*Store, error) {
	s := &Store{
		state: NewState(),
		path:  path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var loaded State
	if err := json.Unmarshal(data, &loaded); err != nil {
		// Corrupt state is not recoverable; start over instead of refusing
		// to boot.
		log.Printf("state file %s is corrupt, starting fresh: %v", path, err)
		return s, nil
	}

	loaded.Settings = loaded.Settings.Normalize()
	if loaded.Conversations == nil {
		loaded.Conversations = []model.Conversation{}
	}
	// A dangling active ID would make message actions silently target
	// nothing; drop it.
	if loaded.ActiveID != "" && loaded.FindConversation(loaded.ActiveID) < 0 {
		loaded.ActiveID = ""
	}
	s.state = loaded
	return s, nil
}

// Dispatch applies an action and persists the resulting state. The returned
// state is a snapshot safe to keep across later dispatches.
func (s *Store) Dispatch(action Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Reduce(s.state, action)
	if err := s.persistLocked(); err != nil {
		return s.state.clone(), err
	}
	return s.state.clone(), nil
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// ActiveConversation returns the active conversation, or false when no
// conversation is selected.
func (s *Store) ActiveConversation() (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.state.ActiveConversation()
	if !ok {
		return model.Conversation{}, false
	}
	return conv.Clone(), true
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// persistLocked writes the current state to disk. Caller holds the mutex.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// =============================================================================
// CONVERSATION LISTING
// =============================================================================

// ConversationMeta contains the sidebar summary of a conversation.
type ConversationMeta struct {
	ID           string
	Title        string
	MessageCount int
	UpdatedAt    time.Time
	Preview      string
	Active       bool
}

// Metas returns summaries of all conversations, newest first.
func (s *Store) Metas() []ConversationMeta {
	s.mu.Lock()
	defer s.mu.Unlock()

	metas := make([]ConversationMeta, 0, len(s.state.Conversations))
	for _, conv := range s.state.Conversations {
		metas = append(metas, s.metaLocked(conv))
	}
	return metas
}

// Search returns summaries of conversations whose title or message content
// matches the query, case-insensitively. An empty query matches everything.
func (s *Store) Search(query string) []ConversationMeta {
	s.mu.Lock()
	defer s.mu.Unlock()

	query = strings.ToLower(strings.TrimSpace(query))
	var metas []ConversationMeta
	for _, conv := range s.state.Conversations {
		if query == "" || conversationMatches(conv, query) {
			metas = append(metas, s.metaLocked(conv))
		}
	}
	return metas
}

// metaLocked builds the summary for one conversation. Caller holds the mutex.
func (s *Store) metaLocked(conv model.Conversation) ConversationMeta {
	preview := ""
	for _, msg := range conv.Messages {
		if msg.Role == model.RoleUser && msg.Content != "" {
			preview = util.TruncateRunes(msg.Content, 60)
			break
		}
	}
	return ConversationMeta{
		ID:           conv.ID,
		Title:        conv.Title,
		MessageCount: len(conv.Messages),
		UpdatedAt:    conv.UpdatedAt,
		Preview:      preview,
		Active:       conv.ID == s.state.ActiveID,
	}
}

// conversationMatches reports whether the conversation matches the query.
func conversationMatches(conv model.Conversation, query string) bool {
	if strings.Contains(strings.ToLower(conv.Title), query) {
		return true
	}
	for _, msg := range conv.Messages {
		if strings.Contains(strings.ToLower(msg.Content), query) {
			return true
		}
	}
	return false
}
