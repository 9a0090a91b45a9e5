// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"time"

	"github.com/chattaio/chattai-tui/internal/model"
)

// =============================================================================
// STATE
// =============================================================================

// State is the complete client-side conversation state. It is the unit of
// persistence: the whole struct round-trips through a single JSON document.
type State struct {
	// Conversations are ordered newest first.
	Conversations []model.Conversation `json:"conversations"`
	// ActiveID is the ID of the selected conversation, empty when none.
	ActiveID string `json:"active_id"`
	// Settings are the session query parameters.
	Settings model.ChatSettings `json:"settings"`
}

// NewState returns the state a first run starts with: no conversations and
// default settings.
func NewState() State {
	return State{
		Conversations: []model.Conversation{},
		Settings:      model.DefaultSettings(),
	}
}

// ActiveConversation returns the active conversation, or false when no
// conversation is selected.
func (s State) ActiveConversation() (model.Conversation, bool) {
	for i := range s.Conversations {
		if s.Conversations[i].ID == s.ActiveID {
			return s.Conversations[i], true
		}
	}
	return model.Conversation{}, false
}

// FindConversation returns the index of the conversation with the given ID,
// or -1.
func (s State) FindConversation(id string) int {
	for i := range s.Conversations {
		if s.Conversations[i].ID == id {
			return i
		}
	}
	return -1
}

// clone deep-copies the state so reducer output never aliases the input.
func (s State) clone() State {
	out := s
	out.Conversations = make([]model.Conversation, len(s.Conversations))
	for i := range s.Conversations {
		out.Conversations[i] = s.Conversations[i].Clone()
	}
	return out
}

// =============================================================================
// REDUCER
// =============================================================================

// Reduce applies an action to a state and returns the next state. It is
// pure: the input state is never mutated, and unknown actions return the
// state unchanged.
//
// Message-level actions target the active conversation only; with no active
// conversation they are no-ops.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case NewConversation:
		next := state.clone()
		conv := model.NewConversation()
		next.Conversations = append([]model.Conversation{conv}, next.Conversations...)
		next.ActiveID = conv.ID
		return next

	case SelectConversation:
		next := state.clone()
		next.ActiveID = a.ID
		return next

	case DeleteConversation:
		next := state.clone()
		kept := next.Conversations[:0]
		for _, conv := range next.Conversations {
			if conv.ID != a.ID {
				kept = append(kept, conv)
			}
		}
		next.Conversations = kept
		if next.ActiveID == a.ID {
			if len(kept) > 0 {
				next.ActiveID = kept[0].ID
			} else {
				next.ActiveID = ""
			}
		}
		return next

	case AppendMessage:
		next := state.clone()
		idx := next.FindConversation(next.ActiveID)
		if idx < 0 {
			return next
		}
		conv := &next.Conversations[idx]
		if len(conv.Messages) == 0 {
			conv.Title = model.DeriveTitle(a.Message.Content)
		}
		conv.Messages = append(conv.Messages, a.Message)
		conv.UpdatedAt = time.Now()
		return next

	case UpdateMessage:
		next := state.clone()
		idx := next.FindConversation(next.ActiveID)
		if idx < 0 {
			return next
		}
		conv := &next.Conversations[idx]
		msgIdx := conv.FindMessage(a.ID)
		if msgIdx < 0 {
			return next
		}
		conv.Messages[msgIdx] = a.Patch.Apply(conv.Messages[msgIdx])
		conv.UpdatedAt = time.Now()
		return next

	case ClearActive:
		next := state.clone()
		idx := next.FindConversation(next.ActiveID)
		if idx < 0 {
			return next
		}
		next.Conversations[idx].Messages = []model.Message{}
		next.Conversations[idx].UpdatedAt = time.Now()
		return next

	case UpdateSettings:
		next := state.clone()
		next.Settings = a.Patch.Apply(next.Settings)
		return next

	default:
		return state
	}
}
