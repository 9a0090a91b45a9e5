// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store manages the conversation state for the chattai client.
//
// All state changes flow through a small set of actions applied by a pure
// reducer. The Store serializes dispatches behind a mutex and persists the
// resulting state to disk after every change, so a crash never loses more
// than the in-flight action.
package store

import "github.com/chattaio/chattai-tui/internal/model"

// Action is a state transition request. Every mutation of the conversation
// state is expressed as one of the concrete action types below.
type Action interface {
	isAction()
}

// NewConversation creates a fresh conversation and makes it active.
type NewConversation struct{}

// SelectConversation switches the active conversation.
type SelectConversation struct {
	ID string
}

// DeleteConversation removes a conversation. Deleting the active
// conversation re-selects the most recent remaining one.
type DeleteConversation struct {
	ID string
}

// AppendMessage appends a message to the active conversation. The first
// message also titles the conversation.
type AppendMessage struct {
	Message model.Message
}

// UpdateMessage patches a message in the active conversation.
type UpdateMessage struct {
	ID    string
	Patch model.MessagePatch
}

// ClearActive removes all messages from the active conversation but keeps
// the conversation itself.
type ClearActive struct{}

// UpdateSettings patches the session settings.
type UpdateSettings struct {
	Patch model.SettingsPatch
}

func (NewConversation) isAction()    {}
func (SelectConversation) isAction() {}
func (DeleteConversation) isAction() {}
func (AppendMessage) isAction()      {}
func (UpdateMessage) isAction()      {}
func (ClearActive) isAction()        {}
func (UpdateSettings) isAction()     {}
