// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// TitleMaxRunes is the maximum length of an auto-derived conversation title.
const TitleMaxRunes = 40

// UntitledConversation is the title of a conversation before its first
// message arrives.
const UntitledConversation = "New Chat"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation represents a chat conversation with its full message history.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation creates a new, empty conversation.
func NewConversation() Conversation {
	now := time.Now()
	return Conversation{
		ID:        uuid.NewString(),
		Title:     UntitledConversation,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DeriveTitle returns the title a conversation should carry after its first
// message: the message content truncated to TitleMaxRunes runes. Empty
// content keeps the untitled placeholder.
func DeriveTitle(content string) string {
	if content == "" {
		return UntitledConversation
	}
	runes := []rune(content)
	if len(runes) <= TitleMaxRunes {
		return content
	}
	return string(runes[:TitleMaxRunes])
}

// IsEmpty reports whether the conversation has no messages.
func (c Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// LastMessage returns the most recent message, or false if the conversation
// is empty.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// FindMessage returns the index of the message with the given ID, or -1.
func (c Conversation) FindMessage(id string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the conversation. Message slices are copied
// so reducer updates never alias stored state.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	for i := range out.Messages {
		if card := out.Messages[i].UploadCard; card != nil {
			cc := *card
			out.Messages[i].UploadCard = &cc
		}
		if cits := out.Messages[i].Citations; cits != nil {
			copied := make([]Citation, len(cits))
			copy(copied, cits)
			out.Messages[i].Citations = copied
		}
	}
	return out
}
