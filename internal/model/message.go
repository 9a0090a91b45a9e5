// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// FEEDBACK TYPE
// =============================================================================

// Feedback is the tri-state user rating on an assistant message.
type Feedback string

const (
	FeedbackNone     Feedback = ""
	FeedbackLiked    Feedback = "liked"
	FeedbackDisliked Feedback = "disliked"
)

// =============================================================================
// CITATION TYPE
// =============================================================================

// Citation is a single retrieval source reference attached to an assistant
// message. Index is the stable ordinal used for [n] references in the text.
type Citation struct {
	Index   int    `json:"index"`
	Source  string `json:"source"`
	Snippet string `json:"snippet,omitempty"`
}

// =============================================================================
// UPLOAD CARD TYPE
// =============================================================================

// UploadStatus is the state of a tracked ingestion job.
// Transitions are forward-only: queued -> processing -> {done | failed}.
type UploadStatus string

const (
	UploadQueued     UploadStatus = "queued"
	UploadProcessing UploadStatus = "processing"
	UploadDone       UploadStatus = "done"
	UploadFailed     UploadStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s UploadStatus) Terminal() bool {
	return s == UploadDone || s == UploadFailed
}

// rank orders statuses along the forward-only state machine.
func (s UploadStatus) rank() int {
	switch s {
	case UploadQueued:
		return 0
	case UploadProcessing:
		return 1
	case UploadDone, UploadFailed:
		return 2
	default:
		return -1
	}
}

// CanAdvance reports whether a transition from s to next is permitted.
// A status never moves backwards and never leaves a terminal state.
func (s UploadStatus) CanAdvance(next UploadStatus) bool {
	if s.Terminal() {
		return false
	}
	return next.rank() >= s.rank()
}

// UploadCard tracks one uploaded file through the backend ingestion pipeline.
// JobID is set only once the upload call has succeeded; Error only in the
// failed state.
type UploadCard struct {
	Filename string       `json:"filename"`
	Status   UploadStatus `json:"status"`
	JobID    string       `json:"job_id,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// A message is either a normal text/citation message or an upload-status card
// (UploadCard != nil) — never both meaningfully populated.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Content. Mutable while IsStreaming is set, immutable after.
	Content string `json:"content"`

	// Retrieval citations (assistant messages only)
	Citations []Citation `json:"citations,omitempty"`

	// User feedback (assistant messages only)
	Feedback Feedback `json:"feedback,omitempty"`

	// Streaming/error state
	IsStreaming bool `json:"is_streaming,omitempty"`
	Error       bool `json:"error,omitempty"`

	// Upload card payload, mutually exclusive with text content
	UploadCard *UploadCard `json:"upload_card,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantPlaceholder creates an empty assistant message with the
// streaming flag set. Content is patched in as tokens arrive.
func NewAssistantPlaceholder() Message {
	return Message{
		ID:          uuid.NewString(),
		Role:        RoleAssistant,
		CreatedAt:   time.Now(),
		IsStreaming: true,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewUploadCardMessage creates an upload-card message in the queued state.
func NewUploadCardMessage(filename string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		CreatedAt: time.Now(),
		UploadCard: &UploadCard{
			Filename: filename,
			Status:   UploadQueued,
		},
	}
}

// IsUploadCard reports whether the message carries an upload card.
func (m Message) IsUploadCard() bool {
	return m.UploadCard != nil
}

// Preview returns a truncated, single-line preview of the message content.
func (m Message) Preview(maxRunes int) string {
	content := m.Content
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	return string(runes[:maxRunes])
}

// =============================================================================
// MESSAGE PATCH
// =============================================================================

// MessagePatch is a partial update to a message. Nil fields are left
// untouched; non-nil fields replace the current value wholesale.
type MessagePatch struct {
	Content     *string
	Citations   *[]Citation
	Feedback    *Feedback
	IsStreaming *bool
	Error       *bool
	UploadCard  *UploadCard
}

// Apply returns a copy of msg with the patch applied.
func (p MessagePatch) Apply(msg Message) Message {
	if p.Content != nil {
		msg.Content = *p.Content
	}
	if p.Citations != nil {
		msg.Citations = *p.Citations
	}
	if p.Feedback != nil {
		msg.Feedback = *p.Feedback
	}
	if p.IsStreaming != nil {
		msg.IsStreaming = *p.IsStreaming
	}
	if p.Error != nil {
		msg.Error = *p.Error
	}
	if p.UploadCard != nil {
		card := *p.UploadCard
		msg.UploadCard = &card
	}
	return msg
}

// =============================================================================
// PATCH HELPERS
// =============================================================================

// Ptr returns a pointer to v. Convenience for building patches.
func Ptr[T any](v T) *T {
	return &v
}
