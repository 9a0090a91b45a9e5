// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat conversations, messages, citations, upload cards, and
// query settings.
//
// # Key Types
//
//   - Conversation: Container for a chat session with messages and metadata
//   - Message: Single message with role, content, citations, and streaming state
//   - UploadCard: Ingestion status card attached to an upload message
//   - ChatSettings: Query mode, top-k bound, and related query options
//   - Role: Message role enumeration (user, assistant, system)
//
// # Usage
//
// Create a new conversation and append a message:
//
//	conv := model.NewConversation()
//	msg := model.NewUserMessage("What does the Q3 report say about churn?")
package model
