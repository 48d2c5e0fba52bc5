// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for assistant conversations
// and search results.
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
		return "Gazette AI"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// ChatMessage is a single turn in the assistant conversation.
// Values are immutable once appended to a Transcript.
type ChatMessage struct {
	ID     string    `json:"id"`
	Role   Role      `json:"role"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// NewMessage creates a message with a generated ID stamped with the current time.
func NewMessage(role Role, text string) ChatMessage {
	return ChatMessage{
		ID:     uuid.NewString(),
		Role:   role,
		Text:   text,
		SentAt: time.Now(),
	}
}

// NewUserMessage creates a user message.
func NewUserMessage(text string) ChatMessage {
	return NewMessage(RoleUser, text)
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(text string) ChatMessage {
	return NewMessage(RoleAssistant, text)
}

// Preview returns a truncated preview of the message text.
// Uses rune-based truncation to handle Unicode correctly.
func (m ChatMessage) Preview(maxLen int) string {
	runes := []rune(m.Text)
	if len(runes) <= maxLen {
		return m.Text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no text.
func (m ChatMessage) IsEmpty() bool {
	return len(m.Text) == 0
}
