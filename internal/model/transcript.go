// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sync"

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript is the append-only, ordered conversation history.
// Messages are never mutated or removed; the whole transcript is cleared
// only when the owning session closes.
//
// The Transcript is safe for concurrent use.
type Transcript struct {
	mu       sync.RWMutex
	messages []ChatMessage
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{messages: make([]ChatMessage, 0, 16)}
}

// Append adds a message to the end of the transcript.
func (t *Transcript) Append(msg ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

// Messages returns a copy of all messages in order.
func (t *Transcript) Messages() []ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns the most recent message.
func (t *Transcript) Last() (ChatMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return ChatMessage{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// LastOfRole returns the most recent message sent by role.
func (t *Transcript) LastOfRole(role Role) (ChatMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == role {
			return t.messages[i], true
		}
	}
	return ChatMessage{}, false
}

// Clear drops every message. Only the session lifecycle calls this.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = t.messages[:0:0]
}
