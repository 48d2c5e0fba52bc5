// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package aiclient

import (
	"unicode/utf8"

	"github.com/jeranaias/gazette-assist/internal/model"
)

// Wire limits of the chat endpoint.
const (
	// MaxHistory is the most prior messages a request may carry.
	MaxHistory = 200

	// MaxHistoryContent is the longest prior message, in characters.
	MaxHistoryContent = 8000

	// DefaultMaxHistory is how many prior messages the client sends.
	DefaultMaxHistory = 40
)

// HistoryEntry is one prior message on the wire.
type HistoryEntry struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"max=8000"`
}

// ChatRequest is the request body for a chat turn. The validate tags are
// enforced by the dev backend.
type ChatRequest struct {
	Message string         `json:"message" validate:"required,max=4000"`
	History []HistoryEntry `json:"history" validate:"max=200,dive"`
}

// ChatResponse is the response body for a chat turn. Results is not
// omitempty so a search with no hits still sends an explicit empty array.
type ChatResponse struct {
	Success bool                 `json:"success"`
	Reply   string               `json:"reply"`
	Results []model.ResultRecord `json:"results"`
	Error   string               `json:"error,omitempty"`
}

// TurnResponse is the outcome of a chat turn as seen by callers.
type TurnResponse struct {
	Success      bool
	ReplyText    string
	Results      []model.ResultRecord
	ErrorMessage string
}

// historyFrom converts the most recent limit transcript messages to wire
// entries. The window starts on a user message when it can, and overlong
// messages are cut to MaxHistoryContent.
func historyFrom(prior []model.ChatMessage, limit int) []HistoryEntry {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}
	if len(prior) > limit {
		prior = prior[len(prior)-limit:]
		if len(prior) > 1 && prior[0].Role == model.RoleAssistant {
			prior = prior[1:]
		}
	}

	out := make([]HistoryEntry, 0, len(prior))
	for _, m := range prior {
		out = append(out, HistoryEntry{Role: m.Role.String(), Content: clip(m.Text, MaxHistoryContent)})
	}
	return out
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
