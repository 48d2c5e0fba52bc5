// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for assistant conversations
// and search results.
//
// # Key Types
//
//   - ChatMessage: Immutable message with role, text and send time
//   - Transcript: Append-only, thread-safe sequence of ChatMessage values
//   - ResultRecord: Schema-free search hit (field name -> value)
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
// Build a transcript:
//
//	t := model.NewTranscript()
//	t.Append(model.NewUserMessage("Show me all change of name entries"))
//	t.Append(model.NewAssistantMessage("Found 5 entries"))
//
// Probe a result record:
//
//	rec := model.ResultRecord{"id": "gz-1", "title": "Change of name"}
//	title, ok := rec.String("title")
package model
