// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package aiclient provides the HTTP client for the gazette AI chat endpoint.
//
// A chat turn is one authenticated POST carrying the new user text and the
// prior conversation:
//
//	POST {endpoint}
//	Authorization: Bearer <token>
//	{"message": "...", "history": [{"role": "user", "content": "..."}]}
//
// The endpoint answers with a success flag, the reply text, an optional
// batch of result records and an optional error message:
//
//	{"success": true, "reply": "Found 5 entries", "results": [{...}]}
//
// Transport failures are returned as *ClientError values. A response with
// success false is not an error at this layer; callers decide what it means.
package aiclient
