// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the assistant session controller.
//
// The Controller owns the session lifecycle and wires the navigation guard,
// the message pipeline and the result presenter together.
//
// # Key Types
//
//   - Controller: Closed or Open(minimized) session state machine
//   - Status: point-in-time view of the session for rendering
//
// # Usage
//
//	ctrl := session.New(history, dispatcher, client, session.DefaultConfig(), logger)
//	ctrl.SetOnResultSelected(showDetail)
//	ctrl.Open()              // pins the current location
//	ctrl.Send("Show me all change of name entries")
//	ctrl.Close()             // releases the location, clears the conversation
//
// # Invariants
//
// The guard is armed exactly while the session is open, minimized or not.
// A response that lands after Close is discarded.
package session
