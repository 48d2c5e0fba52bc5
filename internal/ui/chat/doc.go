// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the assistant panel component for the console TUI.
//
// The panel renders a session's conversation, the pending indicator, the
// failure entry with its retry affordance, and the current result batch.
// All state lives in the session controller; the panel only reads snapshots
// and forwards user intent.
//
// # Updates
//
// Pipeline changes arrive on the transport goroutine. The panel subscribes
// with a one-slot channel and turns each signal into a PipelineUpdatedMsg via
// a blocking command, so the Bubble Tea loop stays the only writer of view
// state.
//
// # Key Bindings
//
//   - Enter: send
//   - Ctrl+E: retry the failed turn
//   - F1-F4: suggested prompts (empty conversation only)
//   - Alt+Up / Alt+Down: move the result cursor
//   - Alt+Enter: open the highlighted result in the host
//   - Tab: toggle the full result listing
//   - PgUp / PgDn: scroll
//   - Ctrl+N: minimize / restore
//   - Esc: close the session
package chat
