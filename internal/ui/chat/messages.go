// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// PipelineUpdatedMsg signals that the conversation, pending state or result
// batch changed.
type PipelineUpdatedMsg struct{}

// StatusMsg sets the panel's transient status line.
type StatusMsg struct {
	Text string
}
