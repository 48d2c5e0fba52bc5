// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"github.com/jeranaias/gazette-assist/internal/config"
	"github.com/jeranaias/gazette-assist/internal/guard"
	"github.com/jeranaias/gazette-assist/internal/model"
)

// BlockedMsg reports a navigation the guard suppressed.
type BlockedMsg struct {
	Block guard.Block
}

// ResultSelectedMsg carries a record the user opened from the panel.
type ResultSelectedMsg struct {
	Record model.ResultRecord
}

// SessionClosedMsg reports that the assistant session ended.
type SessionClosedMsg struct{}

// MinimizeToggledMsg reports the panel's new minimized state.
type MinimizeToggledMsg struct {
	Minimized bool
}

// LocationChangedMsg reports a new host location.
type LocationChangedMsg struct {
	Location string
}

// ConfigReloadedMsg carries a configuration reloaded from disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// clearNoticeMsg expires the notice with the matching sequence number.
type clearNoticeMsg struct {
	seq int
}
