// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the panel's keyboard bindings.
type KeyMap struct {
	Submit        key.Binding
	Retry         key.Binding
	Suggest       key.Binding
	NextResult    key.Binding
	PrevResult    key.Binding
	OpenResult    key.Binding
	ToggleResults key.Binding
	PageUp        key.Binding
	PageDown      key.Binding
	Minimize      key.Binding
	Close         key.Binding
}

// DefaultKeyMap returns the default panel bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Retry: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "retry"),
		),
		Suggest: key.NewBinding(
			key.WithKeys("f1", "f2", "f3", "f4"),
			key.WithHelp("F1-F4", "suggestions"),
		),
		NextResult: key.NewBinding(
			key.WithKeys("alt+down", "alt+j"),
			key.WithHelp("M-down", "next result"),
		),
		PrevResult: key.NewBinding(
			key.WithKeys("alt+up", "alt+k"),
			key.WithHelp("M-up", "prev result"),
		),
		OpenResult: key.NewBinding(
			key.WithKeys("alt+enter"),
			key.WithHelp("M-enter", "open result"),
		),
		ToggleResults: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "all results"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Minimize: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "minimize"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
	}
}

// ShortHelp returns the bindings shown under the input.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.ToggleResults, k.OpenResult, k.Minimize, k.Close}
}

// FullHelp returns all bindings grouped for the help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Retry, k.Suggest},
		{k.NextResult, k.PrevResult, k.OpenResult, k.ToggleResults},
		{k.PageUp, k.PageDown, k.Minimize, k.Close},
	}
}

// suggestionIndex maps a function key to a suggestion slot, or -1.
func suggestionIndex(keyStr string) int {
	switch keyStr {
	case "f1":
		return 0
	case "f2":
		return 1
	case "f3":
		return 2
	case "f4":
		return 3
	}
	return -1
}
