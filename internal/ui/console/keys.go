// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the host bindings. Bindings marked "always" work while the
// assistant has focus; the rest only reach the host when the panel is closed
// or minimized.
type KeyMap struct {
	Quit       key.Binding // always
	Assistant  key.Binding // always
	Link       key.Binding
	LinkAlt    key.Binding // always
	Submit     key.Binding // always
	Back       key.Binding // always
	Forward    key.Binding // always
	KeepAlive  key.Binding // always
	DismissBox key.Binding
}

// DefaultKeyMap returns the default host bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
		Assistant: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("C-a", "assistant"),
		),
		Link: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5"),
			key.WithHelp("1-5", "open page"),
		),
		LinkAlt: key.NewBinding(
			key.WithKeys("alt+1", "alt+2", "alt+3", "alt+4", "alt+5"),
			key.WithHelp("M-1..5", "open page"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "submit filter"),
		),
		Back: key.NewBinding(
			key.WithKeys("alt+left"),
			key.WithHelp("M-left", "back"),
		),
		Forward: key.NewBinding(
			key.WithKeys("alt+right"),
			key.WithHelp("M-right", "forward"),
		),
		KeepAlive: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "keep-alive redirect"),
		),
		DismissBox: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "close detail"),
		),
	}
}

// linkIndex maps "3" or "alt+3" to tab index 2, or -1.
func linkIndex(keyStr string) int {
	if len(keyStr) > 4 && keyStr[:4] == "alt+" {
		keyStr = keyStr[4:]
	}
	if len(keyStr) != 1 || keyStr[0] < '1' || keyStr[0] > '9' {
		return -1
	}
	return int(keyStr[0] - '1')
}
