// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// TruncateWidth shortens s to at most width display cells, ending in an
// ellipsis when cut. Wide (CJK) characters count as two cells. A
// non-positive width leaves s unchanged.
func TruncateWidth(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, Ellipsis)
}

// FirstLine returns s up to its first newline.
func FirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Plural picks singular when n is exactly one.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
