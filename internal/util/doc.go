// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across gazette-assist.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - TruncateWidth: display-width aware truncation for terminal cells
//   - Plural: count-aware noun selection for status lines
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	cell := util.TruncateWidth(value, 28)
//	line := fmt.Sprintf("Found %d %s", n, util.Plural(n, "entry", "entries"))
package util
