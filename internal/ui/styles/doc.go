// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the gazette admin
console and its assistant panel.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple - Assistant accent, panel border, selections
  - Cyan - Brand color, user highlights, active navigation
  - Emerald - Success states
  - Amber - Warnings, blocked-navigation notices
  - Rose - Failures and retry prompts

# Theme System (theme.go)

	theme := styles.NewTheme("auto")
	panel := theme.Panel.Width(60).Render(body)

A theme name of "dark" or "light" overrides terminal detection.

# Spinners (spinner.go)

ASCII-only frame sets for the awaiting-reply indicator:

	ThinkingSpinner - line rotation
	DotsSpinner     - three-dot animation
*/
package styles
