// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the console and assistant panel.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// CONSOLE
	// ==========================================================================

	Header       lipgloss.Style
	HeaderTitle  lipgloss.Style
	NavTab       lipgloss.Style
	NavTabActive lipgloss.Style
	PageTitle    lipgloss.Style
	PageBody     lipgloss.Style
	Link         lipgloss.Style
	Notice       lipgloss.Style
	DetailPane   lipgloss.Style
	StatusBar    lipgloss.Style
	StatusKey    lipgloss.Style
	StatusText   lipgloss.Style

	// ==========================================================================
	// ASSISTANT PANEL
	// ==========================================================================

	Panel          lipgloss.Style
	PanelTitle     lipgloss.Style
	PanelMinimized lipgloss.Style
	UserBubble     lipgloss.Style
	AssistantLabel lipgloss.Style
	FailureBubble  lipgloss.Style
	RetryHint      lipgloss.Style
	Suggestion     lipgloss.Style
	SpinnerStyle   lipgloss.Style
	InputPrompt    lipgloss.Style
	Muted          lipgloss.Style
}

// NewTheme creates a theme. name is "dark", "light" or "auto"; anything else
// is treated as auto and follows the terminal background.
func NewTheme(name string) *Theme {
	colorProfile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(name) {
	case "dark":
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.NavTab = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 1)
	t.NavTabActive = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Cyan).
		Bold(true).
		Padding(0, 1)
	t.PageTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary).
		MarginBottom(1)
	t.PageBody = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(1, 2)
	t.Link = lipgloss.NewStyle().
		Foreground(Cyan).
		Underline(true)
	t.Notice = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.DetailPane = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Cyan).
		Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.StatusText = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)
	t.PanelTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)
	t.PanelMinimized = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Foreground(Purple).
		Padding(0, 1)
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderTop(false).
		BorderRight(false).
		BorderBottom(false).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(AssistantBubbleBorder).
		Bold(true)
	t.FailureBubble = lipgloss.NewStyle().
		Foreground(FailureBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderTop(false).
		BorderRight(false).
		BorderBottom(false).
		BorderForeground(Rose).
		PaddingLeft(1)
	t.RetryHint = lipgloss.NewStyle().
		Foreground(Rose).
		Underline(true)
	t.Suggestion = lipgloss.NewStyle().
		Foreground(Cyan)
	t.SpinnerStyle = lipgloss.NewStyle().
		Foreground(Purple)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 80 columns, panel stacks under the page
	LayoutWide                     // side-by-side page and panel
)

// GetLayoutMode returns the layout mode for the current width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 80 {
		return LayoutNarrow
	}
	return LayoutWide
}

// PanelWidth returns the assistant panel width for the current layout.
func (t *Theme) PanelWidth() int {
	if t.GetLayoutMode() == LayoutNarrow {
		return t.Width
	}
	w := t.Width * 2 / 5
	if w < 40 {
		w = 40
	}
	return w
}
