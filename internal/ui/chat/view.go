// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/gazette-assist/internal/model"
	"github.com/jeranaias/gazette-assist/internal/pipeline"
	"github.com/jeranaias/gazette-assist/internal/results"
	"github.com/jeranaias/gazette-assist/internal/ui/styles"
)

const (
	panelTitle    = "Gazette AI"
	pendingText   = "Searching the gazette..."
	welcomeText   = "Ask about notices, people or cases. Navigation stays on this page while the assistant is open."
	retryHintText = "C-e to retry"
	restoreHint   = "C-n to restore"
)

// View renders the panel. A closed session renders nothing.
func (m Model) View() string {
	if !m.session.IsOpen() {
		return ""
	}

	if m.session.Minimized() {
		label := m.theme.PanelTitle.Render(panelTitle)
		if m.session.Pipeline().State().Busy() {
			label += " " + m.spinner.View()
		}
		if n := m.session.Results().Len(); n > 0 {
			label += m.theme.Muted.Render(fmt.Sprintf("  %d results", n))
		}
		return m.theme.PanelMinimized.Render(label + m.theme.Muted.Render("  "+restoreHint))
	}

	inner := m.innerWidth()

	header := m.theme.PanelTitle.Render(panelTitle) +
		m.theme.Muted.Render("  pinned to "+m.session.Anchor())

	var status string
	switch {
	case m.session.Pipeline().State().Busy():
		status = m.spinner.View() + " " + m.theme.Muted.Render(pendingText)
	case m.status != "":
		status = styles.RenderWarning(m.status)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		status,
		m.input.View(),
		m.helpLine(),
	)
	return m.theme.Panel.Width(inner + 2).Render(body)
}

// refresh re-renders the conversation into the viewport.
func (m *Model) refresh() {
	if m.viewport.Width == 0 {
		return
	}
	entries := m.session.Pipeline().Entries()
	m.clampCursor()
	m.viewport.SetContent(m.renderContent(entries, m.viewport.Width))
	if len(entries) != m.entryCount {
		m.entryCount = len(entries)
		m.viewport.GotoBottom()
	}
}

func (m Model) renderContent(entries []pipeline.Entry, width int) string {
	var sections []string

	if len(entries) == 0 {
		sections = append(sections, m.renderWelcome(width))
	}
	for _, e := range entries {
		sections = append(sections, m.renderEntry(e, width))
	}

	if res := m.session.Results(); res.Len() > 0 {
		sections = append(sections, m.renderResults(res, width))
	}
	return strings.Join(sections, "\n\n")
}

func (m Model) renderWelcome(width int) string {
	lines := []string{
		lipgloss.NewStyle().Width(width).Render(m.theme.Muted.Render(welcomeText)),
		"",
	}
	for i, s := range m.session.Suggestions() {
		if i >= 4 {
			break
		}
		lines = append(lines, fmt.Sprintf("%s  %s",
			m.theme.Muted.Render(fmt.Sprintf("F%d", i+1)),
			m.theme.Suggestion.Render(s)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderEntry(e pipeline.Entry, width int) string {
	if e.Kind == pipeline.EntryFailure {
		text := styles.StatusIndicators.Error + " " + e.Failure
		return m.theme.FailureBubble.Width(width-1).Render(text) +
			"\n  " + m.theme.RetryHint.Render(retryHintText)
	}

	msg := e.Message
	if msg.Role == model.RoleUser {
		return m.theme.UserBubble.Width(width - 1).Render(msg.Text)
	}
	return m.theme.AssistantLabel.Render(msg.Role.DisplayName()) + "\n" + m.renderReply(msg.Text, width)
}

func (m Model) renderReply(text string, width int) string {
	if m.markdown != nil {
		if out, err := m.markdown.Render(text); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}

func (m Model) renderResults(res *results.Presenter, width int) string {
	header := m.theme.PanelTitle.Render(fmt.Sprintf("Results (%d)", res.Len()))
	if res.Expanded() {
		return header + "\n" + results.RenderListing(res.Listing(), width, m.opts.MaxCellWidth, m.cursor)
	}
	return header + "\n" + results.RenderPreview(res.Preview(), width, m.cursor)
}

func (m Model) helpLine() string {
	parts := make([]string, 0, 6)
	if m.session.Pipeline().State().Phase == pipeline.PhaseFailed {
		parts = append(parts, helpEntry(m.theme, m.keys.Retry))
	}
	for _, b := range m.keys.ShortHelp() {
		parts = append(parts, helpEntry(m.theme, b))
	}
	return strings.Join(parts, m.theme.Muted.Render(" | "))
}

func helpEntry(theme *styles.Theme, b key.Binding) string {
	h := b.Help()
	return theme.StatusKey.Render(h.Key) + " " + theme.StatusText.Render(h.Desc)
}
