// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/gazette-assist/internal/model"
	"github.com/jeranaias/gazette-assist/internal/ui/styles"
)

const consoleTitle = "Gazette Admin Console"

// View renders the console.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	page := m.renderPage()
	panel := m.panel.View()

	var body string
	switch {
	case panel == "":
		body = page
	case m.ctrl.Minimized():
		body = lipgloss.JoinVertical(lipgloss.Right, page, panel)
	case m.theme.GetLayoutMode() == styles.LayoutNarrow:
		body = lipgloss.JoinVertical(lipgloss.Left, page, panel)
	default:
		body = lipgloss.JoinHorizontal(lipgloss.Top, page, panel)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	active := PageIndex(m.hist.Location())
	tabs := make([]string, 0, len(Pages))
	for i, p := range Pages {
		label := fmt.Sprintf("%d %s", i+1, p.Title)
		if i == active {
			tabs = append(tabs, m.theme.NavTabActive.Render(label))
		} else {
			tabs = append(tabs, m.theme.NavTab.Render(label))
		}
	}
	line := m.theme.HeaderTitle.Render(consoleTitle) + "  " + strings.Join(tabs, "")
	return m.theme.Header.Render(line)
}

func (m Model) renderPage() string {
	page := PageFor(m.hist.Location())

	lines := []string{
		m.theme.PageTitle.Render(page.Title),
	}
	lines = append(lines, page.Lines...)
	if page.FormAction != "" {
		lines = append(lines, "", m.theme.Link.Render("[filter]")+m.theme.Muted.Render(" C-s"))
	}
	if m.detail != nil {
		lines = append(lines, "", m.renderDetail(m.detail))
	}
	if m.notice != "" {
		lines = append(lines, "", styles.RenderWarning(m.notice))
	}

	style := m.theme.PageBody
	if m.ctrl.IsOpen() && !m.ctrl.Minimized() && m.theme.GetLayoutMode() == styles.LayoutWide {
		if w := m.width - m.theme.PanelWidth(); w > 0 {
			style = style.Width(w)
		}
	}
	return style.Render(strings.Join(lines, "\n"))
}

// renderDetail shows every field of a selected record.
func (m Model) renderDetail(rec model.ResultRecord) string {
	headline := model.DefaultHeadlineFields
	var b strings.Builder
	b.WriteString(m.theme.PageTitle.UnsetMarginBottom().Render(rec.Title(headline)))
	if id := rec.ID(); id != "" {
		b.WriteString("\n" + m.theme.Muted.Render(id))
	}
	for _, f := range append(rec.Headline(headline), rec.Secondary(headline)...) {
		b.WriteString("\n" + f.Label + ": " + f.Value)
	}
	b.WriteString("\n" + m.theme.Muted.Render("x to close"))
	return m.theme.DetailPane.Render(b.String())
}

func (m Model) renderStatusBar() string {
	parts := []string{
		m.theme.StatusKey.Render("C-a") + " " + m.theme.StatusText.Render("assistant"),
		m.theme.StatusKey.Render("1-5") + " " + m.theme.StatusText.Render("pages"),
		m.theme.StatusKey.Render("M-left/right") + " " + m.theme.StatusText.Render("history"),
		m.theme.StatusKey.Render("C-r") + " " + m.theme.StatusText.Render("keep-alive"),
		m.theme.StatusKey.Render("C-c") + " " + m.theme.StatusText.Render("quit"),
	}
	if m.ctrl.IsOpen() {
		st := m.ctrl.Guard().Stats()
		parts = append(parts, m.theme.Notice.Render(fmt.Sprintf("pinned %s, %d blocked", m.ctrl.Anchor(), st.Total())))
	}
	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}
