// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package results

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jeranaias/gazette-assist/internal/model"
	"github.com/jeranaias/gazette-assist/internal/ui/styles"
	"github.com/jeranaias/gazette-assist/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.Overlay).
			Padding(0, 1)

	cardSelectedStyle = cardStyle.
				BorderForeground(styles.Purple)

	titleStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	valueStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	moreStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary).
			Padding(0, 1)

	cellSelectedStyle = cellStyle.
				Foreground(styles.Cyan).
				Bold(true)
)

// MoreLabel is the indicator for records beyond the preview.
func MoreLabel(remaining int) string {
	if remaining <= 0 {
		return ""
	}
	return fmt.Sprintf("+%d more", remaining)
}

// =============================================================================
// PREVIEW
// =============================================================================

// RenderPreview renders the preview as stacked cards. selected is the index
// of the highlighted card, or -1.
func RenderPreview(pv Preview, width, selected int) string {
	if pv.Empty() {
		return ""
	}
	if width < 20 {
		width = 20
	}
	inner := width - 4

	cards := make([]string, 0, len(pv.Items)+1)
	for _, item := range pv.Items {
		var b strings.Builder
		b.WriteString(titleStyle.Render(Truncate(item.Title, inner)))
		for _, f := range item.Fields {
			line := f.Label + ": " + f.Value
			line = Truncate(line, inner)
			label, value, _ := strings.Cut(line, ": ")
			b.WriteString("\n")
			b.WriteString(labelStyle.Render(label + ":"))
			b.WriteString(" ")
			b.WriteString(valueStyle.Render(value))
		}

		style := cardStyle
		if item.Index == selected {
			style = cardSelectedStyle
		}
		cards = append(cards, style.Width(width-2).Render(b.String()))
	}

	if more := MoreLabel(pv.Remaining); more != "" {
		cards = append(cards, moreStyle.Render(more))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// =============================================================================
// LISTING
// =============================================================================

// RenderListing renders every record as a table. selected is the highlighted
// row index, or -1.
func RenderListing(l Listing, width, maxCell, selected int) string {
	if len(l.Rows) == 0 {
		return labelStyle.Render("No results")
	}
	if maxCell <= 0 {
		maxCell = DefaultConfig().MaxCellWidth
	}

	headers := make([]string, len(l.Columns)+1)
	headers[0] = "#"
	for i, c := range l.Columns {
		headers[i+1] = Truncate(model.Label(c), maxCell)
	}

	rows := make([][]string, 0, len(l.Rows))
	for i, rec := range l.Rows {
		row := make([]string, len(l.Columns)+1)
		row[0] = fmt.Sprintf("%d", i+1)
		for j, c := range l.Columns {
			v, _ := rec.String(c)
			row[j+1] = Truncate(v, maxCell)
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Overlay)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == selected:
				return cellSelectedStyle
			default:
				return cellStyle
			}
		})
	if width > 0 {
		t = t.Width(width)
	}
	return t.Render()
}

// Truncate shortens s to fit width display cells.
func Truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return util.TruncateWidth(s, width)
}
