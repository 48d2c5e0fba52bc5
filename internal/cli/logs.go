// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/gazette-assist/internal/logging"
	"github.com/jeranaias/gazette-assist/internal/util"
)

// defaultLogLimit is the number of entries shown without --limit.
const defaultLogLimit = 50

// HandleLogs prints the most recent log entries, newest first.
//
//	gazette-assist logs [--level warn] [--limit 20]
func HandleLogs(args Args) error {
	p := NewArgParser(args.Raw)

	level := p.Flag("level")
	if level != "" {
		if _, err := logging.ParseLevel(level); err != nil {
			return NewUsageError("logs", err.Error(), "gazette-assist logs --level warn")
		}
	}
	limit := defaultLogLimit
	if v := p.Flag("limit"); v != "" {
		n, err := ParsePositiveInt(v, "--limit")
		if err != nil {
			return NewUsageError("logs", err.Error(), "gazette-assist logs --limit 20")
		}
		limit = n
	}

	cfg, _, err := loadConfig(args)
	if err != nil {
		return err
	}
	path := logFile(cfg)

	entries, err := logging.ReadEntries(path, level, limit)
	if err != nil {
		return NewCommandError("logs", "read", path, err)
	}

	if args.JSON {
		return writeJSON(args.Out, entries)
	}
	if len(entries) == 0 {
		if !args.Quiet {
			fmt.Fprintln(args.Out, DimStyle.Render("No log entries in "+path))
		}
		return nil
	}

	width := GetTerminalWidth()
	for _, e := range entries {
		fmt.Fprintln(args.Out, util.TruncateWidth(formatEntry(e), width))
	}
	if !args.Quiet {
		fmt.Fprintln(args.Out, DimStyle.Render(fmt.Sprintf("%d %s from %s",
			len(entries), util.Plural(len(entries), "entry", "entries"), path)))
	}
	return nil
}

// formatEntry renders one entry on a single line.
func formatEntry(e logging.Entry) string {
	var b strings.Builder
	b.WriteString(DimStyle.Render(e.Timestamp))
	b.WriteString(" ")
	b.WriteString(levelStyle(e.Level).Render(fmt.Sprintf("%-5s", e.Level)))
	if e.Component != "" {
		b.WriteString(" [" + e.Component + "]")
	}
	b.WriteString(" " + e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

func levelStyle(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return ErrorStyle
	case "WARN":
		return WarningStyle
	case "DEBUG":
		return DimStyle
	default:
		return ValueStyle
	}
}
