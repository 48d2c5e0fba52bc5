// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/gazette-assist/internal/config"
	"github.com/jeranaias/gazette-assist/internal/nav"
	"github.com/jeranaias/gazette-assist/internal/session"
	"github.com/jeranaias/gazette-assist/internal/ui/chat"
	"github.com/jeranaias/gazette-assist/internal/ui/console"
	"github.com/jeranaias/gazette-assist/internal/ui/styles"
)

// HandleTUI runs the full-screen admin console with the assistant panel.
func HandleTUI(args Args) error {
	if !IsTTY() {
		return NewUsageError("tui", "stdin is not a terminal", "gazette-assist chat")
	}

	cfg, path, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, args, false)
	if err != nil {
		return err
	}
	defer closeLog()

	hist := nav.NewHistory(cfg.UI.StartPage)
	disp := nav.NewDispatcher(hist)
	ctrl := session.New(hist, disp, newClient(cfg, logger), sessionConfig(cfg), logger)
	defer ctrl.Close()

	theme := styles.NewTheme(cfg.UI.Theme)
	m := console.New(theme, hist, disp, ctrl, chat.Options{
		Markdown:     true,
		MaxCellWidth: cfg.Results.MaxCellWidth,
	}, logger)

	program := tea.NewProgram(m, tea.WithAltScreen())

	if w, err := config.Watch(path, config.DefaultDebounce, func(next *config.Config, err error) {
		if err != nil {
			logger.Warn("config reload failed", zap.String("path", path), zap.Error(err))
			return
		}
		config.SetGlobal(next)
		program.Send(console.ConfigReloadedMsg{Config: next})
	}); err != nil {
		logger.Debug("config watch unavailable", zap.String("path", path), zap.Error(err))
	} else {
		defer w.Close()
	}

	logger.Info("console started",
		zap.String("start_page", hist.Location()),
		zap.String("endpoint", cfg.Assistant.Endpoint),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("console exited: %w", err)
	}
	logger.Info("console stopped", zap.Int("blocked", ctrl.Guard().Stats().Total()))
	return nil
}
