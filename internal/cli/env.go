// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jeranaias/gazette-assist/internal/aiclient"
	"github.com/jeranaias/gazette-assist/internal/config"
	"github.com/jeranaias/gazette-assist/internal/guard"
	"github.com/jeranaias/gazette-assist/internal/logging"
	"github.com/jeranaias/gazette-assist/internal/pipeline"
	"github.com/jeranaias/gazette-assist/internal/results"
	"github.com/jeranaias/gazette-assist/internal/session"
)

// =============================================================================
// SHARED BOOTSTRAP
// =============================================================================

// loadConfig loads the config named by --config, or the default one, and
// installs it as the process-wide config. The returned path is the file the
// config came from, or would be saved to.
func loadConfig(args Args) (*config.Config, string, error) {
	if args.ConfigPath != "" {
		cfg, err := config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, "", err
		}
		config.SetGlobal(cfg)
		return cfg, args.ConfigPath, nil
	}

	path, err := config.ActivePath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, "", err
	}
	config.SetGlobal(cfg)
	return cfg, path, nil
}

// logFile returns the configured log file, or the default under the config
// directory.
func logFile(cfg *config.Config) string {
	if cfg.Logging.File != "" {
		return cfg.Logging.File
	}
	dir, err := config.ConfigDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), "gazette-assist")
	}
	return logging.DefaultFile(dir)
}

// newLogger builds the process logger. console tees to stderr and must be
// false while the full-screen console owns the terminal.
func newLogger(cfg *config.Config, args Args, console bool) (*zap.Logger, func() error, error) {
	level := cfg.Logging.Level
	if args.Verbose {
		level = "debug"
	}
	return logging.New(logging.Options{
		Level:      level,
		File:       logFile(cfg),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		Console:    console && (cfg.Logging.Console || args.Verbose),
		Stderr:     args.Err,
	})
}

// newClient builds the chat endpoint client from the assistant section.
func newClient(cfg *config.Config, logger *zap.Logger) *aiclient.Client {
	return aiclient.NewClientWithConfig(&aiclient.ClientConfig{
		Endpoint:          cfg.Assistant.Endpoint,
		Token:             cfg.Assistant.Token,
		Timeout:           cfg.Assistant.Timeout(),
		MaxRetries:        cfg.Assistant.MaxRetries,
		RequestsPerSecond: cfg.Assistant.RequestsPerSecond,
		Burst:             cfg.Assistant.Burst,
		MaxHistory:        cfg.Assistant.MaxHistory,
		Logger:            logger,
	})
}

// sessionConfig maps the config file onto the session controller.
func sessionConfig(cfg *config.Config) session.Config {
	sc := session.DefaultConfig()
	sc.Guard = guard.Config{
		ReconcileInterval: cfg.Guard.ReconcileInterval(),
		NotifyBlocked:     cfg.Guard.NotifyBlocked,
	}
	sc.Pipeline = pipeline.Config{Timeout: cfg.Assistant.Timeout()}

	rc := results.DefaultConfig()
	rc.PreviewLimit = cfg.Results.PreviewLimit
	rc.MaxCellWidth = cfg.Results.MaxCellWidth
	if len(cfg.Results.HeadlineFields) > 0 {
		rc.HeadlineFields = append([]string(nil), cfg.Results.HeadlineFields...)
	}
	sc.Results = rc

	if len(cfg.UI.Suggestions) > 0 {
		sc.Suggestions = append([]string(nil), cfg.UI.Suggestions...)
	}
	return sc
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
