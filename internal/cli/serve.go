// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/gazette-assist/internal/config"
	"github.com/jeranaias/gazette-assist/internal/devserver"
)

// shutdownGrace bounds how long in-flight requests may run after a signal.
const shutdownGrace = 5 * time.Second

// devServerConfig resolves the backend settings from the config file and
// the serve flags.
func devServerConfig(cfg *config.Config, p *ArgParser) (devserver.Config, string, error) {
	sc := devserver.Config{
		Addr:      p.FlagOrDefault("addr", cfg.DevServer.Addr),
		JWTSecret: cfg.DevServer.JWTSecret,
		CacheTTL:  cfg.DevServer.CacheTTL(),
	}
	if p.BoolFlag("no-auth") {
		sc.JWTSecret = ""
	}
	if v := p.Flag("latency"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return sc, "", NewUsageError("serve", "invalid --latency "+v, "gazette-assist serve --latency 2s")
		}
		sc.Latency = d
	}

	dbPath := p.FlagOrDefault("db", cfg.DevServer.DBPath)
	if dbPath == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return sc, "", err
		}
		dbPath = filepath.Join(dir, "notices.db")
	}
	return sc, dbPath, nil
}

// HandleServe runs the development chat backend until interrupted.
func HandleServe(args Args) error {
	p := NewArgParser(args.Raw, "no-auth", "no-seed")

	cfg, _, err := loadConfig(args)
	if err != nil {
		return err
	}
	sc, dbPath, err := devServerConfig(cfg, p)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg, args, true)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := devserver.OpenStore(ctx, dbPath, logger)
	if err != nil {
		return NewCommandError("serve", "open", "notice index unavailable", err)
	}
	defer store.Close()

	if cfg.DevServer.Seed && !p.BoolFlag("no-seed") {
		seeded, err := store.SeedIfEmpty(ctx)
		if err != nil {
			return NewCommandError("serve", "seed", "could not load sample notices", err)
		}
		if seeded {
			logger.Info("sample notices loaded", zap.Int("count", len(devserver.SeedNotices)))
		}
	}

	srv := devserver.New(sc, store, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen()
	}()

	if !args.Quiet {
		count, _ := store.Count(ctx)
		fmt.Fprintf(args.Out, "%s http://%s%s\n", SuccessStyle.Render("[OK] Serving"), sc.Addr, devserver.ChatPath)
		fmt.Fprintf(args.Out, "%s %s (%d notices)\n", RenderLabel("Index:"), dbPath, count)
		if sc.JWTSecret == "" {
			fmt.Fprintln(args.Out, WarningStyle.Render("[!] Authentication disabled"))
		} else {
			fmt.Fprintln(args.Out, DimStyle.Render("Mint a token with: gazette-assist token"))
		}
	}

	select {
	case err := <-errCh:
		if err != nil {
			return NewCommandError("serve", "listen", "server stopped", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Any("stats", srv.Stats()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return NewCommandError("serve", "shutdown", "in-flight requests did not finish", err)
	}
	return nil
}
