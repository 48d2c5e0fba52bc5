// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/jeranaias/gazette-assist/internal/aiclient"
	"github.com/jeranaias/gazette-assist/internal/config"
	"github.com/jeranaias/gazette-assist/internal/devserver"
	"github.com/jeranaias/gazette-assist/internal/logging"
	"github.com/jeranaias/gazette-assist/internal/model"
	"github.com/jeranaias/gazette-assist/internal/nav"
	"github.com/jeranaias/gazette-assist/internal/session"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		argv  []string
		want  Command
		check func(t *testing.T, a Args)
	}{
		{name: "tui", argv: []string{"tui"}, want: CmdTUI},
		{name: "chat alias", argv: []string{"repl"}, want: CmdChat},
		{name: "serve with flags", argv: []string{"serve", "--addr", ":9000"}, want: CmdServe,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, []string{"--addr", ":9000"}, a.Raw)
			}},
		{name: "global flags", argv: []string{"--verbose", "--config", "/tmp/x.toml", "--json", "config", "show"}, want: CmdConfig,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.Verbose)
				assert.True(t, a.JSON)
				assert.Equal(t, "/tmp/x.toml", a.ConfigPath)
				assert.Equal(t, []string{"show"}, a.Raw)
			}},
		{name: "config equals", argv: []string{"--config=/etc/g.toml", "logs"}, want: CmdLogs,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/etc/g.toml", a.ConfigPath)
			}},
		{name: "case insensitive", argv: []string{"TOKEN"}, want: CmdToken},
		{name: "version flag", argv: []string{"--version"}, want: CmdVersion},
		{name: "help", argv: []string{"-h"}, want: CmdHelp},
		{name: "unknown", argv: []string{"frobnicate"}, want: CmdHelp,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "frobnicate", a.Unknown)
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			assert.Equal(t, tt.want, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestParse_NoCommandPicksInteractiveMode(t *testing.T) {
	cmd, _ := Parse(nil)
	assert.Contains(t, []Command{CmdTUI, CmdChat}, cmd)
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "serve", CmdServe.String())
	assert.Equal(t, "help", Command(99).String())
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"set", "ui.theme", "dark", "--force", "--limit", "5", "--level=warn", "--", "--raw"}, "force")

	assert.Equal(t, "set", p.Subcommand())
	assert.Equal(t, "ui.theme", p.Positional(1))
	assert.Equal(t, "dark", p.Positional(2))
	assert.Equal(t, "--raw", p.Positional(3))
	assert.Equal(t, "", p.Positional(9))
	assert.Equal(t, 4, p.PositionalCount())

	assert.True(t, p.BoolFlag("force"))
	assert.True(t, p.HasFlag("--limit"))
	assert.Equal(t, 5, p.FlagIntOrDefault("limit", 1))
	assert.Equal(t, "warn", p.Flag("level"))
	assert.Equal(t, "x", p.FlagOrDefault("missing", "x"))
	assert.Equal(t, 7, p.FlagIntOrDefault("level", 7))
}

func TestArgParser_BoolNamesDoNotConsumeValues(t *testing.T) {
	p := NewArgParser([]string{"--no-auth", "extra"}, "no-auth")
	assert.True(t, p.BoolFlag("no-auth"))
	assert.Equal(t, "extra", p.Subcommand())

	p = NewArgParser([]string{"--no-auth=false"}, "no-auth")
	assert.False(t, p.BoolFlag("no-auth"))
	assert.True(t, p.HasFlag("no-auth"))
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"true", "YES", "y", "1", "on"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	v, err := ParseBoolString("off")
	require.NoError(t, err)
	assert.False(t, v)

	_, err = ParseBoolString("maybe")
	assert.Error(t, err)
}

func TestParsePositiveInt(t *testing.T) {
	n, err := ParsePositiveInt("3", "n")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, bad := range []string{"", "0", "-2", "three"} {
		_, err := ParsePositiveInt(bad, "n")
		assert.Error(t, err, bad)
	}
}

// =============================================================================
// ERRORS
// =============================================================================

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitUsageError, ExitCode(NewUsageError("x", "bad", "")))
	assert.Equal(t, ExitConfigError, ExitCode(fmt.Errorf("invalid config: %w",
		config.ValidateErrors{{Field: "ui.theme", Message: "bad"}})))
	assert.Equal(t, ExitAuthError, ExitCode(&aiclient.ClientError{Type: aiclient.ErrTypeUnauthorized}))
	assert.Equal(t, ExitGeneralError, ExitCode(errors.New("boom")))
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, NewCommandError("config", "set", "write failed", errors.New("disk full")), true)

	out := buf.String()
	assert.Contains(t, out, `"success": false`)
	assert.Contains(t, out, `"command": "config"`)
	assert.Contains(t, out, "disk full")
}

// =============================================================================
// COMMANDS
// =============================================================================

func testArgs(t *testing.T, configPath string, raw ...string) (Args, *bytes.Buffer) {
	t.Helper()
	for _, k := range []string{"GAZETTE_ENDPOINT", "GAZETTE_TOKEN", "GAZETTE_LOG_LEVEL",
		"GAZETTE_DEV_ADDR", "GAZETTE_JWT_SECRET", "GAZETTE_NOTIFY_BLOCKED"} {
		t.Setenv(k, "")
	}
	var out bytes.Buffer
	return Args{ConfigPath: configPath, Raw: raw, Quiet: true, Out: &out, Err: &bytes.Buffer{}}, &out
}

func TestHandleConfig_InitGetSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	args, _ := testArgs(t, path, "init")
	require.NoError(t, HandleConfig(args))
	_, err := os.Stat(path)
	require.NoError(t, err)

	args, _ = testArgs(t, path, "init")
	assert.Error(t, HandleConfig(args), "init refuses to overwrite")

	args, out := testArgs(t, path, "get", "guard.notify_blocked")
	require.NoError(t, HandleConfig(args))
	assert.Equal(t, "false\n", out.String())

	args, _ = testArgs(t, path, "set", "guard.notify_blocked", "true")
	require.NoError(t, HandleConfig(args))

	args, out = testArgs(t, path, "get", "guard.notify_blocked")
	require.NoError(t, HandleConfig(args))
	assert.Equal(t, "true\n", out.String())

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.True(t, cfg.Guard.NotifyBlocked)
}

func TestHandleConfig_SetRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	args, _ := testArgs(t, path, "set", "ui.theme", "sepia")
	err := HandleConfig(args)
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))

	args, _ = testArgs(t, path, "set", "no.such.key", "1")
	err = HandleConfig(args)
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing written")
}

func TestHandleConfig_SecretsRedacted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	args, _ := testArgs(t, path, "set", "assistant.token", "s3cret")
	require.NoError(t, HandleConfig(args))

	args, out := testArgs(t, path, "get", "assistant.token")
	require.NoError(t, HandleConfig(args))
	assert.Equal(t, "[REDACTED]\n", out.String())

	args, out = testArgs(t, path, "get", "assistant.token", "--reveal")
	require.NoError(t, HandleConfig(args))
	assert.Equal(t, "s3cret\n", out.String())

	args, out = testArgs(t, path, "show")
	require.NoError(t, HandleConfig(args))
	assert.NotContains(t, out.String(), "s3cret")
}

func TestHandleConfig_Usage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	for _, raw := range [][]string{{"get"}, {"set", "ui.theme"}, {"bogus"}} {
		args, _ := testArgs(t, path, raw...)
		err := HandleConfig(args)
		require.Error(t, err, raw)
		assert.Equal(t, ExitUsageError, ExitCode(err), raw)
	}
}

func TestHandleToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := config.Default()
	cfg.DevServer.JWTSecret = "token-test-secret"
	require.NoError(t, config.SaveTOML(cfg, path))

	args, out := testArgs(t, path, "registrar", "--ttl", "2h")
	require.NoError(t, HandleToken(args))

	claims, err := devserver.VerifyToken("token-test-secret", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "registrar", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), claims.ExpiresAt.Time, time.Minute)

	args, _ = testArgs(t, path, "--ttl", "soon")
	assert.Equal(t, ExitUsageError, ExitCode(HandleToken(args)))
}

func TestHandleLogs(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "test.log")
	cfgPath := filepath.Join(dir, "config.toml")
	cfg := config.Default()
	cfg.Logging.File = logPath
	require.NoError(t, config.SaveTOML(cfg, cfgPath))

	logger, closeLog, err := logging.New(logging.Options{Level: "debug", File: logPath})
	require.NoError(t, err)
	logger.Named("guard").Info("navigation blocked", zap.String("target", "/cases"))
	logger.Warn("endpoint slow")
	require.NoError(t, closeLog())

	args, out := testArgs(t, cfgPath)
	require.NoError(t, HandleLogs(args))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "endpoint slow")
	assert.Contains(t, lines[1], "[guard] navigation blocked target=/cases")

	args, out = testArgs(t, cfgPath, "--level", "warn")
	require.NoError(t, HandleLogs(args))
	assert.NotContains(t, out.String(), "navigation blocked")

	args, _ = testArgs(t, cfgPath, "--limit", "0")
	assert.Equal(t, ExitUsageError, ExitCode(HandleLogs(args)))
}

func TestHandleVersion(t *testing.T) {
	args, out := testArgs(t, "")
	require.NoError(t, HandleVersion(args))
	assert.Contains(t, out.String(), "gazette-assist "+Version)
}

func TestHandleHelp_UnknownCommand(t *testing.T) {
	args, _ := testArgs(t, "")
	args.Unknown = "frobnicate"
	err := HandleHelp(args)
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestDevServerConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DevServer.DBPath = "/var/lib/notices.db"

	sc, db, err := devServerConfig(cfg, NewArgParser([]string{"--no-auth", "--latency", "250ms"}, "no-auth"))
	require.NoError(t, err)
	assert.Empty(t, sc.JWTSecret)
	assert.Equal(t, 250*time.Millisecond, sc.Latency)
	assert.Equal(t, cfg.DevServer.Addr, sc.Addr)
	assert.Equal(t, "/var/lib/notices.db", db)

	sc, db, err = devServerConfig(cfg, NewArgParser([]string{"--addr", ":9999", "--db", devserver.MemoryPath}))
	require.NoError(t, err)
	assert.Equal(t, ":9999", sc.Addr)
	assert.Equal(t, cfg.DevServer.JWTSecret, sc.JWTSecret)
	assert.Equal(t, devserver.MemoryPath, db)

	_, _, err = devServerConfig(cfg, NewArgParser([]string{"--latency", "-1s"}))
	assert.Error(t, err)
}

// =============================================================================
// LINE-MODE SESSION
// =============================================================================

type transportFunc func(ctx context.Context, text string, prior []model.ChatMessage) (*aiclient.TurnResponse, error)

func (f transportFunc) SendChatTurn(ctx context.Context, text string, prior []model.ChatMessage) (*aiclient.TurnResponse, error) {
	return f(ctx, text, prior)
}

func notices(n int) []model.ResultRecord {
	out := make([]model.ResultRecord, n)
	for i := range out {
		out[i] = model.ResultRecord{
			"id":          fmt.Sprintf("GN-%d", i+1),
			"notice_type": "change_of_name",
			"title":       fmt.Sprintf("Change of Name: Person %d", i+1),
			"old_name":    fmt.Sprintf("Old %d", i+1),
		}
	}
	return out
}

func newTestSession(t *testing.T, tr transportFunc) (*chatSession, *nav.History, *bytes.Buffer) {
	t.Helper()
	hist := nav.NewHistory("/gazette")
	cfg := session.DefaultConfig()
	cfg.Guard.ReconcileInterval = time.Hour
	ctrl := session.New(hist, nav.NewDispatcher(hist), tr, cfg, zaptest.NewLogger(t))
	ctrl.Open()
	t.Cleanup(func() {
		ctrl.Close()
		ctrl.Pipeline().Wait()
	})

	var out bytes.Buffer
	return newChatSession(ctrl, &out, 80, 20), hist, &out
}

func TestChatSession_ReplyAndResults(t *testing.T) {
	cs, _, out := newTestSession(t, func(ctx context.Context, text string, prior []model.ChatMessage) (*aiclient.TurnResponse, error) {
		return &aiclient.TurnResponse{Success: true, ReplyText: "Found 4 entries", Results: notices(4)}, nil
	})

	assert.True(t, cs.handleLine("Show me all change of name entries"))
	text := out.String()
	assert.Contains(t, text, "Found 4 entries")
	assert.Contains(t, text, "Results (4)")
	assert.Contains(t, text, "Change of Name: Person 1")
	assert.Contains(t, text, "+1 more")

	out.Reset()
	assert.True(t, cs.handleLine("/open 2"))
	assert.Contains(t, out.String(), "GN-2")
	assert.Contains(t, out.String(), "Old 2")

	out.Reset()
	cs.handleLine("/open 9")
	assert.Contains(t, out.String(), "No record 9")

	out.Reset()
	cs.handleLine("/results")
	assert.Contains(t, out.String(), "GN-4")
}

func TestChatSession_UnchangedResultsNotRepeated(t *testing.T) {
	var calls atomic.Int32
	cs, _, out := newTestSession(t, func(ctx context.Context, text string, prior []model.ChatMessage) (*aiclient.TurnResponse, error) {
		if calls.Add(1) == 1 {
			return &aiclient.TurnResponse{Success: true, ReplyText: "Found 2 entries", Results: notices(2)}, nil
		}
		return &aiclient.TurnResponse{Success: true, ReplyText: "They were published in 2024", Results: notices(2)}, nil
	})

	cs.handleLine("change of name")
	out.Reset()
	cs.handleLine("when were they published?")
	assert.Contains(t, out.String(), "They were published in 2024")
	assert.NotContains(t, out.String(), "Results (2)")
}

func TestChatSession_FailureAndRetry(t *testing.T) {
	var calls atomic.Int32
	cs, _, out := newTestSession(t, func(ctx context.Context, text string, prior []model.ChatMessage) (*aiclient.TurnResponse, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		return &aiclient.TurnResponse{Success: true, ReplyText: "Found 1 entry", Results: notices(1)}, nil
	})

	cs.handleLine("Find marriage notices")
	assert.Contains(t, out.String(), "[X] Failed to analyze case")
	assert.Contains(t, out.String(), "/retry")

	out.Reset()
	cs.handleLine("/retry")
	assert.Contains(t, out.String(), "Found 1 entry")
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, cs.ctrl.Pipeline().Messages(), 2, "retry does not duplicate the user message")

	out.Reset()
	cs.handleLine("/retry")
	assert.Contains(t, out.String(), "Nothing to retry")
}

func TestChatSession_GuardPinsLocation(t *testing.T) {
	cs, hist, _ := newTestSession(t, func(ctx context.Context, text string, prior []model.ChatMessage) (*aiclient.TurnResponse, error) {
		return &aiclient.TurnResponse{Success: true, ReplyText: "ok"}, nil
	})

	require.NoError(t, hist.Push("/cases"))
	assert.Equal(t, "/gazette", hist.Location())
	assert.Equal(t, 1, cs.ctrl.Guard().Stats().Total())
}

func TestChatSession_Commands(t *testing.T) {
	cs, _, out := newTestSession(t, func(ctx context.Context, text string, prior []model.ChatMessage) (*aiclient.TurnResponse, error) {
		return &aiclient.TurnResponse{Success: true, ReplyText: "ok", Results: notices(1)}, nil
	})

	assert.True(t, cs.handleLine("   "))
	assert.Empty(t, out.String())

	cs.handleLine("hello")
	require.Len(t, cs.ctrl.Pipeline().Messages(), 2)

	out.Reset()
	cs.handleLine("/clear")
	assert.Contains(t, out.String(), "Conversation cleared")
	assert.Empty(t, cs.ctrl.Pipeline().Messages())
	assert.Zero(t, cs.ctrl.Results().Len())
	assert.True(t, cs.ctrl.IsOpen())

	out.Reset()
	cs.handleLine("/bogus")
	assert.Contains(t, out.String(), "Unknown command /bogus")

	out.Reset()
	cs.handleLine("/help")
	assert.Contains(t, out.String(), "/retry")

	assert.False(t, cs.handleLine("/quit"))
}

func TestChatSession_AgainstDevServer(t *testing.T) {
	ctx := context.Background()
	store, err := devserver.OpenStore(ctx, devserver.MemoryPath, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	_, err = store.SeedIfEmpty(ctx)
	require.NoError(t, err)

	const secret = "cli-test-secret"
	srv := devserver.New(devserver.Config{JWTSecret: secret}, store, zaptest.NewLogger(t))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.App().Listener(ln)
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	})

	token, err := devserver.MintToken(secret, "clerk", time.Hour)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Assistant.Endpoint = "http://" + ln.Addr().String() + devserver.ChatPath
	cfg.Assistant.Token = token
	cfg.Assistant.MaxRetries = -1
	client := newClient(cfg, zaptest.NewLogger(t))

	cs, _, out := newTestSession(t, client.SendChatTurn)
	cs.handleLine("Show me all change of name entries")
	assert.Contains(t, out.String(), "Found 5 entries")
	assert.Contains(t, out.String(), "Results (5)")

	out.Reset()
	cs.handleLine("/open 1")
	assert.Contains(t, out.String(), "GN-2024-0203", "newest notice first")
}
