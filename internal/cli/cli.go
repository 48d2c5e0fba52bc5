// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and dispatch for gazette-assist.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdServe
	CmdToken
	CmdConfig
	CmdLogs
	CmdVersion
	CmdHelp
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdServe:
		return "serve"
	case CmdToken:
		return "token"
	case CmdConfig:
		return "config"
	case CmdLogs:
		return "logs"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config: explicit config file
	Verbose    bool   // --verbose: debug logging, echoed to stderr outside the TUI
	JSON       bool   // --json: machine-readable output
	Quiet      bool   // --quiet: suppress banners and hints

	// Raw holds the arguments after the command name.
	Raw []string

	// Unknown is set when the command name was not recognised.
	Unknown string

	Out io.Writer
	Err io.Writer
}

const usageText = `gazette-assist - AI assistant for the gazette admin console

Usage:
  gazette-assist [global flags] [command]

Commands:
  tui                        Start the admin console (default on a terminal)
  chat                       Line-mode assistant session (default when piped)
  serve                      Run the local development chat backend
  token [subject]            Mint a bearer token for the dev backend
  config [subcommand]        Show or edit configuration
  logs                       Show recent log entries
  version                    Show version information
  help                       Show this help

Config Commands:
  gazette-assist config show         Print the active configuration (secrets redacted)
  gazette-assist config path         Print the config file path
  gazette-assist config init         Write a default config file
  gazette-assist config get KEY      Print one value (e.g. guard.notify_blocked)
  gazette-assist config set KEY VAL  Update one value and save
    --force                          init: overwrite an existing file

Serve Options:
    --addr HOST:PORT                 Listen address (default from devserver.addr)
    --db PATH                        Notice index (":memory:" for a throwaway index)
    --no-auth                        Accept requests without a bearer token
    --latency DURATION               Delay every reply (e.g. 2s)

Token Options:
    --ttl DURATION                   Token lifetime (default from devserver.token_ttl_hours)

Logs Options:
    --level LEVEL                    Minimum level (debug, info, warn, error)
    --limit N                        Number of entries (default: 50)

Chat Commands (inside the chat session):
  /retry                     Resend the last message after a failure
  /results                   List every record of the current batch
  /open N                    Show the details of record N
  /clear                     Start a new conversation
  /help                      Show chat commands
  /quit                      Leave the session

Global Flags:
  --config PATH              Use an explicit config file
  --verbose, -v              Debug logging, echoed to stderr outside the console
  --json                     JSON output (config, logs, token, version)
  --quiet, -q                Suppress banners and hints
  --help, -h                 Show this help

Environment:
  GAZETTE_ENDPOINT           Overrides assistant.endpoint
  GAZETTE_TOKEN              Overrides assistant.token
  GAZETTE_LOG_LEVEL          Overrides logging.level
  GAZETTE_DEV_ADDR           Overrides devserver.addr
  GAZETTE_JWT_SECRET         Overrides devserver.jwt_secret
  GAZETTE_NOTIFY_BLOCKED     Show a notice when navigation is blocked
  NO_COLOR                   Disable colored output
`

// =============================================================================
// PARSING
// =============================================================================

// Parse parses argv (without the program name). With no command it picks
// the console on a terminal and the line-mode session otherwise.
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)
	args.Out = os.Stdout
	args.Err = os.Stderr

	if len(remaining) == 0 {
		if IsTTY() && IsStdoutTTY() {
			return CmdTUI, args
		}
		return CmdChat, args
	}

	name := strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch name {
	case "tui", "console":
		return CmdTUI, args
	case "chat", "repl":
		return CmdChat, args
	case "serve", "server":
		return CmdServe, args
	case "token":
		return CmdToken, args
	case "config", "cfg":
		return CmdConfig, args
	case "logs", "log":
		return CmdLogs, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		args.Unknown = remaining[0]
		return CmdHelp, args
	}
}

// parseGlobalFlags strips global flags that precede the command name.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	i := 0
	for i < len(argv) {
		arg := argv[i]
		switch {
		case arg == "--verbose" || arg == "-v":
			args.Verbose = true
		case arg == "--json":
			args.JSON = true
		case arg == "--quiet" || arg == "-q":
			args.Quiet = true
		case arg == "--config" && i+1 < len(argv):
			args.ConfigPath = argv[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		default:
			return argv[i:], args
		}
		i++
	}
	return nil, args
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes cmd.
func Run(cmd Command, args Args) error {
	switch cmd {
	case CmdTUI:
		return HandleTUI(args)
	case CmdChat:
		return HandleChat(args)
	case CmdServe:
		return HandleServe(args)
	case CmdToken:
		return HandleToken(args)
	case CmdConfig:
		return HandleConfig(args)
	case CmdLogs:
		return HandleLogs(args)
	case CmdVersion:
		return HandleVersion(args)
	default:
		return HandleHelp(args)
	}
}

// HandleHelp prints usage. An unknown command is reported as a usage error.
func HandleHelp(args Args) error {
	if args.Unknown != "" {
		fmt.Fprint(args.Err, usageText)
		return NewUsageError(args.Unknown, "unknown command", "gazette-assist help")
	}
	fmt.Fprint(args.Out, usageText)
	return nil
}

// HandleVersion prints version information.
func HandleVersion(args Args) error {
	if args.JSON {
		return writeJSON(args.Out, map[string]string{
			"version":    Version,
			"git_commit": GitCommit,
			"build_date": BuildDate,
			"go_version": runtime.Version(),
			"platform":   runtime.GOOS + "/" + runtime.GOARCH,
		})
	}
	fmt.Fprintf(args.Out, "gazette-assist %s\n", Version)
	if !args.Quiet {
		fmt.Fprintf(args.Out, "  commit:   %s\n", GitCommit)
		fmt.Fprintf(args.Out, "  built:    %s\n", BuildDate)
		fmt.Fprintf(args.Out, "  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	}
	return nil
}
