// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the command handlers for
// gazette-assist.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Global flags plus the arguments after the command name
//   - ArgParser: Flag and positional parsing for a single command
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	if err := cli.Run(cmd, args); err != nil {
//	    cli.DisplayError(os.Stderr, err, args.JSON)
//	    os.Exit(cli.ExitCode(err))
//	}
//
// # Commands Overview
//
//   - tui: Admin console with the assistant panel (default on a terminal)
//   - chat: Line-mode assistant session
//   - serve: Local development chat backend
//   - token: Bearer tokens for the development backend
//   - config: Configuration management
//   - logs: Recent structured log entries
package cli
