// errors.go - Error types and exit codes shared by all commands.
//
// Handlers always return errors; main decides how to display them and
// which exit code to use.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/gazette-assist/internal/aiclient"
	"github.com/jeranaias/gazette-assist/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates the endpoint rejected the token
	ExitAuthError = 4
	// ExitNetworkError indicates the endpoint could not be reached
	ExitNetworkError = 5
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a command failure with context.
type CommandError struct {
	Command string // Command that failed (e.g., "config", "serve")
	Action  string // Action being performed (e.g., "set", "listen")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError is an invalid invocation.
type UsageError struct {
	Command string
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Command, e.Reason)
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewUsageError creates a new usage error.
func NewUsageError(command, reason, example string) error {
	return &UsageError{Command: command, Reason: reason, Example: example}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var invalid config.ValidateErrors
	var invalidOne config.ValidationError
	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &invalid), errors.As(err, &invalidOne):
		return ExitConfigError
	case aiclient.IsUnauthorized(err):
		return ExitAuthError
	case aiclient.IsTimeout(err):
		return ExitTimeoutError
	case aiclient.IsUnavailable(err):
		return ExitNetworkError
	}
	return ExitGeneralError
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON when jsonMode is set.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}

	if jsonMode {
		output := map[string]interface{}{
			"error":     err.Error(),
			"success":   false,
			"exit_code": ExitCode(err),
		}
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			output["command"] = cmdErr.Command
			output["action"] = cmdErr.Action
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(output)
		return
	}

	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}
