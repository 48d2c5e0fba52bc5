// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// gazette-assist.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, validation and hot reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - AssistantConfig: Chat endpoint, token and request limits
//   - GuardConfig: Navigation guard reconciliation and notices
//   - DevServerConfig: Local chat backend settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (GAZETTE_*)
//   - ~/.gazette-assist/config.toml
//   - ~/.gazette-assist/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	interval := cfg.Guard.ReconcileInterval()
package config
