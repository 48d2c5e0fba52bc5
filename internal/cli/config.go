// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/gazette-assist/internal/config"
)

// secretKeys are redacted by "config get" unless --reveal is given.
var secretKeys = map[string]bool{
	"assistant.token":      true,
	"devserver.jwt_secret": true,
}

// HandleConfig handles "config show|path|init|get|set|keys".
func HandleConfig(args Args) error {
	p := NewArgParser(args.Raw, "force", "reveal")

	switch sub := strings.ToLower(p.Subcommand()); sub {
	case "", "show":
		cfg, path, err := loadConfig(args)
		if err != nil {
			return err
		}
		if args.JSON {
			fmt.Fprintln(args.Out, cfg.String())
			return nil
		}
		if !args.Quiet {
			fmt.Fprintln(args.Out, DimStyle.Render("# "+path))
		}
		fmt.Fprintln(args.Out, cfg.String())
		return nil

	case "path":
		path, err := configPath(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(args.Out, path)
		return nil

	case "init":
		return configInit(args, p.BoolFlag("force"))

	case "get":
		key := p.Positional(1)
		if key == "" {
			return NewUsageError("config get", "missing key", "gazette-assist config get guard.notify_blocked")
		}
		cfg, _, err := loadConfig(args)
		if err != nil {
			return err
		}
		val, err := cfg.Get(key)
		if err != nil {
			return NewUsageError("config get", err.Error(), "gazette-assist config keys")
		}
		if secretKeys[strings.ToLower(key)] && !p.BoolFlag("reveal") {
			if s, _ := val.(string); s != "" {
				val = "[REDACTED]"
			}
		}
		if args.JSON {
			return writeJSON(args.Out, map[string]interface{}{"key": key, "value": val})
		}
		fmt.Fprintln(args.Out, formatConfigValue(val))
		return nil

	case "set":
		key, value := p.Positional(1), strings.Join(p.PositionalFrom(2), " ")
		if key == "" || p.PositionalCount() < 3 {
			return NewUsageError("config set", "expected KEY VALUE", "gazette-assist config set guard.notify_blocked true")
		}
		return configSet(args, key, value)

	case "keys":
		for _, k := range config.GetAllKeys() {
			fmt.Fprintln(args.Out, k)
		}
		return nil

	default:
		return NewUsageError("config", "unknown subcommand "+sub, "gazette-assist config show")
	}
}

// configPath returns the file the config commands read and write.
func configPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ActivePath()
}

func configInit(args Args, force bool) error {
	path, err := configPath(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return NewCommandError("config", "init", path+" already exists (use --force to overwrite)", nil)
	}
	if err := saveConfig(config.Default(), path); err != nil {
		return NewCommandError("config", "init", "write failed", err)
	}
	fmt.Fprintf(args.Out, "%s %s\n", SuccessStyle.Render("[OK] Wrote"), path)
	return nil
}

// configSet edits the file itself, so environment overrides are never
// persisted.
func configSet(args Args, key, value string) error {
	path, err := configPath(args)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if strings.HasSuffix(path, ".json") {
			err = config.LoadJSON(cfg, path)
		} else {
			err = config.LoadTOML(cfg, path)
		}
		if err != nil {
			return err
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return NewUsageError("config set", err.Error(), "gazette-assist config keys")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := saveConfig(cfg, path); err != nil {
		return NewCommandError("config", "set", "write failed", err)
	}

	if !args.Quiet {
		fmt.Fprintf(args.Out, "%s %s\n", SuccessStyle.Render("[OK] Set"), key)
	}
	return nil
}

func saveConfig(cfg *config.Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

func formatConfigValue(v interface{}) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprint(val)
	}
}
