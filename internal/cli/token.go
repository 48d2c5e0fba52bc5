// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"time"

	"github.com/jeranaias/gazette-assist/internal/devserver"
)

// defaultTokenSubject identifies tokens minted without a subject.
const defaultTokenSubject = "console"

// HandleToken mints a bearer token for the dev backend.
//
//	gazette-assist token [subject] [--ttl 12h]
func HandleToken(args Args) error {
	p := NewArgParser(args.Raw)

	cfg, _, err := loadConfig(args)
	if err != nil {
		return err
	}
	if cfg.DevServer.JWTSecret == "" {
		return NewCommandError("token", "mint", "devserver.jwt_secret is empty", nil)
	}

	ttl := cfg.DevServer.TokenTTL()
	if v := p.Flag("ttl"); v != "" {
		ttl, err = time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return NewUsageError("token", "invalid --ttl "+v, "gazette-assist token --ttl 12h")
		}
	}

	subject := p.Subcommand()
	if subject == "" {
		subject = defaultTokenSubject
	}

	token, err := devserver.MintToken(cfg.DevServer.JWTSecret, subject, ttl)
	if err != nil {
		return NewCommandError("token", "mint", "signing failed", err)
	}

	if args.JSON {
		return writeJSON(args.Out, map[string]string{
			"token":      token,
			"subject":    subject,
			"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
		})
	}
	fmt.Fprintln(args.Out, token)
	if !args.Quiet {
		fmt.Fprintln(args.Err, DimStyle.Render(fmt.Sprintf("expires in %s; set assistant.token or GAZETTE_TOKEN", ttl)))
	}
	return nil
}
