// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// timeout_cmd.go - `sessionguard timeout get|set`.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/jeranaias/sessionguard/internal/config"
	"github.com/jeranaias/sessionguard/internal/util"
)

// HandleTimeout reads or changes the community inactivity timeout.
//
// Usage:
//
//	sessionguard timeout get
//	sessionguard timeout set <minutes>
func HandleTimeout(args Args) error {
	p := NewArgParser(args.Raw)

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	local, err := openLocal(cfg)
	if err != nil {
		return NewCommandError("timeout", "open", "cannot open local store", err)
	}
	defer local.Close()
	st, err := readLoginState(local)
	if err != nil {
		return err
	}
	client := newClient(cfg, st, p.Flag("portal"))
	ctx := context.Background()

	switch p.Subcommand() {
	case "", "get", "show":
		settings, err := client.FetchSettings(ctx)
		if err != nil {
			return NewCommandError("timeout", "get", "cannot read settings", err)
		}
		d, ok := settings.Timeout()
		if args.JSON {
			return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
				"configured":               ok,
				"inactivityTimeoutMinutes": d.Minutes(),
			})
		}
		if !ok {
			fmt.Println(RenderWarn(fmt.Sprintf("portal has no timeout configured; guards use %d minutes", cfg.Session.TimeoutMinutes)))
			return nil
		}
		fmt.Println(RenderField("Inactivity timeout", util.FormatDuration(d)))
		return nil

	case "set":
		raw := p.Positional(1)
		minutes, err := ParseIntWithValidation(raw, "minutes")
		if err != nil {
			return err
		}
		if !config.ValidTimeoutMinutes(minutes) {
			return &ValidationError{
				Field:   "minutes",
				Value:   strconv.Itoa(minutes),
				Reason:  fmt.Sprintf("must be %d-%d in steps of %d", config.MinTimeoutMinutes, config.MaxTimeoutMinutes, config.TimeoutStepMinutes),
				Example: "sessionguard timeout set 45",
			}
		}
		if err := client.SetTimeout(ctx, minutes); err != nil {
			return NewCommandError("timeout", "set", "portal refused the change", err)
		}
		if !args.Quiet {
			fmt.Println(RenderOK(fmt.Sprintf("inactivity timeout set to %d minutes", minutes)))
		}
		return nil

	default:
		return NewValidationError("subcommand", p.Subcommand(), "expected get or set")
	}
}
