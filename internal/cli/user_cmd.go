// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// user_cmd.go - `sessionguard user add`: create portal accounts directly
// in the portal database.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// HandleUser manages portal accounts.
//
// Usage: sessionguard user add <email> [--admin] [--password pw] [--db path]
func HandleUser(args Args) error {
	p := NewArgParser(args.Raw, "admin")

	switch p.Subcommand() {
	case "add", "create":
	case "":
		return ErrMissingArgument("subcommand", "sessionguard user add alice@example.org --admin")
	default:
		return NewValidationError("subcommand", p.Subcommand(), "expected add")
	}

	email := p.Positional(1)
	if email == "" {
		return ErrMissingArgument("email", "sessionguard user add alice@example.org")
	}
	password, err := passwordArg(p, !p.HasFlag("password"))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if db := p.Flag("db"); db != "" {
		cfg.Server.DBPath = db
	}
	store, err := openPortal(cfg)
	if err != nil {
		return NewCommandError("user", "add", "cannot open portal database", err)
	}
	defer store.Close()

	u, err := store.CreateUser(context.Background(), email, password, p.BoolFlag("admin"))
	if err != nil {
		return NewCommandError("user", "add", "cannot create account", err)
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"id":    u.ID,
			"email": u.Email,
			"admin": u.IsAdmin,
		})
	}
	role := "member"
	if u.IsAdmin {
		role = "admin"
	}
	if !args.Quiet {
		fmt.Println(RenderOK(fmt.Sprintf("created %s %s (%s)", role, u.Email, u.ID)))
	}
	return nil
}
