// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for sessionguard.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)      Display the effective configuration
//   path                Show the configuration file path
//   init [--force]      Write a default configuration file
//   get <key>           Print one value
//   set <key> <value>   Set one value and save
//
// Examples:
//   sessionguard config set session.timeout_minutes 45
//   sessionguard config set client.portal_url https://portal.example.org
//   sessionguard config set ui.locale fr
//   sessionguard config get server.addr

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/sessionguard/internal/config"
)

// HandleConfig handles `sessionguard config`.
func HandleConfig(args Args) error {
	p := NewArgParser(args.Raw, "force")

	switch p.Subcommand() {
	case "", "show":
		return handleConfigShow(args)
	case "path":
		return handleConfigPath(args)
	case "init":
		return handleConfigInit(args, p.BoolFlag("force"))
	case "get":
		return handleConfigGet(args, p.Positional(1))
	case "set":
		return handleConfigSet(args, p.Positional(1), p.Positional(2))
	default:
		return NewValidationError("subcommand", p.Subcommand(), "expected show, path, init, get or set")
	}
}

func handleConfigShow(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	// String redacts the token.
	if args.JSON {
		fmt.Println(cfg.String())
		return nil
	}

	fmt.Println(TitleStyle.Render("sessionguard configuration"))
	for _, key := range config.GetAllKeys() {
		v, err := cfg.Get(key)
		if err != nil {
			return err
		}
		fmt.Println(RenderField(key, maskIfSecret(key, fmt.Sprint(v))))
	}
	return nil
}

func handleConfigPath(args Args) error {
	path, err := configPath(args)
	if err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"path":   path,
			"exists": statErr == nil,
		})
	}
	fmt.Println(path)
	if statErr != nil && !args.Quiet {
		fmt.Println(DimStyle.Render("(not created yet; run `sessionguard config init`)"))
	}
	return nil
}

func handleConfigInit(args Args, force bool) error {
	path, err := configPath(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return NewCommandError("config", "init", path+" already exists (use --force to overwrite)", nil)
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return NewCommandError("config", "init", "cannot write config", err)
	}
	if !args.Quiet {
		fmt.Println(RenderOK("wrote " + path))
	}
	return nil
}

func handleConfigGet(args Args, key string) error {
	if key == "" {
		return ErrMissingArgument("key", "sessionguard config get session.timeout_minutes")
	}
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	v, err := cfg.Get(key)
	if err != nil {
		return &NotFoundError{Resource: "config key", ID: key}
	}
	fmt.Println(maskIfSecret(key, fmt.Sprint(v)))
	return nil
}

func handleConfigSet(args Args, key, value string) error {
	if key == "" || value == "" {
		return ErrMissingArgument("key and value", "sessionguard config set session.timeout_minutes 45")
	}
	path, err := configPath(args)
	if err != nil {
		return err
	}

	// Start from the file alone so env overrides are not persisted.
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
		if _, getErr := cfg.Get(key); getErr != nil {
			return &NotFoundError{Resource: "config key", ID: key}
		}
		return NewValidationError(key, value, err.Error())
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if strings.HasSuffix(path, ".json") {
		err = config.SaveJSON(cfg, path)
	} else {
		err = config.SaveTOML(cfg, path)
	}
	if err != nil {
		return NewCommandError("config", "set", "cannot write config", err)
	}

	if !args.Quiet {
		fmt.Println(RenderOK(fmt.Sprintf("%s = %s", key, maskIfSecret(key, value))))
	}
	return nil
}

func maskIfSecret(key, value string) string {
	if key != "client.token" || value == "" {
		return value
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
