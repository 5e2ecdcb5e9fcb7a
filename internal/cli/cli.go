// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and top-level command handlers for sessionguard.
package cli

import (
	"encoding/json"
	"fmt"
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
	CmdGuard Command = iota
	CmdServe
	CmdLogin
	CmdLogout
	CmdTimeout
	CmdUser
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet      bool
	Verbose    bool
	JSON       bool   // Output in JSON format
	ConfigPath string // --config overrides the default config file

	// Name is the command word as typed, for error messages.
	Name string

	// Subcommand is the first positional argument after the command.
	Subcommand string

	// Raw args after the command word (flags included).
	Raw []string
}

const usageText = `sessionguard - inactivity timeout guard for portal sessions

Usage:
  sessionguard [guard]               Watch the current session (default)
  sessionguard serve                 Run the portal API
  sessionguard login <email>         Sign in and store the token locally
  sessionguard logout                Revoke the stored token
  sessionguard timeout get           Show the community inactivity timeout
  sessionguard timeout set <min>     Change it (admin; 15-60, steps of 5)
  sessionguard user add <email>      Create a portal account
  sessionguard config [subcommand]   Configuration
  sessionguard version               Show version information
  sessionguard help                  Show this help

Guard keys:
  ctrl+e                             Extend the session now
  q, ctrl+c                          End the session and quit
  any other key or mouse motion      Counts as activity

Login options:
  --password <pw>                    Password (prompted when omitted)
  --portal <url>                     Portal URL (default: client.portal_url)

User options:
  --admin                            Grant admin rights
  --password <pw>                    Password (prompted when omitted)

Config commands:
  sessionguard config show           Print the effective configuration
  sessionguard config path           Print the config file location
  sessionguard config init [--force] Write a default config file
  sessionguard config get <key>      Print one value
  sessionguard config set <key> <v>  Change one value

Global options:
  --config <path>                    Use this config file
  --json                             JSON output
  -q, --quiet                        Less output
  -v, --verbose                      More output (guard logs to guard.log)

Environment:
  SESSIONGUARD_HOME                  Config directory (default ~/.sessionguard)
  SESSIONGUARD_PORTAL_URL            Portal URL
  SESSIONGUARD_TIMEOUT_MINUTES       Fallback inactivity timeout
  SESSIONGUARD_LOCALE                Notification language (en, es, fr, hi, zh)
  NO_COLOR                           Disable colors
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Print(usageText)
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs maps argv (without the program name) to a command.
func ParseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdGuard, args
	}

	args.Name = remaining[0]
	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining
	args.Subcommand = NewArgParser(remaining).Subcommand()

	switch cmd {
	case "guard", "watch":
		return CmdGuard, args
	case "serve", "server":
		return CmdServe, args
	case "login":
		return CmdLogin, args
	case "logout":
		return CmdLogout, args
	case "timeout":
		return CmdTimeout, args
	case "user", "users":
		return CmdUser, args
	case "config", "cfg":
		return CmdConfig, args
	case "version", "--version", "-V":
		return CmdVersion, args
	case "help", "--help", "-h":
		return CmdHelp, args
	default:
		return CmdUnknown, args
	}
}

func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var args Args

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "--json":
			args.JSON = true
		case arg == "--config":
			if i+1 < len(argv) {
				i++
				args.ConfigPath = argv[i]
			}
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, args
}

// =============================================================================
// VERSION / HELP
// =============================================================================

// HandleVersion prints version information.
func HandleVersion(args Args) {
	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]string{
			"version":    Version,
			"git_commit": GitCommit,
			"build_date": BuildDate,
			"go_version": runtime.Version(),
			"platform":   runtime.GOOS + "/" + runtime.GOARCH,
		})
		return
	}
	fmt.Printf("sessionguard %s\n", Version)
	if !args.Quiet {
		fmt.Printf("  Commit:   %s\n", GitCommit)
		fmt.Printf("  Built:    %s\n", BuildDate)
		fmt.Printf("  Go:       %s\n", runtime.Version())
		fmt.Printf("  Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	}
}

// HandleHelp prints the usage text.
func HandleHelp() {
	PrintUsage()
}

// ErrUnknownCommand reports a command word that Parse did not recognize.
func ErrUnknownCommand(name string) error {
	return &ValidationError{
		Field:   "command",
		Value:   name,
		Reason:  "unknown command",
		Example: "sessionguard help",
	}
}
