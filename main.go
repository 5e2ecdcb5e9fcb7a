// sessionguard - inactivity timeout guard for portal sessions.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"github.com/jeranaias/sessionguard/internal/cli"
	"github.com/jeranaias/sessionguard/internal/server"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
	server.Version = Version
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdGuard:
		err = cli.HandleGuard(args)
	case cli.CmdServe:
		err = cli.HandleServe(args)
	case cli.CmdLogin:
		err = cli.HandleLogin(args)
	case cli.CmdLogout:
		err = cli.HandleLogout(args)
	case cli.CmdTimeout:
		err = cli.HandleTimeout(args)
	case cli.CmdUser:
		err = cli.HandleUser(args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		cli.PrintUsage()
		err = cli.ErrUnknownCommand(args.Name)
	}

	cli.HandleErrorAndExit(err, args.JSON)
}
