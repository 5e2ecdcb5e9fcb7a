// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the sessionguard command line.
//
// # Commands
//
//   - guard: full-screen session guard (default)
//   - serve: portal HTTP API
//   - login / logout: obtain or revoke a bearer token
//   - timeout get|set: community inactivity timeout
//   - user add: create a portal account
//   - config show|path|init|get|set: configuration
//   - version, help
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdServe:
//		err = cli.HandleServe(args)
//	// ...
//	}
//	cli.HandleErrorAndExit(err, args.JSON)
//
// Handlers return errors; GetExitCode maps them to exit codes (2 usage,
// 3 config, 4 auth, 5 network, 7 not found, 8 timeout).
package cli
