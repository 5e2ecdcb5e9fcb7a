// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the SQLite-backed stores used by sessionguard.
//
// # Key Types
//
//   - LocalStore: client-side key/value store holding the login token and
//     user details. ClearAll wipes it on logout.
//   - PortalStore: server-side community settings, users and login
//     sessions.
//
// # Usage
//
//	local, err := storage.OpenLocal(path)
//	if err != nil {
//	    return err
//	}
//	defer local.Close()
//	local.Set(storage.KeyToken, token)
//
// Both stores use the pure Go modernc.org/sqlite driver.
package storage
