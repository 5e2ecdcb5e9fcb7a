// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server implements the portal HTTP API that session guards talk
// to.
//
// # Endpoints
//
//   - GET  /health                          - Health check
//   - GET  /api/community/session-timeout   - Community inactivity timeout
//   - PUT  /api/community/session-timeout   - Update it (admin bearer token)
//   - POST /api/login                       - Exchange email/password for a token
//   - POST /api/logout                      - Revoke the bearer token
//   - GET  /metrics                         - Prometheus metrics
//
// The timeout is exchanged as {"inactivityTimeoutMinutes": n}; updates
// must be 15-60 minutes in steps of 5. A failed logout answers 401 with
// {"success": false, "error": "..."}.
//
// # Middleware
//
// Every request passes through panic recovery, security headers, request
// logging and (when configured) a per-IP token bucket rate limit.
//
// # Usage
//
//	store, _ := storage.OpenPortal(path, nil)
//	srv := server.New(server.Config{Addr: ":4000"}, store)
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
package server
