// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable Bubble Tea view pieces for the
// session guard.
//
// SessionTimeoutOverlay shows the inactivity warning with a live
// countdown, the persistent expiry notice, and error messages.
package components
