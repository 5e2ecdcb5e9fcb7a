// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by sessionguard packages:
// atomic file writes for config and token files, and duration formatting
// for countdowns and CLI output.
package util
