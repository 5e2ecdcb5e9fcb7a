// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors and lipgloss styles of the session guard
screen.

All colors are lipgloss AdaptiveColor values, so they follow the terminal
background unless a theme forces it.

# Status Indicators

Every colored status also carries an ASCII shape:

	StatusIndicators.Success - [OK]
	StatusIndicators.Error   - [X]
	StatusIndicators.Warning - [!]
	StatusIndicators.Info    - [i]

# Usage

	theme := styles.NewTheme(cfg.UI.Theme)
	badge := theme.RenderState(session.StateWarned) // "[!] WARNED" in amber
*/
package styles
