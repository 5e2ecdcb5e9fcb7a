// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/sessionguard/internal/session"
)

// Theme names accepted by NewTheme.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Theme holds the styles of the guard screen.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	App      lipgloss.Style
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Panel    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Help     lipgloss.Style
	HelpKey  lipgloss.Style

	states map[session.State]lipgloss.Style
}

// NewTheme builds a theme. "dark" and "light" force the background;
// anything else detects it from the terminal.
func NewTheme(name string) *Theme {
	colorProfile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ThemeDark:
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case ThemeLight:
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle().Padding(1, 2)

	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.Subtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 2)

	t.Label = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Width(12)

	t.Value = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.Help = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.HelpKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	t.states = map[session.State]lipgloss.Style{
		session.StateIdle:    badge.Foreground(TextMuted),
		session.StateActive:  badge.Foreground(Emerald),
		session.StateWarned:  badge.Foreground(Amber),
		session.StatePaused:  badge.Foreground(Purple),
		session.StateExpired: badge.Foreground(Rose),
	}
}

// StateStyle returns the badge style for a session state.
func (t *Theme) StateStyle(s session.State) lipgloss.Style {
	if st, ok := t.states[s]; ok {
		return st
	}
	return lipgloss.NewStyle().Bold(true)
}

// RenderState renders a state badge such as "[*] ACTIVE".
func (t *Theme) RenderState(s session.State) string {
	indicator := StatusIndicators.Active
	switch s {
	case session.StateIdle:
		indicator = StatusIndicators.Pending
	case session.StateWarned:
		indicator = StatusIndicators.Warning
	case session.StatePaused:
		indicator = StatusIndicators.Info
	case session.StateExpired:
		indicator = StatusIndicators.Error
	}
	return t.StateStyle(s).Render(indicator + " " + s.String())
}
