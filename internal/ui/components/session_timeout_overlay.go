// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sessionguard/internal/ui/styles"
	"github.com/jeranaias/sessionguard/internal/util"
)

// =============================================================================
// SESSION TIMEOUT OVERLAY
// =============================================================================

// OverlayMode is what the overlay currently shows.
type OverlayMode int

const (
	OverlayHidden OverlayMode = iota
	OverlayWarning
	OverlayExpired
	OverlayError
)

// SessionTimeoutOverlay renders the inactivity warning, the expiry notice
// and logout errors. The expired notice is persistent: only Reset clears
// it.
type SessionTimeoutOverlay struct {
	mode          OverlayMode
	message       string
	timeRemaining time.Duration

	width  int
	height int
}

// NewSessionTimeoutOverlay creates a hidden overlay.
func NewSessionTimeoutOverlay() SessionTimeoutOverlay {
	return SessionTimeoutOverlay{}
}

// SetSize sets the overlay dimensions.
func (o *SessionTimeoutOverlay) SetSize(width, height int) {
	o.width = width
	o.height = height
}

// ShowWarning displays message with a countdown from remaining.
func (o *SessionTimeoutOverlay) ShowWarning(message string, remaining time.Duration) {
	if o.mode == OverlayExpired {
		return
	}
	o.mode = OverlayWarning
	o.message = message
	o.timeRemaining = remaining
}

// ShowExpired displays the persistent expiry notice.
func (o *SessionTimeoutOverlay) ShowExpired(message string) {
	o.mode = OverlayExpired
	o.message = message
	o.timeRemaining = 0
}

// ShowError displays an error message. It does not replace an expiry
// notice.
func (o *SessionTimeoutOverlay) ShowError(message string) {
	if o.mode == OverlayExpired {
		return
	}
	o.mode = OverlayError
	o.message = message
}

// UpdateTime updates the warning countdown.
func (o *SessionTimeoutOverlay) UpdateTime(remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	o.timeRemaining = remaining
}

// Hide dismisses a warning or error. The expiry notice stays.
func (o *SessionTimeoutOverlay) Hide() {
	if o.mode != OverlayExpired {
		o.mode = OverlayHidden
		o.message = ""
	}
}

// Reset clears every notice, including expiry.
func (o *SessionTimeoutOverlay) Reset() {
	o.mode = OverlayHidden
	o.message = ""
	o.timeRemaining = 0
}

// Mode returns what the overlay shows.
func (o SessionTimeoutOverlay) Mode() OverlayMode {
	return o.mode
}

// IsVisible reports whether anything is shown.
func (o SessionTimeoutOverlay) IsVisible() bool {
	return o.mode != OverlayHidden
}

// TimeRemaining returns the countdown value.
func (o SessionTimeoutOverlay) TimeRemaining() time.Duration {
	return o.timeRemaining
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update tracks the window size.
func (o SessionTimeoutOverlay) Update(msg tea.Msg) (SessionTimeoutOverlay, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		o.width = msg.Width
		o.height = msg.Height
	}
	return o, nil
}

// View renders the overlay, or "" when hidden.
func (o SessionTimeoutOverlay) View() string {
	switch o.mode {
	case OverlayWarning:
		return o.render(styles.Amber, styles.StatusIndicators.Warning+" Session Timeout Warning",
			"Expires in "+util.FormatCountdown(o.timeRemaining),
			"Press any key to stay signed in")
	case OverlayExpired:
		return o.render(styles.Rose, styles.StatusIndicators.Error+" Session Expired", "",
			"Press q to quit")
	case OverlayError:
		return o.render(styles.Rose, styles.StatusIndicators.Error+" Error", "",
			"Press any key to dismiss")
	default:
		return ""
	}
}

// =============================================================================
// RENDER METHODS
// =============================================================================

func (o SessionTimeoutOverlay) render(accent lipgloss.AdaptiveColor, title, countdown, hint string) string {
	width := o.width
	if width == 0 {
		width = 60
	}
	height := o.height
	if height == 0 {
		height = 16
	}

	maxWidth := width - 8
	if maxWidth < 40 {
		maxWidth = 40
	}
	if maxWidth > 60 {
		maxWidth = 60
	}

	parts := []string{
		lipgloss.NewStyle().Foreground(accent).Bold(true).Render(title),
		"",
		lipgloss.NewStyle().
			Foreground(styles.TextPrimary).
			Width(maxWidth - 8).
			Align(lipgloss.Center).
			Render(o.message),
	}
	if countdown != "" {
		parts = append(parts, "", lipgloss.NewStyle().Foreground(accent).Bold(true).Render(countdown))
	}
	parts = append(parts, "", lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Italic(true).
		Render(hint))

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(accent).
		Padding(1, 3).
		Width(maxWidth).
		Align(lipgloss.Center).
		Render(lipgloss.JoinVertical(lipgloss.Center, parts...))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim))
}
