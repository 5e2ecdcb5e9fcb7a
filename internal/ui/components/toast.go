// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file implements the non-blocking toast shown under the guard panel.
// A toast never takes focus and disappears on its own.
package components

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sessionguard/internal/ui/styles"
)

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	// ToastKindStatus is an informational toast (cyan)
	ToastKindStatus ToastKind = iota
	// ToastKindSuccess is a success toast (emerald)
	ToastKindSuccess
	// ToastKindWarning is a warning toast (amber)
	ToastKindWarning
	// ToastKindError is an error toast (rose)
	ToastKindError
)

// Auto-dismiss durations. Errors stay up longer so they can be read.
const (
	DefaultToastDuration = 3 * time.Second
	WarningToastDuration = 6 * time.Second
	ErrorToastDuration   = 8 * time.Second
)

// Toast holds at most one notification. The zero value is an empty toast.
type Toast struct {
	message   string
	kind      ToastKind
	expiresAt time.Time
}

// Show replaces the current toast. The lifetime depends on kind.
func (t *Toast) Show(kind ToastKind, message string, now time.Time) {
	d := DefaultToastDuration
	switch kind {
	case ToastKindWarning:
		d = WarningToastDuration
	case ToastKindError:
		d = ErrorToastDuration
	}
	t.message = message
	t.kind = kind
	t.expiresAt = now.Add(d)
}

// Expire clears the toast once its lifetime has passed at now.
func (t *Toast) Expire(now time.Time) {
	if t.message != "" && !now.Before(t.expiresAt) {
		t.Dismiss()
	}
}

// Dismiss clears the toast.
func (t *Toast) Dismiss() {
	*t = Toast{}
}

// Visible reports whether there is a toast to show.
func (t Toast) Visible() bool {
	return t.message != ""
}

// Message returns the current text, or "".
func (t Toast) Message() string {
	return t.message
}

// Kind returns the kind of the current toast.
func (t Toast) Kind() ToastKind {
	return t.kind
}

// View renders the toast with an indicator, or "" when empty.
func (t Toast) View() string {
	if !t.Visible() {
		return ""
	}

	var color lipgloss.AdaptiveColor
	var icon string
	switch t.kind {
	case ToastKindSuccess:
		color, icon = styles.Emerald, styles.StatusIndicators.Success
	case ToastKindWarning:
		color, icon = styles.Amber, styles.StatusIndicators.Warning
	case ToastKindError:
		color, icon = styles.Rose, styles.StatusIndicators.Error
	default:
		color, icon = styles.Cyan, styles.StatusIndicators.Info
	}

	return lipgloss.NewStyle().
		Foreground(color).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Render(icon + " " + t.message)
}
